// Package docs registers the OpenAPI document served under /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/auth/register": {
            "post": {
                "tags": ["auth"],
                "summary": "Register a user",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "credentials", "required": true, "schema": {"$ref": "#/definitions/credentials"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/user"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/error"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Exchange credentials for a bearer token",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "credentials", "required": true, "schema": {"$ref": "#/definitions/credentials"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/token"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/error"}}
                }
            }
        },
        "/habits": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["habits"],
                "summary": "List habits",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["habits"],
                "summary": "Create a habit",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/error"}}
                }
            }
        },
        "/habits/{id}/streak": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["streaks"],
                "summary": "Live streak of one habit",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "in": "path", "name": "id", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/habitStreak"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/error"}}
                }
            }
        },
        "/entries": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["entries"],
                "summary": "Record a check-in",
                "description": "Stores an entry and schedules a streak recalculation for its habit.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/error"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/error"}}
                }
            }
        },
        "/streaks": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["streaks"],
                "summary": "Streaks of every active habit plus the account streak",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/streaks/account": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["streaks"],
                "summary": "Account streak and at-risk flag",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/accountStatus"}}}
            }
        },
        "/stats/weekly": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["stats"],
                "summary": "Per-day completion stats",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "in": "query", "name": "start_date"},
                    {"type": "string", "in": "query", "name": "end_date"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/me/profile": {
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["profile"],
                "summary": "Change timezone and grace hour",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/user"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/error"}}
                }
            }
        }
    },
    "definitions": {
        "error": {
            "type": "object",
            "properties": {"error": {"type": "string"}}
        },
        "credentials": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "user": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "email": {"type": "string"},
                "timezone": {"type": "string"},
                "grace_hour": {"type": "integer"}
            }
        },
        "token": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "user": {"$ref": "#/definitions/user"}
            }
        },
        "streakResult": {
            "type": "object",
            "properties": {
                "current": {"type": "integer"},
                "longest": {"type": "integer"}
            }
        },
        "habitStreak": {
            "type": "object",
            "properties": {
                "habit_id": {"type": "string"},
                "title": {"type": "string"},
                "cadence": {"type": "string", "enum": ["daily", "weekly", "custom"]},
                "target": {"type": "integer"},
                "period_key": {"type": "string"},
                "period_count": {"type": "integer"},
                "current": {"type": "integer"},
                "longest": {"type": "integer"}
            }
        },
        "accountStatus": {
            "type": "object",
            "properties": {
                "user_id": {"type": "string"},
                "timezone": {"type": "string"},
                "local_date": {"type": "string"},
                "account": {"$ref": "#/definitions/streakResult"},
                "today_count": {"type": "integer"},
                "at_risk": {"type": "boolean"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Kanso Streak Engine API",
	Description:      "Habit tracking with timezone-aware streaks.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
