package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/comitanigiacomo/kanso-streak-engine/internal/core/services"
)

const (
	authorizationHeader = "Authorization"
	authorizationType   = "Bearer"
	ContextUserIDKey    = "userID"
	ContextTimezoneKey  = "timezone"
)

// AuthMiddleware accepts a bearer session token and stores the account ID
// and timezone on the gin context. The request logger is tagged with both.
// A failing user store answers 503 instead of rejecting the token.
func AuthMiddleware(tokenService *services.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c.GetHeader(authorizationHeader))
		if !ok {
			msg := "invalid authorization header format"
			if c.GetHeader(authorizationHeader) == "" {
				msg = "authorization header required"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}

		ctx := c.Request.Context()
		user, err := tokenService.ValidateToken(ctx, tokenString)
		switch {
		case errors.Is(err, services.ErrInvalidToken):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		case errors.Is(err, services.ErrTokenSubjectGone):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account no longer exists"})
			return
		case err != nil:
			zerolog.Ctx(ctx).Error().Err(err).Msg("session check failed")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "authentication temporarily unavailable"})
			return
		}

		c.Set(ContextUserIDKey, user.ID)
		c.Set(ContextTimezoneKey, user.Timezone)

		log := zerolog.Ctx(ctx).With().
			Str("user_id", user.ID).
			Str("timezone", user.Timezone).
			Logger()
		c.Request = c.Request.WithContext(log.WithContext(ctx))

		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	fields := strings.Fields(header)
	if len(fields) != 2 || fields[0] != authorizationType {
		return "", false
	}
	return fields[1], true
}

func GetUserID(c *gin.Context) (string, bool) {
	id, exists := c.Get(ContextUserIDKey)
	if !exists {
		return "", false
	}
	idStr, ok := id.(string)
	return idStr, ok
}
