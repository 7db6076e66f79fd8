package http_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHabitHandler_Create(t *testing.T) {
	tests := []struct {
		name       string
		userID     string
		body       map[string]any
		wantStatus int
	}{
		{
			name:       "Success: Daily boolean habit",
			userID:     "user-1",
			body:       map[string]any{"title": "Read"},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "Success: Weekly numeric habit",
			userID:     "user-1",
			body:       map[string]any{"title": "Run", "type": "numeric", "cadence": "weekly", "target_value": 3},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "Fail: Missing title",
			userID:     "user-1",
			body:       map[string]any{"color": "#FFF"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Fail: Unknown cadence",
			userID:     "user-1",
			body:       map[string]any{"title": "Monthly", "cadence": "monthly"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Fail: Unauthenticated",
			body:       map[string]any{"title": "Read"},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			w := env.do(t, http.MethodPost, "/api/v1/habits", tt.userID, tt.body)

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
		})
	}
}

func TestHabitHandler_Create_Idempotent(t *testing.T) {
	env := newTestEnv(t)

	first := env.createHabit(t, "user-1", map[string]any{"id": "offline-1", "title": "Walk"})
	second := env.createHabit(t, "user-1", map[string]any{"id": "offline-1", "title": "Walk again"})

	assert.Equal(t, first, second)

	w := env.do(t, http.MethodGet, "/api/v1/habits", "user-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 1)
}

func TestHabitHandler_Update(t *testing.T) {
	env := newTestEnv(t)
	id := env.createHabit(t, "user-1", map[string]any{"title": "Stretch", "color": "#000"})

	t.Run("Success: Partial update keeps other fields", func(t *testing.T) {
		w := env.do(t, http.MethodPut, "/api/v1/habits/"+id, "user-1", map[string]any{
			"cadence": "weekly",
			"version": 1,
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		got := decode[map[string]any](t, w)
		assert.Equal(t, "Stretch", got["title"])
		assert.Equal(t, "#000", got["color"])
		assert.Equal(t, "weekly", got["cadence"])
		assert.Equal(t, float64(2), got["version"])
	})

	t.Run("Fail: Stale version", func(t *testing.T) {
		w := env.do(t, http.MethodPut, "/api/v1/habits/"+id, "user-1", map[string]any{
			"title":   "Late",
			"version": 1,
		})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Fail: Other user", func(t *testing.T) {
		w := env.do(t, http.MethodPut, "/api/v1/habits/"+id, "intruder", map[string]any{"version": 2})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHabitHandler_DeleteAndSync(t *testing.T) {
	env := newTestEnv(t)
	id := env.createHabit(t, "user-1", map[string]any{"title": "Meditate"})

	w := env.do(t, http.MethodDelete, "/api/v1/habits/"+id, "intruder", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodDelete, "/api/v1/habits/"+id, "user-1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/habits", "user-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]map[string]any](t, w))

	since := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	w = env.do(t, http.MethodGet, "/api/v1/habits/sync?last_sync="+since, "user-1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode[struct {
		Changes []map[string]any `json:"changes"`
	}](t, w)
	require.Len(t, body.Changes, 1)
	assert.NotNil(t, body.Changes[0]["deleted_at"], "Sync must report tombstones")

	w = env.do(t, http.MethodGet, "/api/v1/habits/sync?last_sync=yesterday", "user-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
