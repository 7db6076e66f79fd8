package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	adapterHTTP "github.com/comitanigiacomo/kanso-streak-engine/internal/adapters/handler/http"
	"github.com/comitanigiacomo/kanso-streak-engine/internal/adapters/handler/http/middleware"
	"github.com/comitanigiacomo/kanso-streak-engine/internal/adapters/repository"
	"github.com/comitanigiacomo/kanso-streak-engine/internal/core/services"
)

// fixedNow is noon UTC, well past the default grace hour.
var fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

// syncRecalculator recalculates inline so assertions can read stored
// streaks right after the request returns.
type syncRecalculator struct {
	mu     sync.Mutex
	svc    *services.StreakService
	queued []string
}

func (r *syncRecalculator) Enqueue(habitID string) {
	r.mu.Lock()
	r.queued = append(r.queued, habitID)
	r.mu.Unlock()
	_, _ = r.svc.RecalculateHabit(context.Background(), habitID)
}

func (r *syncRecalculator) Queued() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.queued...)
}

type testEnv struct {
	router  *gin.Engine
	habits  *repository.InMemoryHabitRepository
	entries *repository.InMemoryEntryRepository
	users   *repository.InMemoryUserRepository
	recalc  *syncRecalculator
	streaks *services.StreakService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		habits:  repository.NewInMemoryHabitRepository(),
		entries: repository.NewInMemoryEntryRepository(),
		users:   repository.NewInMemoryUserRepository(),
	}
	env.streaks = services.NewStreakService(env.habits, env.entries, env.users, zerolog.Nop(),
		services.WithClock(func() time.Time { return fixedNow }))
	env.recalc = &syncRecalculator{svc: env.streaks}

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID := c.GetHeader("X-User-ID"); userID != "" {
			c.Set(middleware.ContextUserIDKey, userID)
		}
		c.Next()
	})

	api := r.Group("/api/v1")
	adapterHTTP.NewHabitHandler(services.NewHabitService(env.habits)).RegisterRoutes(api)
	adapterHTTP.NewEntryHandler(services.NewEntryService(env.entries, env.habits, env.recalc)).RegisterRoutes(api)
	adapterHTTP.NewStatsHandler(services.NewStatsService(env.habits, env.entries, env.users,
		services.WithStatsClock(func() time.Time { return fixedNow }))).RegisterRoutes(api)
	adapterHTTP.NewStreakHandler(env.streaks).RegisterRoutes(api)
	adapterHTTP.NewProfileHandler(services.NewProfileService(env.users)).RegisterRoutes(api)

	env.router = r
	return env
}

func (e *testEnv) do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var payload *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		payload = bytes.NewReader(raw)
	} else {
		payload = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, payload)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (e *testEnv) createHabit(t *testing.T, userID string, body map[string]any) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/habits", userID, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[map[string]any](t, w)["id"].(string)
}
