package notifier

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-streak-engine/internal/core/services"
	"github.com/comitanigiacomo/kanso-streak-engine/internal/core/streak"
)

type fakePublisher struct {
	channel string
	payload []byte
	err     error
}

func (p *fakePublisher) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	p.channel = channel
	p.payload, _ = message.([]byte)
	return redis.NewIntResult(1, p.err)
}

func atRisk() services.AccountStatus {
	return services.AccountStatus{
		UserID:    "u1",
		Timezone:  "Europe/Rome",
		LocalDate: "2024-03-10",
		Account:   streak.Result{Current: 5, Longest: 9},
		AtRisk:    true,
	}
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(zerolog.New(&buf))

	require.NoError(t, n.NotifyAtRisk(context.Background(), atRisk()))

	out := buf.String()
	assert.Contains(t, out, `"user_id":"u1"`)
	assert.Contains(t, out, `"current":5`)
	assert.Contains(t, out, "streak at risk")
}

func TestRedisNotifier(t *testing.T) {
	t.Run("Publishes JSON on the default channel", func(t *testing.T) {
		pub := &fakePublisher{}
		n := NewRedisNotifier(pub, "")
		n.now = func() time.Time { return time.Date(2024, 3, 10, 18, 0, 0, 0, time.UTC) }

		require.NoError(t, n.NotifyAtRisk(context.Background(), atRisk()))
		assert.Equal(t, DefaultChannel, pub.channel)

		var got Reminder
		require.NoError(t, json.Unmarshal(pub.payload, &got))
		assert.Equal(t, Reminder{
			Type:          EventStreakRisk,
			UserID:        "u1",
			Timezone:      "Europe/Rome",
			LocalDate:     "2024-03-10",
			CurrentStreak: 5,
			SentAt:        time.Date(2024, 3, 10, 18, 0, 0, 0, time.UTC),
		}, got)
	})

	t.Run("Wraps publish errors", func(t *testing.T) {
		boom := errors.New("connection refused")
		n := NewRedisNotifier(&fakePublisher{err: boom}, "custom")

		err := n.NotifyAtRisk(context.Background(), atRisk())
		assert.ErrorIs(t, err, boom)
	})
}
