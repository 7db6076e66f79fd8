package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/comitanigiacomo/kanso-streak-engine/internal/core/services"
	"github.com/comitanigiacomo/kanso-streak-engine/internal/core/workers"
)

const (
	DefaultChannel  = "kanso:reminders"
	EventStreakRisk = "streak_at_risk"
)

var (
	_ workers.Notifier = (*LogNotifier)(nil)
	_ workers.Notifier = (*RedisNotifier)(nil)
)

// Reminder is the payload handed to delivery channels.
type Reminder struct {
	Type          string    `json:"type"`
	UserID        string    `json:"user_id"`
	Timezone      string    `json:"timezone"`
	LocalDate     string    `json:"local_date"`
	CurrentStreak int       `json:"current_streak"`
	SentAt        time.Time `json:"sent_at"`
}

func newReminder(status services.AccountStatus, now time.Time) Reminder {
	return Reminder{
		Type:          EventStreakRisk,
		UserID:        status.UserID,
		Timezone:      status.Timezone,
		LocalDate:     status.LocalDate,
		CurrentStreak: status.Account.Current,
		SentAt:        now.UTC(),
	}
}

// LogNotifier writes reminders to the log. Used when no broker is configured.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With().Str("component", "notifier").Logger()}
}

func (n *LogNotifier) NotifyAtRisk(_ context.Context, status services.AccountStatus) error {
	n.log.Info().
		Str("user_id", status.UserID).
		Str("local_date", status.LocalDate).
		Int("current", status.Account.Current).
		Msg("streak at risk")
	return nil
}

type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisNotifier publishes reminders as JSON on a pub/sub channel for the
// push gateway to pick up.
type RedisNotifier struct {
	pub     publisher
	channel string
	now     func() time.Time
}

func NewRedisNotifier(pub publisher, channel string) *RedisNotifier {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisNotifier{pub: pub, channel: channel, now: time.Now}
}

func (n *RedisNotifier) NotifyAtRisk(ctx context.Context, status services.AccountStatus) error {
	payload, err := json.Marshal(newReminder(status, n.now()))
	if err != nil {
		return fmt.Errorf("notifier: encode reminder: %w", err)
	}

	if err := n.pub.Publish(ctx, n.channel, payload).Err(); err != nil {
		return fmt.Errorf("notifier: publish reminder: %w", err)
	}
	return nil
}
