package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/comitanigiacomo/kanso-streak-engine/internal/core/services"
)

const (
	DefaultReminderInterval = 15 * time.Minute
	ReminderTTL             = 36 * time.Hour
)

type UserLister interface {
	ListIDs(ctx context.Context) ([]string, error)
}

type AccountChecker interface {
	AccountStatus(ctx context.Context, userID string) (*services.AccountStatus, error)
}

type Notifier interface {
	NotifyAtRisk(ctx context.Context, status services.AccountStatus) error
}

// Deduper remembers which reminders were already sent. SetNX reports
// false when the key exists.
type Deduper interface {
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}

type ReminderWorker struct {
	users    UserLister
	accounts AccountChecker
	notifier Notifier
	dedup    Deduper
	interval time.Duration
	log      zerolog.Logger
	metrics  Metrics
}

func NewReminderWorker(users UserLister, accounts AccountChecker, notifier Notifier, dedup Deduper, interval time.Duration, log zerolog.Logger, metrics Metrics) *ReminderWorker {
	if interval <= 0 {
		interval = DefaultReminderInterval
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &ReminderWorker{
		users:    users,
		accounts: accounts,
		notifier: notifier,
		dedup:    dedup,
		interval: interval,
		log:      log.With().Str("component", "reminder_worker").Logger(),
		metrics:  metrics,
	}
}

func reminderKey(userID, localDate string) string {
	return fmt.Sprintf("reminder:%s:%s", userID, localDate)
}

func (w *ReminderWorker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		w.log.Info().Dur("interval", w.interval).Msg("reminder worker started")
		for {
			select {
			case <-ticker.C:
				if _, err := w.RunOnce(ctx); err != nil {
					w.log.Error().Err(err).Msg("reminder run failed")
				}
			case <-ctx.Done():
				w.log.Info().Msg("reminder worker shutting down")
				return
			}
		}
	}()
}

// RunOnce checks every user and sends at most one reminder per user and
// local date. Per-user failures are logged and skipped.
func (w *ReminderWorker) RunOnce(ctx context.Context) (int, error) {
	ids, err := w.users.ListIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("reminder worker: list users: %w", err)
	}

	sent := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}

		status, err := w.accounts.AccountStatus(ctx, id)
		if err != nil {
			w.log.Warn().Err(err).Str("user_id", id).Msg("account status unavailable")
			continue
		}
		if !status.AtRisk {
			continue
		}

		key := reminderKey(id, status.LocalDate)
		fresh, err := w.dedup.SetNX(ctx, key, []byte(status.LocalDate), ReminderTTL)
		if err != nil {
			w.log.Warn().Err(err).Str("user_id", id).Msg("reminder dedup unavailable, skipping")
			continue
		}
		if !fresh {
			continue
		}

		if err := w.notifier.NotifyAtRisk(ctx, *status); err != nil {
			w.log.Error().Err(err).Str("user_id", id).Msg("reminder delivery failed")
			if delErr := w.dedup.Delete(ctx, key); delErr != nil {
				w.log.Warn().Err(delErr).Str("key", key).Msg("could not release reminder key")
			}
			continue
		}

		sent++
		w.metrics.IncRemindersSent()
		w.log.Info().
			Str("user_id", id).
			Str("local_date", status.LocalDate).
			Int("current", status.Account.Current).
			Msg("streak reminder sent")
	}

	return sent, nil
}
