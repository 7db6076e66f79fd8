package workers

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/comitanigiacomo/kanso-streak-engine/internal/core/streak"
)

const DefaultQueueSize = 100

const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

type Recalculator interface {
	RecalculateHabit(ctx context.Context, habitID string) (streak.Result, error)
}

type StreakJob struct {
	HabitID string
}

type StreakWorker struct {
	streaks Recalculator
	jobs    chan StreakJob
	log     zerolog.Logger
	metrics Metrics
}

func NewStreakWorker(streaks Recalculator, queueSize int, log zerolog.Logger, metrics Metrics) *StreakWorker {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &StreakWorker{
		streaks: streaks,
		jobs:    make(chan StreakJob, queueSize),
		log:     log.With().Str("component", "streak_worker").Logger(),
		metrics: metrics,
	}
}

func (w *StreakWorker) Start(ctx context.Context) {
	go func() {
		w.log.Info().Int("queue_size", cap(w.jobs)).Msg("streak worker started")
		for {
			select {
			case job := <-w.jobs:
				w.processJob(ctx, job)
			case <-ctx.Done():
				w.log.Info().Msg("streak worker shutting down")
				return
			}
		}
	}()
}

// Enqueue never blocks: when the queue is full the job is dropped and the
// stored streak catches up on the next change to the habit.
func (w *StreakWorker) Enqueue(habitID string) {
	select {
	case w.jobs <- StreakJob{HabitID: habitID}:
	default:
		w.metrics.IncStreakJobsDropped()
		w.log.Warn().Str("habit_id", habitID).Msg("streak queue full, dropping job")
	}
}

func (w *StreakWorker) processJob(ctx context.Context, job StreakJob) {
	start := time.Now()

	res, err := w.streaks.RecalculateHabit(ctx, job.HabitID)
	if err != nil {
		w.metrics.ObserveStreakJob(OutcomeError, time.Since(start))
		w.log.Error().Err(err).Str("habit_id", job.HabitID).Msg("streak recalculation failed")
		return
	}

	w.metrics.ObserveStreakJob(OutcomeOK, time.Since(start))
	w.log.Debug().
		Str("habit_id", job.HabitID).
		Int("current", res.Current).
		Int("longest", res.Longest).
		Msg("streak recalculated")
}

// QueueLen reports how many jobs are waiting.
func (w *StreakWorker) QueueLen() int {
	return len(w.jobs)
}
