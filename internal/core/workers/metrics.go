package workers

import "time"

// Metrics receives worker telemetry. Implementations must be safe for
// concurrent use.
type Metrics interface {
	ObserveStreakJob(outcome string, duration time.Duration)
	IncStreakJobsDropped()
	IncRemindersSent()
}

type nopMetrics struct{}

func (nopMetrics) ObserveStreakJob(_ string, _ time.Duration) {}
func (nopMetrics) IncStreakJobsDropped()                      {}
func (nopMetrics) IncRemindersSent()                          {}
