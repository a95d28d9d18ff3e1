package metrics

import (
	"sync/atomic"
	"time"
)

type Counter struct {
	value uint64
}

func (c *Counter) Inc() {
	atomic.AddUint64(&c.value, 1)
}

func (c *Counter) Add(n uint64) {
	atomic.AddUint64(&c.value, n)
}

func (c *Counter) Load() uint64 {
	return atomic.LoadUint64(&c.value)
}

type Timer struct {
	start time.Time
}

func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Registry aggregates the process-wide payment counters exposed on /health.
type Registry struct {
	Submissions          Counter
	Callbacks            Counter
	NotificationsSent    Counter
	NotificationFailures Counter
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) Snapshot() map[string]uint64 {
	return map[string]uint64{
		"submissions":           r.Submissions.Load(),
		"callbacks":             r.Callbacks.Load(),
		"notifications_sent":    r.NotificationsSent.Load(),
		"notification_failures": r.NotificationFailures.Load(),
	}
}
