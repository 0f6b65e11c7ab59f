package monitoring

import "time"

// Timer measures a decrypt call.
type Timer struct {
	start   time.Time
	metrics *Metrics
	context string
}

// NewDecryptTimer starts a timer. A nil collector yields a no-op timer.
func NewDecryptTimer(metrics *Metrics, context string) *Timer {
	return &Timer{
		start:   time.Now(),
		metrics: metrics,
		context: context,
	}
}

// Stop records the elapsed time.
func (t *Timer) Stop() time.Duration {
	d := time.Since(t.start)
	if t.metrics != nil {
		t.metrics.ObserveDecrypt(t.context, d)
	}
	return d
}
