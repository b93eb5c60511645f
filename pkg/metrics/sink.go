// Package metrics records what the alert engine does.
package metrics

import "time"

// Sink defines the interface for recording metrics.
// All methods are fire-and-forget: implementations must not block or propagate errors.
type Sink interface {
	AlertStarted(trigger string)
	AlertEnded(reason string)
	RefreshCompleted(result string, duration time.Duration)
	AgendaSizeUpdate(meetings int)
}

// Refresh result labels.
const (
	RefreshOK        = "ok"
	RefreshFailed    = "failed"
	RefreshDenied    = "denied"
	RefreshDiscarded = "discarded"
)

// NoopSink discards every observation.
type NoopSink struct{}

func (NoopSink) AlertStarted(string)                     {}
func (NoopSink) AlertEnded(string)                       {}
func (NoopSink) RefreshCompleted(string, time.Duration) {}
func (NoopSink) AgendaSizeUpdate(int)                    {}
