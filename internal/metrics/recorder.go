// Package metrics defines the observability hooks of the content pipeline.
// Implementations may forward to Prometheus; NoopRecorder is the default when
// metrics are not configured.
package metrics

import "time"

// Outcome labels the final status of one page resolution.
type Outcome string

const (
	OutcomeVirtual  Outcome = "virtual"
	OutcomeFile     Outcome = "file"
	OutcomeNotFound Outcome = "not_found"
	OutcomeError    Outcome = "error"
)

type Recorder interface {
	IncCacheResult(cache string, hit bool)
	ObserveCompileDuration(d time.Duration)
	IncPageOutcome(outcome Outcome)
	SetIndexedRoutes(n int)
	ObserveBuildDuration(d time.Duration)
}

type NoopRecorder struct{}

func (NoopRecorder) IncCacheResult(string, bool)          {}
func (NoopRecorder) ObserveCompileDuration(time.Duration) {}
func (NoopRecorder) IncPageOutcome(Outcome)               {}
func (NoopRecorder) SetIndexedRoutes(int)                 {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)   {}
