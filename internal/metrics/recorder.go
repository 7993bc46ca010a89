// Package metrics defines observability hooks for docserve.
package metrics

import "time"

// Recorder defines observability hooks for request handling and registry
// sync. Implementations may forward to Prometheus, OpenTelemetry, etc.
type Recorder interface {
	ObserveRequestDuration(route string, status int, d time.Duration)
	IncErrorKind(kind string)
	ObserveSyncDuration(d time.Duration, success bool)
	SetCratesTotal(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not
// configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveRequestDuration(string, int, time.Duration) {}
func (NoopRecorder) IncErrorKind(string)                               {}
func (NoopRecorder) ObserveSyncDuration(time.Duration, bool)           {}
func (NoopRecorder) SetCratesTotal(int)                                {}
