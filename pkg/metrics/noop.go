package metrics

import "time"

// NoopRecorder discards every event. It is the default when no recorder is
// configured.
type NoopRecorder struct{}

func (NoopRecorder) IncCounter(string, map[string]string)                    {}
func (NoopRecorder) ObserveLatency(string, time.Duration, map[string]string) {}

var _ Recorder = NoopRecorder{}
