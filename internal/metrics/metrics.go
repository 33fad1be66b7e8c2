// Package metrics defines the injected metrics hook consumed by the
// Inference Dispatcher. It is deliberately not a package-level singleton —
// callers construct a Sink and pass it to dispatcher.New explicitly, so
// that concurrent dispatchers in the same process (or in tests) don't
// trample a shared global.
package metrics

import "sync"

// Sample is one completed inference's metrics contribution.
type Sample struct {
	ModelID        string
	DurationMS     int64
	EstimatedBytes int64
	Success        bool
}

// Sink receives inference completion samples. Implementations must not
// block the caller for long — recording happens off the critical success
// path and a slow sink should not be allowed to slow down infer().
type Sink interface {
	RecordInference(s Sample)
	ActiveSessions(n int)
}

// NoopSink discards everything. dispatcher.New uses it when given a nil
// sink; no configuration setting selects it.
type NoopSink struct{}

func (NoopSink) RecordInference(Sample) {}
func (NoopSink) ActiveSessions(int)      {}

// InMemorySink accumulates samples for tests and for simple in-process
// observability; safe for concurrent use.
type InMemorySink struct {
	mu                   sync.Mutex
	samples              []Sample
	inferenceLatencyMS   int64
	inferenceBytes       int64
	inferenceErrorsTotal int64
	activeSessions       int
}

// NewInMemorySink constructs an empty InMemorySink.
func NewInMemorySink() *InMemorySink {
	return &InMemorySink{}
}

func (s *InMemorySink) RecordInference(sample Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, sample)
	s.inferenceLatencyMS += sample.DurationMS
	s.inferenceBytes += sample.EstimatedBytes
	if !sample.Success {
		s.inferenceErrorsTotal++
	}
}

func (s *InMemorySink) ActiveSessions(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeSessions = n
}

// Samples returns a copy of everything recorded so far.
func (s *InMemorySink) Samples() []Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Sample, len(s.samples))
	copy(out, s.samples)
	return out
}

// Snapshot exposes the named counters the monitoring collaborator contract
// (spec §6) expects: inference_latency_ms, inference_bytes,
// inference_errors_total, active_sessions.
type Snapshot struct {
	InferenceLatencyMS   int64
	InferenceBytes       int64
	InferenceErrorsTotal int64
	ActiveSessions       int
}

func (s *InMemorySink) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		InferenceLatencyMS:   s.inferenceLatencyMS,
		InferenceBytes:       s.inferenceBytes,
		InferenceErrorsTotal: s.inferenceErrorsTotal,
		ActiveSessions:       s.activeSessions,
	}
}
