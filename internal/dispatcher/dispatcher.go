// Package dispatcher implements the Inference Dispatcher: bounded-
// concurrency admission control over infer() calls, per-request session
// tracking, and backend routing, grounded on the counting-semaphore +
// mutex-guarded-map concurrency shape used throughout this codebase's own
// scheduler. The metrics sink is injected at construction, never a
// package-level singleton.
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"autoforge/internal/logging"
	"autoforge/internal/metrics"
	"autoforge/internal/types"
)

// Backend executes one InferenceRequest for a given (input variant,
// backend) pair. Unsupported pairs fall back to the stub generator.
type Backend func(ctx context.Context, req types.InferenceRequest) (types.InferenceOutput, error)

// Dispatcher enforces a concurrency permit, tracks ActiveSessions, and
// routes requests to backend-specific routines.
type Dispatcher struct {
	sem            chan struct{}
	defaultBackend types.BackendKind
	backends       map[backendKey]Backend

	mu       sync.RWMutex
	sessions map[string]types.ActiveSession

	sink metrics.Sink
}

type backendKey struct {
	variant types.InputVariant
	backend types.BackendKind
}

// New constructs a Dispatcher with maxConcurrent permits and sink as its
// injected metrics hook. A nil sink is replaced with metrics.NoopSink{}.
func New(maxConcurrent int, defaultBackend types.BackendKind, sink metrics.Sink) *Dispatcher {
	if sink == nil {
		sink = metrics.NoopSink{}
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Dispatcher{
		sem:            make(chan struct{}, maxConcurrent),
		defaultBackend: defaultBackend,
		backends:       make(map[backendKey]Backend),
		sessions:       make(map[string]types.ActiveSession),
		sink:           sink,
	}
}

// RegisterBackend wires a routine for a specific (variant, backend) pair.
func (d *Dispatcher) RegisterBackend(variant types.InputVariant, backend types.BackendKind, fn Backend) {
	d.backends[backendKey{variant, backend}] = fn
}

// ActiveSessionCount returns the number of requests currently past
// admission, for asserting the concurrency-bound invariant.
func (d *Dispatcher) ActiveSessionCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.sessions)
}

// Infer admits req (suspending on the concurrency permit if necessary),
// tracks an ActiveSession for its duration, dispatches to the selected
// backend (or a stub if unsupported), records a metrics sample, and
// always releases its permit and session — on both the success and error
// path, and on cancellation.
func (d *Dispatcher) Infer(ctx context.Context, req types.InferenceRequest) (types.InferenceResponse, error) {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	select {
	case d.sem <- struct{}{}:
	case <-ctx.Done():
		return types.InferenceResponse{}, ctx.Err()
	}
	defer func() { <-d.sem }()

	backend := req.BackendOverride
	if backend == "" {
		backend = d.defaultBackend
	}

	start := time.Now()
	d.mu.Lock()
	d.sessions[req.RequestID] = types.ActiveSession{Request: req, StartInstant: start, Backend: backend}
	d.sink.ActiveSessions(len(d.sessions))
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		delete(d.sessions, req.RequestID)
		d.sink.ActiveSessions(len(d.sessions))
		d.mu.Unlock()
	}()

	logging.DispatcherDebug("infer request_id=%s model=%s backend=%s", req.RequestID, req.ModelID, backend)

	var output types.InferenceOutput
	var err error

	fn, ok := d.backends[backendKey{req.Input.Variant, backend}]
	if !ok {
		logging.DispatcherDebug("no backend registered for (%s, %s); returning stub output", req.Input.Variant, backend)
		output = stubOutput(req.Input.Variant)
	} else {
		output, err = fn(ctx, req)
	}

	duration := time.Since(start)
	success := err == nil

	// Metrics recording must never affect the return value or be on the
	// critical success path; a panicking or slow sink must not break infer().
	func() {
		defer func() { recover() }()
		d.sink.RecordInference(metrics.Sample{
			ModelID:        req.ModelID,
			DurationMS:     duration.Milliseconds(),
			EstimatedBytes: estimateBytes(output),
			Success:        success,
		})
	}()

	if err != nil {
		return types.InferenceResponse{}, fmt.Errorf("infer %s: %w", req.RequestID, err)
	}

	return types.InferenceResponse{
		RequestID: req.RequestID,
		Output:    output,
		Meta: types.InferenceMeta{
			Backend:        backend,
			WallClockMS:    duration.Milliseconds(),
			EstimatedBytes: estimateBytes(output),
			StartedAt:      start,
		},
	}, nil
}

// stubOutput produces a deterministic, shape-correct placeholder so
// callers exercising unsupported (variant, backend) pairs still see
// realistic output shapes in simulation mode.
func stubOutput(variant types.InputVariant) types.InferenceOutput {
	switch variant {
	case types.InputText:
		return types.InferenceOutput{Variant: types.OutputText, Text: "[simulated completion]"}
	case types.InputImage:
		return types.InferenceOutput{
			Variant: types.OutputClassification,
			Classifications: []types.ClassificationResult{
				{Label: "unknown", Probability: 1.0},
			},
		}
	case types.InputAudio:
		return types.InferenceOutput{Variant: types.OutputTranscription, Transcription: "[simulated transcription]"}
	case types.InputStructured:
		return types.InferenceOutput{Variant: types.OutputStructured, Structured: map[string]interface{}{"simulated": true}}
	default:
		return types.InferenceOutput{Variant: types.OutputEmbedding, Embedding: make([]float64, 0)}
	}
}

func estimateBytes(output types.InferenceOutput) int64 {
	switch output.Variant {
	case types.OutputText:
		return int64(len(output.Text))
	case types.OutputTranscription:
		return int64(len(output.Transcription))
	case types.OutputEmbedding:
		return int64(len(output.Embedding) * 8)
	default:
		return 0
	}
}
