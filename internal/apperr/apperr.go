// Package apperr defines the error taxonomy shared across autoforge's core
// subsystems, so callers can branch on error kind with errors.As instead of
// string matching.
package apperr

import "fmt"

// ModelNotFoundError is a catalog miss.
type ModelNotFoundError struct {
	ID string
}

func (e *ModelNotFoundError) Error() string {
	return fmt.Sprintf("model not found: %s", e.ID)
}

// MemoryExhaustedError means the cache cannot admit the requested model.
type MemoryExhaustedError struct {
	Requested int64
	Budget    int64
}

func (e *MemoryExhaustedError) Error() string {
	return fmt.Sprintf("memory exhausted: requested %d bytes, budget %d bytes", e.Requested, e.Budget)
}

// BackendUnavailableError means the runtime refused to serve a request.
type BackendUnavailableError struct {
	Reason string
}

func (e *BackendUnavailableError) Error() string {
	return fmt.Sprintf("backend unavailable: %s", e.Reason)
}

// ProviderFailure is one provider's contribution to a ProviderAllFailedError.
type ProviderFailure struct {
	Provider string
	Err      error
}

// ProviderAllFailedError means every configured LLM provider failed in turn.
type ProviderAllFailedError struct {
	Failures []ProviderFailure
}

func (e *ProviderAllFailedError) Error() string {
	msg := "all providers failed:"
	for _, f := range e.Failures {
		msg += fmt.Sprintf(" [%s: %v]", f.Provider, f.Err)
	}
	return msg
}

// Unwrap joins every per-provider cause so errors.Is can see through it.
func (e *ProviderAllFailedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// ParseError means a Result Parser rejected its input.
type ParseError struct {
	Framework string
	Detail    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error (%s): %s", e.Framework, e.Detail)
}

// FrameworkUndetectedError means the harness adapter could not choose a runner.
type FrameworkUndetectedError struct {
	Language string
}

func (e *FrameworkUndetectedError) Error() string {
	return fmt.Sprintf("could not detect test framework for language %q", e.Language)
}

// ExternalProcessFailedError means a test runner did not execute at all
// (as opposed to executing and reporting failures).
type ExternalProcessFailedError struct {
	Command  string
	ExitCode int
	Cause    error
}

func (e *ExternalProcessFailedError) Error() string {
	return fmt.Sprintf("external process failed: %q (exit %d): %v", e.Command, e.ExitCode, e.Cause)
}

func (e *ExternalProcessFailedError) Unwrap() error { return e.Cause }

// IOFailureError wraps a filesystem or subprocess plumbing error.
type IOFailureError struct {
	Op    string
	Path  string
	Cause error
}

func (e *IOFailureError) Error() string {
	return fmt.Sprintf("io failure: %s %s: %v", e.Op, e.Path, e.Cause)
}

func (e *IOFailureError) Unwrap() error { return e.Cause }

// LockedError means a write was blocked by the Locked-File Registry.
// Callers recover from this by emitting a suggestion file; it should not
// surface past the autocorrection controller.
type LockedError struct {
	Path string
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("path is locked: %s", e.Path)
}
