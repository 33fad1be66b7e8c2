package apperr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProviderAllFailedUnwrapExposesEachCause(t *testing.T) {
	sentinel := errors.New("rate limited")
	err := &ProviderAllFailedError{Failures: []ProviderFailure{
		{Provider: "openai", Err: errors.New("timeout")},
		{Provider: "groq", Err: sentinel},
	}}

	assert.True(t, errors.Is(err, sentinel))
	assert.Contains(t, err.Error(), "openai")
	assert.Contains(t, err.Error(), "groq")
}

func TestExternalProcessFailedErrorUnwrapsCause(t *testing.T) {
	cause := errors.New("exec: no such file")
	err := &ExternalProcessFailedError{Command: "cargo test", ExitCode: -1, Cause: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "cargo test")
}

func TestIOFailureErrorUnwrapsCause(t *testing.T) {
	cause := errors.New("permission denied")
	err := &IOFailureError{Op: "write", Path: "/tmp/x", Cause: cause}

	assert.ErrorIs(t, err, cause)
}

func TestModelNotFoundErrorMessage(t *testing.T) {
	err := &ModelNotFoundError{ID: "bert-base"}
	assert.Equal(t, `model not found: bert-base`, err.Error())
}
