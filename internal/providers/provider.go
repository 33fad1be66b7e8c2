// Package providers implements the LLM Provider Pool: an ordered list of
// backend-neutral LLM clients tried in registration order until one
// succeeds. Every concrete provider reduces to an HTTPS POST returning a
// JSON body from which a content string is extracted, the pattern this
// package is grounded on throughout the corpus's own provider clients.
package providers

import (
	"context"

	"autoforge/internal/types"
)

// Provider is the uniform interface every concrete LLM backend implements.
type Provider interface {
	Name() string
	Available() bool
	Call(ctx context.Context, req types.LLMRequest) (types.LLMResponse, error)
}
