package providers

import (
	"context"

	"autoforge/internal/apperr"
	"autoforge/internal/logging"
	"autoforge/internal/types"
)

// Pool holds an ordered list of providers and fans a single generate()
// call out across them, trying each in registration order until one
// succeeds. Earlier-listed providers have priority; individual failures
// are captured and logged but never abort the sequence — only exhausting
// the whole list produces a caller-visible error.
type Pool struct {
	providers []Provider
}

// NewPool constructs a Pool over providers, preserving the given order.
func NewPool(providers ...Provider) *Pool {
	return &Pool{providers: providers}
}

// Generate tries every available provider in order, returning the first
// success. If none succeed (or none are available), it returns a
// *apperr.ProviderAllFailedError listing each attempted provider's cause.
func (p *Pool) Generate(ctx context.Context, req types.LLMRequest) (types.LLMResponse, error) {
	var failures []apperr.ProviderFailure

	for _, provider := range p.providers {
		if !provider.Available() {
			continue
		}
		resp, err := provider.Call(ctx, req)
		if err != nil {
			logging.ProvidersWarn("%s: call failed: %v", provider.Name(), err)
			failures = append(failures, apperr.ProviderFailure{Provider: provider.Name(), Err: err})
			continue
		}
		return resp, nil
	}

	return types.LLMResponse{}, &apperr.ProviderAllFailedError{Failures: failures}
}

// Providers exposes the configured provider list in order, for inspection
// (e.g. by diagnostics or tests asserting fallback order).
func (p *Pool) Providers() []Provider {
	return p.providers
}
