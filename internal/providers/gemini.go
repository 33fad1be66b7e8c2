package providers

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"autoforge/internal/logging"
	"autoforge/internal/types"
)

// GeminiClient is an SDK-backed provider (as opposed to every other
// provider in this package, which is a hand-rolled net/http client) — it
// wraps google.golang.org/genai, the same client construction pattern used
// for embeddings elsewhere in the corpus this is grounded on.
type GeminiClient struct {
	apiKey string
	model  string
	client *genai.Client
}

// NewGeminiClient constructs a Gemini provider client. The underlying SDK
// client is created lazily on the first Call so that an empty apiKey keeps
// Available() == false without touching the network.
func NewGeminiClient(apiKey, model string) *GeminiClient {
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &GeminiClient{apiKey: apiKey, model: model}
}

func (c *GeminiClient) Name() string    { return "gemini" }
func (c *GeminiClient) Available() bool { return c.apiKey != "" }

func (c *GeminiClient) ensureClient(ctx context.Context) error {
	if c.client != nil {
		return nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: c.apiKey})
	if err != nil {
		return fmt.Errorf("gemini: creating client: %w", err)
	}
	c.client = client
	return nil
}

func (c *GeminiClient) Call(ctx context.Context, req types.LLMRequest) (types.LLMResponse, error) {
	if !c.Available() {
		return types.LLMResponse{}, fmt.Errorf("gemini: no api key configured")
	}
	if err := c.ensureClient(ctx); err != nil {
		return types.LLMResponse{}, err
	}

	model := c.model
	if req.ModelHint != "" {
		model = req.ModelHint
	}

	prompt := req.Prompt
	if req.SystemPrompt != "" {
		prompt = req.SystemPrompt + "\n\n" + req.Prompt
	}

	logging.ProvidersDebug("gemini: GenerateContent model=%s", model)

	resp, err := c.client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return types.LLMResponse{}, fmt.Errorf("gemini: generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return types.LLMResponse{}, fmt.Errorf("gemini: empty response")
	}

	return types.LLMResponse{Content: text, ProviderTag: "gemini"}, nil
}
