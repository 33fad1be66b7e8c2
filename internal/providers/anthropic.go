package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"autoforge/internal/logging"
	"autoforge/internal/types"
)

// AnthropicClient talks to the Anthropic Messages API.
type AnthropicClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewAnthropicClient constructs an Anthropic provider client.
func NewAnthropicClient(apiKey, baseURL, model string) *AnthropicClient {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com/v1"
	}
	return &AnthropicClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

func (c *AnthropicClient) Name() string    { return "anthropic" }
func (c *AnthropicClient) Available() bool { return c.apiKey != "" }

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *AnthropicClient) Call(ctx context.Context, req types.LLMRequest) (types.LLMResponse, error) {
	if !c.Available() {
		return types.LLMResponse{}, fmt.Errorf("anthropic: no api key configured")
	}

	model := c.model
	if req.ModelHint != "" {
		model = req.ModelHint
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	body := anthropicRequest{
		Model:       model,
		System:      req.SystemPrompt,
		Messages:    []anthropicMessage{{Role: "user", Content: req.Prompt}},
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return types.LLMResponse{}, err
	}

	url := c.baseURL + "/messages"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return types.LLMResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	logging.ProvidersDebug("anthropic: POST %s model=%s", url, model)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return types.LLMResponse{}, fmt.Errorf("anthropic: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.LLMResponse{}, fmt.Errorf("anthropic: reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return types.LLMResponse{}, fmt.Errorf("anthropic: http %d: %s", resp.StatusCode, string(data))
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return types.LLMResponse{}, fmt.Errorf("anthropic: malformed response: %w", err)
	}
	if parsed.Error != nil {
		return types.LLMResponse{}, fmt.Errorf("anthropic: %s", parsed.Error.Message)
	}
	if len(parsed.Content) == 0 {
		return types.LLMResponse{}, fmt.Errorf("anthropic: no content returned")
	}

	return types.LLMResponse{Content: parsed.Content[0].Text, ProviderTag: "anthropic"}, nil
}
