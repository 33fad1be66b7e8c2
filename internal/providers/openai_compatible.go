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

// OpenAICompatibleClient talks to any chat-completions endpoint that
// follows the OpenAI request/response shape: OpenAI itself, Groq and GitHub
// Models all reuse this client with a different tag, base URL, and model.
// Cloudflare Workers AI has its own CloudflareClient.
type OpenAICompatibleClient struct {
	tag        string
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOpenAICompatibleClient constructs a client for any OpenAI-shaped
// chat-completions endpoint. tag is the provider name reported on
// responses (e.g. "openai", "groq", "github").
func NewOpenAICompatibleClient(tag, apiKey, baseURL, model string) *OpenAICompatibleClient {
	return &OpenAICompatibleClient{
		tag:     tag,
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

func (c *OpenAICompatibleClient) Name() string { return c.tag }

func (c *OpenAICompatibleClient) Available() bool { return c.apiKey != "" }

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *OpenAICompatibleClient) Call(ctx context.Context, req types.LLMRequest) (types.LLMResponse, error) {
	if !c.Available() {
		return types.LLMResponse{}, fmt.Errorf("%s: no api key configured", c.tag)
	}

	model := c.model
	if req.ModelHint != "" {
		model = req.ModelHint
	}

	messages := []openAIMessage{}
	if req.SystemPrompt != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, openAIMessage{Role: "user", Content: req.Prompt})

	body := openAIRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return types.LLMResponse{}, err
	}

	url := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return types.LLMResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	logging.ProvidersDebug("%s: POST %s model=%s", c.tag, url, model)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return types.LLMResponse{}, fmt.Errorf("%s: request failed: %w", c.tag, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.LLMResponse{}, fmt.Errorf("%s: reading response: %w", c.tag, err)
	}

	if resp.StatusCode != http.StatusOK {
		return types.LLMResponse{}, fmt.Errorf("%s: http %d: %s", c.tag, resp.StatusCode, string(data))
	}

	var parsed openAIResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return types.LLMResponse{}, fmt.Errorf("%s: malformed response: %w", c.tag, err)
	}
	if parsed.Error != nil {
		return types.LLMResponse{}, fmt.Errorf("%s: %s", c.tag, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return types.LLMResponse{}, fmt.Errorf("%s: no choices returned", c.tag)
	}

	return types.LLMResponse{
		Content:     parsed.Choices[0].Message.Content,
		ProviderTag: c.tag,
	}, nil
}
