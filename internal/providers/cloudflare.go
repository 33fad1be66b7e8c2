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

// CloudflareClient talks to Cloudflare Workers AI's run endpoint, which is
// keyed by account id and wraps its payload in a {success, result} envelope
// rather than an OpenAI-shaped choices array.
type CloudflareClient struct {
	apiKey     string
	accountID  string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewCloudflareClient constructs a Cloudflare Workers AI provider client.
func NewCloudflareClient(apiKey, accountID, baseURL, model string) *CloudflareClient {
	if baseURL == "" {
		baseURL = "https://api.cloudflare.com/client/v4/accounts"
	}
	return &CloudflareClient{
		apiKey:    apiKey,
		accountID: accountID,
		baseURL:   baseURL,
		model:     model,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

func (c *CloudflareClient) Name() string    { return "cloudflare" }
func (c *CloudflareClient) Available() bool { return c.apiKey != "" && c.accountID != "" }

type cfMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type cfRequest struct {
	Messages []cfMessage `json:"messages"`
}

type cfResponse struct {
	Success bool `json:"success"`
	Result  struct {
		Response string `json:"response"`
	} `json:"result"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (c *CloudflareClient) Call(ctx context.Context, req types.LLMRequest) (types.LLMResponse, error) {
	if !c.Available() {
		return types.LLMResponse{}, fmt.Errorf("cloudflare: no api key/account configured")
	}

	model := c.model
	if req.ModelHint != "" {
		model = req.ModelHint
	}

	messages := []cfMessage{}
	if req.SystemPrompt != "" {
		messages = append(messages, cfMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, cfMessage{Role: "user", Content: req.Prompt})

	payload, err := json.Marshal(cfRequest{Messages: messages})
	if err != nil {
		return types.LLMResponse{}, err
	}

	url := fmt.Sprintf("%s/%s/ai/run/%s", c.baseURL, c.accountID, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return types.LLMResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	logging.ProvidersDebug("cloudflare: POST %s model=%s", url, model)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return types.LLMResponse{}, fmt.Errorf("cloudflare: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.LLMResponse{}, fmt.Errorf("cloudflare: reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return types.LLMResponse{}, fmt.Errorf("cloudflare: http %d: %s", resp.StatusCode, string(data))
	}

	var parsed cfResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return types.LLMResponse{}, fmt.Errorf("cloudflare: malformed response: %w", err)
	}
	if !parsed.Success {
		if len(parsed.Errors) > 0 {
			return types.LLMResponse{}, fmt.Errorf("cloudflare: %s", parsed.Errors[0].Message)
		}
		return types.LLMResponse{}, fmt.Errorf("cloudflare: request not successful")
	}

	return types.LLMResponse{Content: parsed.Result.Response, ProviderTag: "cloudflare"}, nil
}
