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

// HuggingFaceClient talks to the Hugging Face hosted inference API, whose
// text-generation endpoints return an array of {generated_text} objects
// rather than the OpenAI-shaped choices array.
type HuggingFaceClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewHuggingFaceClient constructs a Hugging Face inference provider client.
func NewHuggingFaceClient(apiKey, baseURL, model string) *HuggingFaceClient {
	if baseURL == "" {
		baseURL = "https://api-inference.huggingface.co/models"
	}
	return &HuggingFaceClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

func (c *HuggingFaceClient) Name() string    { return "huggingface" }
func (c *HuggingFaceClient) Available() bool { return c.apiKey != "" }

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters,omitempty"`
}

type hfParameters struct {
	MaxNewTokens int     `json:"max_new_tokens,omitempty"`
	Temperature  float64 `json:"temperature,omitempty"`
}

type hfResultItem struct {
	GeneratedText string `json:"generated_text"`
}

func (c *HuggingFaceClient) Call(ctx context.Context, req types.LLMRequest) (types.LLMResponse, error) {
	if !c.Available() {
		return types.LLMResponse{}, fmt.Errorf("huggingface: no api key configured")
	}

	model := c.model
	if req.ModelHint != "" {
		model = req.ModelHint
	}
	if model == "" {
		return types.LLMResponse{}, fmt.Errorf("huggingface: no model configured")
	}

	prompt := req.Prompt
	if req.SystemPrompt != "" {
		prompt = req.SystemPrompt + "\n\n" + req.Prompt
	}

	body := hfRequest{
		Inputs: prompt,
		Parameters: hfParameters{
			MaxNewTokens: req.MaxTokens,
			Temperature:  req.Temperature,
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return types.LLMResponse{}, err
	}

	url := c.baseURL + "/" + model
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return types.LLMResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	logging.ProvidersDebug("huggingface: POST %s model=%s", url, model)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return types.LLMResponse{}, fmt.Errorf("huggingface: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.LLMResponse{}, fmt.Errorf("huggingface: reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return types.LLMResponse{}, fmt.Errorf("huggingface: http %d: %s", resp.StatusCode, string(data))
	}

	var results []hfResultItem
	if err := json.Unmarshal(data, &results); err != nil {
		return types.LLMResponse{}, fmt.Errorf("huggingface: malformed response: %w", err)
	}
	if len(results) == 0 {
		return types.LLMResponse{}, fmt.Errorf("huggingface: empty response array")
	}

	return types.LLMResponse{Content: results[0].GeneratedText, ProviderTag: "huggingface"}, nil
}
