package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultAnthropicEndpoint is the messages API URL.
	DefaultAnthropicEndpoint = "https://api.anthropic.com/v1/messages"
	// DefaultAnthropicModel is used when no model is configured.
	DefaultAnthropicModel = "claude-sonnet-4-5"

	anthropicVersion = "2023-06-01"
	defaultMaxTokens = 4096
)

// AnthropicClient is a direct HTTP client for the Anthropic messages API.
type AnthropicClient struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewAnthropicClient creates a client. An empty endpoint selects the public API.
func NewAnthropicClient(apiKey, model, endpoint string) *AnthropicClient {
	if model == "" {
		model = DefaultAnthropicModel
	}
	if endpoint == "" {
		endpoint = DefaultAnthropicEndpoint
	}
	return &AnthropicClient{
		apiKey:   apiKey,
		model:    model,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 120 * time.Second},
	}
}

// Name returns the provider name.
func (c *AnthropicClient) Name() string { return "anthropic" }

// Complete sends a non-streaming request to the messages API.
func (c *AnthropicClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	payload, err := json.Marshal(c.buildRequestBody(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("anthropic request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{
			Provider: c.Name(),
			Message:  apiErrorMessage(respBody),
			Code:     resp.StatusCode,
		}
	}

	var result anthropicResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return result.toCompletion(time.Since(start)), nil
}

func (c *AnthropicClient) buildRequestBody(req CompletionRequest) map[string]any {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	body := map[string]any{
		"model":      c.model,
		"messages":   anthropicMessages(req.Messages),
		"max_tokens": maxTokens,
	}
	if req.System != "" {
		body["system"] = req.System
	}
	if req.Temperature != nil {
		body["temperature"] = *req.Temperature
	}
	return body
}

// anthropicMessages maps transcript entries onto the two roles the API
// accepts. System entries become user turns tagged as notes.
func anthropicMessages(msgs []Message) []map[string]string {
	out := make([]map[string]string, 0, len(msgs))
	for _, m := range msgs {
		role, content := m.Role, m.Content
		if role == RoleSystem {
			role = RoleUser
			content = "[system note] " + content
		}
		out = append(out, map[string]string{"role": role, "content": content})
	}
	return out
}

// apiErrorMessage pulls error.message out of an API error body, falling
// back to the raw text.
func apiErrorMessage(body []byte) string {
	var e struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	return strings.TrimSpace(string(body))
}

type anthropicResponse struct {
	ID         string                  `json:"id"`
	Model      string                  `json:"model"`
	Content    []anthropicContentBlock `json:"content"`
	StopReason string                  `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type anthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

func (r *anthropicResponse) toCompletion(d time.Duration) *CompletionResponse {
	var content strings.Builder
	for _, block := range r.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}
	return &CompletionResponse{
		Content:    content.String(),
		StopReason: r.StopReason,
		Usage: Usage{
			InputTokens:  r.Usage.InputTokens,
			OutputTokens: r.Usage.OutputTokens,
		},
		Model:    r.Model,
		Duration: d,
	}
}
