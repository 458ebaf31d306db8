// Package anthropic generates remediation advice through the Anthropic
// Messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/perflens/perflens/internal/advisor"
)

const (
	defaultTimeout = 180 * time.Second
	defaultModel   = "claude-3-5-sonnet-latest"

	// apiVersion is the required anthropic-version header value.
	apiVersion = "2023-06-01"

	adviceTemperature = 0.7
	adviceMaxTokens   = 1500
)

// Provider calls the Anthropic Messages API.
type Provider struct {
	id         string
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewProvider(id, apiKey, baseURL, model string, timeout time.Duration) *Provider {
	return NewProviderWithClient(id, apiKey, baseURL, model, timeout, nil)
}

func NewProviderWithClient(id, apiKey, baseURL, model string, timeout time.Duration, httpClient *http.Client) *Provider {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Provider{
		id:         strings.ToLower(strings.TrimSpace(id)),
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		model:      strings.TrimSpace(model),
		httpClient: httpClient,
	}
}

func (p *Provider) ID() string {
	if p == nil {
		return ""
	}
	return p.id
}

func (p *Provider) IsEnabled() bool {
	return p != nil && p.id != "" && p.baseURL != "" && p.apiKey != ""
}

type messagesRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	System      string        `json:"system"`
	Temperature float64       `json:"temperature"`
	Messages    []userMessage `json:"messages"`
}

type userMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// GenerateAdvice sends the prompt as a single-turn message and returns the
// first text content block.
func (p *Provider) GenerateAdvice(ctx context.Context, prompt string) (string, error) {
	if !p.IsEnabled() {
		return "", &advisor.ProviderError{Provider: p.ID(), Err: advisor.ErrMissingCredentials}
	}

	payload, err := json.Marshal(messagesRequest{
		Model:       p.model,
		MaxTokens:   adviceMaxTokens,
		System:      advisor.SystemPrompt,
		Temperature: adviceTemperature,
		Messages:    []userMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", &advisor.ProviderError{Provider: p.id, Err: fmt.Errorf("failed to encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return "", &advisor.ProviderError{Provider: p.id, Err: fmt.Errorf("failed to build request: %w", err)}
	}
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", apiVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", &advisor.ProviderError{Provider: p.id, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &advisor.ProviderError{Provider: p.id, Status: resp.StatusCode, Err: err}
	}

	var parsed messagesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", &advisor.ProviderError{Provider: p.id, Status: resp.StatusCode, Err: fmt.Errorf("unexpected upstream response")}
		}
		return "", &advisor.ProviderError{Provider: p.id, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		msg := "upstream request failed"
		if parsed.Error != nil && parsed.Error.Message != "" {
			msg = parsed.Error.Message
		}
		return "", &advisor.ProviderError{Provider: p.id, Status: resp.StatusCode, Err: fmt.Errorf("%s", msg)}
	}

	for _, block := range parsed.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", &advisor.ProviderError{Provider: p.id, Err: fmt.Errorf("upstream returned no text content")}
}
