// Package openaicompat generates remediation advice through any
// OpenAI-compatible chat/completions endpoint (OpenAI, OpenRouter, local
// gateways).
package openaicompat

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
	defaultModel   = "gpt-4-turbo-preview"

	adviceTemperature = 0.7
	adviceMaxTokens   = 1500
)

// Provider calls an OpenAI-compatible chat/completions API.
type Provider struct {
	id            string
	apiKey        string
	baseURL       string
	model         string
	staticHeaders map[string]string
	httpClient    *http.Client
}

func NewProvider(id, apiKey, baseURL, model string, timeout time.Duration, staticHeaders map[string]string) *Provider {
	return NewProviderWithClient(id, apiKey, baseURL, model, timeout, staticHeaders, nil)
}

func NewProviderWithClient(
	id, apiKey, baseURL, model string,
	timeout time.Duration,
	staticHeaders map[string]string,
	httpClient *http.Client,
) *Provider {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}
	headers := make(map[string]string, len(staticHeaders))
	for k, v := range staticHeaders {
		headers[k] = v
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Provider{
		id:            strings.ToLower(strings.TrimSpace(id)),
		apiKey:        strings.TrimSpace(apiKey),
		baseURL:       strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		model:         strings.TrimSpace(model),
		staticHeaders: headers,
		httpClient:    httpClient,
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

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// GenerateAdvice sends the prompt as a chat completion and returns the first
// choice's content.
func (p *Provider) GenerateAdvice(ctx context.Context, prompt string) (string, error) {
	if !p.IsEnabled() {
		return "", &advisor.ProviderError{Provider: p.ID(), Err: advisor.ErrMissingCredentials}
	}

	payload, err := json.Marshal(chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: advisor.SystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: adviceTemperature,
		MaxTokens:   adviceMaxTokens,
	})
	if err != nil {
		return "", &advisor.ProviderError{Provider: p.id, Err: fmt.Errorf("failed to encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", &advisor.ProviderError{Provider: p.id, Err: fmt.Errorf("failed to build request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range p.staticHeaders {
		req.Header.Set(k, v)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", &advisor.ProviderError{Provider: p.id, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &advisor.ProviderError{Provider: p.id, Status: resp.StatusCode, Err: err}
	}

	var parsed chatResponse
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

	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", &advisor.ProviderError{Provider: p.id, Err: fmt.Errorf("upstream returned no choices")}
	}
	return parsed.Choices[0].Message.Content, nil
}
