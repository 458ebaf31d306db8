// Package gateway generates remediation advice through an enterprise LLM
// gateway that exposes OpenAI-compatible chat/completions behind OAuth2
// client-credentials authentication instead of static API keys.
package gateway

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
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	defaultTimeout = 180 * time.Second

	adviceTemperature = 0.7
	adviceMaxTokens   = 1500
)

// Provider authenticates against the gateway's token endpoint with client
// credentials and forwards chat completions with the obtained bearer token.
type Provider struct {
	id      string
	baseURL string
	model   string
	oauth   *clientcredentials.Config
	base    *http.Client
	timeout time.Duration
}

func NewProvider(id, baseURL, model, tokenURL, clientID, clientSecret string, scopes []string, timeout time.Duration) *Provider {
	return NewProviderWithClient(id, baseURL, model, tokenURL, clientID, clientSecret, scopes, timeout, nil)
}

func NewProviderWithClient(
	id, baseURL, model, tokenURL, clientID, clientSecret string,
	scopes []string,
	timeout time.Duration,
	base *http.Client,
) *Provider {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if base == nil {
		base = &http.Client{Timeout: timeout}
	}
	return &Provider{
		id:      strings.ToLower(strings.TrimSpace(id)),
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		model:   strings.TrimSpace(model),
		oauth: &clientcredentials.Config{
			ClientID:     strings.TrimSpace(clientID),
			ClientSecret: strings.TrimSpace(clientSecret),
			TokenURL:     strings.TrimSpace(tokenURL),
			Scopes:       scopes,
		},
		base:    base,
		timeout: timeout,
	}
}

func (p *Provider) ID() string {
	if p == nil {
		return ""
	}
	return p.id
}

func (p *Provider) IsEnabled() bool {
	return p != nil && p.id != "" && p.baseURL != "" && p.model != "" &&
		p.oauth.TokenURL != "" && p.oauth.ClientID != "" && p.oauth.ClientSecret != ""
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

// GenerateAdvice obtains (or reuses) a client-credentials token and sends the
// prompt as a chat completion to the gateway.
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

	// Token fetches go through the same base client as the API call.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.base)
	client := p.oauth.Client(ctx)
	client.Timeout = p.timeout

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", &advisor.ProviderError{Provider: p.id, Err: fmt.Errorf("failed to build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
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
			return "", &advisor.ProviderError{Provider: p.id, Status: resp.StatusCode, Err: fmt.Errorf("unexpected gateway response")}
		}
		return "", &advisor.ProviderError{Provider: p.id, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		msg := "gateway request failed"
		if parsed.Error != nil && parsed.Error.Message != "" {
			msg = parsed.Error.Message
		}
		return "", &advisor.ProviderError{Provider: p.id, Status: resp.StatusCode, Err: fmt.Errorf("%s", msg)}
	}

	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", &advisor.ProviderError{Provider: p.id, Err: fmt.Errorf("gateway returned no choices")}
	}
	return parsed.Choices[0].Message.Content, nil
}
