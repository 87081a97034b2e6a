// internal/providers/openrouter/provider.go
// Package openrouter provides a ChatProvider backed by OpenRouter's OpenAI-compatible chat-completions API.
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mwiater/adjudicator/internal/appconfig"
	"github.com/mwiater/adjudicator/internal/logging"
	"github.com/mwiater/adjudicator/internal/providers"
)

// Name is the routing key for this provider.
const Name = appconfig.ProviderOpenRouter

// Provider implements the providers.ChatProvider interface using the OpenRouter HTTP API.
type Provider struct {
	client   *http.Client
	timeout  time.Duration
	endpoint string
	apiKey   string
	model    string
	siteURL  string
	siteName string
}

// New constructs a Provider configured with the application's request timeout.
func New(cfg *appconfig.Config) *Provider {
	timeout := cfg.RequestTimeout()
	settings := cfg.OpenRouterSettings()
	return &Provider{
		client: &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{ForceAttemptHTTP2: false},
		},
		timeout:  timeout,
		endpoint: settings.BaseURL,
		apiKey:   settings.APIKey,
		model:    settings.Model,
		siteURL:  settings.SiteURL,
		siteName: settings.SiteName,
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (p *Provider) WithHTTPClient(client *http.Client) *Provider {
	p.client = client
	return p
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string          `json:"model"`
	Messages []openAIMessage `json:"messages"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends a system message and one user message and returns the first choice's content.
func (p *Provider) Complete(ctx context.Context, req providers.CompletionRequest) (providers.CompletionResponse, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = p.model
	}

	messages := make([]openAIMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, openAIMessage{Role: "user", Content: req.Prompt})

	body, err := json.Marshal(chatRequest{Model: model, Messages: messages})
	if err != nil {
		return providers.CompletionResponse{}, err
	}
	logging.LogRequest("ADJ->LLM", Name, model, req.PromptName, body)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return providers.CompletionResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	if p.siteURL != "" {
		httpReq.Header.Set("HTTP-Referer", p.siteURL)
	}
	if p.siteName != "" {
		httpReq.Header.Set("X-Title", p.siteName)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return providers.CompletionResponse{}, &providers.TransportError{Provider: Name, Cause: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return providers.CompletionResponse{}, &providers.TransportError{Provider: Name, Status: resp.StatusCode, Cause: err}
	}
	logging.LogRequest("LLM->ADJ", Name, model, req.PromptName, raw)

	if resp.StatusCode != http.StatusOK {
		return providers.CompletionResponse{}, &providers.TransportError{
			Provider: Name,
			Status:   resp.StatusCode,
			Body:     strings.TrimSpace(string(raw)),
		}
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return providers.CompletionResponse{}, &providers.TransportError{Provider: Name, Status: resp.StatusCode, Body: string(raw), Cause: err}
	}
	if parsed.Error != nil {
		return providers.CompletionResponse{}, &providers.TransportError{
			Provider: Name,
			Status:   parsed.Error.Code,
			Body:     parsed.Error.Message,
		}
	}
	if len(parsed.Choices) == 0 {
		return providers.CompletionResponse{}, &providers.TransportError{Provider: Name, Status: resp.StatusCode, Cause: errors.New("response contained no choices")}
	}

	usedModel := parsed.Model
	if usedModel == "" {
		usedModel = model
	}
	return providers.CompletionResponse{
		Text:     parsed.Choices[0].Message.Content,
		Provider: Name,
		Model:    usedModel,
	}, nil
}

// Close releases idle connections.
func (p *Provider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
