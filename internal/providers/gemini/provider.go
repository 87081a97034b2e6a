// internal/providers/gemini/provider.go
// Package gemini provides a ChatProvider backed by the Google Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/mwiater/adjudicator/internal/appconfig"
	"github.com/mwiater/adjudicator/internal/logging"
	"github.com/mwiater/adjudicator/internal/providers"
)

// Name is the routing key for this provider.
const Name = appconfig.ProviderGemini

// primingReply is the model turn that acknowledges the system prompt in the
// seeded conversation history.
const primingReply = "Understood. I will follow the provided instructions."

// contentGenerator is the slice of *genai.Models used by the provider.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Provider implements the providers.ChatProvider interface using the genai SDK.
type Provider struct {
	models  contentGenerator
	model   string
	timeout time.Duration
}

// New constructs a Provider from the Gemini settings in cfg.
func New(ctx context.Context, cfg *appconfig.Config) (*Provider, error) {
	settings := cfg.GeminiSettings()
	if settings.APIKey == "" {
		return nil, errors.New("gemini: API key is required (set gemini.apiKey or GOOGLE_API_KEY)")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  settings.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return newWithGenerator(client.Models, settings.Model, cfg.RequestTimeout()), nil
}

func newWithGenerator(models contentGenerator, model string, timeout time.Duration) *Provider {
	return &Provider{models: models, model: model, timeout: timeout}
}

// Complete primes a conversation with the system prompt, then sends the user prompt.
func (p *Provider) Complete(ctx context.Context, req providers.CompletionRequest) (providers.CompletionResponse, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = p.model
	}

	contents := []*genai.Content{
		genai.NewContentFromText(req.SystemPrompt, genai.RoleUser),
		genai.NewContentFromText(primingReply, genai.RoleModel),
		genai.NewContentFromText(req.Prompt, genai.RoleUser),
	}
	logging.LogRequest("ADJ->LLM", Name, model, req.PromptName, req.Prompt)

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	resp, err := p.models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		return providers.CompletionResponse{}, classify(err)
	}
	text := resp.Text()
	logging.LogRequest("LLM->ADJ", Name, model, req.PromptName, text)

	if text == "" && len(resp.Candidates) == 0 {
		reason := "no candidates returned"
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			reason = "prompt blocked: " + string(resp.PromptFeedback.BlockReason)
		}
		return providers.CompletionResponse{}, &providers.TransportError{Provider: Name, Cause: errors.New(reason)}
	}

	usedModel := resp.ModelVersion
	if usedModel == "" {
		usedModel = model
	}
	return providers.CompletionResponse{Text: text, Provider: Name, Model: usedModel}, nil
}

// Close is a no-op; the genai client holds no long-lived resources.
func (p *Provider) Close() error { return nil }

var statusPattern = regexp.MustCompile(`Error (\d{3})`)

// classify wraps an SDK error as a TransportError carrying the HTTP status.
// RESOURCE_EXHAUSTED is reported as 429.
func classify(err error) *providers.TransportError {
	te := &providers.TransportError{Provider: Name, Cause: err}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		te.Status = apiErr.Code
		te.Body = apiErr.Message
	}
	msg := err.Error()
	if m := statusPattern.FindStringSubmatch(msg); te.Status == 0 && m != nil {
		te.Status, _ = strconv.Atoi(m[1])
	}
	if te.Status == 0 && (strings.Contains(msg, "RESOURCE_EXHAUSTED") || strings.Contains(msg, "Resource has been exhausted")) {
		te.Status = 429
	}
	return te
}
