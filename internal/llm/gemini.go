package llm

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/quotienthq/quotient/internal/interfaces"
	"github.com/quotienthq/quotient/internal/models"
)

type geminiState struct {
	config *ResolvedConfig
	client *genai.Client
}

// GeminiProvider implements the chat provider interface for Google Gemini.
type GeminiProvider struct {
	resolver *Resolver
	logger   arbor.ILogger
	state    atomic.Pointer[geminiState]
	initMu   sync.Mutex
}

func NewGeminiProvider(resolver *Resolver, logger arbor.ILogger) *GeminiProvider {
	return &GeminiProvider{
		resolver: resolver,
		logger:   logger,
	}
}

func (p *GeminiProvider) ProviderName() string {
	return ProviderGemini
}

func (p *GeminiProvider) ModelName() string {
	if state := p.state.Load(); state != nil {
		return state.config.Model
	}
	return DefaultGeminiModel
}

func (p *GeminiProvider) Reinitialize(ctx context.Context) error {
	state, err := p.buildState(ctx)
	if err != nil {
		return err
	}
	p.state.Store(state)
	return nil
}

func (p *GeminiProvider) buildState(ctx context.Context) (*geminiState, error) {
	config, err := p.resolver.ResolveChat(ctx, ProviderGemini)
	if err != nil {
		return nil, err
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &geminiState{
		config: config,
		client: client,
	}, nil
}

func (p *GeminiProvider) snapshot(ctx context.Context) (*geminiState, error) {
	if state := p.state.Load(); state != nil {
		return state, nil
	}

	p.initMu.Lock()
	defer p.initMu.Unlock()

	if state := p.state.Load(); state != nil {
		return state, nil
	}

	state, err := p.buildState(ctx)
	if err != nil {
		return nil, err
	}
	p.state.Store(state)
	return state, nil
}

func (p *GeminiProvider) GenerateChatCompletion(ctx context.Context, messages []models.Message, opts *interfaces.ChatOptions) (*interfaces.ChatCompletion, error) {
	state, err := p.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	geminiContents, systemText, err := convertMessagesToGemini(messages)
	if err != nil {
		return nil, fmt.Errorf("failed to convert messages: %w", err)
	}

	model := state.config.Model
	temp := state.config.Temperature
	if opts != nil {
		if opts.Model != "" {
			model = NormalizeModel(opts.Model)
		}
		if opts.Temperature > 0 {
			temp = opts.Temperature
		}
		if opts.SystemInstruction != "" {
			systemText = opts.SystemInstruction
		}
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(temp),
	}
	if systemText != "" {
		config.SystemInstruction = genai.NewContentFromText(systemText, genai.RoleUser)
	}

	var resp *genai.GenerateContentResponse
	var apiErr error
	retryConfig := NewDefaultRetryConfig()

	for attempt := 0; attempt <= retryConfig.MaxRetries; attempt++ {
		resp, apiErr = state.client.Models.GenerateContent(ctx, model, geminiContents, config)
		if apiErr == nil {
			break
		}

		if attempt == retryConfig.MaxRetries {
			break
		}

		var backoff time.Duration
		if IsRateLimitError(apiErr) {
			apiDelay := ExtractRetryDelay(apiErr)
			backoff = retryConfig.CalculateBackoff(attempt, apiDelay)
		} else {
			backoff = time.Duration(attempt+1) * 2 * time.Second
		}

		p.logger.Warn().
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Err(apiErr).
			Msg("Retrying Gemini API call")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	if apiErr != nil {
		return nil, fmt.Errorf("Gemini API call failed after %d retries: %w", retryConfig.MaxRetries, apiErr)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("empty response from Gemini API")
	}

	responseText := resp.Text()
	if responseText == "" {
		return nil, fmt.Errorf("empty text in Gemini response")
	}

	return &interfaces.ChatCompletion{
		Text:     responseText,
		Provider: ProviderGemini,
		Model:    model,
	}, nil
}

// convertMessagesToGemini converts provider-agnostic messages to Gemini
// format, extracting the first system message as the system instruction.
func convertMessagesToGemini(messages []models.Message) ([]*genai.Content, string, error) {
	if len(messages) == 0 {
		return nil, "", fmt.Errorf("messages cannot be empty")
	}

	hasUserMessage := false
	for _, msg := range messages {
		if msg.Role == "user" {
			hasUserMessage = true
			break
		}
	}
	if !hasUserMessage {
		return nil, "", fmt.Errorf("at least one message must have role 'user'")
	}

	contents := make([]*genai.Content, 0, len(messages))
	var systemText string
	for _, msg := range messages {
		if msg.Role == "system" {
			if systemText == "" {
				systemText = msg.Content
			}
			continue
		}

		var geminiRole string
		switch msg.Role {
		case "assistant":
			geminiRole = genai.RoleModel
		default:
			geminiRole = genai.RoleUser
		}

		contents = append(contents, &genai.Content{
			Role:  geminiRole,
			Parts: []*genai.Part{genai.NewPartFromText(msg.Content)},
		})
	}

	return contents, systemText, nil
}
