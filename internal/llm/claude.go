package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"

	"github.com/quotienthq/quotient/internal/interfaces"
	"github.com/quotienthq/quotient/internal/models"
)

// claudeState is one immutable configuration-plus-client snapshot.
type claudeState struct {
	config *ResolvedConfig
	client anthropic.Client
}

// ClaudeProvider implements the chat provider interface for Anthropic Claude.
type ClaudeProvider struct {
	resolver *Resolver
	logger   arbor.ILogger
	state    atomic.Pointer[claudeState]
	initMu   sync.Mutex
}

func NewClaudeProvider(resolver *Resolver, logger arbor.ILogger) *ClaudeProvider {
	return &ClaudeProvider{
		resolver: resolver,
		logger:   logger,
	}
}

func (p *ClaudeProvider) ProviderName() string {
	return ProviderClaude
}

func (p *ClaudeProvider) ModelName() string {
	if state := p.state.Load(); state != nil {
		return state.config.Model
	}
	return DefaultClaudeModel
}

// Reinitialize re-resolves configuration and swaps in a fresh snapshot.
// In-flight requests keep the snapshot they started with.
func (p *ClaudeProvider) Reinitialize(ctx context.Context) error {
	state, err := p.buildState(ctx)
	if err != nil {
		return err
	}
	p.state.Store(state)
	return nil
}

func (p *ClaudeProvider) buildState(ctx context.Context) (*claudeState, error) {
	config, err := p.resolver.ResolveChat(ctx, ProviderClaude)
	if err != nil {
		return nil, err
	}

	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	return &claudeState{
		config: config,
		client: anthropic.NewClient(opts...),
	}, nil
}

// snapshot returns the current state, resolving configuration on first use.
func (p *ClaudeProvider) snapshot(ctx context.Context) (*claudeState, error) {
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

func (p *ClaudeProvider) GenerateChatCompletion(ctx context.Context, messages []models.Message, opts *interfaces.ChatOptions) (*interfaces.ChatCompletion, error) {
	state, err := p.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	claudeMessages, systemText, err := convertMessagesToClaude(messages)
	if err != nil {
		return nil, fmt.Errorf("failed to convert messages: %w", err)
	}

	model := state.config.Model
	temp := state.config.Temperature
	maxTokens := state.config.MaxTokens
	if opts != nil {
		if opts.Model != "" {
			model = NormalizeModel(opts.Model)
		}
		if opts.Temperature > 0 {
			temp = opts.Temperature
		}
		if opts.MaxTokens > 0 {
			maxTokens = opts.MaxTokens
		}
		if opts.SystemInstruction != "" {
			systemText = opts.SystemInstruction
		}
	}
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  claudeMessages,
	}
	if temp > 0 {
		params.Temperature = anthropic.Float(float64(temp))
	}
	if systemText != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: systemText},
		}
	}

	var resp *anthropic.Message
	var apiErr error
	retryConfig := NewDefaultRetryConfig()

	for attempt := 0; attempt <= retryConfig.MaxRetries; attempt++ {
		resp, apiErr = state.client.Messages.New(ctx, params)
		if apiErr == nil {
			break
		}

		if attempt == retryConfig.MaxRetries {
			break
		}

		backoff := time.Duration(attempt+1) * 2 * time.Second
		if IsRateLimitError(apiErr) {
			backoff = retryConfig.CalculateBackoff(attempt, 0)
		}

		p.logger.Warn().
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Err(apiErr).
			Msg("Retrying Claude API call")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	if apiErr != nil {
		return nil, fmt.Errorf("Claude API call failed after %d retries: %w", retryConfig.MaxRetries, apiErr)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	if text.Len() == 0 {
		return nil, fmt.Errorf("empty response from Claude API")
	}

	return &interfaces.ChatCompletion{
		Text:     text.String(),
		Provider: ProviderClaude,
		Model:    model,
	}, nil
}

// convertMessagesToClaude converts provider-agnostic messages to Claude
// format, extracting the first system message as the system instruction.
func convertMessagesToClaude(messages []models.Message) ([]anthropic.MessageParam, string, error) {
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

	claudeMessages := make([]anthropic.MessageParam, 0, len(messages))
	var systemText string
	for _, msg := range messages {
		if msg.Role == "system" {
			if systemText == "" {
				systemText = msg.Content
			}
			continue
		}

		switch msg.Role {
		case "assistant":
			claudeMessages = append(claudeMessages, anthropic.NewAssistantMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		default:
			claudeMessages = append(claudeMessages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		}
	}

	return claudeMessages, systemText, nil
}
