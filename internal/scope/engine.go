package scope

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/quotienthq/quotient/internal/interfaces"
	"github.com/quotienthq/quotient/internal/models"
)

// Engine runs the two model-facing pipeline phases: scope analysis and
// draft generation.
type Engine struct {
	chat   interfaces.ChatProvider
	logger arbor.ILogger
}

func NewEngine(chat interfaces.ChatProvider, logger arbor.ILogger) *Engine {
	return &Engine{
		chat:   chat,
		logger: logger,
	}
}

// AnalyzeScope asks the model what information is missing from the
// assessment. A non-empty result halts the pipeline for clarification.
func (e *Engine) AnalyzeScope(ctx context.Context, assessment *models.Assessment) (*ScopeResult, error) {
	if assessment.IsEmpty() {
		return nil, fmt.Errorf("assessment is empty")
	}

	completion, err := e.chat.GenerateChatCompletion(ctx, BuildScopeMessages(assessment), nil)
	if err != nil {
		return nil, fmt.Errorf("scope analysis failed: %w", err)
	}

	result, err := ParseScopeResponse(completion.Text)
	if err != nil {
		return nil, err
	}

	e.logger.Debug().
		Str("provider", completion.Provider).
		Int("required_measurements", len(result.RequiredMeasurements)).
		Int("questions", len(result.Questions)).
		Msg("Scope analysis complete")

	return result, nil
}

// GenerateDraft asks the model for priced line items. Returns the validated
// items along with the raw response text for diagnostics.
func (e *Engine) GenerateDraft(ctx context.Context, req *models.GenerationRequest) ([]models.DraftLineItem, string, error) {
	if req.Assessment.IsEmpty() {
		return nil, "", fmt.Errorf("assessment is empty")
	}

	completion, err := e.chat.GenerateChatCompletion(ctx, BuildDraftMessages(req), nil)
	if err != nil {
		return nil, "", fmt.Errorf("draft generation failed: %w", err)
	}

	items, err := ParseDraftItems(completion.Text)
	if err != nil {
		return nil, completion.Text, err
	}

	e.logger.Debug().
		Str("provider", completion.Provider).
		Int("items", len(items)).
		Msg("Draft generation complete")

	return items, completion.Text, nil
}
