package scope

import (
	"github.com/quotienthq/quotient/internal/models"
)

// scopeSystemPrompt instructs the model to identify missing information
// before any drafting happens. The output contract is strict JSON so the
// parser can halt the pipeline on a clarification need.
const scopeSystemPrompt = `You are an estimator reviewing a site assessment for a contracting job.
Identify what is missing before a priced estimate can be produced.

Respond with ONLY a JSON object, no prose and no markdown fences:
{
  "required_measurements": ["<each measurement that is needed but not supplied>"],
  "questions": ["<each question that must be answered before estimating>"]
}

If the assessment contains everything needed, return both arrays empty.
Do not invent requirements for information the assessment already provides.`

// draftSystemPrompt instructs the model to emit priced line items as a bare
// JSON array conforming to the draft item shape.
const draftSystemPrompt = `You are an estimator producing priced line items from a site assessment.

Respond with ONLY a JSON array, no prose and no markdown fences. Each element:
{
  "description": "<what the work or material is>",
  "quantity": <number greater than zero>,
  "unit": "<unit of measure, e.g. each, sqft, hour>",
  "unit_cost": <cost per unit in dollars>,
  "labor_hours": <estimated labor hours for the line>,
  "parent_bucket": "<optional grouping, e.g. Roofing>",
  "total": <quantity * unit_cost, rounded to cents>
}

Use realistic regional pricing. Break compound work into separate lines.`

// BuildScopeMessages assembles the scope-phase conversation.
func BuildScopeMessages(assessment *models.Assessment) []models.Message {
	return []models.Message{
		models.SystemMessage(scopeSystemPrompt),
		models.UserMessage(assessment.Render()),
	}
}

// BuildDraftMessages assembles the draft-phase conversation: the assessment
// followed by any explicit messages and clarification answers.
func BuildDraftMessages(req *models.GenerationRequest) []models.Message {
	messages := make([]models.Message, 0, 2+len(req.Messages)+len(req.Clarifications))
	messages = append(messages, models.SystemMessage(draftSystemPrompt))
	messages = append(messages, models.UserMessage(req.Assessment.Render()))
	messages = append(messages, req.ExtraMessages()...)
	return messages
}
