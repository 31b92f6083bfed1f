package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Assessment is the free-form or structured description of work to be
// estimated. It is immutable once a job has been enqueued; clarification
// answers arrive as a new submission, never as a mutation.
type Assessment struct {
	OriginalText    string            `json:"original_text"`
	Measurements    map[string]string `json:"measurements,omitempty"`
	QuestionAnswers []string          `json:"question_answers,omitempty"`
}

// UnmarshalJSON accepts either a bare string ("replace the gutters") or the
// structured form. Callers submitting from simple clients tend to send the
// bare string.
func (a *Assessment) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, `"`) {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return fmt.Errorf("invalid assessment string: %w", err)
		}
		a.OriginalText = text
		return nil
	}

	type assessmentAlias Assessment
	var alias assessmentAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return fmt.Errorf("invalid assessment object: %w", err)
	}
	*a = Assessment(alias)
	return nil
}

// IsEmpty reports whether the assessment carries no usable text.
func (a *Assessment) IsEmpty() bool {
	return strings.TrimSpace(a.OriginalText) == "" && len(a.Measurements) == 0
}

// Render flattens the assessment into prompt text: the original description
// followed by any supplied measurements and prior answers.
func (a *Assessment) Render() string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(a.OriginalText))

	if len(a.Measurements) > 0 {
		b.WriteString("\n\nMeasurements provided:\n")
		for name, value := range a.Measurements {
			b.WriteString(fmt.Sprintf("- %s: %s\n", name, value))
		}
	}

	if len(a.QuestionAnswers) > 0 {
		b.WriteString("\nAnswers to prior questions:\n")
		for _, answer := range a.QuestionAnswers {
			b.WriteString("- " + answer + "\n")
		}
	}

	return b.String()
}
