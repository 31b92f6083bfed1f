package scope

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/quotienthq/quotient/internal/models"
)

// ParseError reports model output that did not conform to the expected
// schema after every recovery layer. Raw preserves the original text so a
// caller can surface it for manual correction.
type ParseError struct {
	Raw    string
	Reason string
}

func (e *ParseError) Error() string {
	return "failed to parse model output: " + e.Reason
}

var validate = validator.New()

// fencePattern strips a whole-response markdown code fence.
var fencePattern = regexp.MustCompile(`(?s)^\s*` + "```" + `(?:json|JSON)?\s*\n?(.*?)\n?\s*` + "```" + `\s*$`)

// CleanMarkdownFences removes markdown code fences the model wraps around
// JSON despite being told not to.
func CleanMarkdownFences(s string) string {
	s = strings.TrimSpace(s)

	if matches := fencePattern.FindStringSubmatch(s); len(matches) > 1 {
		s = matches[1]
	}

	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	return strings.TrimSpace(s)
}

// ScopeResult is the scope phase output: what information is still missing.
type ScopeResult struct {
	RequiredMeasurements []string `json:"required_measurements"`
	Questions            []string `json:"questions"`
}

// NeedsClarification reports whether the pipeline must halt for user input.
func (r *ScopeResult) NeedsClarification() bool {
	return len(r.RequiredMeasurements) > 0 || len(r.Questions) > 0
}

// ParseScopeResponse parses the scope-phase model output. Parsing is
// two-layer: strict parse of the cleaned text first, then extraction of the
// first brace-delimited block from the raw text.
func ParseScopeResponse(raw string) (*ScopeResult, error) {
	cleaned := CleanMarkdownFences(raw)

	var result ScopeResult
	if err := json.Unmarshal([]byte(cleaned), &result); err == nil {
		return &result, nil
	}

	block := extractBracketBlock(raw, '{', '}')
	if block != "" {
		if err := json.Unmarshal([]byte(block), &result); err == nil {
			return &result, nil
		}
	}

	return nil, &ParseError{Raw: raw, Reason: "scope response is not a JSON object"}
}

// flexNumber tolerates models emitting numbers as strings ("12.5") or with
// currency noise ("$12.50").
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*n = 0
		return nil
	}

	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$"))
		s = strings.ReplaceAll(s, ",", "")
		if s == "" {
			*n = 0
			return nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("not a number: %q", s)
		}
		*n = flexNumber(parsed)
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = flexNumber(f)
	return nil
}

// rawDraftItem is the lenient wire shape the model emits.
type rawDraftItem struct {
	Description  string     `json:"description"`
	Quantity     flexNumber `json:"quantity"`
	Unit         string     `json:"unit"`
	UnitCost     flexNumber `json:"unit_cost"`
	LaborHours   flexNumber `json:"labor_hours"`
	ParentBucket string     `json:"parent_bucket"`
	Total        flexNumber `json:"total"`
}

// ParseDraftItems parses the draft-phase model output into validated line
// items. Coercion is favored over rejection: a missing unit defaults to
// "each" and a missing or miscalculated total is recomputed. Items that
// remain unusable after coercion are dropped; if nothing usable remains the
// whole phase fails with a ParseError carrying the raw text.
func ParseDraftItems(raw string) ([]models.DraftLineItem, error) {
	cleaned := CleanMarkdownFences(raw)

	var rawItems []rawDraftItem
	if err := json.Unmarshal([]byte(cleaned), &rawItems); err != nil {
		block := extractBracketBlock(raw, '[', ']')
		if block == "" {
			return nil, &ParseError{Raw: raw, Reason: "draft response is not a JSON array"}
		}
		if err := json.Unmarshal([]byte(block), &rawItems); err != nil {
			return nil, &ParseError{Raw: raw, Reason: "extracted block is not a JSON array"}
		}
	}

	if len(rawItems) == 0 {
		return nil, &ParseError{Raw: raw, Reason: "draft response contained no items"}
	}

	items := make([]models.DraftLineItem, 0, len(rawItems))
	for _, r := range rawItems {
		item := coerceItem(r)
		if err := validate.Struct(&item); err != nil {
			continue
		}
		items = append(items, item)
	}

	if len(items) == 0 {
		return nil, &ParseError{Raw: raw, Reason: "no draft item passed schema validation"}
	}
	return items, nil
}

// coerceItem applies the safe defaults before validation.
func coerceItem(r rawDraftItem) models.DraftLineItem {
	item := models.DraftLineItem{
		Description:  strings.TrimSpace(r.Description),
		Quantity:     float64(r.Quantity),
		Unit:         strings.TrimSpace(r.Unit),
		UnitCost:     float64(r.UnitCost),
		LaborHours:   float64(r.LaborHours),
		ParentBucket: strings.TrimSpace(r.ParentBucket),
		Total:        float64(r.Total),
	}

	if item.Unit == "" {
		item.Unit = "each"
	}
	if expected := item.ExpectedTotal(); item.Total != expected {
		item.Total = expected
	}
	return item
}

// extractBracketBlock returns the first balanced bracket-delimited block in
// the text, or "" when none exists. String contents are respected so
// brackets inside item descriptions do not unbalance the scan.
func extractBracketBlock(s string, open, close byte) string {
	start := strings.IndexByte(s, open)
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
