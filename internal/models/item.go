package models

import "math"

// DraftLineItem is a line item proposed by the model before catalog
// reconciliation. Total must equal round(Quantity*UnitCost, 2); the parser
// recomputes it when the model omits or miscalculates it.
type DraftLineItem struct {
	Description  string  `json:"description" validate:"required"`
	Quantity     float64 `json:"quantity" validate:"gt=0"`
	Unit         string  `json:"unit"`
	UnitCost     float64 `json:"unit_cost" validate:"gte=0"`
	LaborHours   float64 `json:"labor_hours" validate:"gte=0"`
	ParentBucket string  `json:"parent_bucket,omitempty"`
	Total        float64 `json:"total" validate:"gt=0"`
}

// ExpectedTotal returns Quantity*UnitCost rounded to cents.
func (i *DraftLineItem) ExpectedTotal() float64 {
	return Round2(i.Quantity * i.UnitCost)
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// MatchKind classifies the outcome of reconciling a draft item against the
// catalog.
type MatchKind string

const (
	MatchKindMatch MatchKind = "match" // reuse the existing product verbatim
	MatchKindNear  MatchKind = "near"  // candidates exist but need review
	MatchKindNew   MatchKind = "new"   // candidate for catalog creation
	MatchKindError MatchKind = "error" // matching failed for this item only
)

// MatchCandidate is one ranked catalog candidate returned for review.
type MatchCandidate struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// CatalogMatchResult is attached to a DraftLineItem after the matching phase.
// Score is nil when no similarity search ran (embeddings disabled or failed).
type CatalogMatchResult struct {
	Kind        MatchKind        `json:"kind"`
	ProductID   string           `json:"product_id,omitempty"`
	MatchedName string           `json:"matched_name,omitempty"`
	Score       *float64         `json:"score"`
	Matches     []MatchCandidate `json:"matches,omitempty"`
	Error       string           `json:"error,omitempty"`
}

// AnnotatedItem is the job's final per-item output: the draft item plus its
// catalog classification.
type AnnotatedItem struct {
	DraftLineItem
	CatalogStatus MatchKind           `json:"catalog_status"`
	Match         *CatalogMatchResult `json:"match,omitempty"`
}
