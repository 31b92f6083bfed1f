package models

import "time"

// Product is a priced catalog entry that draft items are reconciled against.
// Embedding is owned by the product and recomputed whenever the name or
// description changes; it is never partially updated.
type Product struct {
	ID             string    `json:"id" badgerhold:"key"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	Unit           string    `json:"unit"`
	UnitCost       float64   `json:"unit_cost"`
	LaborHours     float64   `json:"labor_hours,omitempty"`
	Embedding      []float32 `json:"embedding,omitempty"`
	EmbeddingModel string    `json:"embedding_model,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// EmbeddingText is the text a product's embedding is computed from.
func (p *Product) EmbeddingText() string {
	if p.Description == "" {
		return p.Name
	}
	return p.Name + "\n" + p.Description
}

// ProductMatch pairs a product with its similarity score against a query
// vector, expressed on a 0-1 scale where 1 means identical.
type ProductMatch struct {
	Product *Product
	Score   float64
}
