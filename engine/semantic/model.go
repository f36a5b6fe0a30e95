// Package semantic provides the optional recall stage: variant descriptions
// embedded into Qdrant, consulted when lexical blocking comes back empty.
package semantic

// SearchHit is a single vector search result.
type SearchHit struct {
	VariantKey string  `json:"variant_key"`
	Score      float32 `json:"score"`
	Brand      string  `json:"brand"`
	Label      string  `json:"label"`
}

// VariantPoint is one embedded variant ready for upsert.
type VariantPoint struct {
	Key       string
	Embedding []float32
	Payload   map[string]any // brand, model, label
}
