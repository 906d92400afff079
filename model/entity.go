package model

import "strings"

// Extraction methods that can produce an entity.
const (
	ExtractionLLM    = "llm"
	ExtractionNER    = "ner"
	ExtractionHybrid = "hybrid"
)

// Entity is a named entity found in resource text (person, organization, concept, ...).
type Entity struct {
	Name       string   `json:"name"`
	Type       string   `json:"entity_type"`
	Confidence float64  `json:"confidence"`
	Source     string   `json:"source"`
	Metadata   Metadata `json:"metadata,omitempty"`
}

// Key identifies an entity independent of casing and of the extractor that found it.
func (e *Entity) Key() string {
	return strings.ToLower(strings.TrimSpace(e.Name)) + "|" + strings.ToUpper(strings.TrimSpace(e.Type))
}

// Relationship is a typed link between two extracted entities.
type Relationship struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Type   string  `json:"relation_type"`
	Weight float64 `json:"weight"`
}

// Key identifies a relationship by its lower-cased endpoints and type.
func (r *Relationship) Key() string {
	return strings.ToLower(r.Source) + "|" + strings.ToLower(r.Target) + "|" + strings.ToLower(r.Type)
}

// ExtractionResult is the output of an entity extractor.
type ExtractionResult struct {
	Entities      []*Entity       `json:"entities"`
	Relationships []*Relationship `json:"relationships"`
	Method        string          `json:"method"`
}
