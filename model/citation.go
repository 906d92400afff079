package model

import (
	"time"

	"github.com/google/uuid"
)

type CitationType string

const (
	CitationTypeDataset   CitationType = "dataset"
	CitationTypeCode      CitationType = "code"
	CitationTypeReference CitationType = "reference"
	CitationTypeGeneral   CitationType = "general"
)

// Citation is a directed link from a resource to a target URL.
// TargetResourceID stays nil until the URL is resolved to a resource.
type Citation struct {
	ID               uuid.UUID    `json:"id"`
	SourceResourceID uuid.UUID    `json:"source_resource_id"`
	TargetURL        string       `json:"target_url"`
	TargetResourceID *uuid.UUID   `json:"target_resource_id,omitempty"`
	CitationType     CitationType `json:"citation_type"`
	ContextSnippet   *string      `json:"context_snippet,omitempty"`
	Position         int          `json:"position"`
	ImportanceScore  *float64     `json:"importance_score,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
}

// IsResolved reports whether the citation points to a known resource.
func (c *Citation) IsResolved() bool {
	return c.TargetResourceID != nil
}

// CitationCandidate is an extracted citation before it is persisted.
type CitationCandidate struct {
	TargetURL      string       `json:"target_url"`
	CitationType   CitationType `json:"citation_type"`
	ContextSnippet *string      `json:"context_snippet,omitempty"`
	Position       int          `json:"position"`
}

// CitationResolution pairs a citation with the resource its URL resolved to.
type CitationResolution struct {
	CitationID       uuid.UUID `json:"citation_id"`
	TargetResourceID uuid.UUID `json:"target_resource_id"`
}

// CitationsExtractedEvent is published after citations were committed.
type CitationsExtractedEvent struct {
	ResourceID    uuid.UUID `json:"resource_id"`
	Citations     []string  `json:"citations"`
	CitationCount int       `json:"citation_count"`
}
