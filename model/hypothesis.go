package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	EvidenceAB = "A-B"
	EvidenceBC = "B-C"
)

// DiscoveryHypothesis is an A-B-C hypothesis where B bridges the concepts A and C.
type DiscoveryHypothesis struct {
	ID              uuid.UUID      `json:"id"`
	ConceptA        string         `json:"concept_a"`
	ConceptB        string         `json:"concept_b"`
	ConceptC        string         `json:"concept_c"`
	SupportStrength float64        `json:"support_strength"`
	Novelty         float64        `json:"novelty"`
	Confidence      float64        `json:"confidence"`
	Plausibility    float64        `json:"plausibility"`
	PathStrength    float64        `json:"path_strength"`
	CommonNeighbors int            `json:"common_neighbors"`
	Evidence        []EvidenceItem `json:"evidence"`
	CreatedAt       time.Time      `json:"created_at"`
}

type EvidenceItem struct {
	Type       string    `json:"type"`
	ResourceID uuid.UUID `json:"resource_id"`
	Title      string    `json:"title"`
	Year       int       `json:"year"`
}

// TimeSlice restricts concept search to resources created within [Start, End].
type TimeSlice struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t lies within the inclusive window.
func (s *TimeSlice) Contains(t time.Time) bool {
	if s == nil {
		return true
	}
	return !t.Before(s.Start) && !t.After(s.End)
}

type DiscoveryResult struct {
	Hypotheses    []*DiscoveryHypothesis `json:"hypotheses"`
	Count         int                    `json:"count"`
	ExecutionTime time.Duration          `json:"execution_time"`
}
