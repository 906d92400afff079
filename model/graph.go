package model

import (
	"time"

	"github.com/google/uuid"
)

// Edge type tags used by the multi-layer graph.
const (
	EdgeTagCitation     = "citation"
	EdgeTagCoauthorship = "coauthorship"
	EdgeTagSubject      = "subject"
)

// Connection types attached to hybrid neighbor edges.
const (
	ConnectionClassification = "classification"
	ConnectionTopical        = "topical"
	ConnectionSemantic       = "semantic"
)

// Node types of the graph views.
const (
	NodeTypeSource   = "source"
	NodeTypeNeighbor = "neighbor"
)

// GraphEdge is a generic weighted edge between two resources.
type GraphEdge struct {
	ID        uuid.UUID `json:"id"`
	SourceID  uuid.UUID `json:"source_id"`
	TargetID  uuid.UUID `json:"target_id"`
	EdgeType  string    `json:"edge_type"`
	Weight    float64   `json:"weight"`
	Metadata  Metadata  `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// KnowledgeGraph is a transient graph view returned to callers.
type KnowledgeGraph struct {
	Nodes []GraphNode     `json:"nodes"`
	Edges []GraphEdgeView `json:"edges"`
}

// NewKnowledgeGraph returns a graph with non-nil empty node and edge lists.
func NewKnowledgeGraph() *KnowledgeGraph {
	return &KnowledgeGraph{
		Nodes: []GraphNode{},
		Edges: []GraphEdgeView{},
	}
}

// IsEmpty reports whether the graph has no nodes, which callers treat as not found.
func (g *KnowledgeGraph) IsEmpty() bool {
	return len(g.Nodes) == 0
}

type GraphNode struct {
	ID                 uuid.UUID `json:"id"`
	Title              string    `json:"title"`
	Type               string    `json:"type"`
	ClassificationCode *string   `json:"classification_code,omitempty"`
}

type GraphEdgeView struct {
	Source  uuid.UUID   `json:"source"`
	Target  uuid.UUID   `json:"target"`
	Weight  float64     `json:"weight"`
	Details EdgeDetails `json:"details"`
}

type EdgeDetails struct {
	ConnectionType   string   `json:"connection_type"`
	VectorSimilarity *float64 `json:"vector_similarity,omitempty"`
	SharedSubjects   []string `json:"shared_subjects"`
}

// NeighborPath is one result of a multi-hop traversal.
type NeighborPath struct {
	NeighborID   uuid.UUID   `json:"neighbor_id"`
	Intermediate *uuid.UUID  `json:"intermediate,omitempty"`
	Path         []uuid.UUID `json:"path"`
	EdgeTypes    []string    `json:"edge_types"`
	TotalWeight  float64     `json:"total_weight"`
	Score        float64     `json:"score"`
}

type DegreeCentrality struct {
	InDegree  int `json:"in_degree"`
	OutDegree int `json:"out_degree"`
	Total     int `json:"total"`
}

type CommunityResult struct {
	Assignments    map[uuid.UUID]int `json:"assignments"`
	Modularity     float64           `json:"modularity"`
	CommunityCount int               `json:"community_count"`
	Sizes          map[int]int       `json:"sizes"`
}

// NewCommunityResult returns an empty result with initialized maps.
func NewCommunityResult() *CommunityResult {
	return &CommunityResult{
		Assignments: map[uuid.UUID]int{},
		Sizes:       map[int]int{},
	}
}
