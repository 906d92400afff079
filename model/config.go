package model

import (
	"time"

	"github.com/siherrmann/kgraph/helper"
)

// EngineConfig holds the numeric defaults of all engines.
// It is passed into every constructor, no engine reads the environment on its own.
type EngineConfig struct {
	// Hybrid scoring weights
	VectorWeight         float64 `json:"vector_weight"`
	TagWeight            float64 `json:"tag_weight"`
	ClassificationWeight float64 `json:"classification_weight"`

	// Neighbor ranking
	DefaultNeighborLimit int `json:"default_neighbor_limit"`
	MaxNeighborLimit     int `json:"max_neighbor_limit"`
	OverfetchMultiplier  int `json:"overfetch_multiplier"`

	// Global overview
	DefaultOverviewLimit    int     `json:"default_overview_limit"`
	OverviewVectorThreshold float64 `json:"overview_vector_threshold"`
	MinOverviewWeight       float64 `json:"min_overview_weight"`

	// Traversal
	DefaultQuality float64 `json:"default_quality"`

	// Citations
	CitationBatchSize     int `json:"citation_batch_size"`
	MaxCitationsPerSource int `json:"max_citations_per_source"`
	CitationGraphMaxNodes int `json:"citation_graph_max_nodes"`
	CitationGraphMaxDepth int `json:"citation_graph_max_depth"`
	ExtractionParallelism int `json:"extraction_parallelism"`

	// PageRank
	Damping           float64 `json:"damping"`
	PageRankMaxIter   int     `json:"pagerank_max_iter"`
	PageRankTolerance float64 `json:"pagerank_tolerance"`

	// Community detection
	Resolution float64 `json:"resolution"`

	// Discovery
	MaxDiscoveryLimit       int           `json:"max_discovery_limit"`
	EvidencePerRelation     int           `json:"evidence_per_relation"`
	OpenDiscoveryScan       int           `json:"open_discovery_scan"`
	OpenDiscoveryCandidates int           `json:"open_discovery_candidates"`
	PlausibilityThreshold   float64       `json:"plausibility_threshold"`
	DiscoverySoftTarget     time.Duration `json:"discovery_soft_target"`
}

// DefaultEngineConfig returns the default engine configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		VectorWeight:            0.6,
		TagWeight:               0.3,
		ClassificationWeight:    0.1,
		DefaultNeighborLimit:    10,
		MaxNeighborLimit:        20,
		OverfetchMultiplier:     3,
		DefaultOverviewLimit:    50,
		OverviewVectorThreshold: 0.85,
		MinOverviewWeight:       0.1,
		DefaultQuality:          0.5,
		CitationBatchSize:       100,
		MaxCitationsPerSource:   50,
		CitationGraphMaxNodes:   100,
		CitationGraphMaxDepth:   2,
		ExtractionParallelism:   4,
		Damping:                 0.85,
		PageRankMaxIter:         100,
		PageRankTolerance:       1e-6,
		Resolution:              1.0,
		MaxDiscoveryLimit:       100,
		EvidencePerRelation:     3,
		OpenDiscoveryScan:       1000,
		OpenDiscoveryCandidates: 50,
		PlausibilityThreshold:   0.0,
		DiscoverySoftTarget:     5 * time.Second,
	}
}

// EngineConfigFromEnv returns the default configuration overridden by KGRAPH_* variables.
func EngineConfigFromEnv() EngineConfig {
	c := DefaultEngineConfig()

	c.VectorWeight = helper.GetEnvFloat("KGRAPH_VECTOR_WEIGHT", c.VectorWeight)
	c.TagWeight = helper.GetEnvFloat("KGRAPH_TAG_WEIGHT", c.TagWeight)
	c.ClassificationWeight = helper.GetEnvFloat("KGRAPH_CLASSIFICATION_WEIGHT", c.ClassificationWeight)
	c.DefaultNeighborLimit = helper.GetEnvInt("KGRAPH_NEIGHBOR_LIMIT", c.DefaultNeighborLimit)
	c.OverfetchMultiplier = helper.GetEnvInt("KGRAPH_OVERFETCH_MULTIPLIER", c.OverfetchMultiplier)
	c.DefaultOverviewLimit = helper.GetEnvInt("KGRAPH_OVERVIEW_LIMIT", c.DefaultOverviewLimit)
	c.OverviewVectorThreshold = helper.GetEnvFloat("KGRAPH_OVERVIEW_THRESHOLD", c.OverviewVectorThreshold)
	c.DefaultQuality = helper.GetEnvFloat("KGRAPH_DEFAULT_QUALITY", c.DefaultQuality)
	c.CitationBatchSize = helper.GetEnvInt("KGRAPH_CITATION_BATCH_SIZE", c.CitationBatchSize)
	c.ExtractionParallelism = helper.GetEnvInt("KGRAPH_EXTRACTION_PARALLELISM", c.ExtractionParallelism)
	c.Damping = helper.GetEnvFloat("KGRAPH_DAMPING", c.Damping)
	c.Resolution = helper.GetEnvFloat("KGRAPH_RESOLUTION", c.Resolution)
	c.PlausibilityThreshold = helper.GetEnvFloat("KGRAPH_PLAUSIBILITY_THRESHOLD", c.PlausibilityThreshold)
	c.DiscoverySoftTarget = helper.GetEnvDuration("KGRAPH_DISCOVERY_SOFT_TARGET", c.DiscoverySoftTarget)

	return c
}

// ClampNeighborLimit applies the default for non-positive limits and the hard cap.
func (c EngineConfig) ClampNeighborLimit(limit int) int {
	if limit <= 0 {
		limit = c.DefaultNeighborLimit
	}
	if c.MaxNeighborLimit > 0 && limit > c.MaxNeighborLimit {
		limit = c.MaxNeighborLimit
	}
	return limit
}
