package graph

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/kgraph/helper"
	"github.com/siherrmann/kgraph/model"
)

// Service ties the builder, the cache and the algorithm backends together.
// It owns one cache, every traversal and centrality call reuses it.
type Service struct {
	store       Store
	builder     *Builder
	cache       *Cache
	pagerank    PageRankEngine
	communities CommunityDetector
	config      model.EngineConfig
	logger      *slog.Logger
}

// NewService creates a graph service. Nil backends default to power iteration PageRank and Louvain.
func NewService(store Store, pagerank PageRankEngine, communities CommunityDetector, config model.EngineConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if pagerank == nil {
		pagerank = NewPowerIterationPageRank(config.PageRankMaxIter, config.PageRankTolerance)
	}
	if communities == nil {
		communities = NewLouvainDetector()
	}

	return &Service{
		store:       store,
		builder:     NewBuilder(store, logger),
		cache:       NewCache(),
		pagerank:    pagerank,
		communities: communities,
		config:      config,
		logger:      logger,
	}
}

// BuildMultilayerGraph returns the cached graph, rebuilding it if refresh is set or nothing is cached.
func (s *Service) BuildMultilayerGraph(ctx context.Context, refresh bool) (*MultiGraph, error) {
	return s.cache.GetOrBuild(ctx, refresh, s.builder.Build)
}

func (s *Service) CacheTimestamp() *time.Time {
	return s.cache.Timestamp()
}

func (s *Service) ClearCache() {
	s.cache.Invalidate()
	s.logger.Info("Cleared graph cache")
}

// NeighborsMultihop runs MultiHopNeighbors on the cached graph.
func (s *Service) NeighborsMultihop(ctx context.Context, id uuid.UUID, hops int, filter TraversalFilter, limit int) ([]model.NeighborPath, error) {
	g, err := s.BuildMultilayerGraph(ctx, false)
	if err != nil {
		return nil, err
	}
	return MultiHopNeighbors(g, id, hops, filter, limit, s.config.DefaultQuality), nil
}

func (s *Service) DegreeCentrality(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.DegreeCentrality, error) {
	g, err := s.BuildMultilayerGraph(ctx, false)
	if err != nil {
		return nil, err
	}
	return DegreeCentrality(g, ids), nil
}

func (s *Service) BetweennessCentrality(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]float64, error) {
	g, err := s.BuildMultilayerGraph(ctx, false)
	if err != nil {
		return nil, err
	}
	return BetweennessCentrality(g, ids), nil
}

// PageRank ranks the requested ids over the directed cached graph.
// Damping outside (0, 1) falls back to the configured value. A failing
// computation yields 0 for every id.
func (s *Service) PageRank(ctx context.Context, ids []uuid.UUID, damping float64) (map[uuid.UUID]float64, error) {
	if damping <= 0 || damping >= 1 {
		s.logger.Warn("Damping factor out of range, using default", slog.Float64("damping", damping), slog.Float64("default", s.config.Damping))
		damping = s.config.Damping
	}

	g, err := s.BuildMultilayerGraph(ctx, false)
	if err != nil {
		return nil, err
	}

	result := make(map[uuid.UUID]float64, len(ids))
	for _, id := range ids {
		result[id] = 0.0
	}

	scores, err := s.pagerank.PageRank(ctx, g.Directed(), damping)
	if err != nil {
		s.logger.Warn("PageRank failed", slog.String("error", err.Error()))
		return result, nil
	}

	for _, id := range ids {
		result[id] = scores[id]
	}
	return result, nil
}

// DetectCommunities partitions the requested resources on a fresh subgraph scoped to them.
// Unknown ids are ignored. No valid id gives an empty result, one valid id a single community.
func (s *Service) DetectCommunities(ctx context.Context, ids []uuid.UUID, resolution float64) (*model.CommunityResult, error) {
	if resolution <= 0 {
		resolution = s.config.Resolution
	}

	result := model.NewCommunityResult()
	if len(ids) == 0 {
		return result, nil
	}

	resources, err := s.store.SelectResourcesByIDs(ctx, ids)
	if err != nil {
		return nil, helper.NewError("select resources", err)
	}

	valid := make([]uuid.UUID, 0, len(resources))
	seen := map[uuid.UUID]bool{}
	for _, r := range resources {
		if !seen[r.ID] {
			seen[r.ID] = true
			valid = append(valid, r.ID)
		}
	}

	if len(valid) < 2 {
		for _, id := range valid {
			result.Assignments[id] = 0
			result.Sizes[0]++
		}
		result.CommunityCount = len(result.Sizes)
		return result, nil
	}

	g, err := s.builder.BuildScoped(ctx, valid)
	if err != nil {
		return nil, err
	}

	assignments, modularity, err := s.communities.DetectCommunities(ctx, g, resolution)
	if err != nil {
		return nil, helper.NewError("detect communities", err)
	}

	result.Assignments = assignments
	result.Modularity = modularity
	for _, c := range assignments {
		result.Sizes[c]++
	}
	result.CommunityCount = len(result.Sizes)

	s.logger.Info("Detected communities", slog.Int("nodes", g.NodeCount()), slog.Int("communities", result.CommunityCount), slog.Float64("modularity", modularity))

	return result, nil
}
