package graph

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/siherrmann/kgraph/helper"
	"github.com/siherrmann/kgraph/model"
)

// Store is the read access the graph builder and the community detection need.
type Store interface {
	SelectAllResources(ctx context.Context, limit int) ([]*model.Resource, error)
	SelectResourcesByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Resource, error)
	SelectResolvedCitations(ctx context.Context, ids []uuid.UUID) ([]*model.Citation, error)
	SelectAllEdges(ctx context.Context) ([]*model.GraphEdge, error)
	SelectEdgesAmong(ctx context.Context, ids []uuid.UUID) ([]*model.GraphEdge, error)
}

// Builder assembles the multi-layer graph from the store.
type Builder struct {
	store  Store
	logger *slog.Logger
}

// NewBuilder creates a new graph builder
func NewBuilder(store Store, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{store: store, logger: logger}
}

// Build creates a fresh graph with one node per resource, a citation edge of
// weight 1 per resolved citation and one edge per stored graph edge.
func (b *Builder) Build(ctx context.Context) (*MultiGraph, error) {
	resources, err := b.store.SelectAllResources(ctx, 0)
	if err != nil {
		return nil, helper.NewError("select resources", err)
	}

	citations, err := b.store.SelectResolvedCitations(ctx, nil)
	if err != nil {
		return nil, helper.NewError("select citations", err)
	}

	edges, err := b.store.SelectAllEdges(ctx)
	if err != nil {
		return nil, helper.NewError("select edges", err)
	}

	g := NewMultiGraph()
	for _, r := range resources {
		g.AddNode(Node{ID: r.ID, Title: r.Title, Type: r.Type, Quality: r.Quality})
	}

	for _, c := range citations {
		if c.TargetResourceID == nil {
			continue
		}
		g.AddEdge(Edge{Source: c.SourceResourceID, Target: *c.TargetResourceID, Type: model.EdgeTagCitation, Weight: 1.0})
	}

	for _, e := range edges {
		g.AddEdge(Edge{Source: e.SourceID, Target: e.TargetID, Type: e.EdgeType, Weight: e.Weight})
	}

	b.logger.Info("Built multi-layer graph", slog.Int("nodes", g.NodeCount()), slog.Int("edges", g.EdgeCount()))

	return g, nil
}

// BuildScoped creates a weighted simple graph over exactly the given resources.
// Parallel edges are summed and requested resources without edges stay as isolated nodes.
func (b *Builder) BuildScoped(ctx context.Context, ids []uuid.UUID) (*WeightedGraph, error) {
	in := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		in[id] = true
	}

	citations, err := b.store.SelectResolvedCitations(ctx, ids)
	if err != nil {
		return nil, helper.NewError("select citations", err)
	}

	edges, err := b.store.SelectEdgesAmong(ctx, ids)
	if err != nil {
		return nil, helper.NewError("select edges", err)
	}

	g := NewWeightedGraph()
	for _, id := range ids {
		g.AddNode(id)
	}

	for _, c := range citations {
		if c.TargetResourceID == nil || !in[c.SourceResourceID] || !in[*c.TargetResourceID] {
			continue
		}
		g.AddEdge(c.SourceResourceID, *c.TargetResourceID, 1.0)
	}

	for _, e := range edges {
		if !in[e.SourceID] || !in[e.TargetID] {
			continue
		}
		g.AddEdge(e.SourceID, e.TargetID, e.Weight)
	}

	return g, nil
}
