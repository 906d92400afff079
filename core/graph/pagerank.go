package graph

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"
	"github.com/siherrmann/kgraph/helper"
)

// DirectedGraph is a simple weighted digraph, parallel edges are merged by summing weights.
type DirectedGraph struct {
	nodes []uuid.UUID
	index map[uuid.UUID]int
	out   []map[int]float64
}

// NewDirectedGraph creates an empty directed graph
func NewDirectedGraph() *DirectedGraph {
	return &DirectedGraph{index: map[uuid.UUID]int{}}
}

func (d *DirectedGraph) AddNode(id uuid.UUID) int {
	if i, ok := d.index[id]; ok {
		return i
	}
	i := len(d.nodes)
	d.index[id] = i
	d.nodes = append(d.nodes, id)
	d.out = append(d.out, map[int]float64{})
	return i
}

func (d *DirectedGraph) AddEdge(source, target uuid.UUID, weight float64) {
	s := d.AddNode(source)
	t := d.AddNode(target)
	d.out[s][t] += weight
}

func (d *DirectedGraph) NodeCount() int {
	return len(d.nodes)
}

func (d *DirectedGraph) EdgeCount() int {
	count := 0
	for _, targets := range d.out {
		count += len(targets)
	}
	return count
}

// Nodes returns the node ids in insertion order.
func (d *DirectedGraph) Nodes() []uuid.UUID {
	return d.nodes
}

// PageRankEngine computes PageRank over a directed graph.
type PageRankEngine interface {
	PageRank(ctx context.Context, g *DirectedGraph, damping float64) (map[uuid.UUID]float64, error)
}

// PowerIterationPageRank is weighted PageRank by power iteration.
// Dangling nodes spread their rank uniformly.
type PowerIterationPageRank struct {
	MaxIter   int
	Tolerance float64
}

// NewPowerIterationPageRank creates a PageRank engine, zero values fall back to 100 iterations and 1e-6.
func NewPowerIterationPageRank(maxIter int, tolerance float64) *PowerIterationPageRank {
	if maxIter <= 0 {
		maxIter = 100
	}
	if tolerance <= 0 {
		tolerance = 1e-6
	}
	return &PowerIterationPageRank{MaxIter: maxIter, Tolerance: tolerance}
}

// PageRank returns the rank of every node. It fails if the iteration does not
// converge to N*Tolerance within MaxIter rounds. An empty graph has an empty result.
func (p *PowerIterationPageRank) PageRank(ctx context.Context, g *DirectedGraph, damping float64) (map[uuid.UUID]float64, error) {
	n := g.NodeCount()
	result := make(map[uuid.UUID]float64, n)
	if n == 0 {
		return result, nil
	}

	outWeight := make([]float64, n)
	for i, targets := range g.out {
		for _, w := range targets {
			outWeight[i] += w
		}
	}

	x := make([]float64, n)
	for i := range x {
		x[i] = 1.0 / float64(n)
	}

	for iter := 0; iter < p.MaxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, helper.NewError("pagerank", err)
		}

		dangling := 0.0
		for i := range x {
			if outWeight[i] == 0 {
				dangling += x[i]
			}
		}

		next := make([]float64, n)
		base := (1.0-damping)/float64(n) + damping*dangling/float64(n)
		for i := range next {
			next[i] = base
		}
		for i, targets := range g.out {
			if outWeight[i] == 0 {
				continue
			}
			for j, w := range targets {
				next[j] += damping * x[i] * w / outWeight[i]
			}
		}

		diff := 0.0
		for i := range x {
			diff += math.Abs(next[i] - x[i])
		}
		x = next

		if diff < float64(n)*p.Tolerance {
			for i, id := range g.nodes {
				result[id] = x[i]
			}
			return result, nil
		}
	}

	return nil, fmt.Errorf("pagerank did not converge in %d iterations", p.MaxIter)
}

// UnavailablePageRank stands in when no PageRank backend is configured.
// It logs a warning and returns an empty result.
type UnavailablePageRank struct {
	logger *slog.Logger
}

func NewUnavailablePageRank(logger *slog.Logger) *UnavailablePageRank {
	if logger == nil {
		logger = slog.Default()
	}
	return &UnavailablePageRank{logger: logger}
}

func (u *UnavailablePageRank) PageRank(ctx context.Context, g *DirectedGraph, damping float64) (map[uuid.UUID]float64, error) {
	u.logger.Warn("PageRank backend unavailable, returning empty scores")
	return map[uuid.UUID]float64{}, nil
}

// MinMaxNormalize scales scores to [0, 1]. If all scores are equal every score becomes 0.5.
func MinMaxNormalize(scores map[uuid.UUID]float64) map[uuid.UUID]float64 {
	normalized := make(map[uuid.UUID]float64, len(scores))
	if len(scores) == 0 {
		return normalized
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range scores {
		lo = math.Min(lo, s)
		hi = math.Max(hi, s)
	}

	for id, s := range scores {
		if hi-lo == 0 {
			normalized[id] = 0.5
			continue
		}
		normalized[id] = (s - lo) / (hi - lo)
	}
	return normalized
}
