package graph

import (
	"context"
	"log/slog"
	"sort"

	"github.com/google/uuid"
)

// WeightedGraph is an undirected simple graph, parallel edges are merged by summing weights.
type WeightedGraph struct {
	nodes []uuid.UUID
	index map[uuid.UUID]int
	adj   []map[int]float64
	self  []float64
}

// NewWeightedGraph creates an empty weighted graph
func NewWeightedGraph() *WeightedGraph {
	return &WeightedGraph{index: map[uuid.UUID]int{}}
}

func (g *WeightedGraph) AddNode(id uuid.UUID) int {
	if i, ok := g.index[id]; ok {
		return i
	}
	i := len(g.nodes)
	g.index[id] = i
	g.nodes = append(g.nodes, id)
	g.adj = append(g.adj, map[int]float64{})
	g.self = append(g.self, 0)
	return i
}

func (g *WeightedGraph) AddEdge(a, b uuid.UUID, weight float64) {
	i := g.AddNode(a)
	j := g.AddNode(b)
	if i == j {
		g.self[i] += weight
		return
	}
	g.adj[i][j] += weight
	g.adj[j][i] += weight
}

func (g *WeightedGraph) NodeCount() int {
	return len(g.nodes)
}

// Weight returns the merged weight between a and b.
func (g *WeightedGraph) Weight(a, b uuid.UUID) float64 {
	i, ok := g.index[a]
	if !ok {
		return 0
	}
	j, ok := g.index[b]
	if !ok {
		return 0
	}
	if i == j {
		return g.self[i]
	}
	return g.adj[i][j]
}

// CommunityDetector partitions a weighted graph into communities.
// Community ids are 0..k-1 in order of the first node of each community.
type CommunityDetector interface {
	DetectCommunities(ctx context.Context, g *WeightedGraph, resolution float64) (map[uuid.UUID]int, float64, error)
}

// LouvainDetector is multi-level Louvain modularity optimization.
// Nodes are visited in insertion order so results are reproducible.
type LouvainDetector struct {
	MaxLevels int
}

func NewLouvainDetector() *LouvainDetector {
	return &LouvainDetector{MaxLevels: 32}
}

// level is one aggregation level of the Louvain algorithm.
type level struct {
	adj    []map[int]float64
	self   []float64
	degree []float64
}

func newLevel(adj []map[int]float64, self []float64) *level {
	l := &level{adj: adj, self: self, degree: make([]float64, len(adj))}
	for i := range adj {
		for _, w := range adj[i] {
			l.degree[i] += w
		}
		l.degree[i] += 2 * self[i]
	}
	return l
}

// DetectCommunities returns the community of every node and the modularity of the partition.
func (d *LouvainDetector) DetectCommunities(ctx context.Context, g *WeightedGraph, resolution float64) (map[uuid.UUID]int, float64, error) {
	n := g.NodeCount()
	assignments := make(map[uuid.UUID]int, n)
	if n == 0 {
		return assignments, 0, nil
	}

	adj := make([]map[int]float64, n)
	for i := range g.adj {
		adj[i] = make(map[int]float64, len(g.adj[i]))
		for j, w := range g.adj[i] {
			adj[i][j] = w
		}
	}
	self := append([]float64(nil), g.self...)

	// membership maps original nodes to their current super node.
	membership := make([]int, n)
	for i := range membership {
		membership[i] = i
	}

	l := newLevel(adj, self)
	for lvl := 0; lvl < d.MaxLevels; lvl++ {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}

		community, moved := l.moveNodes(resolution)
		if !moved {
			break
		}

		relabeled, count := relabel(community)
		for i := range membership {
			membership[i] = relabeled[membership[i]]
		}
		l = l.aggregate(relabeled, count)
	}

	final, _ := relabel(membership)
	for i, id := range g.nodes {
		assignments[id] = final[i]
	}

	return assignments, Modularity(g, assignments, resolution), nil
}

// moveNodes runs the local moving phase until no node changes its community.
func (l *level) moveNodes(resolution float64) ([]int, bool) {
	n := len(l.adj)
	community := make([]int, n)
	total := make([]float64, n)
	m2 := 0.0
	for i := range community {
		community[i] = i
		total[i] = l.degree[i]
		m2 += l.degree[i]
	}
	if m2 == 0 {
		return community, false
	}

	neighbors := make([][]int, n)
	for i := range l.adj {
		neighbors[i] = make([]int, 0, len(l.adj[i]))
		for j := range l.adj[i] {
			neighbors[i] = append(neighbors[i], j)
		}
		sort.Ints(neighbors[i])
	}

	movedAny := false
	for {
		moved := false
		for i := 0; i < n; i++ {
			current := community[i]
			ki := l.degree[i]

			links := map[int]float64{}
			candidates := []int{}
			for _, j := range neighbors[i] {
				c := community[j]
				if _, ok := links[c]; !ok {
					candidates = append(candidates, c)
				}
				links[c] += l.adj[i][j]
			}

			total[current] -= ki
			best := current
			bestGain := links[current] - resolution*total[current]*ki/m2
			for _, c := range candidates {
				gain := links[c] - resolution*total[c]*ki/m2
				if gain > bestGain+1e-12 {
					best = c
					bestGain = gain
				}
			}
			total[best] += ki

			if best != current {
				community[i] = best
				moved = true
				movedAny = true
			}
		}
		if !moved {
			break
		}
	}

	return community, movedAny
}

// aggregate collapses every community into one super node.
func (l *level) aggregate(community []int, count int) *level {
	adj := make([]map[int]float64, count)
	for i := range adj {
		adj[i] = map[int]float64{}
	}
	self := make([]float64, count)

	for i := range l.adj {
		ci := community[i]
		self[ci] += l.self[i]
		for j, w := range l.adj[i] {
			cj := community[j]
			if ci == cj {
				// Both directions are visited, each contributes half.
				self[ci] += w / 2
				continue
			}
			adj[ci][cj] += w
		}
	}

	return newLevel(adj, self)
}

// relabel renumbers communities 0..k-1 in order of first appearance.
func relabel(community []int) ([]int, int) {
	ids := map[int]int{}
	out := make([]int, len(community))
	for i, c := range community {
		id, ok := ids[c]
		if !ok {
			id = len(ids)
			ids[c] = id
		}
		out[i] = id
	}
	return out, len(ids)
}

// Modularity returns the modularity of a partition of g at the given resolution.
// A graph without edges has modularity 0.
func Modularity(g *WeightedGraph, assignments map[uuid.UUID]int, resolution float64) float64 {
	internal := map[int]float64{}
	degree := map[int]float64{}
	m := 0.0

	for i := range g.nodes {
		ci := assignments[g.nodes[i]]
		internal[ci] += g.self[i]
		degree[ci] += 2 * g.self[i]
		m += g.self[i]
		for j, w := range g.adj[i] {
			degree[ci] += w
			if j > i {
				m += w
				if assignments[g.nodes[j]] == ci {
					internal[ci] += w
				}
			}
		}
	}
	if m == 0 {
		return 0
	}

	q := 0.0
	for c, d := range degree {
		q += internal[c]/m - resolution*(d/(2*m))*(d/(2*m))
	}
	return q
}

// UnavailableCommunityDetector stands in when no community backend is configured.
type UnavailableCommunityDetector struct {
	logger *slog.Logger
}

func NewUnavailableCommunityDetector(logger *slog.Logger) *UnavailableCommunityDetector {
	if logger == nil {
		logger = slog.Default()
	}
	return &UnavailableCommunityDetector{logger: logger}
}

func (u *UnavailableCommunityDetector) DetectCommunities(ctx context.Context, g *WeightedGraph, resolution float64) (map[uuid.UUID]int, float64, error) {
	u.logger.Warn("Community detection backend unavailable, returning empty result")
	return map[uuid.UUID]int{}, 0, nil
}
