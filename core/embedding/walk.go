package embedding

import (
	"context"
	"log/slog"
	"maps"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/google/uuid"
	"github.com/siherrmann/kgraph/core/graph"
	"github.com/siherrmann/kgraph/model"
)

// EmbeddingGenerator computes one vector per graph node.
type EmbeddingGenerator interface {
	Generate(ctx context.Context, g *graph.MultiGraph, params model.EmbeddingParams) (map[uuid.UUID][]float32, error)
}

// UnavailableGenerator is used when graph embeddings are disabled.
type UnavailableGenerator struct {
	logger *slog.Logger
}

func NewUnavailableGenerator(logger *slog.Logger) *UnavailableGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &UnavailableGenerator{logger: logger}
}

// Generate logs a warning and returns no embeddings.
func (u *UnavailableGenerator) Generate(ctx context.Context, g *graph.MultiGraph, params model.EmbeddingParams) (map[uuid.UUID][]float32, error) {
	u.logger.Warn("Graph embeddings unavailable, returning empty result")
	return map[uuid.UUID][]float32{}, nil
}

// WalkEmbedder embeds nodes from seeded random walks. Deepwalk walks move to a
// neighbor proportional to the edge weight, node2vec additionally biases by the
// return parameter p and the in-out parameter q. Windowed co-occurrence counts of
// the walks are projected into the target dimension with a sparse random
// projection and L2-normalized.
type WalkEmbedder struct{}

func NewWalkEmbedder() *WalkEmbedder {
	return &WalkEmbedder{}
}

type adjacency struct {
	neighbors [][]int
	weights   [][]float64
	linked    []map[int]bool
}

func buildAdjacency(g *graph.MultiGraph, index map[uuid.UUID]int) adjacency {
	n := len(index)
	adj := adjacency{
		neighbors: make([][]int, n),
		weights:   make([][]float64, n),
		linked:    make([]map[int]bool, n),
	}

	for _, node := range g.Nodes() {
		u := index[node.ID]
		adj.linked[u] = map[int]bool{}
		for _, other := range g.Neighbors(node.ID) {
			w := 0.0
			for _, e := range g.EdgesBetween(node.ID, other) {
				w += math.Max(e.Weight, 0)
			}
			v := index[other]
			adj.neighbors[u] = append(adj.neighbors[u], v)
			adj.weights[u] = append(adj.weights[u], w)
			adj.linked[u][v] = true
		}
	}
	return adj
}

// pick draws an index proportional to the weights, uniformly if they sum to zero.
func pick(rng *rand.Rand, weights []float64) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return rng.IntN(len(weights))
	}

	r := rng.Float64() * total
	for i, w := range weights {
		r -= w
		if r < 0 {
			return i
		}
	}
	return len(weights) - 1
}

func (adj adjacency) walk(rng *rand.Rand, start int, params model.EmbeddingParams) []int {
	walk := make([]int, 1, params.WalkLength)
	walk[0] = start

	biased := make([]float64, 0)
	for len(walk) < params.WalkLength {
		cur := walk[len(walk)-1]
		if len(adj.neighbors[cur]) == 0 {
			break
		}

		if len(walk) == 1 || params.Algorithm == model.AlgorithmDeepWalk {
			walk = append(walk, adj.neighbors[cur][pick(rng, adj.weights[cur])])
			continue
		}

		prev := walk[len(walk)-2]
		biased = biased[:0]
		for i, next := range adj.neighbors[cur] {
			w := adj.weights[cur][i]
			switch {
			case next == prev:
				w /= params.P
			case adj.linked[prev][next]:
			default:
				w /= params.Q
			}
			biased = append(biased, w)
		}
		walk = append(walk, adj.neighbors[cur][pick(rng, biased)])
	}
	return walk
}

func (w *WalkEmbedder) Generate(ctx context.Context, g *graph.MultiGraph, params model.EmbeddingParams) (map[uuid.UUID][]float32, error) {
	params, err := ValidateParams(params)
	if err != nil {
		return nil, err
	}

	nodes := g.Nodes()
	index := make(map[uuid.UUID]int, len(nodes))
	for i, node := range nodes {
		index[node.ID] = i
	}
	adj := buildAdjacency(g, index)

	seed := uint64(params.Seed)
	rng := rand.New(rand.NewPCG(seed, 0x6b677261706877))

	// Every node co-occurs with itself once so isolated nodes still get a vector.
	counts := make([]map[int]float64, len(nodes))
	for i := range counts {
		counts[i] = map[int]float64{i: 1}
	}

	order := make([]int, len(nodes))
	for i := range order {
		order[i] = i
	}
	for range params.NumWalks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		for _, start := range order {
			walk := adj.walk(rng, start, params)
			for i, u := range walk {
				for j := i + 1; j < len(walk) && j <= i+params.WindowSize; j++ {
					counts[u][walk[j]]++
					counts[walk[j]][u]++
				}
			}
		}
	}

	projection := randomProjection(len(nodes), params.Dimensions, rand.New(rand.NewPCG(seed, 0x70726f6a)))

	embeddings := make(map[uuid.UUID][]float32, len(nodes))
	for u, node := range nodes {
		vec := make([]float64, params.Dimensions)
		for _, v := range slices.Sorted(maps.Keys(counts[u])) {
			weight := math.Log1p(counts[u][v])
			for _, entry := range projection[v] {
				vec[entry.dim] += weight * entry.value
			}
		}
		embeddings[node.ID] = normalize(vec)
	}

	return embeddings, nil
}

type projectionEntry struct {
	dim   int
	value float64
}

// randomProjection returns a sparse random vector per node with entries
// sqrt(3) * {+1, 0, -1} drawn with probabilities 1/6, 2/3, 1/6.
// Every vector has at least one non-zero entry.
func randomProjection(n, dims int, rng *rand.Rand) [][]projectionEntry {
	scale := math.Sqrt(3)
	projection := make([][]projectionEntry, n)
	for i := range projection {
		for d := 0; d < dims; d++ {
			switch r := rng.IntN(6); r {
			case 0:
				projection[i] = append(projection[i], projectionEntry{dim: d, value: scale})
			case 1:
				projection[i] = append(projection[i], projectionEntry{dim: d, value: -scale})
			}
		}
		if len(projection[i]) == 0 {
			projection[i] = append(projection[i], projectionEntry{dim: rng.IntN(dims), value: scale})
		}
	}
	return projection
}

func normalize(vec []float64) []float32 {
	norm := 0.0
	for _, x := range vec {
		norm += x * x
	}
	norm = math.Sqrt(norm)

	out := make([]float32, len(vec))
	if norm == 0 {
		return out
	}
	for i, x := range vec {
		out[i] = float32(x / norm)
	}
	return out
}
