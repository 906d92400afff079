package retrieval

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/siherrmann/kgraph/core/similarity"
	"github.com/siherrmann/kgraph/helper"
	"github.com/siherrmann/kgraph/model"
)

// Engine ranks hybrid neighbors of a resource and builds the global overview.
type Engine struct {
	store      ResourceStore
	strategies []CandidateStrategy
	weights    similarity.Weights
	config     model.EngineConfig
	logger     *slog.Logger
}

// NewEngine creates a new retrieval engine with the vector, subject and classification strategies.
func NewEngine(store ResourceStore, config model.EngineConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		store: store,
		strategies: []CandidateStrategy{
			NewVectorStrategy(store, config.OverfetchMultiplier),
			NewSubjectStrategy(store),
			NewClassificationStrategy(store),
		},
		weights: similarity.WeightsFromConfig(config),
		config:  config,
		logger:  logger,
	}
}

type scoredResource struct {
	resource *model.Resource
	score    similarity.Scored
}

// FindHybridNeighbors returns the mind-map graph of a resource: the resource itself
// and its best candidates by hybrid weight. An unknown source yields an empty graph.
func (e *Engine) FindHybridNeighbors(ctx context.Context, sourceID uuid.UUID, limit int) (*model.KnowledgeGraph, error) {
	limit = e.config.ClampNeighborLimit(limit)

	source, err := e.store.SelectResource(ctx, sourceID)
	if errors.Is(err, helper.ErrNotFound) {
		return model.NewKnowledgeGraph(), nil
	} else if err != nil {
		return nil, helper.NewError("select source", err)
	}

	graph := model.NewKnowledgeGraph()
	graph.Nodes = append(graph.Nodes, model.GraphNode{
		ID:                 source.ID,
		Title:              source.Title,
		Type:               model.NodeTypeSource,
		ClassificationCode: source.ClassificationCode,
	})

	candidates, err := Gather(ctx, source, limit, e.strategies...)
	if err != nil {
		return nil, helper.NewError("gather candidates", err)
	}

	scored := make([]scoredResource, 0, len(candidates))
	for _, candidate := range candidates {
		scored = append(scored, scoredResource{
			resource: candidate,
			score:    similarity.Score(source, candidate, e.weights),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score.Weight != scored[j].score.Weight {
			return scored[i].score.Weight > scored[j].score.Weight
		}
		return scored[i].resource.ID.String() < scored[j].resource.ID.String()
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}

	for _, s := range scored {
		graph.Nodes = append(graph.Nodes, model.GraphNode{
			ID:                 s.resource.ID,
			Title:              s.resource.Title,
			Type:               model.NodeTypeNeighbor,
			ClassificationCode: s.resource.ClassificationCode,
		})
		graph.Edges = append(graph.Edges, model.GraphEdgeView{
			Source:  source.ID,
			Target:  s.resource.ID,
			Weight:  s.score.Weight,
			Details: s.score.Details(),
		})
	}

	e.logger.Debug("Found hybrid neighbors", slog.String("source", sourceID.String()), slog.Int("candidates", len(candidates)), slog.Int("kept", len(scored)))

	return graph, nil
}

// pair is an unordered resource pair, a holds the smaller id.
type pair struct {
	a, b int
}

type scoredPair struct {
	pair
	key   string
	score similarity.Scored
}

// GenerateGlobalOverview returns the strongest hybrid edges across the whole collection.
// Only resources with an embedding or a subject take part. Nodes are the endpoints of kept edges.
// A vectorThreshold of 0 admits every pair with non-negative similarity, values outside
// [0, 1] fall back to the configured threshold.
func (e *Engine) GenerateGlobalOverview(ctx context.Context, limit int, vectorThreshold float64) (*model.KnowledgeGraph, error) {
	if limit <= 0 {
		limit = e.config.DefaultOverviewLimit
	}
	if vectorThreshold < 0 || vectorThreshold > 1 {
		vectorThreshold = e.config.OverviewVectorThreshold
	}

	resources, err := e.store.SelectResourcesWithSignal(ctx)
	if err != nil {
		return nil, helper.NewError("select resources", err)
	}
	if len(resources) < 2 {
		return model.NewKnowledgeGraph(), nil
	}

	candidates := map[string]pair{}
	order := []string{}
	add := func(i, j int) {
		p := canonicalPair(resources, i, j)
		key := resources[p.a].ID.String() + "|" + resources[p.b].ID.String()
		if _, ok := candidates[key]; !ok {
			candidates[key] = p
			order = append(order, key)
		}
	}

	// Vector pairs above the threshold
	for i := 0; i < len(resources); i++ {
		if !resources[i].HasEmbedding() {
			continue
		}
		for j := i + 1; j < len(resources); j++ {
			if !resources[j].HasEmbedding() {
				continue
			}
			if similarity.CosineSimilarity(resources[i].Embedding, resources[j].Embedding) >= vectorThreshold {
				add(i, j)
			}
		}
	}

	// Top pairs by raw shared subject count
	type subjectPair struct {
		i, j   int
		shared int
	}
	subjectPairs := []subjectPair{}
	for i := 0; i < len(resources); i++ {
		for j := i + 1; j < len(resources); j++ {
			_, shared := similarity.TagOverlapScore(resources[i].Subjects, resources[j].Subjects)
			if len(shared) > 0 {
				subjectPairs = append(subjectPairs, subjectPair{i: i, j: j, shared: len(shared)})
			}
		}
	}
	sort.SliceStable(subjectPairs, func(x, y int) bool {
		return subjectPairs[x].shared > subjectPairs[y].shared
	})
	if len(subjectPairs) > limit {
		subjectPairs = subjectPairs[:limit]
	}
	for _, sp := range subjectPairs {
		add(sp.i, sp.j)
	}

	scored := make([]scoredPair, 0, len(order))
	for _, key := range order {
		p := candidates[key]
		s := similarity.Score(resources[p.a], resources[p.b], e.weights)
		if s.Weight < e.config.MinOverviewWeight {
			continue
		}
		scored = append(scored, scoredPair{pair: p, key: key, score: s})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score.Weight != scored[j].score.Weight {
			return scored[i].score.Weight > scored[j].score.Weight
		}
		return scored[i].key < scored[j].key
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}

	graph := model.NewKnowledgeGraph()
	inGraph := map[int]bool{}
	addNode := func(idx int) {
		if inGraph[idx] {
			return
		}
		inGraph[idx] = true
		r := resources[idx]
		graph.Nodes = append(graph.Nodes, model.GraphNode{
			ID:                 r.ID,
			Title:              r.Title,
			Type:               r.Type,
			ClassificationCode: r.ClassificationCode,
		})
	}

	for _, sp := range scored {
		addNode(sp.a)
		addNode(sp.b)
		graph.Edges = append(graph.Edges, model.GraphEdgeView{
			Source:  resources[sp.a].ID,
			Target:  resources[sp.b].ID,
			Weight:  sp.score.Weight,
			Details: sp.score.Details(),
		})
	}

	e.logger.Debug("Generated global overview", slog.Int("resources", len(resources)), slog.Int("candidate_pairs", len(order)), slog.Int("edges", len(graph.Edges)))

	return graph, nil
}

func canonicalPair(resources []*model.Resource, i, j int) pair {
	if resources[j].ID.String() < resources[i].ID.String() {
		return pair{a: j, b: i}
	}
	return pair{a: i, b: j}
}
