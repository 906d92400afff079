package citation

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/siherrmann/kgraph/core/graph"
	"github.com/siherrmann/kgraph/helper"
	"github.com/siherrmann/kgraph/model"
	"golang.org/x/sync/errgroup"
)

// ResourceStore is the resource access of the citation engine.
type ResourceStore interface {
	SelectResource(ctx context.Context, id uuid.UUID) (*model.Resource, error)
	SelectResourcesByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Resource, error)
	SelectResourceSourceURLs(ctx context.Context) (map[uuid.UUID]string, error)
}

// CitationStore is the citation access of the citation engine.
type CitationStore interface {
	InsertCitations(ctx context.Context, sourceID uuid.UUID, candidates []model.CitationCandidate) ([]*model.Citation, error)
	SelectUnresolvedCitations(ctx context.Context, sourceIDs []uuid.UUID) ([]*model.Citation, error)
	SelectResolvedCitations(ctx context.Context, ids []uuid.UUID) ([]*model.Citation, error)
	ResolveCitations(ctx context.Context, resolutions []model.CitationResolution) (int, error)
	UpdateCitationImportance(ctx context.Context, scores map[uuid.UUID]float64) error
}

// Engine drives extraction, resolution, subgraph building and importance scoring of citations.
type Engine struct {
	resources ResourceStore
	citations CitationStore
	loader    ContentLoader
	publisher EventPublisher
	pagerank  graph.PageRankEngine
	config    model.EngineConfig
	logger    *slog.Logger
}

// NewEngine creates a citation engine. Nil collaborators fall back to the stored
// content loader, the no-op publisher and power iteration PageRank.
func NewEngine(resources ResourceStore, citations CitationStore, loader ContentLoader, publisher EventPublisher, pagerank graph.PageRankEngine, config model.EngineConfig, logger *slog.Logger) *Engine {
	if loader == nil {
		loader = StoredContentLoader{}
	}
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	if pagerank == nil {
		pagerank = graph.NewPowerIterationPageRank(config.PageRankMaxIter, config.PageRankTolerance)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		resources: resources,
		citations: citations,
		loader:    loader,
		publisher: publisher,
		pagerank:  pagerank,
		config:    config,
		logger:    logger,
	}
}

// ExtractCitations extracts and stores the citations of one resource.
// Loading or extraction failures are logged and whatever was found is still stored.
// The citations.extracted event is published only if at least one citation was committed.
func (e *Engine) ExtractCitations(ctx context.Context, id uuid.UUID) ([]*model.Citation, error) {
	resource, err := e.resources.SelectResource(ctx, id)
	if err != nil {
		return nil, helper.NewError("select resource", err)
	}

	content, err := e.loader.Load(ctx, resource)
	if err != nil {
		e.logger.Warn("Failed to load resource content", slog.String("resource", id.String()), slog.String("error", err.Error()))
		return []*model.Citation{}, nil
	}

	candidates, err := ExtractorFor(resource.ContentFormat, e.config.MaxCitationsPerSource).Extract(ctx, resource, content)
	if err != nil {
		e.logger.Warn("Citation extraction failed, keeping partial result", slog.String("resource", id.String()), slog.Int("found", len(candidates)), slog.String("error", err.Error()))
	}
	if len(candidates) == 0 {
		return []*model.Citation{}, nil
	}

	citations, err := e.citations.InsertCitations(ctx, id, candidates)
	if err != nil {
		return nil, helper.NewError("insert citations", err)
	}

	event := model.CitationsExtractedEvent{
		ResourceID:    id,
		Citations:     make([]string, 0, len(citations)),
		CitationCount: len(citations),
	}
	for _, c := range citations {
		event.Citations = append(event.Citations, c.TargetURL)
	}
	if err := e.publisher.PublishCitationsExtracted(ctx, event); err != nil {
		e.logger.Warn("Failed to publish event", slog.String("topic", TopicCitationsExtracted), slog.String("error", err.Error()))
	}

	e.logger.Info("Extracted citations", slog.String("resource", id.String()), slog.Int("count", len(citations)))

	return citations, nil
}

// ExtractCitationsBatch extracts citations for many resources with bounded parallelism.
// Failing resources are logged and left out of the result.
func (e *Engine) ExtractCitationsBatch(ctx context.Context, ids []uuid.UUID, parallel int) (map[uuid.UUID][]*model.Citation, error) {
	if parallel <= 0 {
		parallel = e.config.ExtractionParallelism
	}

	var mu sync.Mutex
	results := make(map[uuid.UUID][]*model.Citation, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(parallel, 1))
	for _, id := range ids {
		g.Go(func() error {
			citations, err := e.ExtractCitations(gctx, id)
			if err != nil {
				e.logger.Warn("Skipping resource in batch extraction", slog.String("resource", id.String()), slog.String("error", err.Error()))
				return nil
			}

			mu.Lock()
			results[id] = citations
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}

// ResolveInternalCitations links unresolved citations to the resource whose source url
// matches the normalized target url, ignoring case. Resolutions are committed in batches,
// a failed batch is logged and skipped. It returns the number of resolved citations.
func (e *Engine) ResolveInternalCitations(ctx context.Context, ids []uuid.UUID) (int, error) {
	unresolved, err := e.citations.SelectUnresolvedCitations(ctx, ids)
	if err != nil {
		return 0, helper.NewError("select unresolved citations", err)
	}
	if len(unresolved) == 0 {
		return 0, nil
	}

	sourceURLs, err := e.resources.SelectResourceSourceURLs(ctx)
	if err != nil {
		return 0, helper.NewError("select source urls", err)
	}

	// On duplicate source urls the smallest resource id wins.
	byURL := make(map[string]uuid.UUID, len(sourceURLs))
	for id, u := range sourceURLs {
		key := strings.ToLower(NormalizeURL(u))
		if existing, ok := byURL[key]; !ok || id.String() < existing.String() {
			byURL[key] = id
		}
	}

	resolutions := []model.CitationResolution{}
	for _, c := range unresolved {
		if target, ok := byURL[strings.ToLower(NormalizeURL(c.TargetURL))]; ok {
			resolutions = append(resolutions, model.CitationResolution{CitationID: c.ID, TargetResourceID: target})
		}
	}

	batchSize := max(e.config.CitationBatchSize, 1)
	resolved := 0
	for start := 0; start < len(resolutions); start += batchSize {
		end := min(start+batchSize, len(resolutions))

		n, err := e.citations.ResolveCitations(ctx, resolutions[start:end])
		if err != nil {
			e.logger.Warn("Failed to commit citation resolution batch", slog.Int("batch_start", start), slog.Int("batch_size", end-start), slog.String("error", err.Error()))
			continue
		}
		resolved += n
	}

	e.logger.Info("Resolved internal citations", slog.Int("unresolved", len(unresolved)), slog.Int("resolved", resolved))

	return resolved, nil
}

// GetCitationGraph walks resolved citations outward and inward from a resource.
// Depth is clamped to [1, CitationGraphMaxDepth] and collection stops at CitationGraphMaxNodes.
func (e *Engine) GetCitationGraph(ctx context.Context, id uuid.UUID, depth int) (*model.KnowledgeGraph, error) {
	depth = max(depth, 1)
	if e.config.CitationGraphMaxDepth > 0 {
		depth = min(depth, e.config.CitationGraphMaxDepth)
	}
	maxNodes := e.config.CitationGraphMaxNodes

	focal, err := e.resources.SelectResource(ctx, id)
	if err != nil {
		return nil, helper.NewError("select resource", err)
	}

	nodeType := map[uuid.UUID]string{focal.ID: model.ResourceTypeSource}
	order := []uuid.UUID{focal.ID}
	edges := map[uuid.UUID]*model.Citation{}
	edgeOrder := []uuid.UUID{}
	frontier := []uuid.UUID{focal.ID}

	full := func() bool { return maxNodes > 0 && len(order) >= maxNodes }
	visit := func(id uuid.UUID, label string) {
		if _, ok := nodeType[id]; ok || full() {
			return
		}
		nodeType[id] = label
		order = append(order, id)
	}

	for level := 0; level < depth && len(frontier) > 0 && !full(); level++ {
		inFrontier := make(map[uuid.UUID]bool, len(frontier))
		for _, f := range frontier {
			inFrontier[f] = true
		}
		before := len(order)

		citations, err := e.citations.SelectResolvedCitations(ctx, frontier)
		if err != nil {
			return nil, helper.NewError("select citations", err)
		}

		for _, c := range citations {
			target := *c.TargetResourceID
			if inFrontier[c.SourceResourceID] {
				visit(target, model.ResourceTypeCited)
			}
			if inFrontier[target] {
				visit(c.SourceResourceID, model.ResourceTypeCiting)
			}

			_, hasSource := nodeType[c.SourceResourceID]
			_, hasTarget := nodeType[target]
			if _, seen := edges[c.ID]; hasSource && hasTarget && !seen {
				edges[c.ID] = c
				edgeOrder = append(edgeOrder, c.ID)
			}
		}

		frontier = append([]uuid.UUID{}, order[before:]...)
	}

	resources, err := e.resources.SelectResourcesByIDs(ctx, order)
	if err != nil {
		return nil, helper.NewError("select resources", err)
	}
	byID := make(map[uuid.UUID]*model.Resource, len(resources))
	for _, r := range resources {
		byID[r.ID] = r
	}

	kg := model.NewKnowledgeGraph()
	for _, nodeID := range order {
		node := model.GraphNode{ID: nodeID, Type: nodeType[nodeID]}
		if r, ok := byID[nodeID]; ok {
			node.Title = r.Title
			node.ClassificationCode = r.ClassificationCode
		}
		kg.Nodes = append(kg.Nodes, node)
	}
	for _, citationID := range edgeOrder {
		c := edges[citationID]
		weight := 1.0
		if c.ImportanceScore != nil {
			weight = *c.ImportanceScore
		}
		kg.Edges = append(kg.Edges, model.GraphEdgeView{
			Source: c.SourceResourceID,
			Target: *c.TargetResourceID,
			Weight: weight,
			Details: model.EdgeDetails{
				ConnectionType: model.EdgeTagCitation,
				SharedSubjects: []string{},
			},
		})
	}

	return kg, nil
}

// ComputeCitationImportance runs PageRank over resolved citations and stores on every
// citation the normalized score of its target. It returns the normalized score per resource.
// An empty citation graph or a failing PageRank yields an empty result and stores nothing.
func (e *Engine) ComputeCitationImportance(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]float64, error) {
	citations, err := e.citations.SelectResolvedCitations(ctx, ids)
	if err != nil {
		return nil, helper.NewError("select citations", err)
	}
	if len(citations) == 0 {
		return map[uuid.UUID]float64{}, nil
	}

	g := graph.NewDirectedGraph()
	for _, c := range citations {
		g.AddEdge(c.SourceResourceID, *c.TargetResourceID, 1.0)
	}

	scores, err := e.pagerank.PageRank(ctx, g, e.config.Damping)
	if err != nil {
		e.logger.Warn("Citation PageRank failed", slog.String("error", err.Error()))
		return map[uuid.UUID]float64{}, nil
	}
	if len(scores) == 0 {
		return map[uuid.UUID]float64{}, nil
	}

	normalized := graph.MinMaxNormalize(scores)

	updates := make(map[uuid.UUID]float64, len(citations))
	for _, c := range citations {
		updates[c.ID] = normalized[*c.TargetResourceID]
	}
	if err := e.citations.UpdateCitationImportance(ctx, updates); err != nil {
		e.logger.Warn("Failed to store citation importance", slog.String("error", err.Error()))
	}

	e.logger.Info("Computed citation importance", slog.Int("citations", len(citations)), slog.Int("resources", len(normalized)))

	return normalized, nil
}
