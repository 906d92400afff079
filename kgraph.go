package kgraph

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/kgraph/core/citation"
	"github.com/siherrmann/kgraph/core/discovery"
	"github.com/siherrmann/kgraph/core/embedding"
	"github.com/siherrmann/kgraph/core/extraction"
	"github.com/siherrmann/kgraph/core/graph"
	"github.com/siherrmann/kgraph/core/retrieval"
	"github.com/siherrmann/kgraph/database"
	"github.com/siherrmann/kgraph/helper"
	"github.com/siherrmann/kgraph/model"
	loadSql "github.com/siherrmann/kgraph/sql"
)

// KGraph provides a unified interface to the database handlers and all graph engines
type KGraph struct {
	DB         *helper.Database
	Resources  *database.ResourcesDBHandler
	Citations  *database.CitationsDBHandler
	Edges      *database.EdgesDBHandler
	Hypotheses *database.HypothesesDBHandler
	Config     model.EngineConfig

	retrieval  *retrieval.Engine
	graph      *graph.Service
	citation   *citation.Engine
	discovery  *discovery.Engine
	embeddings *embedding.Service

	publisher    citation.EventPublisher
	extractor    extraction.EntityExtractor
	textEmbedder embedding.TextEmbedder

	// Logging
	log *slog.Logger
}

// graphStore combines the handlers into the store of the multi-layer graph builder.
type graphStore struct {
	*database.ResourcesDBHandler
	*database.CitationsDBHandler
	*database.EdgesDBHandler
}

// NewKGraph connects to the database, creates all handlers and wires the engines.
// Publishing, entity extraction and text embeddings start unavailable, see the Use* methods.
func NewKGraph(dbConfig *helper.DatabaseConfiguration, config model.EngineConfig, embeddingDim int) (*KGraph, error) {
	logger := helper.NewLogger(os.Stdout, slog.LevelInfo)

	db := helper.NewDatabase("kgraph", dbConfig, logger)
	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	// Resources first, every other table references them.
	// force=false to not reload if functions already exist
	resources, err := database.NewResourcesDBHandler(db, embeddingDim, false)
	if err != nil {
		return nil, helper.NewError("create resources handler", err)
	}

	citations, err := database.NewCitationsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create citations handler", err)
	}

	edges, err := database.NewEdgesDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create edges handler", err)
	}

	hypotheses, err := database.NewHypothesesDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create hypotheses handler", err)
	}

	k := &KGraph{
		DB:           db,
		Resources:    resources,
		Citations:    citations,
		Edges:        edges,
		Hypotheses:   hypotheses,
		Config:       config,
		publisher:    citation.NoopPublisher{},
		extractor:    extraction.NewUnavailableExtractor(logger),
		textEmbedder: embedding.NewUnavailableTextEmbedder(logger),
		log:          logger,
	}

	k.retrieval = retrieval.NewEngine(resources, config, logger)
	k.graph = graph.NewService(graphStore{resources, citations, edges}, nil, nil, config, logger)
	k.citation = citation.NewEngine(resources, citations, nil, k.publisher, nil, config, logger)
	k.discovery = discovery.NewEngine(resources, hypotheses, config, logger)
	k.embeddings = embedding.NewService(nil, logger)

	return k, nil
}

// Close releases the publisher, the models and the database connection
func (k *KGraph) Close() error {
	var errs []error
	for _, c := range []any{k.publisher, k.extractor, k.textEmbedder} {
		if closer, ok := c.(io.Closer); ok {
			errs = append(errs, closer.Close())
		}
	}
	if k.DB != nil {
		errs = append(errs, k.DB.Close())
	}
	return errors.Join(errs...)
}

// SetPublisher sets the publisher of the citations.extracted event
func (k *KGraph) SetPublisher(publisher citation.EventPublisher) {
	if publisher == nil {
		publisher = citation.NoopPublisher{}
	}
	k.publisher = publisher
	k.citation = citation.NewEngine(k.Resources, k.Citations, nil, publisher, nil, k.Config, k.log)
}

// UseAMQPPublisher publishes citation events to RabbitMQ if KGRAPH_AMQP_URL is set.
func (k *KGraph) UseAMQPPublisher() error {
	config := citation.NewAMQPConfiguration()
	if config == nil {
		k.log.Warn("KGRAPH_AMQP_URL not set, citation events are not published")
		return nil
	}

	publisher, err := citation.NewAMQPPublisher(config, k.log)
	if err != nil {
		return helper.NewError("create amqp publisher", err)
	}
	k.SetPublisher(publisher)
	return nil
}

// SetEntityExtractor sets the entity extraction backend
func (k *KGraph) SetEntityExtractor(extractor extraction.EntityExtractor) {
	if extractor == nil {
		extractor = extraction.NewUnavailableExtractor(k.log)
	}
	k.extractor = extractor
}

// UseDefaultEntityExtractor sets up the hugot NER extractor, merged with the LLM
// extractor when KGRAPH_LLM_API_KEY is set.
func (k *KGraph) UseDefaultEntityExtractor() error {
	ner, err := extraction.NewNERExtractor(k.log)
	if err != nil {
		return helper.NewError("create ner extractor", err)
	}

	llmConfig := extraction.NewLLMConfiguration()
	if llmConfig == nil {
		k.SetEntityExtractor(ner)
		return nil
	}
	k.SetEntityExtractor(extraction.NewHybridExtractor(extraction.NewLLMExtractor(llmConfig, k.log), ner, k.log))
	return nil
}

// SetTextEmbedder sets the embedder used for resource embeddings
func (k *KGraph) SetTextEmbedder(embedder embedding.TextEmbedder) {
	if embedder == nil {
		embedder = embedding.NewUnavailableTextEmbedder(k.log)
	}
	k.textEmbedder = embedder
}

// UseDefaultTextEmbedder sets up the all-MiniLM-L6-v2 embedder (384 dimensions)
func (k *KGraph) UseDefaultTextEmbedder() error {
	embedder, err := embedding.NewHugotEmbedder()
	if err != nil {
		return helper.NewError("create default embedder", err)
	}
	k.SetTextEmbedder(embedder)
	return nil
}

// FindHybridNeighbors returns the resource and its best neighbors by hybrid weight
func (k *KGraph) FindHybridNeighbors(ctx context.Context, id uuid.UUID, limit int) (*model.KnowledgeGraph, error) {
	return k.retrieval.FindHybridNeighbors(ctx, id, limit)
}

// GenerateGlobalOverview returns the strongest connections of the whole collection
func (k *KGraph) GenerateGlobalOverview(ctx context.Context, limit int, vectorThreshold float64) (*model.KnowledgeGraph, error) {
	return k.retrieval.GenerateGlobalOverview(ctx, limit, vectorThreshold)
}

// BuildMultilayerGraph returns the cached multi-layer graph, rebuilt if refresh is set
func (k *KGraph) BuildMultilayerGraph(ctx context.Context, refresh bool) (*graph.MultiGraph, error) {
	return k.graph.BuildMultilayerGraph(ctx, refresh)
}

// GetCacheTimestamp returns the build time of the cached graph, nil if there is none
func (k *KGraph) GetCacheTimestamp() *time.Time {
	return k.graph.CacheTimestamp()
}

// ClearGraphCache drops the cached graph
func (k *KGraph) ClearGraphCache() {
	k.graph.ClearCache()
}

// GetNeighborsMultihop returns the one or two hop neighbors of a resource
func (k *KGraph) GetNeighborsMultihop(ctx context.Context, id uuid.UUID, hops int, filter graph.TraversalFilter, limit int) ([]model.NeighborPath, error) {
	return k.graph.NeighborsMultihop(ctx, id, hops, filter, limit)
}

func (k *KGraph) ComputeDegreeCentrality(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.DegreeCentrality, error) {
	return k.graph.DegreeCentrality(ctx, ids)
}

func (k *KGraph) ComputeBetweennessCentrality(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]float64, error) {
	return k.graph.BetweennessCentrality(ctx, ids)
}

func (k *KGraph) ComputePageRank(ctx context.Context, ids []uuid.UUID, damping float64) (map[uuid.UUID]float64, error) {
	return k.graph.PageRank(ctx, ids, damping)
}

// DetectCommunities runs community detection on a fresh subgraph of the given resources
func (k *KGraph) DetectCommunities(ctx context.Context, ids []uuid.UUID, resolution float64) (*model.CommunityResult, error) {
	return k.graph.DetectCommunities(ctx, ids, resolution)
}

// ExtractCitations extracts and stores the citations of one resource
func (k *KGraph) ExtractCitations(ctx context.Context, id uuid.UUID) ([]*model.Citation, error) {
	return k.citation.ExtractCitations(ctx, id)
}

// ExtractCitationsBatch extracts citations of many resources in parallel
func (k *KGraph) ExtractCitationsBatch(ctx context.Context, ids []uuid.UUID, parallel int) (map[uuid.UUID][]*model.Citation, error) {
	return k.citation.ExtractCitationsBatch(ctx, ids, parallel)
}

// ResolveInternalCitations links citations to known resources, nil ids means all citations
func (k *KGraph) ResolveInternalCitations(ctx context.Context, ids []uuid.UUID) (int, error) {
	return k.citation.ResolveInternalCitations(ctx, ids)
}

func (k *KGraph) GetCitationGraph(ctx context.Context, id uuid.UUID, depth int) (*model.KnowledgeGraph, error) {
	return k.citation.GetCitationGraph(ctx, id, depth)
}

func (k *KGraph) ComputeCitationImportance(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]float64, error) {
	return k.citation.ComputeCitationImportance(ctx, ids)
}

// Discover generates ABC hypotheses between two concepts
func (k *KGraph) Discover(ctx context.Context, conceptA, conceptC string, limit int, slice *model.TimeSlice) (*model.DiscoveryResult, error) {
	return k.discovery.Discover(ctx, conceptA, conceptC, limit, slice)
}

func (k *KGraph) OpenDiscovery(ctx context.Context, startID uuid.UUID, limit int, threshold float64) ([]*model.DiscoveryHypothesis, error) {
	return k.discovery.OpenDiscovery(ctx, startID, limit, threshold)
}

func (k *KGraph) ClosedDiscovery(ctx context.Context, aID, cID uuid.UUID, limit int) ([]*model.DiscoveryHypothesis, error) {
	return k.discovery.ClosedDiscovery(ctx, aID, cID, limit)
}

// SaveHypotheses persists hypotheses so they can be loaded by id later
func (k *KGraph) SaveHypotheses(ctx context.Context, hypotheses []*model.DiscoveryHypothesis) error {
	return k.discovery.SaveHypotheses(ctx, hypotheses)
}

func (k *KGraph) GetHypothesis(ctx context.Context, id uuid.UUID) (*model.DiscoveryHypothesis, error) {
	return k.discovery.GetHypothesis(ctx, id)
}

// GenerateGraphEmbeddings embeds every node of the cached multi-layer graph
func (k *KGraph) GenerateGraphEmbeddings(ctx context.Context, params model.EmbeddingParams) (*model.EmbeddingRun, error) {
	if _, err := embedding.ValidateParams(params); err != nil {
		return nil, err
	}

	g, err := k.graph.BuildMultilayerGraph(ctx, false)
	if err != nil {
		return nil, helper.NewError("build graph", err)
	}
	return k.embeddings.Generate(ctx, g, params)
}

// GetGraphEmbedding returns the graph embedding of a resource from the last run
func (k *KGraph) GetGraphEmbedding(id uuid.UUID) ([]float32, error) {
	return k.embeddings.Index().Get(id)
}

// FindSimilarNodes returns the resources with the most similar graph embeddings
func (k *KGraph) FindSimilarNodes(id uuid.UUID, minSimilarity float64, limit int) ([]model.SimilarNode, error) {
	return k.embeddings.Index().MostSimilar(id, minSimilarity, limit)
}

// ExtractEntities extracts entities from title, description and abstract of a resource
func (k *KGraph) ExtractEntities(ctx context.Context, id uuid.UUID) (*model.ExtractionResult, error) {
	resource, err := k.Resources.SelectResource(ctx, id)
	if err != nil {
		return nil, helper.NewError("select resource", err)
	}
	return k.extractor.Extract(ctx, resource.SearchText())
}

// ComputeResourceEmbedding embeds the text of a resource and stores the embedding,
// which makes the resource a vector candidate for hybrid neighbors.
func (k *KGraph) ComputeResourceEmbedding(ctx context.Context, id uuid.UUID) ([]float32, error) {
	resource, err := k.Resources.SelectResource(ctx, id)
	if err != nil {
		return nil, helper.NewError("select resource", err)
	}

	vec, err := k.textEmbedder.Embed(ctx, resource.SearchText())
	if err != nil {
		return nil, helper.NewError("embed resource", err)
	}

	err = k.Resources.UpdateResourceEmbedding(ctx, id, vec)
	if err != nil {
		return nil, helper.NewError("update embedding", err)
	}

	k.log.Info("Computed resource embedding", slog.String("resource", id.String()), slog.Int("dimensions", len(vec)))

	return vec, nil
}

// AddResource inserts a resource, the id is set on success
func (k *KGraph) AddResource(ctx context.Context, resource *model.Resource) error {
	if resource == nil {
		return helper.NewError("add resource", fmt.Errorf("%w: resource is nil", helper.ErrInvalidParameter))
	}
	return k.Resources.InsertResource(ctx, resource)
}

// AddEdge inserts a typed edge between two resources
func (k *KGraph) AddEdge(ctx context.Context, edge *model.GraphEdge) error {
	if edge == nil {
		return helper.NewError("add edge", fmt.Errorf("%w: edge is nil", helper.ErrInvalidParameter))
	}
	return k.Edges.InsertEdge(ctx, edge)
}
