package embedding

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/kgraph/core/graph"
	"github.com/siherrmann/kgraph/model"
)

// Service runs an embedding generator over a graph and keeps the result in an index.
type Service struct {
	generator EmbeddingGenerator
	index     *Index
	logger    *slog.Logger
}

// NewService creates an embedding service, a nil generator means the random walk embedder.
func NewService(generator EmbeddingGenerator, logger *slog.Logger) *Service {
	if generator == nil {
		generator = NewWalkEmbedder()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{generator: generator, index: NewIndex(), logger: logger}
}

// Index returns the index holding the latest run.
func (s *Service) Index() *Index {
	return s.index
}

// Generate validates the parameters, embeds every node of g and replaces the index.
func (s *Service) Generate(ctx context.Context, g *graph.MultiGraph, params model.EmbeddingParams) (*model.EmbeddingRun, error) {
	start := time.Now()

	params, err := ValidateParams(params)
	if err != nil {
		return nil, err
	}

	vectors, err := s.generator.Generate(ctx, g, params)
	if err != nil {
		return nil, err
	}

	order := make([]uuid.UUID, 0, g.NodeCount())
	for _, node := range g.Nodes() {
		order = append(order, node.ID)
	}
	s.index.Replace(vectors, order, params)

	run := &model.EmbeddingRun{
		EmbeddingsComputed: len(vectors),
		Dimensions:         params.Dimensions,
		ExecutionTime:      time.Since(start),
	}
	s.logger.Info("Generated graph embeddings",
		slog.String("algorithm", params.Algorithm),
		slog.Int("embeddings", run.EmbeddingsComputed),
		slog.Duration("elapsed", run.ExecutionTime),
	)

	return run, nil
}
