package retrieval

import (
	"context"

	"github.com/google/uuid"
	"github.com/siherrmann/kgraph/model"
)

// ResourceStore is the read access the gatherer and ranker need.
// It is implemented by database.ResourcesDBHandler.
type ResourceStore interface {
	SelectResource(ctx context.Context, id uuid.UUID) (*model.Resource, error)
	SelectResourcesWithSignal(ctx context.Context) ([]*model.Resource, error)
	SelectResourcesBySimilarity(ctx context.Context, embedding []float32, exclude uuid.UUID, limit int) ([]*model.Resource, error)
	SelectResourcesBySubjects(ctx context.Context, subjects []string, exclude uuid.UUID) ([]*model.Resource, error)
	SelectResourcesByClassification(ctx context.Context, code string, exclude uuid.UUID) ([]*model.Resource, error)
}

// CandidateStrategy is one independent source of neighbor candidates.
type CandidateStrategy interface {
	Name() string
	Candidates(ctx context.Context, source *model.Resource, limit int) ([]*model.Resource, error)
}

// VectorStrategy returns resources close to the source embedding.
// It over-fetches by the configured multiplier so later ranking can filter.
type VectorStrategy struct {
	store     ResourceStore
	overfetch int
}

// NewVectorStrategy creates a new vector candidate strategy
func NewVectorStrategy(store ResourceStore, overfetch int) *VectorStrategy {
	if overfetch < 1 {
		overfetch = 1
	}
	return &VectorStrategy{store: store, overfetch: overfetch}
}

func (s *VectorStrategy) Name() string { return "vector" }

// Candidates returns up to limit*overfetch resources with an embedding.
func (s *VectorStrategy) Candidates(ctx context.Context, source *model.Resource, limit int) ([]*model.Resource, error) {
	if !source.HasEmbedding() {
		return nil, nil
	}
	return s.store.SelectResourcesBySimilarity(ctx, source.Embedding, source.ID, limit*s.overfetch)
}

// SubjectStrategy returns resources sharing at least one subject with the source.
type SubjectStrategy struct {
	store ResourceStore
}

// NewSubjectStrategy creates a new subject candidate strategy
func NewSubjectStrategy(store ResourceStore) *SubjectStrategy {
	return &SubjectStrategy{store: store}
}

func (s *SubjectStrategy) Name() string { return "subject" }

// Candidates returns all resources with a subject from the source's subject list.
func (s *SubjectStrategy) Candidates(ctx context.Context, source *model.Resource, limit int) ([]*model.Resource, error) {
	if len(source.Subjects) == 0 {
		return nil, nil
	}
	return s.store.SelectResourcesBySubjects(ctx, source.Subjects, source.ID)
}

// ClassificationStrategy returns resources with the source's classification code.
type ClassificationStrategy struct {
	store ResourceStore
}

// NewClassificationStrategy creates a new classification candidate strategy
func NewClassificationStrategy(store ResourceStore) *ClassificationStrategy {
	return &ClassificationStrategy{store: store}
}

func (s *ClassificationStrategy) Name() string { return "classification" }

// Candidates returns all resources whose code equals the source's code.
func (s *ClassificationStrategy) Candidates(ctx context.Context, source *model.Resource, limit int) ([]*model.Resource, error) {
	if source.ClassificationCode == nil || *source.ClassificationCode == "" {
		return nil, nil
	}
	return s.store.SelectResourcesByClassification(ctx, *source.ClassificationCode, source.ID)
}

// Gather unions the candidates of all strategies.
// Duplicates and the source itself are dropped, first-seen order is kept.
func Gather(ctx context.Context, source *model.Resource, limit int, strategies ...CandidateStrategy) ([]*model.Resource, error) {
	seen := map[uuid.UUID]bool{source.ID: true}
	candidates := []*model.Resource{}

	for _, strategy := range strategies {
		found, err := strategy.Candidates(ctx, source, limit)
		if err != nil {
			return nil, err
		}

		for _, r := range found {
			if seen[r.ID] {
				continue
			}
			seen[r.ID] = true
			candidates = append(candidates, r)
		}
	}

	return candidates, nil
}
