package discovery

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/kgraph/helper"
	"github.com/siherrmann/kgraph/model"
)

// ResourceStore is the resource access of the discovery engine.
type ResourceStore interface {
	SelectResource(ctx context.Context, id uuid.UUID) (*model.Resource, error)
	SelectAllResources(ctx context.Context, limit int) ([]*model.Resource, error)
	SearchResourcesByText(ctx context.Context, concept string, slice *model.TimeSlice) ([]*model.Resource, error)
}

// HypothesisStore persists hypotheses for later retrieval by id.
type HypothesisStore interface {
	InsertHypothesis(ctx context.Context, hypothesis *model.DiscoveryHypothesis) error
	SelectHypothesis(ctx context.Context, id uuid.UUID) (*model.DiscoveryHypothesis, error)
}

// Engine generates ABC hypotheses from the resource text corpus.
type Engine struct {
	resources  ResourceStore
	hypotheses HypothesisStore
	config     model.EngineConfig
	logger     *slog.Logger
}

// NewEngine creates a discovery engine. hypotheses may be nil, saving and loading
// hypotheses then fails with helper.ErrUnavailable.
func NewEngine(resources ResourceStore, hypotheses HypothesisStore, config model.EngineConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		resources:  resources,
		hypotheses: hypotheses,
		config:     config,
		logger:     logger,
	}
}

// FindResourcesWithConcept returns the resources mentioning the concept in title,
// description or abstract, optionally created within the time slice.
func (e *Engine) FindResourcesWithConcept(ctx context.Context, concept string, slice *model.TimeSlice) ([]*model.Resource, error) {
	if strings.TrimSpace(concept) == "" {
		return []*model.Resource{}, nil
	}

	resources, err := e.resources.SearchResourcesByText(ctx, concept, slice)
	if err != nil {
		return nil, helper.NewError("search resources", err)
	}
	return resources, nil
}

func (e *Engine) clampLimit(limit int) int {
	if limit <= 0 || (e.config.MaxDiscoveryLimit > 0 && limit > e.config.MaxDiscoveryLimit) {
		return e.config.MaxDiscoveryLimit
	}
	return limit
}

// Discover finds the concepts bridging a and c, ranked by confidence descending.
func (e *Engine) Discover(ctx context.Context, a, c string, limit int, slice *model.TimeSlice) (*model.DiscoveryResult, error) {
	start := time.Now()
	limit = e.clampLimit(limit)

	aMatches, err := e.FindResourcesWithConcept(ctx, a, slice)
	if err != nil {
		return nil, err
	}
	hypotheses, err := e.discover(ctx, a, aMatches, c, slice)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(hypotheses) > limit {
		hypotheses = hypotheses[:limit]
	}

	result := &model.DiscoveryResult{
		Hypotheses:    hypotheses,
		Count:         len(hypotheses),
		ExecutionTime: time.Since(start),
	}
	e.warnIfSlow("discover", result.ExecutionTime)

	return result, nil
}

func (e *Engine) warnIfSlow(operation string, elapsed time.Duration) {
	if e.config.DiscoverySoftTarget > 0 && elapsed > e.config.DiscoverySoftTarget {
		e.logger.Warn("Discovery exceeded soft target", slog.String("operation", operation), slog.Duration("elapsed", elapsed), slog.Duration("target", e.config.DiscoverySoftTarget))
	}
}

// discover ranks the bridging concepts between a and c, with aMatches being the
// resources mentioning a. The result is sorted but not truncated.
func (e *Engine) discover(ctx context.Context, a string, aMatches []*model.Resource, c string, slice *model.TimeSlice) ([]*model.DiscoveryHypothesis, error) {
	hypotheses := []*model.DiscoveryHypothesis{}
	if len(aMatches) == 0 || strings.TrimSpace(c) == "" {
		return hypotheses, nil
	}

	cMatches, err := e.FindResourcesWithConcept(ctx, c, slice)
	if err != nil {
		return nil, err
	}
	if len(cMatches) == 0 {
		return hypotheses, nil
	}

	aConcepts, _ := conceptSet(aMatches)
	_, cConcepts := conceptSet(cMatches)

	// Known A-C connections are kept, novelty discounts them below.
	acCount := len(filterMentioning(aMatches, c))
	novelty := 1 / (1 + float64(acCount))

	// Bridges are the shared concepts other than A and C themselves.
	for _, b := range aConcepts {
		if !cConcepts[strings.ToLower(b)] || strings.EqualFold(b, a) || strings.EqualFold(b, c) {
			continue
		}

		ab := filterMentioning(aMatches, b)
		bc := filterMentioning(cMatches, b)
		support := min(len(ab), len(bc))
		if support == 0 {
			continue
		}

		confidence := float64(support) * novelty
		items := evidence(ab, model.EvidenceAB, e.config.EvidencePerRelation)
		items = append(items, evidence(bc, model.EvidenceBC, e.config.EvidencePerRelation)...)

		hypotheses = append(hypotheses, &model.DiscoveryHypothesis{
			ConceptA:        a,
			ConceptB:        b,
			ConceptC:        c,
			SupportStrength: float64(support),
			Novelty:         novelty,
			Confidence:      confidence,
			Plausibility:    confidence / (1 + confidence),
			PathStrength:    math.Sqrt(float64(len(ab) * len(bc))),
			CommonNeighbors: countDistinct(ab, bc),
			Evidence:        items,
			CreatedAt:       time.Now().UTC(),
		})
	}

	sort.SliceStable(hypotheses, func(i, j int) bool {
		if hypotheses[i].Confidence != hypotheses[j].Confidence {
			return hypotheses[i].Confidence > hypotheses[j].Confidence
		}
		return hypotheses[i].ConceptB < hypotheses[j].ConceptB
	})

	return hypotheses, nil
}

func countDistinct(lists ...[]*model.Resource) int {
	seen := map[uuid.UUID]bool{}
	for _, list := range lists {
		for _, r := range list {
			seen[r.ID] = true
		}
	}
	return len(seen)
}

// OpenDiscovery starts from the first concept of a resource and sweeps candidate C
// concepts taken from other resources. Hypotheses below the plausibility threshold
// are dropped, a negative threshold means the configured one.
func (e *Engine) OpenDiscovery(ctx context.Context, startID uuid.UUID, limit int, threshold float64) ([]*model.DiscoveryHypothesis, error) {
	begin := time.Now()
	limit = e.clampLimit(limit)
	if threshold < 0 {
		threshold = e.config.PlausibilityThreshold
	}

	start, err := e.resources.SelectResource(ctx, startID)
	if err != nil {
		return nil, helper.NewError("select start resource", err)
	}
	startConcepts := ExtractConcepts(start)
	if len(startConcepts) == 0 {
		return []*model.DiscoveryHypothesis{}, nil
	}
	a := startConcepts[0]
	own := map[string]bool{}
	for _, concept := range startConcepts {
		own[strings.ToLower(concept)] = true
	}

	others, err := e.resources.SelectAllResources(ctx, e.config.OpenDiscoveryScan)
	if err != nil {
		return nil, helper.NewError("select resources", err)
	}
	candidates := []string{}
	for _, r := range others {
		if r.ID == startID {
			continue
		}
		for _, concept := range ExtractConcepts(r) {
			key := strings.ToLower(concept)
			if own[key] {
				continue
			}
			own[key] = true
			candidates = append(candidates, concept)
		}
	}
	if e.config.OpenDiscoveryCandidates > 0 && len(candidates) > e.config.OpenDiscoveryCandidates {
		candidates = candidates[:e.config.OpenDiscoveryCandidates]
	}

	aMatches, err := e.FindResourcesWithConcept(ctx, a, nil)
	if err != nil {
		return nil, err
	}

	results := []*model.DiscoveryHypothesis{}
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		hypotheses, err := e.discover(ctx, a, aMatches, c, nil)
		if err != nil {
			return nil, err
		}
		for _, h := range hypotheses {
			if h.Plausibility >= threshold {
				results = append(results, h)
			}
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Plausibility > results[j].Plausibility
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	e.warnIfSlow("open discovery", time.Since(begin))
	e.logger.Info("Open discovery finished", slog.String("concept_a", a), slog.Int("candidates", len(candidates)), slog.Int("hypotheses", len(results)))

	return results, nil
}

// ClosedDiscovery returns the bridging concepts between the first concepts of two resources.
func (e *Engine) ClosedDiscovery(ctx context.Context, aID, cID uuid.UUID, limit int) ([]*model.DiscoveryHypothesis, error) {
	aResource, err := e.resources.SelectResource(ctx, aID)
	if err != nil {
		return nil, helper.NewError("select resource a", err)
	}
	cResource, err := e.resources.SelectResource(ctx, cID)
	if err != nil {
		return nil, helper.NewError("select resource c", err)
	}

	aConcepts := ExtractConcepts(aResource)
	cConcepts := ExtractConcepts(cResource)
	if len(aConcepts) == 0 || len(cConcepts) == 0 {
		return []*model.DiscoveryHypothesis{}, nil
	}

	result, err := e.Discover(ctx, aConcepts[0], cConcepts[0], limit, nil)
	if err != nil {
		return nil, err
	}
	return result.Hypotheses, nil
}

// SaveHypotheses persists the hypotheses and sets their ids.
func (e *Engine) SaveHypotheses(ctx context.Context, hypotheses []*model.DiscoveryHypothesis) error {
	if e.hypotheses == nil {
		return helper.NewError("save hypotheses", helper.ErrUnavailable)
	}

	for _, h := range hypotheses {
		if err := e.hypotheses.InsertHypothesis(ctx, h); err != nil {
			return helper.NewError("insert hypothesis", err)
		}
	}
	return nil
}

// GetHypothesis loads a persisted hypothesis.
func (e *Engine) GetHypothesis(ctx context.Context, id uuid.UUID) (*model.DiscoveryHypothesis, error) {
	if e.hypotheses == nil {
		return nil, helper.NewError("get hypothesis", helper.ErrUnavailable)
	}

	hypothesis, err := e.hypotheses.SelectHypothesis(ctx, id)
	if err != nil {
		return nil, helper.NewError("select hypothesis", err)
	}
	return hypothesis, nil
}
