// Package extraction finds named entities and their relationships in resource text.
package extraction

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/siherrmann/kgraph/helper"
	"github.com/siherrmann/kgraph/model"
)

// EntityExtractor extracts entities and relationships from text.
type EntityExtractor interface {
	Extract(ctx context.Context, text string) (*model.ExtractionResult, error)
}

func newResult(method string) *model.ExtractionResult {
	return &model.ExtractionResult{
		Entities:      []*model.Entity{},
		Relationships: []*model.Relationship{},
		Method:        method,
	}
}

// UnavailableExtractor is used when no extraction backend is configured.
type UnavailableExtractor struct {
	logger *slog.Logger
}

func NewUnavailableExtractor(logger *slog.Logger) *UnavailableExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &UnavailableExtractor{logger: logger}
}

// Extract logs a warning and returns an empty result.
func (u *UnavailableExtractor) Extract(ctx context.Context, text string) (*model.ExtractionResult, error) {
	u.logger.Warn("Entity extraction unavailable, returning empty result")
	return newResult(""), nil
}

// HybridExtractor runs the LLM and the NER extractor and merges their results.
// If one of them fails the result of the other one is returned.
type HybridExtractor struct {
	llm    EntityExtractor
	ner    EntityExtractor
	logger *slog.Logger
}

func NewHybridExtractor(llm EntityExtractor, ner EntityExtractor, logger *slog.Logger) *HybridExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &HybridExtractor{llm: llm, ner: ner, logger: logger}
}

func (h *HybridExtractor) Extract(ctx context.Context, text string) (*model.ExtractionResult, error) {
	llmResult, llmErr := h.llm.Extract(ctx, text)
	if llmErr != nil {
		h.logger.Warn("LLM extraction failed", slog.String("error", llmErr.Error()))
	}
	nerResult, nerErr := h.ner.Extract(ctx, text)
	if nerErr != nil {
		h.logger.Warn("NER extraction failed", slog.String("error", nerErr.Error()))
	}

	switch {
	case llmErr != nil && nerErr != nil:
		return nil, helper.NewError("hybrid extraction", llmErr)
	case llmErr != nil:
		return nerResult, nil
	case nerErr != nil:
		return llmResult, nil
	}

	result := newResult(model.ExtractionHybrid)
	result.Entities = MergeEntities(llmResult.Entities, nerResult.Entities)
	result.Relationships = MergeRelationships(llmResult.Relationships, nerResult.Relationships)
	return result, nil
}

// Close closes the wrapped extractors that hold resources.
func (h *HybridExtractor) Close() error {
	var errs []error
	for _, e := range []EntityExtractor{h.llm, h.ner} {
		if closer, ok := e.(io.Closer); ok {
			errs = append(errs, closer.Close())
		}
	}
	return errors.Join(errs...)
}

// MergeEntities deduplicates entities by lower-cased name and type, keeping the
// one with the highest confidence at the position the entity was first seen.
func MergeEntities(lists ...[]*model.Entity) []*model.Entity {
	merged := []*model.Entity{}
	index := map[string]int{}

	for _, list := range lists {
		for _, entity := range list {
			if entity == nil {
				continue
			}
			key := entity.Key()
			if i, ok := index[key]; ok {
				if entity.Confidence > merged[i].Confidence {
					e := *entity
					merged[i] = &e
				}
				continue
			}
			e := *entity
			index[key] = len(merged)
			merged = append(merged, &e)
		}
	}
	return merged
}

// MergeRelationships deduplicates relationships by source, target and type, keeping the maximum weight.
func MergeRelationships(lists ...[]*model.Relationship) []*model.Relationship {
	merged := []*model.Relationship{}
	index := map[string]int{}

	for _, list := range lists {
		for _, rel := range list {
			if rel == nil {
				continue
			}
			key := rel.Key()
			if i, ok := index[key]; ok {
				merged[i].Weight = max(merged[i].Weight, rel.Weight)
				continue
			}
			r := *rel
			index[key] = len(merged)
			merged = append(merged, &r)
		}
	}
	return merged
}
