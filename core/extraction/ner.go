package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
	"github.com/siherrmann/kgraph/helper"
	"github.com/siherrmann/kgraph/model"
)

// RelationCoOccurs is the relationship type of entities found close to each other.
const RelationCoOccurs = "co_occurs"

// coOccurrenceDistance is the maximum character distance of co-occurring entities.
const coOccurrenceDistance = 100

// Token is one aggregated entity of a token classification run.
type Token struct {
	Label string
	Word  string
	Score float64
	Start int
}

// TokenClassifyFunc runs token classification on one text.
type TokenClassifyFunc func(ctx context.Context, text string) ([]Token, error)

// NERExtractor finds entities with a token classification model and links
// entities appearing close to each other.
type NERExtractor struct {
	classify TokenClassifyFunc
	session  *hugot.Session
	logger   *slog.Logger
}

// NewNERExtractor loads the distilbert-NER model with a hugot Go session.
// It detects PER, ORG, LOC and MISC entities.
func NewNERExtractor(logger *slog.Logger) (*NERExtractor, error) {
	modelPath, err := helper.PrepareModel("KnightsAnalytics/distilbert-NER", "model.onnx")
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.TokenClassificationConfig{
		ModelPath: modelPath,
		Name:      "kgraph-ner",
		Options: []hugot.TokenClassificationOption{
			pipelines.WithSimpleAggregation(),
			pipelines.WithIgnoreLabels([]string{"O"}),
		},
	}
	nerPipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create NER pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create NER pipeline: %w", err)
	}

	classify := func(ctx context.Context, text string) ([]Token, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		output, err := nerPipeline.RunPipeline([]string{text})
		if err != nil {
			return nil, fmt.Errorf("failed to run NER: %w", err)
		}
		if len(output.Entities) == 0 {
			return nil, nil
		}

		tokens := make([]Token, 0, len(output.Entities[0]))
		for _, entity := range output.Entities[0] {
			tokens = append(tokens, Token{
				Label: entity.Entity,
				Word:  entity.Word,
				Score: float64(entity.Score),
				Start: int(entity.Start),
			})
		}
		return tokens, nil
	}

	extractor := NewNERExtractorWithClassifier(classify, logger)
	extractor.session = session
	return extractor, nil
}

// NewNERExtractorWithClassifier creates an extractor on top of any token classifier.
func NewNERExtractorWithClassifier(classify TokenClassifyFunc, logger *slog.Logger) *NERExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &NERExtractor{classify: classify, logger: logger}
}

func (e *NERExtractor) Extract(ctx context.Context, text string) (*model.ExtractionResult, error) {
	result := newResult(model.ExtractionNER)
	if strings.TrimSpace(text) == "" {
		return result, nil
	}

	tokens, err := e.classify(ctx, text)
	if err != nil {
		return nil, helper.NewError("token classification", err)
	}

	entities := []*model.Entity{}
	starts := []int{}
	for _, token := range tokens {
		name := strings.TrimSpace(token.Word)
		if name == "" {
			continue
		}
		entities = append(entities, &model.Entity{
			Name:       name,
			Type:       normalizeEntityType(token.Label),
			Confidence: token.Score,
			Source:     model.ExtractionNER,
			Metadata:   model.Metadata{"start": token.Start},
		})
		starts = append(starts, token.Start)
	}

	relationships := []*model.Relationship{}
	for i := 0; i < len(entities); i++ {
		for j := i + 1; j < len(entities); j++ {
			if strings.EqualFold(entities[i].Name, entities[j].Name) {
				continue
			}
			distance := starts[j] - starts[i]
			if distance < 0 {
				distance = -distance
			}
			if distance < coOccurrenceDistance {
				relationships = append(relationships, &model.Relationship{
					Source: entities[i].Name,
					Target: entities[j].Name,
					Type:   RelationCoOccurs,
					Weight: coOccurrenceWeight(distance),
				})
			}
		}
	}

	result.Entities = MergeEntities(entities)
	result.Relationships = MergeRelationships(relationships)
	return result, nil
}

// Close releases the hugot session if the extractor owns one.
func (e *NERExtractor) Close() error {
	if e.session == nil {
		return nil
	}
	return e.session.Destroy()
}

// normalizeEntityType strips the B- and I- prefixes of BIO labels.
func normalizeEntityType(label string) string {
	label = strings.TrimPrefix(label, "B-")
	label = strings.TrimPrefix(label, "I-")
	return strings.ToUpper(label)
}

// coOccurrenceWeight is 1 for adjacent entities and falls linearly to 0 at 200 characters.
func coOccurrenceWeight(distance int) float64 {
	return max(1.0-float64(distance)/200.0, 0)
}
