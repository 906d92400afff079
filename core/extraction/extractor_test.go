package extraction

import (
	"context"
	"errors"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/siherrmann/kgraph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockChatClient returns a fixed completion
type MockChatClient struct {
	content  string
	err      error
	requests []openai.ChatCompletionRequest
}

func (m *MockChatClient) CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.requests = append(m.requests, request)
	if m.err != nil {
		return openai.ChatCompletionResponse{}, m.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: m.content}}},
	}, nil
}

func staticClassifier(tokens ...Token) TokenClassifyFunc {
	return func(ctx context.Context, text string) ([]Token, error) {
		return tokens, nil
	}
}

func TestMergeEntities(t *testing.T) {
	a := []*model.Entity{
		{Name: "Berlin", Type: "LOC", Confidence: 0.6, Source: model.ExtractionNER},
		{Name: "Ada Lovelace", Type: "PER", Confidence: 0.9, Source: model.ExtractionNER},
	}
	b := []*model.Entity{
		{Name: "berlin ", Type: "loc", Confidence: 0.95, Source: model.ExtractionLLM},
		{Name: "Berlin", Type: "ORG", Confidence: 0.5, Source: model.ExtractionLLM},
		nil,
	}

	merged := MergeEntities(a, b)
	require.Len(t, merged, 3, "Expected same name with other type to stay separate")
	assert.Equal(t, 0.95, merged[0].Confidence, "Expected the highest confidence to win")
	assert.Equal(t, model.ExtractionLLM, merged[0].Source)
	assert.Equal(t, "Ada Lovelace", merged[1].Name)
	assert.Equal(t, "ORG", merged[2].Type)
	assert.Equal(t, 0.6, a[0].Confidence, "Expected inputs to stay untouched")
}

func TestMergeRelationships(t *testing.T) {
	merged := MergeRelationships(
		[]*model.Relationship{{Source: "A", Target: "B", Type: "cites", Weight: 0.4}},
		[]*model.Relationship{{Source: "a", Target: "b", Type: "CITES", Weight: 0.7}, {Source: "B", Target: "A", Type: "cites", Weight: 0.1}},
	)
	require.Len(t, merged, 2, "Expected direction to matter")
	assert.Equal(t, 0.7, merged[0].Weight)
	assert.Equal(t, "A", merged[0].Source)
}

func TestLLMExtractor(t *testing.T) {
	ctx := context.Background()

	t.Run("Parses fenced and malformed json", func(t *testing.T) {
		client := &MockChatClient{content: "```json\n{\"entities\": [{\"name\": \"Transformer\", \"type\": \"method\", \"confidence\": 0.9}, {\"name\": \"Google\", \"type\": \"organization\"},], \"relationships\": [{\"source\": \"Google\", \"target\": \"Transformer\", \"type\": \"Developed\"}]\n```"}
		extractor := NewLLMExtractorWithClient(client, "", nil)

		result, err := extractor.Extract(ctx, "Google developed the Transformer.")
		require.NoError(t, err, "Expected Extract to not return an error")
		assert.Equal(t, model.ExtractionLLM, result.Method)
		require.Len(t, result.Entities, 2)
		assert.Equal(t, "METHOD", result.Entities[0].Type)
		assert.Equal(t, defaultLLMConfidence, result.Entities[1].Confidence, "Expected default confidence when missing")
		require.Len(t, result.Relationships, 1)
		assert.Equal(t, "developed", result.Relationships[0].Type)
		assert.Equal(t, 1.0, result.Relationships[0].Weight)

		require.Len(t, client.requests, 1)
		assert.Equal(t, openai.GPT4oMini, client.requests[0].Model)
		assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, client.requests[0].ResponseFormat.Type)
	})

	t.Run("Empty text skips the request", func(t *testing.T) {
		client := &MockChatClient{}
		result, err := NewLLMExtractorWithClient(client, "m", nil).Extract(ctx, "  ")
		require.NoError(t, err)
		assert.Empty(t, result.Entities)
		assert.Empty(t, client.requests)
	})

	t.Run("Client errors are returned", func(t *testing.T) {
		client := &MockChatClient{err: errors.New("rate limited")}
		_, err := NewLLMExtractorWithClient(client, "m", nil).Extract(ctx, "text")
		assert.Error(t, err)
	})
}

func TestNERExtractor(t *testing.T) {
	ctx := context.Background()

	t.Run("Entities and co-occurrences", func(t *testing.T) {
		extractor := NewNERExtractorWithClassifier(staticClassifier(
			Token{Label: "B-PER", Word: "Wolfgang", Score: 0.98, Start: 11},
			Token{Label: "I-LOC", Word: " Berlin ", Score: 0.97, Start: 34},
			Token{Label: "ORG", Word: "Siemens", Score: 0.9, Start: 250},
			Token{Label: "LOC", Word: "", Score: 0.5, Start: 260},
		), nil)

		result, err := extractor.Extract(ctx, "My name is Wolfgang and I live in Berlin.")
		require.NoError(t, err)
		assert.Equal(t, model.ExtractionNER, result.Method)
		require.Len(t, result.Entities, 3)
		assert.Equal(t, "PER", result.Entities[0].Type)
		assert.Equal(t, "Berlin", result.Entities[1].Name)
		assert.Equal(t, "LOC", result.Entities[1].Type)

		require.Len(t, result.Relationships, 1, "Expected distant entities to not be linked")
		assert.Equal(t, RelationCoOccurs, result.Relationships[0].Type)
		assert.InDelta(t, 1.0-23.0/200.0, result.Relationships[0].Weight, 1e-9)
	})

	t.Run("Classifier errors are returned", func(t *testing.T) {
		extractor := NewNERExtractorWithClassifier(func(ctx context.Context, text string) ([]Token, error) {
			return nil, errors.New("model missing")
		}, nil)
		_, err := extractor.Extract(ctx, "text")
		assert.Error(t, err)
		assert.NoError(t, extractor.Close())
	})
}

func TestHybridExtractor(t *testing.T) {
	ctx := context.Background()
	llm := NewLLMExtractorWithClient(&MockChatClient{content: `{"entities":[{"name":"Berlin","type":"LOC","confidence":0.7}],"relationships":[]}`}, "m", nil)
	ner := NewNERExtractorWithClassifier(staticClassifier(
		Token{Label: "B-LOC", Word: "Berlin", Score: 0.99, Start: 0},
		Token{Label: "B-PER", Word: "Ada", Score: 0.8, Start: 10},
	), nil)

	t.Run("Results are merged", func(t *testing.T) {
		result, err := NewHybridExtractor(llm, ner, nil).Extract(ctx, "Berlin is Ada's city")
		require.NoError(t, err)
		assert.Equal(t, model.ExtractionHybrid, result.Method)
		require.Len(t, result.Entities, 2)
		assert.Equal(t, 0.99, result.Entities[0].Confidence)
		assert.Len(t, result.Relationships, 1)
	})

	t.Run("One failing backend falls back to the other", func(t *testing.T) {
		failing := NewLLMExtractorWithClient(&MockChatClient{err: errors.New("down")}, "m", nil)
		result, err := NewHybridExtractor(failing, ner, nil).Extract(ctx, "Berlin is Ada's city")
		require.NoError(t, err)
		assert.Equal(t, model.ExtractionNER, result.Method)

		_, err = NewHybridExtractor(failing, failing, nil).Extract(ctx, "Berlin")
		assert.Error(t, err)
	})

	t.Run("Close skips extractors without resources", func(t *testing.T) {
		assert.NoError(t, NewHybridExtractor(llm, ner, nil).Close())
	})

	t.Run("Unavailable extractor", func(t *testing.T) {
		result, err := NewUnavailableExtractor(nil).Extract(ctx, "Berlin")
		require.NoError(t, err)
		assert.Empty(t, result.Entities)
		assert.Empty(t, result.Relationships)
	})
}
