package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"
	"github.com/sashabaranov/go-openai"
	"github.com/siherrmann/kgraph/helper"
	"github.com/siherrmann/kgraph/model"
)

const llmSystemPrompt = `You extract named entities and relationships from scientific and technical text.
Answer with a single JSON object of the form
{"entities":[{"name":"...","type":"PERSON|ORGANIZATION|LOCATION|CONCEPT|METHOD|DATASET|MISC","confidence":0.0}],
 "relationships":[{"source":"entity name","target":"entity name","type":"snake_case_relation","weight":0.0}]}.
Only use entity names that appear in the text. Confidence and weight are between 0 and 1.`

// ChatClient is the part of the OpenAI client used for extraction.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// LLMConfiguration holds the settings of an OpenAI compatible endpoint.
type LLMConfiguration struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// NewLLMConfiguration reads KGRAPH_LLM_API_KEY, KGRAPH_LLM_BASE_URL, KGRAPH_LLM_MODEL
// and KGRAPH_LLM_TIMEOUT. It returns nil if no api key is set.
func NewLLMConfiguration() *LLMConfiguration {
	apiKey := helper.GetEnv("KGRAPH_LLM_API_KEY", "")
	if apiKey == "" {
		return nil
	}
	return &LLMConfiguration{
		APIKey:  apiKey,
		BaseURL: helper.GetEnv("KGRAPH_LLM_BASE_URL", ""),
		Model:   helper.GetEnv("KGRAPH_LLM_MODEL", openai.GPT4oMini),
		Timeout: helper.GetEnvDuration("KGRAPH_LLM_TIMEOUT", 60*time.Second),
	}
}

// LLMExtractor asks a chat model for entities and relationships in JSON mode.
type LLMExtractor struct {
	client  ChatClient
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

// NewLLMExtractor creates an extractor talking to the configured endpoint.
func NewLLMExtractor(config *LLMConfiguration, logger *slog.Logger) *LLMExtractor {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	extractor := NewLLMExtractorWithClient(openai.NewClientWithConfig(clientConfig), config.Model, logger)
	extractor.timeout = config.Timeout
	return extractor
}

// NewLLMExtractorWithClient creates an extractor on top of an existing client.
func NewLLMExtractorWithClient(client ChatClient, model string, logger *slog.Logger) *LLMExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &LLMExtractor{client: client, model: model, logger: logger}
}

func (e *LLMExtractor) Extract(ctx context.Context, text string) (*model.ExtractionResult, error) {
	result := newResult(model.ExtractionLLM)
	if strings.TrimSpace(text) == "" {
		return result, nil
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: llmSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, helper.NewError("chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return nil, helper.NewError("chat completion", fmt.Errorf("empty response"))
	}

	var raw llmResponse
	if err := unmarshalRepaired(resp.Choices[0].Message.Content, &raw); err != nil {
		return nil, helper.NewError("parse response", err)
	}

	for _, entity := range raw.Entities {
		name := strings.TrimSpace(entity.Name)
		if name == "" {
			continue
		}
		confidence := entity.Confidence
		if confidence <= 0 || confidence > 1 {
			confidence = defaultLLMConfidence
		}
		result.Entities = append(result.Entities, &model.Entity{
			Name:       name,
			Type:       strings.ToUpper(strings.TrimSpace(entity.Type)),
			Confidence: confidence,
			Source:     model.ExtractionLLM,
		})
	}
	for _, rel := range raw.Relationships {
		if strings.TrimSpace(rel.Source) == "" || strings.TrimSpace(rel.Target) == "" {
			continue
		}
		weight := rel.Weight
		if weight <= 0 {
			weight = 1.0
		}
		result.Relationships = append(result.Relationships, &model.Relationship{
			Source: strings.TrimSpace(rel.Source),
			Target: strings.TrimSpace(rel.Target),
			Type:   strings.ToLower(strings.TrimSpace(rel.Type)),
			Weight: min(weight, 1.0),
		})
	}
	result.Entities = MergeEntities(result.Entities)
	result.Relationships = MergeRelationships(result.Relationships)

	e.logger.Debug("LLM extraction completed",
		slog.Int("entities", len(result.Entities)),
		slog.Int("relationships", len(result.Relationships)),
		slog.Int64("latency_ms", time.Since(start).Milliseconds()),
		slog.Int("tokens", resp.Usage.TotalTokens),
	)

	return result, nil
}

const defaultLLMConfidence = 0.8

type llmResponse struct {
	Entities []struct {
		Name       string  `json:"name"`
		Type       string  `json:"type"`
		Confidence float64 `json:"confidence"`
	} `json:"entities"`
	Relationships []struct {
		Source string  `json:"source"`
		Target string  `json:"target"`
		Type   string  `json:"type"`
		Weight float64 `json:"weight"`
	} `json:"relationships"`
}

var codeFence = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")

// unmarshalRepaired strips markdown fences and repairs malformed JSON before decoding.
func unmarshalRepaired(content string, out any) error {
	content = strings.TrimSpace(content)
	if m := codeFence.FindStringSubmatch(content); len(m) > 1 {
		content = m[1]
	}

	if err := json.Unmarshal([]byte(content), out); err == nil {
		return nil
	}

	repaired, err := jsonrepair.JSONRepair(content)
	if err != nil {
		return fmt.Errorf("json repair failed: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), out); err != nil {
		return fmt.Errorf("unmarshal failed after repair: %w", err)
	}
	return nil
}
