package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/knights-analytics/hugot"
	"github.com/siherrmann/kgraph/helper"
)

// TextDimensions is the size of the vectors of the default sentence transformer.
const TextDimensions = 384

// TextEmbedder embeds a text into a vector.
type TextEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbedFunc embeds a batch of texts.
type EmbedFunc func(texts []string) ([][]float32, error)

// HugotEmbedder embeds texts with a sentence transformer run by hugot.
type HugotEmbedder struct {
	embed   EmbedFunc
	session *hugot.Session
}

// NewHugotEmbedder loads all-MiniLM-L6-v2 into a hugot Go session.
func NewHugotEmbedder() (*HugotEmbedder, error) {
	modelPath, err := helper.PrepareModel("sentence-transformers/all-MiniLM-L6-v2", "onnx/model.onnx")
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "kgraph-embedder",
	}
	sentencePipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create sentence pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create sentence pipeline: %w", err)
	}

	embedder := NewHugotEmbedderWithFunc(func(texts []string) ([][]float32, error) {
		result, err := sentencePipeline.RunPipeline(texts)
		if err != nil {
			return nil, err
		}
		return result.Embeddings, nil
	})
	embedder.session = session
	return embedder, nil
}

// NewHugotEmbedderWithFunc wraps any batch embedding function.
func NewHugotEmbedderWithFunc(embed EmbedFunc) *HugotEmbedder {
	return &HugotEmbedder{embed: embed}
}

func (e *HugotEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, helper.NewError("embed", fmt.Errorf("%w: empty text", helper.ErrInvalidParameter))
	}

	embeddings, err := e.embed([]string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embedding generated")
	}
	return embeddings[0], nil
}

// Close releases the hugot session if the embedder owns one.
func (e *HugotEmbedder) Close() error {
	if e.session == nil {
		return nil
	}
	return e.session.Destroy()
}

// UnavailableTextEmbedder is used when no text embedding model is configured.
type UnavailableTextEmbedder struct {
	logger *slog.Logger
}

func NewUnavailableTextEmbedder(logger *slog.Logger) *UnavailableTextEmbedder {
	if logger == nil {
		logger = slog.Default()
	}
	return &UnavailableTextEmbedder{logger: logger}
}

// Embed logs a warning and fails with helper.ErrUnavailable.
func (u *UnavailableTextEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	u.logger.Warn("Text embeddings unavailable")
	return nil, helper.NewError("embed", helper.ErrUnavailable)
}
