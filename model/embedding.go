package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	AlgorithmNode2Vec = "node2vec"
	AlgorithmDeepWalk = "deepwalk"
)

// EmbeddingParams parameterizes random-walk graph embeddings.
// P and Q only apply to node2vec.
type EmbeddingParams struct {
	Algorithm  string  `json:"algorithm"`
	Dimensions int     `json:"dimensions"`
	WalkLength int     `json:"walk_length"`
	NumWalks   int     `json:"num_walks"`
	P          float64 `json:"p"`
	Q          float64 `json:"q"`
	WindowSize int     `json:"window_size"`
	Seed       int64   `json:"seed"`
}

// DefaultEmbeddingParams returns node2vec parameters with p = q = 1.
func DefaultEmbeddingParams() EmbeddingParams {
	return EmbeddingParams{
		Algorithm:  AlgorithmNode2Vec,
		Dimensions: 64,
		WalkLength: 30,
		NumWalks:   10,
		P:          1.0,
		Q:          1.0,
		WindowSize: 5,
		Seed:       42,
	}
}

type EmbeddingRun struct {
	EmbeddingsComputed int           `json:"embeddings_computed"`
	Dimensions         int           `json:"dimensions"`
	ExecutionTime      time.Duration `json:"execution_time"`
}

type SimilarNode struct {
	ID         uuid.UUID `json:"id"`
	Similarity float64   `json:"similarity"`
}
