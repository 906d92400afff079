// Package embedding computes random-walk graph embeddings over the multi-layer
// graph and text embeddings of resources.
package embedding

import (
	"fmt"
	"strings"

	"github.com/siherrmann/kgraph/helper"
	"github.com/siherrmann/kgraph/model"
)

const (
	MinDimensions = 32
	MaxDimensions = 512
	MinWalkLength = 10
	MaxWalkLength = 200
	MinNumWalks   = 1
	MaxNumWalks   = 100
)

// ValidateParams checks the parameters and fills defaults for p, q and the window size.
// Out of range values are rejected with helper.ErrInvalidParameter.
func ValidateParams(params model.EmbeddingParams) (model.EmbeddingParams, error) {
	params.Algorithm = strings.ToLower(strings.TrimSpace(params.Algorithm))
	switch params.Algorithm {
	case model.AlgorithmNode2Vec, model.AlgorithmDeepWalk:
	default:
		return params, invalid("unknown algorithm %q", params.Algorithm)
	}

	if params.Dimensions < MinDimensions || params.Dimensions > MaxDimensions {
		return params, invalid("dimensions %d not in [%d, %d]", params.Dimensions, MinDimensions, MaxDimensions)
	}
	if params.WalkLength < MinWalkLength || params.WalkLength > MaxWalkLength {
		return params, invalid("walk length %d not in [%d, %d]", params.WalkLength, MinWalkLength, MaxWalkLength)
	}
	if params.NumWalks < MinNumWalks || params.NumWalks > MaxNumWalks {
		return params, invalid("num walks %d not in [%d, %d]", params.NumWalks, MinNumWalks, MaxNumWalks)
	}

	if params.Algorithm == model.AlgorithmDeepWalk {
		params.P, params.Q = 1, 1
	}
	if params.P < 0 || params.Q < 0 {
		return params, invalid("p and q must not be negative")
	}
	if params.P == 0 {
		params.P = 1
	}
	if params.Q == 0 {
		params.Q = 1
	}
	if params.WindowSize <= 0 {
		params.WindowSize = 5
	}

	return params, nil
}

func invalid(format string, args ...any) error {
	return helper.NewError("validate embedding params", fmt.Errorf("%w: "+format, append([]any{helper.ErrInvalidParameter}, args...)...))
}
