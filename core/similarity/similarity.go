// Package similarity holds the pure scoring functions that fuse embedding
// similarity, subject overlap and classification match into one edge weight.
package similarity

import (
	"math"
	"sort"

	"github.com/siherrmann/kgraph/model"
)

// Weights are the factors of the hybrid weight.
type Weights struct {
	Vector         float64
	Tag            float64
	Classification float64
}

// WeightsFromConfig returns the hybrid weights configured in c.
func WeightsFromConfig(c model.EngineConfig) Weights {
	return Weights{
		Vector:         c.VectorWeight,
		Tag:            c.TagWeight,
		Classification: c.ClassificationWeight,
	}
}

// CosineSimilarity returns the cosine of the angle between a and b, clamped to [-1, 1].
// Empty vectors, vectors of different length and zero vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0.0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}

	return clamp(dot/(math.Sqrt(normA)*math.Sqrt(normB)), -1, 1)
}

// TagOverlapScore scores shared subjects: one shared subject is worth 0.5 and
// every further one adds 0.1, up to 1.0. The shared subjects are returned sorted.
// Matching is exact and case-sensitive.
func TagOverlapScore(subjectsA, subjectsB []string) (float64, []string) {
	if len(subjectsA) == 0 || len(subjectsB) == 0 {
		return 0.0, []string{}
	}

	inB := make(map[string]bool, len(subjectsB))
	for _, s := range subjectsB {
		inB[s] = true
	}

	seen := map[string]bool{}
	shared := []string{}
	for _, s := range subjectsA {
		if inB[s] && !seen[s] {
			seen[s] = true
			shared = append(shared, s)
		}
	}
	if len(shared) == 0 {
		return 0.0, shared
	}
	sort.Strings(shared)

	return math.Min(1.0, 0.5+float64(len(shared)-1)*0.1), shared
}

// ClassificationMatchScore returns 1 if both codes are set and equal, 0 otherwise.
func ClassificationMatchScore(codeA, codeB *string) float64 {
	if codeA == nil || codeB == nil || *codeA != *codeB {
		return 0.0
	}
	return 1.0
}

// HybridWeight fuses the three component scores into a weight in [0, 1].
// Negative vector scores count as 0.
func HybridWeight(vectorScore, tagScore, classScore float64, w Weights) float64 {
	v := math.Max(0, vectorScore)
	return clamp(w.Vector*v+w.Tag*tagScore+w.Classification*classScore, 0, 1)
}

// ConnectionType labels an edge by its strongest kind of evidence.
func ConnectionType(tagScore, classScore float64) string {
	switch {
	case classScore > 0:
		return model.ConnectionClassification
	case tagScore > 0:
		return model.ConnectionTopical
	default:
		return model.ConnectionSemantic
	}
}

// Scored holds all components of a pairwise score.
type Scored struct {
	Vector         float64
	Tag            float64
	Classification float64
	SharedSubjects []string
	Weight         float64
}

// Score computes every component of the hybrid score between a and b.
func Score(a, b *model.Resource, w Weights) Scored {
	vector := CosineSimilarity(a.Embedding, b.Embedding)
	tag, shared := TagOverlapScore(a.Subjects, b.Subjects)
	class := ClassificationMatchScore(a.ClassificationCode, b.ClassificationCode)

	return Scored{
		Vector:         vector,
		Tag:            tag,
		Classification: class,
		SharedSubjects: shared,
		Weight:         HybridWeight(vector, tag, class, w),
	}
}

// Details returns the edge details of the score. The vector similarity is only set if positive.
func (s Scored) Details() model.EdgeDetails {
	details := model.EdgeDetails{
		ConnectionType: ConnectionType(s.Tag, s.Classification),
		SharedSubjects: s.SharedSubjects,
	}
	if s.Vector > 0 {
		v := s.Vector
		details.VectorSimilarity = &v
	}
	return details
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
