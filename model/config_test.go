package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultEngineConfig(t *testing.T) {
	t.Run("Returns correct default values", func(t *testing.T) {
		config := DefaultEngineConfig()

		assert.Equal(t, 0.6, config.VectorWeight, "Default VectorWeight should be 0.6")
		assert.Equal(t, 0.3, config.TagWeight, "Default TagWeight should be 0.3")
		assert.Equal(t, 0.1, config.ClassificationWeight, "Default ClassificationWeight should be 0.1")
		assert.Equal(t, 20, config.MaxNeighborLimit, "Default MaxNeighborLimit should be 20")
		assert.Equal(t, 100, config.CitationBatchSize, "Default CitationBatchSize should be 100")
		assert.Equal(t, 50, config.MaxCitationsPerSource, "Default MaxCitationsPerSource should be 50")
		assert.Equal(t, 0.85, config.Damping, "Default Damping should be 0.85")
		assert.Equal(t, 100, config.PageRankMaxIter, "Default PageRankMaxIter should be 100")
		assert.Equal(t, 1e-6, config.PageRankTolerance, "Default PageRankTolerance should be 1e-6")
		assert.Equal(t, 5*time.Second, config.DiscoverySoftTarget, "Default DiscoverySoftTarget should be 5s")
	})

	t.Run("Default weights sum to 1.0", func(t *testing.T) {
		config := DefaultEngineConfig()

		sum := config.VectorWeight + config.TagWeight + config.ClassificationWeight
		assert.InDelta(t, 1.0, sum, 0.001, "Default weights should sum to 1.0")
	})
}

func TestEngineConfigFromEnv(t *testing.T) {
	t.Run("Override values from environment", func(t *testing.T) {
		t.Setenv("KGRAPH_VECTOR_WEIGHT", "0.5")
		t.Setenv("KGRAPH_CITATION_BATCH_SIZE", "10")
		t.Setenv("KGRAPH_DISCOVERY_SOFT_TARGET", "2s")

		config := EngineConfigFromEnv()

		assert.Equal(t, 0.5, config.VectorWeight)
		assert.Equal(t, 10, config.CitationBatchSize)
		assert.Equal(t, 2*time.Second, config.DiscoverySoftTarget)
		assert.Equal(t, 0.3, config.TagWeight, "Expected unset values to keep their default")
	})
}

func TestClampNeighborLimit(t *testing.T) {
	config := DefaultEngineConfig()

	t.Run("Non-positive limit uses default", func(t *testing.T) {
		assert.Equal(t, config.DefaultNeighborLimit, config.ClampNeighborLimit(0))
		assert.Equal(t, config.DefaultNeighborLimit, config.ClampNeighborLimit(-3))
	})

	t.Run("Limit is capped", func(t *testing.T) {
		assert.Equal(t, 20, config.ClampNeighborLimit(500))
		assert.Equal(t, 5, config.ClampNeighborLimit(5))
	})
}
