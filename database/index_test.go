package database

import (
	"context"
	"testing"
	"time"

	"github.com/siherrmann/kgraph/helper"
	"github.com/stretchr/testify/assert"
)

func TestChangeIndexType(t *testing.T) {
	database := initDB(t)
	resourcesDbHandler := initResources(t, database)

	ctx := context.Background()

	t.Run("Change index to HNSW with default params", func(t *testing.T) {
		err := resourcesDbHandler.ChangeIndexType(ctx, IndexTypeHNSW, map[string]interface{}{})
		assert.NoError(t, err, "Expected ChangeIndexType to hnsw to not return an error")
	})

	t.Run("Change index to HNSW with custom params", func(t *testing.T) {
		params := map[string]interface{}{
			"m":               32,
			"ef_construction": 128,
		}
		err := resourcesDbHandler.ChangeIndexType(ctx, IndexTypeHNSW, params)
		assert.NoError(t, err, "Expected ChangeIndexType to hnsw with custom params to not return an error")
	})

	t.Run("Change index to IVFFlat with custom params", func(t *testing.T) {
		err := resourcesDbHandler.ChangeIndexType(ctx, IndexTypeIVFFlat, map[string]interface{}{"lists": 10})
		assert.NoError(t, err, "Expected ChangeIndexType to ivfflat to not return an error")
	})

	t.Run("Change index with unsupported index type", func(t *testing.T) {
		err := resourcesDbHandler.ChangeIndexType(ctx, "invalid", nil)
		assert.ErrorIs(t, err, helper.ErrInvalidParameter, "Expected invalid parameter error")
		assert.Contains(t, err.Error(), "unsupported index type", "Expected error message to mention unsupported index type")
	})

	t.Run("Change index with expired context", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
		defer cancel()
		time.Sleep(time.Millisecond)

		err := resourcesDbHandler.ChangeIndexType(ctx, IndexTypeHNSW, nil)
		assert.Error(t, err, "Expected error with expired context")
	})
}
