package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/siherrmann/kgraph/helper"
)

const (
	IndexTypeHNSW    = "hnsw"
	IndexTypeIVFFlat = "ivfflat"
)

// ChangeIndexType rebuilds the resource embedding index as HNSW or IVFFlat.
// params are optional:
//   - hnsw: "m" (int, default 16), "ef_construction" (int, default 64)
//   - ivfflat: "lists" (int, default 100)
func (h *ResourcesDBHandler) ChangeIndexType(ctx context.Context, indexType string, params map[string]interface{}) error {
	var createIndexSQL string

	switch indexType {
	case IndexTypeHNSW:
		m := intParam(params, "m", 16)
		efConstruction := intParam(params, "ef_construction", 64)
		createIndexSQL = fmt.Sprintf(
			`CREATE INDEX idx_resources_embedding ON resources USING hnsw (embedding vector_cosine_ops) WITH (m = %d, ef_construction = %d);`,
			m, efConstruction,
		)

	case IndexTypeIVFFlat:
		lists := intParam(params, "lists", 100)
		createIndexSQL = fmt.Sprintf(
			`CREATE INDEX idx_resources_embedding ON resources USING ivfflat (embedding vector_cosine_ops) WITH (lists = %d);`,
			lists,
		)

	default:
		return helper.NewError("change index type", fmt.Errorf("%w: unsupported index type: %s (use 'hnsw' or 'ivfflat')", helper.ErrInvalidParameter, indexType))
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	tx, err := h.db.Instance.BeginTx(ctx, nil)
	if err != nil {
		return helper.NewError("begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `DROP INDEX IF EXISTS idx_resources_embedding;`)
	if err != nil {
		return helper.NewError("drop index", err)
	}

	_, err = tx.ExecContext(ctx, createIndexSQL)
	if err != nil {
		return helper.NewError("create index", err)
	}

	err = tx.Commit()
	if err != nil {
		return helper.NewError("commit", err)
	}

	h.db.Logger.Info("Rebuilt resource embedding index", slog.String("type", indexType), slog.Any("params", params))

	return nil
}

func intParam(params map[string]interface{}, key string, fallback int) int {
	if v, ok := params[key].(int); ok && v > 0 {
		return v
	}
	return fallback
}
