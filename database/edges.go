package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/kgraph/helper"
	"github.com/siherrmann/kgraph/model"
	loadSql "github.com/siherrmann/kgraph/sql"
)

// EdgesDBHandlerFunctions defines the interface for graph edge database operations.
type EdgesDBHandlerFunctions interface {
	InsertEdge(ctx context.Context, edge *model.GraphEdge) error
	SelectEdge(ctx context.Context, id uuid.UUID) (*model.GraphEdge, error)
	SelectAllEdges(ctx context.Context) ([]*model.GraphEdge, error)
	SelectEdgesAmong(ctx context.Context, ids []uuid.UUID) ([]*model.GraphEdge, error)
	SelectEdgesByResource(ctx context.Context, resourceID uuid.UUID) ([]*model.GraphEdge, error)
	UpdateEdgeWeight(ctx context.Context, id uuid.UUID, weight float64) error
	DeleteEdge(ctx context.Context, id uuid.UUID) error
}

// EdgesDBHandler handles graph edge related database operations
type EdgesDBHandler struct {
	db *helper.Database
}

// NewEdgesDBHandler creates a new edges database handler.
// It initializes the database connection and loads edge-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewEdgesDBHandler(db *helper.Database, force bool) (*EdgesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	edgesDbHandler := &EdgesDBHandler{
		db: db,
	}

	err := loadSql.LoadGraphEdgesSql(edgesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load edges sql", err)
	}

	err = edgesDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized EdgesDBHandler")

	return edgesDbHandler, nil
}

// CreateTable creates the 'graph_edges' table in the database.
// If the table already exists, it does not create it again.
func (h *EdgesDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_graph_edges();`)
	if err != nil {
		log.Panicf("error initializing graph_edges table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table graph_edges")

	return nil
}

// InsertEdge inserts a new edge, negative weights are rejected
func (h *EdgesDBHandler) InsertEdge(ctx context.Context, edge *model.GraphEdge) error {
	if edge.Weight < 0 {
		return helper.NewError("weight validation", fmt.Errorf("%w: edge weight must be >= 0, got %v", helper.ErrInvalidParameter, edge.Weight))
	}
	if edge.Metadata == nil {
		edge.Metadata = model.Metadata{}
	}

	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM insert_graph_edge($1, $2, $3, $4, $5)`,
		edge.SourceID,
		edge.TargetID,
		edge.EdgeType,
		edge.Weight,
		edge.Metadata,
	)

	err := scanEdge(row, edge)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectEdge retrieves an edge by ID
func (h *EdgesDBHandler) SelectEdge(ctx context.Context, id uuid.UUID) (*model.GraphEdge, error) {
	row := h.db.Instance.QueryRowContext(ctx, `SELECT * FROM select_graph_edge($1)`, id)

	edge := &model.GraphEdge{}
	err := scanEdge(row, edge)
	if err != nil {
		return nil, helper.MapNotFound("scan", err)
	}

	return edge, nil
}

// SelectAllEdges retrieves every edge ordered by creation
func (h *EdgesDBHandler) SelectAllEdges(ctx context.Context) ([]*model.GraphEdge, error) {
	return h.queryEdges(ctx, `SELECT * FROM select_all_graph_edges()`)
}

// SelectEdgesAmong retrieves edges with both endpoints in ids
func (h *EdgesDBHandler) SelectEdgesAmong(ctx context.Context, ids []uuid.UUID) ([]*model.GraphEdge, error) {
	if len(ids) == 0 {
		return []*model.GraphEdge{}, nil
	}
	return h.queryEdges(ctx, `SELECT * FROM select_graph_edges_among($1)`, uuidArrayOrNull(ids))
}

// SelectEdgesByResource retrieves edges starting or ending at a resource
func (h *EdgesDBHandler) SelectEdgesByResource(ctx context.Context, resourceID uuid.UUID) ([]*model.GraphEdge, error) {
	return h.queryEdges(ctx, `SELECT * FROM select_graph_edges_by_resource($1)`, resourceID)
}

// UpdateEdgeWeight updates the weight of an edge
func (h *EdgesDBHandler) UpdateEdgeWeight(ctx context.Context, id uuid.UUID, weight float64) error {
	if weight < 0 {
		return helper.NewError("weight validation", fmt.Errorf("%w: edge weight must be >= 0, got %v", helper.ErrInvalidParameter, weight))
	}

	var affected int
	err := h.db.Instance.QueryRowContext(ctx, `SELECT update_graph_edge_weight($1, $2)`, id, weight).Scan(&affected)
	if err != nil {
		return helper.NewError("exec", err)
	}
	if affected == 0 {
		return helper.NewError("update edge weight", helper.ErrNotFound)
	}
	return nil
}

// DeleteEdge deletes an edge by ID
func (h *EdgesDBHandler) DeleteEdge(ctx context.Context, id uuid.UUID) error {
	var affected int
	err := h.db.Instance.QueryRowContext(ctx, `SELECT delete_graph_edge($1)`, id).Scan(&affected)
	if err != nil {
		return helper.NewError("exec", err)
	}
	if affected == 0 {
		return helper.NewError("delete edge", helper.ErrNotFound)
	}
	return nil
}

func (h *EdgesDBHandler) queryEdges(ctx context.Context, query string, args ...interface{}) ([]*model.GraphEdge, error) {
	rows, err := h.db.Instance.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	edges := []*model.GraphEdge{}
	for rows.Next() {
		edge := &model.GraphEdge{}
		err := scanEdge(rows, edge)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		edges = append(edges, edge)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return edges, nil
}

func scanEdge(row rowScanner, edge *model.GraphEdge) error {
	return row.Scan(
		&edge.ID,
		&edge.SourceID,
		&edge.TargetID,
		&edge.EdgeType,
		&edge.Weight,
		&edge.Metadata,
		&edge.CreatedAt,
	)
}
