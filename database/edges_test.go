package database

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/siherrmann/kgraph/helper"
	"github.com/siherrmann/kgraph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEdgesNewEdgesDBHandler(t *testing.T) {
	database := initDB(t)
	initResources(t, database)

	t.Run("Valid call NewEdgesDBHandler", func(t *testing.T) {
		edgesDbHandler, err := NewEdgesDBHandler(database, true)
		assert.NoError(t, err, "Expected NewEdgesDBHandler to not return an error")
		require.NotNil(t, edgesDbHandler, "Expected NewEdgesDBHandler to return a non-nil instance")
		require.NotNil(t, edgesDbHandler.db.Instance, "Expected NewEdgesDBHandler to have a non-nil database connection instance")
	})

	t.Run("Invalid call NewEdgesDBHandler with nil database", func(t *testing.T) {
		_, err := NewEdgesDBHandler(nil, false)
		assert.Error(t, err, "Expected error when creating EdgesDBHandler with nil database")
		assert.Contains(t, err.Error(), "database connection is nil", "Expected specific error message for nil database connection")
	})
}

func TestEdgesCRUD(t *testing.T) {
	database := initDB(t)
	resourcesDbHandler := initResources(t, database)
	edgesDbHandler, err := NewEdgesDBHandler(database, true)
	require.NoError(t, err)
	ctx := context.Background()

	a := &model.Resource{Title: "A"}
	b := &model.Resource{Title: "B"}
	c := &model.Resource{Title: "C"}
	for _, r := range []*model.Resource{a, b, c} {
		require.NoError(t, resourcesDbHandler.InsertResource(ctx, r))
	}

	edge := &model.GraphEdge{SourceID: a.ID, TargetID: b.ID, EdgeType: model.EdgeTagCoauthorship, Weight: 0.5}

	t.Run("Insert edge", func(t *testing.T) {
		err := edgesDbHandler.InsertEdge(ctx, edge)
		require.NoError(t, err, "Expected Insert to not return an error")
		assert.NotEqual(t, uuid.Nil, edge.ID)
		assert.Equal(t, 0.5, edge.Weight)
	})

	t.Run("Insert negative weight is rejected", func(t *testing.T) {
		err := edgesDbHandler.InsertEdge(ctx, &model.GraphEdge{SourceID: a.ID, TargetID: c.ID, EdgeType: "subject", Weight: -1})
		assert.ErrorIs(t, err, helper.ErrInvalidParameter)
	})

	t.Run("Select edges", func(t *testing.T) {
		selected, err := edgesDbHandler.SelectEdge(ctx, edge.ID)
		require.NoError(t, err)
		assert.Equal(t, model.EdgeTagCoauthorship, selected.EdgeType)

		require.NoError(t, edgesDbHandler.InsertEdge(ctx, &model.GraphEdge{SourceID: b.ID, TargetID: c.ID, EdgeType: model.EdgeTagSubject, Weight: 1}))

		all, err := edgesDbHandler.SelectAllEdges(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)

		among, err := edgesDbHandler.SelectEdgesAmong(ctx, []uuid.UUID{a.ID, b.ID})
		require.NoError(t, err)
		assert.Len(t, among, 1, "Expected only edges inside the id set")

		byResource, err := edgesDbHandler.SelectEdgesByResource(ctx, b.ID)
		require.NoError(t, err)
		assert.Len(t, byResource, 2)
	})

	t.Run("Update weight", func(t *testing.T) {
		require.NoError(t, edgesDbHandler.UpdateEdgeWeight(ctx, edge.ID, 0.9))
		selected, err := edgesDbHandler.SelectEdge(ctx, edge.ID)
		require.NoError(t, err)
		assert.Equal(t, 0.9, selected.Weight)
	})

	t.Run("Delete edge", func(t *testing.T) {
		require.NoError(t, edgesDbHandler.DeleteEdge(ctx, edge.ID))
		_, err := edgesDbHandler.SelectEdge(ctx, edge.ID)
		assert.ErrorIs(t, err, helper.ErrNotFound)
	})
}
