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

func initCitations(t *testing.T) (*ResourcesDBHandler, *CitationsDBHandler) {
	database := initDB(t)
	resourcesDbHandler := initResources(t, database)
	citationsDbHandler, err := NewCitationsDBHandler(database, true)
	require.NoError(t, err, "Expected NewCitationsDBHandler to not return an error")
	return resourcesDbHandler, citationsDbHandler
}

func TestCitationsNewCitationsDBHandler(t *testing.T) {
	t.Run("Invalid call NewCitationsDBHandler with nil database", func(t *testing.T) {
		_, err := NewCitationsDBHandler(nil, false)
		assert.Error(t, err, "Expected error when creating CitationsDBHandler with nil database")
		assert.Contains(t, err.Error(), "database connection is nil")
	})
}

func TestCitationsInsertAndResolve(t *testing.T) {
	resourcesDbHandler, citationsDbHandler := initCitations(t)
	ctx := context.Background()

	source := &model.Resource{Title: "Source"}
	target := &model.Resource{Title: "Target", SourceURL: "https://foo.com/a"}
	require.NoError(t, resourcesDbHandler.InsertResource(ctx, source))
	require.NoError(t, resourcesDbHandler.InsertResource(ctx, target))

	snippet := "see https://foo.com/a for details"
	candidates := []model.CitationCandidate{
		{TargetURL: "https://foo.com/a", CitationType: model.CitationTypeGeneral, ContextSnippet: &snippet, Position: 0},
		{TargetURL: "https://github.com/org/repo", CitationType: model.CitationTypeCode, Position: 1},
	}

	var inserted []*model.Citation

	t.Run("Insert citations in one transaction", func(t *testing.T) {
		var err error
		inserted, err = citationsDbHandler.InsertCitations(ctx, source.ID, candidates)
		require.NoError(t, err)
		require.Len(t, inserted, 2)
		assert.Nil(t, inserted[0].TargetResourceID, "Expected unresolved citation")
		assert.Equal(t, snippet, *inserted[0].ContextSnippet)
		assert.Nil(t, inserted[1].ContextSnippet)
		assert.Equal(t, model.CitationTypeCode, inserted[1].CitationType)
	})

	t.Run("Insert rolls back completely on failure", func(t *testing.T) {
		_, err := citationsDbHandler.InsertCitations(ctx, uuid.New(), candidates)
		assert.Error(t, err, "Expected foreign key failure for unknown source")

		all, err := citationsDbHandler.SelectUnresolvedCitations(ctx, nil)
		require.NoError(t, err)
		assert.Len(t, all, 2, "Expected no partial insert")
	})

	t.Run("Select unresolved citations scoped by source", func(t *testing.T) {
		unresolved, err := citationsDbHandler.SelectUnresolvedCitations(ctx, []uuid.UUID{source.ID})
		require.NoError(t, err)
		assert.Len(t, unresolved, 2)

		unresolved, err = citationsDbHandler.SelectUnresolvedCitations(ctx, []uuid.UUID{target.ID})
		require.NoError(t, err)
		assert.Empty(t, unresolved)
	})

	t.Run("Resolve citation", func(t *testing.T) {
		updated, err := citationsDbHandler.ResolveCitations(ctx, []model.CitationResolution{
			{CitationID: inserted[0].ID, TargetResourceID: target.ID},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, updated)

		citation, err := citationsDbHandler.SelectCitation(ctx, inserted[0].ID)
		require.NoError(t, err)
		require.NotNil(t, citation.TargetResourceID)
		assert.Equal(t, target.ID, *citation.TargetResourceID)

		resolved, err := citationsDbHandler.SelectResolvedCitations(ctx, []uuid.UUID{target.ID})
		require.NoError(t, err)
		assert.Len(t, resolved, 1)
	})

	t.Run("Resolved citation is not overwritten", func(t *testing.T) {
		updated, err := citationsDbHandler.ResolveCitations(ctx, []model.CitationResolution{
			{CitationID: inserted[0].ID, TargetResourceID: source.ID},
		})
		require.NoError(t, err)
		assert.Equal(t, 0, updated, "Expected no update for an already resolved citation")

		citation, err := citationsDbHandler.SelectCitation(ctx, inserted[0].ID)
		require.NoError(t, err)
		require.NotNil(t, citation.TargetResourceID)
		assert.Equal(t, target.ID, *citation.TargetResourceID, "Expected the first resolution to be kept")
	})

	t.Run("Re-extraction keeps the resolution", func(t *testing.T) {
		_, err := citationsDbHandler.InsertCitations(ctx, source.ID, candidates[:1])
		require.NoError(t, err)

		citation, err := citationsDbHandler.SelectCitation(ctx, inserted[0].ID)
		require.NoError(t, err)
		assert.NotNil(t, citation.TargetResourceID, "Expected resolution to survive re-extraction")
	})

	t.Run("Update importance", func(t *testing.T) {
		err := citationsDbHandler.UpdateCitationImportance(ctx, map[uuid.UUID]float64{inserted[0].ID: 0.75})
		require.NoError(t, err)

		citation, err := citationsDbHandler.SelectCitation(ctx, inserted[0].ID)
		require.NoError(t, err)
		require.NotNil(t, citation.ImportanceScore)
		assert.Equal(t, 0.75, *citation.ImportanceScore)
	})

	t.Run("Select by source is ordered by position", func(t *testing.T) {
		citations, err := citationsDbHandler.SelectCitationsBySource(ctx, source.ID)
		require.NoError(t, err)
		require.Len(t, citations, 2)
		assert.Equal(t, 0, citations[0].Position)
		assert.Equal(t, 1, citations[1].Position)
	})

	t.Run("Missing citation returns not found", func(t *testing.T) {
		_, err := citationsDbHandler.SelectCitation(ctx, uuid.New())
		assert.ErrorIs(t, err, helper.ErrNotFound)
	})

	t.Run("Delete citation", func(t *testing.T) {
		require.NoError(t, citationsDbHandler.DeleteCitation(ctx, inserted[1].ID))
		assert.ErrorIs(t, citationsDbHandler.DeleteCitation(ctx, inserted[1].ID), helper.ErrNotFound)
	})
}
