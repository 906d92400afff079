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

func TestHypotheses(t *testing.T) {
	database := initDB(t)
	hypothesesDbHandler, err := NewHypothesesDBHandler(database, true)
	require.NoError(t, err, "Expected NewHypothesesDBHandler to not return an error")
	ctx := context.Background()

	evidenceID := uuid.New()
	hypothesis := &model.DiscoveryHypothesis{
		ConceptA:        "fish oil",
		ConceptB:        "blood viscosity",
		ConceptC:        "raynaud",
		SupportStrength: 2,
		Novelty:         1,
		Confidence:      2,
		Plausibility:    2.0 / 3.0,
		Evidence: []model.EvidenceItem{
			{Type: model.EvidenceAB, ResourceID: evidenceID, Title: "Fish oil", Year: 1985},
		},
	}

	t.Run("Insert hypothesis", func(t *testing.T) {
		err := hypothesesDbHandler.InsertHypothesis(ctx, hypothesis)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, hypothesis.ID)
	})

	t.Run("Select hypothesis with evidence", func(t *testing.T) {
		selected, err := hypothesesDbHandler.SelectHypothesis(ctx, hypothesis.ID)
		require.NoError(t, err)
		assert.Equal(t, "blood viscosity", selected.ConceptB)
		require.Len(t, selected.Evidence, 1)
		assert.Equal(t, evidenceID, selected.Evidence[0].ResourceID)
		assert.Equal(t, 1985, selected.Evidence[0].Year)
	})

	t.Run("Select by concepts ignores case", func(t *testing.T) {
		c := "Raynaud"
		results, err := hypothesesDbHandler.SelectHypothesesByConcepts(ctx, "Fish Oil", &c)
		require.NoError(t, err)
		assert.Len(t, results, 1)

		results, err = hypothesesDbHandler.SelectHypothesesByConcepts(ctx, "fish oil", nil)
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})

	t.Run("Missing hypothesis returns not found", func(t *testing.T) {
		_, err := hypothesesDbHandler.SelectHypothesis(ctx, uuid.New())
		assert.ErrorIs(t, err, helper.ErrNotFound)
	})

	t.Run("Delete hypothesis", func(t *testing.T) {
		require.NoError(t, hypothesesDbHandler.DeleteHypothesis(ctx, hypothesis.ID))
		assert.ErrorIs(t, hypothesesDbHandler.DeleteHypothesis(ctx, hypothesis.ID), helper.ErrNotFound)
	})
}
