package kgraph

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/siherrmann/kgraph/core/embedding"
	"github.com/siherrmann/kgraph/core/extraction"
	"github.com/siherrmann/kgraph/core/graph"
	"github.com/siherrmann/kgraph/helper"
	"github.com/siherrmann/kgraph/model"
	loadSql "github.com/siherrmann/kgraph/sql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEmbeddingDim = 3

func initKGraph(t *testing.T) *KGraph {
	helper.SetTestDatabaseConfigEnvs(t, dbPort)
	dbConfig, err := helper.NewDatabaseConfiguration()
	require.NoError(t, err, "failed to create database configuration")

	// Every test starts from empty tables.
	database := helper.NewTestDatabase(dbConfig)
	require.NoError(t, loadSql.Init(database.Instance))
	_, err = database.Instance.Exec(`DROP TABLE IF EXISTS citations, graph_edges, discovery_hypotheses, resources CASCADE;`)
	require.NoError(t, err)
	require.NoError(t, database.Close())

	k, err := NewKGraph(dbConfig, model.DefaultEngineConfig(), testEmbeddingDim)
	require.NoError(t, err, "failed to create kgraph")
	require.NotNil(t, k, "expected kgraph to be non-nil")

	t.Cleanup(func() {
		k.Close()
	})

	return k
}

func addResource(t *testing.T, k *KGraph, resource *model.Resource) *model.Resource {
	err := k.AddResource(context.Background(), resource)
	require.NoError(t, err, "Expected AddResource to not return an error")
	return resource
}

func TestNewKGraph(t *testing.T) {
	t.Run("Valid call NewKGraph", func(t *testing.T) {
		k := initKGraph(t)
		assert.NotNil(t, k.DB, "Expected kgraph to have a database instance")
		assert.NotNil(t, k.Resources, "Expected kgraph to have resources handler")
		assert.NotNil(t, k.Citations, "Expected kgraph to have citations handler")
		assert.NotNil(t, k.Edges, "Expected kgraph to have edges handler")
		assert.NotNil(t, k.Hypotheses, "Expected kgraph to have hypotheses handler")
		assert.Nil(t, k.GetCacheTimestamp(), "Expected no cached graph initially")
	})

	t.Run("KGraph with nil database handles Close gracefully", func(t *testing.T) {
		k := &KGraph{}
		err := k.Close()
		assert.NoError(t, err, "Expected Close to handle nil DB gracefully")
	})

	t.Run("Add nil resource", func(t *testing.T) {
		k := initKGraph(t)
		err := k.AddResource(context.Background(), nil)
		assert.ErrorIs(t, err, helper.ErrInvalidParameter)
	})
}

func TestKGraphCitationsAndGraph(t *testing.T) {
	k := initKGraph(t)
	ctx := context.Background()

	b := addResource(t, k, &model.Resource{Title: "Cited B", SourceURL: "https://example.com/b"})
	c := addResource(t, k, &model.Resource{Title: "Cited C", SourceURL: "https://example.com/c/"})
	a := addResource(t, k, &model.Resource{
		Title:         "Citing A",
		ContentFormat: model.FormatHTML,
		Content:       `<html><body><p>See <a href="https://example.com/b">B</a> and <a href="https://Example.com/c">C</a> and <a href="https://elsewhere.org/x">X</a>.</p></body></html>`,
	})

	t.Run("Extract citations", func(t *testing.T) {
		citations, err := k.ExtractCitations(ctx, a.ID)
		require.NoError(t, err, "Expected ExtractCitations to not return an error")
		assert.Len(t, citations, 3, "Expected one citation per link")
	})

	t.Run("Resolve internal citations", func(t *testing.T) {
		resolved, err := k.ResolveInternalCitations(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, resolved, "Expected links to known resources to resolve")

		resolved, err = k.ResolveInternalCitations(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, resolved, "Expected resolution to be idempotent")
	})

	t.Run("Build multi-layer graph", func(t *testing.T) {
		g, err := k.BuildMultilayerGraph(ctx, true)
		require.NoError(t, err)
		assert.Equal(t, 3, g.NodeCount())
		assert.Equal(t, 2, g.EdgeCount(), "Expected one edge per resolved citation")
		assert.NotNil(t, k.GetCacheTimestamp(), "Expected cache timestamp after build")
	})

	t.Run("Neighbors and centrality", func(t *testing.T) {
		paths, err := k.GetNeighborsMultihop(ctx, a.ID, 1, graph.TraversalFilter{}, 0)
		require.NoError(t, err)
		assert.Len(t, paths, 2)

		paths, err = k.GetNeighborsMultihop(ctx, b.ID, 2, graph.TraversalFilter{}, 0)
		require.NoError(t, err)
		require.Len(t, paths, 1, "Expected c as the only two hop neighbor of b")
		assert.Equal(t, c.ID, paths[0].NeighborID)

		degree, err := k.ComputeDegreeCentrality(ctx, []uuid.UUID{a.ID, b.ID})
		require.NoError(t, err)
		assert.Equal(t, 2, degree[a.ID].OutDegree)
		assert.Equal(t, 1, degree[b.ID].InDegree)

		betweenness, err := k.ComputeBetweennessCentrality(ctx, []uuid.UUID{a.ID})
		require.NoError(t, err)
		assert.Greater(t, betweenness[a.ID], 0.0, "Expected a to lie between b and c")

		ranks, err := k.ComputePageRank(ctx, []uuid.UUID{a.ID, b.ID}, 0.85)
		require.NoError(t, err)
		assert.Greater(t, ranks[b.ID], ranks[a.ID], "Expected cited resource to rank higher")
	})

	t.Run("Citation graph and importance", func(t *testing.T) {
		citationGraph, err := k.GetCitationGraph(ctx, a.ID, 1)
		require.NoError(t, err)
		assert.Len(t, citationGraph.Nodes, 3)
		assert.Len(t, citationGraph.Edges, 2)

		importance, err := k.ComputeCitationImportance(ctx, nil)
		require.NoError(t, err)
		assert.NotEmpty(t, importance)
	})

	t.Run("Communities on typed edges", func(t *testing.T) {
		err := k.AddEdge(ctx, &model.GraphEdge{SourceID: b.ID, TargetID: c.ID, EdgeType: model.EdgeTagSubject, Weight: 0.5})
		require.NoError(t, err)

		result, err := k.DetectCommunities(ctx, []uuid.UUID{a.ID, b.ID, c.ID, uuid.New()}, 1.0)
		require.NoError(t, err)
		assert.Len(t, result.Assignments, 3, "Expected unknown ids to be ignored")
	})

	t.Run("Clear cache", func(t *testing.T) {
		k.ClearGraphCache()
		assert.Nil(t, k.GetCacheTimestamp())
	})

	t.Run("Graph embeddings", func(t *testing.T) {
		params := model.DefaultEmbeddingParams()
		run, err := k.GenerateGraphEmbeddings(ctx, params)
		require.NoError(t, err)
		assert.Equal(t, 3, run.EmbeddingsComputed)
		assert.Equal(t, params.Dimensions, run.Dimensions)

		vec, err := k.GetGraphEmbedding(a.ID)
		require.NoError(t, err)
		assert.Len(t, vec, params.Dimensions)

		similar, err := k.FindSimilarNodes(a.ID, -1, 10)
		require.NoError(t, err)
		assert.Len(t, similar, 2, "Expected all other nodes with a similarity floor of -1")

		_, err = k.GetGraphEmbedding(uuid.New())
		assert.ErrorIs(t, err, helper.ErrNotFound)

		params.Algorithm = "line"
		_, err = k.GenerateGraphEmbeddings(ctx, params)
		assert.ErrorIs(t, err, helper.ErrInvalidParameter)
	})
}

func TestKGraphDiscovery(t *testing.T) {
	k := initKGraph(t)
	ctx := context.Background()

	fish := addResource(t, k, &model.Resource{
		Title:       "Dietary fish oil",
		Description: "fish oil lowers blood viscosity",
		Subjects:    []string{"fish oil", "blood viscosity"},
	})
	raynaud := addResource(t, k, &model.Resource{
		Title:       "Raynaud patients",
		Description: "raynaud patients show elevated blood viscosity",
		Subjects:    []string{"raynaud", "blood viscosity"},
	})

	t.Run("Discover bridging concept", func(t *testing.T) {
		result, err := k.Discover(ctx, "fish oil", "raynaud", 10, nil)
		require.NoError(t, err)
		require.Equal(t, 1, result.Count)
		assert.Equal(t, "blood viscosity", result.Hypotheses[0].ConceptB)
		assert.Equal(t, 1.0, result.Hypotheses[0].Confidence)
	})

	t.Run("Closed discovery", func(t *testing.T) {
		hypotheses, err := k.ClosedDiscovery(ctx, fish.ID, raynaud.ID, 5)
		require.NoError(t, err)
		require.Len(t, hypotheses, 1)
		assert.Equal(t, "raynaud", hypotheses[0].ConceptC)
	})

	t.Run("Open discovery", func(t *testing.T) {
		hypotheses, err := k.OpenDiscovery(ctx, fish.ID, 5, 0)
		require.NoError(t, err)
		require.NotEmpty(t, hypotheses)
		assert.Equal(t, "raynaud", hypotheses[0].ConceptC)
	})

	t.Run("Save and load hypotheses", func(t *testing.T) {
		result, err := k.Discover(ctx, "fish oil", "raynaud", 10, nil)
		require.NoError(t, err)

		err = k.SaveHypotheses(ctx, result.Hypotheses)
		require.NoError(t, err)

		loaded, err := k.GetHypothesis(ctx, result.Hypotheses[0].ID)
		require.NoError(t, err)
		assert.Equal(t, "blood viscosity", loaded.ConceptB)

		_, err = k.GetHypothesis(ctx, uuid.New())
		assert.ErrorIs(t, err, helper.ErrNotFound)
	})
}

func TestKGraphResourceEmbeddingsAndEntities(t *testing.T) {
	k := initKGraph(t)
	ctx := context.Background()

	a := addResource(t, k, &model.Resource{Title: "Wolfgang in Berlin", Subjects: []string{"history"}})
	b := addResource(t, k, &model.Resource{Title: "Berlin walls", Subjects: []string{"history"}})

	t.Run("Unavailable text embedder", func(t *testing.T) {
		_, err := k.ComputeResourceEmbedding(ctx, a.ID)
		assert.ErrorIs(t, err, helper.ErrUnavailable)
	})

	t.Run("Compute resource embeddings", func(t *testing.T) {
		k.SetTextEmbedder(embedding.NewHugotEmbedderWithFunc(func(texts []string) ([][]float32, error) {
			out := make([][]float32, len(texts))
			for i, text := range texts {
				out[i] = []float32{1, float32(len(text)%3) / 4, 0}
			}
			return out, nil
		}))

		vec, err := k.ComputeResourceEmbedding(ctx, a.ID)
		require.NoError(t, err)
		assert.Len(t, vec, testEmbeddingDim)

		_, err = k.ComputeResourceEmbedding(ctx, b.ID)
		require.NoError(t, err)

		selected, err := k.Resources.SelectResource(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, vec, selected.Embedding, "Expected embedding to be stored")

		_, err = k.ComputeResourceEmbedding(ctx, uuid.New())
		assert.ErrorIs(t, err, helper.ErrNotFound)
	})

	t.Run("Hybrid neighbors use stored embeddings", func(t *testing.T) {
		kg, err := k.FindHybridNeighbors(ctx, a.ID, 5)
		require.NoError(t, err)
		require.Len(t, kg.Nodes, 2)
		assert.Equal(t, b.ID, kg.Nodes[1].ID)

		overview, err := k.GenerateGlobalOverview(ctx, 10, 0.5)
		require.NoError(t, err)
		assert.NotEmpty(t, overview.Edges)
	})

	t.Run("Extract entities", func(t *testing.T) {
		k.SetEntityExtractor(extraction.NewNERExtractorWithClassifier(func(ctx context.Context, text string) ([]extraction.Token, error) {
			if text == "" {
				return nil, fmt.Errorf("empty text")
			}
			return []extraction.Token{
				{Label: "B-PER", Word: "Wolfgang", Score: 0.9, Start: 0},
				{Label: "B-LOC", Word: "Berlin", Score: 0.95, Start: 12},
			}, nil
		}, nil))

		result, err := k.ExtractEntities(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, model.ExtractionNER, result.Method)
		assert.Len(t, result.Entities, 2)
		assert.Len(t, result.Relationships, 1, "Expected close entities to co-occur")
	})

	t.Run("Unavailable extractor returns empty result", func(t *testing.T) {
		k.SetEntityExtractor(nil)
		result, err := k.ExtractEntities(ctx, a.ID)
		require.NoError(t, err)
		assert.Empty(t, result.Entities)
	})
}
