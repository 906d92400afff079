package main

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/siherrmann/kgraph"
	"github.com/siherrmann/kgraph/core/graph"
	"github.com/siherrmann/kgraph/database"
	"github.com/siherrmann/kgraph/helper"
	"github.com/siherrmann/kgraph/model"
)

const surveyContent = `# Omega-3 survey

Earlier work on [fish oil and blood viscosity](https://example.org/fish-oil) and on
[Raynaud's syndrome](https://example.org/raynaud) is summarized here.
The code is at https://github.com/example/omega and the data set at https://zenodo.org/record/42.`

func main() {
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "database",
		Username: "user",
		Password: "password",
		Schema:   "public",
		SSLMode:  "disable",
	}

	k, err := kgraph.NewKGraph(dbConfig, model.EngineConfigFromEnv(), 384)
	if err != nil {
		log.Fatalf("Failed to create kgraph: %v", err)
	}
	defer k.Close()

	// Citation events go to RabbitMQ if KGRAPH_AMQP_URL is set
	if err := k.UseAMQPPublisher(); err != nil {
		log.Printf("Warning: citation events disabled: %v", err)
	}

	ctx := context.Background()

	fishOil := &model.Resource{
		Title:       "Dietary fish oil",
		Description: "Fish oil lowers blood viscosity and platelet aggregation.",
		SourceURL:   "https://example.org/fish-oil",
		Subjects:    []string{"fish oil", "blood viscosity", "platelet aggregation"},
	}
	raynaud := &model.Resource{
		Title:       "Raynaud's syndrome",
		Description: "Patients with raynaud show high blood viscosity and platelet aggregation.",
		SourceURL:   "https://example.org/raynaud",
		Subjects:    []string{"raynaud", "blood viscosity", "platelet aggregation"},
	}
	survey := &model.Resource{
		Title:         "Omega-3 survey",
		ContentFormat: model.FormatMarkdown,
		Content:       surveyContent,
		Subjects:      []string{"fish oil"},
	}
	for _, r := range []*model.Resource{fishOil, raynaud, survey} {
		if err := k.AddResource(ctx, r); err != nil {
			log.Fatalf("Failed to add resource: %v", err)
		}
	}

	// Citations
	citations, err := k.ExtractCitations(ctx, survey.ID)
	if err != nil {
		log.Fatalf("Failed to extract citations: %v", err)
	}
	fmt.Printf("Extracted %d citations\n", len(citations))
	for _, c := range citations {
		fmt.Printf("  [%s] %s\n", c.CitationType, c.TargetURL)
	}

	resolved, err := k.ResolveInternalCitations(ctx, nil)
	if err != nil {
		log.Fatalf("Failed to resolve citations: %v", err)
	}
	fmt.Printf("Resolved %d citations to known resources\n", resolved)

	err = k.AddEdge(ctx, &model.GraphEdge{SourceID: fishOil.ID, TargetID: raynaud.ID, EdgeType: model.EdgeTagSubject, Weight: 0.5})
	if err != nil {
		log.Fatalf("Failed to add edge: %v", err)
	}

	// Graph analytics
	g, err := k.BuildMultilayerGraph(ctx, true)
	if err != nil {
		log.Fatalf("Failed to build graph: %v", err)
	}
	fmt.Printf("\nGraph: %d nodes, %d edges\n", g.NodeCount(), g.EdgeCount())

	ids := []uuid.UUID{fishOil.ID, raynaud.ID, survey.ID}
	ranks, err := k.ComputePageRank(ctx, ids, 0.85)
	if err != nil {
		log.Fatalf("Failed to compute pagerank: %v", err)
	}
	for _, r := range []*model.Resource{fishOil, raynaud, survey} {
		fmt.Printf("  pagerank %-20s %.4f\n", r.Title, ranks[r.ID])
	}

	paths, err := k.GetNeighborsMultihop(ctx, survey.ID, 2, graph.TraversalFilter{}, 10)
	if err != nil {
		log.Fatalf("Failed to traverse graph: %v", err)
	}
	fmt.Printf("Two hop neighbors of the survey: %d\n", len(paths))

	communities, err := k.DetectCommunities(ctx, ids, 1.0)
	if err != nil {
		log.Fatalf("Failed to detect communities: %v", err)
	}
	fmt.Printf("Communities: %d (modularity %.3f)\n", communities.CommunityCount, communities.Modularity)

	// Literature based discovery
	result, err := k.Discover(ctx, "fish oil", "raynaud", 5, nil)
	if err != nil {
		log.Fatalf("Failed to discover: %v", err)
	}
	fmt.Printf("\nHypotheses fish oil -> ? -> raynaud (%s):\n", result.ExecutionTime)
	for _, h := range result.Hypotheses {
		fmt.Printf("  %s confidence=%.2f plausibility=%.2f\n", h.ConceptB, h.Confidence, h.Plausibility)
	}
	if err := k.SaveHypotheses(ctx, result.Hypotheses); err != nil {
		log.Fatalf("Failed to save hypotheses: %v", err)
	}

	// Graph embeddings
	run, err := k.GenerateGraphEmbeddings(ctx, model.DefaultEmbeddingParams())
	if err != nil {
		log.Fatalf("Failed to generate embeddings: %v", err)
	}
	fmt.Printf("\nComputed %d graph embeddings in %s\n", run.EmbeddingsComputed, run.ExecutionTime)

	similar, err := k.FindSimilarNodes(fishOil.ID, 0, 5)
	if err != nil {
		log.Fatalf("Failed to find similar nodes: %v", err)
	}
	for _, s := range similar {
		fmt.Printf("  similar %s %.3f\n", s.ID, s.Similarity)
	}

	// Switch the vector index, useful once the collection grows
	err = k.Resources.ChangeIndexType(ctx, database.IndexTypeIVFFlat, map[string]interface{}{"lists": 10})
	if err != nil {
		log.Printf("Warning: Index change failed (this is okay for small datasets): %v", err)
	}

	fmt.Println("\nAdvanced example completed successfully!")
}
