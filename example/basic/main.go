package main

import (
	"context"
	"fmt"
	"log"

	"github.com/siherrmann/kgraph"
	"github.com/siherrmann/kgraph/core/embedding"
	"github.com/siherrmann/kgraph/helper"
	"github.com/siherrmann/kgraph/model"
)

func main() {
	// Start a test PostgreSQL container
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

	k, err := kgraph.NewKGraph(dbConfig, model.EngineConfigFromEnv(), embedding.TextDimensions)
	if err != nil {
		log.Fatalf("Failed to create kgraph: %v", err)
	}
	defer k.Close()

	// all-MiniLM-L6-v2 is downloaded on first use
	if err := k.UseDefaultTextEmbedder(); err != nil {
		log.Fatalf("Failed to set up text embedder: %v", err)
	}

	ctx := context.Background()
	resources := []*model.Resource{
		{
			Title:       "Introduction to Graph Databases",
			Description: "Graph databases store entities as nodes and relationships as edges.",
			Subjects:    []string{"databases", "graphs"},
		},
		{
			Title:       "Vector Search in PostgreSQL",
			Description: "pgvector enables similarity search over embeddings inside PostgreSQL.",
			Subjects:    []string{"databases", "embeddings"},
		},
		{
			Title:       "Sentence Embeddings",
			Description: "Neural networks map sentences to vectors that capture their meaning.",
			Subjects:    []string{"embeddings", "machine learning"},
		},
	}

	fmt.Println("Adding resources...")
	for _, r := range resources {
		if err := k.AddResource(ctx, r); err != nil {
			log.Fatalf("Failed to add resource: %v", err)
		}
		if _, err := k.ComputeResourceEmbedding(ctx, r.ID); err != nil {
			log.Fatalf("Failed to embed resource: %v", err)
		}
		fmt.Printf("Added %s (%s)\n", r.Title, r.ID)
	}

	neighbors, err := k.FindHybridNeighbors(ctx, resources[0].ID, 5)
	if err != nil {
		log.Fatalf("Failed to find neighbors: %v", err)
	}

	fmt.Printf("\nNeighbors of %q:\n", resources[0].Title)
	for _, e := range neighbors.Edges {
		fmt.Printf("  %s weight=%.3f via %s %v\n", e.Target, e.Weight, e.Details.ConnectionType, e.Details.SharedSubjects)
	}

	overview, err := k.GenerateGlobalOverview(ctx, 10, 0.3)
	if err != nil {
		log.Fatalf("Failed to generate overview: %v", err)
	}
	fmt.Printf("\nGlobal overview: %d nodes, %d edges\n", len(overview.Nodes), len(overview.Edges))

	fmt.Println("\nBasic example completed successfully!")
}
