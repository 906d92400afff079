package database

import (
	"context"
	"log"
	"testing"

	"github.com/siherrmann/kgraph/helper"
	loadSql "github.com/siherrmann/kgraph/sql"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
)

const testEmbeddingDim = 3

var dbPort string

func TestMain(m *testing.M) {
	var teardown func(ctx context.Context, opts ...testcontainers.TerminateOption) error
	var err error
	teardown, dbPort, err = helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("error starting postgres container: %v", err)
	}

	m.Run()

	if teardown != nil && teardown(context.Background()) != nil {
		log.Fatalf("error tearing down postgres container: %v", err)
	}
}

func initDB(t *testing.T) *helper.Database {
	helper.SetTestDatabaseConfigEnvs(t, dbPort)
	dbConfig, err := helper.NewDatabaseConfiguration()
	require.NoError(t, err, "failed to create database configuration")
	database := helper.NewTestDatabase(dbConfig)

	err = loadSql.Init(database.Instance)
	require.NoError(t, err)

	// Every test starts from empty tables.
	_, err = database.Instance.Exec(`DROP TABLE IF EXISTS citations, graph_edges, discovery_hypotheses, resources CASCADE;`)
	require.NoError(t, err)

	t.Cleanup(func() {
		database.Close()
	})

	return database
}

func initResources(t *testing.T, database *helper.Database) *ResourcesDBHandler {
	resourcesDbHandler, err := NewResourcesDBHandler(database, testEmbeddingDim, true)
	require.NoError(t, err, "Expected NewResourcesDBHandler to not return an error")
	return resourcesDbHandler
}
