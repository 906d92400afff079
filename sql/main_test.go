package sql

import (
	"context"
	"log"
	"testing"

	"github.com/siherrmann/kgraph/helper"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
)

var dbPort string

func TestMain(m *testing.M) {
	teardown, port, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("error starting postgres container: %v", err)
	}
	dbPort = port

	code := m.Run()

	if teardown != nil {
		if err := teardown(context.Background(), testcontainers.StopTimeout(0)); err != nil {
			log.Printf("error tearing down postgres container: %v", err)
		}
	}
	if code != 0 {
		log.Fatalf("sql tests failed with code %d", code)
	}
}

// initDB connects to the test container with the extensions and
// trigger helper every kgraph table depends on. The connection is closed on cleanup.
func initDB(t *testing.T) *helper.Database {
	t.Helper()
	helper.SetTestDatabaseConfigEnvs(t, dbPort)
	dbConfig, err := helper.NewDatabaseConfiguration()
	require.NoError(t, err, "failed to create database configuration")
	database := helper.NewTestDatabase(dbConfig)
	t.Cleanup(func() { database.Close() })

	require.NoError(t, Init(database.Instance))
	for _, ext := range []string{"vector", "pgcrypto"} {
		var exists bool
		err := database.Instance.QueryRow("SELECT EXISTS(SELECT 1 FROM pg_extension WHERE extname = $1);", ext).Scan(&exists)
		require.NoError(t, err)
		require.True(t, exists, "Expected extension %s after Init", ext)
	}

	return database
}
