package helper

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// Database wraps the sql connection pool together with its logger.
type Database struct {
	Name     string
	Instance *sql.DB
	Logger   *slog.Logger
}

// DatabaseConfiguration holds the connection settings for PostgreSQL.
type DatabaseConfiguration struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
	Schema   string
	SSLMode  string
}

// NewDatabaseConfiguration reads the connection settings from the environment.
// A .env file in the working directory is loaded first if present.
func NewDatabaseConfiguration() (*DatabaseConfiguration, error) {
	_ = godotenv.Load()

	config := &DatabaseConfiguration{
		Host:     GetEnv("KGRAPH_DB_HOST", "localhost"),
		Port:     GetEnv("KGRAPH_DB_PORT", "5432"),
		Database: os.Getenv("KGRAPH_DB_DATABASE"),
		Username: os.Getenv("KGRAPH_DB_USERNAME"),
		Password: os.Getenv("KGRAPH_DB_PASSWORD"),
		Schema:   GetEnv("KGRAPH_DB_SCHEMA", "public"),
		SSLMode:  GetEnv("KGRAPH_DB_SSLMODE", "disable"),
	}

	missing := []string{}
	if config.Database == "" {
		missing = append(missing, "KGRAPH_DB_DATABASE")
	}
	if config.Username == "" {
		missing = append(missing, "KGRAPH_DB_USERNAME")
	}
	if config.Password == "" {
		missing = append(missing, "KGRAPH_DB_PASSWORD")
	}
	if len(missing) > 0 {
		return nil, NewError("database configuration", fmt.Errorf("missing environment variables: %s", strings.Join(missing, ", ")))
	}

	return config, nil
}

// DSN returns the lib/pq connection string.
func (c *DatabaseConfiguration) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s dbname=%s user=%s password=%s sslmode=%s search_path=%s",
		c.Host, c.Port, c.Database, c.Username, c.Password, c.SSLMode, c.Schema,
	)
}

// NewDatabase opens and pings the connection pool. It panics if the database is unreachable.
func NewDatabase(name string, config *DatabaseConfiguration, logger *slog.Logger) *Database {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := connect(config)
	if err != nil {
		log.Panicf("error connecting to database %s: %v", name, err)
	}

	logger.Info("Connected to database", slog.String("name", name), slog.String("host", config.Host))

	return &Database{
		Name:     name,
		Instance: db,
		Logger:   logger,
	}
}

// NewTestDatabase opens a connection for tests with a debug logger.
func NewTestDatabase(config *DatabaseConfiguration) *Database {
	return NewDatabase("test_db", config, NewLogger(os.Stdout, slog.LevelDebug))
}

// Close closes the connection pool.
func (d *Database) Close() error {
	if d == nil || d.Instance == nil {
		return nil
	}
	return d.Instance.Close()
}

func connect(config *DatabaseConfiguration) (*sql.DB, error) {
	db, err := sql.Open("postgres", config.DSN())
	if err != nil {
		return nil, NewError("open", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt < 10; attempt++ {
		lastErr = db.PingContext(ctx)
		if lastErr == nil {
			return db, nil
		}
		select {
		case <-ctx.Done():
			return nil, NewError("ping", lastErr)
		case <-time.After(500 * time.Millisecond):
		}
	}

	return nil, NewError("ping", lastErr)
}

// SetTestDatabaseConfigEnvs points the configuration env vars to a test container.
func SetTestDatabaseConfigEnvs(t *testing.T, dbPort string) {
	t.Setenv("KGRAPH_DB_HOST", "localhost")
	t.Setenv("KGRAPH_DB_PORT", dbPort)
	t.Setenv("KGRAPH_DB_DATABASE", testDatabaseName)
	t.Setenv("KGRAPH_DB_USERNAME", testDatabaseUser)
	t.Setenv("KGRAPH_DB_PASSWORD", testDatabasePassword)
	t.Setenv("KGRAPH_DB_SCHEMA", "public")
	t.Setenv("KGRAPH_DB_SSLMODE", "disable")
}
