package helper

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// NewDatabaseConfiguration builds a DatabaseConfiguration from environment
// variables (DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME, DB_SSLMODE),
// loading a local .env file first via godotenv if one is present.
func NewDatabaseConfiguration() (*DatabaseConfiguration, error) {
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnvDefault("DB_PORT", "5432"))
	if err != nil {
		return nil, NewError("parse DB_PORT", err)
	}

	return &DatabaseConfiguration{
		Host:     getEnvDefault("DB_HOST", "localhost"),
		Port:     port,
		User:     getEnvDefault("DB_USER", "postgres"),
		Password: getEnvDefault("DB_PASSWORD", "postgres"),
		DBName:   getEnvDefault("DB_NAME", "conceptgraph"),
		SSLMode:  getEnvDefault("DB_SSLMODE", "disable"),
	}, nil
}

func getEnvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// SetTestDatabaseConfigEnvs points the DB_* environment variables at a
// locally-running container on the given port, for the duration of t.
func SetTestDatabaseConfigEnvs(t *testing.T, port string) {
	t.Helper()
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", port)
	t.Setenv("DB_USER", "postgres")
	t.Setenv("DB_PASSWORD", "postgres")
	t.Setenv("DB_NAME", "conceptgraph_test")
	t.Setenv("DB_SSLMODE", "disable")
}

// NewTestDatabase wraps NewDatabase with a quiet test-scoped logger.
func NewTestDatabase(config *DatabaseConfiguration) *Database {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return NewDatabase("conceptgraph_test", config, logger)
}

// MustStartPostgresContainer launches a pgvector-enabled Postgres
// container for integration tests and returns its teardown func and the
// host port it is reachable on.
func MustStartPostgresContainer() (func(ctx context.Context, opts ...testcontainers.TerminateOption) error, string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	container, err := postgres.Run(ctx,
		"pgvector/pgvector:pg16",
		postgres.WithDatabase("conceptgraph_test"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, "", NewError("start postgres container", err)
	}

	mappedPort, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		return nil, "", NewError("resolve mapped port", err)
	}

	return container.Terminate, mappedPort.Port(), nil
}
