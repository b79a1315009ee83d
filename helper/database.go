package helper

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
)

// DatabaseConfiguration holds connection parameters for the Postgres
// instance backing a project's concept graph.
type DatabaseConfiguration struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Database bundles a live *sql.DB connection with the logger every
// handler in this module is constructed with.
type Database struct {
	Instance *sql.DB
	Logger   *slog.Logger
	Name     string
}

// NewDatabase opens a connection pool to Postgres and panics if the
// connection cannot be established: a broken DB connection is not a
// recoverable runtime condition.
func NewDatabase(name string, config *DatabaseConfiguration, logger *slog.Logger) *Database {
	sslMode := config.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, sslMode,
	)

	instance, err := sql.Open("postgres", dsn)
	if err != nil {
		logger.Error("failed to open database connection", "name", name, "error", err)
		panic(NewError("open database", err))
	}

	if config.MaxOpenConns > 0 {
		instance.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		instance.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime > 0 {
		instance.SetConnMaxLifetime(config.ConnMaxLifetime)
	}

	if err := instance.Ping(); err != nil {
		logger.Error("failed to reach database", "name", name, "error", err)
		panic(NewError("ping database", err))
	}

	logger.Info("connected to database", "name", name, "host", config.Host, "dbname", config.DBName)

	return &Database{
		Instance: instance,
		Logger:   logger,
		Name:     name,
	}
}

// Close closes the underlying connection pool.
func (d *Database) Close() error {
	return d.Instance.Close()
}
