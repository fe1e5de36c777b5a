// Package testsupport spins up a throwaway embedded PostgreSQL instance and
// bootstraps the contracts/links/strings schema (spec.md §3) against it, so
// internal/compiler and internal/mask can run their compiled SQL for real
// instead of only asserting on its text. Adapted from the teacher's own
// embedded-postgres test harness, generalized away from an arbitrary
// dump/diff target onto this module's fixed schema.
package testsupport

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// postgresVersion is the PostgreSQL version embedded-postgres downloads and
// runs. Overridable via AUTUMNDB_SUB002_POSTGRES_VERSION for environments
// pinned to a particular server version.
func postgresVersion() embeddedpostgres.PostgresVersion {
	if v := os.Getenv("AUTUMNDB_SUB002_POSTGRES_VERSION"); v != "" {
		return embeddedpostgres.PostgresVersion(v)
	}
	return embeddedpostgres.PostgresVersion("17.5.0")
}

func findAvailablePort() (int, error) {
	listener, err := net.Listen("tcp", ":0")
	if err != nil {
		return 0, err
	}
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port, nil
}

// Postgres holds the connection details and handle of one embedded
// PostgreSQL instance, with the contracts schema already applied.
type Postgres struct {
	engine      *embeddedpostgres.EmbeddedPostgres
	DSN         string
	DB          *sql.DB
	runtimePath string
}

// Start launches an embedded PostgreSQL instance, applies Schema, and
// returns a ready connection pool. Callers must defer Stop.
func Start(ctx context.Context, t *testing.T) *Postgres {
	t.Helper()

	const database = "autumndb_sub002_test"
	const username = "autumndb_sub002"
	const password = "autumndb_sub002"

	testName := strings.ReplaceAll(t.Name(), "/", "_")
	runtimePath := filepath.Join(os.TempDir(), fmt.Sprintf("autumndb-sub002-test-%s-%d", testName, time.Now().UnixNano()))

	port, err := findAvailablePort()
	if err != nil {
		t.Fatalf("find available port: %v", err)
	}

	config := embeddedpostgres.DefaultConfig().
		Version(postgresVersion()).
		Database(database).
		Username(username).
		Password(password).
		Port(uint32(port)).
		RuntimePath(runtimePath).
		DataPath(filepath.Join(runtimePath, "data")).
		Logger(io.Discard).
		StartParameters(map[string]string{
			"logging_collector":          "off",
			"log_destination":            "stderr",
			"log_min_messages":           "PANIC",
			"log_statement":              "none",
			"log_min_duration_statement": "-1",
		})

	engine := embeddedpostgres.NewDatabase(config)
	if err := engine.Start(); err != nil {
		t.Fatalf("start embedded postgres: %v", err)
	}

	dsn := fmt.Sprintf("postgres://%s:%s@localhost:%d/%s?sslmode=disable", username, password, port, database)
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		engine.Stop()
		t.Fatalf("open connection: %v", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		engine.Stop()
		t.Fatalf("ping database: %v", err)
	}

	pg := &Postgres{engine: engine, DSN: dsn, DB: db, runtimePath: runtimePath}
	if err := pg.ApplySchema(ctx); err != nil {
		pg.Stop(t)
		t.Fatalf("apply schema: %v", err)
	}
	return pg
}

// Stop tears down the instance and its scratch runtime directory.
func (pg *Postgres) Stop(t *testing.T) {
	if pg.DB != nil {
		pg.DB.Close()
	}
	if err := pg.engine.Stop(); err != nil && t != nil {
		t.Logf("stop embedded postgres: %v", err)
	}
	if pg.runtimePath != "" {
		if err := os.RemoveAll(pg.runtimePath); err != nil && t != nil {
			t.Logf("remove runtime path: %v", err)
		}
	}
}

// ApplySchema (re)creates the cards/links/strings tables, dropping any
// prior contents first so a shared instance can be reused across tests.
func (pg *Postgres) ApplySchema(ctx context.Context) error {
	_, err := pg.DB.ExecContext(ctx, schemaSQL)
	return err
}

// Reset truncates every table, leaving the schema itself intact.
func (pg *Postgres) Reset(ctx context.Context) error {
	_, err := pg.DB.ExecContext(ctx, "TRUNCATE cards, links, strings RESTART IDENTITY CASCADE")
	return err
}
