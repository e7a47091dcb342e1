//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

// schema mirrors what deployment provisions. The stores never create
// tables themselves.
const schema = `
CREATE TABLE IF NOT EXISTS audit_entries (
	session_id  TEXT        NOT NULL,
	seq         BIGINT      NOT NULL,
	stage       TEXT        NOT NULL DEFAULT '',
	prior_state TEXT        NOT NULL,
	new_state   TEXT        NOT NULL,
	actor       TEXT        NOT NULL,
	input_hash  TEXT        NOT NULL DEFAULT '',
	output_hash TEXT        NOT NULL DEFAULT '',
	occurred_at TIMESTAMPTZ NOT NULL,
	kind        TEXT        NOT NULL,
	reason      TEXT        NOT NULL DEFAULT '',
	UNIQUE (session_id, seq)
);

CREATE TABLE IF NOT EXISTS emr_records (
	pos           BIGSERIAL   PRIMARY KEY,
	record_id     TEXT        NOT NULL UNIQUE,
	session_id    TEXT        NOT NULL,
	patient_id    TEXT        NOT NULL,
	results       JSONB       NOT NULL,
	approved_at   TIMESTAMPTZ NOT NULL,
	supersedes_id TEXT
);

CREATE UNIQUE INDEX IF NOT EXISTS emr_records_session_original
	ON emr_records (session_id) WHERE supersedes_id IS NULL;

CREATE TABLE IF NOT EXISTS pharmacy_orders (
	pos           BIGSERIAL   PRIMARY KEY,
	order_id      TEXT        NOT NULL UNIQUE,
	record_id     TEXT        NOT NULL,
	session_id    TEXT        NOT NULL UNIQUE,
	patient_id    TEXT        NOT NULL,
	prescription  TEXT        NOT NULL,
	dispatched_at TIMESTAMPTZ NOT NULL
);
`

// PostgresContainer wraps a testcontainers Postgres instance with the
// careflow schema applied.
type PostgresContainer struct {
	Container testcontainers.Container
	DB        *sql.DB
}

// NewPostgresContainer starts a Postgres container, verifies
// connectivity, and applies the schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("careflow"),
		tcpostgres.WithUsername("careflow"),
		tcpostgres.WithPassword("careflow"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", url)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres: %v", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	return &PostgresContainer{
		Container: container,
		DB:        db,
	}
}

// TruncateTables empties the given tables between tests.
func (pc *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	query := fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY", strings.Join(tables, ", "))
	_, err := pc.DB.ExecContext(ctx, query)
	return err
}

// Terminate stops the container and closes the connection.
func (pc *PostgresContainer) Terminate(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	_ = pc.DB.Close()
	if err := pc.Container.Terminate(ctx); err != nil {
		t.Logf("failed to terminate postgres container: %v", err)
	}
}
