package resultstore

import (
	"context"
	"database/sql"
	"fmt"
)

const SchemaVersion = 1

// Migrate creates (or upgrades) the results schema in-place.
//
// The schema supports:
// - evaluation rows with run provenance and solution payloads
// - best-per-instance queries via an objective index
func Migrate(ctx context.Context, db *sql.DB) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if db == nil {
		return fmt.Errorf("db is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS schema_meta (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			schema_version INTEGER NOT NULL
		);`,
		`INSERT INTO schema_meta (id, schema_version)
			VALUES (1, 0)
			ON CONFLICT(id) DO NOTHING;`,

		`CREATE TABLE IF NOT EXISTS evaluations (
			eval_id INTEGER PRIMARY KEY AUTOINCREMENT,
			instance_key TEXT NOT NULL,
			run_id TEXT NOT NULL,
			objective INTEGER NOT NULL,
			penalized INTEGER NOT NULL DEFAULT 0,
			seed INTEGER,
			jobs INTEGER,
			machines INTEGER,
			-- solution is the JSON-encoded solution payload, when recorded.
			solution TEXT,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_evaluations_instance ON evaluations(instance_key);`,
		`CREATE INDEX IF NOT EXISTS idx_evaluations_objective ON evaluations(instance_key, penalized, objective);`,
		`CREATE INDEX IF NOT EXISTS idx_evaluations_run ON evaluations(run_id);`,
	}

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec schema statement: %w", err)
		}
	}

	var current int
	if err := tx.QueryRowContext(ctx, `SELECT schema_version FROM schema_meta WHERE id=1`).Scan(&current); err != nil {
		return fmt.Errorf("read schema_version: %w", err)
	}

	if current != SchemaVersion {
		if _, err := tx.ExecContext(ctx, `UPDATE schema_meta SET schema_version=? WHERE id=1`, SchemaVersion); err != nil {
			return fmt.Errorf("update schema_version: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}
