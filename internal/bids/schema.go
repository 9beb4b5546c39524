package bids

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are applied in order; user_version tracks the last applied index.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS bids (
        id              TEXT PRIMARY KEY,
        user_id         TEXT NOT NULL,
        client_id       TEXT,
        project_name    TEXT NOT NULL,
        address         TEXT NOT NULL DEFAULT '',
        dimensions_json TEXT,
        total_sq_ft     REAL NOT NULL DEFAULT 0,
        estimated_cost  REAL NOT NULL DEFAULT 0,
        status          TEXT NOT NULL DEFAULT 'draft',
        created_at      TEXT NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_bids_user_created ON bids(user_id, created_at DESC);

    CREATE TABLE IF NOT EXISTS bid_items (
        id          TEXT PRIMARY KEY,
        bid_id      TEXT NOT NULL REFERENCES bids(id) ON DELETE CASCADE,
        position    INTEGER NOT NULL,
        description TEXT NOT NULL CHECK (description <> ''),
        quantity    REAL NOT NULL DEFAULT 1 CHECK (quantity > 0),
        unit_price  REAL NOT NULL DEFAULT 0 CHECK (unit_price >= 0),
        total       REAL GENERATED ALWAYS AS (quantity * unit_price) STORED
    );
    CREATE INDEX IF NOT EXISTS idx_bid_items_bid ON bid_items(bid_id, position);`,
}

func (s *Store) applyMigrations(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for i := version; i < len(migrations); i++ {
		if err := s.applyMigration(ctx, i); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) applyMigration(ctx context.Context, index int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", index, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, migrations[index]); err != nil {
		return fmt.Errorf("apply migration %d: %w", index, err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", index+1)); err != nil {
		return fmt.Errorf("bump schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d: %w", index, err)
	}
	return nil
}

func nullableString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
