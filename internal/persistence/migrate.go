package persistence

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are applied in order; PRAGMA user_version holds the count already applied.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS results(
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		at INTEGER NOT NULL,
		mode INTEGER NOT NULL,
		gateways INTEGER NOT NULL DEFAULT 0,
		lat REAL NOT NULL DEFAULT 0,
		lng REAL NOT NULL DEFAULT 0,
		min_rssi INTEGER NOT NULL DEFAULT 0,
		max_rssi INTEGER NOT NULL DEFAULT 0,
		max_snr INTEGER NOT NULL DEFAULT 0,
		rx_rssi INTEGER NOT NULL DEFAULT 0,
		rx_snr INTEGER NOT NULL DEFAULT 0,
		min_distance INTEGER NOT NULL DEFAULT 0,
		max_distance INTEGER NOT NULL DEFAULT 0,
		demod_margin INTEGER NOT NULL DEFAULT 0,
		lost INTEGER NOT NULL DEFAULT 0,
		tx_datarate INTEGER NOT NULL DEFAULT 0
	);`,
	`CREATE INDEX IF NOT EXISTS idx_results_at ON results(at);`,
}

func migrate(ctx context.Context, db *sql.DB) error {
	var version int
	if err := db.QueryRowContext(ctx, `PRAGMA user_version;`).Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version > len(migrations) {
		return fmt.Errorf("schema version %d is newer than supported %d", version, len(migrations))
	}

	for idx := version; idx < len(migrations); idx++ {
		if err := applyMigration(ctx, db, idx); err != nil {
			return err
		}
	}

	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, idx int) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", idx+1, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, migrations[idx]); err != nil {
		return fmt.Errorf("apply migration %d: %w", idx+1, err)
	}
	// PRAGMA does not accept bound parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d;`, idx+1)); err != nil {
		return fmt.Errorf("set schema version %d: %w", idx+1, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d: %w", idx+1, err)
	}

	return nil
}
