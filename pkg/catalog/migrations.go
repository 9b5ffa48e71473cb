package catalog

import (
	"context"
	"database/sql"
)

// migration is one versioned schema change, optionally followed by a Go
// data-migration step once its SQL has committed.
type migration struct {
	id     int
	name   string
	upSQL  string
	upFunc func(ctx context.Context, db *sql.DB) error
}

func migrationsTableSQL() string {
	return `CREATE TABLE IF NOT EXISTS schema_migrations (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TEXT NOT NULL
	);`
}

// allMigrations lists every schema change in order. The first entry backfills
// stable_id onto a docs table that predates it.
func allMigrations() []migration {
	return []migration{
		{
			id:     1,
			name:   "add_docs_stable_id",
			upSQL:  "", // conditional: applied by upFunc since it depends on current schema
			upFunc: migrateAddStableID,
		},
	}
}

// runMigrations creates the tracking table if needed and applies any
// migration not yet recorded there, each in its own transaction.
func runMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, migrationsTableSQL()); err != nil {
		return err
	}

	for _, m := range allMigrations() {
		applied, err := isMigrationApplied(ctx, db, m.id)
		if err != nil {
			return err
		}
		if applied {
			continue
		}
		if err := applyMigration(ctx, db, m); err != nil {
			return err
		}
	}
	return nil
}

func isMigrationApplied(ctx context.Context, db *sql.DB, id int) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE id = ?", id).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func applyMigration(ctx context.Context, db *sql.DB, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if m.upSQL != "" {
		if _, err := tx.ExecContext(ctx, m.upSQL); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (id, name, applied_at) VALUES (?, ?, ?)", m.id, m.name, NowISO()); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	if m.upFunc != nil {
		return m.upFunc(ctx, db)
	}
	return nil
}

// migrateAddStableID adds docs.stable_id if missing, creates a unique index,
// and backfills any NULL/empty value with a freshly generated stable id.
func migrateAddStableID(ctx context.Context, db *sql.DB) error {
	hasColumn, err := hasColumn(ctx, db, "docs", "stable_id")
	if err != nil {
		return err
	}
	if !hasColumn {
		if _, err := db.ExecContext(ctx, "ALTER TABLE docs ADD COLUMN stable_id TEXT"); err != nil {
			return err
		}
	}
	if _, err := db.ExecContext(ctx, "CREATE UNIQUE INDEX IF NOT EXISTS idx_docs_stable_id ON docs(stable_id)"); err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, "SELECT id FROM docs WHERE stable_id IS NULL OR stable_id = ''")
	if err != nil {
		return err
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	rows.Close()

	for _, id := range ids {
		sid, err := GenerateStableID()
		if err != nil {
			return err
		}
		if _, err := db.ExecContext(ctx, "UPDATE docs SET stable_id = ? WHERE id = ?", sid, id); err != nil {
			return err
		}
	}
	return nil
}

func hasColumn(ctx context.Context, db *sql.DB, table, column string) (bool, error) {
	rows, err := db.QueryContext(ctx, "PRAGMA table_info("+table+")")
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid        int
			name       string
			colType    string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultVal, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, nil
}
