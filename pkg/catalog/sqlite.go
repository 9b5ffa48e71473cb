package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// openCatalogDB opens the folder/doc metadata store: WAL mode and a busy
// timeout so a background sync read doesn't collide with a CLI write,
// foreign keys on so folder/doc ON DELETE CASCADE works, and a single
// connection since the catalog serializes all writes through one mutex
// anyway (see Service).
func openCatalogDB(path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("cannot create catalog directory %q: %w", dir, err)
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		if isCantOpenError(err) {
			return nil, diagnoseCatalogOpenError(path, err)
		}
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		if isCantOpenError(err) {
			return nil, diagnoseCatalogOpenError(path, err)
		}
		return nil, err
	}

	return db, nil
}

func isCantOpenError(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CANTOPEN
	}
	return false
}

func diagnoseCatalogOpenError(path string, originalErr error) error {
	dir := filepath.Dir(path)

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("cannot create catalog database at %q: directory %q does not exist", path, dir)
		}
		return fmt.Errorf("cannot create catalog database at %q: %w", path, err)
	}

	if !info.IsDir() {
		return fmt.Errorf("cannot create catalog database at %q: %q is not a directory", path, dir)
	}

	return fmt.Errorf("cannot create catalog database at %q: permission denied or file cannot be created in %q (original error: %v)", path, dir, originalErr)
}
