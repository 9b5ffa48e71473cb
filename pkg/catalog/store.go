package catalog

import (
	"context"
	"database/sql"
	"fmt"
)

// Folder mirrors one row of the folders table.
type Folder struct {
	ID          int64
	ParentID    sql.NullInt64
	Name        string
	RelPath     string
	AbsPath     string
	Description string
	CreatedAt   string
	UpdatedAt   string
}

// Doc mirrors one row of the docs table.
type Doc struct {
	ID          int64
	FolderID    sql.NullInt64
	Name        string
	RelPath     string
	AbsPath     string
	Description string
	StableID    string
	CreatedAt   string
	UpdatedAt   string
}

// DocManifestEntry is the projection returned by GenerateManifest.
type DocManifestEntry struct {
	Name        string
	RelPath     string
	AbsPath     string
	StableID    string
	Description string
	UpdatedAt   string
}

// querier is satisfied by both *sql.DB and *sql.Tx, letting store methods
// run either standalone or as part of a caller-managed transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the transactional relational store backing the catalog.
type Store struct {
	db *sql.DB
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS folders (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	parent_id INTEGER REFERENCES folders(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	rel_path TEXT NOT NULL UNIQUE,
	abs_path TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS docs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	folder_id INTEGER REFERENCES folders(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	rel_path TEXT NOT NULL UNIQUE,
	abs_path TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
`

// OpenStore opens (creating if absent) the SQLite-backed metadata store at
// path, creates the base schema, and runs any pending migrations.
func OpenStore(path string) (*Store, error) {
	db, err := openCatalogDB(path)
	if err != nil {
		return nil, WrapStoreError(path, err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, WrapStoreError(path, err)
	}
	s := &Store{db: db}
	if err := runMigrations(context.Background(), db); err != nil {
		db.Close()
		return nil, WrapStoreError(path, err)
	}
	return s, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Begin starts a transaction for a single service call's mutations.
func (s *Store) Begin(ctx context.Context) (*sql.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, WrapStoreError("", err)
	}
	return tx, nil
}

func rowToFolder(row *sql.Row) (*Folder, error) {
	var f Folder
	if err := row.Scan(&f.ID, &f.ParentID, &f.Name, &f.RelPath, &f.AbsPath, &f.Description, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

func rowToDoc(row *sql.Row) (*Doc, error) {
	var d Doc
	var stableID sql.NullString
	if err := row.Scan(&d.ID, &d.FolderID, &d.Name, &d.RelPath, &d.AbsPath, &d.Description, &stableID, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	d.StableID = stableID.String
	return &d, nil
}

const folderColumns = "id, parent_id, name, rel_path, abs_path, description, created_at, updated_at"
const docColumns = "id, folder_id, name, rel_path, abs_path, description, stable_id, created_at, updated_at"

// FindFolder returns the folder with the given rel_path, or nil if absent.
// The empty rel_path (root) always returns nil since root is implicit.
func (s *Store) FindFolder(ctx context.Context, q querier, relPath string) (*Folder, error) {
	if relPath == "" {
		return nil, nil
	}
	row := q.QueryRowContext(ctx, "SELECT "+folderColumns+" FROM folders WHERE rel_path = ?", relPath)
	f, err := rowToFolder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, WrapStoreError(relPath, err)
	}
	return f, nil
}

// FindDoc returns the doc with the given rel_path, or nil if absent.
func (s *Store) FindDoc(ctx context.Context, q querier, relPath string) (*Doc, error) {
	row := q.QueryRowContext(ctx, "SELECT "+docColumns+" FROM docs WHERE rel_path = ?", relPath)
	d, err := rowToDoc(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, WrapStoreError(relPath, err)
	}
	return d, nil
}

// FindDocByStableID performs a strict lookup by stable_id.
func (s *Store) FindDocByStableID(ctx context.Context, q querier, stableID string) (*Doc, error) {
	row := q.QueryRowContext(ctx, "SELECT "+docColumns+" FROM docs WHERE stable_id = ?", stableID)
	d, err := rowToDoc(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, WrapStoreError(stableID, err)
	}
	return d, nil
}

// InsertFolder inserts a new folder row and returns its id.
func (s *Store) InsertFolder(ctx context.Context, q querier, parentID sql.NullInt64, name, relPath, absPath, description, ts string) (int64, error) {
	res, err := q.ExecContext(ctx,
		"INSERT INTO folders (parent_id, name, rel_path, abs_path, description, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		parentID, name, relPath, absPath, description, ts, ts)
	if err != nil {
		return 0, WrapStoreError(relPath, err)
	}
	return res.LastInsertId()
}

// InsertDoc inserts a new doc row and returns its id.
func (s *Store) InsertDoc(ctx context.Context, q querier, folderID sql.NullInt64, name, relPath, absPath, description, stableID, ts string) (int64, error) {
	res, err := q.ExecContext(ctx,
		"INSERT INTO docs (folder_id, name, rel_path, abs_path, description, stable_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		folderID, name, relPath, absPath, description, stableID, ts, ts)
	if err != nil {
		return 0, WrapStoreError(relPath, err)
	}
	return res.LastInsertId()
}

// UpdateFolderDescription updates only description/updated_at for a folder.
func (s *Store) UpdateFolderDescription(ctx context.Context, q querier, id int64, description, ts string) error {
	_, err := q.ExecContext(ctx, "UPDATE folders SET description = ?, updated_at = ? WHERE id = ?", description, ts, id)
	return WrapStoreError("", err)
}

// RenameFolderRow updates a single folder's own row during a rename/move.
func (s *Store) RenameFolderRow(ctx context.Context, q querier, id int64, name, relPath, absPath string, parentID sql.NullInt64, ts string) error {
	_, err := q.ExecContext(ctx,
		"UPDATE folders SET name = ?, rel_path = ?, abs_path = ?, parent_id = ?, updated_at = ? WHERE id = ?",
		name, relPath, absPath, parentID, ts, id)
	return WrapStoreError(relPath, err)
}

// RewriteFolderDescendants rewrites rel_path/abs_path for every folder whose
// rel_path starts with oldPrefix + "/", replacing that prefix with newPrefix.
func (s *Store) RewriteFolderDescendants(ctx context.Context, q querier, oldPrefix, newPrefix, contextsRoot, ts string) error {
	like := escapeLike(oldPrefix) + "/%"
	rows, err := q.QueryContext(ctx, "SELECT id, rel_path FROM folders WHERE rel_path LIKE ? ESCAPE '\\'", like)
	if err != nil {
		return WrapStoreError(oldPrefix, err)
	}
	type pending struct {
		id      int64
		relPath string
	}
	var items []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.id, &p.relPath); err != nil {
			rows.Close()
			return WrapStoreError(oldPrefix, err)
		}
		items = append(items, p)
	}
	rows.Close()

	for _, p := range items {
		newRelPath := newPrefix + p.relPath[len(oldPrefix):]
		newAbsPath := joinContextsRoot(contextsRoot, newRelPath)
		if _, err := q.ExecContext(ctx,
			"UPDATE folders SET rel_path = ?, abs_path = ?, updated_at = ? WHERE id = ?",
			newRelPath, newAbsPath, ts, p.id); err != nil {
			return WrapStoreError(p.relPath, err)
		}
	}
	return nil
}

// RewriteDocDescendants rewrites rel_path/abs_path for every doc whose
// rel_path starts with oldPrefix + "/".
func (s *Store) RewriteDocDescendants(ctx context.Context, q querier, oldPrefix, newPrefix, contextsRoot, ts string) ([][2]string, error) {
	like := escapeLike(oldPrefix) + "/%"
	rows, err := q.QueryContext(ctx, "SELECT id, rel_path FROM docs WHERE rel_path LIKE ? ESCAPE '\\'", like)
	if err != nil {
		return nil, WrapStoreError(oldPrefix, err)
	}
	type pending struct {
		id      int64
		relPath string
	}
	var items []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.id, &p.relPath); err != nil {
			rows.Close()
			return nil, WrapStoreError(oldPrefix, err)
		}
		items = append(items, p)
	}
	rows.Close()

	affected := make([][2]string, 0, len(items))
	for _, p := range items {
		newRelPath := newPrefix + p.relPath[len(oldPrefix):]
		newAbsPath := joinContextsRoot(contextsRoot, newRelPath)
		if _, err := q.ExecContext(ctx,
			"UPDATE docs SET rel_path = ?, abs_path = ?, updated_at = ? WHERE id = ?",
			newRelPath, newAbsPath, ts, p.id); err != nil {
			return nil, WrapStoreError(p.relPath, err)
		}
		affected = append(affected, [2]string{p.relPath, newRelPath})
	}
	return affected, nil
}

// RenameDocRow updates a single doc's own row during a rename/move.
func (s *Store) RenameDocRow(ctx context.Context, q querier, id int64, name, relPath, absPath string, folderID sql.NullInt64, ts string) error {
	_, err := q.ExecContext(ctx,
		"UPDATE docs SET name = ?, rel_path = ?, abs_path = ?, folder_id = ?, updated_at = ? WHERE id = ?",
		name, relPath, absPath, folderID, ts, id)
	return WrapStoreError(relPath, err)
}

// UpdateDocContentMeta updates updated_at (and optionally description) after
// a content write.
func (s *Store) UpdateDocContentMeta(ctx context.Context, q querier, id int64, description *string, ts string) error {
	if description != nil {
		_, err := q.ExecContext(ctx, "UPDATE docs SET updated_at = ?, description = ? WHERE id = ?", ts, *description, id)
		return WrapStoreError("", err)
	}
	_, err := q.ExecContext(ctx, "UPDATE docs SET updated_at = ? WHERE id = ?", ts, id)
	return WrapStoreError("", err)
}

// UpdateDocDescription updates only a doc's description (no event emitted).
func (s *Store) UpdateDocDescription(ctx context.Context, q querier, id int64, description, ts string) error {
	_, err := q.ExecContext(ctx, "UPDATE docs SET description = ?, updated_at = ? WHERE id = ?", description, ts, id)
	return WrapStoreError("", err)
}

// SyncDocUpdatedAt persists a best-effort mtime-derived updated_at.
func (s *Store) SyncDocUpdatedAt(ctx context.Context, q querier, id int64, ts string) error {
	_, err := q.ExecContext(ctx, "UPDATE docs SET updated_at = ? WHERE id = ?", ts, id)
	return WrapStoreError("", err)
}

// CountChildFolders counts folders whose parent is the given folder id.
func (s *Store) CountChildFolders(ctx context.Context, q querier, folderID int64) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM folders WHERE parent_id = ?", folderID).Scan(&n)
	if err != nil {
		return 0, WrapStoreError("", err)
	}
	return n, nil
}

// CountDocsInFolder counts docs directly owned by the given folder id.
func (s *Store) CountDocsInFolder(ctx context.Context, q querier, folderID int64) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM docs WHERE folder_id = ?", folderID).Scan(&n)
	if err != nil {
		return 0, WrapStoreError("", err)
	}
	return n, nil
}

// DocsUnderPrefix returns rel_paths of every doc under relPath + "/" (used to
// snapshot affected/removed docs before a destructive rewrite).
func (s *Store) DocsUnderPrefix(ctx context.Context, q querier, relPath string) ([]string, error) {
	like := escapeLike(relPath) + "/%"
	rows, err := q.QueryContext(ctx, "SELECT rel_path FROM docs WHERE rel_path LIKE ? ESCAPE '\\'", like)
	if err != nil {
		return nil, WrapStoreError(relPath, err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, WrapStoreError(relPath, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// DeleteDocsUnderPrefix deletes docs with rel_path LIKE 'prefix/%'.
func (s *Store) DeleteDocsUnderPrefix(ctx context.Context, q querier, relPath string) error {
	like := escapeLike(relPath) + "/%"
	_, err := q.ExecContext(ctx, "DELETE FROM docs WHERE rel_path LIKE ? ESCAPE '\\'", like)
	return WrapStoreError(relPath, err)
}

// DeleteDocsByFolderID deletes docs directly owned by folderID (belt and
// suspenders alongside DeleteDocsUnderPrefix; see design notes on I5).
func (s *Store) DeleteDocsByFolderID(ctx context.Context, q querier, folderID int64) error {
	_, err := q.ExecContext(ctx, "DELETE FROM docs WHERE folder_id = ?", folderID)
	return WrapStoreError("", err)
}

// DeleteFoldersUnderPrefix deletes folders with rel_path LIKE 'prefix/%'.
func (s *Store) DeleteFoldersUnderPrefix(ctx context.Context, q querier, relPath string) error {
	like := escapeLike(relPath) + "/%"
	_, err := q.ExecContext(ctx, "DELETE FROM folders WHERE rel_path LIKE ? ESCAPE '\\'", like)
	return WrapStoreError(relPath, err)
}

// DeleteFolderByID deletes a single folder row by id.
func (s *Store) DeleteFolderByID(ctx context.Context, q querier, id int64) error {
	_, err := q.ExecContext(ctx, "DELETE FROM folders WHERE id = ?", id)
	return WrapStoreError("", err)
}

// DeleteDocByID deletes a single doc row by id.
func (s *Store) DeleteDocByID(ctx context.Context, q querier, id int64) error {
	_, err := q.ExecContext(ctx, "DELETE FROM docs WHERE id = ?", id)
	return WrapStoreError("", err)
}

// ListFolders returns every folder ordered by rel_path (all=true) or only
// root-parent folders ordered by name (all=false).
func (s *Store) ListFolders(ctx context.Context, q querier, all bool) ([]*Folder, error) {
	query := "SELECT " + folderColumns + " FROM folders"
	if all {
		query += " ORDER BY rel_path"
	} else {
		query += " WHERE parent_id IS NULL ORDER BY name"
	}
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, WrapStoreError("", err)
	}
	defer rows.Close()
	var out []*Folder
	for rows.Next() {
		var f Folder
		if err := rows.Scan(&f.ID, &f.ParentID, &f.Name, &f.RelPath, &f.AbsPath, &f.Description, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, WrapStoreError("", err)
		}
		out = append(out, &f)
	}
	return out, nil
}

// ListDocs returns docs under folderPath. recursive=true matches the full
// subtree via LIKE; recursive=false matches direct children only.
func (s *Store) ListDocs(ctx context.Context, q querier, folderPath string, folder *Folder, recursive bool) ([]*Doc, error) {
	var rows *sql.Rows
	var err error
	switch {
	case recursive && folderPath == "":
		rows, err = q.QueryContext(ctx, "SELECT "+docColumns+" FROM docs ORDER BY rel_path")
	case recursive:
		rows, err = q.QueryContext(ctx, "SELECT "+docColumns+" FROM docs WHERE rel_path LIKE ? ESCAPE '\\' ORDER BY rel_path", escapeLike(folderPath)+"/%")
	case folderPath == "":
		rows, err = q.QueryContext(ctx, "SELECT "+docColumns+" FROM docs WHERE folder_id IS NULL ORDER BY name")
	default:
		if folder == nil {
			return nil, folderNotFound(folderPath)
		}
		rows, err = q.QueryContext(ctx, "SELECT "+docColumns+" FROM docs WHERE folder_id = ? ORDER BY name", folder.ID)
	}
	if err != nil {
		return nil, WrapStoreError(folderPath, err)
	}
	defer rows.Close()
	var out []*Doc
	for rows.Next() {
		var d Doc
		var stableID sql.NullString
		if err := rows.Scan(&d.ID, &d.FolderID, &d.Name, &d.RelPath, &d.AbsPath, &d.Description, &stableID, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, WrapStoreError(folderPath, err)
		}
		d.StableID = stableID.String
		out = append(out, &d)
	}
	return out, nil
}

// GenerateManifest returns doc manifest entries under folder/% ordered by
// rel_path, optionally capped at limit (limit<=0 means unlimited).
func (s *Store) GenerateManifest(ctx context.Context, q querier, folder string, limit int) ([]DocManifestEntry, error) {
	query := "SELECT name, rel_path, abs_path, stable_id, description, updated_at FROM docs WHERE rel_path LIKE ? ESCAPE '\\' ORDER BY rel_path"
	args := []any{escapeLike(folder) + "/%"}
	if folder == "" {
		query = "SELECT name, rel_path, abs_path, stable_id, description, updated_at FROM docs ORDER BY rel_path"
		args = nil
	}
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, WrapStoreError(folder, err)
	}
	defer rows.Close()
	var out []DocManifestEntry
	for rows.Next() {
		var e DocManifestEntry
		var stableID sql.NullString
		if err := rows.Scan(&e.Name, &e.RelPath, &e.AbsPath, &stableID, &e.Description, &e.UpdatedAt); err != nil {
			return nil, WrapStoreError(folder, err)
		}
		e.StableID = stableID.String
		out = append(out, e)
	}
	return out, nil
}

func joinContextsRoot(root, relPath string) string {
	if relPath == "" {
		return root
	}
	return root + "/" + relPath
}
