package search

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// StoredChunk is one row of the chunks table, including its vector.
type StoredChunk struct {
	ID             string
	FilePath       string
	Content        string
	HeadingPath    string
	SectionTitle   string
	DocType        string
	EntryID        string
	EntryDate      string
	EntryCreatedAt string
	ChunkIndex     int
	Dim            int
	Vector         []float32
}

// DisplayName derives the human-facing label for a search result: the idea
// entry's section title/heading when present, otherwise the file basename.
func (c StoredChunk) DisplayName() string {
	if c.DocType == "idea" {
		if c.SectionTitle != "" {
			return c.SectionTitle
		}
		if c.HeadingPath != "" {
			return c.HeadingPath
		}
	}
	name := c.FilePath
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(name, ".md")
}

// SearchResult is one k-NN hit: the stored chunk plus its similarity score.
type SearchResult struct {
	Chunk    StoredChunk
	Distance float32
	Score    float32
}

const chunksSchemaSQL = `
CREATE TABLE IF NOT EXISTS chunks (
	id TEXT PRIMARY KEY,
	file_path TEXT NOT NULL,
	content TEXT NOT NULL,
	heading_path TEXT NOT NULL DEFAULT '',
	section_title TEXT NOT NULL DEFAULT '',
	doc_type TEXT NOT NULL DEFAULT '',
	entry_id TEXT NOT NULL DEFAULT '',
	entry_date TEXT NOT NULL DEFAULT '',
	entry_created_at TEXT NOT NULL DEFAULT '',
	chunk_index INTEGER NOT NULL DEFAULT 0,
	dim INTEGER NOT NULL,
	vector BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_file_path ON chunks(file_path);
`

// VectorStore is the embedded columnar store backing semantic search. It is
// realized as a modernc.org/sqlite table rather than a dedicated vector
// database dependency (see DESIGN.md).
type VectorStore struct {
	path string
	db   *sql.DB
}

// NewVectorStore opens (creating if absent) the vector store at path.
func NewVectorStore(path string) (*VectorStore, error) {
	db, err := openVectorDB(path)
	if err != nil {
		return nil, wrapStoreError(path, err)
	}
	vs := &VectorStore{path: path, db: db}
	if err := vs.Initialize(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return vs, nil
}

// openVectorDB opens the chunks-table backend: WAL mode and a busy timeout
// so an indexing run doesn't collide with an in-flight search, a single
// connection since an Indexer already serializes writes with its own mutex,
// and foreign keys on for consistency with the rest of the module's stores
// (the chunks table itself has none, but the pragma costs nothing to carry).
func openVectorDB(path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("cannot create vector store directory %q: %w", dir, err)
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		if isVectorCantOpenError(err) {
			return nil, diagnoseVectorOpenError(path, err)
		}
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		if isVectorCantOpenError(err) {
			return nil, diagnoseVectorOpenError(path, err)
		}
		return nil, err
	}

	return db, nil
}

func isVectorCantOpenError(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CANTOPEN
	}
	return false
}

func diagnoseVectorOpenError(path string, originalErr error) error {
	dir := filepath.Dir(path)

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("cannot create vector store at %q: directory %q does not exist", path, dir)
		}
		return fmt.Errorf("cannot create vector store at %q: %w", path, err)
	}

	if !info.IsDir() {
		return fmt.Errorf("cannot create vector store at %q: %q is not a directory", path, dir)
	}

	return fmt.Errorf("cannot create vector store at %q: permission denied or file cannot be created in %q (original error: %v)", path, dir, originalErr)
}

// Close releases the underlying connection.
func (v *VectorStore) Close() error {
	return v.db.Close()
}

// Initialize creates the chunks table if it does not already exist.
func (v *VectorStore) Initialize(ctx context.Context) error {
	_, err := v.db.ExecContext(ctx, chunksSchemaSQL)
	return wrapStoreError(v.path, err)
}

// Exists reports whether the chunks table is present in the backend.
func (v *VectorStore) Exists(ctx context.Context) bool {
	var name string
	err := v.db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name='chunks'").Scan(&name)
	return err == nil
}

// Reset drops and recreates an empty chunks table.
func (v *VectorStore) Reset(ctx context.Context) error {
	if _, err := v.db.ExecContext(ctx, "DROP TABLE IF EXISTS chunks"); err != nil {
		return wrapStoreError(v.path, err)
	}
	return v.Initialize(ctx)
}

// Upsert inserts or replaces rows by id.
func (v *VectorStore) Upsert(ctx context.Context, chunks []StoredChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapStoreError(v.path, err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO chunks
		(id, file_path, content, heading_path, section_title, doc_type, entry_id, entry_date, entry_created_at, chunk_index, dim, vector)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return wrapStoreError(v.path, err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, c.ID, c.FilePath, c.Content, c.HeadingPath, c.SectionTitle,
			c.DocType, c.EntryID, c.EntryDate, c.EntryCreatedAt, c.ChunkIndex, len(c.Vector), encodeVector(c.Vector)); err != nil {
			return wrapStoreError(c.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return wrapStoreError(v.path, err)
	}
	return nil
}

// DeleteByFile removes every chunk belonging to filePath.
func (v *VectorStore) DeleteByFile(ctx context.Context, filePath string) error {
	_, err := v.db.ExecContext(ctx, "DELETE FROM chunks WHERE file_path = ?", filePath)
	return wrapStoreError(filePath, err)
}

// Count returns the total number of stored chunks.
func (v *VectorStore) Count(ctx context.Context) (int, error) {
	var n int
	err := v.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&n)
	if err != nil {
		return 0, wrapStoreError(v.path, err)
	}
	return n, nil
}

// GetAllChunks scans every stored chunk, including its vector. Used by the
// keyword fusion helper, which needs the full corpus to build its own index.
func (v *VectorStore) GetAllChunks(ctx context.Context) ([]StoredChunk, error) {
	rows, err := v.db.QueryContext(ctx, `SELECT id, file_path, content, heading_path, section_title,
		doc_type, entry_id, entry_date, entry_created_at, chunk_index, dim, vector FROM chunks`)
	if err != nil {
		return nil, wrapStoreError(v.path, err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

// Search performs brute-force k-NN by L2 distance over every stored vector.
// Acceptable at the scale of a personal document catalog; no ANN index.
func (v *VectorStore) Search(ctx context.Context, query []float32, k int) ([]SearchResult, error) {
	all, err := v.GetAllChunks(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(all))
	for _, c := range all {
		dist := l2Distance(query, c.Vector)
		score := float32(1 / (1 + math.Max(float64(dist), 0)))
		results = append(results, SearchResult{Chunk: c, Distance: dist, Score: score})
	}

	sortResultsByScoreDesc(results)
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func sortResultsByScoreDesc(results []SearchResult) {
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
}

func l2Distance(a, b []float32) float32 {
	n := min(len(a), len(b))
	var sum float64
	for i := 0; i < n; i++ {
		d := float64(a[i] - b[i])
		sum += d * d
	}
	return float32(math.Sqrt(sum))
}

func scanChunks(rows *sql.Rows) ([]StoredChunk, error) {
	var out []StoredChunk
	for rows.Next() {
		var c StoredChunk
		var vecBlob []byte
		if err := rows.Scan(&c.ID, &c.FilePath, &c.Content, &c.HeadingPath, &c.SectionTitle,
			&c.DocType, &c.EntryID, &c.EntryDate, &c.EntryCreatedAt, &c.ChunkIndex, &c.Dim, &vecBlob); err != nil {
			return nil, wrapStoreError("", err)
		}
		c.Vector = decodeVector(vecBlob)
		out = append(out, c)
	}
	return out, nil
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	n := len(buf) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out
}
