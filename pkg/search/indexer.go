package search

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/natefinch/atomic"
)

// Phase enumerates BuildAll's progress stages.
type Phase int

const (
	PhaseChunking Phase = iota
	PhaseEmbedding
	PhaseStoring
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseChunking:
		return "chunking"
	case PhaseEmbedding:
		return "embedding"
	case PhaseStoring:
		return "storing"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// Progress is reported to BuildAll's onProgress callback as each batch moves
// through its three phases.
type Progress struct {
	Phase   Phase
	Current int
	Total   int
	Percent int
	Message string
}

// Stats summarizes a completed BuildAll run.
type Stats struct {
	TotalDocs   int
	TotalChunks int
	ElapsedMs   int64
	LastUpdated int64
}

const indexBatchSize = 10

// DocSource is the subset of catalog.Doc the indexer needs to read and
// reference a document, decoupling this package from a live catalog.Service.
type DocSource struct {
	RelPath  string
	AbsPath  string
	StableID string
}

// Indexer drives chunking, embedding, and storing for the whole catalog (or
// a single file), and tracks a small JSON metadata sidecar alongside the
// vector store.
type Indexer struct {
	mu            sync.Mutex
	store         *VectorStore
	embedder      *Embedder
	chunker       *Chunker
	metadataPath  string
	log           *slog.Logger
	dimsVerified  bool
}

// NewIndexer wires a vector store, embedder, and chunker together.
func NewIndexer(store *VectorStore, embedder *Embedder, chunker *Chunker, metadataPath string, log *slog.Logger) *Indexer {
	if log == nil {
		log = slog.Default()
	}
	return &Indexer{store: store, embedder: embedder, chunker: chunker, metadataPath: metadataPath, log: log}
}

// verifyDimensions re-creates the vector store at the embedder's actually
// observed dimension the first time it differs from the configured one.
func (idx *Indexer) verifyDimensions(ctx context.Context) error {
	if idx.dimsVerified {
		return nil
	}
	actual := idx.embedder.ActualDimensions()
	if actual == 0 {
		return nil
	}
	idx.dimsVerified = true
	if actual == idx.embedder.Dimensions() {
		return nil
	}
	idx.log.Warn("embedding dimension mismatch, resetting vector store", slog.Int("configured", idx.embedder.Dimensions()), slog.Int("actual", actual))
	return idx.store.Reset(ctx)
}

// BuildAll rebuilds the index from scratch over docs, in batches of 10,
// reporting progress as chunking/embedding/storing/done.
func (idx *Indexer) BuildAll(ctx context.Context, docs []DocSource, onProgress func(Progress)) (*Stats, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	start := time.Now()
	if err := idx.store.Reset(ctx); err != nil {
		return nil, err
	}
	idx.dimsVerified = false

	byStableID := make(map[string]DocRef, len(docs))
	byRelPath := make(map[string]DocRef, len(docs))
	for _, d := range docs {
		ref := DocRef{StableID: d.StableID, RelPath: d.RelPath}
		byStableID[d.StableID] = ref
		byRelPath[d.RelPath] = ref
	}

	totalBatches := (len(docs) + indexBatchSize - 1) / indexBatchSize
	if totalBatches == 0 {
		totalBatches = 1
	}
	totalChunks := 0

	report := func(batch int, phase Phase, offset int, message string) {
		if onProgress == nil {
			return
		}
		onProgress(Progress{
			Phase:   phase,
			Current: batch,
			Total:   totalBatches,
			Percent: (batch*100 + offset) / totalBatches,
			Message: message,
		})
	}

	for batchStart := 0; batchStart < len(docs) || batchStart == 0; batchStart += indexBatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(batchStart+indexBatchSize, len(docs))
		batch := docs[batchStart:end]
		if len(batch) == 0 {
			break
		}
		batchNum := batchStart / indexBatchSize

		report(batchNum, PhaseChunking, 0, "chunking documents")
		var chunks []Chunk
		for _, d := range batch {
			content, err := os.ReadFile(d.AbsPath)
			if err != nil {
				idx.log.Warn("skipping unreadable document", slog.String("rel_path", d.RelPath), slog.Any("error", err))
				continue
			}
			if len(content) == 0 {
				continue
			}
			if IsIdeaPath(d.RelPath) {
				chunks = append(chunks, ChunkIdeas(d.RelPath, string(content), byStableID, byRelPath)...)
			} else {
				chunks = append(chunks, idx.chunker.Chunk(d.RelPath, string(content))...)
			}
		}
		if len(chunks) == 0 {
			report(batchNum, PhaseDone, 66, "no content to embed in this batch")
			continue
		}

		report(batchNum, PhaseEmbedding, 33, "requesting embeddings")
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Content
		}
		vectors, err := idx.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, err
		}
		if err := idx.verifyDimensions(ctx); err != nil {
			return nil, err
		}

		report(batchNum, PhaseStoring, 66, "storing chunks")
		stored := make([]StoredChunk, len(chunks))
		for i, c := range chunks {
			stored[i] = StoredChunk{
				ID: c.ID, FilePath: c.FilePath, Content: c.Content, HeadingPath: c.HeadingPath,
				SectionTitle: c.SectionTitle, DocType: c.DocType, EntryID: c.EntryID, EntryDate: c.EntryDate,
				EntryCreatedAt: c.EntryCreatedAt, ChunkIndex: c.ChunkIndex, Dim: len(vectors[i]), Vector: vectors[i],
			}
		}
		if err := idx.store.Upsert(ctx, stored); err != nil {
			return nil, err
		}
		totalChunks += len(chunks)
	}

	now := time.Now().UnixMilli()
	if err := idx.updateMetadata(now); err != nil {
		return nil, err
	}
	report(totalBatches, PhaseDone, 66, "index build complete")

	return &Stats{TotalDocs: len(docs), TotalChunks: totalChunks, ElapsedMs: time.Since(start).Milliseconds(), LastUpdated: now}, nil
}

// IndexFile re-chunks, re-embeds, and upserts a single document, returning
// the number of chunks produced.
func (idx *Indexer) IndexFile(ctx context.Context, doc DocSource, allDocs []DocSource) (int, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := idx.store.DeleteByFile(ctx, doc.RelPath); err != nil {
		return 0, err
	}

	content, err := os.ReadFile(doc.AbsPath)
	if err != nil {
		return 0, wrapIOError(doc.AbsPath, err)
	}
	if len(content) == 0 {
		return 0, nil
	}

	byStableID := make(map[string]DocRef, len(allDocs))
	byRelPath := make(map[string]DocRef, len(allDocs))
	for _, d := range allDocs {
		ref := DocRef{StableID: d.StableID, RelPath: d.RelPath}
		byStableID[d.StableID] = ref
		byRelPath[d.RelPath] = ref
	}

	var chunks []Chunk
	if IsIdeaPath(doc.RelPath) {
		chunks = ChunkIdeas(doc.RelPath, string(content), byStableID, byRelPath)
	} else {
		chunks = idx.chunker.Chunk(doc.RelPath, string(content))
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := idx.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, err
	}
	if err := idx.verifyDimensions(ctx); err != nil {
		return 0, err
	}

	stored := make([]StoredChunk, len(chunks))
	for i, c := range chunks {
		stored[i] = StoredChunk{
			ID: c.ID, FilePath: doc.RelPath, Content: c.Content, HeadingPath: c.HeadingPath,
			SectionTitle: c.SectionTitle, DocType: c.DocType, EntryID: c.EntryID, EntryDate: c.EntryDate,
			EntryCreatedAt: c.EntryCreatedAt, ChunkIndex: c.ChunkIndex, Dim: len(vectors[i]), Vector: vectors[i],
		}
	}
	if err := idx.store.Upsert(ctx, stored); err != nil {
		return 0, err
	}
	if err := idx.updateMetadata(time.Now().UnixMilli()); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

// RemoveFile deletes every chunk for relPath.
func (idx *Indexer) RemoveFile(ctx context.Context, relPath string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.store.DeleteByFile(ctx, relPath)
}

// UpdateFilePath removes the old path's chunks and, if the new file exists,
// re-indexes it. Re-embedding is accepted as the cost of correctness.
func (idx *Indexer) UpdateFilePath(ctx context.Context, oldPath string, newDoc DocSource, allDocs []DocSource) error {
	if err := idx.RemoveFile(ctx, oldPath); err != nil {
		return err
	}
	if _, err := os.Stat(newDoc.AbsPath); err != nil {
		return nil
	}
	_, err := idx.IndexFile(ctx, newDoc, allDocs)
	return err
}

// IndexExists reports whether the vector store's table has been created.
func (idx *Indexer) IndexExists(ctx context.Context) bool {
	return idx.store.Exists(ctx)
}

type indexMetadata struct {
	LastUpdated   int64  `json:"lastUpdated"`
	LastFullBuild *int64 `json:"lastFullBuild,omitempty"`
	TotalChunks   *int   `json:"totalChunks,omitempty"`
	TotalDocs     *int   `json:"totalDocs,omitempty"`
}

// GetStats reads the metadata sidecar and the live chunk count.
func (idx *Indexer) GetStats(ctx context.Context) (*Stats, error) {
	count, err := idx.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	meta, err := idx.readMetadata()
	if err != nil {
		return nil, err
	}
	return &Stats{TotalChunks: count, LastUpdated: meta.LastUpdated}, nil
}

// Clean resets the vector store to empty.
func (idx *Indexer) Clean(ctx context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.store.Reset(ctx)
}

func (idx *Indexer) readMetadata() (*indexMetadata, error) {
	data, err := os.ReadFile(idx.metadataPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &indexMetadata{}, nil
		}
		return nil, wrapIOError(idx.metadataPath, err)
	}
	var meta indexMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, wrapIOError(idx.metadataPath, err)
	}
	return &meta, nil
}

// updateMetadata read-merge-writes {"lastUpdated": nowMs} atomically, the
// same durable-write idiom the teacher uses for on-disk state elsewhere.
func (idx *Indexer) updateMetadata(nowMs int64) error {
	meta, err := idx.readMetadata()
	if err != nil {
		meta = &indexMetadata{}
	}
	meta.LastUpdated = nowMs

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return wrapIOError(idx.metadataPath, err)
	}
	if err := atomic.WriteFile(idx.metadataPath, bytes.NewReader(data)); err != nil {
		return wrapIOError(idx.metadataPath, err)
	}
	return nil
}
