package search

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *VectorStore {
	t.Helper()
	dir := t.TempDir()
	vs, err := NewVectorStore(filepath.Join(dir, "vectors.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = vs.Close() })
	return vs
}

func TestVectorStoreUpsertAndSearch(t *testing.T) {
	ctx := context.Background()
	vs := openTestStore(t)

	chunks := []StoredChunk{
		{ID: "a#0", FilePath: "a.md", Content: "alpha", ChunkIndex: 0, Vector: []float32{1, 0, 0}},
		{ID: "b#0", FilePath: "b.md", Content: "beta", ChunkIndex: 0, Vector: []float32{0, 1, 0}},
	}
	require.NoError(t, vs.Upsert(ctx, chunks))

	n, err := vs.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	results, err := vs.Search(ctx, []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "a#0", results[0].Chunk.ID)
	require.Greater(t, results[0].Score, results[1].Score)
}

func TestVectorStoreDeleteByFile(t *testing.T) {
	ctx := context.Background()
	vs := openTestStore(t)

	require.NoError(t, vs.Upsert(ctx, []StoredChunk{
		{ID: "a#0", FilePath: "a.md", Vector: []float32{1, 0}},
		{ID: "a#1", FilePath: "a.md", Vector: []float32{0, 1}},
		{ID: "b#0", FilePath: "b.md", Vector: []float32{1, 1}},
	}))

	require.NoError(t, vs.DeleteByFile(ctx, "a.md"))

	n, err := vs.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestVectorStoreReset(t *testing.T) {
	ctx := context.Background()
	vs := openTestStore(t)

	require.NoError(t, vs.Upsert(ctx, []StoredChunk{{ID: "a#0", FilePath: "a.md", Vector: []float32{1}}}))
	require.NoError(t, vs.Reset(ctx))

	n, err := vs.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestStoredChunkDisplayName(t *testing.T) {
	c := StoredChunk{FilePath: "notes/plan.md"}
	require.Equal(t, "plan", c.DisplayName())

	idea := StoredChunk{DocType: "idea", SectionTitle: "Ship it"}
	require.Equal(t, "Ship it", idea.DisplayName())
}

func TestEncodeDecodeVectorRoundTrip(t *testing.T) {
	v := []float32{0.5, -1.25, 3.0}
	got := decodeVector(encodeVector(v))
	require.Equal(t, v, got)
}
