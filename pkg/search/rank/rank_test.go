package rank

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/guobin211/opencontext/pkg/search"
)

func TestFuseReordersByCombinedRank(t *testing.T) {
	chunks := []search.StoredChunk{
		{ID: "a#0", FilePath: "a.md", Content: "apples and oranges"},
		{ID: "b#0", FilePath: "b.md", Content: "bananas and grapes"},
	}
	fuser, err := Build(chunks)
	require.NoError(t, err)
	defer fuser.Close()

	semantic := []search.SearchResult{
		{Chunk: chunks[1], Score: 0.9}, // b ranks first semantically
		{Chunk: chunks[0], Score: 0.8},
	}

	fused, err := fuser.Fuse(context.Background(), "apples", semantic)
	require.NoError(t, err)
	require.Len(t, fused, 2)
	// "apples" keyword-matches chunk a, which should pull it back to the top
	// despite ranking second semantically.
	require.Equal(t, "a#0", fused[0].Chunk.ID)
}

func TestFuseWithNoKeywordMatchPreservesSemanticOrder(t *testing.T) {
	chunks := []search.StoredChunk{
		{ID: "a#0", FilePath: "a.md", Content: "unrelated text"},
		{ID: "b#0", FilePath: "b.md", Content: "more unrelated text"},
	}
	fuser, err := Build(chunks)
	require.NoError(t, err)
	defer fuser.Close()

	semantic := []search.SearchResult{
		{Chunk: chunks[0], Score: 0.9},
		{Chunk: chunks[1], Score: 0.8},
	}

	fused, err := fuser.Fuse(context.Background(), "zzz-no-match", semantic)
	require.NoError(t, err)
	require.Equal(t, "a#0", fused[0].Chunk.ID)
	require.Equal(t, "b#0", fused[1].Chunk.ID)
}
