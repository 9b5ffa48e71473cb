package search

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunkHeadingPath(t *testing.T) {
	c := NewChunker(1500, 100)
	src := "# Title\n\nIntro text.\n\n## Sub\n\nBody text here, long enough to stand as its own chunk.\n"
	chunks := c.Chunk("notes/a.md", src)
	require.NotEmpty(t, chunks)

	var sawSub bool
	for _, ch := range chunks {
		if strings.Contains(ch.Content, "Body text") {
			require.Equal(t, "Title > Sub", ch.HeadingPath)
			sawSub = true
		}
	}
	require.True(t, sawSub, "expected a chunk under the Sub heading")
}

func TestChunkSplitsLongContent(t *testing.T) {
	c := NewChunker(100, 10)
	var sb strings.Builder
	for i := 0; i < 60; i++ {
		sb.WriteString("word ")
	}
	chunks := c.Chunk("a.md", sb.String())
	require.Greater(t, len(chunks), 1)
}

func TestChunkIDsAreSequential(t *testing.T) {
	c := NewChunker(30, 5)
	chunks := c.Chunk("doc.md", strings.Repeat("abcdefghij ", 10))
	for i, ch := range chunks {
		require.Equal(t, "doc.md#"+strconv.Itoa(i), ch.ID)
		require.Equal(t, "doc.md", ch.FilePath)
		require.Equal(t, i, ch.ChunkIndex)
	}
}

func TestMergeSmallChunksFoldsIntoPredecessor(t *testing.T) {
	chunks := []Chunk{
		{ID: "a#0", Content: strings.Repeat("x", 100)},
		{ID: "a#1", Content: "short"},
	}
	merged := mergeSmallChunks(chunks)
	require.Len(t, merged, 1)
	require.Contains(t, merged[0].Content, "short")
}

func TestMergeSmallChunksKeepsLoneSmallChunk(t *testing.T) {
	chunks := []Chunk{{ID: "a#0", Content: "short"}}
	merged := mergeSmallChunks(chunks)
	require.Len(t, merged, 1)
}

func TestChooseSplitPointPrefersParagraphBreak(t *testing.T) {
	window := []rune("first paragraph\n\nsecond para")
	idx, trim := chooseSplitPoint(window)
	require.True(t, trim)
	require.Equal(t, "first paragraph\n\n", string(window[:idx]))
}
