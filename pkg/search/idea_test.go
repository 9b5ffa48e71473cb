package search

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsIdeaPath(t *testing.T) {
	require.True(t, IsIdeaPath(".ideas/2026-01-01.md"))
	require.False(t, IsIdeaPath("notes/2026-01-01.md"))
}

func TestChunkIdeasBasic(t *testing.T) {
	content := "[//]: # (idea:id=abc123 created_at=2026-01-15T10:00:00Z)\n" +
		"Ship the new onboarding flow.\n" +
		"It should reduce signup friction.\n" +
		"\n" +
		"[//]: # (idea:id=def456 created_at=2026-02-01T09:30:00Z)\n" +
		"Explore a dark mode.\n"

	chunks := ChunkIdeas(".ideas/log.md", content, nil, nil)
	require.Len(t, chunks, 2)

	require.Equal(t, ".ideas/log.md#abc123", chunks[0].ID)
	require.Equal(t, "idea", chunks[0].DocType)
	require.Equal(t, "abc123", chunks[0].EntryID)
	require.Equal(t, "2026-01-15", chunks[0].EntryDate)
	require.Equal(t, "Ship the new onboarding flow.", chunks[0].SectionTitle)
	require.Contains(t, chunks[0].Content, "reduce signup friction")

	require.Equal(t, "def456", chunks[1].EntryID)
}

func TestChunkIdeasReferenceSummary(t *testing.T) {
	byStableID := map[string]DocRef{
		"stable-1": {StableID: "stable-1", RelPath: "projects/launch.md"},
	}
	content := "[//]: # (idea:id=xyz created_at=2026-03-01T00:00:00Z)\n" +
		"See [the plan](oc://doc/stable-1) for details.\n"

	chunks := ChunkIdeas(".ideas/log.md", content, byStableID, nil)
	require.Len(t, chunks, 1)
	require.Contains(t, chunks[0].Content, "引用:")
	require.Contains(t, chunks[0].Content, "projects/launch.md")
}

func TestChunkIdeasNoMarkerYieldsNoEntries(t *testing.T) {
	chunks := ChunkIdeas(".ideas/log.md", "just some stray text\n", nil, nil)
	require.Empty(t, chunks)
}

func TestDescribeHrefIdea(t *testing.T) {
	desc, ok := describeHref("oc://idea/entry-9", nil, nil)
	require.True(t, ok)
	require.Equal(t, "idea#entry-9", desc)
}

func TestDescribeHrefUnknownScheme(t *testing.T) {
	_, ok := describeHref("https://example.com", nil, nil)
	require.False(t, ok)
}
