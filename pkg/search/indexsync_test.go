package search

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/guobin211/opencontext/pkg/catalog"
)

func newTestSyncService() *SyncService {
	return NewSyncService(nil, func(string) (DocSource, bool) { return DocSource{}, false }, func() []DocSource { return nil }, slog.Default())
}

func TestEventToActionsDocCreatedAndUpdated(t *testing.T) {
	for _, kind := range []catalog.DocEventKind{catalog.DocCreated, catalog.DocUpdated} {
		actions := eventToActions(catalog.Event{Doc: &catalog.DocEvent{Kind: kind, Path: "a.md"}})
		require.Equal(t, []IndexAction{{Kind: ActionUpdate, Path: "a.md"}}, actions)
	}
}

func TestEventToActionsDocDeleted(t *testing.T) {
	actions := eventToActions(catalog.Event{Doc: &catalog.DocEvent{Kind: catalog.DocDeleted, Path: "a.md"}})
	require.Equal(t, []IndexAction{{Kind: ActionRemove, Path: "a.md"}}, actions)
}

func TestEventToActionsDocRenamedAndMoved(t *testing.T) {
	for _, kind := range []catalog.DocEventKind{catalog.DocRenamed, catalog.DocMoved} {
		actions := eventToActions(catalog.Event{Doc: &catalog.DocEvent{Kind: kind, OldPath: "old.md", NewPath: "new.md"}})
		require.Equal(t, []IndexAction{{Kind: ActionRename, OldPath: "old.md", NewPath: "new.md"}}, actions)
	}
}

func TestEventToActionsFolderDeleted(t *testing.T) {
	actions := eventToActions(catalog.Event{Folder: &catalog.FolderEvent{
		Kind:        catalog.FolderDeleted,
		RemovedDocs: []string{"a.md", "b.md"},
	}})
	require.Equal(t, []IndexAction{
		{Kind: ActionRemove, Path: "a.md"},
		{Kind: ActionRemove, Path: "b.md"},
	}, actions)
}

func TestEventToActionsFolderRenamed(t *testing.T) {
	actions := eventToActions(catalog.Event{Folder: &catalog.FolderEvent{
		Kind:         catalog.FolderRenamed,
		AffectedDocs: [][2]string{{"old/a.md", "new/a.md"}},
	}})
	require.Equal(t, []IndexAction{{Kind: ActionRename, OldPath: "old/a.md", NewPath: "new/a.md"}}, actions)
}

func TestCoalesceUpdateIsLatestWins(t *testing.T) {
	s := newTestSyncService()
	s.coalesce(IndexAction{Kind: ActionUpdate, Path: "a.md"})
	s.coalesce(IndexAction{Kind: ActionRemove, Path: "a.md"})
	require.Equal(t, 1, s.PendingCount())

	drained := s.pending.DrainAll()
	require.Equal(t, ActionRemove, drained["a.md"].Kind)
}

func TestCoalesceRenameDropsOldPath(t *testing.T) {
	s := newTestSyncService()
	s.coalesce(IndexAction{Kind: ActionUpdate, Path: "old.md"})
	s.coalesce(IndexAction{Kind: ActionRename, OldPath: "old.md", NewPath: "new.md"})

	drained := s.pending.DrainAll()
	_, hasOld := drained["old.md"]
	require.False(t, hasOld)
	require.Equal(t, ActionRename, drained["new.md"].Kind)
}
