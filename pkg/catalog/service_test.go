package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/guobin211/opencontext/pkg/ocfg"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	dir := t.TempDir()
	svc, err := Init(ocfg.Overrides{
		BaseRoot:     dir,
		ContextsRoot: filepath.Join(dir, "contexts"),
		DBPath:       filepath.Join(dir, "catalog.db"),
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestCreateAndListFolder(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	folder, err := svc.CreateFolder(ctx, "projects/launch", nil)
	require.NoError(t, err)
	require.Equal(t, "projects/launch", folder.RelPath)

	all, err := svc.ListFolders(ctx, true)
	require.NoError(t, err)

	var paths []string
	for _, f := range all {
		paths = append(paths, f.RelPath)
	}
	require.Contains(t, paths, "projects")
	require.Contains(t, paths, "projects/launch")
}

func TestCreateFolderIdempotentUpdatesDescription(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.CreateFolder(ctx, "notes", nil)
	require.NoError(t, err)

	desc := "personal notes"
	folder, err := svc.CreateFolder(ctx, "notes", &desc)
	require.NoError(t, err)
	require.Equal(t, desc, folder.Description)
}

func TestCreateDocAndRoundTripContent(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.CreateFolder(ctx, "notes", nil)
	require.NoError(t, err)

	doc, err := svc.CreateDoc(ctx, "notes", "todo.md", nil)
	require.NoError(t, err)
	require.Equal(t, "notes/todo.md", doc.RelPath)
	require.NotEmpty(t, doc.StableID)

	require.NoError(t, svc.SaveDocContent(ctx, "notes/todo.md", "# Todo\n\nwrite tests\n", nil))

	content, err := svc.GetDocContent(ctx, "notes/todo.md")
	require.NoError(t, err)
	require.Equal(t, "# Todo\n\nwrite tests\n", content)
}

func TestCreateDocDuplicatePathFails(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.CreateDoc(ctx, "", "a.md", nil)
	require.NoError(t, err)

	_, err = svc.CreateDoc(ctx, "", "a.md", nil)
	require.Error(t, err)
}

func TestRenameDoc(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.CreateDoc(ctx, "", "old.md", nil)
	require.NoError(t, err)

	rn, err := svc.RenameDoc(ctx, "old.md", "new.md")
	require.NoError(t, err)
	require.Equal(t, "old.md", rn.Old)
	require.Equal(t, "new.md", rn.New)

	_, err = svc.GetDocMeta(ctx, "old.md")
	require.Error(t, err)

	doc, err := svc.GetDocMeta(ctx, "new.md")
	require.NoError(t, err)
	require.Equal(t, "new.md", doc.RelPath)
}

func TestMoveDocPreservesStableID(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.CreateFolder(ctx, "dest", nil)
	require.NoError(t, err)
	doc, err := svc.CreateDoc(ctx, "", "a.md", nil)
	require.NoError(t, err)

	rn, err := svc.MoveDoc(ctx, "a.md", "dest")
	require.NoError(t, err)
	require.Equal(t, "dest/a.md", rn.New)

	moved, err := svc.GetDocByStableID(ctx, doc.StableID)
	require.NoError(t, err)
	require.Equal(t, "dest/a.md", moved.RelPath)
}

func TestRemoveDoc(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.CreateDoc(ctx, "", "a.md", nil)
	require.NoError(t, err)
	require.NoError(t, svc.RemoveDoc(ctx, "a.md"))

	_, err = svc.GetDocMeta(ctx, "a.md")
	require.Error(t, err)
}

func TestRenameFolderRewritesDescendantDocs(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.CreateFolder(ctx, "projects", nil)
	require.NoError(t, err)
	_, err = svc.CreateDoc(ctx, "projects", "plan.md", nil)
	require.NoError(t, err)

	rn, err := svc.RenameFolder(ctx, "projects", "initiatives")
	require.NoError(t, err)
	require.Equal(t, "initiatives", rn.New)

	doc, err := svc.GetDocMeta(ctx, "initiatives/plan.md")
	require.NoError(t, err)
	require.Equal(t, "initiatives/plan.md", doc.RelPath)
}

func TestRemoveFolderNonEmptyRequiresForce(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.CreateFolder(ctx, "projects", nil)
	require.NoError(t, err)
	_, err = svc.CreateDoc(ctx, "projects", "plan.md", nil)
	require.NoError(t, err)

	err = svc.RemoveFolder(ctx, "projects", false)
	require.Error(t, err)

	require.NoError(t, svc.RemoveFolder(ctx, "projects", true))

	_, err = svc.GetDocMeta(ctx, "projects/plan.md")
	require.Error(t, err)
}

func TestCatalogEventsArePublished(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	sub := svc.Events().Subscribe()
	defer sub.Unsubscribe()

	_, err := svc.CreateDoc(ctx, "", "a.md", nil)
	require.NoError(t, err)

	msg := <-sub.Events()
	ev, ok := msg.(Event)
	require.True(t, ok)
	require.NotNil(t, ev.Doc)
	require.Equal(t, DocCreated, ev.Doc.Kind)
	require.Equal(t, "a.md", ev.Doc.Path)
}

func TestGenerateManifestRejectsZeroLimit(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.GenerateManifest(ctx, "", 0)
	require.Error(t, err)
}

func TestGenerateManifest(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.CreateDoc(ctx, "", "a.md", nil)
	require.NoError(t, err)
	_, err = svc.CreateDoc(ctx, "", "b.md", nil)
	require.NoError(t, err)

	entries, err := svc.GenerateManifest(ctx, "", -1)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}
