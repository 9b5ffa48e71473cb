package ocapp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/guobin211/opencontext/pkg/ocfg"
	"github.com/guobin211/opencontext/pkg/search"
)

func newTestApp(t *testing.T) (*App, string) {
	t.Helper()
	dir := t.TempDir()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"embedding":[1,0,0],"index":0}]}`))
	}))
	t.Cleanup(srv.Close)

	app, err := Open(ocfg.Overrides{
		BaseRoot:     dir,
		ContextsRoot: filepath.Join(dir, "contexts"),
		DBPath:       filepath.Join(dir, "catalog.db"),
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	// Open resolves the embedder's API base from config before the test
	// server exists, so rebuild it pointed at the fake server.
	app.Embedder = search.NewEmbedder(srv.URL, "key", app.cfg.Embedding.Model, app.cfg.Embedding.Dimensions, app.cfg.Embedding.BatchSize, nil)

	return app, dir
}

func TestOpenWiresCatalogAndSearch(t *testing.T) {
	app, _ := newTestApp(t)
	ctx := context.Background()

	_, err := app.Catalog.CreateDoc(ctx, "", "a.md", nil)
	require.NoError(t, err)
	require.NoError(t, app.Catalog.SaveDocContent(ctx, "a.md", "hello world", nil))

	docs, err := app.AllDocSources(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, "a.md", docs[0].RelPath)
}

func TestSearchEmbedsQueryAndQueriesStore(t *testing.T) {
	app, _ := newTestApp(t)
	ctx := context.Background()

	require.NoError(t, app.Store.Upsert(ctx, []search.StoredChunk{
		{ID: "a#0", FilePath: "a.md", Vector: []float32{1, 0, 0}},
	}))

	results, err := app.Search(ctx, "hello", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "a#0", results[0].Chunk.ID)
}

func TestAllDocSourcesEmptyCatalog(t *testing.T) {
	app, _ := newTestApp(t)
	docs, err := app.AllDocSources(context.Background())
	require.NoError(t, err)
	require.Empty(t, docs)
}

func TestConfigReturnsResolvedPaths(t *testing.T) {
	app, dir := newTestApp(t)
	cfg := app.Config()
	require.Equal(t, filepath.Join(dir, "catalog.db"), cfg.Paths.DBPath)
}
