// Package ocapp is the composition root: it wires the catalog service and
// the search pipeline together into the single object the CLI drives.
package ocapp

import (
	"context"
	"log/slog"

	"github.com/guobin211/opencontext/pkg/catalog"
	"github.com/guobin211/opencontext/pkg/ocfg"
	"github.com/guobin211/opencontext/pkg/search"
)

// App bundles the catalog service with the search pipeline built on top of
// it, and owns their shared lifecycle (Close, background sync).
type App struct {
	Catalog  *catalog.Service
	Store    *search.VectorStore
	Embedder *search.Embedder
	Indexer  *search.Indexer
	Sync     *search.SyncService
	Watcher  *search.Watcher

	cfg    *ocfg.Config
	cancel context.CancelFunc
}

// Open resolves configuration, opens the catalog, and wires the search
// pipeline (embedder, vector store, chunker, indexer, sync service) on top
// of it.
func Open(overrides ocfg.Overrides, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	cat, err := catalog.Init(overrides, log)
	if err != nil {
		return nil, err
	}

	cfg, err := ocfg.Load(overrides)
	if err != nil {
		cat.Close()
		return nil, err
	}

	store, err := search.NewVectorStore(cfg.Paths.VectorStorePath)
	if err != nil {
		cat.Close()
		return nil, err
	}
	embedder := search.NewEmbedder(cfg.Embedding.APIBase, cfg.Embedding.APIKey, cfg.Embedding.Model,
		cfg.Embedding.Dimensions, cfg.Embedding.BatchSize, log)
	chunker := search.NewChunker(cfg.Behavior.ChunkSize, cfg.Behavior.ChunkOverlap)
	indexer := search.NewIndexer(store, embedder, chunker, cfg.Paths.IndexMetadataPath, log)

	app := &App{Catalog: cat, Store: store, Embedder: embedder, Indexer: indexer, cfg: cfg}

	lookup := func(relPath string) (search.DocSource, bool) {
		doc, err := cat.GetDocMeta(context.Background(), relPath)
		if err != nil || doc == nil {
			return search.DocSource{}, false
		}
		return search.DocSource{RelPath: doc.RelPath, AbsPath: doc.AbsPath, StableID: doc.StableID}, true
	}
	app.Sync = search.NewSyncService(indexer, lookup, app.allDocSourcesOrNil, log)

	watcher, err := search.NewWatcher(cfg.Paths.ContextsRoot, cat.Events(), log)
	if err != nil {
		store.Close()
		cat.Close()
		return nil, err
	}
	app.Watcher = watcher

	return app, nil
}

func (a *App) allDocSourcesOrNil() []search.DocSource {
	docs, err := a.AllDocSources(context.Background())
	if err != nil {
		return nil
	}
	return docs
}

// StartSync begins the debounced event-driven index synchronizer and the
// filesystem watcher for externally-edited files, both wired to the
// catalog's event bus. Call before the process blocks on CLI/serve work;
// cancel via Close.
func (a *App) StartSync(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.Sync.Start(ctx, a.Catalog.Events())
	a.Watcher.Start(ctx)
}

// Config returns the resolved configuration the app was opened with.
func (a *App) Config() *ocfg.Config {
	return a.cfg
}

// AllDocSources returns every doc in DocSource form, e.g. for a full
// BuildAll or for idea-reference resolution.
func (a *App) AllDocSources(ctx context.Context) ([]search.DocSource, error) {
	docs, err := a.Catalog.ListDocs(ctx, "", true)
	if err != nil {
		return nil, err
	}
	out := make([]search.DocSource, len(docs))
	for i, d := range docs {
		out[i] = search.DocSource{RelPath: d.RelPath, AbsPath: d.AbsPath, StableID: d.StableID}
	}
	return out, nil
}

// Search embeds query and returns the top-k semantic matches.
func (a *App) Search(ctx context.Context, query string, limit int) ([]search.SearchResult, error) {
	vectors, err := a.Embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return a.Store.Search(ctx, vectors[0], limit)
}

// Close releases the catalog, the vector store, the filesystem watcher, and
// cancels any running sync loop.
func (a *App) Close() error {
	if a.cancel != nil {
		a.cancel()
	}
	if err := a.Watcher.Close(); err != nil {
		return err
	}
	if err := a.Store.Close(); err != nil {
		return err
	}
	return a.Catalog.Close()
}
