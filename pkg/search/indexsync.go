package search

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/guobin211/opencontext/pkg/catalog"
	"github.com/guobin211/opencontext/pkg/concurrent"
)

// ActionKind enumerates what a pending sync action will do once flushed.
type ActionKind int

const (
	ActionUpdate ActionKind = iota
	ActionRemove
	ActionRename
)

// IndexAction is one coalesced pending mutation, keyed in the sync
// service's pending map by its effective (current) path.
type IndexAction struct {
	Kind    ActionKind
	Path    string
	OldPath string
	NewPath string
}

const defaultCheckIntervalSecs = 300

// DocLookup resolves the indexer's view of a doc (abs path, stable id) by
// rel_path, decoupling the sync service from a live catalog.Service.
type DocLookup func(relPath string) (DocSource, bool)

// AllDocs returns every known doc, used to rebuild idea reference maps when
// a single file is re-indexed.
type AllDocs func() []DocSource

// SyncService debounces catalog events into periodic, coalesced index
// updates: it never indexes synchronously on the event-producing goroutine.
type SyncService struct {
	indexer           *Indexer
	lookup            DocLookup
	allDocs           AllDocs
	checkIntervalSecs int64
	enabled           atomic.Bool
	pending           *concurrent.Map[string, IndexAction]
	log               *slog.Logger
}

// NewSyncService constructs a sync service with the default 300s interval,
// enabled by default.
func NewSyncService(indexer *Indexer, lookup DocLookup, allDocs AllDocs, log *slog.Logger) *SyncService {
	if log == nil {
		log = slog.Default()
	}
	s := &SyncService{
		indexer:           indexer,
		lookup:            lookup,
		allDocs:           allDocs,
		checkIntervalSecs: defaultCheckIntervalSecs,
		pending:           concurrent.NewMap[string, IndexAction](),
		log:               log,
	}
	s.enabled.Store(true)
	return s
}

// WithInterval overrides the default flush interval.
func (s *SyncService) WithInterval(seconds int64) *SyncService {
	s.checkIntervalSecs = seconds
	return s
}

// SetEnabled toggles whether the flush loop acts on pending actions.
func (s *SyncService) SetEnabled(enabled bool) {
	s.enabled.Store(enabled)
}

// IsEnabled reports the current enabled state.
func (s *SyncService) IsEnabled() bool {
	return s.enabled.Load()
}

// PendingCount returns the number of distinct paths with a pending action.
func (s *SyncService) PendingCount() int {
	return s.pending.Length()
}

// Start subscribes to bus and spawns the coalescing listener plus the
// periodic flush loop. It returns immediately; both run until ctx is done.
func (s *SyncService) Start(ctx context.Context, bus *catalog.EventBus) {
	sub := bus.Subscribe()
	go s.listen(ctx, sub)
	go s.flushLoop(ctx)
}

func (s *SyncService) listen(ctx context.Context, sub *catalog.Subscription) {
	defer sub.Unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Events():
			if !ok {
				return
			}
			switch v := msg.(type) {
			case catalog.Lagged:
				s.log.Warn("index sync listener lagged", slog.Int("dropped", v.N))
			case catalog.Event:
				for _, action := range eventToActions(v) {
					s.coalesce(action)
				}
			}
		}
	}
}

// eventToActions maps one catalog event to zero or more pending actions,
// per the Doc/Folder event → IndexAction table.
func eventToActions(ev catalog.Event) []IndexAction {
	if ev.Doc != nil {
		d := ev.Doc
		switch d.Kind {
		case catalog.DocCreated, catalog.DocUpdated:
			return []IndexAction{{Kind: ActionUpdate, Path: d.Path}}
		case catalog.DocDeleted:
			return []IndexAction{{Kind: ActionRemove, Path: d.Path}}
		case catalog.DocRenamed, catalog.DocMoved:
			return []IndexAction{{Kind: ActionRename, OldPath: d.OldPath, NewPath: d.NewPath}}
		}
		return nil
	}
	if ev.Folder != nil {
		f := ev.Folder
		switch f.Kind {
		case catalog.FolderRenamed, catalog.FolderMoved:
			actions := make([]IndexAction, 0, len(f.AffectedDocs))
			for _, pair := range f.AffectedDocs {
				actions = append(actions, IndexAction{Kind: ActionRename, OldPath: pair[0], NewPath: pair[1]})
			}
			return actions
		case catalog.FolderDeleted:
			actions := make([]IndexAction, 0, len(f.RemovedDocs))
			for _, p := range f.RemovedDocs {
				actions = append(actions, IndexAction{Kind: ActionRemove, Path: p})
			}
			return actions
		}
		return nil
	}
	return nil
}

// coalesce folds one action into the pending map: Update/Remove are
// latest-wins by path, except that an Update leaves a pending Rename onto the
// same path in place (executing the Rename re-indexes that path anyway);
// Rename drops any action pending for the old path and replaces whatever was
// pending for the new path.
func (s *SyncService) coalesce(action IndexAction) {
	switch action.Kind {
	case ActionUpdate, ActionRemove:
		if prev, ok := s.pending.Load(action.Path); ok && action.Kind == ActionUpdate && prev.Kind == ActionRename {
			return
		}
		s.pending.Store(action.Path, action)
	case ActionRename:
		s.pending.Delete(action.OldPath)
		s.pending.Store(action.NewPath, action)
	}
}

// flushLoop waits checkIntervalSecs before its first tick (mirroring the
// teacher's debounce-timer idiom), then ticks at that interval forever.
func (s *SyncService) flushLoop(ctx context.Context) {
	interval := time.Duration(s.checkIntervalSecs) * time.Second
	if interval <= 0 {
		interval = defaultCheckIntervalSecs * time.Second
	}
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			s.flushOnce(ctx)
			timer.Reset(interval)
		}
	}
}

func (s *SyncService) flushOnce(ctx context.Context) {
	if !s.IsEnabled() {
		return
	}
	if s.pending.Length() == 0 {
		return
	}
	drained := s.pending.DrainAll()
	if !s.indexer.IndexExists(ctx) {
		return
	}

	successCount, errorCount := 0, 0

	for _, action := range drained {
		if err := s.execute(ctx, action); err != nil {
			errorCount++
			s.log.Error("index sync action failed", slog.Any("action", action), slog.Any("error", err))
			continue
		}
		successCount++
	}

	if successCount > 0 {
		if err := s.indexer.updateMetadata(time.Now().UnixMilli()); err != nil {
			s.log.Error("index sync metadata update failed", slog.Any("error", err))
		}
	}
	s.log.Debug("index sync flush complete", slog.Int("succeeded", successCount), slog.Int("failed", errorCount))
}

func (s *SyncService) execute(ctx context.Context, action IndexAction) error {
	switch action.Kind {
	case ActionUpdate:
		doc, ok := s.lookup(action.Path)
		if !ok {
			return s.indexer.RemoveFile(ctx, action.Path)
		}
		_, err := s.indexer.IndexFile(ctx, doc, s.allDocs())
		return err
	case ActionRemove:
		return s.indexer.RemoveFile(ctx, action.Path)
	case ActionRename:
		newDoc, ok := s.lookup(action.NewPath)
		if !ok {
			return s.indexer.RemoveFile(ctx, action.OldPath)
		}
		return s.indexer.UpdateFilePath(ctx, action.OldPath, newDoc, s.allDocs())
	}
	return nil
}
