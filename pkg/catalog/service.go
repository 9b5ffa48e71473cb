// Package catalog implements the document/folder catalog: the transactional
// metadata store, its filesystem mirror, the lifecycle event bus, and the
// public service that keeps all three consistent.
package catalog

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/guobin211/opencontext/pkg/ocfg"
)

// Service is the public catalog API. It owns the metadata store connection
// (serialized by mu) and the filesystem tree under ContextsRoot.
type Service struct {
	mu           sync.Mutex
	store        *Store
	fs           *FSMirror
	bus          *EventBus
	contextsRoot string
	log          *slog.Logger
}

// Rename is returned by RenameFolder/MoveFolder: the old and new rel_paths.
type Rename struct {
	Old string
	New string
}

// Init resolves paths (overrides > env > platform default), creates the
// contexts root and store directory, opens the store, and runs migrations.
func Init(overrides ocfg.Overrides, log *slog.Logger) (*Service, error) {
	if log == nil {
		log = slog.Default()
	}
	cfg, err := ocfg.Load(overrides)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Paths.BaseRoot, 0o755); err != nil {
		return nil, WrapIOError(cfg.Paths.BaseRoot, err)
	}
	if err := os.MkdirAll(cfg.Paths.ContextsRoot, 0o755); err != nil {
		return nil, WrapIOError(cfg.Paths.ContextsRoot, err)
	}

	store, err := OpenStore(cfg.Paths.DBPath)
	if err != nil {
		return nil, err
	}

	return &Service{
		store:        store,
		fs:           NewFSMirror(cfg.Paths.ContextsRoot),
		bus:          NewEventBus(log),
		contextsRoot: cfg.Paths.ContextsRoot,
		log:          log,
	}, nil
}

// Close releases the store connection.
func (s *Service) Close() error {
	return s.store.Close()
}

// Events returns the shared event bus for subscribers (e.g. the index sync
// service).
func (s *Service) Events() *EventBus {
	return s.bus
}

// ContextsRoot returns the filesystem root the catalog mirrors.
func (s *Service) ContextsRoot() string {
	return s.contextsRoot
}

func (s *Service) absPath(relPath string) string {
	if relPath == "" {
		return s.contextsRoot
	}
	return filepath.Join(s.contextsRoot, filepath.FromSlash(relPath))
}

// ensureFolderRecord recursively creates ancestor folder rows (and their
// directories) for relPath, returning the existing or newly inserted row.
// Root (relPath == "") has no row and returns nil.
func (s *Service) ensureFolderRecord(ctx context.Context, tx *sql.Tx, relPath string) (*Folder, error) {
	if relPath == "" {
		return nil, nil
	}
	existing, err := s.store.FindFolder(ctx, tx, relPath)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	var parentID sql.NullInt64
	if parentRelPath, hasParent := ParentRelPath(relPath); hasParent {
		parent, err := s.ensureFolderRecord(ctx, tx, parentRelPath)
		if err != nil {
			return nil, err
		}
		if parent != nil {
			parentID = sql.NullInt64{Int64: parent.ID, Valid: true}
		}
	}

	absPath := s.absPath(relPath)
	if err := s.fs.MkdirAll(absPath); err != nil {
		return nil, err
	}
	ts := NowISO()
	name := NameOf(relPath)
	id, err := s.store.InsertFolder(ctx, tx, parentID, name, relPath, absPath, "", ts)
	if err != nil {
		return nil, err
	}
	return &Folder{ID: id, ParentID: parentID, Name: name, RelPath: relPath, AbsPath: absPath, CreatedAt: ts, UpdatedAt: ts}, nil
}

// ListFolders returns all folders (ordered by rel_path) or only root-level
// folders (ordered by name).
func (s *Service) ListFolders(ctx context.Context, all bool) ([]*Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.ListFolders(ctx, s.store.db, all)
}

// CreateFolder creates path (and any missing ancestors), or, if it already
// exists, updates only its description. No event is emitted.
func (s *Service) CreateFolder(ctx context.Context, path string, description *string) (*Folder, error) {
	relPath := NormalizeFolderPath(path)
	if relPath == "" {
		return nil, NewError(KindInvalidInput, "", "cannot create the root folder")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var parentID sql.NullInt64
	if parentRelPath, hasParent := ParentRelPath(relPath); hasParent {
		parent, err := s.ensureFolderRecord(ctx, tx, parentRelPath)
		if err != nil {
			return nil, err
		}
		if parent != nil {
			parentID = sql.NullInt64{Int64: parent.ID, Valid: true}
		}
	}

	existing, err := s.store.FindFolder(ctx, tx, relPath)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if description != nil {
			ts := NowISO()
			if err := s.store.UpdateFolderDescription(ctx, tx, existing.ID, *description, ts); err != nil {
				return nil, err
			}
			existing.Description = *description
			existing.UpdatedAt = ts
		}
		if err := tx.Commit(); err != nil {
			return nil, WrapStoreError(relPath, err)
		}
		return existing, nil
	}

	absPath := s.absPath(relPath)
	if err := s.fs.MkdirAll(absPath); err != nil {
		return nil, err
	}
	ts := NowISO()
	desc := ""
	if description != nil {
		desc = *description
	}
	id, err := s.store.InsertFolder(ctx, tx, parentID, NameOf(relPath), relPath, absPath, desc, ts)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, WrapStoreError(relPath, err)
	}
	return &Folder{ID: id, ParentID: parentID, Name: NameOf(relPath), RelPath: relPath, AbsPath: absPath, Description: desc, CreatedAt: ts, UpdatedAt: ts}, nil
}

// RenameFolder renames the last segment of path to newName, rewriting the
// rel_path/abs_path of every descendant folder and doc in one transaction,
// and emits FolderEvent::Renamed.
func (s *Service) RenameFolder(ctx context.Context, path, newName string) (*Rename, error) {
	relPath := NormalizeFolderPath(path)
	if relPath == "" {
		return nil, NewError(KindInvalidInput, "", "cannot rename the root folder")
	}
	if err := validateSegment(newName); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	folder, err := s.store.FindFolder(ctx, s.store.db, relPath)
	if err != nil {
		return nil, err
	}
	if folder == nil {
		return nil, folderNotFound(relPath)
	}

	parentRelPath, _ := ParentRelPath(relPath)
	newRelPath := newName
	if parentRelPath != "" {
		newRelPath = parentRelPath + "/" + newName
	}
	if newRelPath == relPath {
		return &Rename{Old: relPath, New: relPath}, nil
	}
	if existing, err := s.store.FindFolder(ctx, s.store.db, newRelPath); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, pathExists(newRelPath)
	}

	oldAbs := s.absPath(relPath)
	newAbs := s.absPath(newRelPath)
	if err := s.fs.Rename(oldAbs, newAbs); err != nil {
		return nil, err
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	ts := NowISO()
	if err := s.store.RenameFolderRow(ctx, tx, folder.ID, newName, newRelPath, newAbs, folder.ParentID, ts); err != nil {
		return nil, err
	}
	if err := s.store.RewriteFolderDescendants(ctx, tx, relPath, newRelPath, s.contextsRoot, ts); err != nil {
		return nil, err
	}
	affectedDocs, err := s.store.RewriteDocDescendants(ctx, tx, relPath, newRelPath, s.contextsRoot, ts)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, WrapStoreError(relPath, err)
	}

	s.bus.PublishFolder(FolderEvent{Kind: FolderRenamed, OldPath: relPath, NewPath: newRelPath, AffectedDocs: affectedDocs})
	return &Rename{Old: relPath, New: newRelPath}, nil
}

// MoveFolder relocates path to be a child of destFolderPath, analogous to
// RenameFolder but additionally reassigning parent_id, and emits
// FolderEvent::Moved.
func (s *Service) MoveFolder(ctx context.Context, path, destFolderPath string) (*Rename, error) {
	relPath := NormalizeFolderPath(path)
	if relPath == "" {
		return nil, NewError(KindInvalidInput, "", "cannot move the root folder")
	}
	destRelPath := NormalizeFolderPath(destFolderPath)

	s.mu.Lock()
	defer s.mu.Unlock()

	folder, err := s.store.FindFolder(ctx, s.store.db, relPath)
	if err != nil {
		return nil, err
	}
	if folder == nil {
		return nil, folderNotFound(relPath)
	}

	var destID sql.NullInt64
	if destRelPath != "" {
		dest, err := s.store.FindFolder(ctx, s.store.db, destRelPath)
		if err != nil {
			return nil, err
		}
		if dest == nil {
			return nil, folderNotFound(destRelPath)
		}
		if destRelPath == relPath || strings.HasPrefix(destRelPath, relPath+"/") {
			return nil, NewError(KindInvalidInput, destRelPath, "destination cannot be the folder itself or one of its descendants")
		}
		destID = sql.NullInt64{Int64: dest.ID, Valid: true}
	}

	newRelPath := folder.Name
	if destRelPath != "" {
		newRelPath = destRelPath + "/" + folder.Name
	}
	if existing, err := s.store.FindFolder(ctx, s.store.db, newRelPath); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, pathExists(newRelPath)
	}

	oldAbs := s.absPath(relPath)
	newAbs := s.absPath(newRelPath)
	if err := s.fs.Rename(oldAbs, newAbs); err != nil {
		return nil, err
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	ts := NowISO()
	if err := s.store.RenameFolderRow(ctx, tx, folder.ID, folder.Name, newRelPath, newAbs, destID, ts); err != nil {
		return nil, err
	}
	if err := s.store.RewriteFolderDescendants(ctx, tx, relPath, newRelPath, s.contextsRoot, ts); err != nil {
		return nil, err
	}
	affectedDocs, err := s.store.RewriteDocDescendants(ctx, tx, relPath, newRelPath, s.contextsRoot, ts)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, WrapStoreError(relPath, err)
	}

	s.bus.PublishFolder(FolderEvent{Kind: FolderMoved, OldPath: relPath, NewPath: newRelPath, AffectedDocs: affectedDocs})
	return &Rename{Old: relPath, New: newRelPath}, nil
}

// RemoveFolder deletes path. Without force it fails if the folder has any
// child folder or doc; with force it removes the whole subtree and emits
// FolderEvent::Deleted.
func (s *Service) RemoveFolder(ctx context.Context, path string, force bool) error {
	relPath := NormalizeFolderPath(path)
	if relPath == "" {
		return NewError(KindInvalidInput, "", "cannot remove the root folder")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	folder, err := s.store.FindFolder(ctx, s.store.db, relPath)
	if err != nil {
		return err
	}
	if folder == nil {
		return folderNotFound(relPath)
	}

	if !force {
		childFolders, err := s.store.CountChildFolders(ctx, s.store.db, folder.ID)
		if err != nil {
			return err
		}
		childDocs, err := s.store.CountDocsInFolder(ctx, s.store.db, folder.ID)
		if err != nil {
			return err
		}
		if childFolders > 0 || childDocs > 0 {
			return folderNotEmpty(relPath)
		}
	}

	removedDocs, err := s.store.DocsUnderPrefix(ctx, s.store.db, relPath)
	if err != nil {
		return err
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.store.DeleteDocsUnderPrefix(ctx, tx, relPath); err != nil {
		return err
	}
	if err := s.store.DeleteDocsByFolderID(ctx, tx, folder.ID); err != nil {
		return err
	}
	if err := s.store.DeleteFoldersUnderPrefix(ctx, tx, relPath); err != nil {
		return err
	}
	if err := s.store.DeleteFolderByID(ctx, tx, folder.ID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return WrapStoreError(relPath, err)
	}

	absPath := s.absPath(relPath)
	var fsErr error
	if force {
		fsErr = s.fs.RemoveDirRecursive(absPath)
	} else {
		fsErr = s.fs.RemoveDir(absPath)
	}
	if fsErr != nil {
		s.log.Error("folder removed from store but filesystem removal failed", slog.String("rel_path", relPath), slog.Any("error", fsErr))
		return fsErr
	}

	s.bus.PublishFolder(FolderEvent{Kind: FolderDeleted, Path: relPath, RemovedDocs: removedDocs})
	return nil
}

// ListDocs lists docs under folderPath, recursively or direct-children-only.
func (s *Service) ListDocs(ctx context.Context, folderPath string, recursive bool) ([]*Doc, error) {
	relPath := NormalizeFolderPath(folderPath)

	s.mu.Lock()
	defer s.mu.Unlock()

	var folder *Folder
	if relPath != "" {
		var err error
		folder, err = s.store.FindFolder(ctx, s.store.db, relPath)
		if err != nil {
			return nil, err
		}
		if folder == nil && !recursive {
			return nil, folderNotFound(relPath)
		}
	}
	return s.store.ListDocs(ctx, s.store.db, relPath, folder, recursive)
}

// CreateDoc creates an empty document named name under folderPath.
func (s *Service) CreateDoc(ctx context.Context, folderPath, name string, description *string) (*Doc, error) {
	if err := validateSegment(name); err != nil {
		return nil, err
	}
	folderRelPath := NormalizeFolderPath(folderPath)

	s.mu.Lock()
	defer s.mu.Unlock()

	var folderID sql.NullInt64
	if folderRelPath != "" {
		folder, err := s.store.FindFolder(ctx, s.store.db, folderRelPath)
		if err != nil {
			return nil, err
		}
		if folder == nil {
			return nil, folderNotFound(folderRelPath)
		}
		folderID = sql.NullInt64{Int64: folder.ID, Valid: true}
	}

	relPath := name
	if folderRelPath != "" {
		relPath = folderRelPath + "/" + name
	}
	if existingDoc, err := s.store.FindDoc(ctx, s.store.db, relPath); err != nil {
		return nil, err
	} else if existingDoc != nil {
		return nil, pathExists(relPath)
	}
	if existingFolder, err := s.store.FindFolder(ctx, s.store.db, relPath); err != nil {
		return nil, err
	} else if existingFolder != nil {
		return nil, pathExists(relPath)
	}

	absPath := s.absPath(relPath)
	if err := s.fs.WriteEmpty(absPath); err != nil {
		return nil, err
	}

	stableID, err := GenerateStableID()
	if err != nil {
		return nil, err
	}
	ts := NowISO()
	desc := ""
	if description != nil {
		desc = *description
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	id, err := s.store.InsertDoc(ctx, tx, folderID, name, relPath, absPath, desc, stableID, ts)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, WrapStoreError(relPath, err)
	}

	s.bus.PublishDoc(DocEvent{Kind: DocCreated, Path: relPath})
	return &Doc{ID: id, FolderID: folderID, Name: name, RelPath: relPath, AbsPath: absPath, Description: desc, StableID: stableID, CreatedAt: ts, UpdatedAt: ts}, nil
}

// RenameDoc renames the last segment of path to newName, preserving folder
// and stable_id, and emits DocEvent::Renamed.
func (s *Service) RenameDoc(ctx context.Context, path, newName string) (*Rename, error) {
	return s.moveOrRenameDoc(ctx, path, newName, "", false)
}

// MoveDoc relocates path to destFolderPath (keeping its name), preserving
// stable_id, and emits DocEvent::Moved.
func (s *Service) MoveDoc(ctx context.Context, path, destFolderPath string) (*Rename, error) {
	return s.moveOrRenameDoc(ctx, path, "", destFolderPath, true)
}

func (s *Service) moveOrRenameDoc(ctx context.Context, path, newName, destFolderPath string, isMove bool) (*Rename, error) {
	relPath, err := NormalizeDocPath(path)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.store.FindDoc(ctx, s.store.db, relPath)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, docNotFound(relPath)
	}

	var newRelPath, name string
	var folderID sql.NullInt64
	if isMove {
		destRelPath := NormalizeFolderPath(destFolderPath)
		name = NameOf(relPath)
		if destRelPath != "" {
			dest, err := s.store.FindFolder(ctx, s.store.db, destRelPath)
			if err != nil {
				return nil, err
			}
			if dest == nil {
				return nil, folderNotFound(destRelPath)
			}
			folderID = sql.NullInt64{Int64: dest.ID, Valid: true}
			newRelPath = destRelPath + "/" + name
		} else {
			newRelPath = name
		}
	} else {
		if err := validateSegment(newName); err != nil {
			return nil, err
		}
		name = newName
		folderID = doc.FolderID
		if parentRelPath, hasParent := ParentRelPath(relPath); hasParent {
			newRelPath = parentRelPath + "/" + newName
		} else {
			newRelPath = newName
		}
	}

	if newRelPath == relPath {
		return &Rename{Old: relPath, New: relPath}, nil
	}
	if existing, err := s.store.FindDoc(ctx, s.store.db, newRelPath); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, pathExists(newRelPath)
	}

	oldAbs := s.absPath(relPath)
	newAbs := s.absPath(newRelPath)
	if err := s.fs.Rename(oldAbs, newAbs); err != nil {
		return nil, err
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	ts := NowISO()
	if err := s.store.RenameDocRow(ctx, tx, doc.ID, name, newRelPath, newAbs, folderID, ts); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, WrapStoreError(relPath, err)
	}

	kind := DocRenamed
	if isMove {
		kind = DocMoved
	}
	s.bus.PublishDoc(DocEvent{Kind: kind, OldPath: relPath, NewPath: newRelPath})
	return &Rename{Old: relPath, New: newRelPath}, nil
}

// RemoveDoc deletes a document row and its file, emitting DocEvent::Deleted.
func (s *Service) RemoveDoc(ctx context.Context, path string) error {
	relPath, err := NormalizeDocPath(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.store.FindDoc(ctx, s.store.db, relPath)
	if err != nil {
		return err
	}
	if doc == nil {
		return docNotFound(relPath)
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.store.DeleteDocByID(ctx, tx, doc.ID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return WrapStoreError(relPath, err)
	}

	if err := s.fs.RemoveFile(s.absPath(relPath)); err != nil {
		s.log.Error("doc removed from store but filesystem removal failed", slog.String("rel_path", relPath), slog.Any("error", err))
		return err
	}

	s.bus.PublishDoc(DocEvent{Kind: DocDeleted, Path: relPath})
	return nil
}

// SetDocDescription updates only a doc's description. No event is emitted
// (preserved source behavior; see design notes).
func (s *Service) SetDocDescription(ctx context.Context, path, description string) error {
	relPath, err := NormalizeDocPath(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.store.FindDoc(ctx, s.store.db, relPath)
	if err != nil {
		return err
	}
	if doc == nil {
		return docNotFound(relPath)
	}
	return s.store.UpdateDocDescription(ctx, s.store.db, doc.ID, description, NowISO())
}

// GetDocContent loads path's file content, best-effort syncing updated_at
// from the filesystem mtime first.
func (s *Service) GetDocContent(ctx context.Context, path string) (string, error) {
	relPath, err := NormalizeDocPath(path)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.store.FindDoc(ctx, s.store.db, relPath)
	if err != nil {
		return "", err
	}
	if doc == nil {
		return "", docNotFound(relPath)
	}

	s.syncUpdatedAtFromFS(ctx, doc)

	data, err := s.fs.Read(doc.AbsPath)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SaveDocContent overwrites path's file content, updates updated_at (and
// description if provided), and emits DocEvent::Updated.
func (s *Service) SaveDocContent(ctx context.Context, path, content string, description *string) error {
	relPath, err := NormalizeDocPath(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.store.FindDoc(ctx, s.store.db, relPath)
	if err != nil {
		return err
	}
	if doc == nil {
		return docNotFound(relPath)
	}

	if err := s.fs.Write(doc.AbsPath, []byte(content)); err != nil {
		return err
	}

	ts := NowISO()
	if err := s.store.UpdateDocContentMeta(ctx, s.store.db, doc.ID, description, ts); err != nil {
		return err
	}

	s.bus.PublishDoc(DocEvent{Kind: DocUpdated, Path: relPath})
	return nil
}

// GetDocMeta returns a doc's row, best-effort syncing updated_at from the
// filesystem mtime first.
func (s *Service) GetDocMeta(ctx context.Context, path string) (*Doc, error) {
	relPath, err := NormalizeDocPath(path)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.store.FindDoc(ctx, s.store.db, relPath)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, docNotFound(relPath)
	}
	s.syncUpdatedAtFromFS(ctx, doc)
	return doc, nil
}

// syncUpdatedAtFromFS best-effort reconciles a doc's updated_at with the
// file's actual mtime. Failures are swallowed: this is advisory, not load
// bearing, and must never turn a read into a write error.
func (s *Service) syncUpdatedAtFromFS(ctx context.Context, doc *Doc) {
	mtime, err := s.fs.Mtime(doc.AbsPath)
	if err != nil {
		return
	}
	if mtime == doc.UpdatedAt {
		return
	}
	if err := s.store.SyncDocUpdatedAt(ctx, s.store.db, doc.ID, mtime); err == nil {
		doc.UpdatedAt = mtime
	}
}

// GetDocByStableID performs a strict lookup by stable_id.
func (s *Service) GetDocByStableID(ctx context.Context, stableID string) (*Doc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.store.FindDocByStableID(ctx, s.store.db, stableID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, NewError(KindNotFound, stableID, "no document with this stable id")
	}
	return doc, nil
}

// GenerateManifest returns manifest entries under folder/%, ordered by
// rel_path, optionally capped at limit. limit == 0 is rejected.
func (s *Service) GenerateManifest(ctx context.Context, folder string, limit int) ([]DocManifestEntry, error) {
	if limit == 0 {
		return nil, NewError(KindInvalidInput, "", "manifest limit cannot be zero")
	}
	relPath := NormalizeFolderPath(folder)
	if limit < 0 {
		limit = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.GenerateManifest(ctx, s.store.db, relPath, limit)
}
