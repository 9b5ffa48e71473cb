// Package search implements the semantic indexing pipeline: markdown
// chunking, batched embedding, a SQLite-backed vector store, the indexer
// that drives them, and the debounced sync service that keeps the index
// current as the catalog changes.
package search

import "fmt"

// Kind tags the category of a search-pipeline failure.
type Kind int

const (
	KindInvalidInput Kind = iota
	KindNotFound
	KindEmbedding
	KindStore
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindNotFound:
		return "not_found"
	case KindEmbedding:
		return "embedding"
	case KindStore:
		return "store"
	case KindIO:
		return "io"
	default:
		return "unknown"
	}
}

// Error is the typed error returned by every search-pipeline operation.
type Error struct {
	Kind    Kind
	Path    string
	Message string
	Cause   error
}

var _ error = (*Error)(nil)

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %q", e.Message, e.Path)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func NewError(kind Kind, path, message string) *Error {
	return &Error{Kind: kind, Path: path, Message: message}
}

func wrapEmbeddingError(cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: KindEmbedding, Message: "embedding request failed", Cause: cause}
}

func wrapStoreError(path string, cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: KindStore, Path: path, Message: "vector store operation failed", Cause: cause}
}

func wrapIOError(path string, cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: KindIO, Path: path, Message: "filesystem operation failed", Cause: cause}
}
