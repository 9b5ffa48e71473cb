package catalog

import (
	"os"
	"time"
)

// FSMirror wraps the filesystem operations the catalog service needs under
// contexts_root. Every failure is surfaced as a Kind=Io *Error.
type FSMirror struct {
	root string
}

// NewFSMirror returns a mirror rooted at root. root must already exist.
func NewFSMirror(root string) *FSMirror {
	return &FSMirror{root: root}
}

// Root returns the mirror's configured root directory.
func (f *FSMirror) Root() string {
	return f.root
}

func (f *FSMirror) MkdirAll(abs string) error {
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return WrapIOError(abs, err)
	}
	return nil
}

func (f *FSMirror) WriteEmpty(abs string) error {
	file, err := os.OpenFile(abs, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return WrapIOError(abs, err)
	}
	return WrapIOError(abs, file.Close())
}

func (f *FSMirror) Read(abs string) ([]byte, error) {
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, WrapIOError(abs, err)
	}
	return data, nil
}

func (f *FSMirror) Write(abs string, data []byte) error {
	if err := os.WriteFile(abs, data, 0o644); err != nil {
		return WrapIOError(abs, err)
	}
	return nil
}

func (f *FSMirror) Rename(absOld, absNew string) error {
	if err := os.Rename(absOld, absNew); err != nil {
		return WrapIOError(absOld, err)
	}
	return nil
}

func (f *FSMirror) RemoveFile(abs string) error {
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return WrapIOError(abs, err)
	}
	return nil
}

func (f *FSMirror) RemoveDir(abs string) error {
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return WrapIOError(abs, err)
	}
	return nil
}

func (f *FSMirror) RemoveDirRecursive(abs string) error {
	if err := os.RemoveAll(abs); err != nil {
		return WrapIOError(abs, err)
	}
	return nil
}

// Mtime returns abs's modification time formatted as RFC3339 with
// millisecond precision in UTC.
func (f *FSMirror) Mtime(abs string) (string, error) {
	info, err := os.Stat(abs)
	if err != nil {
		return "", WrapIOError(abs, err)
	}
	return formatRFC3339Milli(info.ModTime()), nil
}

// Exists reports whether abs is present on disk.
func (f *FSMirror) Exists(abs string) bool {
	_, err := os.Stat(abs)
	return err == nil
}

func formatRFC3339Milli(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// NowISO returns the current time as RFC3339 with millisecond precision UTC,
// the timestamp format used for every created_at/updated_at column.
func NowISO() string {
	return formatRFC3339Milli(time.Now())
}
