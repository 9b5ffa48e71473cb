package oc

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestRootCmd(t *testing.T) (*bytes.Buffer, func(args ...string) error) {
	t.Helper()
	dir := t.TempDir()
	out := &bytes.Buffer{}

	run := func(args ...string) error {
		cmd := NewRootCmd()
		cmd.SetOut(out)
		cmd.SetErr(out)
		cmd.SetArgs(append([]string{
			"--base-root", dir,
			"--contexts-root", filepath.Join(dir, "contexts"),
			"--db-path", filepath.Join(dir, "catalog.db"),
		}, args...))
		return cmd.Execute()
	}
	return out, run
}

func TestFolderCreateAndList(t *testing.T) {
	out, run := newTestRootCmd(t)

	require.NoError(t, run("folder", "create", "projects"))
	out.Reset()

	require.NoError(t, run("folder", "list", "--all"))
	require.Contains(t, out.String(), "projects")
}

func TestDocCreateWriteAndShow(t *testing.T) {
	out, run := newTestRootCmd(t)

	require.NoError(t, run("doc", "create", "", "a.md"))
	out.Reset()

	require.NoError(t, run("doc", "write", "a.md", "--file", writeTempInput(t, "hello there")))
	out.Reset()

	require.NoError(t, run("doc", "show", "a.md"))
	require.Equal(t, "hello there", out.String())
}

func writeTempInput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
