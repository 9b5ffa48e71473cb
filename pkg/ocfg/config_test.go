package ocfg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithOverrides(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(Overrides{BaseRoot: dir})
	require.NoError(t, err)

	require.Equal(t, dir, cfg.Paths.BaseRoot)
	require.Equal(t, filepath.Join(dir, "contexts"), cfg.Paths.ContextsRoot)
	require.Equal(t, filepath.Join(dir, "opencontext.db"), cfg.Paths.DBPath)
	require.Equal(t, defaultModel, cfg.Embedding.Model)
	require.Equal(t, defaultChunkSize, cfg.Behavior.ChunkSize)
}

func TestLoadOverridesWinOverDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(Overrides{
		BaseRoot:     dir,
		ContextsRoot: filepath.Join(dir, "custom-contexts"),
		DBPath:       filepath.Join(dir, "custom.db"),
	})
	require.NoError(t, err)

	require.Equal(t, filepath.Join(dir, "custom-contexts"), cfg.Paths.ContextsRoot)
	require.Equal(t, filepath.Join(dir, "custom.db"), cfg.Paths.DBPath)
}

func TestLoadReadsYAMLConfig(t *testing.T) {
	dir := t.TempDir()
	yamlContent := `
embedding_model: text-embedding-3-large
search:
  chunk_size: 800
  chunk_overlap: 100
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yamlContent), 0o644))

	cfg, err := Load(Overrides{BaseRoot: dir})
	require.NoError(t, err)
	require.Equal(t, "text-embedding-3-large", cfg.Embedding.Model)
	require.Equal(t, 800, cfg.Behavior.ChunkSize)
	require.Equal(t, 100, cfg.Behavior.ChunkOverlap)
}

func TestLoadEnvOverridesFileConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("embedding_model: file-model\n"), 0o644))

	t.Setenv("EMBEDDING_MODEL", "env-model")
	cfg, err := Load(Overrides{BaseRoot: dir})
	require.NoError(t, err)
	require.Equal(t, "env-model", cfg.Embedding.Model)
}

func TestFirstNonEmpty(t *testing.T) {
	require.Equal(t, "b", firstNonEmpty("", "b", "c"))
	require.Equal(t, "", firstNonEmpty("", ""))
}
