package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReleasesParsesIndexLayout(t *testing.T) {
	dir := t.TempDir()

	// crates.io index layout: 2-char crates under 2/, longer ones under
	// prefix directories.
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "du", "mm"), 0o750))
	crateFile := filepath.Join(dir, "du", "mm", "dummy")
	require.NoError(t, os.WriteFile(crateFile, []byte(
		`{"name":"dummy","vers":"1.0.0","yanked":false}
{"name":"dummy","vers":"2.0.0","yanked":true}
not json at all
`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"api":"https://example.com"}`), 0o600))

	idx := NewIndex("https://example.com/index.git", dir)
	releases, err := idx.Releases()
	require.NoError(t, err)
	require.Len(t, releases, 2)
	require.Equal(t, "dummy", releases[0].Name)
	require.Equal(t, "1.0.0", releases[0].Version)
	require.True(t, releases[1].Yanked)
}

func TestReleasesSkipsGitDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".git", "HEAD"), []byte("ref: refs/heads/master"), 0o600))

	idx := NewIndex("https://example.com/index.git", dir)
	releases, err := idx.Releases()
	require.NoError(t, err)
	require.Empty(t, releases)
}
