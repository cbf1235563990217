package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	root := t.TempDir()

	ws, err := New(root)
	require.NoError(t, err)
	defer ws.Cleanup()

	assert.True(t, ws.Exists())
	assert.Equal(t, root, filepath.Dir(ws.Dir()))
}

func TestNew_UniquePerRequest(t *testing.T) {
	root := t.TempDir()

	a, err := New(root)
	require.NoError(t, err)
	defer a.Cleanup()

	b, err := New(root)
	require.NoError(t, err)
	defer b.Cleanup()

	assert.NotEqual(t, a.Dir(), b.Dir())
}

func TestPaths(t *testing.T) {
	ws, err := New(t.TempDir())
	require.NoError(t, err)
	defer ws.Cleanup()

	assert.Equal(t, ws.Join("clip_2.mp4"), ws.ClipPath(2))
	assert.Equal(t, ws.Join("loop_clip_2.mp4"), ws.LoopPath(2))
	assert.Equal(t, ws.Join("concat_list.txt"), ws.ManifestPath())
	assert.Equal(t, ws.Join("concat_raw.mp4"), ws.ConcatPath())
	assert.Equal(t, ws.Join("final_output.mp4"), ws.OutputPath())

	for _, p := range []string{ws.ClipPath(1), ws.ManifestPath(), ws.OutputPath()} {
		assert.Equal(t, ws.Dir(), filepath.Dir(p))
	}
}

func TestCleanup(t *testing.T) {
	ws, err := New(t.TempDir())
	require.NoError(t, err)

	// Populate with an intermediate file.
	require.NoError(t, os.WriteFile(ws.ClipPath(1), []byte("x"), 0600))

	require.NoError(t, ws.Cleanup())
	assert.False(t, ws.Exists())

	// Idempotent.
	require.NoError(t, ws.Cleanup())
}
