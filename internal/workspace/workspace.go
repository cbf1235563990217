// Package workspace manages the private scratch directory backing one
// normalization or composition request. Every request acquires its own
// uniquely named directory; Cleanup removes it recursively and is expected
// to be deferred on every exit path.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Workspace is a per-request scratch directory.
type Workspace struct {
	dir string
}

// New acquires a fresh workspace under root. If root is empty, a directory
// under the system temp dir is used. The returned workspace is private to
// the caller; concurrent requests never share one.
func New(root string) (*Workspace, error) {
	if root == "" {
		root = filepath.Join(os.TempDir(), "signage-engine")
	}

	dir := filepath.Join(root, uuid.NewString())
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("workspace: create %s: %w", dir, err)
	}

	return &Workspace{dir: dir}, nil
}

// Dir returns the workspace directory path.
func (w *Workspace) Dir() string {
	return w.dir
}

// Join returns a path inside the workspace.
func (w *Workspace) Join(name string) string {
	return filepath.Join(w.dir, name)
}

// ClipPath returns the path for the normalized clip of one sequence item.
func (w *Workspace) ClipPath(ordinal int) string {
	return w.Join(fmt.Sprintf("clip_%d.mp4", ordinal))
}

// LoopPath returns the intermediate path used while looping a short clip.
func (w *Workspace) LoopPath(ordinal int) string {
	return w.Join(fmt.Sprintf("loop_clip_%d.mp4", ordinal))
}

// ManifestPath returns the concat demuxer manifest path.
func (w *Workspace) ManifestPath() string {
	return w.Join("concat_list.txt")
}

// ConcatPath returns the path of the lossless concatenation intermediate.
func (w *Workspace) ConcatPath() string {
	return w.Join("concat_raw.mp4")
}

// OutputPath returns the path of the final deliverable inside the workspace.
func (w *Workspace) OutputPath() string {
	return w.Join("final_output.mp4")
}

// Cleanup removes the workspace directory and everything in it.
// Safe to call multiple times.
func (w *Workspace) Cleanup() error {
	return os.RemoveAll(w.dir)
}

// Exists reports whether the workspace directory is still on disk.
func (w *Workspace) Exists() bool {
	_, err := os.Stat(w.dir)
	return err == nil
}
