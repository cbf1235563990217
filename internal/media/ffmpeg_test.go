package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelboard/signage-engine/internal/quality"
	"github.com/pixelboard/signage-engine/internal/transcode"
)

// skipIfNoFFmpeg skips the test if ffmpeg or ffprobe is not available.
func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not found in PATH, skipping test", bin)
		}
	}
}

// renderSourceVideo creates a solid-color clip using ffmpeg, optionally
// with a silent audio track.
func renderSourceVideo(t *testing.T, path string, duration float64, withAudio bool) {
	t.Helper()

	args := []string{
		"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=red:s=320x180:d=%.1f", duration),
	}
	if withAudio {
		args = append(args,
			"-f", "lavfi",
			"-i", fmt.Sprintf("anullsrc=r=44100:cl=mono:d=%.1f", duration),
			"-c:a", "aac",
			"-shortest",
		)
	}
	args = append(args,
		"-c:v", "libx264",
		"-preset", "ultrafast",
		path,
	)

	cmd := exec.Command("ffmpeg", args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to create test video: %v\noutput: %s", err, output)
	}
}

func TestNormalizeVideoWithFFmpeg(t *testing.T) {
	skipIfNoFFmpeg(t)

	srcDir := t.TempDir()
	prober := transcode.NewFFprobe("")
	n := NewNormalizer(
		transcode.NewRunner(""),
		prober,
		nil,
		WithWorkspaceRoot(t.TempDir()),
	)
	ctx := context.Background()

	verify := func(t *testing.T, out *Output) {
		t.Helper()
		require.Greater(t, len(out.Data), 1000)

		path := filepath.Join(t.TempDir(), out.Filename)
		require.NoError(t, os.WriteFile(path, out.Data, 0600))

		duration, err := prober.Duration(ctx, path)
		require.NoError(t, err)
		assert.InDelta(t, 2.0, duration, 0.2)

		w, h, err := prober.Dimensions(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, 640, w)
		assert.Equal(t, 360, h)
	}

	t.Run("video with audio stream", func(t *testing.T) {
		src := filepath.Join(srcDir, "with_audio.mp4")
		renderSourceVideo(t, src, 2.0, true)
		asset, err := NewAsset(src)
		require.NoError(t, err)

		out, err := n.Normalize(ctx, asset, quality.Resolution{Width: 640, Height: 360})
		require.NoError(t, err)
		verify(t, out)

		hasAudio, err := prober.HasAudio(ctx, src)
		require.NoError(t, err)
		assert.True(t, hasAudio)
	})

	t.Run("video without audio stream", func(t *testing.T) {
		src := filepath.Join(srcDir, "silent.mp4")
		renderSourceVideo(t, src, 2.0, false)
		asset, err := NewAsset(src)
		require.NoError(t, err)

		out, err := n.Normalize(ctx, asset, quality.Resolution{Width: 640, Height: 360})
		require.NoError(t, err)
		verify(t, out)
	})
}
