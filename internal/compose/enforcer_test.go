package compose

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelboard/signage-engine/internal/media"
	"github.com/pixelboard/signage-engine/internal/quality"
	"github.com/pixelboard/signage-engine/internal/transcode"
	"github.com/pixelboard/signage-engine/internal/workspace"
)

// scriptedRunner replays canned results in order. Successful steps write
// writeBytes bytes to the output path (last argument) to mimic ffmpeg.
// When a step is a concat join, the manifest it consumed is captured.
type scriptedRunner struct {
	steps            []transcode.Result
	writeBytes       int
	calls            [][]string
	timeouts         []time.Duration
	capturedManifest string
}

func (r *scriptedRunner) Run(_ context.Context, args []string, timeout time.Duration) (transcode.Result, error) {
	r.calls = append(r.calls, args)
	r.timeouts = append(r.timeouts, timeout)

	for i, a := range args {
		if a == "-f" && i+1 < len(args) && args[i+1] == "concat" {
			for j, b := range args {
				if b == "-i" && j+1 < len(args) {
					if data, err := os.ReadFile(args[j+1]); err == nil {
						r.capturedManifest = string(data)
					}
				}
			}
		}
	}

	if len(r.steps) == 0 {
		return transcode.Result{}, fmt.Errorf("unexpected invocation: %v", args)
	}
	step := r.steps[0]
	r.steps = r.steps[1:]

	if step.Success() && r.writeBytes > 0 {
		dst := args[len(args)-1]
		if err := os.WriteFile(dst, make([]byte, r.writeBytes), 0600); err != nil {
			return transcode.Result{}, err
		}
	}
	return step, nil
}

// mapProber returns per-path durations.
type mapProber struct {
	durations map[string]float64
	durErr    error
}

func (p *mapProber) Dimensions(context.Context, string) (int, int, error) {
	return 0, 0, transcode.ErrProbeFailed
}

func (p *mapProber) Duration(_ context.Context, path string) (float64, error) {
	if p.durErr != nil {
		return 0, p.durErr
	}
	return p.durations[path], nil
}

func (p *mapProber) HasAudio(context.Context, string) (bool, error) {
	return false, nil
}

func makeItem(t *testing.T, dir, name string, kind media.Kind, durationSec, ordinal int) SequenceItem {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("source"), 0600))
	return SequenceItem{
		Asset:       media.Asset{Path: path, Kind: kind},
		DurationSec: durationSec,
		Ordinal:     ordinal,
	}
}

func testWorkspace(t *testing.T) *workspace.Workspace {
	t.Helper()
	ws, err := workspace.New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Cleanup() })
	return ws
}

const testPadFilter = "scale=1280:720:force_original_aspect_ratio=decrease,pad=1280:720:(ow-iw)/2:(oh-ih)/2:black"

var (
	testTarget  = quality.Resolution{Width: 1280, Height: 720}
	testProfile = quality.ProfileFor(testTarget)
)

func TestEnforce_ImagePath(t *testing.T) {
	runner := &scriptedRunner{steps: []transcode.Result{{}}, writeBytes: 2048}
	e := NewEnforcer(runner, &mapProber{}, nil)
	ws := testWorkspace(t)

	item := makeItem(t, t.TempDir(), "slide.png", media.KindImage, 5, 1)
	clip, err := e.Enforce(context.Background(), item, testTarget, testProfile, ws)
	require.NoError(t, err)
	assert.Equal(t, ws.ClipPath(1), clip)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{
		"-y",
		"-loop", "1",
		"-i", item.Asset.Path,
		"-t", "5",
		"-vf", testPadFilter,
		"-c:v", "libx264",
		"-preset", "slow",
		"-crf", "16",
		"-maxrate", "5000k",
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		"-r", "30",
		clip,
	}, runner.calls[0])
}

func TestEnforce_ShortVideoLoopsThenTrims(t *testing.T) {
	runner := &scriptedRunner{steps: []transcode.Result{{}, {}}, writeBytes: 2048}
	ws := testWorkspace(t)

	item := makeItem(t, t.TempDir(), "short.mp4", media.KindVideo, 5, 2)
	prober := &mapProber{durations: map[string]float64{item.Asset.Path: 3.0}}
	e := NewEnforcer(runner, prober, nil)

	clip, err := e.Enforce(context.Background(), item, testTarget, testProfile, ws)
	require.NoError(t, err)
	assert.Equal(t, ws.ClipPath(2), clip)

	require.Len(t, runner.calls, 2)

	// floor(5/3)+1 = 2 total plays, so one additional stream repetition.
	assert.Equal(t, []string{
		"-y",
		"-stream_loop", "1",
		"-i", item.Asset.Path,
		"-c", "copy",
		ws.LoopPath(2),
	}, runner.calls[0])

	trim := runner.calls[1]
	assert.Equal(t, []string{
		"-y",
		"-i", ws.LoopPath(2),
		"-t", "5",
		"-vf", testPadFilter,
		"-c:v", "libx264",
		"-preset", "slow",
		"-crf", "16",
		"-maxrate", "5000k",
		"-bufsize", "2M",
		"-profile:v", "high",
		"-tune", "film",
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		"-r", "30",
		clip,
	}, trim)
}

func TestEnforce_LongVideoTrimsFromStart(t *testing.T) {
	runner := &scriptedRunner{steps: []transcode.Result{{}}, writeBytes: 2048}
	ws := testWorkspace(t)

	item := makeItem(t, t.TempDir(), "long.mp4", media.KindVideo, 5, 1)
	prober := &mapProber{durations: map[string]float64{item.Asset.Path: 8.0}}
	e := NewEnforcer(runner, prober, nil)

	_, err := e.Enforce(context.Background(), item, testTarget, testProfile, ws)
	require.NoError(t, err)

	require.Len(t, runner.calls, 1)
	args := runner.calls[0]

	// Reads from the source start with an explicit duration limit; no
	// seeking, no intermediate loop file.
	assert.Equal(t, "-i", args[1])
	assert.Equal(t, item.Asset.Path, args[2])
	assert.Equal(t, "-t", args[3])
	assert.Equal(t, "5", args[4])
	assert.Contains(t, strings.Join(args, " "), testPadFilter)
}

func TestEnforce_ExactDurationNoTrim(t *testing.T) {
	runner := &scriptedRunner{steps: []transcode.Result{{}}, writeBytes: 2048}
	ws := testWorkspace(t)

	item := makeItem(t, t.TempDir(), "exact.mp4", media.KindVideo, 5, 1)
	prober := &mapProber{durations: map[string]float64{item.Asset.Path: 5.0}}
	e := NewEnforcer(runner, prober, nil)

	_, err := e.Enforce(context.Background(), item, testTarget, testProfile, ws)
	require.NoError(t, err)

	require.Len(t, runner.calls, 1)
	assert.NotContains(t, runner.calls[0], "-t")
	assert.NotContains(t, runner.calls[0], "-stream_loop")
}

func TestEnforce_DurationProbeIsLoadBearing(t *testing.T) {
	t.Run("probe error is fatal", func(t *testing.T) {
		ws := testWorkspace(t)
		item := makeItem(t, t.TempDir(), "clip.mp4", media.KindVideo, 5, 3)
		e := NewEnforcer(&scriptedRunner{}, &mapProber{durErr: transcode.ErrProbeFailed}, nil)

		_, err := e.Enforce(context.Background(), item, testTarget, testProfile, ws)
		require.Error(t, err)

		var stageErr *StageError
		require.True(t, errors.As(err, &stageErr))
		assert.Equal(t, KindProbeFailure, stageErr.Kind)
		assert.Equal(t, 3, stageErr.Ordinal)
	})

	t.Run("zero duration is fatal", func(t *testing.T) {
		ws := testWorkspace(t)
		item := makeItem(t, t.TempDir(), "clip.mp4", media.KindVideo, 5, 1)
		e := NewEnforcer(&scriptedRunner{}, &mapProber{durations: map[string]float64{}}, nil)

		_, err := e.Enforce(context.Background(), item, testTarget, testProfile, ws)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrZeroDuration)
	})
}

func TestEnforce_NoRetryOnFailure(t *testing.T) {
	t.Run("encode failure aborts with diagnostic", func(t *testing.T) {
		runner := &scriptedRunner{steps: []transcode.Result{{ExitCode: 1, Stderr: "broken stream"}}}
		ws := testWorkspace(t)

		item := makeItem(t, t.TempDir(), "clip.mp4", media.KindVideo, 5, 1)
		prober := &mapProber{durations: map[string]float64{item.Asset.Path: 8.0}}
		e := NewEnforcer(runner, prober, nil)

		_, err := e.Enforce(context.Background(), item, testTarget, testProfile, ws)
		require.Error(t, err)

		var stageErr *StageError
		require.True(t, errors.As(err, &stageErr))
		assert.Equal(t, KindEncodeFailure, stageErr.Kind)
		assert.Contains(t, stageErr.Detail, "broken stream")
		// A single attempt, unlike the single-asset normalizer.
		assert.Len(t, runner.calls, 1)
	})

	t.Run("timeout reported distinctly", func(t *testing.T) {
		runner := &scriptedRunner{steps: []transcode.Result{{TimedOut: true, ExitCode: -1}}}
		ws := testWorkspace(t)

		item := makeItem(t, t.TempDir(), "clip.mp4", media.KindVideo, 5, 1)
		prober := &mapProber{durations: map[string]float64{item.Asset.Path: 8.0}}
		e := NewEnforcer(runner, prober, nil)

		_, err := e.Enforce(context.Background(), item, testTarget, testProfile, ws)
		require.Error(t, err)

		var stageErr *StageError
		require.True(t, errors.As(err, &stageErr))
		assert.Equal(t, KindTimeout, stageErr.Kind)
	})
}

func TestEnforce_CustomTimeout(t *testing.T) {
	runner := &scriptedRunner{steps: []transcode.Result{{}}, writeBytes: 2048}
	ws := testWorkspace(t)

	item := makeItem(t, t.TempDir(), "slide.jpg", media.KindImage, 3, 1)
	e := NewEnforcer(runner, &mapProber{}, nil, WithClipEncodeTimeout(120*time.Second))

	_, err := e.Enforce(context.Background(), item, testTarget, testProfile, ws)
	require.NoError(t, err)
	assert.Equal(t, 120*time.Second, runner.timeouts[0])
}
