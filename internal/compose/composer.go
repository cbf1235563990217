package compose

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pixelboard/signage-engine/internal/quality"
	"github.com/pixelboard/signage-engine/internal/transcode"
	"github.com/pixelboard/signage-engine/internal/workspace"
)

// Result is the finished playlist video. Ownership passes to the caller;
// the engine keeps no reference and no files after returning.
type Result struct {
	// Data is the encoded mp4 content.
	Data []byte
	// Filename is a suggested name derived from the playlist name.
	Filename string
	// Resolution is the even-adjusted resolution of the output.
	Resolution quality.Resolution
	// DurationSec is the sum of requested item durations.
	DurationSec int
}

// ProgressFunc is called after each item's clip is finalized, with the
// item's ordinal. Calls arrive in ordinal order.
type ProgressFunc func(ordinal int)

// Composer orchestrates the per-item Duration Enforcer and the two-stage
// finishing pass: a lossless concat join followed by one compression encode.
type Composer struct {
	enforcer       *Enforcer
	runner         transcode.Runner
	logger         *slog.Logger
	workspaceRoot  string
	concatTimeout  time.Duration
	finishTimeout  time.Duration
	minOutputBytes int64
}

// ComposerOption configures a Composer.
type ComposerOption func(*Composer)

// WithComposerWorkspaceRoot sets the scratch directory root.
func WithComposerWorkspaceRoot(root string) ComposerOption {
	return func(c *Composer) { c.workspaceRoot = root }
}

// WithConcatTimeout sets the budget for the lossless join.
func WithConcatTimeout(d time.Duration) ComposerOption {
	return func(c *Composer) {
		if d > 0 {
			c.concatTimeout = d
		}
	}
}

// WithFinishTimeout sets the budget for the finishing encode.
func WithFinishTimeout(d time.Duration) ComposerOption {
	return func(c *Composer) {
		if d > 0 {
			c.finishTimeout = d
		}
	}
}

// WithComposerMinOutputBytes sets the output-integrity size floor.
func WithComposerMinOutputBytes(min int64) ComposerOption {
	return func(c *Composer) {
		if min > 0 {
			c.minOutputBytes = min
		}
	}
}

// NewComposer creates a Composer.
func NewComposer(enforcer *Enforcer, runner transcode.Runner, logger *slog.Logger, opts ...ComposerOption) *Composer {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Composer{
		enforcer:       enforcer,
		runner:         runner,
		logger:         logger,
		concatTimeout:  300 * time.Second,
		finishTimeout:  600 * time.Second,
		minOutputBytes: 1000,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compose produces one deliverable video for the ordered items. Output
// segment order matches input ordinal order exactly; the first item failure
// aborts the request and already-produced clips are discarded with the
// workspace. An item whose source is missing or unreadable is a failure,
// never a silent skip: every supplied item is load-bearing at this boundary.
// A non-nil onClip is invoked as each clip lands, so callers can surface
// per-item progress while the composition is still running.
func (c *Composer) Compose(ctx context.Context, name string, items []SequenceItem, target quality.Resolution, onClip ProgressFunc) (*Result, error) {
	if len(items) == 0 {
		return nil, &StageError{Stage: "validate", Kind: KindInvalidInput, Err: ErrEmptyPlaylist}
	}
	for i, item := range items {
		if item.Ordinal != i+1 {
			return nil, &StageError{Stage: "validate", Kind: KindInvalidInput, Err: ErrBadOrdinals}
		}
		if item.DurationSec < 1 {
			return nil, &StageError{
				Stage:   "validate",
				Ordinal: item.Ordinal,
				Kind:    KindInvalidInput,
				Err:     fmt.Errorf("compose: requested duration must be at least 1s, got %d", item.DurationSec),
			}
		}
	}
	if !target.Valid() {
		return nil, &StageError{Stage: "validate", Kind: KindInvalidInput, Err: fmt.Errorf("%w: %s", ErrInvalidResolution, target)}
	}

	ws, err := workspace.New(c.workspaceRoot)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := ws.Cleanup(); cerr != nil {
			c.logger.Warn("workspace cleanup failed", slog.String("error", cerr.Error()))
		}
	}()

	even := target.Even()
	profile := quality.ProfileFor(even)

	c.logger.Info("composing playlist",
		slog.String("name", name),
		slog.Int("items", len(items)),
		slog.String("resolution", even.String()),
		slog.String("tier", profile.Tier.String()),
	)

	clipPaths := make([]string, 0, len(items))
	totalDuration := 0
	for _, item := range items {
		clip, ferr := c.enforcer.Enforce(ctx, item, even, profile, ws)
		if ferr != nil {
			return nil, ferr
		}
		clipPaths = append(clipPaths, clip)
		totalDuration += item.DurationSec
		if onClip != nil {
			onClip(item.Ordinal)
		}
	}

	if err := writeManifest(ws.ManifestPath(), clipPaths); err != nil {
		return nil, &StageError{Stage: "manifest", Kind: KindEncodeFailure, Err: err}
	}

	// Stage A: copy-join all clips without re-encoding, so per-item
	// encode loss is not compounded.
	concatArgs := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", ws.ManifestPath(),
		"-c", "copy",
		ws.ConcatPath(),
	}
	if err := c.runStage(ctx, "concat", concatArgs, c.concatTimeout); err != nil {
		return nil, err
	}

	// Stage B: one finishing encode at delivery quality, normalizing
	// audio and frame rate.
	if err := c.runStage(ctx, "finish", c.finishEncodeArgs(ws, even, profile), c.finishTimeout); err != nil {
		return nil, err
	}

	data, err := c.readVerified(ws.OutputPath())
	if err != nil {
		return nil, err
	}

	return &Result{
		Data:        data,
		Filename:    PlaylistFilename(name),
		Resolution:  even,
		DurationSec: totalDuration,
	}, nil
}

// finishEncodeArgs builds the stage B compression pass.
func (c *Composer) finishEncodeArgs(ws *workspace.Workspace, target quality.Resolution, p quality.Profile) []string {
	return []string{
		"-y",
		"-i", ws.ConcatPath(),
		"-vf", scalePadFilter(target),
		"-c:v", "libx264",
		"-preset", p.Preset,
		"-crf", strconv.Itoa(p.CRF),
		"-maxrate", p.MaxBitrate,
		"-bufsize", "2M",
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		"-c:a", "aac",
		"-b:a", p.AudioBitrate,
		"-ar", "48000",
		"-ac", "2",
		"-r", outputFrameRate,
		"-profile:v", p.Profile,
		"-tune", p.Tune,
		ws.OutputPath(),
	}
}

func (c *Composer) runStage(ctx context.Context, stage string, args []string, timeout time.Duration) error {
	res, err := c.runner.Run(ctx, args, timeout)
	if err != nil {
		return &StageError{Stage: stage, Kind: KindEncodeFailure, Err: err}
	}
	if res.TimedOut {
		return &StageError{Stage: stage, Kind: KindTimeout, Err: fmt.Errorf("exceeded %s", timeout)}
	}
	if !res.Success() {
		return &StageError{
			Stage:  stage,
			Kind:   KindEncodeFailure,
			Detail: res.Stderr,
			Err:    fmt.Errorf("exit code %d", res.ExitCode),
		}
	}
	return nil
}

func (c *Composer) readVerified(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &StageError{Stage: "verify", Kind: KindOutputIntegrity, Err: err}
	}
	if info.Size() < c.minOutputBytes {
		return nil, &StageError{
			Stage: "verify",
			Kind:  KindOutputIntegrity,
			Err:   fmt.Errorf("compose: output is %d bytes, below the %d byte floor", info.Size(), c.minOutputBytes),
		}
	}

	data, err := os.ReadFile(path) // #nosec G304 - path is inside our workspace
	if err != nil {
		return nil, &StageError{Stage: "verify", Kind: KindOutputIntegrity, Err: err}
	}
	return data, nil
}

// writeManifest emits the concat demuxer file list, strictly preserving
// clip order. Single quotes in paths are escaped for the demuxer.
func writeManifest(path string, clips []string) error {
	var b strings.Builder
	for _, clip := range clips {
		escaped := strings.ReplaceAll(clip, "'", `'\''`)
		fmt.Fprintf(&b, "file '%s'\n", escaped)
	}
	return os.WriteFile(path, []byte(b.String()), 0600)
}
