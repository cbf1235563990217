package compose

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/pixelboard/signage-engine/internal/media"
	"github.com/pixelboard/signage-engine/internal/quality"
	"github.com/pixelboard/signage-engine/internal/transcode"
	"github.com/pixelboard/signage-engine/internal/workspace"
)

// outputFrameRate is the fixed frame rate of every normalized clip.
const outputFrameRate = "30"

// Enforcer forces one sequence item to an exact duration and resolution.
// All video paths share the same visual transform: aspect-preserving scale
// down to fit, then centered black padding to the exact target. Unlike the
// single-asset normalizer there is no fallback retry here; any tool failure
// aborts the whole composition.
type Enforcer struct {
	runner        transcode.Runner
	prober        transcode.Prober
	logger        *slog.Logger
	encodeTimeout time.Duration
}

// EnforcerOption configures an Enforcer.
type EnforcerOption func(*Enforcer)

// WithClipEncodeTimeout sets the per-invocation encode budget.
func WithClipEncodeTimeout(d time.Duration) EnforcerOption {
	return func(e *Enforcer) {
		if d > 0 {
			e.encodeTimeout = d
		}
	}
}

// NewEnforcer creates an Enforcer over the given transcoder ports.
func NewEnforcer(runner transcode.Runner, prober transcode.Prober, logger *slog.Logger, opts ...EnforcerOption) *Enforcer {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Enforcer{
		runner:        runner,
		prober:        prober,
		logger:        logger,
		encodeTimeout: 300 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enforce produces a clip of exactly item.DurationSec seconds at the target
// resolution inside the workspace and returns its path. The target must
// already be even-adjusted by the caller.
func (e *Enforcer) Enforce(ctx context.Context, item SequenceItem, target quality.Resolution, profile quality.Profile, ws *workspace.Workspace) (string, error) {
	out := ws.ClipPath(item.Ordinal)

	if item.Asset.Kind == media.KindImage {
		return out, e.enforceImage(ctx, item, target, profile, out)
	}

	// Duration is load-bearing for branch selection: a failed probe here
	// is fatal, unlike the informational probes in the normalizer.
	src, err := e.prober.Duration(ctx, item.Asset.Path)
	if err != nil {
		return "", &StageError{
			Stage:   "probe_duration",
			Ordinal: item.Ordinal,
			Kind:    KindProbeFailure,
			Err:     err,
		}
	}
	if src <= 0 {
		return "", &StageError{
			Stage:   "probe_duration",
			Ordinal: item.Ordinal,
			Kind:    KindProbeFailure,
			Err:     fmt.Errorf("%w: %s", ErrZeroDuration, item.Asset.Path),
		}
	}

	requested := float64(item.DurationSec)
	switch {
	case src < requested:
		return out, e.enforceShortVideo(ctx, item, src, target, profile, ws, out)
	case src > requested:
		return out, e.enforceLongVideo(ctx, item, target, profile, out)
	default:
		return out, e.enforceExactVideo(ctx, item, target, profile, out)
	}
}

// enforceImage loops a single frame for the requested duration.
func (e *Enforcer) enforceImage(ctx context.Context, item SequenceItem, target quality.Resolution, p quality.Profile, out string) error {
	args := []string{
		"-y",
		"-loop", "1",
		"-i", item.Asset.Path,
		"-t", strconv.Itoa(item.DurationSec),
		"-vf", scalePadFilter(target),
		"-c:v", "libx264",
		"-preset", p.Preset,
		"-crf", strconv.Itoa(p.CRF),
		"-maxrate", p.MaxBitrate,
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		"-r", outputFrameRate,
		out,
	}

	return e.runStage(ctx, "image_clip", item.Ordinal, args)
}

// enforceShortVideo repeats the source losslessly until it covers the
// requested duration, then re-encodes trimmed to the exact length.
func (e *Enforcer) enforceShortVideo(ctx context.Context, item SequenceItem, srcDuration float64, target quality.Resolution, p quality.Profile, ws *workspace.Workspace, out string) error {
	loopFile := ws.LoopPath(item.Ordinal)
	defer func() { _ = os.Remove(loopFile) }()

	loops := int(float64(item.DurationSec)/srcDuration) + 1

	e.logger.Debug("looping short clip",
		slog.Int("ordinal", item.Ordinal),
		slog.Float64("source_duration", srcDuration),
		slog.Int("requested", item.DurationSec),
		slog.Int("loops", loops),
	)

	loopArgs := []string{
		"-y",
		"-stream_loop", strconv.Itoa(loops - 1),
		"-i", item.Asset.Path,
		"-c", "copy",
		loopFile,
	}
	if err := e.runStage(ctx, "loop_copy", item.Ordinal, loopArgs); err != nil {
		return err
	}

	finalArgs := append([]string{
		"-y",
		"-i", loopFile,
		"-t", strconv.Itoa(item.DurationSec),
	}, e.padEncodeArgs(target, p, out)...)

	return e.runStage(ctx, "loop_trim", item.Ordinal, finalArgs)
}

// enforceLongVideo re-encodes from the start with an explicit duration limit.
func (e *Enforcer) enforceLongVideo(ctx context.Context, item SequenceItem, target quality.Resolution, p quality.Profile, out string) error {
	args := append([]string{
		"-y",
		"-i", item.Asset.Path,
		"-t", strconv.Itoa(item.DurationSec),
	}, e.padEncodeArgs(target, p, out)...)

	return e.runStage(ctx, "trim", item.Ordinal, args)
}

// enforceExactVideo re-encodes without trimming.
func (e *Enforcer) enforceExactVideo(ctx context.Context, item SequenceItem, target quality.Resolution, p quality.Profile, out string) error {
	args := append([]string{
		"-y",
		"-i", item.Asset.Path,
	}, e.padEncodeArgs(target, p, out)...)

	return e.runStage(ctx, "exact", item.Ordinal, args)
}

// padEncodeArgs is the shared tail of all non-image video paths.
func (e *Enforcer) padEncodeArgs(target quality.Resolution, p quality.Profile, out string) []string {
	return []string{
		"-vf", scalePadFilter(target),
		"-c:v", "libx264",
		"-preset", p.Preset,
		"-crf", strconv.Itoa(p.CRF),
		"-maxrate", p.MaxBitrate,
		"-bufsize", "2M",
		"-profile:v", p.Profile,
		"-tune", p.Tune,
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		"-r", outputFrameRate,
		out,
	}
}

// runStage executes one invocation and converts the outcome into a
// stage-tagged error.
func (e *Enforcer) runStage(ctx context.Context, stage string, ordinal int, args []string) error {
	res, err := e.runner.Run(ctx, args, e.encodeTimeout)
	if err != nil {
		return &StageError{Stage: stage, Ordinal: ordinal, Kind: KindEncodeFailure, Err: err}
	}
	if res.TimedOut {
		return &StageError{Stage: stage, Ordinal: ordinal, Kind: KindTimeout, Err: fmt.Errorf("exceeded %s", e.encodeTimeout)}
	}
	if !res.Success() {
		return &StageError{
			Stage:   stage,
			Ordinal: ordinal,
			Kind:    KindEncodeFailure,
			Detail:  res.Stderr,
			Err:     fmt.Errorf("exit code %d", res.ExitCode),
		}
	}
	return nil
}

// scalePadFilter builds the aspect-preserving scale-to-fit plus centered
// black padding expression.
func scalePadFilter(target quality.Resolution) string {
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black",
		target.Width, target.Height, target.Width, target.Height,
	)
}
