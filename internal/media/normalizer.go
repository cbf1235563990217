package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/pixelboard/signage-engine/internal/quality"
	"github.com/pixelboard/signage-engine/internal/transcode"
	"github.com/pixelboard/signage-engine/internal/workspace"
)

// Static errors for normalization.
var (
	// ErrInvalidResolution is returned when the target resolution is not positive.
	ErrInvalidResolution = errors.New("media: invalid target resolution")
	// ErrEncodeFailed is returned when both the main encode and the
	// conservative fallback fail.
	ErrEncodeFailed = errors.New("media: video encode failed")
	// ErrEncodeTimeout is returned when an encode exceeds its wall-clock budget.
	ErrEncodeTimeout = errors.New("media: video encode timed out")
	// ErrOutputTooSmall is returned when the produced file is empty or
	// below the minimum byte threshold.
	ErrOutputTooSmall = errors.New("media: output file empty or too small")
)

// Output is a finished normalized asset, returned to the caller who is
// responsible for persisting it.
type Output struct {
	// Data is the encoded file content.
	Data []byte
	// Filename is a suggested name matching the content type.
	Filename string
}

// Normalizer conforms a single image or video to an exact target
// resolution. Images are stretched (no aspect preservation) since
// standalone content fills the whole screen; videos are re-encoded with
// a lanczos stretch scale.
type Normalizer struct {
	runner         transcode.Runner
	prober         transcode.Prober
	logger         *slog.Logger
	workspaceRoot  string
	encodeTimeout  time.Duration
	fallbackTimeout time.Duration
	minOutputBytes int64
}

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer)

// WithWorkspaceRoot sets the scratch directory root.
func WithWorkspaceRoot(root string) NormalizerOption {
	return func(n *Normalizer) { n.workspaceRoot = root }
}

// WithEncodeTimeout sets the budget for the main encode attempt.
func WithEncodeTimeout(d time.Duration) NormalizerOption {
	return func(n *Normalizer) {
		if d > 0 {
			n.encodeTimeout = d
		}
	}
}

// WithFallbackTimeout sets the budget for the conservative retry.
func WithFallbackTimeout(d time.Duration) NormalizerOption {
	return func(n *Normalizer) {
		if d > 0 {
			n.fallbackTimeout = d
		}
	}
}

// WithMinOutputBytes sets the output-integrity size floor.
func WithMinOutputBytes(min int64) NormalizerOption {
	return func(n *Normalizer) {
		if min > 0 {
			n.minOutputBytes = min
		}
	}
}

// NewNormalizer creates a Normalizer over the given transcoder ports.
func NewNormalizer(runner transcode.Runner, prober transcode.Prober, logger *slog.Logger, opts ...NormalizerOption) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	n := &Normalizer{
		runner:          runner,
		prober:          prober,
		logger:          logger,
		encodeTimeout:   600 * time.Second,
		fallbackTimeout: 300 * time.Second,
		minOutputBytes:  1000,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize produces one output file at exactly the target resolution.
// Video targets are adjusted to even dimensions; image targets are used
// exactly as given, since the image encoders have no frame size
// constraint.
func (n *Normalizer) Normalize(ctx context.Context, asset Asset, target quality.Resolution) (*Output, error) {
	if !target.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidResolution, target)
	}

	switch asset.Kind {
	case KindImage:
		return n.normalizeImage(asset, target)
	default:
		return n.normalizeVideo(ctx, asset, target)
	}
}

func (n *Normalizer) normalizeVideo(ctx context.Context, asset Asset, target quality.Resolution) (*Output, error) {
	// libx264 with yuv420p rejects odd frame sizes.
	target = target.Even()

	ws, err := workspace.New(n.workspaceRoot)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := ws.Cleanup(); cerr != nil {
			n.logger.Warn("workspace cleanup failed", slog.String("error", cerr.Error()))
		}
	}()

	// Dimension probe is informational only; failures are absorbed.
	if w, h, perr := n.prober.Dimensions(ctx, asset.Path); perr == nil {
		n.logger.Info("source video dimensions",
			slog.String("path", asset.Path),
			slog.Int("width", w),
			slog.Int("height", h),
		)
	} else {
		n.logger.Warn("could not probe source dimensions",
			slog.String("path", asset.Path),
			slog.String("error", perr.Error()),
		)
	}

	// A failed audio probe means the audio stream is stripped.
	hasAudio, perr := n.prober.HasAudio(ctx, asset.Path)
	if perr != nil {
		n.logger.Warn("could not probe audio track",
			slog.String("path", asset.Path),
			slog.String("error", perr.Error()),
		)
		hasAudio = false
	}

	out := ws.Join("normalized.mp4")
	profile := quality.ProfileFor(target)

	res, err := n.runner.Run(ctx, n.mainEncodeArgs(asset.Path, out, target, profile, hasAudio), n.encodeTimeout)
	if err != nil {
		return nil, err
	}
	if res.TimedOut {
		return nil, fmt.Errorf("%w: main encode exceeded %s", ErrEncodeTimeout, n.encodeTimeout)
	}

	if !res.Success() {
		n.logger.Warn("main encode failed, retrying with conservative settings",
			slog.String("path", asset.Path),
			slog.Int("exit_code", res.ExitCode),
		)

		res, err = n.runner.Run(ctx, n.fallbackEncodeArgs(asset.Path, out, target, hasAudio), n.fallbackTimeout)
		if err != nil {
			return nil, err
		}
		if res.TimedOut {
			return nil, fmt.Errorf("%w: fallback encode exceeded %s", ErrEncodeTimeout, n.fallbackTimeout)
		}
		if !res.Success() {
			return nil, fmt.Errorf("%w: %s", ErrEncodeFailed, res.Stderr)
		}
	}

	data, err := n.readVerified(out)
	if err != nil {
		return nil, err
	}

	return &Output{
		Data:     data,
		Filename: generateFilename(KindVideo, ".mp4"),
	}, nil
}

// mainEncodeArgs builds the primary high-quality encode invocation:
// stretch scale (lanczos), profile-selected x264 parameters, audio kept
// only when a track was detected.
func (n *Normalizer) mainEncodeArgs(src, dst string, target quality.Resolution, p quality.Profile, hasAudio bool) []string {
	args := []string{
		"-y", "-i", src,
		"-vf", fmt.Sprintf("scale=%d:%d:flags=lanczos", target.Width, target.Height),
		"-c:v", "libx264",
		"-preset", p.Preset,
		"-crf", strconv.Itoa(p.CRF),
		"-maxrate", p.MaxBitrate,
		"-bufsize", "2M",
		"-profile:v", p.Profile,
		"-tune", p.Tune,
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		"-x264-params", "ref=4:bframes=4:me=umh:subme=7:trellis=1",
	}

	if hasAudio {
		args = append(args,
			"-c:a", "aac",
			"-b:a", p.AudioBitrate,
			"-ar", "48000",
			"-ac", "2",
		)
	} else {
		args = append(args, "-an")
	}

	return append(args, dst)
}

// fallbackEncodeArgs builds the conservative retry: medium preset, fixed
// quality, no bitrate ceiling or tuning.
func (n *Normalizer) fallbackEncodeArgs(src, dst string, target quality.Resolution, hasAudio bool) []string {
	args := []string{
		"-y", "-i", src,
		"-vf", fmt.Sprintf("scale=%d:%d", target.Width, target.Height),
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "20",
		"-pix_fmt", "yuv420p",
		"-profile:v", "high",
		"-movflags", "+faststart",
	}

	if hasAudio {
		args = append(args, "-c:a", "aac", "-b:a", "192k")
	} else {
		args = append(args, "-an")
	}

	return append(args, dst)
}

// readVerified reads an output file after checking it is non-empty and
// above the minimum byte threshold. A tool-reported success with an
// undersized file is still a failure.
func (n *Normalizer) readVerified(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrOutputTooSmall, path)
	}
	if info.Size() < n.minOutputBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrOutputTooSmall, info.Size())
	}

	data, err := os.ReadFile(path) // #nosec G304 - path is inside our workspace
	if err != nil {
		return nil, fmt.Errorf("media: read output: %w", err)
	}
	return data, nil
}

// generateFilename builds a dated filename hint like "video_20260831.mp4".
func generateFilename(kind Kind, ext string) string {
	return fmt.Sprintf("%s_%s%s", kind, time.Now().Format("20060102"), ext)
}
