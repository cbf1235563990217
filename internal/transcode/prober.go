package transcode

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Static errors for probe operations.
var (
	// ErrProbeFailed is returned when ffprobe exits non-zero or times out.
	ErrProbeFailed = errors.New("transcode: probe failed")
	// ErrUnknownDimensions is returned when the first video stream's
	// dimensions cannot be parsed.
	ErrUnknownDimensions = errors.New("transcode: unknown dimensions")
	// ErrUnknownDuration is returned when the container duration cannot
	// be parsed.
	ErrUnknownDuration = errors.New("transcode: unknown duration")
)

// Prober exposes read-only metadata probes used before encoding.
type Prober interface {
	// Dimensions returns the first video stream's width and height.
	Dimensions(ctx context.Context, path string) (int, int, error)
	// Duration returns the container-level duration in seconds, 0 on failure.
	Duration(ctx context.Context, path string) (float64, error)
	// HasAudio reports whether the file carries at least one audio track.
	HasAudio(ctx context.Context, path string) (bool, error)
}

// Compile-time check that FFprobe implements Prober.
var _ Prober = (*FFprobe)(nil)

// FFprobe implements Prober by shelling out to the ffprobe binary.
type FFprobe struct {
	runner       Runner
	probeTimeout time.Duration
	audioTimeout time.Duration
}

// FFprobeOption configures an FFprobe instance.
type FFprobeOption func(*FFprobe)

// WithProbeTimeout sets the budget for dimension and duration probes.
func WithProbeTimeout(d time.Duration) FFprobeOption {
	return func(p *FFprobe) {
		if d > 0 {
			p.probeTimeout = d
		}
	}
}

// WithAudioProbeTimeout sets the budget for the audio-presence probe.
func WithAudioProbeTimeout(d time.Duration) FFprobeOption {
	return func(p *FFprobe) {
		if d > 0 {
			p.audioTimeout = d
		}
	}
}

// NewFFprobe creates a prober for the given ffprobe binary.
// If binPath is empty, it defaults to "ffprobe" (found via PATH).
func NewFFprobe(binPath string, opts ...FFprobeOption) *FFprobe {
	if binPath == "" {
		binPath = "ffprobe"
	}
	p := &FFprobe{
		runner:       NewRunner(binPath),
		probeTimeout: 30 * time.Second,
		audioTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewFFprobeWithRunner creates a prober over an existing runner.
// Intended for tests that substitute a fake runner.
func NewFFprobeWithRunner(runner Runner, opts ...FFprobeOption) *FFprobe {
	p := &FFprobe{
		runner:       runner,
		probeTimeout: 30 * time.Second,
		audioTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Dimensions requests the first video stream's width/height as one WxH line.
func (p *FFprobe) Dimensions(ctx context.Context, path string) (int, int, error) {
	args := []string{
		"-v", "quiet",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=s=x:p=0",
		path,
	}

	res, err := p.runner.Run(ctx, args, p.probeTimeout)
	if err != nil {
		return 0, 0, err
	}
	if !res.Success() {
		return 0, 0, fmt.Errorf("%w: %s", ErrProbeFailed, strings.TrimSpace(res.Stderr))
	}

	line := strings.TrimSpace(res.Stdout)
	parts := strings.SplitN(line, "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrUnknownDimensions, line)
	}

	w, werr := strconv.Atoi(strings.TrimSpace(parts[0]))
	h, herr := strconv.Atoi(strings.TrimSpace(parts[1]))
	if werr != nil || herr != nil || w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrUnknownDimensions, line)
	}

	return w, h, nil
}

// Duration requests the container-level duration as a plain decimal string.
func (p *FFprobe) Duration(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "quiet",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}

	res, err := p.runner.Run(ctx, args, p.probeTimeout)
	if err != nil {
		return 0, err
	}
	if !res.Success() {
		return 0, fmt.Errorf("%w: %s", ErrProbeFailed, strings.TrimSpace(res.Stderr))
	}

	d, perr := strconv.ParseFloat(strings.TrimSpace(res.Stdout), 64)
	if perr != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownDuration, strings.TrimSpace(res.Stdout))
	}

	return d, nil
}

// HasAudio requests the first audio stream's codec name; no output means
// no audio track.
func (p *FFprobe) HasAudio(ctx context.Context, path string) (bool, error) {
	args := []string{
		"-v", "quiet",
		"-select_streams", "a:0",
		"-show_entries", "stream=codec_name",
		"-of", "csv=p=0",
		path,
	}

	res, err := p.runner.Run(ctx, args, p.audioTimeout)
	if err != nil {
		return false, err
	}
	if !res.Success() {
		return false, fmt.Errorf("%w: %s", ErrProbeFailed, strings.TrimSpace(res.Stderr))
	}

	return strings.TrimSpace(res.Stdout) != "", nil
}
