package job

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/pixelboard/signage-engine/internal/compose"
	"github.com/pixelboard/signage-engine/internal/media"
	"github.com/pixelboard/signage-engine/internal/quality"
	"github.com/pixelboard/signage-engine/internal/storage"
)

// Static errors for service-level input validation.
var (
	// ErrNoItems is returned when a playlist request has no items.
	ErrNoItems = errors.New("job: playlist has no items")
	// ErrTooManyItems is returned when a playlist exceeds the item cap.
	ErrTooManyItems = errors.New("job: playlist exceeds the item limit")
)

// PlaylistItemInput is one requested playlist entry.
type PlaylistItemInput struct {
	// SourcePath is the path to the source image or video.
	SourcePath string
	// DurationSec is the requested on-screen duration in seconds.
	DurationSec int
}

// ComposePlaylistInput contains the parameters for a composition job.
type ComposePlaylistInput struct {
	// Name is the playlist name, used for the output filename.
	Name string
	// Items are the entries in playback order.
	Items []PlaylistItemInput
	// Resolution is the target resolution as "WxH". Absent or
	// malformed values fall back to 1920x1080.
	Resolution string
	// PushToS3 indicates whether to upload the result to S3.
	PushToS3 bool
}

// NormalizeInput contains the parameters for single-asset normalization.
type NormalizeInput struct {
	// SourcePath is the path to the source image or video.
	SourcePath string
	// Resolution is the target resolution as "WxH".
	Resolution string
	// PushToS3 indicates whether to upload the result to S3.
	PushToS3 bool
}

// NormalizeOutput is the result of single-asset normalization.
type NormalizeOutput struct {
	// Filename is the generated output filename.
	Filename string
	// Data is the normalized file content.
	Data []byte
	// Path is the local path the output was saved to.
	Path string
	// URL is the S3 URL if the output was uploaded.
	URL string
}

// Normalizer produces a normalized rendition of one asset.
type Normalizer interface {
	Normalize(ctx context.Context, asset media.Asset, target quality.Resolution) (*media.Output, error)
}

// Composer produces one playlist video from an ordered sequence,
// reporting each finished clip through onClip.
type Composer interface {
	Compose(ctx context.Context, name string, items []compose.SequenceItem, target quality.Resolution, onClip compose.ProgressFunc) (*compose.Result, error)
}

// ComposeService orchestrates playlist composition and single-asset
// normalization. Playlist requests run as background jobs tracked in
// the repository; normalization is synchronous.
type ComposeService struct {
	repo       Repository
	normalizer Normalizer
	composer   Composer
	store      storage.Storage
	logger     *slog.Logger
	maxItems   int
}

// ServiceOption configures a ComposeService.
type ServiceOption func(*ComposeService)

// WithMaxItems sets the playlist item cap.
func WithMaxItems(n int) ServiceOption {
	return func(s *ComposeService) {
		if n > 0 {
			s.maxItems = n
		}
	}
}

// NewComposeService creates a new ComposeService.
func NewComposeService(
	repo Repository,
	normalizer Normalizer,
	composer Composer,
	store storage.Storage,
	logger *slog.Logger,
	opts ...ServiceOption,
) *ComposeService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &ComposeService{
		repo:       repo,
		normalizer: normalizer,
		composer:   composer,
		store:      store,
		logger:     logger,
		maxItems:   5,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateJob validates the request, creates a job in IN_QUEUE status and
// persists it. The item cap is a caller policy enforced here, not in
// the composition engine.
func (s *ComposeService) CreateJob(ctx context.Context, input ComposePlaylistInput) (*Job, error) {
	if len(input.Items) == 0 {
		return nil, ErrNoItems
	}
	if len(input.Items) > s.maxItems {
		return nil, fmt.Errorf("%w: %d items, limit %d", ErrTooManyItems, len(input.Items), s.maxItems)
	}

	j := New(input.Name)
	j.Resolution = input.Resolution
	j.PushToS3 = input.PushToS3

	items := make([]Item, len(input.Items))
	for i, in := range input.Items {
		items[i] = Item{
			Ordinal:     i + 1,
			SourcePath:  in.SourcePath,
			DurationSec: in.DurationSec,
			Status:      ItemStatusPending,
		}
	}
	j.SetItems(items)

	s.logger.Info("creating composition job",
		slog.String("job_id", j.ID),
		slog.String("name", input.Name),
		slog.Int("items", len(items)),
		slog.String("resolution", input.Resolution),
		slog.Bool("push_to_s3", input.PushToS3),
	)

	if err := s.repo.Save(ctx, j); err != nil {
		s.logger.Error("failed to save job",
			slog.String("job_id", j.ID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	return j, nil
}

// GetJob retrieves a job by ID.
func (s *ComposeService) GetJob(ctx context.Context, id string) (*Job, error) {
	return s.repo.FindByID(ctx, id)
}

// ListJobs returns all jobs.
func (s *ComposeService) ListJobs(ctx context.Context) ([]*Job, error) {
	return s.repo.List(ctx)
}

// ProcessExistingJob runs the composition pipeline for a previously
// created job, transitioning it through RUNNING to a terminal state.
// The returned error mirrors the failure recorded on the job.
func (s *ComposeService) ProcessExistingJob(ctx context.Context, jobID string) (*Job, error) {
	j, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if err := j.Start(); err != nil {
		return nil, fmt.Errorf("start job %s: %w", jobID, err)
	}
	if err := s.repo.Save(ctx, j); err != nil {
		return nil, err
	}

	sequence, err := s.buildSequence(j)
	if err != nil {
		return s.failJob(ctx, j, err)
	}

	target := quality.ParseResolution(j.Resolution)
	result, err := s.composer.Compose(ctx, j.Name, sequence, target, func(ordinal int) {
		j.MarkItemCompleted(ordinal)
		if serr := s.repo.Save(ctx, j); serr != nil {
			s.logger.Warn("failed to save item progress",
				slog.String("job_id", j.ID),
				slog.Int("ordinal", ordinal),
				slog.String("error", serr.Error()),
			)
		}
	})
	if err != nil {
		return s.failJob(ctx, j, err)
	}

	path, err := s.store.SaveOutput(ctx, result.Filename, bytes.NewReader(result.Data))
	if err != nil {
		return s.failJob(ctx, j, &compose.StageError{
			Stage: "persist",
			Kind:  compose.KindOutputIntegrity,
			Err:   err,
		})
	}

	var url string
	if j.PushToS3 {
		url, err = s.store.UploadToS3(ctx, "playlists/"+result.Filename, bytes.NewReader(result.Data))
		switch {
		case errors.Is(err, storage.ErrS3NotConfigured):
			s.logger.Warn("S3 upload requested but not configured",
				slog.String("job_id", j.ID),
			)
		case err != nil:
			return s.failJob(ctx, j, &compose.StageError{
				Stage: "upload",
				Kind:  compose.KindOutputIntegrity,
				Err:   err,
			})
		default:
			// S3 is the delivery path now; the local copy is scratch.
			if rerr := s.store.Remove(ctx, []string{path}); rerr != nil {
				s.logger.Warn("failed to remove local copy after upload",
					slog.String("job_id", j.ID),
					slog.String("path", path),
					slog.String("error", rerr.Error()),
				)
			}
			path = ""
		}
	}

	j.SetOutput(path, url, result.DurationSec)
	if err := j.Complete(); err != nil {
		return nil, fmt.Errorf("complete job %s: %w", jobID, err)
	}
	if err := s.repo.Save(ctx, j); err != nil {
		return nil, err
	}

	s.logger.Info("composition job completed",
		slog.String("job_id", j.ID),
		slog.String("output", path),
		slog.Int("duration_sec", result.DurationSec),
	)

	return j, nil
}

// NormalizeAsset runs synchronous single-asset normalization, persists
// the output and optionally uploads it to S3.
func (s *ComposeService) NormalizeAsset(ctx context.Context, input NormalizeInput) (*NormalizeOutput, error) {
	asset, err := media.NewAsset(input.SourcePath)
	if err != nil {
		return nil, err
	}

	target := quality.ParseResolution(input.Resolution)
	out, err := s.normalizer.Normalize(ctx, asset, target)
	if err != nil {
		return nil, err
	}

	path, err := s.store.SaveOutput(ctx, out.Filename, bytes.NewReader(out.Data))
	if err != nil {
		return nil, fmt.Errorf("persist normalized output: %w", err)
	}

	result := &NormalizeOutput{
		Filename: out.Filename,
		Data:     out.Data,
		Path:     path,
	}

	if input.PushToS3 {
		url, uerr := s.store.UploadToS3(ctx, "content/"+out.Filename, bytes.NewReader(out.Data))
		switch {
		case errors.Is(uerr, storage.ErrS3NotConfigured):
			s.logger.Warn("S3 upload requested but not configured",
				slog.String("filename", out.Filename),
			)
		case uerr != nil:
			return nil, fmt.Errorf("upload normalized output: %w", uerr)
		default:
			if rerr := s.store.Remove(ctx, []string{path}); rerr != nil {
				s.logger.Warn("failed to remove local copy after upload",
					slog.String("path", path),
					slog.String("error", rerr.Error()),
				)
			}
			result.Path = ""
			result.URL = url
		}
	}

	return result, nil
}

// ReadOutput opens a previously persisted output through the storage
// port. The caller closes the returned reader.
func (s *ComposeService) ReadOutput(ctx context.Context, path string) (io.ReadCloser, error) {
	return s.store.Open(ctx, path)
}

// buildSequence converts the job's items into engine sequence items,
// resolving each source on disk. A missing source aborts with an
// item-scoped error.
func (s *ComposeService) buildSequence(j *Job) ([]compose.SequenceItem, error) {
	sequence := make([]compose.SequenceItem, len(j.Items))
	for i, item := range j.Items {
		asset, err := media.NewAsset(item.SourcePath)
		if err != nil {
			return nil, &compose.StageError{
				Stage:   "resolve_source",
				Ordinal: item.Ordinal,
				Kind:    compose.KindInvalidInput,
				Err:     err,
			}
		}
		sequence[i] = compose.SequenceItem{
			Asset:       asset,
			DurationSec: item.DurationSec,
			Ordinal:     item.Ordinal,
		}
	}
	return sequence, nil
}

// failJob records a classified failure on the job and persists it. The
// original error is passed through to the caller.
func (s *ComposeService) failJob(ctx context.Context, j *Job, cause error) (*Job, error) {
	var stageErr *compose.StageError
	if errors.As(cause, &stageErr) {
		if stageErr.Kind == compose.KindTimeout {
			if err := j.Timeout(cause.Error()); err != nil {
				s.logger.Error("failed to mark job timed out",
					slog.String("job_id", j.ID),
					slog.String("error", err.Error()),
				)
			}
		} else if err := j.Fail(string(stageErr.Kind), stageErr.Ordinal, cause.Error()); err != nil {
			s.logger.Error("failed to mark job failed",
				slog.String("job_id", j.ID),
				slog.String("error", err.Error()),
			)
		}
	} else if err := j.Fail(string(compose.KindEncodeFailure), 0, cause.Error()); err != nil {
		s.logger.Error("failed to mark job failed",
			slog.String("job_id", j.ID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.repo.Save(ctx, j); err != nil {
		s.logger.Error("failed to save failed job",
			slog.String("job_id", j.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Error("composition job failed",
		slog.String("job_id", j.ID),
		slog.String("error", cause.Error()),
	)

	return j, cause
}
