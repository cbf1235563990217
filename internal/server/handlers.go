package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/pixelboard/signage-engine/internal/job"
	"github.com/pixelboard/signage-engine/internal/media"
)

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service            *job.ComposeService
	validator          *validator.Validate
	logger             *slog.Logger
	enableAsyncProcess bool
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithAsyncProcessing enables or disables background processing.
// When disabled, CreatePlaylist only creates the job and returns
// immediately without starting background processing.
func WithAsyncProcessing(enabled bool) HandlerOption {
	return func(h *Handlers) {
		h.enableAsyncProcess = enabled
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *job.ComposeService, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		service:            service,
		validator:          validator.New(),
		logger:             logger,
		enableAsyncProcess: true,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Normalize handles POST /normalize requests. Normalization runs
// synchronously; the response carries the finished file.
func (h *Handlers) Normalize(w http.ResponseWriter, r *http.Request) {
	var req NormalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	out, err := h.service.NormalizeAsset(r.Context(), job.NormalizeInput{
		SourcePath: req.SourcePath,
		Resolution: req.Resolution,
		PushToS3:   req.PushToS3,
	})
	if err != nil {
		h.writeNormalizeError(w, req.SourcePath, err)
		return
	}

	writeJSON(w, http.StatusOK, NormalizeResponse{
		Filename:    out.Filename,
		VideoBase64: base64.StdEncoding.EncodeToString(out.Data),
		VideoURL:    out.URL,
	})
}

// writeNormalizeError maps engine errors to HTTP status codes.
func (h *Handlers) writeNormalizeError(w http.ResponseWriter, sourcePath string, err error) {
	switch {
	case errors.Is(err, media.ErrSourceMissing):
		writeError(w, http.StatusBadRequest, "source file not found", "SOURCE_MISSING")
	case errors.Is(err, media.ErrUnsupportedExtension):
		writeError(w, http.StatusBadRequest, "unsupported media type", "UNSUPPORTED_MEDIA")
	case errors.Is(err, media.ErrInvalidResolution):
		writeError(w, http.StatusBadRequest, "invalid target resolution", "INVALID_RESOLUTION")
	case errors.Is(err, media.ErrEncodeTimeout):
		writeError(w, http.StatusGatewayTimeout, "encoding timed out", "ENCODE_TIMEOUT")
	default:
		h.logger.Error("normalization failed",
			slog.String("source", sourcePath),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "normalization failed", "ENCODE_FAILED")
	}
}

// CreatePlaylist handles POST /playlists requests. The job is created
// synchronously and processed in the background.
func (h *Handlers) CreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var req CreatePlaylistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	input := job.ComposePlaylistInput{
		Name:       req.Name,
		Items:      make([]job.PlaylistItemInput, len(req.Items)),
		Resolution: req.Resolution,
		PushToS3:   req.PushToS3,
	}
	for i, item := range req.Items {
		input.Items[i] = job.PlaylistItemInput{
			SourcePath:  item.SourcePath,
			DurationSec: item.DurationSec,
		}
	}

	createdJob, err := h.service.CreateJob(r.Context(), input)
	if err != nil {
		if errors.Is(err, job.ErrNoItems) || errors.Is(err, job.ErrTooManyItems) {
			writeError(w, http.StatusBadRequest, err.Error(), "INVALID_PLAYLIST")
			return
		}
		h.logger.Error("failed to create job",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to create job", "JOB_CREATION_FAILED")
		return
	}

	// Process in the background with a detached context so the work
	// survives the request ending.
	if h.enableAsyncProcess {
		go func(ctx context.Context, jobID string) {
			if _, processErr := h.service.ProcessExistingJob(ctx, jobID); processErr != nil {
				h.logger.Error("background processing failed",
					slog.String("job_id", jobID),
					slog.String("error", processErr.Error()),
				)
			}
		}(context.WithoutCancel(r.Context()), createdJob.ID)
	}

	h.logger.Info("composition job created",
		slog.String("job_id", createdJob.ID),
		slog.String("name", req.Name),
		slog.Int("items", len(req.Items)),
	)

	writeJSON(w, http.StatusAccepted, CreatePlaylistResponse{
		ID:     createdJob.ID,
		Status: string(createdJob.Status),
	})
}

// GetJob handles GET /jobs/{id} requests.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return
	}

	foundJob, err := h.service.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
			return
		}
		h.logger.Error("failed to get job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get job", "JOB_FETCH_FAILED")
		return
	}

	resp := JobResponse{
		ID:            foundJob.ID,
		Name:          foundJob.Name,
		Status:        string(foundJob.Status),
		Progress:      foundJob.Progress,
		Error:         foundJob.Error,
		ErrorKind:     foundJob.ErrorKind,
		FailedOrdinal: foundJob.FailedOrdinal,
		Resolution:    foundJob.Resolution,
		DurationSec:   foundJob.DurationSec,
	}
	for _, item := range foundJob.Items {
		resp.Items = append(resp.Items, JobItemResponse{
			Ordinal:     item.Ordinal,
			SourcePath:  item.SourcePath,
			DurationSec: item.DurationSec,
			Status:      string(item.Status),
			Error:       item.Error,
		})
	}

	if foundJob.Status == job.StatusCompleted {
		if foundJob.PushToS3 && foundJob.OutputURL != "" {
			resp.VideoURL = foundJob.OutputURL
		} else if foundJob.OutputPath != "" {
			videoData, rerr := h.readOutput(r.Context(), foundJob.OutputPath)
			if rerr != nil {
				h.logger.Error("failed to read output video",
					slog.String("job_id", jobID),
					slog.String("path", foundJob.OutputPath),
					slog.String("error", rerr.Error()),
				)
				// Don't fail the request, just log and omit video
			} else {
				resp.VideoBase64 = base64.StdEncoding.EncodeToString(videoData)
			}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// readOutput loads a finished video through the service's storage port.
func (h *Handlers) readOutput(ctx context.Context, path string) ([]byte, error) {
	rc, err := h.service.ReadOutput(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
