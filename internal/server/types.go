// Package server provides the HTTP boundary for the signage engine.
// It includes handlers, middleware, routes, and DTOs separated from
// domain types.
package server

// NormalizeRequest is the HTTP request body for synchronous
// single-asset normalization.
type NormalizeRequest struct {
	// SourcePath is the server-local path to the source image or video.
	SourcePath string `json:"source_path" validate:"required"`
	// Resolution is the target resolution as "WxH". Absent or
	// malformed values fall back to 1920x1080.
	Resolution string `json:"resolution"`
	// PushToS3 indicates whether to upload the result to S3.
	PushToS3 bool `json:"push_to_s3"`
}

// NormalizeResponse is the HTTP response for single-asset normalization.
type NormalizeResponse struct {
	// Filename is the generated output filename.
	Filename string `json:"filename"`
	// VideoBase64 is the base64-encoded output content.
	VideoBase64 string `json:"video_base64"`
	// VideoURL is the S3 URL if push_to_s3 was requested and configured.
	VideoURL string `json:"video_url,omitempty"`
}

// PlaylistItemRequest is one playlist entry in a composition request.
type PlaylistItemRequest struct {
	// SourcePath is the server-local path to the source image or video.
	SourcePath string `json:"source_path" validate:"required"`
	// DurationSec is the requested on-screen duration in seconds.
	DurationSec int `json:"duration_sec" validate:"required,min=1"`
}

// CreatePlaylistRequest is the HTTP request body for creating a
// composition job.
type CreatePlaylistRequest struct {
	// Name is the playlist name, used for the output filename.
	Name string `json:"name" validate:"required"`
	// Items are the playlist entries in playback order.
	Items []PlaylistItemRequest `json:"items" validate:"required,min=1,dive"`
	// Resolution is the target resolution as "WxH".
	Resolution string `json:"resolution"`
	// PushToS3 indicates whether to upload the result to S3.
	PushToS3 bool `json:"push_to_s3"`
}

// CreatePlaylistResponse is the HTTP response after creating a job.
type CreatePlaylistResponse struct {
	// ID is the unique identifier for the created job.
	ID string `json:"id"`
	// Status is the initial job status.
	Status string `json:"status"`
}

// JobItemResponse is one playlist entry's status on a job.
type JobItemResponse struct {
	// Ordinal is the 1-based position in the playlist.
	Ordinal int `json:"ordinal"`
	// SourcePath is the entry's source path.
	SourcePath string `json:"source_path"`
	// DurationSec is the requested duration.
	DurationSec int `json:"duration_sec"`
	// Status is the item's processing status.
	Status string `json:"status"`
	// Error is the item-scoped error message, if any.
	Error string `json:"error,omitempty"`
}

// JobResponse is the HTTP response for getting job details.
type JobResponse struct {
	// ID is the unique identifier for the job.
	ID string `json:"id"`
	// Name is the playlist name.
	Name string `json:"name"`
	// Status is the current job status.
	Status string `json:"status"`
	// Progress is the percentage of completion (0-100).
	Progress int `json:"progress"`
	// Error contains any error message if the job failed.
	Error string `json:"error,omitempty"`
	// ErrorKind classifies the failure.
	ErrorKind string `json:"error_kind,omitempty"`
	// FailedOrdinal is the item that caused the failure, if item-scoped.
	FailedOrdinal int `json:"failed_ordinal,omitempty"`
	// Resolution is the requested target resolution.
	Resolution string `json:"resolution,omitempty"`
	// DurationSec is the total output duration once completed.
	DurationSec int `json:"duration_sec,omitempty"`
	// Items are the playlist entries with their statuses.
	Items []JobItemResponse `json:"items,omitempty"`
	// VideoBase64 is the encoded video content (if completed and local).
	VideoBase64 string `json:"video_base64,omitempty"`
	// VideoURL is the S3 URL of the output video (if uploaded).
	VideoURL string `json:"video_url,omitempty"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
