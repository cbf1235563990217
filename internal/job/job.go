// Package job provides the composition Job aggregate and its use case
// service. A Job tracks one playlist composition request from creation
// through background processing to a terminal state.
package job

import (
	"errors"
	"sync"
	"time"

	"github.com/pixelboard/signage-engine/internal/job/id"
)

// Status represents the current state of a Job.
type Status string

const (
	// StatusInQueue indicates the job is waiting to be picked up.
	StatusInQueue Status = "IN_QUEUE"
	// StatusRunning indicates the composition pipeline is executing.
	StatusRunning Status = "RUNNING"
	// StatusCompleted indicates the job finished successfully.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed indicates the job encountered an error during execution.
	StatusFailed Status = "FAILED"
	// StatusCancelled indicates the job was manually cancelled.
	StatusCancelled Status = "CANCELLED"
	// StatusTimedOut indicates a pipeline stage exceeded its wall-clock budget.
	StatusTimedOut Status = "TIMED_OUT"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed.
var validTransitions = map[Status][]Status{
	StatusInQueue:   {StatusRunning, StatusCancelled, StatusTimedOut},
	StatusRunning:   {StatusCompleted, StatusFailed, StatusCancelled, StatusTimedOut},
	StatusCompleted: {},
	StatusFailed:    {},
	StatusCancelled: {},
	StatusTimedOut:  {},
}

func canTransition(from, to Status) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// ItemStatus represents the status of a single playlist item.
type ItemStatus string

const (
	// ItemStatusPending indicates the item has not been processed yet.
	ItemStatusPending ItemStatus = "PENDING"
	// ItemStatusCompleted indicates the item's clip was produced.
	ItemStatusCompleted ItemStatus = "COMPLETED"
	// ItemStatusFailed indicates the item aborted the composition.
	ItemStatusFailed ItemStatus = "FAILED"
)

// Item is one playlist entry tracked on the job.
type Item struct {
	// Ordinal is the 1-based position in the playlist.
	Ordinal int
	// SourcePath is the path to the source image or video.
	SourcePath string
	// DurationSec is the requested on-screen duration in seconds.
	DurationSec int
	// Status is the item's processing status.
	Status ItemStatus
	// Error contains the item-scoped error message, if any.
	Error string
}

// Job represents one playlist composition request.
type Job struct {
	mu sync.RWMutex

	// ID is the unique identifier for this job.
	ID string
	// Name is the playlist name supplied by the caller.
	Name string
	// Status is the current job state.
	Status Status
	// Items are the playlist entries in ordinal order.
	Items []Item
	// Progress is the percentage of completion (0-100).
	Progress int
	// Error contains any error message if the job failed.
	Error string
	// ErrorKind classifies the failure for programmatic handling.
	ErrorKind string
	// FailedOrdinal is the 1-based item that caused the failure, 0 if
	// the failure was not item-scoped.
	FailedOrdinal int
	// Resolution is the requested target resolution ("WxH").
	Resolution string
	// DurationSec is the total output duration once completed.
	DurationSec int
	// OutputPath is the local path to the finished video.
	OutputPath string
	// OutputURL is the S3 URL if PushToS3 was true.
	OutputURL string
	// PushToS3 indicates whether to upload the result to S3.
	PushToS3 bool
	// CreatedAt is when the job was created.
	CreatedAt time.Time
	// UpdatedAt is when the job was last updated.
	UpdatedAt time.Time
	// StartedAt is when processing started.
	StartedAt time.Time
	// CompletedAt is when processing finished.
	CompletedAt time.Time
}

// New creates a new Job with a generated ID and initial IN_QUEUE status.
func New(name string) *Job {
	now := time.Now()
	return &Job{
		ID:        id.Generate(),
		Name:      name,
		Status:    StatusInQueue,
		Items:     make([]Item, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewWithID creates a new Job with the specified ID and initial IN_QUEUE
// status. Useful for testing or when the ID is externally generated.
func NewWithID(jobID, name string) *Job {
	now := time.Now()
	return &Job{
		ID:        jobID,
		Name:      name,
		Status:    StatusInQueue,
		Items:     make([]Item, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo attempts to change the job status to the specified state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (j *Job) TransitionTo(status Status) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !canTransition(j.Status, status) {
		return ErrInvalidTransition
	}

	j.Status = status
	j.UpdatedAt = time.Now()

	switch status {
	case StatusRunning:
		j.StartedAt = j.UpdatedAt
	case StatusCompleted, StatusFailed, StatusCancelled, StatusTimedOut:
		j.CompletedAt = j.UpdatedAt
	}

	return nil
}

// Start transitions the job from IN_QUEUE to RUNNING.
func (j *Job) Start() error {
	return j.TransitionTo(StatusRunning)
}

// Complete transitions the job to COMPLETED state.
func (j *Job) Complete() error {
	return j.TransitionTo(StatusCompleted)
}

// Fail transitions the job to FAILED state with classification. Ordinal
// is 0 when the failure is not scoped to one item.
func (j *Job) Fail(kind string, ordinal int, errMsg string) error {
	j.mu.Lock()
	j.Error = errMsg
	j.ErrorKind = kind
	j.FailedOrdinal = ordinal
	if ordinal > 0 && ordinal <= len(j.Items) {
		j.Items[ordinal-1].Status = ItemStatusFailed
		j.Items[ordinal-1].Error = errMsg
	}
	j.mu.Unlock()
	return j.TransitionTo(StatusFailed)
}

// Cancel transitions the job to CANCELLED state.
func (j *Job) Cancel() error {
	return j.TransitionTo(StatusCancelled)
}

// Timeout transitions the job to TIMED_OUT state with an error message.
func (j *Job) Timeout(errMsg string) error {
	j.mu.Lock()
	j.Error = errMsg
	j.mu.Unlock()
	return j.TransitionTo(StatusTimedOut)
}

// GetStatus returns the current job status (thread-safe).
func (j *Job) GetStatus() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// SetItems sets the playlist items for this job.
func (j *Job) SetItems(items []Item) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Items = items
	j.UpdatedAt = time.Now()
}

// MarkItemCompleted marks one item done and advances progress
// proportionally.
func (j *Job) MarkItemCompleted(ordinal int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if ordinal < 1 || ordinal > len(j.Items) {
		return
	}
	j.Items[ordinal-1].Status = ItemStatusCompleted
	done := 0
	for _, item := range j.Items {
		if item.Status == ItemStatusCompleted {
			done++
		}
	}
	// Item clips account for the bulk of the work; the finishing passes
	// take the remainder to 100 on completion.
	j.Progress = done * 80 / len(j.Items)
	j.UpdatedAt = time.Now()
}

// SetOutput records the finished video location and duration.
func (j *Job) SetOutput(path, url string, durationSec int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.OutputPath = path
	j.OutputURL = url
	j.DurationSec = durationSec
	j.Progress = 100
	j.UpdatedAt = time.Now()
}

// IsTerminal returns true if the job is in a terminal state.
func (j *Job) IsTerminal() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status == StatusCompleted ||
		j.Status == StatusFailed ||
		j.Status == StatusCancelled ||
		j.Status == StatusTimedOut
}

// Clone creates a deep copy of the job for safe reads.
func (j *Job) Clone() *Job {
	j.mu.RLock()
	defer j.mu.RUnlock()

	items := make([]Item, len(j.Items))
	copy(items, j.Items)

	return &Job{
		ID:            j.ID,
		Name:          j.Name,
		Status:        j.Status,
		Items:         items,
		Progress:      j.Progress,
		Error:         j.Error,
		ErrorKind:     j.ErrorKind,
		FailedOrdinal: j.FailedOrdinal,
		Resolution:    j.Resolution,
		DurationSec:   j.DurationSec,
		OutputPath:    j.OutputPath,
		OutputURL:     j.OutputURL,
		PushToS3:      j.PushToS3,
		CreatedAt:     j.CreatedAt,
		UpdatedAt:     j.UpdatedAt,
		StartedAt:     j.StartedAt,
		CompletedAt:   j.CompletedAt,
	}
}
