package compose

import (
	"errors"
	"fmt"
)

// Static errors for composition input validation.
var (
	// ErrEmptyPlaylist is returned when no sequence items are supplied.
	ErrEmptyPlaylist = errors.New("compose: playlist has no items")
	// ErrBadOrdinals is returned when item ordinals are not contiguous
	// starting at 1.
	ErrBadOrdinals = errors.New("compose: item ordinals must be contiguous from 1")
	// ErrInvalidResolution is returned when the target resolution is not positive.
	ErrInvalidResolution = errors.New("compose: invalid target resolution")
	// ErrZeroDuration is returned when a video's probed duration is not positive.
	ErrZeroDuration = errors.New("compose: could not determine source duration")
)

// ErrorKind classifies a composition failure.
type ErrorKind string

const (
	// KindInvalidInput marks malformed caller input.
	KindInvalidInput ErrorKind = "invalid_input"
	// KindProbeFailure marks a load-bearing probe that failed.
	KindProbeFailure ErrorKind = "probe_failure"
	// KindEncodeFailure marks a non-zero exit from a required encode step.
	KindEncodeFailure ErrorKind = "encode_failure"
	// KindTimeout marks a wall-clock budget overrun.
	KindTimeout ErrorKind = "timeout"
	// KindOutputIntegrity marks an empty, undersized or unreadable result.
	KindOutputIntegrity ErrorKind = "output_integrity"
)

// StageError is a stage-tagged composition failure. Ordinal is set when the
// failure is scoped to one sequence item, zero otherwise.
type StageError struct {
	// Stage names the pipeline stage that failed.
	Stage string
	// Ordinal is the 1-based item position, 0 for whole-playlist stages.
	Ordinal int
	// Kind classifies the failure.
	Kind ErrorKind
	// Detail carries the underlying tool diagnostic, when available.
	Detail string
	// Err is the wrapped cause.
	Err error
}

func (e *StageError) Error() string {
	msg := fmt.Sprintf("stage %s", e.Stage)
	if e.Ordinal > 0 {
		msg = fmt.Sprintf("%s (item %d)", msg, e.Ordinal)
	}
	msg = fmt.Sprintf("%s: %s", msg, e.Kind)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Detail)
	}
	return msg
}

func (e *StageError) Unwrap() error {
	return e.Err
}
