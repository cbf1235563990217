// Package compose builds a single deliverable video out of an ordered
// playlist of images and video clips. Each item is first forced to an
// exact duration and resolution, then all clips are copy-joined and
// finished with one compression encode.
package compose

import (
	"github.com/pixelboard/signage-engine/internal/media"
)

// SequenceItem is one caller-supplied playlist entry.
type SequenceItem struct {
	// Asset is the source image or video.
	Asset media.Asset
	// DurationSec is the requested on-screen duration in whole seconds.
	DurationSec int
	// Ordinal is the 1-based position in the playlist.
	Ordinal int
}
