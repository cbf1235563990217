// Package media holds the source-asset model and the single-asset
// normalizer that conforms one image or video to a target resolution.
package media

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Static errors for asset handling.
var (
	// ErrSourceMissing is returned when the source file does not exist.
	ErrSourceMissing = errors.New("media: source file missing")
	// ErrUnsupportedExtension is returned for files outside the known
	// image/video extension families.
	ErrUnsupportedExtension = errors.New("media: unsupported file extension")
)

// Kind classifies a source asset.
type Kind string

const (
	// KindImage is a still image.
	KindImage Kind = "image"
	// KindVideo is a video clip.
	KindVideo Kind = "video"
)

var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

var videoExts = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".avi":  true,
	".mkv":  true,
	".webm": true,
	".flv":  true,
	".wmv":  true,
}

// DetectKind classifies a path by its extension.
func DetectKind(path string) (Kind, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case imageExts[ext]:
		return KindImage, nil
	case videoExts[ext]:
		return KindVideo, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedExtension, ext)
	}
}

// Asset is an immutable reference to one source file. The engine only
// reads it; Duration is meaningful for videos only.
type Asset struct {
	// Path is the filesystem location of the source bytes.
	Path string
	// Kind is the detected asset kind.
	Kind Kind
	// Duration is the probed duration in seconds (videos only).
	Duration float64
}

// NewAsset builds an Asset for an existing file, classifying it by
// extension. Returns ErrSourceMissing if the file is not readable.
func NewAsset(path string) (Asset, error) {
	kind, err := DetectKind(path)
	if err != nil {
		return Asset{}, err
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return Asset{}, fmt.Errorf("%w: %s", ErrSourceMissing, path)
	}

	return Asset{Path: path, Kind: kind}, nil
}
