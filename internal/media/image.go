package media

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	"github.com/pixelboard/signage-engine/internal/quality"
)

// normalizeImage stretches a still image to the exact target dimensions
// (no aspect preservation, no cropping) and re-encodes it in the format
// family of the source extension, defaulting to JPEG.
func (n *Normalizer) normalizeImage(asset Asset, target quality.Resolution) (*Output, error) {
	img, err := decodeImage(asset.Path)
	if err != nil {
		return nil, fmt.Errorf("media: decode image: %w", err)
	}

	resized := imaging.Resize(img, target.Width, target.Height, imaging.Lanczos)

	ext := strings.ToLower(filepath.Ext(asset.Path))
	q := quality.ImageQualityFor(target)

	var buf bytes.Buffer
	switch ext {
	case ".png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		err = enc.Encode(&buf, resized)
	case ".webp":
		err = webp.Encode(&buf, resized, &webp.Options{Quality: float32(q)})
	default:
		ext = ".jpg"
		err = jpeg.Encode(&buf, resized, &jpeg.Options{Quality: q})
	}
	if err != nil {
		return nil, fmt.Errorf("media: encode image: %w", err)
	}

	if buf.Len() == 0 {
		return nil, fmt.Errorf("%w: image encode produced no bytes", ErrOutputTooSmall)
	}

	return &Output{
		Data:     buf.Bytes(),
		Filename: generateFilename(KindImage, ext),
	}, nil
}

// decodeImage loads an image, handling WebP sources separately since the
// stdlib decoders do not cover them.
func decodeImage(path string) (image.Image, error) {
	if strings.EqualFold(filepath.Ext(path), ".webp") {
		f, err := os.Open(path) // #nosec G304 - path validated by NewAsset
		if err != nil {
			return nil, err
		}
		defer func() { _ = f.Close() }()
		return webp.Decode(f)
	}

	return imaging.Open(path)
}
