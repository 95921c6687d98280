// Package avatar prepares profile pictures for upload.
package avatar

import (
	"bytes"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/disintegration/imaging"
)

const (
	MaxSide  = 800
	MaxBytes = 500 * 1024

	startQuality = 70
	minQuality   = 10
	qualityStep  = 10
)

var ErrInvalidImage = errors.New("invalid image")

// Process crops the picture to a centered square, shrinks it to fit
// MaxSide and re-encodes it as JPEG, lowering the quality until the result
// fits MaxBytes or the quality floor is reached.
func Process(r io.Reader) ([]byte, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decode avatar"), ErrInvalidImage)
	}

	b := img.Bounds()
	side := b.Dx()
	if b.Dy() < side {
		side = b.Dy()
	}
	if side == 0 {
		return nil, errors.Mark(errors.New("empty avatar image"), ErrInvalidImage)
	}

	square := imaging.CropCenter(img, side, side)
	if side > MaxSide {
		square = imaging.Resize(square, MaxSide, MaxSide, imaging.Lanczos)
	}

	var buf bytes.Buffer
	quality := startQuality
	for {
		buf.Reset()
		if err := imaging.Encode(&buf, square, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
			return nil, errors.Wrap(err, "encode avatar")
		}
		if buf.Len() <= MaxBytes || quality <= minQuality {
			break
		}
		quality -= qualityStep
	}
	return buf.Bytes(), nil
}
