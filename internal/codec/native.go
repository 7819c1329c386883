// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package codec

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"

	"github.com/adrium/goheif"
)

// Native decodes HEIC/HEIF in-process with goheif and encodes with
// image/jpeg.
type Native struct {
	quality      int
	preserveExif bool
}

// NewNative returns a native codec. A quality outside 1-100 is clamped,
// zero selects DefaultQuality.
func NewNative(quality int, preserveExif bool) *Native {
	return &Native{quality: clampQuality(quality), preserveExif: preserveExif}
}

func (n *Native) Name() string { return "native" }

// Transcode decodes srcPath and writes a JPEG to w, carrying over the EXIF
// block when enabled and present.
func (n *Native) Transcode(ctx context.Context, srcPath string, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer f.Close()

	img, err := decodeHEIF(f)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDecode, srcPath, err)
	}

	var exif []byte
	if n.preserveExif {
		// Missing or malformed EXIF is not a conversion failure.
		exif, _ = goheif.ExtractExif(f)
	}

	return EncodeJPEG(w, img, n.quality, exif)
}

// decodeHEIF guards against panics inside the container parser on
// truncated input.
func decodeHEIF(f *os.File) (img image.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			img, err = nil, fmt.Errorf("malformed container: %v", r)
		}
	}()
	return goheif.Decode(f)
}
