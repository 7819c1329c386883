// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"io"
)

var (
	exifHeader = []byte("Exif\x00\x00")
	markerSOI  = []byte{0xff, 0xd8}
)

// maxAPP1Payload is the largest segment body a JPEG marker length can hold.
const maxAPP1Payload = 0xffff - 2

// EncodeJPEG writes img to w as a baseline JPEG. When exif is non-empty it
// is stored in an APP1 segment directly after SOI; an EXIF block too large
// for one segment is dropped.
func EncodeJPEG(w io.Writer, img image.Image, quality int, exif []byte) error {
	opts := &jpeg.Options{Quality: clampQuality(quality)}

	if len(exif) > 0 && !bytes.HasPrefix(exif, exifHeader) {
		exif = append(append([]byte{}, exifHeader...), exif...)
	}
	if len(exif) == 0 || len(exif) > maxAPP1Payload {
		if err := jpeg.Encode(w, img, opts); err != nil {
			return fmt.Errorf("encoding jpeg: %w", err)
		}
		return nil
	}

	if _, err := w.Write(markerSOI); err != nil {
		return err
	}
	segLen := len(exif) + 2
	if _, err := w.Write([]byte{0xff, 0xe1, byte(segLen >> 8), byte(segLen)}); err != nil {
		return err
	}
	if _, err := w.Write(exif); err != nil {
		return err
	}

	// The encoder emits its own SOI, which was already written above.
	if err := jpeg.Encode(&skipWriter{w: w, skip: len(markerSOI)}, img, opts); err != nil {
		return fmt.Errorf("encoding jpeg: %w", err)
	}
	return nil
}

// skipWriter discards the first skip bytes written to it.
type skipWriter struct {
	w    io.Writer
	skip int
}

func (s *skipWriter) Write(p []byte) (int, error) {
	total := len(p)
	if s.skip > 0 {
		if len(p) <= s.skip {
			s.skip -= len(p)
			return total, nil
		}
		p = p[s.skip:]
		s.skip = 0
	}
	if _, err := s.w.Write(p); err != nil {
		return 0, err
	}
	return total, nil
}
