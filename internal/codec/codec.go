// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package codec transcodes HEIC/HEIF images to JPEG. Backends implement the
// Codec interface: Native decodes in-process with goheif, Container pipes
// the image through ImageMagick in a docker or podman container.
package codec

import (
	"context"
	"errors"
	"io"
)

// DefaultQuality is the JPEG quality used when none is configured.
const DefaultQuality = 92

// ErrDecode marks a source that could not be decoded as HEIC/HEIF.
var ErrDecode = errors.New("decode error")

// Codec transforms one HEIC/HEIF file into JPEG bytes.
type Codec interface {
	// Name identifies the backend in logs and reports.
	Name() string

	// Transcode reads the image at srcPath and writes it to w as JPEG.
	// Decode failures wrap ErrDecode; filesystem errors are returned
	// unchanged so callers can classify them.
	Transcode(ctx context.Context, srcPath string, w io.Writer) error
}

func clampQuality(q int) int {
	switch {
	case q <= 0:
		return DefaultQuality
	case q > 100:
		return 100
	default:
		return q
	}
}

// countingWriter tracks how many bytes pass through to w.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
