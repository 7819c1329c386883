// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert implements HEIC-to-JPEG conversion for single files and
// directory trees. A file is never overwritten unless asked, a source is
// only removed after its JPEG is in place, and one file's failure never
// stops a batch.
package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/heicconv/internal/codec"
	"github.com/pdiddy/heicconv/pkg/types"
)

const (
	extHEIC = ".heic"
	extHEIF = ".heif"
	extJPEG = ".jpg"
)

const (
	reasonExists  = "destination exists"
	reasonDryRun  = "dry run"
	reasonClaimed = "destination claimed by "
)

// Options tune an Engine.
type Options struct {
	// Workers bounds parallel conversions in a batch. Values below 1 mean
	// sequential processing.
	Workers int

	// IncludeHEIF makes .heif files directory candidates alongside .heic.
	IncludeHEIF bool

	// DryRun plans a batch and reports every candidate as skipped without
	// touching the filesystem.
	DryRun bool

	// Progress, when set, receives each result as soon as it is final.
	// Calls are serialized but follow completion order, which differs from
	// report order when Workers > 1.
	Progress func(types.ConversionResult)

	// Logger receives diagnostic logs. Nil discards them.
	Logger logrus.FieldLogger
}

// Engine converts files through a codec.Codec.
type Engine struct {
	codec codec.Codec
	opts  Options
	log   logrus.FieldLogger
}

// NewEngine returns an Engine that transcodes with c.
func NewEngine(c codec.Codec, opts Options) *Engine {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Engine{codec: c, opts: opts, log: log.WithField("codec", c.Name())}
}

// DestinationPath returns src with its extension replaced by .jpg.
func DestinationPath(src string) string {
	return strings.TrimSuffix(src, filepath.Ext(src)) + extJPEG
}

// supportedSource reports whether path has a HEIC or HEIF extension.
func supportedSource(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == extHEIC || ext == extHEIF
}

// isCandidate applies the directory-mode extension filter.
func (e *Engine) isCandidate(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case extHEIC:
		return true
	case extHEIF:
		return e.opts.IncludeHEIF
	default:
		return false
	}
}

// ConvertFile converts src into dst. An existing dst is left untouched and
// reported as skipped unless overwrite is set. With removeSource, src is
// deleted only after dst is in place; a failed deletion is reported as a
// warning on the converted result.
func (e *Engine) ConvertFile(ctx context.Context, src, dst string, overwrite, removeSource bool) types.ConversionResult {
	start := time.Now()
	res := e.convertFile(ctx, src, dst, overwrite, removeSource)
	res.Duration = time.Since(start)

	fields := logrus.Fields{"source": src, "outcome": res.Outcome}
	switch {
	case res.Outcome == types.OutcomeFailed:
		e.log.WithFields(fields).WithError(res.Err).Info("conversion failed")
	case res.Warning != "":
		e.log.WithFields(fields).Warn(res.Warning)
	default:
		e.log.WithFields(fields).WithField("duration", res.Duration).Debug("file processed")
	}
	return res
}

func (e *Engine) convertFile(ctx context.Context, src, dst string, overwrite, removeSource bool) types.ConversionResult {
	res := types.ConversionResult{SourcePath: src, DestinationPath: dst}

	if !supportedSource(src) {
		return failed(res, "check", src, ErrUnsupported)
	}

	info, err := os.Stat(src)
	if err != nil {
		return failed(res, "stat source", src, err)
	}
	if !info.Mode().IsRegular() {
		return failed(res, "check", src, fmt.Errorf("%w: not a regular file (%s)", ErrUnsupported, info.Mode().Type()))
	}

	if !overwrite {
		if _, err := os.Lstat(dst); err == nil {
			return skipped(res, reasonExists)
		} else if !errors.Is(err, os.ErrNotExist) {
			return failed(res, "stat destination", dst, err)
		}
	}

	err = writeAtomic(dst, overwrite, func(w io.Writer) error {
		return e.codec.Transcode(ctx, src, w)
	})
	switch {
	case errors.Is(err, errDestinationExists):
		return skipped(res, reasonExists)
	case errors.Is(err, codec.ErrDecode):
		return failed(res, "decode", src, err)
	case err != nil:
		return failed(res, "convert", src, err)
	}

	res.Outcome = types.OutcomeConverted
	if removeSource {
		if err := os.Remove(src); err != nil {
			res.Warning = fmt.Sprintf("converted but could not remove source: %v", err)
		} else {
			res.SourceDeleted = true
		}
	}
	return res
}

func skipped(res types.ConversionResult, reason string) types.ConversionResult {
	res.Outcome = types.OutcomeSkipped
	res.Reason = reason
	return res
}

func failed(res types.ConversionResult, operation, path string, err error) types.ConversionResult {
	kind := Classify(err)
	if marker := markerFor(kind); errors.Is(err, marker) {
		err = fmt.Errorf("%s: %w", buildDetail(operation, path), err)
	} else {
		err = Wrap(marker, operation, path, err)
	}
	res.Outcome = types.OutcomeFailed
	res.ErrorKind = kind
	res.Err = err
	res.Error = err.Error()
	return res
}
