// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/pdiddy/heicconv/internal/codec"
	"github.com/pdiddy/heicconv/pkg/types"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrPermission         = errors.New("permission denied")
	ErrIO                 = errors.New("i/o failure")
	ErrUnreachableSubtree = errors.New("unreachable subtree")
	ErrBadRoot            = errors.New("invalid path")
	ErrUnsupported        = errors.New("unsupported source format")
)

// errDestinationExists is returned by commit when a no-clobber rename finds
// the destination already present.
var errDestinationExists = errors.New("destination exists")

// Wrap tags err with marker and an operation/path detail so callers can
// both read the message and classify it with errors.Is.
func Wrap(marker error, operation, path string, err error) error {
	detail := buildDetail(operation, path)
	if marker == nil {
		marker = ErrIO
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(operation, path string) string {
	parts := make([]string, 0, 2)
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if path = strings.TrimSpace(path); path != "" {
		parts = append(parts, path)
	}
	if len(parts) == 0 {
		return "conversion failure"
	}
	return strings.Join(parts, " ")
}

// Classify maps an error to the ErrorKind stored in a ConversionResult.
func Classify(err error) types.ErrorKind {
	switch {
	case err == nil:
		return types.ErrorNone
	case errors.Is(err, ErrUnreachableSubtree):
		return types.ErrorUnreachableSubtree
	case errors.Is(err, codec.ErrDecode), errors.Is(err, ErrUnsupported):
		return types.ErrorDecode
	case errors.Is(err, ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return types.ErrorNotFound
	case errors.Is(err, ErrPermission), errors.Is(err, fs.ErrPermission):
		return types.ErrorPermission
	default:
		return types.ErrorIO
	}
}

// markerFor returns the sentinel matching kind.
func markerFor(kind types.ErrorKind) error {
	switch kind {
	case types.ErrorNotFound:
		return ErrNotFound
	case types.ErrorPermission:
		return ErrPermission
	case types.ErrorDecode:
		return codec.ErrDecode
	case types.ErrorUnreachableSubtree:
		return ErrUnreachableSubtree
	default:
		return ErrIO
	}
}
