// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package codec

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/pdiddy/heicconv/internal/container"
)

// DefaultContainerImage is an ImageMagick build with libheif support whose
// entrypoint is the magick binary.
const DefaultContainerImage = "dpokidov/imagemagick:latest"

// Container transcodes by piping the source through ImageMagick running in
// a container. It depends on a container.Runtime injected at construction.
type Container struct {
	runtime container.Runtime
	image   string
	quality int
}

// NewContainer creates a codec that runs image on rt. It verifies that the
// image exists locally before returning.
func NewContainer(rt container.Runtime, image string, quality int) (*Container, error) {
	if image == "" {
		image = DefaultContainerImage
	}
	if err := rt.ImageExists(image); err != nil {
		return nil, fmt.Errorf("codec image not available in %s: %w", rt.Name(), err)
	}
	return &Container{runtime: rt, image: image, quality: clampQuality(quality)}, nil
}

func (c *Container) Name() string { return "container:" + c.runtime.Name() }

// Transcode streams srcPath into the container and the JPEG it prints back
// into w. Any container failure is treated as a decode failure.
func (c *Container) Transcode(ctx context.Context, srcPath string, w io.Writer) error {
	f, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer f.Close()

	args := []string{"heic:-", "-auto-orient", "-quality", strconv.Itoa(c.quality), "jpeg:-"}
	cw := &countingWriter{w: w}
	if err := c.runtime.Run(ctx, c.image, args, f, cw); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s: %w", ErrDecode, srcPath, err)
	}
	if cw.n == 0 {
		return fmt.Errorf("%w: %s: container produced empty output", ErrDecode, srcPath)
	}
	return nil
}
