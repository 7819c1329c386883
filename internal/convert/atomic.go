// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bufio"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// writeAtomic streams write's output into a temporary file beside dst and
// moves it into place only after it is fully written and synced. Readers
// never observe a partial dst; on any error the temporary file is removed.
func writeAtomic(dst string, overwrite bool, write func(io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err = write(bw); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmpPath, 0o644); err != nil {
		return err
	}
	return commit(tmpPath, dst, overwrite)
}

// commit moves tmpPath to dst. Without overwrite it hard-links so an
// existing dst is never replaced, falling back to check-then-rename on
// filesystems that do not support links.
func commit(tmpPath, dst string, overwrite bool) error {
	if overwrite {
		return os.Rename(tmpPath, dst)
	}

	err := os.Link(tmpPath, dst)
	switch {
	case err == nil:
		_ = os.Remove(tmpPath)
		return nil
	case errors.Is(err, fs.ErrExist):
		return errDestinationExists
	}

	if _, statErr := os.Lstat(dst); statErr == nil {
		return errDestinationExists
	}
	return os.Rename(tmpPath, dst)
}
