// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

//go:build unix

package convert

import (
	"context"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/heicconv/pkg/types"
)

func TestConvertFile_FIFOIsRejected(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "pipe.heic")
	require.NoError(t, syscall.Mkfifo(src, 0o644))

	done := make(chan types.ConversionResult, 1)
	go func() {
		done <- newTestEngine(&fakeCodec{}, Options{}).ConvertFile(context.Background(), src, DestinationPath(src), false, false)
	}()

	select {
	case res := <-done:
		assert.Equal(t, types.OutcomeFailed, res.Outcome)
		assert.ErrorIs(t, res.Err, ErrUnsupported)
	case <-time.After(5 * time.Second):
		t.Fatal("conversion of a FIFO did not return")
	}
}

func TestConvertDirectory_FIFOCandidateFails(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.heic"), "heic")
	require.NoError(t, syscall.Mkfifo(filepath.Join(dir, "b.heic"), 0o644))

	report, err := newTestEngine(&fakeCodec{}, Options{}).ConvertDirectory(context.Background(), dir, false, false, false)
	require.NoError(t, err)
	require.Len(t, report.Results, 2)
	assert.Equal(t, types.OutcomeConverted, report.Results[0].Outcome)
	assert.Equal(t, types.OutcomeFailed, report.Results[1].Outcome)
}
