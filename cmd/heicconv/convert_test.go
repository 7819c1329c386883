// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/heicconv/internal/codec"
	"github.com/pdiddy/heicconv/internal/convert"
	"github.com/pdiddy/heicconv/internal/history"
	"github.com/pdiddy/heicconv/pkg/types"
)

// stubCodec writes a small JPEG for any source except those whose content
// starts with "corrupt".
type stubCodec struct{}

func (stubCodec) Name() string { return "stub" }

func (stubCodec) Transcode(_ context.Context, srcPath string, w io.Writer) error {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return err
	}
	if bytes.HasPrefix(data, []byte("corrupt")) {
		return fmt.Errorf("%w: %s", codec.ErrDecode, filepath.Base(srcPath))
	}
	return codec.EncodeJPEG(w, image.NewRGBA(image.Rect(0, 0, 4, 4)), 80, nil)
}

type cliEnv struct {
	locks   string
	history string
}

// setupCLI isolates config, lock and history state from the user's home
// and installs the stub codec.
func setupCLI(t *testing.T) cliEnv {
	t.Helper()
	base := t.TempDir()
	env := cliEnv{
		locks:   filepath.Join(base, "locks"),
		history: filepath.Join(base, "history"),
	}
	t.Setenv("HOME", base)
	t.Setenv("HEICCONV_HISTORY_DIR", env.history)

	origCodec, origLocks := codecFactory, lockDir
	codecFactory = func(types.ConversionConfig) (codec.Codec, error) { return stubCodec{}, nil }
	lockDir = func() string { return env.locks }
	t.Cleanup(func() {
		codecFactory, lockDir = origCodec, origLocks
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})
	return env
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
}

// execute runs the CLI with args and returns stdout and the command error.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	resetFlags(convertCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), err
}

func writePhotos(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func recordedBatches(t *testing.T, dir string) []history.Batch {
	t.Helper()
	if _, err := os.Stat(filepath.Join(dir, "history.db")); os.IsNotExist(err) {
		return nil
	}
	store, err := history.NewStore(types.HistoryConfig{Dir: dir})
	require.NoError(t, err)
	defer store.Close()
	batches, err := store.Batches(context.Background(), 10)
	require.NoError(t, err)
	return batches
}

func TestConvertCommand_Success(t *testing.T) {
	env := setupCLI(t)
	dir := writePhotos(t, map[string]string{
		"a.heic":     "image",
		"sub/b.HEIC": "image",
		"notes.txt":  "text",
	})

	out, err := execute(t, "convert", dir)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, "a.jpg"))
	assert.FileExists(t, filepath.Join(dir, "sub", "b.jpg"))
	assert.Contains(t, out, "converted: "+filepath.Join(dir, "a.heic"))
	assert.Contains(t, out, "Batch summary: 2 converted, 0 skipped, 0 failed (total: 2)")

	batches := recordedBatches(t, env.history)
	require.Len(t, batches, 1)
	assert.Equal(t, dir, batches[0].Request.SourcePath)
	assert.Equal(t, "stub", batches[0].Codec)
	assert.Equal(t, 2, batches[0].Converted)

	entries, err := os.ReadDir(env.locks)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "a real run takes the run lock")
}

func TestConvertCommand_FailureExitsNonZero(t *testing.T) {
	env := setupCLI(t)
	dir := writePhotos(t, map[string]string{
		"good.heic": "image",
		"bad.heic":  "corrupt bytes",
	})

	out, err := execute(t, "convert", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 file(s) failed to convert")

	assert.FileExists(t, filepath.Join(dir, "good.jpg"))
	assert.NoFileExists(t, filepath.Join(dir, "bad.jpg"))
	assert.Contains(t, out, "could not decode HEIC image")
	assert.Contains(t, out, "Batch summary: 1 converted, 0 skipped, 1 failed (total: 2)")

	batches := recordedBatches(t, env.history)
	require.Len(t, batches, 1)
	assert.Equal(t, 1, batches[0].Failed)
}

func TestConvertCommand_ReportFile(t *testing.T) {
	setupCLI(t)
	dir := writePhotos(t, map[string]string{
		"a.heic": "image",
		"b.heic": "corrupt",
	})
	reportPath := filepath.Join(t.TempDir(), "report.yaml")

	_, err := execute(t, "convert", dir, "--report", reportPath)
	require.Error(t, err, "one failure still exits non-zero")

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	var report types.BatchReport
	require.NoError(t, yaml.Unmarshal(data, &report))

	assert.Equal(t, dir, report.Root)
	require.Len(t, report.Results, 2)
	assert.Equal(t, 1, report.Converted())
	assert.Equal(t, 1, report.Failed())
	for _, res := range report.Results {
		if strings.HasSuffix(res.SourcePath, "b.heic") {
			assert.Equal(t, types.ErrorDecode, res.ErrorKind)
		}
	}
}

func TestConvertCommand_DryRun(t *testing.T) {
	env := setupCLI(t)
	dir := writePhotos(t, map[string]string{"a.heic": "image"})

	out, err := execute(t, "convert", dir, "--dry-run")
	require.NoError(t, err)

	assert.NoFileExists(t, filepath.Join(dir, "a.jpg"))
	assert.Contains(t, out, "skipped:   "+filepath.Join(dir, "a.heic")+" (dry run)")
	assert.NoDirExists(t, env.locks, "dry run takes no lock")
	assert.Empty(t, recordedBatches(t, env.history), "dry run records no history")
}

func TestConvertCommand_HistoryDisabled(t *testing.T) {
	env := setupCLI(t)
	dir := writePhotos(t, map[string]string{"a.heic": "image"})

	_, err := execute(t, "convert", dir, "--history=false")
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, "a.jpg"))
	assert.Empty(t, recordedBatches(t, env.history))
}

func TestConvertCommand_MissingSource(t *testing.T) {
	env := setupCLI(t)
	missing := filepath.Join(t.TempDir(), "nope")

	_, err := execute(t, "convert", missing)
	assert.ErrorIs(t, err, convert.ErrBadRoot)
	assert.Empty(t, recordedBatches(t, env.history))
}

func TestInterruptContext_StopCancels(t *testing.T) {
	ctx, stop := interruptContext()
	stop()
	<-ctx.Done()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
