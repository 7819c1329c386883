// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/heicconv/internal/codec"
	"github.com/pdiddy/heicconv/internal/container"
	"github.com/pdiddy/heicconv/internal/convert"
	"github.com/pdiddy/heicconv/internal/history"
	"github.com/pdiddy/heicconv/internal/runlock"
	"github.com/pdiddy/heicconv/pkg/types"
)

var convertCmd = &cobra.Command{
	Use:   "convert <path>",
	Short: "Convert a HEIC file or a directory of HEIC files to JPEG",
	Long: `Convert transcodes a single .heic/.heif file, or every HEIC file under a
directory, into a .jpg beside it. Directories are walked recursively unless
--recursive=false. One file failing never stops the batch; each file's
outcome is printed and summarized at the end.

Two codecs are available: the built-in native decoder, and an ImageMagick
container run through docker or podman (--codec container).

Ctrl-C stops dispatching new files. Conversions already running finish
and are reported. A second Ctrl-C exits immediately.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	verbose, _ := cmd.Flags().GetBool("verbose")
	reportPath, _ := cmd.Flags().GetString("report")
	stdout := cmd.OutOrStdout()

	req := types.ConversionRequest{
		SourcePath:   args[0],
		Recursive:    cfg.Conversion.Recursive,
		Overwrite:    cfg.Conversion.Overwrite,
		RemoveSource: cfg.Conversion.RemoveSource,
	}

	c, err := codecFactory(cfg.Conversion)
	if err != nil {
		return err
	}

	if !dryRun {
		lock, err := runlock.Acquire(lockDir(), req.SourcePath)
		if err != nil {
			return err
		}
		defer lock.Release()
	}

	ctx, stop := interruptContext()
	defer stop()

	live := verbose || shouldColorize(stdout)
	opts := convert.Options{
		Workers:     cfg.Conversion.Workers,
		IncludeHEIF: cfg.Conversion.IncludeHEIF,
		DryRun:      dryRun,
		Logger:      logger,
	}
	if live {
		opts.Progress = func(res types.ConversionResult) {
			convert.PrintResult(stdout, res)
		}
	}

	logger.WithFields(logrus.Fields{
		"path":    req.SourcePath,
		"workers": opts.Workers,
		"codec":   c.Name(),
		"dry_run": dryRun,
	}).Info("Starting conversion")

	started := time.Now()
	report, err := convert.NewEngine(c, opts).Convert(ctx, req)
	if err != nil {
		return err
	}

	if !live {
		for _, res := range report.Results {
			convert.PrintResult(stdout, res)
		}
	}
	printFailureTable(stdout, report)
	convert.PrintSummary(stdout, report)

	if reportPath != "" {
		if err := writeReportFile(reportPath, report); err != nil {
			return err
		}
	}

	if cfg.History.Enabled && !dryRun {
		recordHistory(cfg.History, req, c.Name(), started, report)
	}

	if report.Cancelled {
		return errors.New("interrupted before all files were converted")
	}
	if report.HasFailures() {
		return fmt.Errorf("%d file(s) failed to convert", report.Failed())
	}
	return nil
}

// Swapped out in tests.
var (
	codecFactory = newCodec
	lockDir      = runlock.DefaultDir
)

// interruptContext returns a context cancelled by the first SIGINT or
// SIGTERM. The handler is released as soon as that signal arrives, so a
// second one terminates the process.
func interruptContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		stop()
	}()
	return ctx, stop
}

// newCodec builds the transcoder named by cfg.Codec.
func newCodec(cfg types.ConversionConfig) (codec.Codec, error) {
	switch cfg.Codec {
	case types.CodecNative, "":
		return codec.NewNative(cfg.JPEGQuality, cfg.PreserveExif), nil
	case types.CodecContainer:
		rt, err := container.DetectRuntime()
		if err != nil {
			return nil, err
		}
		return codec.NewContainer(rt, cfg.ContainerImage, cfg.JPEGQuality)
	default:
		return nil, fmt.Errorf("unknown codec %q (want %s or %s)", cfg.Codec, types.CodecNative, types.CodecContainer)
	}
}

func printFailureTable(w io.Writer, report types.BatchReport) {
	if !report.HasFailures() {
		return
	}
	var rows [][]string
	for _, res := range report.Results {
		if res.Outcome != types.OutcomeFailed {
			continue
		}
		rows = append(rows, []string{res.SourcePath, convert.Describe(res.ErrorKind)})
	}
	fmt.Fprintln(w)
	fmt.Fprint(w, renderTable([]string{"Failed", "Problem"}, rows, nil))
}

func writeReportFile(path string, report types.BatchReport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report %s: %w", path, err)
	}
	if err := convert.WriteReportYAML(f, report); err != nil {
		f.Close()
		return fmt.Errorf("writing report %s: %w", path, err)
	}
	return f.Close()
}

// recordHistory stores the batch in the ledger. Ledger problems are logged
// and never change the command's outcome.
func recordHistory(cfg types.HistoryConfig, req types.ConversionRequest, codecName string, started time.Time, report types.BatchReport) {
	store, err := history.NewStore(cfg)
	if err != nil {
		logger.WithError(err).Warn("History unavailable")
		return
	}
	defer store.Close()

	id, err := store.Record(context.Background(), req, codecName, started, report)
	if err != nil {
		logger.WithError(err).Warn("Recording history failed")
		return
	}
	logger.WithField("batch", id).Info("Recorded batch")
}

func init() {
	f := convertCmd.Flags()
	f.Bool("recursive", true, "descend into subdirectories")
	f.Bool("overwrite", false, "replace existing JPEG files")
	f.Bool("remove", false, "delete each HEIC source after its JPEG is written")
	f.Int("workers", 1, "number of files converted in parallel")
	f.Bool("include-heif", true, "also convert .heif files found in directories")
	f.String("codec", string(types.CodecNative), "transcoder: native or container")
	f.Int("quality", codec.DefaultQuality, "JPEG quality, 1-100")
	f.Bool("preserve-exif", true, "copy EXIF metadata into the JPEG (native codec)")
	f.String("container-image", codec.DefaultContainerImage, "ImageMagick image for the container codec")
	f.Bool("history", true, "record the batch in the history ledger")
	f.Bool("dry-run", false, "list what would be converted without writing anything")
	f.Bool("verbose", false, "print each file as it finishes even when output is not a terminal")
	f.String("report", "", "write the batch report as YAML to this file")

	for key, flag := range map[string]string{
		"conversion.recursive":       "recursive",
		"conversion.overwrite":       "overwrite",
		"conversion.remove_source":   "remove",
		"conversion.workers":         "workers",
		"conversion.include_heif":    "include-heif",
		"conversion.codec":           "codec",
		"conversion.jpeg_quality":    "quality",
		"conversion.preserve_exif":   "preserve-exif",
		"conversion.container_image": "container-image",
		"history.enabled":            "history",
	} {
		_ = viper.BindPFlag(key, f.Lookup(flag))
	}

	rootCmd.AddCommand(convertCmd)
}
