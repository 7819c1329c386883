// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/heicconv/pkg/types"
)

// planEntry is one unit of work discovered for a request: a candidate file
// with its destination, or a directory that could not be enumerated.
type planEntry struct {
	source string
	dest   string

	// claimedBy names an earlier source that maps to the same destination.
	claimedBy string

	// enumErr is set for unreachable directories.
	enumErr error
}

// Convert is the single entry point for a request. A file path becomes a
// one-entry plan, a directory is enumerated into candidates; both run
// through the same per-file conversion. A path that does not exist or is
// neither a regular file nor a directory returns an ErrBadRoot error and
// no report.
func (e *Engine) Convert(ctx context.Context, req types.ConversionRequest) (types.BatchReport, error) {
	info, err := os.Stat(req.SourcePath)
	if err != nil {
		return types.BatchReport{}, Wrap(ErrBadRoot, "stat", req.SourcePath, err)
	}

	var entries []planEntry
	switch {
	case info.IsDir():
		entries = e.planDirectory(req.SourcePath, req.Recursive)
	case info.Mode().IsRegular():
		entries = []planEntry{{source: req.SourcePath, dest: DestinationPath(req.SourcePath)}}
	default:
		return types.BatchReport{}, Wrap(ErrBadRoot, "neither file nor directory", req.SourcePath, nil)
	}

	return e.run(ctx, req.SourcePath, entries, req.Overwrite, req.RemoveSource), nil
}

// ConvertDirectory converts every candidate under root. Per-file failures
// and unreadable subdirectories are recorded in the report; only an
// invalid root is returned as an error.
func (e *Engine) ConvertDirectory(ctx context.Context, root string, recursive, overwrite, removeSource bool) (types.BatchReport, error) {
	info, err := os.Stat(root)
	if err != nil {
		return types.BatchReport{}, Wrap(ErrBadRoot, "stat", root, err)
	}
	if !info.IsDir() {
		return types.BatchReport{}, Wrap(ErrBadRoot, "not a directory", root, nil)
	}
	return e.Convert(ctx, types.ConversionRequest{
		SourcePath:   root,
		Recursive:    recursive,
		Overwrite:    overwrite,
		RemoveSource: removeSource,
	})
}

// planDirectory lists candidates under root in lexical order. Directories
// that cannot be read become single unreachable entries and their subtree
// is skipped.
func (e *Engine) planDirectory(root string, recursive bool) []planEntry {
	var entries []planEntry
	add := func(path string) {
		if e.isCandidate(path) {
			entries = append(entries, planEntry{source: path, dest: DestinationPath(path)})
		}
	}

	if !recursive {
		dirEntries, err := os.ReadDir(root)
		if err != nil {
			return []planEntry{{source: root, enumErr: err}}
		}
		for _, d := range dirEntries {
			if d.IsDir() {
				continue
			}
			add(filepath.Join(root, d.Name()))
		}
		return claimDestinations(entries)
	}

	// WalkDir does not follow a symlinked root, so walk its target and
	// report paths under the name the caller gave.
	walkRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return []planEntry{{source: root, enumErr: err}}
	}
	underRoot := func(path string) string {
		rel, err := filepath.Rel(walkRoot, path)
		if err != nil || rel == "." {
			return root
		}
		return filepath.Join(root, rel)
	}

	_ = filepath.WalkDir(walkRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			entries = append(entries, planEntry{source: underRoot(path), enumErr: err})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		add(underRoot(path))
		return nil
	})
	return claimDestinations(entries)
}

// isCaseInsensitive reports whether the directory holding the existing
// file sample resolves names without regard to case.
var isCaseInsensitive = caseInsensitiveDir

func caseInsensitiveDir(sample string) bool {
	base := filepath.Base(sample)
	swapped := swapCase(base)
	if swapped == base {
		return false
	}
	a, err := os.Stat(sample)
	if err != nil {
		return false
	}
	b, err := os.Stat(filepath.Join(filepath.Dir(sample), swapped))
	if err != nil {
		return false
	}
	return os.SameFile(a, b)
}

func swapCase(s string) string {
	return strings.Map(func(r rune) rune {
		if u := unicode.ToUpper(r); u != r {
			return u
		}
		return unicode.ToLower(r)
	}, s)
}

// claimDestinations gives each destination to the first source that maps
// to it. Identical destination paths always collide. Paths differing only
// in case collide when their directory is case-insensitive, so IMG.HEIC
// and img.heif cannot race for one file there.
func claimDestinations(entries []planEntry) []planEntry {
	exact := make(map[string]string, len(entries))
	folded := make(map[string]string, len(entries))
	insensitive := make(map[string]bool)

	for i := range entries {
		if entries[i].enumErr != nil {
			continue
		}
		dest := filepath.Clean(entries[i].dest)
		if owner, ok := exact[dest]; ok {
			entries[i].claimedBy = owner
			continue
		}

		key := strings.ToLower(dest)
		if owner, ok := folded[key]; ok {
			dir := filepath.Dir(dest)
			ci, seen := insensitive[dir]
			if !seen {
				ci = isCaseInsensitive(owner)
				insensitive[dir] = ci
			}
			if ci {
				entries[i].claimedBy = owner
				continue
			}
		} else {
			folded[key] = entries[i].source
		}
		exact[dest] = entries[i].source
	}
	return entries
}

// run dispatches entries to at most Workers goroutines. Results land at
// their plan index, so report order is traversal order. Once ctx is
// cancelled no further entry starts; conversions already started run to
// completion.
func (e *Engine) run(ctx context.Context, root string, entries []planEntry, overwrite, removeSource bool) types.BatchReport {
	results := make([]types.ConversionResult, len(entries))
	started := make([]bool, len(entries))
	inflight := context.WithoutCancel(ctx)

	var (
		g          errgroup.Group
		progressMu sync.Mutex
	)
	g.SetLimit(e.opts.Workers)

	for i, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			started[i] = true
			res := e.execute(inflight, entry, overwrite, removeSource)
			results[i] = res
			if e.opts.Progress != nil {
				progressMu.Lock()
				e.opts.Progress(res)
				progressMu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	report := types.BatchReport{Root: root, Results: make([]types.ConversionResult, 0, len(entries))}
	for i, ok := range started {
		if ok {
			report.Results = append(report.Results, results[i])
		} else {
			report.Cancelled = true
		}
	}

	e.log.WithFields(logrus.Fields{
		"root":      root,
		"converted": report.Converted(),
		"skipped":   report.Skipped(),
		"failed":    report.Failed(),
		"cancelled": report.Cancelled,
	}).Info("batch finished")
	return report
}

func (e *Engine) execute(ctx context.Context, entry planEntry, overwrite, removeSource bool) types.ConversionResult {
	res := types.ConversionResult{SourcePath: entry.source, DestinationPath: entry.dest}
	switch {
	case entry.enumErr != nil:
		e.log.WithField("dir", entry.source).WithError(entry.enumErr).Warn("directory unreadable")
		return failed(res, "read directory", entry.source, fmt.Errorf("%w: %w", ErrUnreachableSubtree, entry.enumErr))
	case entry.claimedBy != "":
		return skipped(res, reasonClaimed+entry.claimedBy)
	case e.opts.DryRun:
		return skipped(res, reasonDryRun)
	}
	return e.ConvertFile(ctx, entry.source, entry.dest, overwrite, removeSource)
}
