// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/heicconv/pkg/types"
)

// Describe returns a human-readable label for a failure kind.
func Describe(kind types.ErrorKind) string {
	switch kind {
	case types.ErrorNotFound:
		return "source not found"
	case types.ErrorPermission:
		return "permission denied"
	case types.ErrorDecode:
		return "could not decode HEIC image"
	case types.ErrorIO:
		return "could not write JPEG"
	case types.ErrorUnreachableSubtree:
		return "directory could not be read"
	default:
		return "conversion failed"
	}
}

// PrintResult writes one status line for res to w.
func PrintResult(w io.Writer, res types.ConversionResult) {
	switch res.Outcome {
	case types.OutcomeConverted:
		fmt.Fprintf(w, "converted: %s -> %s\n", res.SourcePath, res.DestinationPath)
		if res.SourceDeleted {
			fmt.Fprintf(w, "removed:   %s\n", res.SourcePath)
		}
		if res.Warning != "" {
			fmt.Fprintf(w, "warning:   %s (%s)\n", res.SourcePath, res.Warning)
		}
	case types.OutcomeSkipped:
		fmt.Fprintf(w, "skipped:   %s (%s)\n", res.SourcePath, res.Reason)
	case types.OutcomeFailed:
		fmt.Fprintf(w, "failed:    %s: %s (%s)\n", res.SourcePath, Describe(res.ErrorKind), res.Error)
	}
}

// PrintSummary writes one line per outcome kind that occurred plus the
// total, in the same shape for single files and batches.
func PrintSummary(w io.Writer, report types.BatchReport) {
	fmt.Fprintln(w)
	if n := report.Converted(); n > 0 {
		fmt.Fprintf(w, "Converted %d file(s)\n", n)
	}
	if n := report.Skipped(); n > 0 {
		fmt.Fprintf(w, "Skipped %d file(s)\n", n)
	}
	if n := report.Failed(); n > 0 {
		fmt.Fprintf(w, "Failed %d file(s)\n", n)
	}
	if n := report.Warnings(); n > 0 {
		fmt.Fprintf(w, "%d warning(s)\n", n)
	}
	if report.Cancelled {
		fmt.Fprintln(w, "Cancelled before all files were processed")
	}
	fmt.Fprintf(w, "Batch summary: %d converted, %d skipped, %d failed (total: %d)\n",
		report.Converted(), report.Skipped(), report.Failed(), report.Total())
}

// WriteReportYAML encodes report as YAML.
func WriteReportYAML(w io.Writer, report types.BatchReport) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&report); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return enc.Close()
}
