// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for heicconv: conversion
// requests, per-file results, batch reports, and configuration.
package types

import "time"

// ConversionRequest describes one user-invoked conversion job. SourcePath
// may name a single file or a directory.
type ConversionRequest struct {
	// SourcePath is the file or directory to convert.
	SourcePath string `json:"source_path" yaml:"source_path"`

	// Recursive descends into subdirectories when SourcePath is a directory.
	Recursive bool `json:"recursive" yaml:"recursive"`

	// Overwrite replaces existing JPEG destinations.
	Overwrite bool `json:"overwrite" yaml:"overwrite"`

	// RemoveSource deletes the HEIC source after a successful conversion.
	RemoveSource bool `json:"remove_source" yaml:"remove_source"`
}

// Outcome is the terminal state of one examined file.
type Outcome string

const (
	OutcomeConverted Outcome = "converted"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// ErrorKind classifies a failed conversion.
type ErrorKind string

const (
	ErrorNone               ErrorKind = ""
	ErrorNotFound           ErrorKind = "not_found"
	ErrorPermission         ErrorKind = "permission"
	ErrorDecode             ErrorKind = "decode"
	ErrorIO                 ErrorKind = "io"
	ErrorUnreachableSubtree ErrorKind = "unreachable_subtree"
)

// ConversionResult records what happened to one source file. For an
// unreachable directory, SourcePath names the directory and
// DestinationPath is empty.
type ConversionResult struct {
	SourcePath      string  `json:"source_path" yaml:"source_path"`
	DestinationPath string  `json:"destination_path,omitempty" yaml:"destination_path,omitempty"`
	Outcome         Outcome `json:"outcome" yaml:"outcome"`

	// Reason explains a Skipped outcome (e.g. "destination exists").
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`

	// ErrorKind and Error describe a Failed outcome. Err keeps the
	// underlying error chain for errors.Is checks.
	ErrorKind ErrorKind `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	Error     string    `json:"error,omitempty" yaml:"error,omitempty"`
	Err       error     `json:"-" yaml:"-"`

	// SourceDeleted is set when the source was removed after conversion.
	SourceDeleted bool `json:"source_deleted,omitempty" yaml:"source_deleted,omitempty"`

	// Warning carries a non-fatal problem on a Converted outcome, such as
	// a failed source deletion.
	Warning string `json:"warning,omitempty" yaml:"warning,omitempty"`

	Duration time.Duration `json:"duration" yaml:"duration"`
}

// BatchReport is the ordered list of results for one request. Order follows
// traversal order regardless of worker count.
type BatchReport struct {
	Root    string             `json:"root" yaml:"root"`
	Results []ConversionResult `json:"results" yaml:"results"`

	// Cancelled is set when the context was cancelled before every
	// candidate was dispatched. Undispatched candidates have no entry.
	Cancelled bool `json:"cancelled,omitempty" yaml:"cancelled,omitempty"`
}

func (r BatchReport) count(o Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// Converted returns the number of successfully converted files.
func (r BatchReport) Converted() int { return r.count(OutcomeConverted) }

// Skipped returns the number of skipped files.
func (r BatchReport) Skipped() int { return r.count(OutcomeSkipped) }

// Failed returns the number of failed entries, including unreachable
// subtrees.
func (r BatchReport) Failed() int { return r.count(OutcomeFailed) }

// Total returns the number of entries in the report.
func (r BatchReport) Total() int { return len(r.Results) }

// HasFailures reports whether any entry failed.
func (r BatchReport) HasFailures() bool { return r.Failed() > 0 }

// Warnings returns the number of converted entries that carry a warning.
func (r BatchReport) Warnings() int {
	n := 0
	for _, res := range r.Results {
		if res.Warning != "" {
			n++
		}
	}
	return n
}

// ConvertedPaths lists destination paths of converted files in report order.
func (r BatchReport) ConvertedPaths() []string {
	var paths []string
	for _, res := range r.Results {
		if res.Outcome == OutcomeConverted {
			paths = append(paths, res.DestinationPath)
		}
	}
	return paths
}
