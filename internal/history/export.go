// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"
)

const exportLimit = 100000

// ExportYAML writes the recorded batches with their results to w. An empty
// id exports every batch; otherwise only the batch matching id.
func (s *Store) ExportYAML(ctx context.Context, w io.Writer, id string) error {
	batches, err := s.exportBatches(ctx, id)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(batches); err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return enc.Close()
}

// ExportJSON is ExportYAML with JSON output.
func (s *Store) ExportJSON(ctx context.Context, w io.Writer, id string) error {
	batches, err := s.exportBatches(ctx, id)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(batches, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

func (s *Store) exportBatches(ctx context.Context, id string) ([]Batch, error) {
	if id != "" {
		b, err := s.Batch(ctx, id)
		if err != nil {
			return nil, err
		}
		return []Batch{b}, nil
	}

	list, err := s.Batches(ctx, exportLimit)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}
	out := make([]Batch, 0, len(list))
	for _, b := range list {
		b.Results, err = s.results(ctx, b.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}
