// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/bioorbit/bioorbit/pkg/types"
)

// export is the document shape written by ExportYAML and ExportJSON.
type export struct {
	RecordCount int                    `json:"record_count" yaml:"record_count"`
	Records     []types.EnrichedRecord `json:"records" yaml:"records"`
}

// ExportYAML writes all cached records to w as a YAML document.
func (s *Store) ExportYAML(w io.Writer) error {
	records, err := s.All()
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(export{RecordCount: len(records), Records: records})
	if err != nil {
		return fmt.Errorf("marshaling export: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	return nil
}

// ExportJSON writes all cached records to w as indented JSON.
func (s *Store) ExportJSON(w io.Writer) error {
	records, err := s.All()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(export{RecordCount: len(records), Records: records})
}
