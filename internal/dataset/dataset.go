// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dataset loads the space-biology publication CSV and serves it as
// a read-only abstract store keyed by PMC id.
package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/bioorbit/bioorbit/pkg/types"
)

// pmcPattern matches a PubMed Central accession inside an article link.
var pmcPattern = regexp.MustCompile(`PMC\d+`)

// Dataset is an in-memory, read-only view of the publication CSV.
type Dataset struct {
	path    string
	pubs    []types.Publication
	byID    map[string]int
	headers []string
	cols    columns

	// Rejected lists per-row load errors for rows that yielded no usable
	// publication (e.g. no derivable id). Loading fails only when every
	// row is rejected. The raw fields of each rejected row are retained
	// so rewrites of the dataset never drop them from the file.
	Rejected    []RowError
	rejectedRaw [][]string
}

// RowError records why a CSV row was rejected during load.
type RowError struct {
	Line   int
	Reason string
}

func (e RowError) String() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// Load reads the CSV at path into a Dataset. Header matching is
// case-insensitive; title and link columns are required, id, abstract,
// authors, and year are optional. When the id column is absent or empty,
// the id is derived from the PMC accession in the link.
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing dataset %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("dataset %s is empty", path)
	}

	cols, err := mapHeaders(rows[0])
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}

	ds := &Dataset{
		path:    path,
		byID:    make(map[string]int),
		headers: rows[0],
		cols:    cols,
	}

	for i, row := range rows[1:] {
		line := i + 2
		pub, err := rowToPublication(row, cols)
		if err != nil {
			ds.Rejected = append(ds.Rejected, RowError{Line: line, Reason: err.Error()})
			ds.rejectedRaw = append(ds.rejectedRaw, row)
			continue
		}
		if _, dup := ds.byID[pub.ID]; dup {
			ds.Rejected = append(ds.Rejected, RowError{Line: line, Reason: fmt.Sprintf("duplicate id %s", pub.ID)})
			ds.rejectedRaw = append(ds.rejectedRaw, row)
			continue
		}
		ds.byID[pub.ID] = len(ds.pubs)
		ds.pubs = append(ds.pubs, pub)
	}

	if len(ds.pubs) == 0 {
		return nil, fmt.Errorf("dataset %s: no loadable rows (%d rejected)", path, len(ds.Rejected))
	}

	return ds, nil
}

// columns holds header indexes; -1 means the column is absent.
type columns struct {
	id, title, link, abstract, authors, year int
}

func mapHeaders(header []string) (columns, error) {
	cols := columns{id: -1, title: -1, link: -1, abstract: -1, authors: -1, year: -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "id":
			cols.id = i
		case "title":
			cols.title = i
		case "link", "url":
			cols.link = i
		case "abstract":
			cols.abstract = i
		case "authors":
			cols.authors = i
		case "year":
			cols.year = i
		}
	}
	if cols.title < 0 || cols.link < 0 {
		return cols, fmt.Errorf("missing required columns: need title and link")
	}
	return cols, nil
}

// fieldAt returns the trimmed field at idx, or "" for absent columns.
func fieldAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func rowToPublication(row []string, cols columns) (types.Publication, error) {
	field := func(idx int) string {
		return fieldAt(row, idx)
	}

	pub := types.Publication{
		Title:    field(cols.title),
		Link:     field(cols.link),
		Abstract: field(cols.abstract),
	}

	pub.ID = field(cols.id)
	if pub.ID == "" {
		pub.ID = pmcPattern.FindString(pub.Link)
	}
	if pub.ID == "" {
		return types.Publication{}, fmt.Errorf("no id column and no PMC accession in link %q", pub.Link)
	}
	if pub.Title == "" {
		return types.Publication{}, fmt.Errorf("empty title for %s", pub.ID)
	}

	if a := field(cols.authors); a != "" {
		for _, name := range strings.Split(a, ";") {
			if name = strings.TrimSpace(name); name != "" {
				pub.Authors = append(pub.Authors, name)
			}
		}
	}
	if y := field(cols.year); y != "" {
		if year, err := strconv.Atoi(y); err == nil {
			pub.Year = year
		}
	}

	return pub, nil
}

// Publications returns all loaded publications in CSV order.
func (d *Dataset) Publications() []types.Publication {
	return d.pubs
}

// Get returns the publication with the given id.
func (d *Dataset) Get(id string) (types.Publication, bool) {
	idx, ok := d.byID[id]
	if !ok {
		return types.Publication{}, false
	}
	return d.pubs[idx], true
}

// Len returns the number of loaded publications.
func (d *Dataset) Len() int {
	return len(d.pubs)
}

// Path returns the CSV file the dataset was loaded from.
func (d *Dataset) Path() string {
	return d.path
}

// Headers returns the original CSV header row.
func (d *Dataset) Headers() []string {
	return d.headers
}

// RejectedRows returns the raw fields of each rejected row projected into
// canonical column order (id, title, link, abstract, authors, year).
// Rewrites of the dataset append these rows so a rejected row is never
// dropped from the user's file.
func (d *Dataset) RejectedRows() [][]string {
	rows := make([][]string, 0, len(d.rejectedRaw))
	for _, raw := range d.rejectedRaw {
		rows = append(rows, []string{
			fieldAt(raw, d.cols.id),
			fieldAt(raw, d.cols.title),
			fieldAt(raw, d.cols.link),
			fieldAt(raw, d.cols.abstract),
			fieldAt(raw, d.cols.authors),
			fieldAt(raw, d.cols.year),
		})
	}
	return rows
}
