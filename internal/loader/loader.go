// Package loader turns uploaded bytes into a dataset.Table.
package loader

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/KaramelBytes/datalens-cli/internal/dataset"
)

// ErrUnsupportedFormat is returned for file types no loader accepts.
var ErrUnsupportedFormat = fmt.Errorf("unsupported file format (use .csv, .tsv, .txt or .xlsx): %w", dataset.ErrUsage)

// Options controls parsing.
type Options struct {
	// Delimiter for delimited text. If 0, chosen by extension.
	Delimiter rune
	// SheetName selects an XLSX sheet by name.
	SheetName string
	// SheetIndex is the 1-based sheet used when SheetName is empty.
	SheetIndex int
	// Parse controls cell type inference.
	Parse dataset.ParseOptions
}

// Loader parses one family of file formats.
type Loader interface {
	CanLoad(name string) bool
	Load(r io.Reader, name string, opt Options) (*dataset.Table, error)
}

var registry []Loader

// Register adds a loader implementation to the registry.
func Register(l Loader) {
	registry = append(registry, l)
}

// Supported reports whether some loader accepts the file name.
func Supported(name string) bool {
	return find(name) != nil
}

// Load selects a loader by file extension and parses data. Unsupported
// extensions are rejected before any parsing.
func Load(name string, data []byte, opt Options) (*dataset.Table, error) {
	l := find(name)
	if l == nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(name), ErrUnsupportedFormat)
	}
	return l.Load(bytes.NewReader(data), name, opt)
}

func find(name string) Loader {
	for _, l := range registry {
		if l.CanLoad(name) {
			return l
		}
	}
	return nil
}

// buildTable infers every column from raw records. header is the first row.
func buildTable(name string, header []string, rows [][]string, opt Options) (*dataset.Table, error) {
	names := normalizeHeader(header)
	raw := make([][]string, len(names))
	for j := range raw {
		raw[j] = make([]string, len(rows))
	}
	for i, rec := range rows {
		if len(rec) > len(names) {
			return nil, &dataset.DecodeError{
				Name: filepath.Base(name),
				Err:  fmt.Errorf("row %d: expected %d fields, saw %d", i+2, len(names), len(rec)),
			}
		}
		for j, v := range rec {
			raw[j][i] = v
		}
	}
	cols := make([]dataset.Column, len(names))
	for j, n := range names {
		cols[j] = dataset.InferColumn(n, raw[j], opt.Parse)
	}
	t, err := dataset.New(cols...)
	if err != nil {
		return nil, &dataset.DecodeError{Name: filepath.Base(name), Err: err}
	}
	return t, nil
}

// normalizeHeader names blank headers "Unnamed: i" and suffixes repeats
// with ".1", ".2", ... so every column name is unique.
func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	used := make(map[string]bool, len(header))
	dups := make(map[string]int)
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		name := h
		for used[name] {
			dups[h]++
			name = h + "." + strconv.Itoa(dups[h])
		}
		used[name] = true
		out[i] = name
	}
	return out
}

func init() {
	Register(delimitedLoader{})
	Register(xlsxLoader{})
}
