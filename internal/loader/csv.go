package loader

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/datalens-cli/internal/dataset"
)

type delimitedLoader struct{}

func (delimitedLoader) CanLoad(name string) bool {
	n := strings.ToLower(name)
	return strings.HasSuffix(n, ".csv") || strings.HasSuffix(n, ".tsv") || strings.HasSuffix(n, ".txt")
}

// Load reads a header row followed by records. Short records are padded
// with missing values; long records are a decode error.
func (delimitedLoader) Load(r io.Reader, name string, opt Options) (*dataset.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &dataset.DecodeError{Name: filepath.Base(name), Err: err}
	}
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(name, data)
	}
	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comma = delim

	base := filepath.Base(name)
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &dataset.DecodeError{Name: base, Err: errors.New("no columns to parse from file")}
		}
		return nil, &dataset.DecodeError{Name: base, Err: fmt.Errorf("read header: %w", err)}
	}
	var rows [][]string
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, &dataset.DecodeError{Name: base, Err: fmt.Errorf("read row %d: %w", len(rows)+1, err)}
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" && len(header) > 1 {
			continue
		}
		rows = append(rows, rec)
	}
	return buildTable(name, header, rows, opt)
}

// sniffDelimiter picks tab for .tsv, and for .txt when the first line has
// more tabs than commas.
func sniffDelimiter(path string, data []byte) rune {
	p := strings.ToLower(path)
	switch {
	case strings.HasSuffix(p, ".tsv"):
		return '\t'
	case strings.HasSuffix(p, ".txt"):
		line := data
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			line = data[:i]
		}
		if bytes.Count(line, []byte{'\t'}) > bytes.Count(line, []byte{','}) {
			return '\t'
		}
	}
	return ','
}
