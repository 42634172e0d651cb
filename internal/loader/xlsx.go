package loader

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/datalens-cli/internal/dataset"
)

type xlsxLoader struct{}

func (xlsxLoader) CanLoad(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".xlsx")
}

// Load reads the selected sheet. The sheet is chosen by name, else by
// 1-based index, else the first sheet is used.
func (xlsxLoader) Load(r io.Reader, name string, opt Options) (*dataset.Table, error) {
	base := filepath.Base(name)
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &dataset.DecodeError{Name: base, Err: fmt.Errorf("open xlsx: %w", err)}
	}
	defer func() {
		_ = f.Close()
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &dataset.DecodeError{Name: base, Err: errors.New("no sheets found in workbook")}
	}
	sheet, err := pickSheet(sheets, opt.SheetName, opt.SheetIndex)
	if err != nil {
		return nil, &dataset.DecodeError{Name: base, Err: err}
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, &dataset.DecodeError{Name: base, Err: fmt.Errorf("read sheet %s: %w", sheet, err)}
	}
	// Skip leading empty rows before the header.
	for len(rows) > 0 && len(rows[0]) == 0 {
		rows = rows[1:]
	}
	if len(rows) == 0 {
		return nil, &dataset.DecodeError{Name: base, Err: fmt.Errorf("sheet %s is empty", sheet)}
	}
	header := rows[0]
	body := rows[1:]
	// Cells beyond the header width are empty trailing cells in some writers.
	for i, rec := range body {
		for len(rec) > len(header) && strings.TrimSpace(rec[len(rec)-1]) == "" {
			rec = rec[:len(rec)-1]
		}
		body[i] = rec
	}
	return buildTable(name, header, body, opt)
}

func pickSheet(sheets []string, name string, index int) (string, error) {
	if name != "" {
		for _, s := range sheets {
			if strings.EqualFold(s, name) {
				return s, nil
			}
		}
		return "", fmt.Errorf("sheet '%s' not found.\nAvailable sheets: %s", name, strings.Join(sheets, ", "))
	}
	if index <= 0 {
		index = 1
	}
	if index > len(sheets) {
		return "", fmt.Errorf("sheet index %d out of range (workbook has %d sheets)", index, len(sheets))
	}
	return sheets[index-1], nil
}
