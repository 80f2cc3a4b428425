package tabular

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// CSVReader streams rows from a delimited text file. The first line is the
// header; cell access is by normalized header name so column order in the
// source file does not matter.
type CSVReader struct {
	file    *os.File
	reader  *csv.Reader
	columns []string
	rowNum  int64
}

// OpenCSV opens a comma- or tab-delimited tariff file and reads its header.
func OpenCSV(path string, comma rune) (*CSVReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open tariff file: %w", err)
	}

	buf := bufio.NewReaderSize(f, 64*1024)

	// Skip UTF-8 BOM if present.
	if bom, err := buf.Peek(3); err == nil && len(bom) == 3 &&
		bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		_, _ = buf.Discard(3)
	}

	r := csv.NewReader(buf)
	r.Comma = comma
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("read header row: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = NormalizeColumnName(h)
	}

	return &CSVReader{file: f, reader: r, columns: columns, rowNum: 1}, nil
}

// Columns returns the normalized header column names.
func (r *CSVReader) Columns() []string {
	return r.columns
}

// Read returns the next data row, or io.EOF. Short records are padded with
// empty cells; extra cells beyond the header are dropped.
func (r *CSVReader) Read() (*Row, error) {
	rec, err := r.reader.Read()
	if err != nil {
		return nil, err
	}
	r.rowNum++

	cells := make(map[string]string, len(r.columns))
	for i, col := range r.columns {
		if i < len(rec) {
			cells[col] = rec[i]
		}
	}
	return &Row{Number: r.rowNum, Cells: cells}, nil
}

// Close closes the underlying file.
func (r *CSVReader) Close() error {
	return r.file.Close()
}
