// Package tabular reads tariff source files. CSV, TSV and Parquet encodings
// are interchangeable: every reader yields the same raw Row mapping, and the
// cleaner downstream neither knows nor cares which encoding produced it.
package tabular

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Canonical column names of a tariff source file.
const (
	ColCode        = "code"
	ColDescription = "description"
	ColNormalRate  = "normal_rate"
	ColSpecialRate = "special_rate"
	ColNonEARate   = "non_ea_rate"
	ColDepartment  = "department"
	ColGLAccount   = "gl_account"
	ColVariantType = "variant_type"
)

// RateColumns lists the three tier columns in canonical order.
var RateColumns = []string{ColNormalRate, ColSpecialRate, ColNonEARate}

// Row is one raw source line: a mapping of canonical column name to the raw
// cell text, exactly as it appeared in the file.
type Row struct {
	Number int64
	Cells  map[string]string
}

// Cell returns the raw text of the named column, "" when absent.
func (r *Row) Cell(name string) string {
	return r.Cells[name]
}

// Reader streams raw rows from a tariff source file.
type Reader interface {
	// Columns returns the normalized header column names.
	Columns() []string
	// Read returns the next row, or io.EOF when the file is exhausted.
	Read() (*Row, error)
	Close() error
}

// Open returns a Reader for the file, chosen by extension.
func Open(path string) (Reader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return OpenCSV(path, ',')
	case ".tsv":
		return OpenCSV(path, '\t')
	case ".parquet":
		return OpenParquet(path)
	default:
		return nil, fmt.Errorf("unsupported tariff file format %q (want .csv, .tsv or .parquet)", filepath.Ext(path))
	}
}

// ValidateColumns checks that the header carries a description column and at
// least one rate tier column. Anything less is a structurally unusable file.
func ValidateColumns(cols []string) error {
	present := make(map[string]bool, len(cols))
	for _, c := range cols {
		present[c] = true
	}
	if !present[ColDescription] {
		return fmt.Errorf("missing required column: %s", ColDescription)
	}
	for _, c := range RateColumns {
		if present[c] {
			return nil
		}
	}
	return fmt.Errorf("no rate columns found; need at least one of: %s",
		strings.Join(RateColumns, ", "))
}

// NormalizeColumnName maps a raw header cell to its canonical column name.
func NormalizeColumnName(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	return s
}
