package tabular

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// TariffParquetRow mirrors the Parquet schema for one tariff line. Rate
// fields are float64 in the Parquet representation; they are rendered back
// to text so the cleaner sees the same raw Row contract as for CSV input.
type TariffParquetRow struct {
	Code        *string  `parquet:"code,optional"`
	Description *string  `parquet:"description,optional"`
	NormalRate  *float64 `parquet:"normal_rate,optional"`
	SpecialRate *float64 `parquet:"special_rate,optional"`
	NonEARate   *float64 `parquet:"non_ea_rate,optional"`
	Department  *string  `parquet:"department,optional"`
	GLAccount   *string  `parquet:"gl_account,optional"`
	VariantType *string  `parquet:"variant_type,optional"`
}

const parquetReadBatch = 256

// ParquetReader streams rows from a Parquet tariff file.
type ParquetReader struct {
	file   *os.File
	reader *parquet.GenericReader[TariffParquetRow]

	buf    []TariffParquetRow
	n      int
	idx    int
	eof    bool
	rowNum int64
}

// OpenParquet opens a Parquet tariff file for streaming reads.
func OpenParquet(path string) (*ParquetReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open parquet file: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat parquet file: %w", err)
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open parquet: %w", err)
	}

	return &ParquetReader{
		file:   f,
		reader: parquet.NewGenericReader[TariffParquetRow](pf),
		buf:    make([]TariffParquetRow, parquetReadBatch),
		rowNum: 1,
	}, nil
}

// Columns returns the lowercased field names of the Parquet schema.
func (r *ParquetReader) Columns() []string {
	fields := r.reader.Schema().Fields()
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = strings.ToLower(f.Name())
	}
	return cols
}

// Read returns the next row, or io.EOF once the file is exhausted.
func (r *ParquetReader) Read() (*Row, error) {
	if r.idx >= r.n {
		if r.eof {
			return nil, io.EOF
		}
		n, err := r.reader.Read(r.buf)
		if err == io.EOF {
			r.eof = true
		} else if err != nil {
			return nil, fmt.Errorf("read parquet rows: %w", err)
		}
		r.n, r.idx = n, 0
		if n == 0 {
			return nil, io.EOF
		}
	}

	row := &r.buf[r.idx]
	r.idx++
	r.rowNum++

	cells := make(map[string]string, 8)
	putStr(cells, ColCode, row.Code)
	putStr(cells, ColDescription, row.Description)
	putRate(cells, ColNormalRate, row.NormalRate)
	putRate(cells, ColSpecialRate, row.SpecialRate)
	putRate(cells, ColNonEARate, row.NonEARate)
	putStr(cells, ColDepartment, row.Department)
	putStr(cells, ColGLAccount, row.GLAccount)
	putStr(cells, ColVariantType, row.VariantType)

	return &Row{Number: r.rowNum, Cells: cells}, nil
}

// Close releases all resources.
func (r *ParquetReader) Close() error {
	if err := r.reader.Close(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}

func putStr(cells map[string]string, col string, v *string) {
	if v != nil {
		cells[col] = *v
	}
}

func putRate(cells map[string]string, col string, v *float64) {
	if v != nil {
		cells[col] = strconv.FormatFloat(*v, 'f', -1, 64)
	}
}
