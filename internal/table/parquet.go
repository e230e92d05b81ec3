package table

import (
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/atikulmunna/modusage/internal/model"
)

// WriteParquet encodes tbl as a single Parquet file. The schema comes from
// the parquet tags on model.Record; optional fields are nullable columns.
func WriteParquet(w io.Writer, tbl model.Table) error {
	return parquet.Write(w, []model.Record(tbl))
}

// ReadParquet decodes a table written by WriteParquet.
func ReadParquet(r io.ReaderAt, size int64) (model.Table, error) {
	rows, err := parquet.Read[model.Record](r, size)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		return model.Table{}, nil
	}
	return model.Table(rows), nil
}

// SaveParquet writes tbl to path.
func SaveParquet(path string, tbl model.Table) error {
	err := writeAtomic(path, func(f *os.File) error { return WriteParquet(f, tbl) })
	if err != nil {
		return fmt.Errorf("save parquet %s: %w", path, err)
	}
	return nil
}

// LoadParquet reads a table previously saved with SaveParquet.
func LoadParquet(path string) (model.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load parquet: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("load parquet: %w", err)
	}
	tbl, err := ReadParquet(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("load parquet %s: %w", path, err)
	}
	return tbl, nil
}
