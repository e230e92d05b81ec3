package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/atikulmunna/modusage/internal/model"
)

// Null is written in place of an absent optional field, so that a field
// that is present but empty (the version of "gcc/") stays distinct.
const Null = `\N`

// WriteCSV writes a header row followed by one row per record. Absent
// optional fields are written as Null.
func WriteCSV(w io.Writer, tbl model.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(model.Columns); err != nil {
		return err
	}
	for _, rec := range tbl {
		row := rec.Fields()
		for i, p := range []*string{rec.Version, rec.Hash, rec.Path} {
			if p == nil {
				row[optionalCol+i] = Null
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// optionalCol is the index of version in model.Columns; hash and path follow.
const optionalCol = 4

// ReadCSV reads a table written by WriteCSV. Columns are matched by header
// name, so extra columns such as a leading row index are ignored. Null
// cells and missing optional columns read back as absent.
func ReadCSV(r io.Reader) (model.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("csv: missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("csv: %w", err)
	}

	pos := make(map[string]int, len(header))
	for i, name := range header {
		pos[name] = i
	}
	for _, name := range []string{"username", "euid", "egid", "module_name", "unix_time", "date", "time"} {
		if _, ok := pos[name]; !ok {
			return nil, fmt.Errorf("csv: missing column %q", name)
		}
	}

	tbl := model.Table{}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: %w", err)
		}

		cell := func(name string) string {
			i, ok := pos[name]
			if !ok || i >= len(row) {
				return ""
			}
			return row[i]
		}
		optional := func(name string) *string {
			i, ok := pos[name]
			if !ok || i >= len(row) || row[i] == Null {
				return nil
			}
			return model.Str(row[i])
		}

		tbl = append(tbl, model.Record{
			Username:   cell("username"),
			EUID:       cell("euid"),
			EGID:       cell("egid"),
			ModuleName: cell("module_name"),
			Version:    optional("version"),
			Hash:       optional("hash"),
			Path:       optional("path"),
			UnixTime:   cell("unix_time"),
			Date:       cell("date"),
			Time:       cell("time"),
		})
	}
	return tbl, nil
}

// SaveCSV writes tbl to path.
func SaveCSV(path string, tbl model.Table) error {
	err := writeAtomic(path, func(f *os.File) error { return WriteCSV(f, tbl) })
	if err != nil {
		return fmt.Errorf("save csv %s: %w", path, err)
	}
	return nil
}

// LoadCSV reads a table previously saved with SaveCSV.
func LoadCSV(path string) (model.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load csv: %w", err)
	}
	defer f.Close()

	tbl, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("load csv %s: %w", path, err)
	}
	return tbl, nil
}
