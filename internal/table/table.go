package table

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/atikulmunna/modusage/internal/model"
)

// Format is a persisted table encoding.
type Format string

const (
	CSV     Format = "csv"
	Parquet Format = "parquet"
)

// ParseFormat accepts a case-insensitive format name.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case CSV:
		return CSV, nil
	case Parquet:
		return Parquet, nil
	default:
		return "", fmt.Errorf("unknown file type %q (want csv or parquet)", s)
	}
}

// Ext returns the file extension for f, including the dot.
func (f Format) Ext() string { return "." + string(f) }

// Save writes tbl to dir/name.<ext> once per format and returns the written
// paths in format order.
func Save(tbl model.Table, dir, name string, formats []Format) ([]string, error) {
	var written []string
	for _, f := range formats {
		path := filepath.Join(dir, name+f.Ext())
		var err error
		switch f {
		case CSV:
			err = SaveCSV(path, tbl)
		case Parquet:
			err = SaveParquet(path, tbl)
		default:
			err = fmt.Errorf("unknown file type %q", f)
		}
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

// writeAtomic creates path via a temp file and rename, so a failed write
// never leaves a truncated table behind.
func writeAtomic(path string, write func(f *os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
