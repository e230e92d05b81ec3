package loader

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/atikulmunna/modusage/internal/model"
	"github.com/atikulmunna/modusage/internal/parser"
)

// maxLineSize bounds a single log line. Module paths can be long, so this
// is well above bufio's 64 KiB default.
const maxLineSize = 1 << 20

// Stats summarizes a load. Blank lines are not counted.
type Stats struct {
	Files     int `json:"files"`
	Lines     int `json:"lines"`
	Parsed    int `json:"parsed"`
	Malformed int `json:"malformed"`
	Filtered  int `json:"filtered"`
}

// Loader reads log files line by line and collects the parsed records.
type Loader struct {
	parser *parser.Parser
	log    *slog.Logger
}

// New creates a Loader. A nil logger discards diagnostics.
func New(p *parser.Parser, log *slog.Logger) *Loader {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Loader{parser: p, log: log}
}

// LoadDir parses every file under dir matching pattern.
func (l *Loader) LoadDir(dir, pattern string) (model.Table, Stats, error) {
	paths, err := Files(dir, pattern)
	if err != nil {
		return nil, Stats{}, err
	}
	return l.LoadFiles(paths)
}

// LoadFiles parses the given files in order. Bad lines are skipped and
// counted; an unreadable file aborts the load.
func (l *Loader) LoadFiles(paths []string) (model.Table, Stats, error) {
	tbl := model.Table{}
	var st Stats

	for _, path := range paths {
		if err := l.loadFile(path, &tbl, &st); err != nil {
			return nil, st, err
		}
	}

	l.log.Info("load complete",
		"files", st.Files,
		"lines", st.Lines,
		"parsed", st.Parsed,
		"malformed", st.Malformed,
		"filtered", st.Filtered,
	)
	return tbl, st, nil
}

// loadFile keeps the file open only for the duration of its own read loop.
func (l *Loader) loadFile(path string, tbl *model.Table, st *Stats) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	before := st.Parsed
	if err := l.Read(f, path, tbl, st); err != nil {
		return err
	}
	st.Files++
	l.log.Debug("file loaded", "file", path, "records", st.Parsed-before)
	return nil
}

// Read parses every line from r, appending records to tbl. source names r
// in diagnostics.
func (l *Loader) Read(r io.Reader, source string, tbl *model.Table, st *Stats) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		st.Lines++

		rec, err := l.parser.Parse(line)
		switch {
		case err == nil:
			*tbl = append(*tbl, rec)
			st.Parsed++
		case errors.Is(err, parser.ErrExcluded):
			st.Filtered++
			l.log.Debug("skipping filtered line", "file", source, "line", lineNo, "reason", err)
		default:
			st.Malformed++
			l.log.Warn("skipping malformed line", "file", source, "line", lineNo, "err", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", source, err)
	}
	return nil
}
