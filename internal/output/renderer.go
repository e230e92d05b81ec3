package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/atikulmunna/modusage/internal/aggregator"
	"github.com/atikulmunna/modusage/internal/model"
)

const (
	FoundFormat = "This module appears %d times."
	NotFoundMsg = "No module exactly matches the inputted keyword."
)

// Renderer writes tables and reports to an output stream.
type Renderer interface {
	Table(tbl model.Table) error
	Report(r aggregator.Report) error
	Find(keyword string, count int, err error) error
	Saved(paths []string) error
}

// ---------------------------------------------------------------------------
// Text Renderer (terminal tables)
// ---------------------------------------------------------------------------

var (
	styleHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).Padding(0, 1)
	styleCell   = lipgloss.NewStyle().Padding(0, 1)
	styleCount  = lipgloss.NewStyle().Padding(0, 1).Align(lipgloss.Right)
	styleBorder = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	styleTop    = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true)
	styleMiss   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// TextRenderer prints bordered tables with lipgloss.
type TextRenderer struct {
	w io.Writer
}

// NewTextRenderer returns a Renderer that writes to w, or stdout when w
// is nil.
func NewTextRenderer(w io.Writer) *TextRenderer {
	if w == nil {
		w = os.Stdout
	}
	return &TextRenderer{w: w}
}

func (r *TextRenderer) Table(tbl model.Table) error {
	rows := make([][]string, 0, len(tbl))
	for i, rec := range tbl {
		rows = append(rows, append([]string{strconv.Itoa(i)}, rec.Fields()...))
	}
	headers := append([]string{""}, model.Headers...)

	if _, err := fmt.Fprintln(r.w, grid(headers, rows, nil).Render()); err != nil {
		return err
	}
	_, err := fmt.Fprintf(r.w, "[%d rows x %d columns]\n", len(tbl), len(model.Headers))
	return err
}

func (r *TextRenderer) Report(rep aggregator.Report) error {
	rows := make([][]string, 0, len(rep.Entries))
	for _, e := range rep.Entries {
		rows = append(rows, []string{e.Key, strconv.Itoa(e.Count)})
	}
	countCol := map[int]bool{1: true}

	if _, err := fmt.Fprintln(r.w, grid([]string{rep.Kind, "Count"}, rows, countCol).Render()); err != nil {
		return err
	}

	top, ok := rep.MostFrequent()
	if !ok {
		_, err := fmt.Fprintln(r.w, "No records to count.")
		return err
	}
	kind := strings.ToLower(rep.Kind)
	if _, err := fmt.Fprintf(r.w, "There are %d unique %s.\n", len(rep.Entries), plural(kind)); err != nil {
		return err
	}
	_, err := fmt.Fprintf(r.w, "Most frequent %s: %s (%d of %d)\n",
		kind, styleTop.Render(top.Key), top.Count, rep.Total)
	return err
}

func (r *TextRenderer) Find(keyword string, count int, err error) error {
	if errors.Is(err, aggregator.ErrNotFound) {
		_, werr := fmt.Fprintln(r.w, styleMiss.Render(NotFoundMsg))
		return werr
	}
	if err != nil {
		return err
	}
	_, werr := fmt.Fprintf(r.w, FoundFormat+"\n", count)
	return werr
}

func (r *TextRenderer) Saved(paths []string) error {
	for _, p := range paths {
		if _, err := fmt.Fprintf(r.w, "Saved %s\n", p); err != nil {
			return err
		}
	}
	return nil
}

func plural(noun string) string {
	if strings.HasSuffix(noun, "s") {
		return noun + "es"
	}
	return noun + "s"
}

// grid builds a bordered table; columns in right are right-aligned.
func grid(headers []string, rows [][]string, right map[int]bool) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(styleBorder).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return styleHeader
			case right[col]:
				return styleCount
			default:
				return styleCell
			}
		})
}

// ---------------------------------------------------------------------------
// JSON Renderer (structured output for piping)
// ---------------------------------------------------------------------------

// JSONRenderer prints one JSON document per call.
type JSONRenderer struct {
	enc *json.Encoder
}

// NewJSONRenderer returns a Renderer that writes JSON to w, or stdout when
// w is nil.
func NewJSONRenderer(w io.Writer) *JSONRenderer {
	if w == nil {
		w = os.Stdout
	}
	return &JSONRenderer{enc: json.NewEncoder(w)}
}

func (r *JSONRenderer) Table(tbl model.Table) error {
	if tbl == nil {
		tbl = model.Table{}
	}
	return r.enc.Encode(tbl)
}

func (r *JSONRenderer) Report(rep aggregator.Report) error {
	out := struct {
		aggregator.Report
		MostFrequent *aggregator.Entry `json:"most_frequent,omitempty"`
	}{Report: rep}
	if top, ok := rep.MostFrequent(); ok {
		out.MostFrequent = &top
	}
	return r.enc.Encode(out)
}

func (r *JSONRenderer) Find(keyword string, count int, err error) error {
	if err != nil && !errors.Is(err, aggregator.ErrNotFound) {
		return err
	}
	return r.enc.Encode(struct {
		Keyword string `json:"keyword"`
		Found   bool   `json:"found"`
		Count   int    `json:"count"`
	}{keyword, err == nil, count})
}

func (r *JSONRenderer) Saved(paths []string) error {
	return r.enc.Encode(struct {
		Saved []string `json:"saved"`
	}{paths})
}

// New returns the JSON renderer when asJSON is set, else the text one,
// both writing to w.
func New(w io.Writer, asJSON bool) Renderer {
	if asJSON {
		return NewJSONRenderer(w)
	}
	return NewTextRenderer(w)
}
