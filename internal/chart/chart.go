package chart

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/atikulmunna/modusage/internal/aggregator"
)

// Kind is the chart shape.
type Kind string

const (
	Bar Kind = "bar"
	Pie Kind = "pie"
)

// ParseKind accepts bar or pie; empty means bar.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case "", Bar:
		return Bar, nil
	case Pie:
		return Pie, nil
	default:
		return "", fmt.Errorf("unknown chart %q (want bar or pie)", s)
	}
}

// Options controls what part of a report is drawn.
type Options struct {
	Kind       Kind
	Top        int
	IncludeAll bool // fold entries past Top into an Other slice
}

// Render writes a self-contained HTML page charting the report.
func Render(w io.Writer, r aggregator.Report, o Options) error {
	entries := r.Top(o.Top, o.IncludeAll)
	shown := len(r.Entries)
	if o.Top > 0 {
		shown = min(o.Top, shown)
	}

	title := opts.Title{
		Title:    fmt.Sprintf("Top %d by %s", shown, strings.ToLower(r.Kind)),
		Subtitle: fmt.Sprintf("%d records, %d distinct", r.Total, len(r.Entries)),
	}
	page := opts.Initialization{PageTitle: "modusage: " + r.Kind}

	switch o.Kind {
	case Pie:
		pie := charts.NewPie()
		pie.SetGlobalOptions(
			charts.WithInitializationOpts(page),
			charts.WithTitleOpts(title),
		)
		data := make([]opts.PieData, 0, len(entries))
		for _, e := range entries {
			data = append(data, opts.PieData{Name: e.Key, Value: e.Count})
		}
		pie.AddSeries("Count", data)
		return pie.Render(w)

	default:
		bar := charts.NewBar()
		bar.SetGlobalOptions(
			charts.WithInitializationOpts(page),
			charts.WithTitleOpts(title),
		)
		keys := make([]string, 0, len(entries))
		data := make([]opts.BarData, 0, len(entries))
		for _, e := range entries {
			keys = append(keys, e.Key)
			data = append(data, opts.BarData{Name: e.Key, Value: e.Count})
		}
		bar.SetXAxis(keys).AddSeries("Count", data)
		return bar.Render(w)
	}
}
