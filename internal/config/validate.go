package config

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/atikulmunna/modusage/internal/aggregator"
	"github.com/atikulmunna/modusage/internal/chart"
	"github.com/atikulmunna/modusage/internal/parser"
	"github.com/atikulmunna/modusage/internal/table"
)

// Error reports an invalid or contradictory configuration. It is always
// raised before any log is read.
type Error struct {
	Msg string
}

func (e *Error) Error() string { return e.Msg }

func errorf(format string, args ...any) error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}

// Mode is the single reporting mode a run performs.
type Mode int

const (
	Raw Mode = iota
	Persist
	UniqueModules
	UniqueUsers
	Find
	Classify
)

func (m Mode) String() string {
	switch m {
	case Raw:
		return "raw"
	case Persist:
		return "persist"
	case UniqueModules:
		return "unique-modules"
	case UniqueUsers:
		return "unique-users"
	case Find:
		return "find"
	case Classify:
		return "classify"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// counts reports whether the mode produces a frequency report.
func (m Mode) counts() bool {
	return m == UniqueModules || m == UniqueUsers || m == Classify
}

// Source says where the table comes from.
type Source int

const (
	FromLogs Source = iota
	FromCSV
	FromParquet
)

// Plan is a validated Config, resolved into typed settings.
type Plan struct {
	Mode Mode

	Source     Source
	SourcePath string // log directory or saved table file
	Pattern    string
	Parser     parser.Options

	Formats  []table.Format
	SaveDir  string
	SaveName string

	Find   string
	Module aggregator.ModuleOptions

	Plot       bool
	Chart      chart.Kind
	Top        int
	IncludeAll bool
	ChartOut   string
	Serve      string

	JSON bool
}

// Validate checks c and resolves it into a Plan. Every failure is an *Error.
func Validate(c Config) (Plan, error) {
	p := Plan{
		Pattern:  c.Pattern,
		SaveDir:  c.SaveDir,
		SaveName: c.SaveName,
		Find:     c.Find,
		Plot:     c.Plot,
		Top:      c.Top,
		ChartOut: c.ChartOut,
		Serve:    c.Serve,
	}

	mode, err := resolveMode(c)
	if err != nil {
		return Plan{}, err
	}
	p.Mode = mode

	if err := p.resolveSource(c); err != nil {
		return Plan{}, err
	}
	if err := p.resolveParser(c); err != nil {
		return Plan{}, err
	}
	if err := p.resolvePersist(c); err != nil {
		return Plan{}, err
	}
	if err := p.resolveModule(c); err != nil {
		return Plan{}, err
	}
	if err := p.resolveChart(c); err != nil {
		return Plan{}, err
	}

	switch strings.ToLower(c.Output) {
	case "", "text":
	case "json":
		p.JSON = true
	default:
		return Plan{}, errorf("--output must be text or json, got %q", c.Output)
	}
	return p, nil
}

// resolveMode rejects any combination of more than one mode flag.
func resolveMode(c Config) (Mode, error) {
	var set []string
	mode := Raw
	pick := func(on bool, flag string, m Mode) {
		if on {
			set = append(set, flag)
			mode = m
		}
	}
	pick(c.Save, "--save", Persist)
	pick(c.UniqueModules, "--unique_modules", UniqueModules)
	pick(c.UniqueUsers, "--unique_users", UniqueUsers)
	pick(c.Find != "", "--find", Find)
	pick(c.Classify, "--classify", Classify)

	if len(set) > 1 {
		return Raw, errorf("%s are mutually exclusive; choose one", strings.Join(set, ", "))
	}
	return mode, nil
}

func (p *Plan) resolveSource(c Config) error {
	switch {
	case c.CSVPath != "" && c.ParquetPath != "":
		return errorf("--csv_path and --parquet_path are mutually exclusive")
	case c.CSVPath != "":
		p.Source, p.SourcePath = FromCSV, c.CSVPath
	case c.ParquetPath != "":
		p.Source, p.SourcePath = FromParquet, c.ParquetPath
	case c.LogDir != "":
		dir, err := requireDirectory(c.LogDir)
		if err != nil {
			return err
		}
		p.Source, p.SourcePath = FromLogs, dir
		return nil
	default:
		return errorf("no input: give a log directory, --csv_path or --parquet_path")
	}

	if p.Mode == Persist {
		return errorf("--save needs a log directory, not a saved table")
	}
	return requireFile(p.SourcePath)
}

func requireDirectory(dir string) (string, error) {
	dir = filepath.Clean(dir)
	info, err := os.DirFS(dir).(fs.StatFS).Stat(".")
	if err != nil || !info.IsDir() {
		return "", errorf("bad log directory %s", dir)
	}
	return dir, nil
}

func requireFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errorf("cannot read %s: %v", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		return errorf("%s is not a regular file", path)
	}
	return nil
}

func (p *Plan) resolveParser(c Config) error {
	loc := time.Local
	if c.Timezone != "" && c.Timezone != "Local" {
		l, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return errorf("unknown timezone %q", c.Timezone)
		}
		loc = l
	}
	p.Parser = parser.Options{
		Location:        loc,
		SkipAmbiguous:   c.SkipAmbiguous,
		ExcludeMarkers:  c.ExcludeMarkers,
		AllowedPrefixes: c.AllowedPrefixes,
	}
	return nil
}

func (p *Plan) resolvePersist(c Config) error {
	if p.Mode != Persist {
		if len(c.FileTypes) > 0 {
			return errorf("--filetype requires --save")
		}
		return nil
	}

	types := c.FileTypes
	if len(types) == 0 {
		types = []string{string(table.CSV)}
	}
	seen := make(map[table.Format]bool)
	for _, t := range types {
		f, err := table.ParseFormat(t)
		if err != nil {
			return &Error{Msg: err.Error()}
		}
		if !seen[f] {
			seen[f] = true
			p.Formats = append(p.Formats, f)
		}
	}
	if p.SaveDir == "" {
		p.SaveDir = "."
	}
	if p.SaveName == "" {
		p.SaveName = "module_usage"
	}
	if _, err := requireDirectory(p.SaveDir); err != nil {
		return errorf("bad --save_dir %s", p.SaveDir)
	}
	return nil
}

func (p *Plan) resolveModule(c Config) error {
	// hash_algo always carries a value, so it is checked even without --hash.
	algo := c.HashAlgo
	if algo == "" {
		algo = string(aggregator.SHA256)
	}
	hashAlgo, err := aggregator.ParseHashAlgo(algo)
	if err != nil {
		return &Error{Msg: err.Error()}
	}

	moduleMode := p.Mode == UniqueModules || p.Mode == Find
	if !moduleMode {
		for _, f := range []struct {
			on   bool
			flag string
		}{
			{c.Hash, "--hash"},
			{c.Spack, "--spack"},
			{c.SpackRoot != "", "--spack_root"},
		} {
			if f.on {
				return errorf("%s requires --unique_modules or --find", f.flag)
			}
		}
		return nil
	}

	if c.Hash {
		p.Module.ComputeHash = true
		p.Module.HashAlgo = hashAlgo
	}

	if c.Spack {
		p.Module.Instances = c.SpackInstances
		if len(p.Module.Instances) == 0 {
			p.Module.Instances = []string{"cpu", "gpu"}
		}
	}

	if c.SpackRoot != "" {
		roots := c.SpackRoots
		if len(roots) == 0 {
			roots = DefaultSpackRoots
		}
		prefix, ok := roots[strings.ToLower(c.SpackRoot)]
		if !ok {
			return errorf("unknown --spack_root %q (known: %s)", c.SpackRoot, strings.Join(rootNames(roots), ", "))
		}
		p.Module.RootPrefix = prefix
	}
	return nil
}

func rootNames(roots map[string]string) []string {
	names := make([]string, 0, len(roots))
	for name := range roots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p *Plan) resolveChart(c Config) error {
	if !c.Plot {
		switch {
		case c.IncludeAll:
			return errorf("--include_all requires --plot")
		case c.Serve != "":
			return errorf("--serve requires --plot")
		}
		return nil
	}
	if !p.Mode.counts() {
		return errorf("--plot requires --unique_modules, --unique_users or --classify")
	}
	if c.Top < 1 {
		return errorf("--top must be at least 1, got %d", c.Top)
	}

	kind, err := chart.ParseKind(c.Chart)
	if err != nil {
		return &Error{Msg: err.Error()}
	}
	p.Chart = kind
	p.IncludeAll = c.IncludeAll
	if p.ChartOut == "" {
		p.ChartOut = "modusage-chart.html"
	}
	return nil
}
