package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atikulmunna/modusage/internal/aggregator"
	"github.com/atikulmunna/modusage/internal/chart"
	"github.com/atikulmunna/modusage/internal/table"
)

func valid(t *testing.T) Config {
	t.Helper()
	return Config{
		LogDir:     t.TempDir(),
		Timezone:   "UTC",
		Top:        5,
		Chart:      "bar",
		Output:     "text",
		HashAlgo:   "sha256",
		SpackRoots: DefaultSpackRoots,
	}
}

func requireConfigError(t *testing.T, c Config, contains string) {
	t.Helper()
	_, err := Validate(c)
	require.Error(t, err)
	var cfgErr *Error
	require.True(t, errors.As(err, &cfgErr), "want *config.Error, got %T: %v", err, err)
	assert.Contains(t, err.Error(), contains)
}

func TestValidateModes(t *testing.T) {
	tests := []struct {
		name string
		set  func(*Config)
		want Mode
	}{
		{"raw", func(c *Config) {}, Raw},
		{"save", func(c *Config) { c.Save = true }, Persist},
		{"modules", func(c *Config) { c.UniqueModules = true }, UniqueModules},
		{"users", func(c *Config) { c.UniqueUsers = true }, UniqueUsers},
		{"find", func(c *Config) { c.Find = "gcc" }, Find},
		{"classify", func(c *Config) { c.Classify = true }, Classify},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid(t)
			tt.set(&c)
			p, err := Validate(c)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Mode)
			assert.Equal(t, FromLogs, p.Source)
		})
	}
}

func TestValidateConflictingModes(t *testing.T) {
	c := valid(t)
	c.UniqueModules = true
	c.UniqueUsers = true
	requireConfigError(t, c, "--unique_modules, --unique_users are mutually exclusive")

	c = valid(t)
	c.Save = true
	c.Find = "gcc"
	c.Classify = true
	requireConfigError(t, c, "mutually exclusive")
}

func TestValidateFlagScoping(t *testing.T) {
	tests := map[string]struct {
		set  func(*Config)
		want string
	}{
		"hash without module mode":   {func(c *Config) { c.UniqueUsers = true; c.Hash = true }, "--hash requires"},
		"spack without module mode":  {func(c *Config) { c.Spack = true }, "--spack requires"},
		"root without module mode":   {func(c *Config) { c.Classify = true; c.SpackRoot = "expanse-0.17.3-cpu" }, "--spack_root requires"},
		"plot in raw mode":           {func(c *Config) { c.Plot = true }, "--plot requires"},
		"plot with find":             {func(c *Config) { c.Find = "gcc"; c.Plot = true }, "--plot requires"},
		"include_all without plot":   {func(c *Config) { c.UniqueModules = true; c.IncludeAll = true }, "--include_all requires --plot"},
		"serve without plot":         {func(c *Config) { c.UniqueModules = true; c.Serve = ":8080" }, "--serve requires --plot"},
		"filetype without save":      {func(c *Config) { c.FileTypes = []string{"csv"} }, "--filetype requires --save"},
		"bad filetype":               {func(c *Config) { c.Save = true; c.FileTypes = []string{"xlsx"} }, "unknown file type"},
		"bad top":                    {func(c *Config) { c.UniqueModules = true; c.Plot = true; c.Top = 0 }, "--top"},
		"bad chart":                  {func(c *Config) { c.UniqueModules = true; c.Plot = true; c.Chart = "radar" }, "unknown chart"},
		"bad output":                 {func(c *Config) { c.Output = "yaml" }, "--output"},
		"bad hash algo":              {func(c *Config) { c.UniqueModules = true; c.Hash = true; c.HashAlgo = "crc" }, "unknown hash algorithm"},
		"bad hash algo without hash": {func(c *Config) { c.HashAlgo = "crc32" }, "unknown hash algorithm"},
		"unknown spack root":         {func(c *Config) { c.UniqueModules = true; c.SpackRoot = "summit" }, "unknown --spack_root"},
		"bad timezone":               {func(c *Config) { c.Timezone = "Mars/Olympus" }, "unknown timezone"},
		"no input":                   {func(c *Config) { c.LogDir = "" }, "no input"},
		"missing log dir":            {func(c *Config) { c.LogDir = "/does/not/exist" }, "bad log directory"},
		"both table paths":           {func(c *Config) { c.CSVPath = "a.csv"; c.ParquetPath = "a.parquet" }, "mutually exclusive"},
		"unreadable table":           {func(c *Config) { c.CSVPath = "/does/not/exist.csv" }, "cannot read"},
		"missing save dir":           {func(c *Config) { c.Save = true; c.SaveDir = "/does/not/exist" }, "bad --save_dir"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			c := valid(t)
			tt.set(&c)
			requireConfigError(t, c, tt.want)
		})
	}
}

func TestValidateSaveFromTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.csv")
	require.NoError(t, os.WriteFile(path, []byte("username\n"), 0o644))

	c := valid(t)
	c.CSVPath = path
	c.Save = true
	requireConfigError(t, c, "--save needs a log directory")

	c.Save = false
	c.UniqueUsers = true
	p, err := Validate(c)
	require.NoError(t, err)
	assert.Equal(t, FromCSV, p.Source)
	assert.Equal(t, path, p.SourcePath)
}

func TestValidateResolvesSettings(t *testing.T) {
	c := valid(t)
	c.UniqueModules = true
	c.Hash = true
	c.HashAlgo = "blake2b"
	c.Spack = true
	c.SpackRoot = "EXPANSE-0.17.3-GPU"
	c.Plot = true
	c.Chart = "pie"
	c.Top = 3
	c.IncludeAll = true
	c.ExcludeMarkers = []string{"bad"}
	c.SkipAmbiguous = true
	c.Output = "JSON"

	p, err := Validate(c)
	require.NoError(t, err)

	assert.Equal(t, aggregator.ModuleOptions{
		ComputeHash: true,
		HashAlgo:    aggregator.BLAKE2b,
		Instances:   []string{"cpu", "gpu"},
		RootPrefix:  "/cm/shared/apps/spack/0.17.3/gpu/b/",
	}, p.Module)
	assert.Equal(t, chart.Pie, p.Chart)
	assert.Equal(t, 3, p.Top)
	assert.True(t, p.IncludeAll)
	assert.True(t, p.JSON)
	assert.Equal(t, "modusage-chart.html", p.ChartOut)
	assert.Equal(t, time.UTC, p.Parser.Location)
	assert.True(t, p.Parser.SkipAmbiguous)
	assert.Equal(t, []string{"bad"}, p.Parser.ExcludeMarkers)
}

func TestValidatePersistDefaults(t *testing.T) {
	c := valid(t)
	c.Save = true
	c.FileTypes = []string{"parquet", "csv", "PARQUET"}

	p, err := Validate(c)
	require.NoError(t, err)
	assert.Equal(t, []table.Format{table.Parquet, table.CSV}, p.Formats)
	assert.Equal(t, ".", p.SaveDir)
	assert.Equal(t, "module_usage", p.SaveName)

	c.FileTypes = nil
	p, err = Validate(c)
	require.NoError(t, err)
	assert.Equal(t, []table.Format{table.CSV}, p.Formats)
}

func TestLoadFromViper(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, ".modusage.yaml")
	yaml := strings.Join([]string{
		"log_dir: " + dir,
		"timezone: UTC",
		"exclude_markers: [\"module=bad/\"]",
		"spack_roots:",
		"  local: /opt/spack/",
		"unique_users: true",
	}, "\n")
	require.NoError(t, os.WriteFile(cfgPath, []byte(yaml), 0o644))

	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(cfgPath)
	require.NoError(t, v.ReadInConfig())

	c, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, dir, c.LogDir)
	assert.Equal(t, []string{"module=bad/"}, c.ExcludeMarkers)
	assert.True(t, c.SkipAmbiguous, "default applies")
	assert.Equal(t, []string{"cpu", "gpu"}, c.SpackInstances)
	assert.Equal(t, "/opt/spack/", c.SpackRoots["local"])
	assert.True(t, c.UniqueUsers)
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "unique-modules", UniqueModules.String())
	assert.Equal(t, "mode(42)", Mode(42).String())
}
