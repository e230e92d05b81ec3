package config

import (
	"github.com/spf13/viper"
)

// Config is the merged view of flags, environment and the config file.
// Keys match the long flag names.
type Config struct {
	// Table source.
	LogDir      string `mapstructure:"log_dir"`
	Pattern     string `mapstructure:"pattern"`
	CSVPath     string `mapstructure:"csv_path"`
	ParquetPath string `mapstructure:"parquet_path"`

	// Parsing.
	Timezone        string   `mapstructure:"timezone"`
	SkipAmbiguous   bool     `mapstructure:"skip_ambiguous"`
	ExcludeMarkers  []string `mapstructure:"exclude_markers"`
	AllowedPrefixes []string `mapstructure:"allowed_prefixes"`

	// Modes.
	Save          bool   `mapstructure:"save"`
	UniqueModules bool   `mapstructure:"unique_modules"`
	UniqueUsers   bool   `mapstructure:"unique_users"`
	Find          string `mapstructure:"find"`
	Classify      bool   `mapstructure:"classify"`

	// Persistence.
	FileTypes []string `mapstructure:"filetype"`
	SaveDir   string   `mapstructure:"save_dir"`
	SaveName  string   `mapstructure:"save_name"`

	// Module identity and filters.
	Hash           bool              `mapstructure:"hash"`
	HashAlgo       string            `mapstructure:"hash_algo"`
	Spack          bool              `mapstructure:"spack"`
	SpackRoot      string            `mapstructure:"spack_root"`
	SpackRoots     map[string]string `mapstructure:"spack_roots"`
	SpackInstances []string          `mapstructure:"spack_instances"`

	// Charts.
	Plot       bool   `mapstructure:"plot"`
	Chart      string `mapstructure:"chart"`
	Top        int    `mapstructure:"top"`
	IncludeAll bool   `mapstructure:"include_all"`
	ChartOut   string `mapstructure:"chart_out"`
	Serve      string `mapstructure:"serve"`

	Output   string `mapstructure:"output"`
	LogLevel string `mapstructure:"log_level"`
}

// DefaultSpackRoots are the known Spack deployments on Expanse.
var DefaultSpackRoots = map[string]string{
	"expanse-0.17.3-cpu": "/cm/shared/apps/spack/0.17.3/cpu/b/",
	"expanse-0.17.3-gpu": "/cm/shared/apps/spack/0.17.3/gpu/b/",
	"expanse-0.17.2-cpu": "/cm/shared/apps/spack/0.17.2/cpu/",
}

// SetDefaults registers the defaults for keys that have no flag.
// Flag-backed keys take their defaults from the flag definitions.
func SetDefaults(v *viper.Viper) {
	roots := make(map[string]any, len(DefaultSpackRoots))
	for k, p := range DefaultSpackRoots {
		roots[k] = p
	}
	v.SetDefault("log_dir", "")
	v.SetDefault("spack_roots", roots)
	v.SetDefault("spack_instances", []string{"cpu", "gpu"})
	v.SetDefault("skip_ambiguous", true)
	v.SetDefault("save_name", "module_usage")
	v.SetDefault("chart_out", "modusage-chart.html")
}

// Load decodes v into a Config.
func Load(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, &Error{Msg: "decode configuration: " + err.Error()}
	}
	return c, nil
}
