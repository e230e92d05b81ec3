package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/atikulmunna/modusage/internal/config"
)

var cfgFile string

// rootCmd parses a directory of module-usage logs and runs one report.
var rootCmd = &cobra.Command{
	Use:   "modusage [log-dir]",
	Short: "Module-usage log reporter for HPC clusters",
	Long: `modusage parses the module-usage logs written when cluster users load
software modules, builds a table of every load, and runs one report over it:
the raw table, a saved CSV/Parquet copy, unique modules, unique users, a
keyword lookup, or a CPU/GPU split.

Examples:
  modusage /var/log/moduleUsage
  modusage /var/log/moduleUsage --unique_modules --spack --plot --top 10
  modusage /var/log/moduleUsage --save --filetype csv,parquet
  modusage --parquet_path module_usage.parquet --find gcc/11.2.0`,
	Args:          cobra.MaximumNArgs(1),
	RunE:          runReport,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "modusage:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	f := rootCmd.Flags()
	f.StringVarP(&cfgFile, "config", "c", "", "config file (default: $HOME/.modusage.yaml)")

	// Input.
	f.String("pattern", "*", "glob of log files under the log directory (supports **)")
	f.String("csv_path", "", "load a previously saved CSV table instead of parsing logs")
	f.String("parquet_path", "", "load a previously saved Parquet table instead of parsing logs")
	f.String("timezone", "Local", "IANA time zone for the Date and Time columns")
	f.StringSlice("exclude_markers", nil, "skip lines containing this substring (repeatable)")
	f.StringSlice("allowed_prefixes", nil, "keep only lines whose path starts with this prefix (repeatable)")

	// Modes. At most one may be given; none prints the raw table.
	f.Bool("save", false, "save the parsed table")
	f.Bool("unique_modules", false, "count loads per module")
	f.Bool("unique_users", false, "count loads per user")
	f.String("find", "", "report how often a module name or key was loaded")
	f.Bool("classify", false, "count loads per CPU/GPU install path")

	// Persistence.
	f.StringSlice("filetype", nil, "formats for --save: csv, parquet (default csv)")
	f.String("save_dir", ".", "directory for --save output")

	// Module identity.
	f.Bool("hash", false, "identify modules by a digest of their path instead of the embedded hash")
	f.String("hash_algo", "sha256", "digest for --hash: md5, sha256, blake2b")
	f.Bool("spack", false, "keep only modules from cpu or gpu Spack instances")
	f.String("spack_root", "", "keep only modules installed under this named Spack root")

	// Charts.
	f.Bool("plot", false, "chart the report")
	f.String("chart", "bar", "chart type: bar, pie")
	f.Int("top", 5, "entries to chart")
	f.Bool("include_all", false, "fold entries past --top into an Other bucket")
	f.String("chart_out", "modusage-chart.html", "file the chart is written to")
	f.String("serve", "", "serve the chart on this address (e.g. :8080) instead of writing it")

	f.StringP("output", "o", "text", "output format: text, json")
	f.String("log_level", "info", "diagnostic level: debug, info, warn, error")

	config.SetDefaults(viper.GetViper())
	cobra.CheckErr(viper.BindPFlags(f))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigName(".modusage")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("modusage")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()
}
