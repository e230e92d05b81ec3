package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/atikulmunna/modusage/internal/aggregator"
	"github.com/atikulmunna/modusage/internal/chart"
	"github.com/atikulmunna/modusage/internal/config"
	"github.com/atikulmunna/modusage/internal/loader"
	"github.com/atikulmunna/modusage/internal/model"
	"github.com/atikulmunna/modusage/internal/output"
	"github.com/atikulmunna/modusage/internal/parser"
	"github.com/atikulmunna/modusage/internal/server"
	"github.com/atikulmunna/modusage/internal/table"
)

func runReport(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		viper.Set("log_dir", args[0])
	}

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	if err != nil {
		return err
	}
	plan, err := config.Validate(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return run(ctx, plan, cmd.OutOrStdout(), cmd.ErrOrStderr(), logger)
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, &config.Error{Msg: fmt.Sprintf("bad --log_level %q", level)}
		}
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// run builds the table and performs the plan's single mode.
func run(ctx context.Context, plan config.Plan, stdout, stderr io.Writer, logger *slog.Logger) error {
	tbl, err := loadTable(plan, stderr, logger)
	if err != nil {
		return err
	}
	logger.Debug("table ready", "rows", len(tbl), "mode", plan.Mode.String())

	r := output.New(stdout, plan.JSON)

	var rep aggregator.Report
	switch plan.Mode {
	case config.Raw:
		return r.Table(tbl)

	case config.Persist:
		paths, err := table.Save(tbl, plan.SaveDir, plan.SaveName, plan.Formats)
		if err != nil {
			return err
		}
		return r.Saved(paths)

	case config.Find:
		n, err := aggregator.Find(tbl, plan.Find, plan.Module)
		return r.Find(plan.Find, n, err)

	case config.UniqueModules:
		rep = aggregator.UniqueModules(tbl, plan.Module)
	case config.UniqueUsers:
		rep = aggregator.UniqueUsers(tbl)
	case config.Classify:
		rep = aggregator.Classify(tbl)

	default:
		return fmt.Errorf("unhandled mode %s", plan.Mode)
	}

	if err := r.Report(rep); err != nil {
		return err
	}
	if plan.Plot {
		return plot(ctx, plan, rep, stderr, logger)
	}
	return nil
}

func loadTable(plan config.Plan, stderr io.Writer, logger *slog.Logger) (model.Table, error) {
	switch plan.Source {
	case config.FromCSV:
		return table.LoadCSV(plan.SourcePath)
	case config.FromParquet:
		return table.LoadParquet(plan.SourcePath)
	}

	paths, err := loader.Files(plan.SourcePath, plan.Pattern)
	if err != nil {
		return nil, &config.Error{Msg: err.Error()}
	}
	fmt.Fprintf(stderr, "modusage reading %d file(s) from %s\n", len(paths), plan.SourcePath)

	tbl, _, err := loader.New(parser.New(plan.Parser), logger).LoadFiles(paths)
	return tbl, err
}

// plot renders the chart, then either serves it until interrupted or
// writes it to the configured file.
func plot(ctx context.Context, plan config.Plan, rep aggregator.Report, stderr io.Writer, logger *slog.Logger) error {
	var buf bytes.Buffer
	err := chart.Render(&buf, rep, chart.Options{Kind: plan.Chart, Top: plan.Top, IncludeAll: plan.IncludeAll})
	if err != nil {
		return fmt.Errorf("render chart: %w", err)
	}

	if plan.Serve != "" {
		fmt.Fprintf(stderr, "modusage serving chart on %s (Ctrl-C to stop)\n", plan.Serve)
		logger.Info("chart server starting", "addr", plan.Serve)
		return server.New(rep, buf.Bytes(), plan.Serve).Start(ctx)
	}

	if err := os.WriteFile(plan.ChartOut, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write chart: %w", err)
	}
	fmt.Fprintf(stderr, "modusage wrote chart to %s\n", plan.ChartOut)
	return nil
}
