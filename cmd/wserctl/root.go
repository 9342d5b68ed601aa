package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	service "github.com/okian/wser/internal/app"
	"github.com/okian/wser/internal/config"
	"github.com/okian/wser/pkg/logger"
)

// globals holds the persistent flags shared by every subcommand.
type globals struct {
	cfgFile string
	csv     string
	driver  string
	dsn     string
	asJSON  bool
	verbose bool

	// loaded is set when open ingested a results file.
	loaded *report
}

// NewRootCmd builds the wserctl command tree.
func NewRootCmd() *cobra.Command {
	g := &globals{}
	cmd := &cobra.Command{
		Use:           "wserctl",
		Short:         "Pacing and field statistics for Western States results",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	pf := cmd.PersistentFlags()
	pf.StringVar(&g.cfgFile, "config", "", "YAML config file (overrides $WSER_CONFIG)")
	pf.StringVar(&g.csv, "csv", "", "results CSV to load before running (overrides results_csv)")
	pf.StringVar(&g.driver, "store", "", "store driver: memory, sqlite or postgres")
	pf.StringVar(&g.dsn, "dsn", "", "store DSN")
	pf.BoolVar(&g.asJSON, "json", false, "print JSON instead of tables")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "log at the configured level instead of warn")

	cmd.AddCommand(
		newIngestCmd(g),
		newGenerateCmd(g),
		newSearchCmd(g),
		newProfileCmd(g),
		newCompareCmd(g),
		newFieldCmd(g),
		newSummaryCmd(g),
		newBinsCmd(g),
	)
	return cmd
}

// load reads configuration and applies flag overrides.
func (g *globals) load(ctx context.Context) (*config.Config, error) {
	if g.cfgFile != "" {
		if err := os.Setenv(config.EnvConfigFile, g.cfgFile); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	if g.csv != "" {
		cfg.ResultsCSV = g.csv
	}
	if g.driver != "" {
		cfg.StoreDriver = g.driver
	}
	if g.dsn != "" {
		cfg.StoreDSN = g.dsn
	}
	return cfg, cfg.Validate()
}

// open starts a service for one command. When a results CSV is configured it
// replaces the store contents first.
func (g *globals) open(cmd *cobra.Command) (*service.Service, error) {
	ctx := cmd.Context()
	cfg, err := g.load(ctx)
	if err != nil {
		return nil, err
	}

	if err := logger.InitWithOptions(logger.Options{Writer: cmd.ErrOrStderr(), Format: logger.Format(cfg.LogFormat)}); err != nil {
		return nil, err
	}
	level := "warn"
	if g.verbose {
		level = cfg.LogLevel
	}
	if err := logger.SetLevelString(level); err != nil {
		return nil, err
	}

	opts, err := service.ConfigOptions(cfg, logger.Named("wserctl"))
	if err != nil {
		return nil, err
	}
	svc := service.New(opts...)
	if err := svc.Start(ctx); err != nil {
		return nil, err
	}
	if cfg.ResultsCSV == "" {
		return svc, nil
	}
	rep, err := ingestFile(ctx, svc, cfg.ResultsCSV)
	if err != nil {
		svc.Stop()
		return nil, err
	}
	g.loaded = &rep
	return svc, nil
}

func ingestFile(ctx context.Context, svc *service.Service, path string) (report, error) {
	f, err := os.Open(path)
	if err != nil {
		return report{}, fmt.Errorf("open results: %w", err)
	}
	defer func() { _ = f.Close() }()
	rep, err := svc.Ingest(ctx, f)
	if err != nil {
		return report{}, fmt.Errorf("ingest %s: %w", path, err)
	}
	return report{File: path, Report: rep}, nil
}
