package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"fingerprinter/internal/export"
	"fingerprinter/internal/filesystem"
	"fingerprinter/internal/hashers"
	"fingerprinter/internal/indexer"
	"fingerprinter/internal/logging"
	"fingerprinter/internal/media"
	"fingerprinter/internal/memory"
	"fingerprinter/internal/metrics"
	"fingerprinter/internal/startup"
)

func (c *cli) newRunCmd() *cobra.Command {
	var reportPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fingerprint the files directly inside the given directories",
		Example: `  fingerprinter run -d /srv/photos -H sha256 -H dhash
  fingerprinter run -d a -d b -H md5,phash --buffer-policy adaptive --report run.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd.Context(), reportPath)
		},
	}

	flags := cmd.Flags()
	flags.StringSliceP("directory", "d", nil, "directory to fingerprint (repeatable, not recursive)")
	flags.StringSliceP("hash", "H", nil, "algorithm to compute (repeatable, see `algorithms`)")
	flags.Bool("reset", false, "drop and recreate the schema before running")
	flags.Int("workers", 0, "files processed concurrently (0 = default, <0 = derive from CPUs)")
	flags.String("buffer-policy", indexer.PolicyStatic, "flush sizing policy: static or adaptive")
	flags.Int("buffer-size", indexer.DefaultBufferSize, "results per flush for the static policy")
	flags.Int("buffer-max", indexer.DefaultBufferMax, "largest batch the adaptive policy may choose")
	flags.Bool("skip-hidden", false, "ignore entries whose name starts with a dot")
	flags.String("metrics-file", "", "write Prometheus metrics to this textfile after the run")
	flags.StringVar(&reportPath, "report", "", "write the run summary as YAML to this file (- for stdout)")
	c.bind(flags, map[string]string{
		startup.KeyDirectory:    "directory",
		startup.KeyHash:         "hash",
		startup.KeyReset:        "reset",
		startup.KeyWorkers:      "workers",
		startup.KeyBufferPolicy: "buffer-policy",
		startup.KeyBufferSize:   "buffer-size",
		startup.KeyBufferMax:    "buffer-max",
		startup.KeySkipHidden:   "skip-hidden",
		startup.KeyMetricsFile:  "metrics-file",
	})
	return cmd
}

func (c *cli) run(ctx context.Context, reportPath string) error {
	startup.PrintBanner()
	startup.LogMemoryConfig(memory.ConfigureFromEnv())

	config, err := c.loadConfig()
	if err != nil {
		return err
	}
	if err := config.ValidateRun(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := media.InitVips(); err != nil {
		logging.Warn("libvips unavailable, heavy image formats will be unsupported: %v", err)
	}
	filesystem.SetObserver(metrics.NewFilesystemObserver())
	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(config.Volumes()))
	metrics.InitializeMetrics(hashers.Names())
	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)

	db, err := openDatabase(ctx, config.DatabasePath)
	if err != nil {
		return err
	}
	defer closeDatabase(db)

	if config.Reset {
		if err := db.Reset(ctx); err != nil {
			return fmt.Errorf("failed to reset database: %w", err)
		}
		startup.LogDatabaseReset(config.DatabasePath)
	}

	monitor := memory.NewMonitor(memory.DefaultConfig())
	monitor.Start()
	defer monitor.Stop()

	runConfig := config.IndexerConfig()
	runConfig.Memory = monitor
	startup.LogRunStarted(runConfig)

	summary, runErr := indexer.New(db, runConfig).Run(ctx)
	if summary != nil {
		startup.LogRunSummary(*summary)
	}

	if config.MetricsFile != "" {
		metrics.NewCollector(db, config.DatabasePath, time.Minute).Collect()
		if err := metrics.WriteTextfile(config.MetricsFile); err != nil {
			logging.Warn("%v", err)
		}
	}

	if reportPath != "" && summary != nil {
		report := export.Report{
			Version:    startup.Version,
			Database:   config.DatabasePath,
			Roots:      runConfig.Roots,
			Algorithms: algorithmNames(runConfig.Algorithms),
			FinishedAt: time.Now().UTC(),
			Summary:    *summary,
		}
		if runErr != nil {
			report.Error = runErr.Error()
		}
		if err := export.WriteReport(reportPath, report); err != nil {
			logging.Warn("Failed to write report: %v", err)
		}
	}

	switch {
	case runErr == nil:
		return nil
	case errors.Is(runErr, context.Canceled):
		return errors.New("run interrupted, collected results were saved")
	default:
		return runErr
	}
}

func algorithmNames(algs []*hashers.Algorithm) []string {
	names := make([]string, 0, len(algs))
	for _, a := range algs {
		names = append(names, a.Name)
	}
	return names
}
