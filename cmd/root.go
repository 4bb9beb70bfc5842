package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/config"
	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/orchestrator"
)

var (
	configFile string
	logLevel   string
)

// reconcileInterval is how often the daemon re-runs the pipeline.
const reconcileInterval = time.Minute

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "fpp-ics-sync",
	Short: "Synchronizes a Falcon Player schedule.json against an ICS calendar feed",
	Long: `fpp-ics-sync reconciles a Falcon Player host's schedule.json against a
remote ICS calendar feed: it fetches and expands the calendar, resolves
each event to a playlist/sequence/command target, diffs the result against
the host's existing schedule identity-stably, and applies the change set
atomically with manifest-backed single-step undo.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		switch logLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)
	},
	RunE: runDaemon,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(); it only needs to happen
// once to rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(planCmd, applyCmd, rollbackCmd, exportCmd, envCmd)
}

// loadOrchestrator reads the config file at configFile and wires up an
// Orchestrator over it, the shared setup path for every subcommand.
func loadOrchestrator() (*orchestrator.Orchestrator, config.Config, error) {
	cfg, err := config.ReadConfig(configFile)
	if err != nil {
		return nil, config.Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	return orchestrator.New(cfg, nil), cfg, nil
}

// runDaemon is the bare-command behavior: reconcile on a fixed interval,
// picking up config-file edits on the fly.
func runDaemon(cmd *cobra.Command, args []string) error {
	o, cfg, err := loadOrchestrator()
	if err != nil {
		return err
	}

	watcher := config.NewWatcher(configFile)
	watcher.OnConfigChange(o.UpdateConfig)

	slog.Info("starting fpp-ics-sync", "calendar", cfg.Calendar.ICSURL, "dry_run", cfg.Runtime.DryRun)

	ctx := context.Background()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return watcher.Start(ctx)
	})

	g.Go(func() error {
		ticker := time.NewTicker(reconcileInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				res := o.Apply()
				recordSyncStatus(res)
				if res.Err != nil {
					slog.Error("reconciliation failed", "error", res.Err)
					continue
				}
				slog.Info("reconciliation complete",
					"dry_run", res.DryRun, "no_op", res.NoOp,
					"creates", res.Creates, "updates", res.Updates, "deletes", res.Deletes,
				)
			}
		}
	})

	return g.Wait()
}

// recordSyncStatus persists the outcome of the latest run back into the
// config file's sync block so a UI can display it without re-running
// anything. Re-reads the file first so concurrent manual edits survive.
func recordSyncStatus(res orchestrator.Result) {
	cfg, err := config.ReadConfig(configFile)
	if err != nil {
		slog.Warn("could not re-read config to record sync status", "error", err)
		return
	}

	cfg.Sync.LastRun = time.Now().UTC().Format(time.RFC3339)
	if res.Err != nil {
		cfg.Sync.LastStatus = "error"
		cfg.Sync.LastError = res.Err.Error()
	} else {
		cfg.Sync.LastStatus = "ok"
		cfg.Sync.LastError = ""
	}
	cfg.Sync.Counts = config.Counts{Creates: res.Creates, Updates: res.Updates, Deletes: res.Deletes}

	if err := config.WriteConfig(configFile, cfg); err != nil {
		slog.Warn("could not record sync status", "error", err)
	}
}
