package main

import (
	"buyer-intent-engine/internal/config"
	"buyer-intent-engine/internal/engine"
	"buyer-intent-engine/internal/jobs"
	"buyer-intent-engine/internal/logger"
	"buyer-intent-engine/internal/version"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "jobs",
		Short:         "Run buyer intent engine batch jobs once",
		Version:       version.Summary(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "./configs", "directory containing config.yaml")

	root.AddCommand(
		jobCommand(jobs.JobDecay, "Apply time decay to buyers inactive for 14 days or more"),
		jobCommand(jobs.JobSnapshots, "Snapshot every buyer's intent score"),
		jobCommand(jobs.JobScarcity, "Record zone scarcity transitions"),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func jobCommand(name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJob(name)
		},
	}
}

func runJob(name string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logg := logger.New(cfg.App.LogLevel, cfg.App.Environment)
	defer logg.Sync()

	eng, err := engine.New(cfg, logg)
	if err != nil {
		return err
	}
	defer eng.Close()

	scheduler := jobs.NewScheduler(cfg.Scheduler, eng.Scoring, eng.Market, logg)
	rows, err := scheduler.RunNow(name)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %d rows\n", name, rows)
	return nil
}
