package main

import (
	"log/slog"
	"os"
	"time"

	"mplads-backend/lib/telemetry"
	"mplads-backend/lib/util/serviceutil"
	"mplads-backend/services/sync"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var forceRun bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one ingestion cycle if the schedule is due.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		config, err := readConfig()
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}

		otel, err := telemetry.SetupFromEnv(ctx, "syncd")
		if err != nil {
			slog.WarnContext(ctx, "telemetry disabled", "err", err)
		} else {
			defer otel.Shutdown(ctx)
			telemetry.InstrumentPerfStats(ctx)
		}

		service, store, cleanup, err := buildService(ctx, config)
		if err != nil {
			serviceutil.Fatal("failed to initialize", err)
		}
		defer cleanup()

		if !forceRun {
			due, err := store.ShouldSync(ctx)
			if err != nil {
				serviceutil.Fatal("failed to check sync schedule", err)
			}
			if !due {
				slog.InfoContext(ctx, "sync not due yet, exiting")
				return
			}
		}

		stats, err := service.RunCycle(ctx)
		if err != nil {
			serviceutil.Fatal("sync cycle failed", err)
		}
		renderCycleStats(stats)
	},
}

func init() {
	runCmd.Flags().BoolVar(&forceRun, "force", false, "run even if the schedule says the sync is not due")
	rootCmd.AddCommand(runCmd)
}

func renderCycleStats(stats sync.CycleStats) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Raw rows", stats.RawRows},
		{"Allocations", stats.Counts.Allocations},
		{"Expenditures", stats.Counts.Expenditures},
		{"Completed works", stats.Counts.CompletedWorks},
		{"Recommended works", stats.Counts.RecommendedWorks},
		{"Images uploaded", stats.Uploaded},
		{"Images skipped", stats.Skipped},
		{"Data quality", stats.Quality},
		{"Duration", stats.FinishedAt.Sub(stats.StartedAt).Round(time.Second)},
	})
	t.SetStyle(table.StyleRounded)
	t.Render()
}
