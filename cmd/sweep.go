package cmd

import (
	"bytes"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/pisim/sim"
	"github.com/inference-sim/pisim/sim/report"
	"github.com/inference-sim/pisim/sim/sweep"
)

var (
	sweepMode    string // "strong" or "weak"
	sweepSamples int64  // Total (strong) or per-rank (weak) samples
	sweepSeed    int64  // Seed base
	sweepThreads int    // Workers per rank
	sweepRanks   []int  // Rank counts to visit
	sweepRepeats int    // Runs per rank count
	sweepOutput  string // Sweep CSV path or s3://bucket/key
)

// sweepCmd runs a scaling study over in-process rank counts
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run a strong or weak scaling study",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()

		if !sweep.IsValidMode(sweepMode) {
			logrus.Fatalf("Unknown sweep mode %q; valid: strong, weak", sweepMode)
		}
		dest, err := report.ParseDestination(sweepOutput)
		if err != nil {
			logrus.Fatalf("Invalid --output: %v", err)
		}

		cfg := sweep.Config{
			Mode:    sweep.Mode(sweepMode),
			Samples: sweepSamples,
			Seed:    sim.NewSimulationKey(sweepSeed),
			Threads: sweepThreads,
			Ranks:   sweepRanks,
			Repeats: sweepRepeats,
		}
		ctx := cmd.Context()
		points, err := sweep.Run(ctx, cfg)
		if err != nil {
			logrus.Fatalf("Sweep failed: %v", err)
		}

		records := make([][]string, len(points))
		for i, p := range points {
			records[i] = p.Record()
		}
		var buf bytes.Buffer
		if err := report.WriteCSV(&buf, sweep.Header, records...); err != nil {
			logrus.Fatalf("Could not encode sweep: %v", err)
		}
		store, err := report.OpenStore(ctx, dest, s3Config())
		if err != nil {
			logrus.Fatalf("Could not open %s: %v", dest, err)
		}
		if err := store.Put(ctx, dest.Key, buf.Bytes()); err != nil {
			logrus.Fatalf("Could not write %s: %v", dest, err)
		}

		fmt.Printf("%-6s %-8s %-14s %-12s %-10s %-10s\n", "ranks", "threads", "elapsed_sec", "pi", "speedup", "efficiency")
		for _, p := range points {
			fmt.Printf("%-6d %-8d %-14.6f %-12.8f %-10.3f %-10.3f\n",
				p.Ranks, p.Threads, p.Elapsed.Seconds(), p.PiEstimate, p.Speedup, p.Efficiency)
		}
		logrus.Infof("Sweep written to %s", dest)
	},
}

func init() {
	sweepCmd.Flags().StringVar(&sweepMode, "mode", string(sweep.ModeStrong), "Scaling mode: strong (fixed total) or weak (fixed per rank)")
	sweepCmd.Flags().Int64Var(&sweepSamples, "samples", 10_000_000, "Total samples (strong) or samples per rank (weak)")
	sweepCmd.Flags().Int64Var(&sweepSeed, "seed", 42, "Seed base for the worker random streams")
	sweepCmd.Flags().IntVar(&sweepThreads, "threads", 1, "Worker goroutines per rank (0 = GOMAXPROCS)")
	sweepCmd.Flags().IntSliceVar(&sweepRanks, "ranks", []int{1, 2, 4, 8}, "Comma-separated rank counts")
	sweepCmd.Flags().IntVar(&sweepRepeats, "repeats", 3, "Runs per rank count")
	sweepCmd.Flags().StringVar(&sweepOutput, "output", "results/mc_sweep.csv", "Sweep CSV path or s3://bucket/key")

	rootCmd.AddCommand(sweepCmd)
}
