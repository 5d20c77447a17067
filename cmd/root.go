package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/pisim/sim"
	"github.com/inference-sim/pisim/sim/comm"
	"github.com/inference-sim/pisim/sim/comm/grpcx"
	"github.com/inference-sim/pisim/sim/report"
)

const (
	transportLocal = "local"
	transportGRPC  = "grpc"
)

var (
	// CLI flags for the run
	totalSamples int64  // Samples across all ranks
	seed         int64  // Seed base for every worker stream
	threads      int    // Workers per rank (0 = GOMAXPROCS)
	ranks        int    // In-process ranks (local transport)
	logLevel     string // Log verbosity level
	configPath   string // Optional YAML run file

	// Distributed runtime
	transport      string        // "local" or "grpc"
	worldSize      int           // Ranks in the gRPC group
	rank           int           // This process's rank (gRPC)
	coordinator    string        // Rank 0's listen/dial address
	connectTimeout time.Duration // How long remote ranks wait for rank 0

	// Result persistence
	outputPath  string // Local path or s3://bucket/key
	ledgerPath  string // SQLite ledger (optional)
	s3Region    string // AWS region for s3:// outputs
	s3Endpoint  string // Custom S3 endpoint (MinIO, LocalStack)
	s3PathStyle bool   // Path-style S3 addressing
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "pisim",
	Short: "Distributed Monte Carlo estimator for pi",
}

// runCmd estimates pi using parameters from CLI flags and the optional run file
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Estimate pi by sampling the unit square",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()

		if configPath != "" {
			file, err := LoadRunFile(configPath)
			if err != nil {
				logrus.Fatalf("Invalid run file: %v", err)
			}
			file.applyTo(cmd)
		}

		// Rejected before any collective starts. Every rank sees the same
		// flags, so every rank exits here the same way.
		if totalSamples <= 0 {
			logrus.Fatalf("%v", sim.ConfigError(sim.CodeInvalidSamples, "--samples must be > 0, got %d", totalSamples))
		}
		if transport != transportLocal && transport != transportGRPC {
			logrus.Fatalf("Unknown transport %q; valid: %s, %s", transport, transportLocal, transportGRPC)
		}
		dest, err := report.ParseDestination(outputPath)
		if err != nil {
			logrus.Fatalf("Invalid --output: %v", err)
		}

		cfg := sim.RunConfig{
			TotalSamples: totalSamples,
			Seed:         sim.NewSimulationKey(seed),
			Ranks:        ranks,
			Threads:      threads,
		}
		if transport == transportGRPC {
			cfg.Ranks, cfg.Rank = worldSize, rank
		}
		logrus.Infof("Starting run: samples=%d seed=%d ranks=%d rank=%d threads=%d transport=%s",
			cfg.TotalSamples, seed, cfg.Ranks, cfg.Rank, cfg.LocalThreads(), transport)

		ctx := cmd.Context()
		var res *sim.Result
		if transport == transportGRPC {
			res, err = runDistributed(ctx, cfg)
		} else {
			res, err = comm.RunInProcess(ctx, cfg)
		}
		if err != nil {
			logrus.Fatalf("Run failed on rank %d: %v", cfg.Rank, err)
		}
		if !res.Root {
			logrus.Info("Rank done.")
			return
		}

		if err := persist(ctx, res, dest); err != nil {
			logrus.Fatalf("Could not persist result: %v", err)
		}
		fmt.Printf("Run completed: Pi = %.10f, Time = %.6f s\n", res.PiEstimate, res.Elapsed().Seconds())
	},
}

// runDistributed takes part in a gRPC group: rank 0 hosts the coordinator,
// every other rank dials it.
func runDistributed(ctx context.Context, cfg sim.RunConfig) (*sim.Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var c sim.Communicator
	if cfg.Rank == sim.RootRank {
		coord, err := grpcx.Listen(coordinator, cfg.Ranks)
		if err != nil {
			return nil, err
		}
		c = coord
	} else {
		dialCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		client, err := grpcx.Dial(dialCtx, coordinator, cfg.Rank, cfg.Ranks)
		if err != nil {
			return nil, err
		}
		c = client
	}
	defer c.Close()
	return sim.Run(ctx, cfg, c)
}

// persist writes the result CSV and, if configured, the ledger entry.
func persist(ctx context.Context, res *sim.Result, dest report.Destination) error {
	body, err := report.EncodeResult(report.RowFromResult(res))
	if err != nil {
		return err
	}
	store, err := report.OpenStore(ctx, dest, s3Config())
	if err != nil {
		return err
	}
	if err := store.Put(ctx, dest.Key, body); err != nil {
		return fmt.Errorf("writing %s: %w", dest, err)
	}
	logrus.Infof("Result written to %s", dest)

	if ledgerPath == "" {
		return nil
	}
	ledger, err := report.OpenLedger(ledgerPath)
	if err != nil {
		return err
	}
	defer ledger.Close()
	entry, err := ledger.Record(ctx, res)
	if err != nil {
		return err
	}
	logrus.Infof("Recorded run %s (fingerprint %s) in %s", entry.ID, entry.Fingerprint, ledgerPath)
	return nil
}

// s3Config applies the --s3-* flags to the default S3 settings.
func s3Config() report.S3Config {
	cfg := report.DefaultS3Config()
	cfg.Region, cfg.Endpoint, cfg.UsePathStyle = s3Region, s3Endpoint, s3PathStyle
	return cfg
}

func setupLogging() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")

	// S3 settings for s3:// outputs of run and sweep
	rootCmd.PersistentFlags().StringVar(&s3Region, "s3-region", "", "AWS region for s3:// outputs")
	rootCmd.PersistentFlags().StringVar(&s3Endpoint, "s3-endpoint", "", "Custom S3 endpoint")
	rootCmd.PersistentFlags().BoolVar(&s3PathStyle, "s3-path-style", false, "Use path-style S3 addressing")

	runCmd.Flags().Int64Var(&totalSamples, "samples", 100_000_000, "Total samples across all ranks")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed base for the worker random streams")
	runCmd.Flags().IntVar(&threads, "threads", 0, "Worker goroutines per rank (0 = GOMAXPROCS)")
	runCmd.Flags().IntVar(&ranks, "ranks", 1, "Number of in-process ranks (local transport)")
	runCmd.Flags().StringVar(&configPath, "config", "", "YAML run file; explicit flags override it")

	// Distributed runtime
	runCmd.Flags().StringVar(&transport, "transport", transportLocal, "Collective transport: local or grpc")
	runCmd.Flags().IntVar(&worldSize, "world-size", 1, "Number of ranks in the gRPC group")
	runCmd.Flags().IntVar(&rank, "rank", 0, "Rank of this process in the gRPC group")
	runCmd.Flags().StringVar(&coordinator, "coordinator", "127.0.0.1:7070", "Address rank 0 listens on and other ranks dial")
	runCmd.Flags().DurationVar(&connectTimeout, "connect-timeout", time.Minute, "How long a rank waits for the coordinator")

	// Result persistence
	runCmd.Flags().StringVar(&outputPath, "output", "results/mc_result.csv", "Result CSV path or s3://bucket/key")
	runCmd.Flags().StringVar(&ledgerPath, "ledger", "", "SQLite run ledger path (disabled when empty)")

	rootCmd.AddCommand(runCmd)
}
