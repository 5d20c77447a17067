// Package sweep runs scaling studies: the same estimate repeated over a list
// of in-process rank counts, summarized per rank count.
package sweep

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/inference-sim/pisim/sim"
	"github.com/inference-sim/pisim/sim/comm"
	"github.com/inference-sim/pisim/sim/report"
)

// Mode selects how the problem size follows the rank count.
type Mode string

const (
	// ModeStrong keeps the total sample count fixed.
	ModeStrong Mode = "strong"
	// ModeWeak keeps the per-rank sample count fixed.
	ModeWeak Mode = "weak"
)

// validModes maps accepted mode strings.
var validModes = map[Mode]bool{ModeStrong: true, ModeWeak: true}

// IsValidMode returns true if the given string is a recognized sweep mode.
func IsValidMode(mode string) bool {
	return validModes[Mode(mode)]
}

// Config describes a sweep.
type Config struct {
	Mode    Mode
	Samples int64 // total (strong) or per rank (weak)
	Seed    sim.SimulationKey
	Threads int   // per rank; 0 = discover
	Ranks   []int // rank counts to visit
	Repeats int   // runs per rank count (≥ 1)
}

// Point summarizes all repeats at one rank count.
type Point struct {
	Ranks         int
	Threads       int
	TotalSamples  int64
	PiEstimate    float64 // identical across repeats for a fixed seed
	Elapsed       time.Duration
	ElapsedStdDev time.Duration
	Compute       time.Duration
	Comm          time.Duration
	Repeats       int
	Speedup       float64
	Efficiency    float64
}

// Validate checks the sweep before anything runs.
func (c Config) Validate() error {
	if !validModes[c.Mode] {
		return sim.ConfigError(sim.CodeInvalidFile, "unknown sweep mode %q", c.Mode)
	}
	if c.Samples <= 0 {
		return sim.ConfigError(sim.CodeInvalidSamples, "samples must be > 0, got %d", c.Samples)
	}
	if len(c.Ranks) == 0 {
		return sim.ConfigError(sim.CodeInvalidRanks, "at least one rank count is required")
	}
	for _, r := range c.Ranks {
		if r < 1 {
			return sim.ConfigError(sim.CodeInvalidRanks, "rank counts must be >= 1, got %d", r)
		}
	}
	if c.Repeats < 1 {
		return sim.ConfigError(sim.CodeInvalidRanks, "repeats must be >= 1, got %d", c.Repeats)
	}
	if c.Threads < 0 {
		return sim.ConfigError(sim.CodeInvalidThreads, "thread count must be >= 0, got %d", c.Threads)
	}
	return nil
}

// totalSamples is the problem size at ranks.
func (c Config) totalSamples(ranks int) (int64, error) {
	if c.Mode == ModeStrong {
		return c.Samples, nil
	}
	if c.Samples > sim.MaxTotalSamples/int64(ranks) {
		return 0, &sim.RunError{Kind: sim.KindResource, Code: sim.CodeSampleOverflow,
			Message: fmt.Sprintf("%d samples per rank x %d ranks exceeds %d", c.Samples, ranks, int64(sim.MaxTotalSamples))}
	}
	return c.Samples * int64(ranks), nil
}

// Run executes the sweep. Points come back sorted by rank count; the first
// point is the baseline for speedup and efficiency.
func Run(ctx context.Context, cfg Config) ([]Point, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ranks := slices.Clone(cfg.Ranks)
	slices.Sort(ranks)
	ranks = slices.Compact(ranks)

	points := make([]Point, 0, len(ranks))
	for _, n := range ranks {
		p, err := runPoint(ctx, cfg, n)
		if err != nil {
			return nil, fmt.Errorf("sweep at %d ranks: %w", n, err)
		}
		points = append(points, p)
		logrus.Infof("sweep %s: ranks=%d samples=%d elapsed=%v pi=%.10f", cfg.Mode, n, p.TotalSamples, p.Elapsed, p.PiEstimate)
	}
	applyScaling(cfg.Mode, points)
	return points, nil
}

func runPoint(ctx context.Context, cfg Config, ranks int) (Point, error) {
	total, err := cfg.totalSamples(ranks)
	if err != nil {
		return Point{}, err
	}
	elapsed := make([]float64, 0, cfg.Repeats)
	compute := make([]float64, 0, cfg.Repeats)
	commSec := make([]float64, 0, cfg.Repeats)
	p := Point{Ranks: ranks, TotalSamples: total, Repeats: cfg.Repeats}

	for i := 0; i < cfg.Repeats; i++ {
		root, err := comm.RunInProcess(ctx, sim.RunConfig{TotalSamples: total, Seed: cfg.Seed, Ranks: ranks, Threads: cfg.Threads})
		if err != nil {
			return Point{}, err
		}
		p.Threads = root.Threads
		p.PiEstimate = root.PiEstimate
		elapsed = append(elapsed, root.Elapsed().Seconds())
		compute = append(compute, root.ComputeTime().Seconds())
		commSec = append(commSec, root.CommTime().Seconds())
	}

	mean, std := stat.MeanStdDev(elapsed, nil)
	if len(elapsed) < 2 || math.IsNaN(std) {
		std = 0
	}
	p.Elapsed = seconds(mean)
	p.ElapsedStdDev = seconds(std)
	p.Compute = seconds(stat.Mean(compute, nil))
	p.Comm = seconds(stat.Mean(commSec, nil))
	return p, nil
}

func applyScaling(mode Mode, points []Point) {
	if len(points) == 0 {
		return
	}
	base := points[0]
	for i := range points {
		p := &points[i]
		if p.Elapsed <= 0 || base.Elapsed <= 0 {
			continue
		}
		ratio := base.Elapsed.Seconds() / p.Elapsed.Seconds()
		ideal := float64(p.Ranks) / float64(base.Ranks)
		switch mode {
		case ModeStrong:
			p.Speedup = ratio
			p.Efficiency = ratio / ideal
		case ModeWeak:
			p.Speedup = ratio * ideal
			p.Efficiency = ratio
		}
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Header is the sweep CSV header: the result columns plus the summary columns.
var Header = append(slices.Clone(report.Header), "repeats", "elapsed_stddev", "speedup", "efficiency")

// Record formats a point as a sweep CSV row.
func (p Point) Record() []string {
	row := report.Row{
		Ranks:        p.Ranks,
		Threads:      p.Threads,
		TotalSamples: p.TotalSamples,
		PiEstimate:   p.PiEstimate,
		Elapsed:      p.Elapsed,
		Compute:      p.Compute,
		Comm:         p.Comm,
	}
	return append(row.Record(),
		strconv.Itoa(p.Repeats),
		report.FormatSeconds(p.ElapsedStdDev),
		report.FormatFloat(p.Speedup, 4),
		report.FormatFloat(p.Efficiency, 4),
	)
}
