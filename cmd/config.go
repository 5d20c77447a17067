package cmd

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// supportedRunFileMajor is the run file schema this build understands.
const supportedRunFileMajor = "v1"

// RunFile is the YAML form of the run flags. Nil fields are "not set" and
// leave the flag default alone.
type RunFile struct {
	Version     string  `yaml:"version"`
	Samples     *int64  `yaml:"samples"`
	Seed        *int64  `yaml:"seed"`
	Threads     *int    `yaml:"threads"`
	Ranks       *int    `yaml:"ranks"`
	Transport   *string `yaml:"transport"`
	WorldSize   *int    `yaml:"world_size"`
	Coordinator *string `yaml:"coordinator"`
	Output      *string `yaml:"output"`
	Ledger      *string `yaml:"ledger"`
}

// LoadRunFile reads a run file with strict field checking: typos are errors.
func LoadRunFile(path string) (*RunFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run file: %w", err)
	}
	var f RunFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing run file: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks the schema version and value ranges.
func (f *RunFile) Validate() error {
	if !semver.IsValid(f.Version) {
		return fmt.Errorf("version %q is not a semantic version (e.g. v1 or v1.2.0)", f.Version)
	}
	if semver.Major(f.Version) != supportedRunFileMajor {
		return fmt.Errorf("run file version %s not supported; this build reads %s", f.Version, supportedRunFileMajor)
	}
	if f.Samples != nil && *f.Samples <= 0 {
		return fmt.Errorf("samples must be > 0, got %d", *f.Samples)
	}
	if f.Threads != nil && *f.Threads < 0 {
		return fmt.Errorf("threads must be >= 0, got %d", *f.Threads)
	}
	if f.Ranks != nil && *f.Ranks < 1 {
		return fmt.Errorf("ranks must be >= 1, got %d", *f.Ranks)
	}
	if f.WorldSize != nil && *f.WorldSize < 1 {
		return fmt.Errorf("world_size must be >= 1, got %d", *f.WorldSize)
	}
	return nil
}

// applyTo copies every set field into its flag variable, unless that flag was
// given explicitly on the command line.
func (f *RunFile) applyTo(cmd *cobra.Command) {
	changed := cmd.Flags().Changed
	setValue(&totalSamples, f.Samples, !changed("samples"))
	setValue(&seed, f.Seed, !changed("seed"))
	setValue(&threads, f.Threads, !changed("threads"))
	setValue(&ranks, f.Ranks, !changed("ranks"))
	setValue(&transport, f.Transport, !changed("transport"))
	setValue(&worldSize, f.WorldSize, !changed("world-size"))
	setValue(&coordinator, f.Coordinator, !changed("coordinator"))
	setValue(&outputPath, f.Output, !changed("output"))
	setValue(&ledgerPath, f.Ledger, !changed("ledger"))
}

func setValue[T any](dst *T, src *T, ok bool) {
	if ok && src != nil {
		*dst = *src
	}
}
