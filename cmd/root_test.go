package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/pisim/sim/report"
)

func TestRunCmd_Defaults(t *testing.T) {
	tests := []struct {
		flag string
		want string
	}{
		{"samples", "100000000"},
		{"seed", "42"},
		{"threads", "0"},
		{"ranks", "1"},
		{"transport", transportLocal},
		{"output", "results/mc_result.csv"},
		{"ledger", ""},
	}
	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			f := runCmd.Flags().Lookup(tt.flag)
			require.NotNil(t, f, "flag --%s not registered", tt.flag)
			assert.Equal(t, tt.want, f.DefValue)
		})
	}
	assert.Equal(t, "error", rootCmd.PersistentFlags().Lookup("log").DefValue)
}

func TestRootCmd_Subcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"run", "sweep", "history"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
}

func TestS3Flags_SharedByRunAndSweep(t *testing.T) {
	// GIVEN the --s3-* flags set on the root command
	flags := rootCmd.PersistentFlags()
	saved := s3Config()
	t.Cleanup(func() {
		s3Region, s3Endpoint, s3PathStyle = saved.Region, saved.Endpoint, saved.UsePathStyle
	})
	require.NoError(t, flags.Set("s3-region", "eu-west-1"))
	require.NoError(t, flags.Set("s3-endpoint", "http://localhost:9000"))
	require.NoError(t, flags.Set("s3-path-style", "true"))

	// THEN both subcommands that write outputs see them
	for _, c := range []*cobra.Command{runCmd, sweepCmd} {
		for _, name := range []string{"s3-region", "s3-endpoint", "s3-path-style"} {
			assert.NotNil(t, c.InheritedFlags().Lookup(name), "%s missing --%s", c.Name(), name)
		}
	}

	// AND the store config carries them on top of the defaults
	want := report.DefaultS3Config()
	want.Region, want.Endpoint, want.UsePathStyle = "eu-west-1", "http://localhost:9000", true
	assert.Equal(t, want, s3Config())
}

func TestRunCmd_SummaryPrintedToStdout(t *testing.T) {
	// GIVEN a small in-process run writing to a temp directory
	out := filepath.Join(t.TempDir(), "mc_result.csv")
	rootCmd.SetArgs([]string{"run", "--samples", "20000", "--ranks", "2", "--threads", "2", "--output", out})

	// Capture stdout
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	// WHEN the command runs
	err := rootCmd.ExecuteContext(context.Background())

	// Restore stdout and read captured output
	_ = w.Close()
	os.Stdout = old
	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	require.NoError(t, err)

	// THEN the rank-0 summary line is on stdout and the CSV exists
	assert.Contains(t, buf.String(), "Run completed: Pi = ")
	assert.Contains(t, buf.String(), " s\n")
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "ranks,threads,total_samples,pi_estimate,"))
}
