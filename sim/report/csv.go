// Package report persists run results: the one-row CSV written by the root
// rank, the object stores it is written to, and the SQLite run ledger.
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/inference-sim/pisim/sim"
)

// Header is the result CSV header.
var Header = []string{"ranks", "threads", "total_samples", "pi_estimate", "elapsed_sec", "compute_sec", "comm_sec"}

// Row is one persisted run.
type Row struct {
	Ranks        int
	Threads      int
	TotalSamples int64
	PiEstimate   float64
	Elapsed      time.Duration
	Compute      time.Duration
	Comm         time.Duration
}

// RowFromResult builds the row for a root rank's result.
func RowFromResult(r *sim.Result) Row {
	return Row{
		Ranks:        r.Config.Ranks,
		Threads:      r.Threads,
		TotalSamples: r.Config.TotalSamples,
		PiEstimate:   r.PiEstimate,
		Elapsed:      r.Elapsed(),
		Compute:      r.ComputeTime(),
		Comm:         r.CommTime(),
	}
}

// Record formats the row: estimate to 10 decimals, timings in seconds to 6.
func (r Row) Record() []string {
	return []string{
		strconv.Itoa(r.Ranks),
		strconv.Itoa(r.Threads),
		strconv.FormatInt(r.TotalSamples, 10),
		FormatFloat(r.PiEstimate, 10),
		FormatSeconds(r.Elapsed),
		FormatSeconds(r.Compute),
		FormatSeconds(r.Comm),
	}
}

// FormatFloat renders v with prec fixed decimals.
func FormatFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

// FormatSeconds renders d in seconds with 6 decimals.
func FormatSeconds(d time.Duration) string {
	return FormatFloat(d.Seconds(), 6)
}

// WriteCSV writes header and one record per row.
func WriteCSV(w io.Writer, header []string, records ...[]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, rec := range records {
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// EncodeResult renders the single-row result CSV.
func EncodeResult(row Row) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, Header, row.Record()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
