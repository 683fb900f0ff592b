// Package report renders analysed recordings as CSV, Parquet, PNG plots
// and interactive HTML charts.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/banshee-data/lapalign/internal/session"
)

// SampleHeaders are the per-frame CSV columns.
var SampleHeaders = []string{
	"recording", "frame", "lap", "progress", "matched_index", "matched", "raw_distance",
	"candidate_count", "low_confidence", "skipped", "rule", "reason", "phase",
}

// LapHeaders are the per-lap CSV columns.
var LapHeaders = []string{
	"recording", "lap", "first_frame", "last_frame", "frames", "final_progress", "peak_progress",
	"completed", "low_confidence", "skipped", "mean_raw_distance", "max_raw_distance",
}

// CSVWriter wraps csv.Writer with methods for per-frame and per-lap output.
type CSVWriter struct {
	Samples *csv.Writer
	Laps    *csv.Writer
}

// NewCSVWriter creates a new CSVWriter with the given samples and laps writers.
func NewCSVWriter(samples, laps io.Writer) *CSVWriter {
	return &CSVWriter{
		Samples: csv.NewWriter(samples),
		Laps:    csv.NewWriter(laps),
	}
}

// WriteHeaders writes the header row to both outputs.
func (c *CSVWriter) WriteHeaders() error {
	if err := c.Samples.Write(SampleHeaders); err != nil {
		return err
	}
	return c.Laps.Write(LapHeaders)
}

// WriteRecording writes one row per sample and one per lap.
func (c *CSVWriter) WriteRecording(rec *session.Recording) error {
	for _, s := range rec.Samples {
		row := []string{
			rec.Label,
			strconv.Itoa(s.Frame),
			strconv.Itoa(s.Lap),
			fmt.Sprintf("%.6f", s.Progress),
			strconv.Itoa(s.MatchedIndex),
			strconv.FormatBool(s.Matched),
			fmt.Sprintf("%.6f", s.RawDistance),
			strconv.Itoa(s.CandidateCount),
			strconv.FormatBool(s.LowConfidence),
			strconv.FormatBool(s.Skipped),
			string(s.Rule),
			string(s.Reason),
			s.Phase.String(),
		}
		if err := c.Samples.Write(row); err != nil {
			return fmt.Errorf("write sample row for frame %d: %w", s.Frame, err)
		}
	}

	for _, lap := range rec.Laps {
		row := []string{
			rec.Label,
			strconv.Itoa(lap.Number),
			strconv.Itoa(lap.FirstFrame),
			strconv.Itoa(lap.LastFrame),
			strconv.Itoa(lap.Frames),
			fmt.Sprintf("%.6f", lap.FinalProgress),
			fmt.Sprintf("%.6f", lap.PeakProgress),
			strconv.FormatBool(lap.Completed),
			strconv.Itoa(lap.LowConfidence),
			strconv.Itoa(lap.Skipped),
			fmt.Sprintf("%.6f", lap.MeanRawDistance),
			fmt.Sprintf("%.6f", lap.MaxRawDistance),
		}
		if err := c.Laps.Write(row); err != nil {
			return fmt.Errorf("write lap row %d: %w", lap.Number, err)
		}
	}
	return nil
}

// Flush flushes both writers and reports the first write error.
func (c *CSVWriter) Flush() error {
	c.Samples.Flush()
	c.Laps.Flush()
	if err := c.Samples.Error(); err != nil {
		return err
	}
	return c.Laps.Error()
}
