package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/banshee-data/lapalign/internal/config"
	"github.com/banshee-data/lapalign/internal/db"
	"github.com/banshee-data/lapalign/internal/fsutil"
	"github.com/banshee-data/lapalign/internal/ingest"
	"github.com/banshee-data/lapalign/internal/loop"
	"github.com/banshee-data/lapalign/internal/monitoring"
	"github.com/banshee-data/lapalign/internal/report"
	"github.com/banshee-data/lapalign/internal/security"
	"github.com/banshee-data/lapalign/internal/session"
)

// options is the resolved command line.
type options struct {
	PathFile    string
	FrameFiles  []string
	ConfigFile  string
	OutDir      string
	DBPath      string
	Resample    float64
	Plots       bool
	HTML        bool
	Parquet     bool
	MetricsFile string
	Parallel    int
}

func (o options) validate() error {
	if o.PathFile == "" {
		return errors.New("-path is required")
	}
	if len(o.FrameFiles) == 0 {
		return errors.New("-frames is required")
	}
	if o.Resample < 0 {
		return fmt.Errorf("-resample must be >= 0, got %g", o.Resample)
	}
	if (o.Plots || o.HTML || o.Parquet) && o.OutDir == "" {
		return errors.New("-plots, -html and -parquet need -out")
	}
	for _, p := range []string{o.OutDir, o.DBPath, o.MetricsFile} {
		if p == "" {
			continue
		}
		if err := security.ValidateOutputPath(p); err != nil {
			return err
		}
	}
	return nil
}

func (o options) tuning() (*config.TuningConfig, error) {
	tuning := config.DefaultTuningConfig()
	if o.ConfigFile != "" {
		var err error
		if tuning, err = config.LoadTuningConfig(o.ConfigFile); err != nil {
			return nil, err
		}
	}
	if o.Resample > 0 {
		tuning.ResampleSpacing = &o.Resample
	}
	return tuning, nil
}

// recordingLabel names a recording after its file.
func recordingLabel(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func run(ctx context.Context, fsys fsutil.FileSystem, o options, stdout io.Writer) error {
	logf := monitoring.Tagged("lapalign")
	started := time.Now()

	tuning, err := o.tuning()
	if err != nil {
		return fmt.Errorf("load tuning: %w", err)
	}
	cfg := loop.ConfigFromTuning(tuning)

	points, proj, err := ingest.LoadPath(fsys, o.PathFile)
	if err != nil {
		return fmt.Errorf("load path: %w", err)
	}
	path, err := loop.PreparePath(points, cfg)
	if err != nil {
		return fmt.Errorf("prepare path %s: %w", o.PathFile, err)
	}
	logf("reference loop %s: %d points, length %.2f", o.PathFile, path.Len(), path.TotalLength())

	inputs := make([]session.Input, 0, len(o.FrameFiles))
	for _, name := range o.FrameFiles {
		frames, err := ingest.LoadFrames(fsys, name, proj)
		if err != nil {
			return fmt.Errorf("load frames: %w", err)
		}
		inputs = append(inputs, session.Input{Label: recordingLabel(name), Frames: frames})
	}

	metrics := monitoring.NewMetrics()
	runner := session.NewRunner(loop.NewTracker(path, cfg), nil, metrics)
	recs, err := runner.RunBatch(ctx, inputs, o.Parallel)
	if err != nil {
		return err
	}

	if o.DBPath != "" {
		store, err := db.Open(o.DBPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer store.Close()
		for _, rec := range recs {
			if err := store.InsertRecording(ctx, rec); err != nil {
				return err
			}
		}
		logf("stored %d recordings in %s", len(recs), o.DBPath)
	}

	if o.OutDir != "" {
		w := report.NewWriter(fsys, o.OutDir)
		if _, err := w.WriteAll(path, recs, report.Options{Plots: o.Plots, HTML: o.HTML, Parquet: o.Parquet}); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	if o.MetricsFile != "" {
		if err := writeMetrics(fsys, o.MetricsFile, metrics); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	printSummary(stdout, recs)
	logf("analysed %d recordings in %s", len(recs), time.Since(started).Round(time.Millisecond))
	return nil
}

// writeMetrics renders metrics in full, then writes them to path on fsys.
func writeMetrics(fsys fsutil.FileSystem, path string, metrics *monitoring.Metrics) error {
	var buf bytes.Buffer
	if err := metrics.WriteText(&buf); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := fsys.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func printSummary(w io.Writer, recs []*session.Recording) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RECORDING\tFRAMES\tLAPS\tCOMPLETED\tLOW CONFIDENCE\tSTART")
	for _, rec := range recs {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n",
			rec.Label, len(rec.Samples), len(rec.Laps), rec.CompletedLaps(), rec.LowConfidenceFrames(), rec.StartIndex)
	}
	tw.Flush()
}

func listRecordings(ctx context.Context, w io.Writer, dbPath string) error {
	if dbPath == "" {
		return errors.New("-list needs -db")
	}
	store, err := db.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	summaries, err := store.ListRecordings(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLABEL\tCREATED\tFRAMES\tLAPS\tCOMPLETED")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\n",
			s.ID, s.Label, s.CreatedAt.Format(time.RFC3339), s.FrameCount, s.LapCount, s.CompletedLaps)
	}
	return tw.Flush()
}
