package report

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/banshee-data/lapalign/internal/fsutil"
	"github.com/banshee-data/lapalign/internal/loop"
	"github.com/banshee-data/lapalign/internal/monitoring"
	"github.com/banshee-data/lapalign/internal/security"
	"github.com/banshee-data/lapalign/internal/session"
)

// Options selects the optional outputs. CSV is always written.
type Options struct {
	Plots   bool
	HTML    bool
	Parquet bool
}

// Writer writes report files into one output directory.
type Writer struct {
	fs  fsutil.FileSystem
	dir string
}

// NewWriter returns a Writer rooted at dir. The directory is created on
// first write.
func NewWriter(fsys fsutil.FileSystem, dir string) *Writer {
	return &Writer{fs: fsys, dir: dir}
}

var logf = monitoring.Tagged("report")

// WriteAll writes every selected output for recs and returns the paths it
// created, in write order.
func (w *Writer) WriteAll(path *loop.ClosedPath, recs []*session.Recording, o Options) ([]string, error) {
	if err := w.fs.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", w.dir, err)
	}

	var written []string
	emit := func(name string, fn func(io.Writer) error) error {
		full := filepath.Join(w.dir, name)
		var buf bytes.Buffer
		if err := fn(&buf); err != nil {
			return fmt.Errorf("render %s: %w", full, err)
		}
		f, err := w.fs.Create(full)
		if err != nil {
			return fmt.Errorf("create %s: %w", full, err)
		}
		if _, err := f.Write(buf.Bytes()); err != nil {
			f.Close()
			return fmt.Errorf("write %s: %w", full, err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close %s: %w", full, err)
		}
		written = append(written, full)
		return nil
	}

	if err := w.writeCSV(recs); err != nil {
		return written, err
	}
	written = append(written, filepath.Join(w.dir, "samples.csv"), filepath.Join(w.dir, "laps.csv"))

	if o.Plots {
		title := fmt.Sprintf("Reference loop (length %.2f)", path.TotalLength())
		start := -1
		if len(recs) > 0 {
			start = recs[0].StartIndex
		}
		if err := emit("path.png", func(out io.Writer) error {
			return WritePathPlot(out, path, start, title)
		}); err != nil {
			return written, err
		}
		for i, rec := range recs {
			err := emit(fileStem(i, rec)+"_progress.png", func(out io.Writer) error {
				return WriteProgressPlot(out, rec)
			})
			if errors.Is(err, ErrNothingToPlot) {
				logf("skipping progress plot for %q: no laps", rec.Label)
				continue
			}
			if err != nil {
				return written, err
			}
		}
	}

	if o.HTML {
		if err := emit("progress.html", func(out io.Writer) error {
			return WriteProgressHTML(out, path, recs)
		}); err != nil {
			return written, err
		}
	}

	if o.Parquet {
		for i, rec := range recs {
			if err := emit(fileStem(i, rec)+"_samples.parquet", func(out io.Writer) error {
				data, err := MarshalSamplesParquet(rec)
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			}); err != nil {
				return written, err
			}
		}
	}

	logf("wrote %d files to %s", len(written), w.dir)
	return written, nil
}

func (w *Writer) writeCSV(recs []*session.Recording) error {
	samplesPath := filepath.Join(w.dir, "samples.csv")
	lapsPath := filepath.Join(w.dir, "laps.csv")

	samples, err := w.fs.Create(samplesPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", samplesPath, err)
	}
	defer samples.Close()
	laps, err := w.fs.Create(lapsPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", lapsPath, err)
	}
	defer laps.Close()

	cw := NewCSVWriter(samples, laps)
	if err := cw.WriteHeaders(); err != nil {
		return err
	}
	for _, rec := range recs {
		if err := cw.WriteRecording(rec); err != nil {
			return fmt.Errorf("recording %q: %w", rec.Label, err)
		}
	}
	if err := cw.Flush(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	if err := samples.Close(); err != nil {
		return fmt.Errorf("close %s: %w", samplesPath, err)
	}
	if err := laps.Close(); err != nil {
		return fmt.Errorf("close %s: %w", lapsPath, err)
	}
	return nil
}

// fileStem numbers recordings so duplicate labels do not collide.
func fileStem(i int, rec *session.Recording) string {
	return fmt.Sprintf("%02d_%s", i+1, security.SanitizeFilename(rec.Label))
}
