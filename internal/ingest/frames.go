package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/banshee-data/lapalign/internal/fsutil"
	"github.com/banshee-data/lapalign/internal/loop"
)

// frameColumns maps the frames CSV columns to field positions. A value of
// -1 means the column is absent.
type frameColumns struct {
	frame, x, y, boundary int
}

var positionalColumns = frameColumns{frame: 0, x: 1, y: 2, boundary: 3}

// LoadFrames reads a frame recording. CSV files are parsed with
// ParseFramesCSV; FIT files need the projection returned when the
// reference path was loaded from FIT.
func LoadFrames(fsys fsutil.FileSystem, name string, proj *Projection) ([]loop.Frame, error) {
	data, err := readLimited(fsys, name, maxFramesFileSize)
	if err != nil {
		return nil, err
	}

	var frames []loop.Frame
	switch ext := extension(name); ext {
	case ".csv":
		frames, err = ParseFramesCSV(bytes.NewReader(data))
	case ".fit":
		if proj == nil {
			return nil, fmt.Errorf("%w: FIT recording %s needs a FIT reference path", ErrUnsupportedFormat, name)
		}
		frames, err = ParseFramesFIT(bytes.NewReader(data), *proj)
	default:
		return nil, fmt.Errorf("%w: frames file %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("load frames %s: %w", name, err)
	}
	return frames, nil
}

// ParseFramesCSV reads frames in capture order. With a header row the
// columns are located by name (frame, x, y, lap_boundary); frame and
// lap_boundary are optional. Without one the layout is positional.
//
// Empty x and y mean the marker was not detected in that frame. Frame
// indices must strictly increase; a missing frame column numbers rows
// from 0.
func ParseFramesCSV(r io.Reader) ([]loop.Frame, error) {
	cr := newCSVReader(r)

	var (
		frames []loop.Frame
		cols   = positionalColumns
		row    int
	)
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read frames CSV: %w", err)
		}
		if line == 1 && isHeader(rec[0]) {
			cols, err = columnsFromHeader(rec)
			if err != nil {
				return nil, err
			}
			continue
		}

		f, err := parseFrameRow(rec, cols, row)
		if err != nil {
			return nil, fmt.Errorf("%w: frames row %d: %v", ErrMalformedInput, line, err)
		}
		if n := len(frames); n > 0 && f.Index <= frames[n-1].Index {
			return nil, fmt.Errorf("%w: frames row %d: frame %d does not follow frame %d",
				ErrMalformedInput, line, f.Index, frames[n-1].Index)
		}
		frames = append(frames, f)
		row++
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: no frames", ErrMalformedInput)
	}
	return frames, nil
}

func columnsFromHeader(header []string) (frameColumns, error) {
	cols := frameColumns{frame: -1, x: -1, y: -1, boundary: -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "frame", "frame_index":
			cols.frame = i
		case "x":
			cols.x = i
		case "y":
			cols.y = i
		case "lap_boundary", "lap":
			cols.boundary = i
		}
	}
	if cols.x < 0 || cols.y < 0 {
		return cols, fmt.Errorf("%w: frames header %v lacks x and y columns", ErrMalformedInput, header)
	}
	return cols, nil
}

func parseFrameRow(rec []string, cols frameColumns, row int) (loop.Frame, error) {
	field := func(i int) string {
		if i < 0 || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	f := loop.Frame{Index: row}
	if cols.frame >= 0 {
		idx, err := strconv.Atoi(field(cols.frame))
		if err != nil {
			return f, fmt.Errorf("bad frame index %q", field(cols.frame))
		}
		f.Index = idx
	}

	xs, ys := field(cols.x), field(cols.y)
	switch {
	case xs == "" && ys == "":
	case xs == "" || ys == "":
		return f, fmt.Errorf("only one coordinate present (%q, %q)", xs, ys)
	default:
		p, err := parsePoint(xs, ys)
		if err != nil {
			return f, err
		}
		f.Observation = &p
	}

	if b := field(cols.boundary); b != "" {
		v, err := strconv.ParseBool(b)
		if err != nil {
			return f, fmt.Errorf("bad lap_boundary %q", b)
		}
		f.LapBoundary = v
	}
	return f, nil
}
