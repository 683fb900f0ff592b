package ingest

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/banshee-data/lapalign/internal/fsutil"
	"gonum.org/v1/gonum/spatial/r2"
)

// pathFile is the JSON form of a reference path.
type pathFile struct {
	Points [][]float64 `json:"points"`
}

// LoadPath reads a reference path. The format is chosen by extension:
// .json, .csv or .fit. For FIT files the returned Projection must be
// used for any FIT recording tracked against this path; for other
// formats it is nil.
func LoadPath(fsys fsutil.FileSystem, name string) ([]r2.Vec, *Projection, error) {
	data, err := readLimited(fsys, name, maxPathFileSize)
	if err != nil {
		return nil, nil, err
	}

	var points []r2.Vec
	var proj *Projection
	switch ext := extension(name); ext {
	case ".json":
		points, err = ParsePathJSON(data)
	case ".csv":
		points, err = ParsePathCSV(bytes.NewReader(data))
	case ".fit":
		points, proj, err = ParsePathFIT(bytes.NewReader(data))
	default:
		return nil, nil, fmt.Errorf("%w: path file %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load path %s: %w", name, err)
	}
	return points, proj, nil
}

// ParsePathJSON decodes {"points": [[x, y], ...]}.
func ParsePathJSON(data []byte) ([]r2.Vec, error) {
	var f pathFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse path JSON: %w", err)
	}
	if len(f.Points) == 0 {
		return nil, fmt.Errorf("%w: no points", ErrMalformedInput)
	}
	points := make([]r2.Vec, len(f.Points))
	for i, p := range f.Points {
		if len(p) != 2 {
			return nil, fmt.Errorf("%w: point %d has %d coordinates, want 2", ErrMalformedInput, i, len(p))
		}
		points[i] = r2.Vec{X: p[0], Y: p[1]}
	}
	return points, nil
}

// ParsePathCSV reads "x,y" rows. A header row is optional; blank lines
// and lines starting with '#' are ignored.
func ParsePathCSV(r io.Reader) ([]r2.Vec, error) {
	cr := newCSVReader(r)
	var points []r2.Vec
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read path CSV: %w", err)
		}
		if len(rec) < 2 {
			return nil, fmt.Errorf("%w: path row %d has %d fields, want 2", ErrMalformedInput, line, len(rec))
		}
		if line == 1 && isHeader(rec[0]) {
			continue
		}
		p, err := parsePoint(rec[0], rec[1])
		if err != nil {
			return nil, fmt.Errorf("%w: path row %d: %v", ErrMalformedInput, line, err)
		}
		points = append(points, p)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: no points", ErrMalformedInput)
	}
	return points, nil
}

func newCSVReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true
	return cr
}

// isHeader reports whether a first field is a column name rather than a
// number.
func isHeader(field string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
	return err != nil
}

func parsePoint(xs, ys string) (r2.Vec, error) {
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return r2.Vec{}, fmt.Errorf("bad x %q", xs)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return r2.Vec{}, fmt.Errorf("bad y %q", ys)
	}
	if math.IsNaN(x) || math.IsInf(x, 0) || math.IsNaN(y) || math.IsInf(y, 0) {
		return r2.Vec{}, fmt.Errorf("non-finite coordinate (%s, %s)", xs, ys)
	}
	return r2.Vec{X: x, Y: y}, nil
}
