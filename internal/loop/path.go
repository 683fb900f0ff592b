package loop

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r2"
)

// minTotalLength is the loop length below which a path is treated as
// having zero length.
const minTotalLength = 1e-9

// ClosedPath is a traversal-ordered closed loop with a precomputed
// arc-length table. Point i precedes point i+1 along the direction of
// travel, and an implicit closing segment joins the last point to the
// first.
type ClosedPath struct {
	points []r2.Vec
	cum    []float64 // cum[i] = arc length from point 0 to point i
	total  float64   // full loop length including the closing segment
}

// BuildPath constructs a ClosedPath from raw points. The slice is copied.
func BuildPath(points []r2.Vec) (*ClosedPath, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 points, got %d", ErrDegeneratePath, len(points))
	}
	for i, pt := range points {
		if math.IsNaN(pt.X) || math.IsNaN(pt.Y) || math.IsInf(pt.X, 0) || math.IsInf(pt.Y, 0) {
			return nil, fmt.Errorf("%w: point %d is not finite (%v, %v)", ErrDegeneratePath, i, pt.X, pt.Y)
		}
	}

	n := len(points)
	segs := make([]float64, n)
	for i := 1; i < n; i++ {
		segs[i] = r2.Norm(r2.Sub(points[i], points[i-1]))
	}
	cum := floats.CumSum(make([]float64, n), segs)
	total := cum[n-1] + r2.Norm(r2.Sub(points[0], points[n-1]))
	if total <= minTotalLength {
		return nil, fmt.Errorf("%w: total length %g", ErrDegeneratePath, total)
	}

	pts := make([]r2.Vec, n)
	copy(pts, points)
	return &ClosedPath{points: pts, cum: cum, total: total}, nil
}

// Len returns the number of points in the path.
func (p *ClosedPath) Len() int { return len(p.points) }

// TotalLength returns the loop length including the closing segment.
func (p *ClosedPath) TotalLength() float64 { return p.total }

// Point returns the i-th path point.
func (p *ClosedPath) Point(i int) r2.Vec { return p.points[i] }

// Points returns a copy of the path points.
func (p *ClosedPath) Points() []r2.Vec {
	out := make([]r2.Vec, len(p.points))
	copy(out, p.points)
	return out
}

// CumulativeLength returns the arc length from point 0 to point i.
func (p *ClosedPath) CumulativeLength(i int) float64 { return p.cum[i] }

// AverageSegmentLength is the loop length divided by the number of
// segments (N, counting the closing segment).
func (p *ClosedPath) AverageSegmentLength() float64 {
	return p.total / float64(len(p.points))
}

// ArcLength returns the forward arc length from one index to another
// along the direction of travel. When to < from the distance wraps
// through the closing segment. ArcLength(i, i) is always 0.
func (p *ClosedPath) ArcLength(from, to int) float64 {
	if to >= from {
		return p.cum[to] - p.cum[from]
	}
	return (p.total - p.cum[from]) + p.cum[to]
}

// NearestIndices returns every index whose Euclidean distance to pt is
// within radius, in index order.
func (p *ClosedPath) NearestIndices(pt r2.Vec, radius float64) []Candidate {
	var out []Candidate
	for i, q := range p.points {
		if d := r2.Norm(r2.Sub(pt, q)); d <= radius {
			out = append(out, Candidate{Index: i, Distance: d})
		}
	}
	return out
}

// NearestIndex returns the globally nearest index to pt. Exact ties
// resolve to the lower index.
func (p *ClosedPath) NearestIndex(pt r2.Vec) Candidate {
	best := Candidate{Index: -1, Distance: math.Inf(1)}
	for i, q := range p.points {
		if d := r2.Norm(r2.Sub(pt, q)); d < best.Distance {
			best = Candidate{Index: i, Distance: d}
		}
	}
	return best
}

// MaxResamplePoints caps the size of a resampled path.
const MaxResamplePoints = 1_000_000

// Resample returns a new ClosedPath with points placed every spacing
// units of arc length, starting at point 0 and interpolating linearly
// inside the bracketing segment (the closing segment included). A
// spacing of at least half the loop yields two points at opposite ends
// of the loop.
func (p *ClosedPath) Resample(spacing float64) (*ClosedPath, error) {
	if !(spacing > 0) || math.IsInf(spacing, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpacing, spacing)
	}

	ratio := p.total / spacing
	if math.IsInf(ratio, 0) || ratio > MaxResamplePoints {
		return nil, fmt.Errorf("%w: %v yields more than %d points", ErrInvalidSpacing, spacing, MaxResamplePoints)
	}
	count := int(math.Ceil(ratio - 1e-9))
	step := spacing
	if count < 2 {
		count = 2
		step = p.total / 2
	}

	n := len(p.points)
	out := make([]r2.Vec, 0, count)
	seg := 0
	for k := 0; k < count; k++ {
		target := float64(k) * step
		for seg < n-1 && p.segmentEnd(seg) < target {
			seg++
		}
		out = append(out, p.interpolate(seg, target))
	}

	resampled, err := BuildPath(out)
	if err != nil {
		return nil, fmt.Errorf("resample at spacing %g: %w", spacing, err)
	}
	return resampled, nil
}

// segmentEnd returns the cumulative length at the far end of segment i,
// which runs from point i to point i+1 (or back to point 0 for the last).
func (p *ClosedPath) segmentEnd(i int) float64 {
	if i == len(p.points)-1 {
		return p.total
	}
	return p.cum[i+1]
}

func (p *ClosedPath) interpolate(seg int, s float64) r2.Vec {
	a := p.points[seg]
	b := p.points[(seg+1)%len(p.points)]
	length := p.segmentEnd(seg) - p.cum[seg]
	if length <= 0 {
		return a
	}
	t := (s - p.cum[seg]) / length
	t = math.Max(0, math.Min(1, t))
	return r2.Add(a, r2.Scale(t, r2.Sub(b, a)))
}
