// Package testutil provides shared test fixtures: reference loops and the
// text encodings the loaders accept.
package testutil

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"
)

// CirclePoints returns n points spaced uniformly, counter-clockwise, on a
// circle of the given circumference centred on the origin.
func CirclePoints(n int, circumference float64) []r2.Vec {
	radius := circumference / (2 * math.Pi)
	pts := make([]r2.Vec, n)
	for i := range pts {
		theta := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = r2.Vec{X: radius * math.Cos(theta), Y: radius * math.Sin(theta)}
	}
	return pts
}

// SquarePoints returns the four corners of an axis-aligned square with
// one corner on the origin.
func SquarePoints(side float64) []r2.Vec {
	return []r2.Vec{{X: 0, Y: 0}, {X: side, Y: 0}, {X: side, Y: side}, {X: 0, Y: side}}
}

// PathCSV encodes points as "x,y" rows under a header.
func PathCSV(points []r2.Vec) string {
	var b strings.Builder
	b.WriteString("x,y\n")
	for _, p := range points {
		fmt.Fprintf(&b, "%g,%g\n", p.X, p.Y)
	}
	return b.String()
}

// FramesCSV encodes one frame per observation. A nil observation leaves
// x and y empty; boundaries lists frame indices carrying the lap-boundary
// signal.
func FramesCSV(observations []*r2.Vec, boundaries ...int) string {
	marked := make(map[int]bool, len(boundaries))
	for _, i := range boundaries {
		marked[i] = true
	}
	var b strings.Builder
	b.WriteString("frame,x,y,lap_boundary\n")
	for i, obs := range observations {
		flag := 0
		if marked[i] {
			flag = 1
		}
		if obs == nil {
			fmt.Fprintf(&b, "%d,,,%d\n", i, flag)
			continue
		}
		fmt.Fprintf(&b, "%d,%g,%g,%d\n", i, obs.X, obs.Y, flag)
	}
	return b.String()
}

// Observations returns pointers to each point, the form frames carry.
func Observations(points []r2.Vec) []*r2.Vec {
	out := make([]*r2.Vec, len(points))
	for i := range points {
		p := points[i]
		out[i] = &p
	}
	return out
}
