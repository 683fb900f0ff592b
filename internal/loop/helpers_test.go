package loop

import (
	"math"
	"testing"

	"github.com/banshee-data/lapalign/internal/testutil"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
)

func mustCircle(t *testing.T, n int, circumference float64) *ClosedPath {
	t.Helper()
	path, err := BuildPath(testutil.CirclePoints(n, circumference))
	require.NoError(t, err)
	return path
}

func squarePoints(side float64) []r2.Vec { return testutil.SquarePoints(side) }

// selfApproachPoints builds a 40-point loop whose indices 15 and 25 sit
// 2.82 units apart in space but 13.3 units apart along the path:
//
//   - 0..15 climb the line x=0 from y=-16.7 to the origin (16.7 units);
//   - 16..25 make a narrow spike up and back down to (2.82, 0) (13.3 units);
//   - 26..39 descend x=2.82 to y=-16.7, and the closing segment returns
//     to point 0.
func selfApproachPoints() []r2.Vec {
	pts := make([]r2.Vec, 0, 40)
	for i := 0; i <= 15; i++ {
		pts = append(pts, r2.Vec{X: 0, Y: -16.7 + float64(i)*16.7/15})
	}

	const leg = 6.65 // five 1.33-unit segments per leg
	apex := r2.Vec{X: 1.41, Y: math.Sqrt(leg*leg - 1.41*1.41)}
	base := r2.Vec{X: 2.82, Y: 0}
	for k := 1; k <= 5; k++ {
		pts = append(pts, r2.Scale(float64(k)/5, apex))
	}
	for k := 1; k <= 5; k++ {
		pts = append(pts, r2.Add(apex, r2.Scale(float64(k)/5, r2.Sub(base, apex))))
	}

	for k := 1; k <= 13; k++ {
		pts = append(pts, r2.Vec{X: 2.82, Y: -1.2 * float64(k)})
	}
	pts = append(pts, r2.Vec{X: 2.82, Y: -16.7})
	return pts
}

func mustSelfApproach(t *testing.T) *ClosedPath {
	t.Helper()
	path, err := BuildPath(selfApproachPoints())
	require.NoError(t, err)
	require.Equal(t, 40, path.Len())
	return path
}

func vec(x, y float64) *r2.Vec {
	return &r2.Vec{X: x, Y: y}
}

func at(p r2.Vec) *r2.Vec {
	return &p
}
