package loop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccumulate(t *testing.T) {
	t.Parallel()

	path, err := BuildPath(squarePoints(10)) // total 40, indices at 0/10/20/30
	require.NoError(t, err)
	cfg := DefaultConfig()

	tests := []struct {
		name          string
		start         int
		matched       int
		last          float64
		wantProgress  float64
		wantCompleted bool
	}{
		{name: "at start", start: 0, matched: 0, last: 0, wantProgress: 0},
		{name: "quarter lap", start: 0, matched: 1, last: 10, wantProgress: 25},
		{name: "half lap from shifted start", start: 2, matched: 0, last: 30, wantProgress: 50},
		{name: "wrap behind start", start: 1, matched: 0, last: 60, wantProgress: 75},
		{name: "seam step back near completion", start: 1, matched: 1, last: 95, wantProgress: 100, wantCompleted: true},
		{name: "small drop is not completion", start: 0, matched: 3, last: 77, wantProgress: 75},
		{name: "large drop from above guard", start: 0, matched: 3, last: 91, wantProgress: 100, wantCompleted: true},
		{name: "last exactly at guard", start: 0, matched: 0, last: 90, wantProgress: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			progress, completed := Accumulate(path, tc.start, tc.matched, tc.last, cfg)
			if tc.wantCompleted {
				assert.Equal(t, 100.0, progress)
			} else {
				assert.InDelta(t, tc.wantProgress, progress, 1e-9)
			}
			assert.Equal(t, tc.wantCompleted, completed)
		})
	}
}

func TestAccumulateCompletionThreshold(t *testing.T) {
	t.Parallel()

	path := mustCircle(t, 100, 200)
	cfg := DefaultConfig()

	// 89% after 91.5%: a 2.5-point drop is within the threshold.
	progress, completed := Accumulate(path, 0, 89, 91.5, cfg)
	assert.False(t, completed)
	assert.InDelta(t, 89, progress, 1e-6)

	// 88% after 92%: 4 points back across the guard counts as completion.
	progress, completed = Accumulate(path, 0, 88, 92, cfg)
	assert.True(t, completed)
	assert.Equal(t, 100.0, progress)

	cfg.CompletionDropThreshold = 10
	_, completed = Accumulate(path, 0, 88, 92, cfg)
	assert.False(t, completed)
}

func TestAccumulateStaysInRange(t *testing.T) {
	t.Parallel()

	path := mustSelfApproach(t)
	cfg := DefaultConfig()
	for start := 0; start < path.Len(); start++ {
		for matched := 0; matched < path.Len(); matched++ {
			p, _ := Accumulate(path, start, matched, 0, cfg)
			require.GreaterOrEqual(t, p, 0.0)
			require.LessOrEqual(t, p, 100.0)
		}
	}
}
