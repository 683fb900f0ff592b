package loop

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
)

func TestStepLocksStartOnFirstObservation(t *testing.T) {
	t.Parallel()

	path := mustCircle(t, 100, 200)
	tracker := NewTracker(path, DefaultConfig())

	// Far outside tolerance: the one-time lock ignores the radius.
	obs := r2.Scale(1.5, path.Point(37))
	res, state := tracker.Step(NewTrackerState(), Frame{Index: 0, Observation: &obs})

	assert.Equal(t, 37, state.StartIndex)
	assert.Equal(t, Tracking, state.Phase)
	assert.Zero(t, state.LastProgress)

	assert.Zero(t, res.Progress)
	assert.True(t, res.Matched)
	assert.Equal(t, 37, res.MatchedIndex)
	assert.Equal(t, ReasonStartLocked, res.Reason)
	assert.Equal(t, Tracking, res.Phase)
}

func TestStepAbsentObservationHoldsProgress(t *testing.T) {
	t.Parallel()

	path := mustCircle(t, 100, 200)
	tracker := NewTracker(path, DefaultConfig())

	t.Run("before the first lock", func(t *testing.T) {
		t.Parallel()
		res, state := tracker.Step(NewTrackerState(), Frame{Index: 3})
		assert.True(t, res.Skipped)
		assert.Equal(t, ReasonAbsent, res.Reason)
		assert.Equal(t, -1, res.MatchedIndex)
		assert.Equal(t, NewTrackerState(), state)
	})

	t.Run("while tracking", func(t *testing.T) {
		t.Parallel()
		in := TrackerState{StartIndex: 0, LastProgress: 42.5, Phase: Tracking}
		res, state := tracker.Step(in, Frame{Index: 9})
		assert.True(t, res.Skipped)
		assert.False(t, res.Matched)
		assert.Equal(t, 42.5, res.Progress)
		assert.Equal(t, in, state)
	})

	t.Run("lap boundary during a gap still forces the next frame to 0", func(t *testing.T) {
		t.Parallel()
		in := TrackerState{StartIndex: 0, LastProgress: 97, Phase: Tracking}
		res, state := tracker.Step(in, Frame{Index: 10, LapBoundary: true})
		assert.True(t, res.Skipped)
		assert.Equal(t, 97.0, res.Progress)
		assert.Equal(t, JustReset, state.Phase)

		res, state = tracker.Step(state, Frame{Index: 11, Observation: at(path.Point(40))})
		assert.Equal(t, 0.0, res.Progress)
		assert.False(t, res.Matched)
		assert.Equal(t, Tracking, state.Phase)
	})
}

func TestStepNonFiniteObservationIsAbsent(t *testing.T) {
	t.Parallel()

	path := mustCircle(t, 100, 200)
	tracker := NewTracker(path, DefaultConfig())

	bad := []struct {
		name string
		obs  r2.Vec
	}{
		{name: "NaN x", obs: r2.Vec{X: math.NaN(), Y: 0}},
		{name: "NaN y", obs: r2.Vec{X: 1, Y: math.NaN()}},
		{name: "positive infinity", obs: r2.Vec{X: math.Inf(1), Y: 0}},
		{name: "negative infinity", obs: r2.Vec{X: 0, Y: math.Inf(-1)}},
	}
	for _, tc := range bad {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			obs := tc.obs
			res, state := tracker.Step(NewTrackerState(), Frame{Index: 0, Observation: &obs})
			assert.True(t, res.Skipped)
			assert.False(t, res.Matched)
			assert.Equal(t, -1, res.MatchedIndex)
			assert.Equal(t, ReasonAbsent, res.Reason)
			assert.Equal(t, NewTrackerState(), state)

			// The next real observation locks the start normally.
			res, state = tracker.Step(state, Frame{Index: 1, Observation: at(path.Point(3))})
			assert.Equal(t, ReasonStartLocked, res.Reason)
			assert.Equal(t, 3, state.StartIndex)

			res, state = tracker.Step(state, Frame{Index: 2, Observation: at(path.Point(5))})
			assert.True(t, res.Matched)
			assert.GreaterOrEqual(t, res.MatchedIndex, 0)
			assert.GreaterOrEqual(t, res.Progress, 0.0)

			// While tracking, progress is held.
			held := state.LastProgress
			res, state = tracker.Step(state, Frame{Index: 3, Observation: &obs})
			assert.True(t, res.Skipped)
			assert.Equal(t, held, res.Progress)
			assert.Equal(t, held, state.LastProgress)
		})
	}
}

// A pending reset always yields exactly 0 and no match.
func TestStepForcedReset(t *testing.T) {
	t.Parallel()

	path := mustCircle(t, 100, 200)
	tracker := NewTracker(path, DefaultConfig())

	observations := []r2.Vec{path.Point(0), path.Point(50), path.Point(99), {X: 1e6, Y: -1e6}}
	for _, obs := range observations {
		in := TrackerState{StartIndex: 0, LastProgress: 99.5, Phase: JustReset}
		res, state := tracker.Step(in, Frame{Index: 5, Observation: at(obs)})

		want := Result{
			Frame:        5,
			Progress:     0,
			MatchedIndex: -1,
			Reason:       ReasonLapReset,
			Phase:        Tracking,
		}
		if diff := cmp.Diff(want, res); diff != "" {
			t.Errorf("reset result mismatch for %v (-want +got):\n%s", obs, diff)
		}
		assert.Equal(t, TrackerState{StartIndex: 0, LastProgress: 0, Phase: Tracking}, state)
	}
}

func TestStepLapBoundarySignal(t *testing.T) {
	t.Parallel()

	path := mustCircle(t, 100, 200)
	tracker := NewTracker(path, DefaultConfig())

	in := TrackerState{StartIndex: 0, LastProgress: 98, Phase: Tracking}
	res, state := tracker.Step(in, Frame{Index: 1, Observation: at(path.Point(1)), LapBoundary: true})
	assert.Equal(t, 0.0, res.Progress)
	assert.False(t, res.Matched)
	assert.Equal(t, ReasonLapReset, res.Reason)
	assert.Equal(t, Tracking, state.Phase)
	assert.Zero(t, state.LastProgress)
	assert.Equal(t, 0, state.StartIndex, "start index is locked once per session")

	// A boundary before the first lock is ignored; the lock itself emits 0.
	res, state = tracker.Step(NewTrackerState(), Frame{Observation: at(path.Point(5)), LapBoundary: true})
	assert.Equal(t, ReasonStartLocked, res.Reason)
	assert.Equal(t, 5, state.StartIndex)
}

// One clean lap around a 100-point circle.
func TestStepFullLoopMonotonic(t *testing.T) {
	t.Parallel()

	path := mustCircle(t, 100, 200)
	tracker := NewTracker(path, DefaultConfig())

	var frames []Frame
	for i := 0; i < path.Len(); i++ {
		frames = append(frames, Frame{Index: i, Observation: at(path.Point(i))})
	}
	// Closing the loop: back over the start and one step beyond.
	frames = append(frames,
		Frame{Index: 100, Observation: at(path.Point(0))},
		Frame{Index: 101, Observation: at(path.Point(1))},
	)

	state := NewTrackerState()
	var results []Result
	for _, f := range frames {
		var res Result
		res, state = tracker.Step(state, f)
		results = append(results, res)
	}

	completions := 0
	for i := 1; i < len(results); i++ {
		prev, cur := results[i-1].Progress, results[i].Progress
		if results[i].Reason == ReasonLapComplete {
			completions++
			assert.Equal(t, 100.0, cur)
			continue
		}
		assert.GreaterOrEqual(t, cur, prev-1, "frame %d stepped back from %.3f to %.3f", i, prev, cur)
		assert.GreaterOrEqual(t, cur, prev-1e-9, "frame %d not monotonic", i)
		assert.False(t, results[i].LowConfidence, "frame %d low confidence", i)
	}
	assert.Equal(t, 1, completions)
	assert.GreaterOrEqual(t, results[len(results)-1].Progress, 95.0)
	assert.InDelta(t, 98.0, results[99].Progress, 1e-6)
}

// Nothing within tolerance falls back to the global nearest.
func TestStepNoCandidateWithinTolerance(t *testing.T) {
	t.Parallel()

	path := mustCircle(t, 100, 200)
	tracker := NewTracker(path, DefaultConfig())

	obs := r2.Vec{X: 1000, Y: 1000}
	in := TrackerState{StartIndex: 0, LastProgress: 50, Phase: Tracking}
	res, _ := tracker.Step(in, Frame{Observation: &obs})

	assert.True(t, res.LowConfidence)
	assert.Equal(t, path.NearestIndex(obs).Index, res.MatchedIndex)
	assert.Zero(t, res.CandidateCount)
	assert.Equal(t, ReasonNoCandidate, res.Reason)
	assert.Equal(t, RuleFallback, res.Rule)
}

// Self-approach end to end: the tie resolves to the index nearer the start.
func TestStepSelfApproachTie(t *testing.T) {
	t.Parallel()

	path := mustSelfApproach(t)
	cfg := DefaultConfig()
	cfg.ToleranceRadius = 1.5
	tracker := NewTracker(path, cfg)

	in := TrackerState{StartIndex: 0, LastProgress: 0, Phase: Tracking}
	res, state := tracker.Step(in, Frame{Observation: vec(1.41, 0)})

	assert.Equal(t, 15, res.MatchedIndex)
	assert.Equal(t, 2, res.CandidateCount)
	assert.InDelta(t, 16.7/path.TotalLength()*100, res.Progress, 1e-9)
	// 33.7% straight after 0% cannot be corrected inside the start
	// window, so it is passed through and flagged.
	assert.True(t, res.LowConfidence)
	assert.Equal(t, ReasonLapStartImplausible, res.Reason)
	assert.Equal(t, res.Progress, state.LastProgress)
}

func TestStepLapStartGuard(t *testing.T) {
	t.Parallel()

	t.Run("corrects a spurious far match", func(t *testing.T) {
		t.Parallel()
		path := mustSelfApproach(t)
		cfg := DefaultConfig()
		cfg.ToleranceRadius = 1.0
		cfg.SearchWindow = 5
		tracker := NewTracker(path, cfg)

		// Nothing within 1.0; the global nearest is 25 (1.32 away), but
		// inside 15±5 the closest point is the start itself (1.5 away).
		in := TrackerState{StartIndex: 15, LastProgress: 0, Phase: Tracking}
		res, state := tracker.Step(in, Frame{Observation: vec(1.5, 0)})

		assert.Equal(t, 15, res.MatchedIndex)
		assert.InDelta(t, 0.0, res.Progress, 1e-9)
		assert.Equal(t, RuleWindow, res.Rule)
		assert.Equal(t, ReasonLapStartCorrected, res.Reason)
		assert.True(t, res.LowConfidence, "corrected match is still outside tolerance")
		assert.InDelta(t, 1.5, res.RawDistance, 1e-9)
		assert.InDelta(t, 0.0, state.LastProgress, 1e-9)
	})

	t.Run("flags an uncorrectable jump", func(t *testing.T) {
		t.Parallel()
		path := mustCircle(t, 100, 200)
		cfg := DefaultConfig()
		cfg.SearchWindow = 10
		tracker := NewTracker(path, cfg)

		in := TrackerState{StartIndex: 0, LastProgress: 0, Phase: Tracking}
		res, _ := tracker.Step(in, Frame{Observation: at(path.Point(60))})

		assert.Equal(t, 59, res.MatchedIndex)
		assert.InDelta(t, 59.0, res.Progress, 1e-6)
		assert.True(t, res.LowConfidence)
		assert.Equal(t, ReasonLapStartImplausible, res.Reason)
	})

	t.Run("does not run once progress is established", func(t *testing.T) {
		t.Parallel()
		path := mustCircle(t, 100, 200)
		tracker := NewTracker(path, DefaultConfig())

		in := TrackerState{StartIndex: 0, LastProgress: 10, Phase: Tracking}
		res, _ := tracker.Step(in, Frame{Observation: at(path.Point(30))})
		assert.NotEqual(t, ReasonLapStartImplausible, res.Reason)
		assert.NotEqual(t, ReasonLapStartCorrected, res.Reason)
	})
}

func TestNearestInWindowWrapsAroundSeam(t *testing.T) {
	t.Parallel()

	path := mustCircle(t, 100, 200)
	cfg := DefaultConfig()
	cfg.SearchWindow = 3
	tracker := NewTracker(path, cfg)

	got := tracker.nearestInWindow(path.Point(98), 1, cfg.SearchWindow)
	assert.Equal(t, 98, got.Index)

	// Point 50 is outside 1±3; the closest index in the window is 4.
	got = tracker.nearestInWindow(path.Point(50), 1, cfg.SearchWindow)
	assert.Equal(t, 4, got.Index)
}

func TestNegativeSearchWindowIsClamped(t *testing.T) {
	t.Parallel()

	path := mustCircle(t, 100, 200)
	cfg := DefaultConfig()
	cfg.SearchWindow = -4
	tracker := NewTracker(path, cfg)

	got := tracker.nearestInWindow(path.Point(50), 7, cfg.SearchWindow)
	assert.Equal(t, 7, got.Index)

	// The lap-start guard runs (0% then 30%) and re-matches onto the start.
	in := TrackerState{StartIndex: 0, LastProgress: 0, Phase: Tracking}
	res, _ := tracker.Step(in, Frame{Index: 1, Observation: at(path.Point(30))})
	assert.Equal(t, 0, res.MatchedIndex)
	assert.Equal(t, ReasonLapStartCorrected, res.Reason)
	assert.Zero(t, res.Progress)
}

func TestStepNoiseStability(t *testing.T) {
	t.Parallel()

	path := mustCircle(t, 100, 200)
	tracker := NewTracker(path, DefaultConfig())

	offsets := [][2]r2.Vec{
		{{X: 0.3, Y: 0.2}, {X: -0.4, Y: 0.5}},
		{{X: -0.5, Y: -0.5}, {X: 0.2, Y: -0.1}},
		{{X: 0.7, Y: 0}, {X: 0, Y: 0.6}},
	}
	for _, truth := range []int{20, 50, 75} {
		in := TrackerState{StartIndex: 0, LastProgress: float64(truth - 1), Phase: Tracking}
		for _, pair := range offsets {
			require.LessOrEqual(t, r2.Norm(r2.Sub(pair[0], pair[1])), 1.0)
			a, _ := tracker.Step(in, Frame{Observation: at(r2.Add(path.Point(truth), pair[0]))})
			b, _ := tracker.Step(in, Frame{Observation: at(r2.Add(path.Point(truth), pair[1]))})
			assert.Less(t, math.Abs(a.Progress-b.Progress), 0.5, "index %d offsets %v", truth, pair)
		}
	}
}

func TestStepIsDeterministic(t *testing.T) {
	t.Parallel()

	path := mustSelfApproach(t)
	cfg := DefaultConfig()
	cfg.ToleranceRadius = 2.5
	tracker := NewTracker(path, cfg)

	frames := []Frame{
		{Index: 0, Observation: vec(0, -16.5)},
		{Index: 1, Observation: vec(0.2, -10)},
		{Index: 2},
		{Index: 3, Observation: vec(1.41, 0.1)},
		{Index: 4, Observation: vec(1.3, 5.5)},
		{Index: 5, Observation: vec(2.7, -8)},
		{Index: 6, Observation: vec(1.0, -16.7), LapBoundary: true},
		{Index: 7, Observation: vec(0, -15)},
	}
	run := func() []Result {
		state := NewTrackerState()
		out := make([]Result, 0, len(frames))
		for _, f := range frames {
			var res Result
			res, state = tracker.Step(state, f)
			out = append(out, res)
		}
		return out
	}

	first := run()
	for i := 0; i < 5; i++ {
		if diff := cmp.Diff(first, run()); diff != "" {
			t.Fatalf("run %d differs (-first +got):\n%s", i, diff)
		}
	}
	assert.Equal(t, 0.0, first[6].Progress)
	assert.False(t, first[6].Matched)
}

func TestPreparePath(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	path, err := PreparePath(squarePoints(10), cfg)
	require.NoError(t, err)
	assert.Equal(t, 4, path.Len())

	cfg.ResampleSpacing = 2
	path, err = PreparePath(squarePoints(10), cfg)
	require.NoError(t, err)
	assert.Equal(t, 20, path.Len())

	_, err = PreparePath(nil, cfg)
	assert.ErrorIs(t, err, ErrDegeneratePath)
}

func TestLapPhaseString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "awaiting_first_lap", AwaitingFirstLap.String())
	assert.Equal(t, "tracking", Tracking.String())
	assert.Equal(t, "just_reset", JustReset.String())
	assert.Equal(t, "unknown", LapPhase(9).String())
}
