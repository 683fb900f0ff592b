package loop

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Reason explains how a Result was produced.
type Reason string

const (
	ReasonStartLocked         Reason = "start_locked"
	ReasonLapReset            Reason = "lap_reset"
	ReasonAbsent              Reason = "absent"
	ReasonMatched             Reason = "matched"
	ReasonNoCandidate         Reason = "no_candidate_within_tolerance"
	ReasonLapComplete         Reason = "lap_complete"
	ReasonLapStartCorrected   Reason = "lap_start_corrected"
	ReasonLapStartImplausible Reason = "lap_start_implausible"
)

// Frame is one captured frame as seen by the tracker. A nil Observation
// means the marker was not detected. LapBoundary is the edge-triggered
// "lap boundary crossed" signal for this frame.
type Frame struct {
	Index       int
	Observation *r2.Vec
	LapBoundary bool
}

// Result is the per-frame output of the tracker.
type Result struct {
	Frame          int
	Progress       float64 // 0-100
	MatchedIndex   int     // -1 when no match was made
	Matched        bool
	RawDistance    float64 // observation to matched point
	CandidateCount int
	LowConfidence  bool
	Skipped        bool // observation absent; progress held
	Rule           Rule
	Reason         Reason
	Phase          LapPhase // phase after this frame
}

// Tracker runs the per-frame pipeline against one reference path. It
// holds no session state and may be shared by concurrent sessions.
type Tracker struct {
	path *ClosedPath
	cfg  Config
}

// NewTracker creates a Tracker over path using cfg.
func NewTracker(path *ClosedPath, cfg Config) *Tracker {
	return &Tracker{path: path, cfg: cfg}
}

// PreparePath builds the reference path from raw points and, when
// cfg.ResampleSpacing is positive, resamples it to uniform spacing.
func PreparePath(points []r2.Vec, cfg Config) (*ClosedPath, error) {
	path, err := BuildPath(points)
	if err != nil {
		return nil, err
	}
	if cfg.ResampleSpacing > 0 {
		path, err = path.Resample(cfg.ResampleSpacing)
		if err != nil {
			return nil, fmt.Errorf("prepare path: %w", err)
		}
	}
	return path, nil
}

// Path returns the reference path.
func (t *Tracker) Path() *ClosedPath { return t.path }

// Config returns the tracker configuration.
func (t *Tracker) Config() Config { return t.cfg }

// Step advances state by one frame and returns the frame's result with
// the updated state. Frames must be supplied in capture order.
func (t *Tracker) Step(state TrackerState, frame Frame) (Result, TrackerState) {
	res := Result{Frame: frame.Index, MatchedIndex: -1}

	if frame.LapBoundary && state.Phase == Tracking {
		state.Phase = JustReset
	}

	// A non-finite observation carries no position and is handled as absent.
	if frame.Observation == nil || !isFinite(*frame.Observation) {
		res.Progress = state.LastProgress
		res.Skipped = true
		res.Reason = ReasonAbsent
		res.Phase = state.Phase
		return res, state
	}
	obs := *frame.Observation

	switch state.Phase {
	case AwaitingFirstLap:
		nearest := t.path.NearestIndex(obs)
		state.StartIndex = nearest.Index
		state.LastProgress = 0
		state.Phase = Tracking

		res.Progress = 0
		res.MatchedIndex = nearest.Index
		res.Matched = true
		res.RawDistance = nearest.Distance
		res.CandidateCount = len(t.path.NearestIndices(obs, t.cfg.ToleranceRadius))
		res.Reason = ReasonStartLocked

	case JustReset:
		// Progress at the reset frame is 0 by definition.
		state.LastProgress = 0
		state.Phase = Tracking

		res.Progress = 0
		res.Reason = ReasonLapReset

	default:
		res = t.track(state, obs, res)
		state.LastProgress = res.Progress
	}

	res.Phase = state.Phase
	return res, state
}

// track runs candidate search, disambiguation, accumulation and the
// lap-start guard for one observation.
func (t *Tracker) track(state TrackerState, obs r2.Vec, res Result) Result {
	set := Search(obs, t.path, t.cfg.ToleranceRadius)
	sel := Disambiguate(set, t.path, state, t.cfg)
	progress, completed := Accumulate(t.path, state.StartIndex, sel.Index, state.LastProgress, t.cfg)

	res.Progress = progress
	res.MatchedIndex = sel.Index
	res.Matched = true
	res.RawDistance = sel.Distance
	res.CandidateCount = len(set.Candidates)
	res.LowConfidence = sel.LowConfidence
	res.Rule = sel.Rule
	switch {
	case completed:
		res.Reason = ReasonLapComplete
	case set.Empty():
		res.Reason = ReasonNoCandidate
	default:
		res.Reason = ReasonMatched
	}

	if state.LastProgress < t.cfg.SanityPreviousMax && progress > t.cfg.SanityImplausible {
		res = t.validateLapStart(state, obs, res)
	}
	return res
}

func isFinite(v r2.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}
