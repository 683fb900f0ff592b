package loop

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// validateLapStart re-matches an observation whose progress is
// implausible right after a near-zero report. The re-match ignores the
// tolerance radius and considers only indices within SearchWindow of the
// start (wrapping around the seam), choosing the closest by raw distance.
//
// A plausible re-match replaces the result. Otherwise the original
// result is returned unchanged apart from the low-confidence flag.
func (t *Tracker) validateLapStart(state TrackerState, obs r2.Vec, res Result) Result {
	best := t.nearestInWindow(obs, state.StartIndex, t.cfg.SearchWindow)
	progress, _ := Accumulate(t.path, state.StartIndex, best.Index, state.LastProgress, t.cfg)

	if progress > t.cfg.SanityImplausible {
		res.LowConfidence = true
		res.Reason = ReasonLapStartImplausible
		return res
	}

	res.Progress = progress
	res.MatchedIndex = best.Index
	res.RawDistance = best.Distance
	res.LowConfidence = best.Distance > t.cfg.ToleranceRadius
	res.Rule = RuleWindow
	res.Reason = ReasonLapStartCorrected
	return res
}

// nearestInWindow returns the index within ±window of start closest to
// obs. Ties resolve to the lower index.
func (t *Tracker) nearestInWindow(obs r2.Vec, start, window int) Candidate {
	n := t.path.Len()
	if window < 0 {
		window = 0
	}
	if 2*window+1 >= n {
		return t.path.NearestIndex(obs)
	}

	best := Candidate{Index: -1, Distance: math.Inf(1)}
	for off := -window; off <= window; off++ {
		idx := ((start+off)%n + n) % n
		d := r2.Norm(r2.Sub(obs, t.path.points[idx]))
		if d < best.Distance || (d == best.Distance && idx < best.Index) {
			best = Candidate{Index: idx, Distance: d}
		}
	}
	return best
}
