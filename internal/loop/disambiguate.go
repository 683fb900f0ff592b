package loop

import "math"

// Rule names which disambiguation rule produced a Selection.
type Rule string

const (
	RuleSingle    Rule = "single"     // exactly one candidate
	RuleFallback  Rule = "fallback"   // no candidate; global nearest used
	RuleNearStart Rule = "near_start" // closest index to the locked start
	RuleExpected  Rule = "expected"   // closest circular index to the projected position
	RuleWindow    Rule = "window"     // lap-start guard re-match inside the search window
)

// Selection is the outcome of disambiguating one CandidateSet.
type Selection struct {
	Candidate
	Rule          Rule
	LowConfidence bool
}

// Disambiguate selects exactly one index from set using the lap-phase
// context in state. Rules apply in order:
//
//  1. a single candidate is returned as-is;
//  2. an empty set falls back to the global nearest index, flagged low
//     confidence;
//  3. just after a reset, or below the near-start threshold, the
//     candidate with the smallest |index - StartIndex| wins;
//  4. otherwise the candidate with the smallest circular index distance
//     to the zero-order projection of LastProgress wins.
//
// Ties in rules 3 and 4 go to the smaller raw distance, then the lower
// index, so the result never depends on candidate order.
func Disambiguate(set CandidateSet, path *ClosedPath, state TrackerState, cfg Config) Selection {
	switch len(set.Candidates) {
	case 0:
		return Selection{Candidate: set.Nearest, Rule: RuleFallback, LowConfidence: true}
	case 1:
		return Selection{Candidate: set.Candidates[0], Rule: RuleSingle}
	}

	if state.Phase == JustReset || state.LastProgress < cfg.NearStartThreshold {
		start := state.StartIndex
		best := pickBest(set.Candidates, func(c Candidate) int {
			return absInt(c.Index - start)
		})
		return Selection{Candidate: best, Rule: RuleNearStart}
	}

	n := path.Len()
	expected := ExpectedIndex(path, state.LastProgress)
	best := pickBest(set.Candidates, func(c Candidate) int {
		return circularDistance(c.Index, expected, n)
	})
	return Selection{Candidate: best, Rule: RuleExpected}
}

// ExpectedIndex projects the last reported progress back onto a path
// index: round(progress/100 * total / averageSegment) mod N. No velocity
// term is modelled.
func ExpectedIndex(path *ClosedPath, lastProgress float64) int {
	n := path.Len()
	idx := int(math.Round(lastProgress / 100 * path.TotalLength() / path.AverageSegmentLength()))
	idx %= n
	if idx < 0 {
		idx += n
	}
	return idx
}

// pickBest returns the candidate minimising key, then raw distance, then
// index. The ordering is total, so the scan order does not matter.
func pickBest(cands []Candidate, key func(Candidate) int) Candidate {
	best := cands[0]
	bestKey := key(best)
	for _, c := range cands[1:] {
		k := key(c)
		switch {
		case k < bestKey:
		case k == bestKey && c.Distance < best.Distance:
		case k == bestKey && c.Distance == best.Distance && c.Index < best.Index:
		default:
			continue
		}
		best, bestKey = c, k
	}
	return best
}

func circularDistance(a, b, n int) int {
	d := absInt(a - b)
	if n-d < d {
		return n - d
	}
	return d
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
