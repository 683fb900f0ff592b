package loop

import "gonum.org/v1/gonum/spatial/r2"

// Candidate is a path index paired with its distance to an observation.
type Candidate struct {
	Index    int
	Distance float64
}

// CandidateSet holds the per-frame matches within tolerance of an
// observation, plus the globally nearest index as a fallback. It is
// never retained across frames.
type CandidateSet struct {
	Candidates []Candidate // index order
	Nearest    Candidate
}

// Empty reports whether no path point lies within tolerance.
func (s CandidateSet) Empty() bool { return len(s.Candidates) == 0 }

// Search scans the path once and returns the candidates within radius
// of obs together with the global nearest index. It does not mutate
// anything.
func Search(obs r2.Vec, path *ClosedPath, radius float64) CandidateSet {
	set := CandidateSet{Nearest: Candidate{Index: -1}}
	for i, q := range path.points {
		d := r2.Norm(r2.Sub(obs, q))
		if set.Nearest.Index < 0 || d < set.Nearest.Distance {
			set.Nearest = Candidate{Index: i, Distance: d}
		}
		if d <= radius {
			set.Candidates = append(set.Candidates, Candidate{Index: i, Distance: d})
		}
	}
	return set
}
