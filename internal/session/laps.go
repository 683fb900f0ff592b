package session

import (
	"github.com/banshee-data/lapalign/internal/loop"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// assignLaps numbers each sample's lap in place and returns the lap
// boundaries as [start, end) sample offsets.
func assignLaps(samples []Sample) [][2]int {
	var bounds [][2]int
	lap := 0
	for i := range samples {
		switch samples[i].Reason {
		case loop.ReasonStartLocked, loop.ReasonLapReset:
			if lap > 0 {
				bounds[len(bounds)-1][1] = i
			}
			lap++
			bounds = append(bounds, [2]int{i, len(samples)})
		}
		samples[i].Lap = lap
	}
	return bounds
}

// summariseLap reduces one lap's samples.
func summariseLap(number int, samples []Sample) Lap {
	lap := Lap{
		Number:     number,
		FirstFrame: samples[0].Frame,
		LastFrame:  samples[len(samples)-1].Frame,
		Frames:     len(samples),
	}

	var dists []float64
	for _, s := range samples {
		if s.Skipped {
			lap.Skipped++
			continue
		}
		if s.LowConfidence {
			lap.LowConfidence++
		}
		if s.Reason == loop.ReasonLapComplete {
			lap.Completed = true
		}
		if s.Progress > lap.PeakProgress {
			lap.PeakProgress = s.Progress
		}
		lap.FinalProgress = s.Progress
		if s.Matched {
			dists = append(dists, s.RawDistance)
		}
	}

	if len(dists) > 0 {
		lap.MeanRawDistance = stat.Mean(dists, nil)
		lap.MaxRawDistance = floats.Max(dists)
	}
	return lap
}
