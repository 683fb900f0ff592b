package loop

// Accumulate converts a matched index into lap progress (0-100) measured
// forward from startIndex.
//
// When the previous report was past the completion guard and the new
// value falls back below it by more than the drop threshold, the match
// has stepped back across the loop seam near lap completion; progress is
// then reported as 100 instead of a large backward jump.
func Accumulate(path *ClosedPath, startIndex, matched int, lastProgress float64, cfg Config) (progress float64, completed bool) {
	arc := path.ArcLength(startIndex, matched)
	progress = clamp(arc/path.TotalLength()*100, 0, 100)

	if lastProgress > cfg.CompletionGuard &&
		progress < cfg.CompletionGuard &&
		lastProgress-progress > cfg.CompletionDropThreshold {
		return 100, true
	}
	return progress, false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
