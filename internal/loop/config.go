package loop

import "github.com/banshee-data/lapalign/internal/config"

// Config holds the tunable thresholds for a Tracker.
type Config struct {
	ToleranceRadius         float64 // Max observation-to-path distance for a candidate (path units)
	SearchWindow            int     // Indices either side of the start searched by the lap-start guard
	ResampleSpacing         float64 // Arc-length spacing for path resampling; 0 keeps the raw points
	CompletionDropThreshold float64 // Backward drop (percentage points) treated as lap completion
	CompletionGuard         float64 // Progress (%) above which a drop may be lap completion
	NearStartThreshold      float64 // Below this progress (%) matches prefer the start region
	SanityPreviousMax       float64 // Lap-start guard applies when the last progress is below this (%)
	SanityImplausible       float64 // Fresh progress (%) above this is implausible right after the start
}

// DefaultConfig returns the built-in tuning defaults.
func DefaultConfig() Config {
	return ConfigFromTuning(config.EmptyTuningConfig())
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		ToleranceRadius:         cfg.GetToleranceRadius(),
		SearchWindow:            cfg.GetSearchWindow(),
		ResampleSpacing:         cfg.GetResampleSpacing(),
		CompletionDropThreshold: cfg.GetCompletionDropThreshold(),
		CompletionGuard:         cfg.GetCompletionGuard(),
		NearStartThreshold:      cfg.GetNearStartThreshold(),
		SanityPreviousMax:       cfg.GetSanityPreviousMax(),
		SanityImplausible:       cfg.GetSanityImplausible(),
	}
}
