package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for the lap progress
// tracker. Every field is optional; the Get* accessors supply the
// built-in default when a field is omitted, so partial files are safe.
//
// The defaults were tuned against one reference loop drawn in map
// pixels. Other loops are expected to need their own values.
type TuningConfig struct {
	// Matching params
	ToleranceRadius *float64 `json:"tolerance_radius,omitempty"` // path units
	SearchWindow    *int     `json:"search_window,omitempty"`    // indices either side of the start
	ResampleSpacing *float64 `json:"resample_spacing,omitempty"` // 0 disables resampling

	// Lap completion params
	CompletionDropThreshold *float64 `json:"completion_drop_threshold,omitempty"` // percentage points
	CompletionGuard         *float64 `json:"completion_guard,omitempty"`          // percent

	// Lap start params
	NearStartThreshold *float64 `json:"near_start_threshold,omitempty"` // percent
	SanityPreviousMax  *float64 `json:"sanity_previous_max,omitempty"`  // percent
	SanityImplausible  *float64 `json:"sanity_implausible,omitempty"`   // percent
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated
// from the built-in defaults.
func DefaultTuningConfig() *TuningConfig {
	empty := EmptyTuningConfig()
	return &TuningConfig{
		ToleranceRadius:         ptrFloat64(empty.GetToleranceRadius()),
		SearchWindow:            ptrInt(empty.GetSearchWindow()),
		ResampleSpacing:         ptrFloat64(empty.GetResampleSpacing()),
		CompletionDropThreshold: ptrFloat64(empty.GetCompletionDropThreshold()),
		CompletionGuard:         ptrFloat64(empty.GetCompletionGuard()),
		NearStartThreshold:      ptrFloat64(empty.GetNearStartThreshold()),
		SanityPreviousMax:       ptrFloat64(empty.GetSanityPreviousMax()),
		SanityImplausible:       ptrFloat64(empty.GetSanityImplausible()),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from cmd/lapalign/ and deeper
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.ToleranceRadius != nil {
		if !(*c.ToleranceRadius > 0) || math.IsInf(*c.ToleranceRadius, 0) {
			return fmt.Errorf("tolerance_radius must be positive and finite, got %f", *c.ToleranceRadius)
		}
	}

	if c.SearchWindow != nil && *c.SearchWindow < 0 {
		return fmt.Errorf("search_window must be non-negative, got %d", *c.SearchWindow)
	}

	if c.ResampleSpacing != nil {
		if *c.ResampleSpacing < 0 || math.IsNaN(*c.ResampleSpacing) || math.IsInf(*c.ResampleSpacing, 0) {
			return fmt.Errorf("resample_spacing must be zero (disabled) or positive, got %f", *c.ResampleSpacing)
		}
	}

	if c.CompletionDropThreshold != nil && *c.CompletionDropThreshold < 0 {
		return fmt.Errorf("completion_drop_threshold must be non-negative, got %f", *c.CompletionDropThreshold)
	}

	for name, v := range map[string]*float64{
		"completion_guard":     c.CompletionGuard,
		"near_start_threshold": c.NearStartThreshold,
		"sanity_previous_max":  c.SanityPreviousMax,
		"sanity_implausible":   c.SanityImplausible,
	} {
		if v == nil {
			continue
		}
		if *v < 0 || *v > 100 || math.IsNaN(*v) {
			return fmt.Errorf("%s must be between 0 and 100, got %f", name, *v)
		}
	}

	if c.GetSanityPreviousMax() > c.GetSanityImplausible() {
		return fmt.Errorf("sanity_previous_max (%f) must not exceed sanity_implausible (%f)",
			c.GetSanityPreviousMax(), c.GetSanityImplausible())
	}

	return nil
}

// GetToleranceRadius returns the tolerance_radius value or the default.
func (c *TuningConfig) GetToleranceRadius() float64 {
	if c.ToleranceRadius == nil {
		return 3.0
	}
	return *c.ToleranceRadius
}

// GetSearchWindow returns the search_window value or the default.
func (c *TuningConfig) GetSearchWindow() int {
	if c.SearchWindow == nil {
		return 50
	}
	return *c.SearchWindow
}

// GetResampleSpacing returns the resample_spacing value or the default.
func (c *TuningConfig) GetResampleSpacing() float64 {
	if c.ResampleSpacing == nil {
		return 0 // default: keep the supplied points
	}
	return *c.ResampleSpacing
}

// GetCompletionDropThreshold returns the completion_drop_threshold value or the default.
func (c *TuningConfig) GetCompletionDropThreshold() float64 {
	if c.CompletionDropThreshold == nil {
		return 3.0
	}
	return *c.CompletionDropThreshold
}

// GetCompletionGuard returns the completion_guard value or the default.
func (c *TuningConfig) GetCompletionGuard() float64 {
	if c.CompletionGuard == nil {
		return 90.0
	}
	return *c.CompletionGuard
}

// GetNearStartThreshold returns the near_start_threshold value or the default.
func (c *TuningConfig) GetNearStartThreshold() float64 {
	if c.NearStartThreshold == nil {
		return 5.0
	}
	return *c.NearStartThreshold
}

// GetSanityPreviousMax returns the sanity_previous_max value or the default.
func (c *TuningConfig) GetSanityPreviousMax() float64 {
	if c.SanityPreviousMax == nil {
		return 2.0
	}
	return *c.SanityPreviousMax
}

// GetSanityImplausible returns the sanity_implausible value or the default.
func (c *TuningConfig) GetSanityImplausible() float64 {
	if c.SanityImplausible == nil {
		return 5.0
	}
	return *c.SanityImplausible
}
