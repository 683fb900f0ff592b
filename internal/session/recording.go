package session

import (
	"time"

	"github.com/banshee-data/lapalign/internal/loop"
	"github.com/google/uuid"
)

// Input is one recording to analyse.
type Input struct {
	Label  string
	Frames []loop.Frame
}

// Sample is a per-frame result tagged with the lap it belongs to. Lap is
// 0 for frames before the start index was locked.
type Sample struct {
	loop.Result
	Lap int
}

// Lap summarises one lap. Lap 1 starts at the frame that locks the
// start index; every later lap starts at a forced-0 reset frame.
type Lap struct {
	Number          int
	FirstFrame      int
	LastFrame       int
	Frames          int
	FinalProgress   float64
	PeakProgress    float64
	Completed       bool // a completion step back to 100% was seen
	LowConfidence   int
	Skipped         int
	MeanRawDistance float64 // over matched frames; 0 when none matched
	MaxRawDistance  float64
}

// Recording is the analysed form of one Input.
type Recording struct {
	ID         uuid.UUID
	Label      string
	CreatedAt  time.Time
	StartIndex int // -1 if no observation ever locked the start
	PathLength float64
	PathPoints int
	Samples    []Sample
	Laps       []Lap
}

// CompletedLaps counts laps that reached completion.
func (r *Recording) CompletedLaps() int {
	n := 0
	for _, lap := range r.Laps {
		if lap.Completed {
			n++
		}
	}
	return n
}

// LowConfidenceFrames counts frames flagged low confidence.
func (r *Recording) LowConfidenceFrames() int {
	n := 0
	for _, s := range r.Samples {
		if s.LowConfidence {
			n++
		}
	}
	return n
}
