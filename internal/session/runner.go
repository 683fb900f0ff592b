package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/banshee-data/lapalign/internal/loop"
	"github.com/banshee-data/lapalign/internal/monitoring"
	"github.com/banshee-data/lapalign/internal/timeutil"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrNoFrames is returned for an Input with no frames.
var ErrNoFrames = errors.New("recording has no frames")

// cancelCheckInterval is how many frames Run processes between context
// checks.
const cancelCheckInterval = 1024

var logf = monitoring.Tagged("session")

// Runner analyses recordings against one tracker. It is safe for
// concurrent use.
type Runner struct {
	tracker *loop.Tracker
	clock   timeutil.Clock
	metrics *monitoring.Metrics
}

// NewRunner creates a Runner. A nil clock uses the wall clock; a nil
// metrics records nothing.
func NewRunner(tracker *loop.Tracker, clock timeutil.Clock, metrics *monitoring.Metrics) *Runner {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Runner{tracker: tracker, clock: clock, metrics: metrics}
}

// Run tracks every frame of in, in order, from a fresh state.
func (r *Runner) Run(ctx context.Context, in Input) (*Recording, error) {
	if len(in.Frames) == 0 {
		return nil, fmt.Errorf("%s: %w", in.Label, ErrNoFrames)
	}

	path := r.tracker.Path()
	rec := &Recording{
		ID:         uuid.New(),
		Label:      in.Label,
		CreatedAt:  r.clock.Now(),
		StartIndex: -1,
		PathLength: path.TotalLength(),
		PathPoints: path.Len(),
		Samples:    make([]Sample, 0, len(in.Frames)),
	}

	state := loop.NewTrackerState()
	for i, frame := range in.Frames {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("%s: %w", in.Label, err)
			}
		}
		var res loop.Result
		res, state = r.tracker.Step(state, frame)
		rec.Samples = append(rec.Samples, Sample{Result: res})
		r.metrics.ObserveFrame(string(res.Reason), res.LowConfidence)
	}
	if state.Phase != loop.AwaitingFirstLap {
		rec.StartIndex = state.StartIndex
	}

	for i, b := range assignLaps(rec.Samples) {
		rec.Laps = append(rec.Laps, summariseLap(i+1, rec.Samples[b[0]:b[1]]))
	}

	completed := rec.CompletedLaps()
	r.metrics.ObserveRecording(len(rec.Laps), completed)
	logf("%s: %d frames, %d laps (%d completed), %d low confidence, start index %d",
		rec.Label, len(rec.Samples), len(rec.Laps), completed, rec.LowConfidenceFrames(), rec.StartIndex)
	return rec, nil
}

// RunBatch analyses inputs concurrently, at most limit at a time (no
// limit when limit <= 0). Results are in input order. The first failure
// cancels the remaining work.
func (r *Runner) RunBatch(ctx context.Context, inputs []Input, limit int) ([]*Recording, error) {
	out := make([]*Recording, len(inputs))

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, in := range inputs {
		g.Go(func() error {
			rec, err := r.Run(ctx, in)
			if err != nil {
				return err
			}
			out[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
