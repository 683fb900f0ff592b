package ingest

import (
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"github.com/banshee-data/lapalign/internal/loop"
	"github.com/tormoder/fit"
	"gonum.org/v1/gonum/spatial/r2"
)

const earthRadiusMeters = 6371008.8

// Projection maps GPS positions onto a local east/north plane in metres,
// centred on an origin. Over a single circuit the equirectangular error
// is far below GPS noise.
type Projection struct {
	OriginLat float64 // degrees
	OriginLon float64 // degrees
}

// Project returns the planar position of (lat, lon) in metres.
func (p Projection) Project(lat, lon float64) r2.Vec {
	rad := math.Pi / 180
	return r2.Vec{
		X: earthRadiusMeters * (lon - p.OriginLon) * rad * math.Cos(p.OriginLat*rad),
		Y: earthRadiusMeters * (lat - p.OriginLat) * rad,
	}
}

// ParsePathFIT decodes a FIT activity and returns the positions of its
// first lap as the reference loop, projected around the first fix.
func ParsePathFIT(r io.Reader) ([]r2.Vec, *Projection, error) {
	act, err := decodeActivity(r)
	if err != nil {
		return nil, nil, err
	}
	return pathFromActivity(act)
}

// ParseFramesFIT decodes a FIT activity into frames, one per record in
// timestamp order. Records without a position fix become absent frames
// and every lap start after the first raises the lap-boundary signal.
func ParseFramesFIT(r io.Reader, proj Projection) ([]loop.Frame, error) {
	act, err := decodeActivity(r)
	if err != nil {
		return nil, err
	}
	return framesFromActivity(act, proj)
}

func decodeActivity(r io.Reader) (*fit.ActivityFile, error) {
	decoded, err := fit.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode FIT file: %w", err)
	}
	act, err := decoded.Activity()
	if err != nil {
		return nil, fmt.Errorf("activity FIT expected: %w", err)
	}
	return act, nil
}

func pathFromActivity(act *fit.ActivityFile) ([]r2.Vec, *Projection, error) {
	records := sortedRecords(act.Records)

	end := time.Time{}
	if starts := lapStarts(act.Laps); len(starts) > 1 {
		end = starts[1]
	}

	var (
		proj   *Projection
		points []r2.Vec
	)
	for _, rec := range records {
		if !end.IsZero() && !rec.Timestamp.Before(end) {
			break
		}
		lat, lon, ok := position(rec)
		if !ok {
			continue
		}
		if proj == nil {
			proj = &Projection{OriginLat: lat, OriginLon: lon}
		}
		points = append(points, proj.Project(lat, lon))
	}
	if len(points) < 2 {
		return nil, nil, fmt.Errorf("%w: FIT reference lap has %d positions", ErrMalformedInput, len(points))
	}
	return points, proj, nil
}

func framesFromActivity(act *fit.ActivityFile, proj Projection) ([]loop.Frame, error) {
	records := sortedRecords(act.Records)
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: FIT recording has no records", ErrMalformedInput)
	}

	starts := lapStarts(act.Laps)
	next := 1 // the first lap start is the session start, not a boundary

	frames := make([]loop.Frame, len(records))
	for i, rec := range records {
		f := loop.Frame{Index: i}
		for next < len(starts) && !rec.Timestamp.Before(starts[next]) {
			f.LapBoundary = true
			next++
		}
		if lat, lon, ok := position(rec); ok {
			p := proj.Project(lat, lon)
			f.Observation = &p
		}
		frames[i] = f
	}
	return frames, nil
}

func sortedRecords(in []*fit.RecordMsg) []*fit.RecordMsg {
	out := make([]*fit.RecordMsg, 0, len(in))
	for _, rec := range in {
		if rec != nil {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

func lapStarts(laps []*fit.LapMsg) []time.Time {
	var starts []time.Time
	for _, lap := range laps {
		if lap == nil || lap.StartTime.IsZero() || fit.IsBaseTime(lap.StartTime) {
			continue
		}
		starts = append(starts, lap.StartTime)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })
	return starts
}

func position(rec *fit.RecordMsg) (lat, lon float64, ok bool) {
	if rec.PositionLat.Invalid() || rec.PositionLong.Invalid() {
		return 0, 0, false
	}
	return rec.PositionLat.Degrees(), rec.PositionLong.Degrees(), true
}
