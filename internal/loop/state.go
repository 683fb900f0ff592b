package loop

// LapPhase is the lap-boundary state of a tracking session.
type LapPhase int

const (
	AwaitingFirstLap LapPhase = iota // No observation seen yet; start index not locked
	Tracking                         // Normal per-frame matching
	JustReset                        // Lap boundary signalled; next processed frame is forced to 0%
)

func (p LapPhase) String() string {
	switch p {
	case AwaitingFirstLap:
		return "awaiting_first_lap"
	case Tracking:
		return "tracking"
	case JustReset:
		return "just_reset"
	default:
		return "unknown"
	}
}

// TrackerState is the mutable per-session tracking state. It is passed
// into and returned from every Tracker.Step call; the zero value is a
// fresh session awaiting its first observation.
type TrackerState struct {
	StartIndex   int      // Path index locked as the 0% reference
	LastProgress float64  // Last reported progress (0-100)
	Phase        LapPhase // Lap-boundary phase
}

// NewTrackerState returns the state of a session that has not yet seen
// an observation.
func NewTrackerState() TrackerState {
	return TrackerState{Phase: AwaitingFirstLap}
}
