// Package playback provides the audio playback state machine with its queue.
package playback

// State represents the playback state.
type State int

const (
	StateEmpty   State = iota // No queue
	StateReady                // Queue loaded, not playing
	StateLoading              // Audio resource is loading
	StatePlaying              // Track is playing
	StatePaused               // Track is paused
	StateErrored              // Last playback attempt failed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateReady:
		return "ready"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// ParseState parses the string form produced by String.
func ParseState(s string) (State, bool) {
	for st := StateEmpty; st <= StateErrored; st++ {
		if st.String() == s {
			return st, true
		}
	}
	return StateEmpty, false
}
