package capture

import (
	"errors"
	"fmt"
)

// State is the capture flow position.
type State int

const (
	Loading State = iota
	Ready
	Confirming
	Captured
	// Failed is transient: observers see it between Confirming and Ready.
	Failed
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Confirming:
		return "confirming"
	case Captured:
		return "captured"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UI labels.
const (
	LabelCapture   = "capture"
	LabelAnalyzing = "analyzing..."
	LabelLoading   = "loading..."
)

// Label is the capture button text for s.
func (s State) Label() string {
	switch s {
	case Loading:
		return LabelLoading
	case Confirming:
		return LabelAnalyzing
	default:
		return LabelCapture
	}
}

var (
	ErrNotReady = errors.New("capture: detector not ready")
	ErrBusy     = errors.New("capture: confirmation in progress")
	ErrCaptured = errors.New("capture: already captured")
	ErrNoFace   = errors.New("capture: no face detected")
)

// TransitionError reports an event that is not valid in the current state.
type TransitionError struct {
	From  State
	Event string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("capture: %s not allowed in state %s", e.Event, e.From)
}
