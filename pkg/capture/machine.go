// Package capture implements the check-in capture flow: an authoritative
// single-face check on the current frame, then encode and hand off.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/teslashibe/face-checkin/internal/log"
	"github.com/teslashibe/face-checkin/pkg/confidence"
	"github.com/teslashibe/face-checkin/pkg/detection"
	"github.com/teslashibe/face-checkin/pkg/handoff"
)

// Checker runs the authoritative confirm check. *detection.Sequencer
// implements it.
type Checker interface {
	Ready() bool
	Confirm(ctx context.Context, frame image.Image) (detection.Check, error)
}

// Frames supplies the frame to confirm against.
type Frames interface {
	Frame() (image.Image, error)
}

// Encoder turns a frame into a non-empty image string.
type Encoder interface {
	Encode(frame image.Image) (string, error)
}

// Handoff accepts the captured image and returns a result id.
type Handoff interface {
	Deliver(p handoff.Payload) (string, error)
}

// Snapshot is an observable view of the machine.
type Snapshot struct {
	State        State     `json:"state"`
	FaceDetected bool      `json:"face_detected"`
	Message      string    `json:"message,omitempty"`
	Label        string    `json:"label"`
	ResultID     string    `json:"result_id,omitempty"`
	Attempts     int       `json:"attempts"`
	At           time.Time `json:"at"`
}

// Outcome describes a successful capture.
type Outcome struct {
	ResultID string
	Face     detection.Detection
	Seq      uint64
}

type eventKind int

const (
	evReady eventKind = iota
	evTrigger
	evCaptured
	evNoFace
	evAbort
	evUnload
)

func (k eventKind) String() string {
	return [...]string{"ready", "trigger", "captured", "no_face", "abort", "unload"}[k]
}

type event struct {
	kind          eventKind
	detectorReady bool
	resultID      string
	err           error
}

// Machine is the capture state container. All state changes go through apply.
type Machine struct {
	checker Checker
	frames  Frames
	encoder Encoder
	handoff Handoff

	mu        sync.Mutex
	state     State
	detected  bool
	message   string
	resultID  string
	attempts  int
	observers []func(Snapshot)
}

// NewMachine creates a machine in Loading.
func NewMachine(checker Checker, frames Frames, encoder Encoder, h Handoff) *Machine {
	return &Machine{
		checker: checker,
		frames:  frames,
		encoder: encoder,
		handoff: h,
		state:   Loading,
	}
}

// OnChange registers fn for every state change. Observers run with the
// machine locked and must not call back into it.
func (m *Machine) OnChange(fn func(Snapshot)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

// Snapshot returns the current view.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// MarkReady moves Loading to Ready once the detector has loaded.
// It is a no-op in any other state.
func (m *Machine) MarkReady() error {
	return m.apply(event{kind: evReady, detectorReady: m.checker.Ready()})
}

// MarkLoading moves Ready back to Loading while the detector is reloaded.
// An attempt in Confirming settles in Loading instead of Ready if the
// detector is still unavailable when it finishes. Other states are left
// alone.
func (m *Machine) MarkLoading() error {
	return m.apply(event{kind: evUnload})
}

// Trigger runs one capture attempt. It blocks until the confirm check and
// hand-off finish; cancelling ctx does not abort an accepted attempt.
//
// A low confidence band never blocks the attempt. On no face the machine
// returns to Ready with ErrNoFace and the user may retry immediately.
func (m *Machine) Trigger(ctx context.Context) (Outcome, error) {
	if err := m.apply(event{kind: evTrigger, detectorReady: m.checker.Ready()}); err != nil {
		return Outcome{}, err
	}
	ctx = context.WithoutCancel(ctx)

	frame, err := m.frames.Frame()
	if err != nil {
		return Outcome{}, m.abort(fmt.Errorf("read frame: %w", err))
	}

	check, err := m.checker.Confirm(ctx, frame)
	if err != nil {
		return Outcome{Seq: check.Seq}, m.abort(fmt.Errorf("confirm face: %w", err))
	}
	if check.Face == nil {
		if err := m.apply(event{kind: evNoFace, detectorReady: m.checker.Ready()}); err != nil {
			log.Error("capture transition failed", "event", evNoFace.String(), "error", err)
		}
		log.Info("capture rejected", "reason", "no face", "seq", check.Seq)
		return Outcome{Seq: check.Seq}, ErrNoFace
	}

	img, err := m.encoder.Encode(frame)
	if err != nil {
		return Outcome{Seq: check.Seq}, m.abort(fmt.Errorf("encode frame: %w", err))
	}

	id, err := m.handoff.Deliver(handoff.Payload{Image: img, Score: check.Face.Confidence})
	if err != nil {
		return Outcome{Seq: check.Seq}, m.abort(fmt.Errorf("hand off image: %w", err))
	}

	if err := m.apply(event{kind: evCaptured, resultID: id}); err != nil {
		log.Error("capture transition failed", "event", evCaptured.String(), "result", id, "error", err)
	}
	log.Info("face captured", "result", id, "score", check.Face.Confidence, "seq", check.Seq)

	return Outcome{ResultID: id, Face: *check.Face, Seq: check.Seq}, nil
}

func (m *Machine) abort(err error) error {
	log.Warn("capture aborted", "error", err)
	if aerr := m.apply(event{kind: evAbort, err: err, detectorReady: m.checker.Ready()}); aerr != nil {
		log.Error("capture transition failed", "event", evAbort.String(), "error", aerr)
	}
	return err
}

// apply is the single mutation entry point.
func (m *Machine) apply(ev event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	from := m.state
	switch ev.kind {
	case evReady:
		if m.state != Loading || !ev.detectorReady {
			return nil
		}
		m.state = Ready

	case evTrigger:
		switch m.state {
		case Loading:
			return ErrNotReady
		case Confirming:
			return ErrBusy
		case Captured:
			return ErrCaptured
		}
		if !ev.detectorReady {
			return ErrNotReady
		}
		m.state = Confirming
		m.message = ""
		m.attempts++

	case evCaptured:
		if m.state != Confirming {
			return &TransitionError{From: m.state, Event: ev.kind.String()}
		}
		m.state = Captured
		m.detected = true
		m.resultID = ev.resultID

	case evNoFace:
		if m.state != Confirming {
			return &TransitionError{From: m.state, Event: ev.kind.String()}
		}
		m.detected = false
		m.message = confidence.NoFaceMessage
		m.state = Failed
		m.notifyLocked()
		m.state = settled(ev.detectorReady)

	case evAbort:
		if m.state != Confirming {
			return &TransitionError{From: m.state, Event: ev.kind.String()}
		}
		m.state = settled(ev.detectorReady)
		m.message = errorMessage(ev.err)

	case evUnload:
		if m.state != Ready {
			return nil
		}
		m.state = Loading
		m.message = ""

	default:
		return fmt.Errorf("capture: unknown event %d", ev.kind)
	}

	if m.state != from {
		m.notifyLocked()
	}
	return nil
}

// settled is where a finished attempt lands.
func settled(detectorReady bool) State {
	if detectorReady {
		return Ready
	}
	return Loading
}

func errorMessage(err error) string {
	if errors.Is(err, detection.ErrNotLoaded) {
		return "detector not ready, try again"
	}
	return "capture failed, try again"
}

func (m *Machine) notifyLocked() {
	snap := m.snapshotLocked()
	for _, fn := range m.observers {
		fn(snap)
	}
}

func (m *Machine) snapshotLocked() Snapshot {
	return Snapshot{
		State:        m.state,
		FaceDetected: m.detected,
		Message:      m.message,
		Label:        m.state.Label(),
		ResultID:     m.resultID,
		Attempts:     m.attempts,
		At:           time.Now(),
	}
}
