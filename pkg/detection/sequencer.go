package detection

import (
	"context"
	"image"
	"sync/atomic"
	"time"
)

// Check is the outcome of an authoritative single-face check.
type Check struct {
	Seq  uint64
	Face *Detection // nil when no face was found
}

// Sequencer stamps every ScanAll and CheckSingle invocation on a Gateway with
// a monotonically increasing sequence number, taken when the call is issued.
// Consumers compare stamps to discard results that resolve out of order.
type Sequencer struct {
	gw  Gateway
	seq atomic.Uint64
}

// NewSequencer wraps gw.
func NewSequencer(gw Gateway) *Sequencer {
	return &Sequencer{gw: gw}
}

// Gateway returns the wrapped gateway.
func (s *Sequencer) Gateway() Gateway {
	return s.gw
}

// Ready reports whether the wrapped gateway is loaded.
func (s *Sequencer) Ready() bool {
	return s.gw.Ready()
}

// Last returns the most recently issued sequence number.
func (s *Sequencer) Last() uint64 {
	return s.seq.Load()
}

// ScanAll runs a multi-face scan and stamps the result.
func (s *Sequencer) ScanAll(ctx context.Context, frame image.Image) (Result, error) {
	seq := s.seq.Add(1)
	set, err := s.gw.ScanAll(ctx, frame)
	if err != nil {
		return Result{Seq: seq}, err
	}
	return Result{Seq: seq, Detections: set, At: time.Now()}, nil
}

// Confirm runs the authoritative single-face check and stamps the outcome.
func (s *Sequencer) Confirm(ctx context.Context, frame image.Image) (Check, error) {
	seq := s.seq.Add(1)
	face, err := s.gw.CheckSingle(ctx, frame)
	if err != nil {
		return Check{Seq: seq}, err
	}
	return Check{Seq: seq, Face: face}, nil
}
