// Package confidence reduces a detection set to a single confidence reading
// and classifies it into a quality band for user messaging.
package confidence

import (
	"sync"

	"github.com/teslashibe/face-checkin/pkg/detection"
)

// Band is the discretized quality of a reading.
type Band int

const (
	Low Band = iota
	Medium
	High
)

// Band thresholds. A score strictly above the threshold is in the band.
const (
	HighThreshold   = 0.8
	MediumThreshold = 0.6
)

// NoFaceMessage is shown when the authoritative check finds no face.
const NoFaceMessage = "no face detected"

func (b Band) String() string {
	switch b {
	case High:
		return "high"
	case Medium:
		return "medium"
	default:
		return "low"
	}
}

// Message returns the user-facing prompt for the band.
func (b Band) Message() string {
	switch b {
	case High:
		return "ready/excellent"
	case Medium:
		return "good, hold steady"
	default:
		return "keep adjusting"
	}
}

// MarshalText encodes the band by name.
func (b Band) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// Reading is the confidence derived from one detection set.
type Reading struct {
	Score       float64 `json:"score"`
	Band        Band    `json:"band"`
	FacePresent bool    `json:"face_present"`
}

// Classify maps a score to its band.
func Classify(score float64) Band {
	switch {
	case score > HighThreshold:
		return High
	case score > MediumThreshold:
		return Medium
	default:
		return Low
	}
}

// Reduce returns the reading for set: the max confidence over all faces.
func Reduce(set detection.Set) Reading {
	if len(set) == 0 {
		return Reading{Score: 0, Band: Low}
	}

	best := set[0].Confidence
	for _, d := range set[1:] {
		if d.Confidence > best {
			best = d.Confidence
		}
	}
	return Reading{Score: best, Band: Classify(best), FacePresent: true}
}

// Tracker holds the latest applied detection set and its reading.
// Results that resolve after a newer one has been applied are discarded.
type Tracker struct {
	mu      sync.RWMutex
	lastSeq uint64
	set     detection.Set
	reading Reading
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Apply reduces res and stores it. It returns false, leaving state untouched,
// when res is not newer than the last applied result.
func (t *Tracker) Apply(res detection.Result) (Reading, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if res.Seq <= t.lastSeq {
		return t.reading, false
	}

	t.lastSeq = res.Seq
	t.set = res.Detections
	t.reading = Reduce(res.Detections)
	return t.reading, true
}

// Reset drops the current set and reading. The sequence high-water mark is
// kept, so results stamped before the reset are still discarded.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.set = nil
	t.reading = Reduce(nil)
}

// Latest returns the last applied set, its reading and sequence number.
func (t *Tracker) Latest() (detection.Set, Reading, uint64) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.set, t.reading, t.lastSeq
}

// Reading returns the last applied reading.
func (t *Tracker) Reading() Reading {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.reading
}
