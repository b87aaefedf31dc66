// Package handoff passes captured images from the kiosk to the result view.
package handoff

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RetryPath is where the result view sends the user to capture again.
const RetryPath = "/"

// filenameLayout names downloads after the capture time.
const filenameLayout = "2006-01-02T15-04-05"

var (
	ErrEmptyImage = errors.New("handoff: empty image")
	ErrNotFound   = errors.New("handoff: result not found")
)

// Payload is what a successful capture hands to the result view.
type Payload struct {
	// Image is an encoded data URL; never empty.
	Image string
	// Score is the confirm-check confidence.
	Score float64
	At    time.Time
}

// View is the result page model for one handoff id.
type View struct {
	ID        string    `json:"id"`
	HasImage  bool      `json:"has_image"`
	Image     string    `json:"image,omitempty"`
	Filename  string    `json:"filename,omitempty"`
	Score     float64   `json:"score,omitempty"`
	At        time.Time `json:"at,omitempty"`
	RetryPath string    `json:"retry_path"`
}

// Config bounds the store.
type Config struct {
	Capacity int `yaml:"capacity" validate:"min=1"`
}

// DefaultConfig keeps the last 16 captures.
func DefaultConfig() Config {
	return Config{Capacity: 16}
}

// Store keeps recent payloads in memory, evicting the oldest when full.
type Store struct {
	mu       sync.RWMutex
	capacity int
	order    []string
	items    map[string]Payload
	now      func() time.Time
}

// NewStore creates an empty store.
func NewStore(cfg Config) *Store {
	if cfg.Capacity < 1 {
		cfg.Capacity = DefaultConfig().Capacity
	}
	return &Store{
		capacity: cfg.Capacity,
		items:    make(map[string]Payload),
		now:      time.Now,
	}
}

// Deliver stores p and returns its id.
func (s *Store) Deliver(p Payload) (string, error) {
	if p.Image == "" {
		return "", ErrEmptyImage
	}
	if p.At.IsZero() {
		p.At = s.now()
	}

	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[id] = p
	s.order = append(s.order, id)
	for len(s.order) > s.capacity {
		delete(s.items, s.order[0])
		s.order = s.order[1:]
	}
	return id, nil
}

// Get returns the payload for id.
func (s *Store) Get(id string) (Payload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.items[id]
	if !ok {
		return Payload{}, ErrNotFound
	}
	return p, nil
}

// View builds the result page for id. Unknown or evicted ids render the
// no-image state with a path back to capture.
func (s *Store) View(id string) View {
	p, err := s.Get(id)
	if err != nil {
		return View{ID: id, RetryPath: RetryPath}
	}
	return View{
		ID:        id,
		HasImage:  true,
		Image:     p.Image,
		Filename:  Filename(p.At),
		Score:     p.Score,
		At:        p.At,
		RetryPath: RetryPath,
	}
}

// Len returns the number of stored payloads.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Filename is the download name for a capture taken at t.
func Filename(t time.Time) string {
	return "smart-checkin-" + t.UTC().Format(filenameLayout) + ".jpg"
}
