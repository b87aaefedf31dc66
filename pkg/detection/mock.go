package detection

import (
	"context"
	"image"
	"sync"
	"sync/atomic"
	"time"
)

// Mock implements Gateway for testing.
type Mock struct {
	// LoadFunc is called when Load is invoked. Defaults to walking every milestone.
	LoadFunc func(ctx context.Context, progress *Progress) error

	// ScanFunc is called when ScanAll is invoked.
	ScanFunc func(ctx context.Context, frame image.Image) (Set, error)

	// CheckFunc is called when CheckSingle is invoked.
	CheckFunc func(ctx context.Context, frame image.Image) (*Detection, error)

	ready atomic.Bool

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a method invocation.
type MockCall struct {
	Method string
	Time   time.Time
}

// NewMock creates a mock gateway that finds no faces.
func NewMock() *Mock {
	return &Mock{
		LoadFunc: func(ctx context.Context, progress *Progress) error {
			progress.Advance(ProgressStarted)
			progress.Advance(ProgressScanModel)
			progress.Advance(ProgressConfirm)
			progress.Advance(ProgressDone)
			return nil
		},
		ScanFunc: func(ctx context.Context, frame image.Image) (Set, error) {
			return Set{}, nil
		},
		CheckFunc: func(ctx context.Context, frame image.Image) (*Detection, error) {
			return nil, nil
		},
	}
}

// NewLoadedMock creates a mock that is already Ready.
func NewLoadedMock() *Mock {
	m := NewMock()
	m.ready.Store(true)
	return m
}

// Load calls LoadFunc and marks the mock ready on success.
func (m *Mock) Load(ctx context.Context, progress *Progress) error {
	m.record("Load")
	if m.LoadFunc != nil {
		if err := m.LoadFunc(ctx, progress); err != nil {
			return err
		}
	}
	m.ready.Store(true)
	return nil
}

// Ready reports whether Load succeeded.
func (m *Mock) Ready() bool {
	return m.ready.Load()
}

// ScanAll calls ScanFunc and records the call.
func (m *Mock) ScanAll(ctx context.Context, frame image.Image) (Set, error) {
	m.record("ScanAll")
	if !m.Ready() {
		return nil, ErrNotLoaded
	}
	if m.ScanFunc != nil {
		return m.ScanFunc(ctx, frame)
	}
	return Set{}, nil
}

// CheckSingle calls CheckFunc and records the call.
func (m *Mock) CheckSingle(ctx context.Context, frame image.Image) (*Detection, error) {
	m.record("CheckSingle")
	if !m.Ready() {
		return nil, ErrNotLoaded
	}
	if m.CheckFunc != nil {
		return m.CheckFunc(ctx, frame)
	}
	return nil, nil
}

// Close marks the mock unloaded.
func (m *Mock) Close() error {
	m.record("Close")
	m.ready.Store(false)
	return nil
}

// Calls returns the number of recorded calls to method.
func (m *Mock) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

func (m *Mock) record(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{Method: method, Time: time.Now()})
}
