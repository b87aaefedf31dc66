package detection

import "sync"

// Load milestones, in percent.
const (
	ProgressStarted   = 10
	ProgressScanModel = 60
	ProgressConfirm   = 90
	ProgressDone      = 100
)

// Progress tracks model-load progress. The value never decreases.
type Progress struct {
	mu       sync.RWMutex
	value    int
	onChange func(int)
}

// NewProgress creates a progress tracker at 0%.
func NewProgress() *Progress {
	return &Progress{}
}

// OnChange sets a callback fired whenever the value advances.
func (p *Progress) OnChange(fn func(int)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onChange = fn
}

// Advance moves progress to v. Values lower than the current one are ignored
// and values are clamped to [0,100].
func (p *Progress) Advance(v int) {
	if p == nil {
		return
	}
	if v > 100 {
		v = 100
	}

	p.mu.Lock()
	if v <= p.value {
		p.mu.Unlock()
		return
	}
	p.value = v
	fn := p.onChange
	p.mu.Unlock()

	if fn != nil {
		fn(v)
	}
}

// Value returns the current progress in percent.
func (p *Progress) Value() int {
	if p == nil {
		return 0
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.value
}
