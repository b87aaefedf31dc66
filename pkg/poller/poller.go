// Package poller drives the preview face scan on a fixed cadence.
package poller

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/teslashibe/face-checkin/internal/log"
	"github.com/teslashibe/face-checkin/pkg/detection"
	"github.com/teslashibe/face-checkin/pkg/video"
)

// Scanner runs a stamped multi-face scan. *detection.Sequencer implements it.
type Scanner interface {
	ScanAll(ctx context.Context, frame image.Image) (detection.Result, error)
}

// Sink receives every completed scan while the poller runs.
type Sink func(detection.Result)

// Observer is notified of tick outcomes, e.g. for metrics. All methods may be
// called from several goroutines.
type Observer interface {
	TickSkipped()
	ScanFailed(err error)
	ScanCompleted(d time.Duration)
}

// Config holds poller timing.
type Config struct {
	Interval time.Duration `yaml:"interval" validate:"gt=0"`
	// MaxInFlight caps concurrent scans. Ticks that find every slot busy
	// are skipped.
	MaxInFlight int `yaml:"max_in_flight" validate:"gte=1"`
}

// DefaultConfig scans ten times per second with at most two scans running.
func DefaultConfig() Config {
	return Config{Interval: 100 * time.Millisecond, MaxInFlight: 2}
}

// Poller owns a cancellable repeating scan task.
//
// Ticks are not serialized: when a scan outlasts the interval the next tick
// starts another one, up to Config.MaxInFlight. Results are published in
// completion order; consumers use Result.Seq to drop stale ones.
type Poller struct {
	config   Config
	source   video.Source
	scanner  Scanner
	sink     Sink
	observer Observer

	// mu guards running and is held while publishing, so Stop cannot return
	// while a sink call is in progress.
	mu      sync.Mutex
	running bool
	gen     uint64
	cancel  context.CancelFunc
	loop    sync.WaitGroup

	slots chan struct{}
	scans sync.WaitGroup
}

// New creates a stopped poller.
func New(cfg Config, source video.Source, scanner Scanner, sink Sink) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.MaxInFlight < 1 {
		cfg.MaxInFlight = DefaultConfig().MaxInFlight
	}
	return &Poller{
		config:  cfg,
		source:  source,
		scanner: scanner,
		sink:    sink,
		slots:   make(chan struct{}, cfg.MaxInFlight),
	}
}

// SetObserver sets the tick observer. Call before Start.
func (p *Poller) SetObserver(o Observer) {
	p.observer = o
}

// Start begins polling. Calling Start on a running poller is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true
	p.gen++

	p.loop.Add(1)
	go p.run(ctx, p.gen)

	log.Debug("poller started", "interval", p.config.Interval, "max_in_flight", p.config.MaxInFlight)
}

// Stop clears the schedule, cancels in-flight scans and waits for them to
// return. Once Stop returns no scan is running and no further sink callback
// fires. Stop is idempotent but must not race with Start.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.cancel()
	p.mu.Unlock()

	p.loop.Wait()
	p.scans.Wait()
	log.Debug("poller stopped")
}

// Running reports whether the poller is scheduled.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// InFlight returns the number of scans currently running.
func (p *Poller) InFlight() int {
	return len(p.slots)
}

func (p *Poller) run(ctx context.Context, gen uint64) {
	defer p.loop.Done()

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx, gen)
		}
	}
}

// tick samples the current frame and launches a scan if a slot is free.
func (p *Poller) tick(ctx context.Context, gen uint64) {
	if p.source.Status() != video.Playing {
		p.skipped()
		return
	}

	select {
	case p.slots <- struct{}{}:
	default:
		p.skipped()
		return
	}

	frame, err := p.source.Frame()
	if err != nil {
		<-p.slots
		p.skipped()
		return
	}

	p.scans.Add(1)
	go p.scan(ctx, gen, frame)
}

func (p *Poller) skipped() {
	if p.observer != nil {
		p.observer.TickSkipped()
	}
}

func (p *Poller) scan(ctx context.Context, gen uint64, frame image.Image) {
	defer p.scans.Done()
	defer func() { <-p.slots }()

	start := time.Now()
	res, err := p.scanner.ScanAll(ctx, frame)
	if err != nil {
		if ctx.Err() == nil {
			log.Warn("face scan failed", "seq", res.Seq, "error", err)
			if p.observer != nil {
				p.observer.ScanFailed(err)
			}
		}
		return
	}
	if p.observer != nil {
		p.observer.ScanCompleted(time.Since(start))
	}

	p.publish(gen, res)
}

// publish delivers res unless the run that produced it has been stopped.
func (p *Poller) publish(gen uint64, res detection.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running || gen != p.gen {
		return
	}
	p.sink(res)
}
