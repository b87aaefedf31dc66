// Package kiosk wires the check-in pipeline: model loading, the preview
// poller, confidence tracking, overlay rendering and the capture flow.
package kiosk

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/teslashibe/face-checkin/internal/log"
	"github.com/teslashibe/face-checkin/pkg/capture"
	"github.com/teslashibe/face-checkin/pkg/confidence"
	"github.com/teslashibe/face-checkin/pkg/detection"
	"github.com/teslashibe/face-checkin/pkg/encode"
	"github.com/teslashibe/face-checkin/pkg/handoff"
	"github.com/teslashibe/face-checkin/pkg/hub"
	"github.com/teslashibe/face-checkin/pkg/metrics"
	"github.com/teslashibe/face-checkin/pkg/overlay"
	"github.com/teslashibe/face-checkin/pkg/poller"
	"github.com/teslashibe/face-checkin/pkg/video"
)

// App is one kiosk screen: a video source, a face detector and the
// capture flow on top of them.
type App struct {
	config   Config
	source   video.Source
	gateway  detection.Gateway
	seq      *detection.Sequencer
	progress *detection.Progress
	tracker  *confidence.Tracker
	canvas   *overlay.Canvas
	renderer *overlay.Renderer
	poller   *poller.Poller
	encoder  *encode.JPEG
	preview  *encode.JPEG
	limiter  *rate.Limiter
	results  *handoff.Store
	metrics  *metrics.Metrics

	statusHub *hub.Hub
	cameraHub *hub.Hub

	// mu guards the current session and run context.
	mu      sync.RWMutex
	machine *capture.Machine
	session string
	runCtx  context.Context

	loadMu  sync.RWMutex
	loadErr error

	// reloadMu serializes Init and Reload.
	reloadMu sync.Mutex
}

// New assembles an app. The gateway is not loaded until Init.
func New(cfg Config, source video.Source, gw detection.Gateway, m *metrics.Metrics) (*App, error) {
	strategy, err := overlay.NewStrategy(cfg.Overlay)
	if err != nil {
		return nil, fmt.Errorf("overlay: %w", err)
	}
	if m == nil {
		m = metrics.New()
	}

	a := &App{
		config:    cfg,
		source:    source,
		gateway:   gw,
		seq:       detection.NewSequencer(gw),
		progress:  detection.NewProgress(),
		tracker:   confidence.NewTracker(),
		canvas:    overlay.NewCanvas(source.Size()),
		renderer:  overlay.NewRenderer(strategy),
		encoder:   encode.NewJPEG(cfg.Capture),
		preview:   encode.NewJPEG(encode.Config{Quality: cfg.Preview.Quality, MaxWidth: cfg.Preview.MaxWidth}),
		results:   handoff.NewStore(cfg.Handoff),
		metrics:   m,
		statusHub: hub.New("status"),
		cameraHub: hub.New("camera"),
	}
	if cfg.Preview.FPS > 0 {
		a.limiter = rate.NewLimiter(rate.Limit(cfg.Preview.FPS), 1)
	}

	a.renderer.Mount(a.canvas)
	a.poller = poller.New(cfg.Poller, source, a.seq, a.onScan)
	a.poller.SetObserver(m)

	a.progress.OnChange(func(v int) {
		m.LoadProgress.Store(uint64(v))
		a.publishStatus()
	})
	a.statusHub.Greeting = func() (hub.Message, bool) {
		data, err := json.Marshal(a.Status())
		if err != nil {
			return hub.Message{}, false
		}
		return hub.NewJSONMessage(data), true
	}
	a.cameraHub.OnCount = func(n int) {
		m.PreviewClients.Store(int64(n))
	}

	a.startSession()
	return a, nil
}

// Init loads the face models, advancing progress through each milestone.
//
// A load failure is not retried: the app stays Loading, rejects captures and
// reports the error in Status until Reload is called.
func (a *App) Init(ctx context.Context) error {
	a.reloadMu.Lock()
	defer a.reloadMu.Unlock()
	return a.load(ctx)
}

func (a *App) load(ctx context.Context) error {
	log.Info("loading face models")

	if err := a.gateway.Load(ctx, a.progress); err != nil {
		a.setLoadErr(err)
		if merr := a.Machine().MarkLoading(); merr != nil {
			log.Warn("capture state not reset", "error", merr)
		}
		a.metrics.LoadFailures.Add(1)
		log.Error("face model load failed, capture disabled", "error", err, "progress", a.progress.Value())
		a.publishStatus()
		return err
	}
	a.setLoadErr(nil)

	if err := a.Machine().MarkReady(); err != nil {
		return err
	}
	log.Info("face models loaded", "strategy", a.renderer.Strategy().Name())

	a.startPolling()
	return nil
}

// Run serves the hubs and the preview poller until ctx is done.
func (a *App) Run(ctx context.Context) error {
	a.mu.Lock()
	a.runCtx = ctx
	a.mu.Unlock()

	go a.statusHub.Run(ctx)
	go a.cameraHub.Run(ctx)

	a.startPolling()

	<-ctx.Done()
	a.poller.Stop()
	return nil
}

// Reload stops the poller, reloads the models and restarts polling. The
// capture flow returns to Loading and the last reading and overlay are
// cleared until a new scan lands. No scan result from before the reload is
// applied after it returns.
func (a *App) Reload(ctx context.Context) error {
	a.reloadMu.Lock()
	defer a.reloadMu.Unlock()

	log.Info("reloading face models")
	a.poller.Stop()
	if err := a.Machine().MarkLoading(); err != nil {
		log.Warn("capture state not reset", "error", err)
	}
	a.tracker.Reset()
	a.renderer.Clear()
	if err := a.gateway.Close(); err != nil {
		log.Warn("close face models", "error", err)
	}
	a.publishStatus()
	return a.load(ctx)
}

// Close stops polling and releases the models.
func (a *App) Close() error {
	a.poller.Stop()
	return a.gateway.Close()
}

// Trigger runs one capture attempt on the current session.
func (a *App) Trigger(ctx context.Context) (capture.Outcome, error) {
	return a.Machine().Trigger(ctx)
}

// NewSession replaces the capture machine so a new visitor can check in.
// It returns the new session id.
func (a *App) NewSession() string {
	id := a.startSession()
	if a.gateway.Ready() {
		a.Machine().MarkReady()
	}
	a.publishStatus()
	return id
}

// Result returns the result view for a hand-off id.
func (a *App) Result(id string) handoff.View {
	return a.results.View(id)
}

// Machine returns the current session's capture machine.
func (a *App) Machine() *capture.Machine {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.machine
}

// Status returns the current view model.
func (a *App) Status() Status {
	a.mu.RLock()
	m, session := a.machine, a.session
	a.mu.RUnlock()
	return a.statusWith(session, m.Snapshot())
}

// StatusHub broadcasts JSON Status updates.
func (a *App) StatusHub() *hub.Hub { return a.statusHub }

// CameraHub broadcasts composited JPEG preview frames.
func (a *App) CameraHub() *hub.Hub { return a.cameraHub }

// Metrics returns the app's metrics.
func (a *App) Metrics() *metrics.Metrics { return a.metrics }

func (a *App) startSession() string {
	id := uuid.NewString()
	m := capture.NewMachine(a.seq, a.source, a.encoder, a.results)
	m.OnChange(func(s capture.Snapshot) {
		a.metrics.ObserveCapture(s)
		a.statusHub.BroadcastJSON(a.statusWith(id, s))
	})

	a.mu.Lock()
	a.machine = m
	a.session = id
	a.mu.Unlock()

	log.Debug("session started", "session", id)
	return id
}

func (a *App) startPolling() {
	a.mu.RLock()
	ctx := a.runCtx
	a.mu.RUnlock()

	if ctx == nil || ctx.Err() != nil || !a.gateway.Ready() {
		return
	}
	a.poller.Start(ctx)
}

// onScan is the poller sink: apply, render, publish.
func (a *App) onScan(res detection.Result) {
	reading, ok := a.tracker.Apply(res)
	if !ok {
		a.metrics.StaleResults.Add(1)
		return
	}
	a.metrics.ObserveReading(reading)

	w, h := a.source.Size()
	a.renderer.Render(res.Detections, reading, w, h)

	a.publishStatus()
	a.sendPreview()
}

func (a *App) sendPreview() {
	if a.limiter == nil || a.cameraHub.ClientCount() == 0 || !a.limiter.Allow() {
		return
	}

	frame, err := a.source.Frame()
	if err != nil {
		return
	}
	data, err := a.preview.EncodeBytes(a.renderer.Composite(frame))
	if err != nil {
		log.Debug("preview encode failed", "error", err)
		return
	}
	a.cameraHub.BroadcastBinary(data)
}

func (a *App) publishStatus() {
	if err := a.statusHub.BroadcastJSON(a.Status()); err != nil {
		log.Warn("status encode failed", "error", err)
	}
}

func (a *App) statusWith(session string, snap capture.Snapshot) Status {
	_, reading, seq := a.tracker.Latest()

	st := Status{
		Session:  session,
		Loading:  !a.gateway.Ready(),
		Progress: a.progress.Value(),
		Capture:  snap,
		Reading:  reading,
		Seq:      seq,
		Badge:    badge(reading),
		Message:  message(snap, reading),
		Strategy: a.renderer.Strategy().Name(),
		Video:    a.source.Status().String(),
	}
	if err := a.loadError(); err != nil {
		st.LoadError = err.Error()
	}
	return st
}

func (a *App) setLoadErr(err error) {
	a.loadMu.Lock()
	defer a.loadMu.Unlock()
	a.loadErr = err
}

func (a *App) loadError() error {
	a.loadMu.RLock()
	defer a.loadMu.RUnlock()
	return a.loadErr
}
