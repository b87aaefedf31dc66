// Package web serves the kiosk API, live status and preview websockets.
package web

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/face-checkin/internal/log"
	"github.com/teslashibe/face-checkin/pkg/capture"
	"github.com/teslashibe/face-checkin/pkg/handoff"
	"github.com/teslashibe/face-checkin/pkg/hub"
	"github.com/teslashibe/face-checkin/pkg/kiosk"
)

// Kiosk is the app surface the server drives. *kiosk.App implements it.
type Kiosk interface {
	Status() kiosk.Status
	Trigger(ctx context.Context) (capture.Outcome, error)
	NewSession() string
	Result(id string) handoff.View
	StatusHub() *hub.Hub
	CameraHub() *hub.Hub
}

// Config holds HTTP settings.
type Config struct {
	Listen    string `yaml:"listen" validate:"required"`
	StaticDir string `yaml:"static_dir"`
}

// DefaultConfig listens on :8080 and serves ./web.
func DefaultConfig() Config {
	return Config{Listen: ":8080", StaticDir: "./web"}
}

// Server is the kiosk web server.
type Server struct {
	app    *fiber.App
	config Config
	kiosk  Kiosk
}

// NewServer builds the routes. metrics may be nil.
func NewServer(cfg Config, k Kiosk, metrics http.Handler) *Server {
	s := &Server{config: cfg, kiosk: k}

	app := fiber.New(fiber.Config{
		AppName:               "Face Check-In",
		DisableStartupMessage: true,
	})

	app.Use(cors.New())

	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
	}

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Post("/capture", s.handleCapture)
	api.Post("/session", s.handleNewSession)
	api.Get("/result/:id", s.handleResult)
	api.Get("/result/:id/image", s.handleResultImage)

	if metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(metrics))
	}

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))
	app.Get("/ws/camera", websocket.New(s.handleCameraWS))

	s.app = app
	return s
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	log.Info("web server listening", "addr", s.config.Listen)
	return s.app.Listen(s.config.Listen)
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			log.Error("web server stopped", "error", err)
		}
	}()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
