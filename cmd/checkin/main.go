// Face check-in kiosk.
//
// Serves the camera preview with live face feedback and captures a photo
// once a face is confirmed.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teslashibe/face-checkin/internal/config"
	"github.com/teslashibe/face-checkin/internal/log"
	"github.com/teslashibe/face-checkin/pkg/detection"
	"github.com/teslashibe/face-checkin/pkg/kiosk"
	"github.com/teslashibe/face-checkin/pkg/metrics"
	"github.com/teslashibe/face-checkin/pkg/video"
	"github.com/teslashibe/face-checkin/pkg/web"
)

var (
	configPath string
	logLevel   string
	strategy   string
	listen     string
)

var rootCmd = &cobra.Command{
	Use:   "checkin",
	Short: "Face check-in kiosk",
	Long: `checkin serves a kiosk page that shows the camera with live face
feedback and captures a check-in photo once a face is confirmed.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.Flags().StringVar(&strategy, "overlay", "", "Overlay strategy (box, ring)")
	rootCmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address")
}

// loadConfig applies command-line flags over the loaded configuration.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if cmd.Flags().Changed("overlay") {
		cfg.Kiosk.Overlay.Strategy = strategy
	}
	if cmd.Flags().Changed("listen") {
		cfg.Web.Listen = listen
	}
	return cfg, config.Validate(cfg)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log.InitWithOptions(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source, err := video.Open(ctx, cfg.Kiosk.Video)
	if err != nil {
		return fmt.Errorf("open video: %w", err)
	}
	defer source.Close()

	m := metrics.New()
	app, err := kiosk.New(cfg.Kiosk, source, detection.NewYuNet(cfg.Kiosk.Detection), m)
	if err != nil {
		return err
	}
	defer app.Close()

	server := web.NewServer(cfg.Web, app, m.Handler())
	server.StartAsync()
	defer server.Shutdown()

	go app.Run(ctx)

	// Model loading runs while the page already shows progress. A failure
	// leaves the kiosk in Loading until SIGHUP.
	go func() {
		if err := app.Init(ctx); err != nil {
			log.Error("kiosk not ready, send SIGHUP to retry", "error", err)
		}
	}()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	log.Info("kiosk started", "listen", cfg.Web.Listen, "video", cfg.Kiosk.Video.Kind, "overlay", cfg.Kiosk.Overlay.Strategy)

	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			return nil
		case <-hup:
			if err := app.Reload(ctx); err != nil {
				log.Error("reload failed", "error", err)
			}
		}
	}
}
