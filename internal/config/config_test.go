package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir %s: %v", dir, err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatalf("restore cwd: %v", err)
		}
	})
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Web.Listen != ":8080" {
		t.Errorf("Listen: got %q, want :8080", cfg.Web.Listen)
	}
	if cfg.Kiosk.Poller.Interval != 100*time.Millisecond {
		t.Errorf("Interval: got %v, want 100ms", cfg.Kiosk.Poller.Interval)
	}
	if cfg.Kiosk.Poller.MaxInFlight != 2 {
		t.Errorf("MaxInFlight: got %d, want 2", cfg.Kiosk.Poller.MaxInFlight)
	}
	if cfg.Kiosk.Overlay.Strategy != "box" {
		t.Errorf("Strategy: got %q, want box", cfg.Kiosk.Overlay.Strategy)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	path := writeFile(t, dir, "checkin.yaml", `
web:
  listen: ":9090"
kiosk:
  poller:
    interval: 250ms
    max_in_flight: 3
  overlay:
    strategy: ring
  video:
    kind: still
    still_path: demo.jpg
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Web.Listen != ":9090" {
		t.Errorf("Listen: got %q", cfg.Web.Listen)
	}
	if cfg.Kiosk.Poller.Interval != 250*time.Millisecond {
		t.Errorf("Interval: got %v", cfg.Kiosk.Poller.Interval)
	}
	if cfg.Kiosk.Poller.MaxInFlight != 3 {
		t.Errorf("MaxInFlight: got %d, want 3", cfg.Kiosk.Poller.MaxInFlight)
	}
	if cfg.Kiosk.Overlay.Strategy != "ring" {
		t.Errorf("Strategy: got %q", cfg.Kiosk.Overlay.Strategy)
	}
	// Unset keys keep their defaults.
	if cfg.Kiosk.Overlay.CornerSize != 25 {
		t.Errorf("CornerSize: got %v, want 25", cfg.Kiosk.Overlay.CornerSize)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	path := writeFile(t, dir, "checkin.yaml", "web:\n  listen: \":9090\"\n")
	t.Setenv("CHECKIN_LISTEN", ":7070")
	t.Setenv("CHECKIN_VIDEO_DEVICE", "2")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Web.Listen != ":7070" {
		t.Errorf("Listen: got %q, want :7070", cfg.Web.Listen)
	}
	if cfg.Kiosk.Video.Device != 2 {
		t.Errorf("Device: got %d, want 2", cfg.Kiosk.Video.Device)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeFile(t, dir, ".env", "CHECKIN_STRATEGY=ring\n")
	t.Cleanup(func() { os.Unsetenv("CHECKIN_STRATEGY") })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Kiosk.Overlay.Strategy != "ring" {
		t.Errorf("Strategy: got %q, want ring", cfg.Kiosk.Overlay.Strategy)
	}
}

func TestLoad_Invalid(t *testing.T) {
	chdir(t, t.TempDir())

	tests := []struct {
		name  string
		env   map[string]string
		field string
	}{
		{"strategy", map[string]string{"CHECKIN_STRATEGY": "hexagon"}, "Strategy"},
		{"video kind", map[string]string{"CHECKIN_VIDEO": "vhs"}, "Kind"},
		{"remote without url", map[string]string{"CHECKIN_VIDEO": "remote"}, "URL"},
		{"log level", map[string]string{"LOG_LEVEL": "loud"}, "Level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("got %v, want ValidationError", err)
			}
			if !strings.Contains(ve.Error(), tt.field) {
				t.Errorf("error %q does not name %s", ve.Error(), tt.field)
			}
		})
	}
}

func TestLoad_BadDevice(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CHECKIN_VIDEO_DEVICE", "front")

	if _, err := Load(""); err == nil {
		t.Error("expected error for non-numeric device")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	chdir(t, t.TempDir())

	if _, err := Load("nope.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}
