// Package config loads kiosk configuration from defaults, an optional YAML
// file, a .env file and environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/teslashibe/face-checkin/internal/log"
	"github.com/teslashibe/face-checkin/pkg/kiosk"
	"github.com/teslashibe/face-checkin/pkg/web"
)

// Config is the full application configuration.
type Config struct {
	Log   log.Options  `yaml:"log"`
	Web   web.Config   `yaml:"web"`
	Kiosk kiosk.Config `yaml:"kiosk"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log:   log.Options{Level: "info"},
		Web:   web.DefaultConfig(),
		Kiosk: kiosk.DefaultConfig(),
	}
}

// Load builds the configuration. path may be empty. A missing .env file is
// not an error; a missing YAML file named by path is.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides cfg from CHECKIN_* and LOG_* variables.
func applyEnv(cfg *Config) error {
	str := map[string]*string{
		"CHECKIN_LISTEN":     &cfg.Web.Listen,
		"CHECKIN_STATIC_DIR": &cfg.Web.StaticDir,
		"CHECKIN_MODEL":      &cfg.Kiosk.Detection.ModelPath,
		"CHECKIN_STRATEGY":   &cfg.Kiosk.Overlay.Strategy,
		"CHECKIN_VIDEO":      &cfg.Kiosk.Video.Kind,
		"CHECKIN_VIDEO_URL":  &cfg.Kiosk.Video.URL,
		"CHECKIN_STILL":      &cfg.Kiosk.Video.StillPath,
		"LOG_LEVEL":          &cfg.Log.Level,
		"LOG_FILE":           &cfg.Log.File,
	}
	for key, dst := range str {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	if v, ok := os.LookupEnv("CHECKIN_VIDEO_DEVICE"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("CHECKIN_VIDEO_DEVICE: %w", err)
		}
		cfg.Kiosk.Video.Device = n
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidationError lists every invalid field.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "config: invalid " + strings.Join(e.Fields, ", ")
}

// Validate checks struct tags across the whole configuration.
func Validate(cfg Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("config: %w", err)
	}
	ve := &ValidationError{}
	for _, fe := range verrs {
		ve.Fields = append(ve.Fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
	}
	return ve
}
