// Package config loads the service configuration from YAML and builds the
// logger and rate limiter it describes.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Address string `yaml:"address"`

	Backend  string `yaml:"backend"`
	Fallback string `yaml:"fallback"`

	RedirectFallback bool `yaml:"redirect_fallback"`

	QRSource string `yaml:"qr_source"`

	RenderTimeout time.Duration `yaml:"render_timeout"`

	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`

	Chrome ChromeConfig `yaml:"chrome"`
	SVG    SVGConfig    `yaml:"svg"`
	Log    LogConfig    `yaml:"log"`
}

type ChromeConfig struct {
	ExecPath  string `yaml:"exec_path"`
	NoSandbox bool   `yaml:"no_sandbox"`
}

type SVGConfig struct {
	ConverterURL string `yaml:"converter_url"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

var qrSources = []string{"local", "remote"}

func Default() *Config {
	return &Config{
		Address: ":8080",

		Backend:  "canvas",
		Fallback: "remote",

		RedirectFallback: true,

		QRSource: "local",

		RenderTimeout: 15 * time.Second,

		RateBurst: 1,

		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Parse reads the YAML file at path over the defaults. Environment
// references like ${CHROME_PATH} are expanded before decoding.
func Parse(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Decode(bytes.NewReader(data))
}

func Decode(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	data = []byte(os.ExpandEnv(string(data)))

	c := Default()

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// Validate checks everything except backend names, which the backend
// factory resolves.
func (c *Config) Validate() error {
	if c.Address == "" {
		return errors.New("address is required")
	}

	if c.Backend == "" {
		return errors.New("backend is required")
	}

	if !slices.Contains(qrSources, strings.ToLower(c.QRSource)) {
		return fmt.Errorf("invalid qr_source %q: expected one of %v", c.QRSource, qrSources)
	}

	if c.RenderTimeout <= 0 {
		return fmt.Errorf("invalid render_timeout %s", c.RenderTimeout)
	}

	if c.RateLimit < 0 {
		return fmt.Errorf("invalid rate_limit %v", c.RateLimit)
	}

	if c.RateBurst < 1 {
		return fmt.Errorf("invalid rate_burst %d", c.RateBurst)
	}

	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid log format %q", c.Log.Format)
	}

	return nil
}

// Limiter returns nil when rendering is unlimited.
func (c *Config) Limiter() *rate.Limiter {
	if c.RateLimit <= 0 {
		return nil
	}

	return rate.NewLimiter(rate.Limit(c.RateLimit), c.RateBurst)
}

func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.Log.Level)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level

	if s == "" {
		return slog.LevelInfo, nil
	}

	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}

	return level, nil
}
