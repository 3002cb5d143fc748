// Package config loads logicflow.yaml.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type (
	// Config holds settings shared by the CLI commands
	Config struct {
		// Package is the package name of emitted Go files
		Package string `yaml:"package"`

		Log     LogConfig     `yaml:"log"`
		HTTP    HTTPConfig    `yaml:"http"`
		Store   StoreConfig   `yaml:"store"`
		Output  OutputConfig  `yaml:"output"`
		Binding BindingConfig `yaml:"binding"`
	}

	// LogConfig selects the slog handler
	LogConfig struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	}

	// HTTPConfig controls Http and ApiConnection steps when interpreting
	HTTPConfig struct {
		Timeout time.Duration `yaml:"timeout"`
		Mock    bool          `yaml:"mock"`
	}

	// StoreConfig locates the run history database. An empty path disables
	// history.
	StoreConfig struct {
		Path string `yaml:"path"`
	}

	// OutputConfig is where emitted units and run outputs are written, as a
	// gocloud.dev blob URL. Empty means stdout only.
	OutputConfig struct {
		URL    string `yaml:"url"`
		Prefix string `yaml:"prefix"`
	}

	// BindingConfig is where Binding steps deliver when interpreting. An
	// empty URL keeps content as the step result only.
	BindingConfig struct {
		AMQPURL  string `yaml:"amqp_url"`
		Exchange string `yaml:"exchange"`
	}
)

const (
	DefaultFile        = "logicflow.yaml"
	DefaultPackage     = "workflow"
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
	DefaultHTTPTimeout = 30 * time.Second
	DefaultExchange    = "logicflow.bindings"
	MaxHTTPTimeout     = 10 * time.Minute
)

var (
	ErrInvalidPackage     = errors.New("package must be a valid Go identifier")
	ErrInvalidLogLevel    = errors.New("log level must be debug, info, warn or error")
	ErrInvalidLogFormat   = errors.New("log format must be text or json")
	ErrInvalidHTTPTimeout = errors.New("http timeout must be positive")
	ErrHTTPTimeoutTooLong = errors.New("http timeout is too long")
	ErrInvalidAMQPURL     = errors.New("binding amqp_url must use amqp:// or amqps://")
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Default returns a configuration with every setting at its default
func Default() *Config {
	return &Config{
		Package: DefaultPackage,
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		HTTP: HTTPConfig{
			Timeout: DefaultHTTPTimeout,
		},
		Binding: BindingConfig{
			Exchange: DefaultExchange,
		},
	}
}

// Load reads path over the defaults. A missing file is not an error when
// optional is set, so the CLI can run without logicflow.yaml.
func Load(path string, optional bool) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := cfg.decode(data); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := cfg.decode(data); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	return nil
}

// Validate checks every setting and returns the first problem found
func (c *Config) Validate() error {
	if !identifier.MatchString(c.Package) {
		return fmt.Errorf("%w: %q", ErrInvalidPackage, c.Package)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Log.Format)
	}
	if c.HTTP.Timeout <= 0 {
		return ErrInvalidHTTPTimeout
	}
	if c.HTTP.Timeout > MaxHTTPTimeout {
		return fmt.Errorf("%w: %s > %s", ErrHTTPTimeoutTooLong, c.HTTP.Timeout, MaxHTTPTimeout)
	}
	if u := c.Binding.AMQPURL; u != "" &&
		!strings.HasPrefix(u, "amqp://") && !strings.HasPrefix(u, "amqps://") {
		return ErrInvalidAMQPURL
	}
	return nil
}
