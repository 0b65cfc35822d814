package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dshills/blockstorm/internal/config/loader"
)

// Config is the typed Blockstorm configuration.
type Config struct {
	History  HistoryConfig  `yaml:"history"`
	Document DocumentConfig `yaml:"document"`
	Log      LogConfig      `yaml:"log"`
}

// HistoryConfig configures the undo/redo stack.
type HistoryConfig struct {
	// MaxEntries bounds the undo stack.
	MaxEntries int `yaml:"maxEntries"`
}

// DocumentConfig configures the block document.
type DocumentConfig struct {
	// DefaultType is the tool used for new and placeholder blocks.
	DefaultType string `yaml:"defaultType"`
	// KeepEmpty keeps blank paragraphs in saved output.
	KeepEmpty bool `yaml:"keepEmpty"`
	// ReplacePlaceholder lets the first insert replace an untouched
	// default block.
	ReplacePlaceholder bool `yaml:"replacePlaceholder"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	File   string `yaml:"file"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		History:  HistoryConfig{MaxEntries: 1000},
		Document: DocumentConfig{DefaultType: "paragraph", ReplacePlaceholder: true},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// Option configures Load.
type Option func(*options)

type options struct {
	fs  loader.FileSystem
	env loader.Loader
}

// WithFileSystem sets the file system config files are read from.
func WithFileSystem(fs loader.FileSystem) Option {
	return func(o *options) {
		o.fs = fs
	}
}

// WithEnvLoader replaces the environment layer. A nil loader disables it.
func WithEnvLoader(l loader.Loader) Option {
	return func(o *options) {
		o.env = l
	}
}

// Load builds the configuration from defaults, the file at path and the
// environment. An empty path or a missing file skips the file layer.
func Load(path string, opts ...Option) (Config, error) {
	o := options{
		fs:  loader.DefaultFS(),
		env: loader.NewEnvLoader(loader.DefaultEnvPrefix),
	}
	for _, opt := range opts {
		opt(&o)
	}

	layers := []map[string]any{}
	if path != "" {
		fl, err := loader.ForPath(o.fs, path)
		if err != nil {
			return Config{}, err
		}
		file, err := fl.Load()
		if err != nil {
			return Config{}, err
		}
		layers = append(layers, file)
	}
	if o.env != nil {
		env, err := o.env.Load()
		if err != nil {
			return Config{}, fmt.Errorf("loading environment: %w", err)
		}
		layers = append(layers, env)
	}

	return fromLayers(layers...)
}

// fromLayers merges layers over the defaults, decodes and validates the
// result.
func fromLayers(layers ...map[string]any) (Config, error) {
	merged, err := Default().toMap()
	if err != nil {
		return Config{}, err
	}
	for _, l := range layers {
		if merged, err = loader.DeepMerge(merged, l); err != nil {
			return Config{}, err
		}
	}

	raw, err := yaml.Marshal(merged)
	if err != nil {
		return Config{}, fmt.Errorf("encoding config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) toMap() (map[string]any, error) {
	raw, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	var m map[string]any
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return m, nil
}

// Validate checks every setting.
func (c Config) Validate() error {
	if c.History.MaxEntries <= 0 {
		return fmt.Errorf("%w: history.maxEntries must be positive, got %d", ErrValidationFailed, c.History.MaxEntries)
	}
	if strings.TrimSpace(c.Document.DefaultType) == "" {
		return fmt.Errorf("%w: document.defaultType is empty", ErrValidationFailed)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: log.level %q", ErrValidationFailed, c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log.format %q", ErrValidationFailed, c.Log.Format)
	}
	return nil
}
