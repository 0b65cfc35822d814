// Package saver exports a document snapshot through the tools that own each
// block's data.
package saver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dshills/blockstorm/internal/engine/block"
	"github.com/dshills/blockstorm/internal/engine/document"
)

// DefaultVersion is the version stamped on output when none is configured.
const DefaultVersion = "dev"

// Output is the saved document.
type Output struct {
	// Time is the save time in Unix milliseconds.
	Time    int64             `json:"time" yaml:"time"`
	Blocks  []document.Record `json:"blocks" yaml:"blocks"`
	Version string            `json:"version" yaml:"version"`

	// Skipped lists blocks left out of Blocks.
	Skipped []Skipped `json:"-" yaml:"-"`
}

// Skipped describes a block the saver left out.
type Skipped struct {
	ID     string
	Type   string
	Reason string
}

// Saver runs every block through its tool's Save and Validate.
type Saver struct {
	registry *block.Registry
	logger   *slog.Logger
	now      func() time.Time
	version  string
}

// Option configures a Saver.
type Option func(*Saver)

// WithLogger sets the logger used to report skipped blocks.
func WithLogger(l *slog.Logger) Option {
	return func(s *Saver) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Saver) {
		if now != nil {
			s.now = now
		}
	}
}

// WithVersion sets the version stamped on output.
func WithVersion(v string) Option {
	return func(s *Saver) {
		if v != "" {
			s.version = v
		}
	}
}

// New creates a Saver over the tools of reg.
func New(reg *block.Registry, opts ...Option) *Saver {
	s := &Saver{
		registry: reg,
		logger:   slog.New(slog.DiscardHandler),
		now:      time.Now,
		version:  DefaultVersion,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save converts records to Output. Blocks whose tool fails to save them or
// rejects the saved data are skipped and logged. Blocks of a type with no
// registered tool are exported unchanged.
func (s *Saver) Save(records []document.Record) Output {
	out := Output{
		Time:    s.now().UnixMilli(),
		Blocks:  make([]document.Record, 0, len(records)),
		Version: s.version,
	}

	for _, r := range records {
		b := r.Block()
		data, valid, err := s.registry.Save(b)
		switch {
		case errors.Is(err, block.ErrUnknownTool):
			s.logger.Debug("exporting block without tool", "id", b.ID, "type", b.Type)
			out.Blocks = append(out.Blocks, document.RecordOf(b))
			continue
		case err != nil:
			out.skip(s.logger, b, err.Error())
			continue
		case !valid:
			out.skip(s.logger, b, "rejected by tool")
			continue
		}

		b.Data = data
		out.Blocks = append(out.Blocks, document.RecordOf(b))
	}
	return out
}

func (o *Output) skip(logger *slog.Logger, b block.Block, reason string) {
	logger.Warn("skipping block", "id", b.ID, "type", b.Type, "reason", reason)
	o.Skipped = append(o.Skipped, Skipped{ID: b.ID, Type: b.Type, Reason: reason})
}

// EncodeJSON writes out as indented JSON.
func EncodeJSON(w io.Writer, out Output) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// EncodeYAML writes out as YAML.
func EncodeYAML(w io.Writer, out Output) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return nil
}

// Encode writes out in the named format, "json" or "yaml".
func Encode(w io.Writer, format string, out Output) error {
	switch format {
	case "", "json":
		return EncodeJSON(w, out)
	case "yaml", "yml":
		return EncodeYAML(w, out)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
