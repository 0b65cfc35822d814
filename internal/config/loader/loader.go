// Package loader reads Blockstorm configuration sources into plain maps.
//
// Each loader turns one source (a TOML file, a YAML file, the environment)
// into a map[string]any layer. Layers are merged and decoded by the config
// package.
package loader

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Loader produces one configuration layer. A source that does not exist
// yields nil, nil.
type Loader interface {
	Load() (map[string]any, error)
}

// FileLoader is a Loader that can also read an explicit path.
type FileLoader interface {
	Loader
	LoadFrom(path string) (map[string]any, error)
}

// ReaderLoader decodes a layer from a stream.
type ReaderLoader interface {
	LoadFromReader(r io.Reader) (map[string]any, error)
}

// FileSystem is the read access loaders need; tests substitute MemFS.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
}

// OSFS reads from the operating system.
type OSFS struct{}

func (OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// DefaultFS returns OSFS.
func DefaultFS() FileSystem {
	return OSFS{}
}

// ForPath returns the file loader matching the extension of path.
func ForPath(fsys FileSystem, path string) (FileLoader, error) {
	if fsys == nil {
		fsys = DefaultFS()
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return NewTOMLLoaderWithFS(fsys, path), nil
	case ".yaml", ".yml":
		return NewYAMLLoaderWithFS(fsys, path), nil
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
}

// readFile reads path, reporting a missing file as nil data.
func readFile(fsys FileSystem, path string) ([]byte, error) {
	data, err := fsys.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	return data, nil
}

// codec decodes one file format.
type codec interface {
	decode(data []byte) (map[string]any, error)
	// position extracts the 1-based line and column of a decode error, or
	// zeros when the error carries none.
	position(err error) (line, column int)
}

// fileSource implements FileLoader for any codec.
type fileSource struct {
	fs    FileSystem
	path  string
	codec codec
}

func newFileSource(fsys FileSystem, path string, c codec) fileSource {
	if fsys == nil {
		fsys = DefaultFS()
	}
	return fileSource{fs: fsys, path: path, codec: c}
}

// Load reads the configured path. A missing file yields nil, nil.
func (s fileSource) Load() (map[string]any, error) {
	return s.LoadFrom(s.path)
}

// LoadFrom reads path. A missing file yields nil, nil.
func (s fileSource) LoadFrom(path string) (map[string]any, error) {
	data, err := readFile(s.fs, path)
	if err != nil || data == nil {
		return nil, err
	}
	return s.parse(path, data)
}

// LoadFromReader decodes everything read from r.
func (s fileSource) LoadFromReader(r io.Reader) (map[string]any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return s.parse("<reader>", data)
}

func (s fileSource) parse(name string, data []byte) (map[string]any, error) {
	m, err := s.codec.decode(data)
	if err == nil {
		return m, nil
	}
	perr := &ParseError{Path: name, Message: err.Error(), Err: err}
	perr.Line, perr.Column = s.codec.position(err)
	return nil, perr
}

// ParseError reports a configuration file that could not be decoded.
type ParseError struct {
	Path    string
	Line    int // 1-based, 0 when unknown
	Column  int // 1-based, 0 when unknown
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("parse error in ")
	b.WriteString(e.Path)
	if e.Line > 0 {
		fmt.Fprintf(&b, " at line %d", e.Line)
		if e.Column > 0 {
			fmt.Fprintf(&b, ", column %d", e.Column)
		}
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	return b.String()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
