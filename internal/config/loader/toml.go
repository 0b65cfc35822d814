package loader

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// includeKey lists files a TOML file pulls in below itself.
const includeKey = "@include"

// TOMLLoader loads configuration from TOML files.
type TOMLLoader struct {
	fileSource
}

// NewTOMLLoader creates a TOML loader for path on the OS file system.
func NewTOMLLoader(path string) *TOMLLoader {
	return NewTOMLLoaderWithFS(DefaultFS(), path)
}

// NewTOMLLoaderWithFS creates a TOML loader reading from fsys.
func NewTOMLLoaderWithFS(fsys FileSystem, path string) *TOMLLoader {
	return &TOMLLoader{fileSource: newFileSource(fsys, path, tomlCodec{})}
}

type tomlCodec struct{}

func (tomlCodec) decode(data []byte) (map[string]any, error) {
	var m map[string]any
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func (tomlCodec) position(err error) (int, int) {
	var de *toml.DecodeError
	if errors.As(err, &de) {
		return de.Position()
	}
	return 0, 0
}

// LoadWithIncludes loads path and the files named by its "@include" key,
// which may be a string or a list of strings relative to path's directory.
// Includes are merged in order below the including file, so the including
// file wins. Nesting deeper than maxDepth is an error, which also stops
// include cycles.
func (l *TOMLLoader) LoadWithIncludes(path string, maxDepth int) (map[string]any, error) {
	if maxDepth <= 0 {
		return nil, fmt.Errorf("include depth exceeded for %s", path)
	}

	own, err := l.LoadFrom(path)
	if err != nil || own == nil {
		return own, err
	}
	raw, ok := own[includeKey]
	if !ok {
		return own, nil
	}
	delete(own, includeKey)

	names, err := includeNames(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	base := map[string]any{}
	for _, name := range names {
		if !filepath.IsAbs(name) {
			name = filepath.Join(filepath.Dir(path), name)
		}
		inc, err := l.LoadWithIncludes(name, maxDepth-1)
		if err != nil {
			return nil, fmt.Errorf("loading include %s: %w", name, err)
		}
		if base, err = DeepMerge(base, inc); err != nil {
			return nil, err
		}
	}
	return DeepMerge(base, own)
}

func includeNames(raw any) ([]string, error) {
	switch v := raw.(type) {
	case string:
		return []string{v}, nil
	case []any:
		names := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s entries must be strings, got %T", includeKey, item)
			}
			names = append(names, s)
		}
		return names, nil
	default:
		return nil, fmt.Errorf("%s must be a string or a list of strings, got %T", includeKey, raw)
	}
}
