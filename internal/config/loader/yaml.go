package loader

import (
	"errors"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// YAMLLoader loads configuration from YAML files.
type YAMLLoader struct {
	fileSource
}

// NewYAMLLoader creates a YAML loader for path on the OS file system.
func NewYAMLLoader(path string) *YAMLLoader {
	return NewYAMLLoaderWithFS(DefaultFS(), path)
}

// NewYAMLLoaderWithFS creates a YAML loader reading from fsys.
func NewYAMLLoaderWithFS(fsys FileSystem, path string) *YAMLLoader {
	return &YAMLLoader{fileSource: newFileSource(fsys, path, yamlCodec{})}
}

type yamlCodec struct{}

func (yamlCodec) decode(data []byte) (map[string]any, error) {
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		var te *yaml.TypeError
		if errors.As(err, &te) && len(te.Errors) > 0 {
			return nil, errors.New(te.Errors[0])
		}
		return nil, err
	}
	return m, nil
}

// position reads the line from messages of the form "yaml: line 3: ...".
// yaml.v3 does not report columns.
func (yamlCodec) position(err error) (int, int) {
	msg := strings.TrimPrefix(err.Error(), "yaml: ")
	rest, ok := strings.CutPrefix(msg, "line ")
	if !ok {
		return 0, 0
	}
	num, _, ok := strings.Cut(rest, ":")
	if !ok {
		return 0, 0
	}
	line, convErr := strconv.Atoi(num)
	if convErr != nil {
		return 0, 0
	}
	return line, 0
}
