package remoteconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/simpleg-eu/cp-core/internal/apperr"
	"github.com/spf13/viper"
)

// KeyDelimiter separates the levels of a nested key, e.g. "Auth:Jwks:Uri".
const KeyDelimiter = ":"

// Getter reads values from configuration files.
type Getter interface {
	Get(file, key string) (any, error)
	UnmarshalKey(file, key string, out any) error
}

// FileGetter reads YAML files under a base directory. Each file is parsed
// once and cached. Keys are matched case-insensitively.
type FileGetter struct {
	baseDir string

	mu    sync.Mutex
	cache map[string]*viper.Viper
}

// NewFileGetter creates a FileGetter rooted at baseDir.
func NewFileGetter(baseDir string) *FileGetter {
	return &FileGetter{baseDir: baseDir, cache: map[string]*viper.Viper{}}
}

// Get returns the value at key within file.
func (g *FileGetter) Get(file, key string) (any, error) {
	v, err := g.load(file)
	if err != nil {
		return nil, err
	}
	if !v.IsSet(key) {
		return nil, apperr.Newf(apperr.KindNotFound, "could not find key '%s'", key)
	}
	return v.Get(key), nil
}

// UnmarshalKey decodes the value at key within file into out.
func (g *FileGetter) UnmarshalKey(file, key string, out any) error {
	v, err := g.load(file)
	if err != nil {
		return err
	}
	if !v.IsSet(key) {
		return apperr.Newf(apperr.KindNotFound, "could not find key '%s'", key)
	}
	if err := v.UnmarshalKey(key, out); err != nil {
		return apperr.Wrap(apperr.KindSerializationFailure, fmt.Sprintf("failed to decode key '%s'", key), err)
	}
	return nil
}

func (g *FileGetter) load(file string) (*viper.Viper, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if v, ok := g.cache[file]; ok {
		return v, nil
	}
	v, err := readYAML(filepath.Join(g.baseDir, file))
	if err != nil {
		return nil, err
	}
	g.cache[file] = v
	return v, nil
}

func readYAML(path string) (*viper.Viper, error) {
	v := viper.NewWithOptions(viper.KeyDelimiter(KeyDelimiter))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.Wrap(apperr.KindNotFound, fmt.Sprintf("could not find file '%s'", path), err)
		}
		return nil, apperr.Wrap(apperr.KindSerializationFailure, fmt.Sprintf("failed to read '%s'", path), err)
	}
	return v, nil
}

// ReadValue reads a whole YAML file into a map.
func ReadValue(path string) (map[string]any, error) {
	v, err := readYAML(path)
	if err != nil {
		return nil, err
	}
	return v.AllSettings(), nil
}
