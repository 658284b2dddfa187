package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

// LocalAdapter persists each key as one JSON file named "<prefix>:<key>.json"
// inside its data directory. This is the durable backend: records survive
// restarts as long as the directory does.
type LocalAdapter[T any] struct {
	dir    string
	prefix string
}

// NewLocalAdapter creates the data directory if needed.
func NewLocalAdapter[T any](dir, prefix string) (*LocalAdapter[T], error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &LocalAdapter[T]{dir: dir, prefix: prefix}, nil
}

func (a *LocalAdapter[T]) path(key string) string {
	name := key + ".json"
	if a.prefix != "" {
		name = a.prefix + ":" + key + ".json"
	}
	return filepath.Join(a.dir, name)
}

func (a *LocalAdapter[T]) Get(key string) (T, bool) {
	var value T
	data, err := os.ReadFile(a.path(key))
	if err != nil {
		if !os.IsNotExist(err) {
			log.Errorf("storage: error reading key %q: %v", key, err)
		}
		return value, false
	}
	if err := json.Unmarshal(data, &value); err != nil {
		log.Errorf("storage: corrupt value for key %q: %v", key, err)
		var zero T
		return zero, false
	}
	return value, true
}

func (a *LocalAdapter[T]) Set(key string, value T) bool {
	data, err := json.Marshal(value)
	if err != nil {
		log.Errorf("storage: error serializing key %q: %v", key, err)
		return false
	}
	if err := os.WriteFile(a.path(key), data, 0o644); err != nil {
		log.Errorf("storage: error writing key %q: %v", key, err)
		return false
	}
	return true
}

func (a *LocalAdapter[T]) Remove(key string) bool {
	if err := os.Remove(a.path(key)); err != nil && !os.IsNotExist(err) {
		log.Errorf("storage: error removing key %q: %v", key, err)
		return false
	}
	return true
}

func (a *LocalAdapter[T]) Keys() []string {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		log.Errorf("storage: error listing keys: %v", err)
		return []string{}
	}
	pattern := a.prefix + ":"
	keys := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		name = strings.TrimSuffix(name, ".json")
		if a.prefix != "" {
			if !strings.HasPrefix(name, pattern) {
				continue
			}
			name = strings.TrimPrefix(name, pattern)
		}
		keys = append(keys, name)
	}
	return keys
}

func (a *LocalAdapter[T]) Clear() bool {
	ok := true
	for _, key := range a.Keys() {
		if !a.Remove(key) {
			ok = false
		}
	}
	return ok
}

func (a *LocalAdapter[T]) Has(key string) bool {
	_, err := os.Stat(a.path(key))
	return err == nil
}
