package storage

import (
	"encoding/json"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
)

// MemoryAdapter keeps values for the lifetime of the process only, the
// ephemeral counterpart of LocalAdapter. Values are stored as marshaled
// bytes so Get always hands out an independent copy.
type MemoryAdapter[T any] struct {
	mu     sync.RWMutex
	prefix string
	values map[string][]byte
}

func NewMemoryAdapter[T any](prefix string) *MemoryAdapter[T] {
	return &MemoryAdapter[T]{
		prefix: prefix,
		values: make(map[string][]byte),
	}
}

func (a *MemoryAdapter[T]) fullKey(key string) string {
	if a.prefix == "" {
		return key
	}
	return a.prefix + ":" + key
}

func (a *MemoryAdapter[T]) Get(key string) (T, bool) {
	a.mu.RLock()
	data, ok := a.values[a.fullKey(key)]
	a.mu.RUnlock()

	var value T
	if !ok {
		return value, false
	}
	if err := json.Unmarshal(data, &value); err != nil {
		log.Errorf("storage: corrupt value for key %q: %v", key, err)
		var zero T
		return zero, false
	}
	return value, true
}

func (a *MemoryAdapter[T]) Set(key string, value T) bool {
	data, err := json.Marshal(value)
	if err != nil {
		log.Errorf("storage: error serializing key %q: %v", key, err)
		return false
	}
	a.mu.Lock()
	a.values[a.fullKey(key)] = data
	a.mu.Unlock()
	return true
}

func (a *MemoryAdapter[T]) Remove(key string) bool {
	a.mu.Lock()
	delete(a.values, a.fullKey(key))
	a.mu.Unlock()
	return true
}

func (a *MemoryAdapter[T]) Keys() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	pattern := a.prefix + ":"
	keys := []string{}
	for key := range a.values {
		if a.prefix != "" {
			if !strings.HasPrefix(key, pattern) {
				continue
			}
			key = strings.TrimPrefix(key, pattern)
		}
		keys = append(keys, key)
	}
	return keys
}

func (a *MemoryAdapter[T]) Clear() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.prefix == "" {
		a.values = make(map[string][]byte)
		return true
	}
	pattern := a.prefix + ":"
	for key := range a.values {
		if strings.HasPrefix(key, pattern) {
			delete(a.values, key)
		}
	}
	return true
}

func (a *MemoryAdapter[T]) Has(key string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.values[a.fullKey(key)]
	return ok
}

// SetRaw plants pre-marshaled bytes under a verbatim map key, bypassing
// both serialization and namespacing. Used to simulate corrupted or
// foreign stored values; callers pass the full key including any prefix.
func (a *MemoryAdapter[T]) SetRaw(fullKey string, data []byte) {
	a.mu.Lock()
	a.values[fullKey] = data
	a.mu.Unlock()
}
