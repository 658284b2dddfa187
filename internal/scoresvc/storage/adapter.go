// Package storage provides the namespaced key/value persistence layer for
// game records. Adapters are deliberately best-effort: every failure is
// logged and reported as a false/absent result so callers stay usable even
// when a persist fails.
package storage

// Adapter is a synchronous, string-keyed store for JSON-serializable
// values under a common namespace prefix. Keys() order is unspecified and
// Clear() removes only this namespace's keys.
type Adapter[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T) bool
	Remove(key string) bool
	Keys() []string
	Clear() bool
	Has(key string) bool
}
