// Package views tracks property views on the visitor's device.
//
// Two trackers live here:
// - Limiter: the anonymous free-view allowance (write-once id set, no expiry)
// - Recent: the recently viewed list (pruned after 30 days)
//
// Both persist through a Store. In production the store is a signed cookie,
// so state stays on the device and the server holds nothing.
package views

import (
	"errors"
	"sync"
)

// Store persists one value on the visitor's device.
type Store[T any] interface {
	// Load returns the stored value. A missing value returns the zero value
	// and no error.
	Load() (T, error)

	// Save replaces the stored value.
	Save(v T) error
}

// ErrStoreUnavailable is returned by stores that cannot persist.
var ErrStoreUnavailable = errors.New("views: store unavailable")

// MemoryStore keeps the value in memory. Useful in tests and for clients
// without a cookie jar.
type MemoryStore[T any] struct {
	mu      sync.Mutex
	value   T
	LoadErr error
	SaveErr error
}

func (m *MemoryStore[T]) Load() (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		var zero T
		return zero, m.LoadErr
	}
	return m.value, nil
}

func (m *MemoryStore[T]) Save(v T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.value = v
	return nil
}
