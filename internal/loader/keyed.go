package loader

import (
	"context"
	"sync"

	"github.com/TimurManjosov/abconsole/internal/telemetry"
)

// Keyed is a Resource whose fetch depends on an externally supplied key,
// such as the experiment id of the current page. It refetches when the key
// changes and never calls the network while the key is unset.
type Keyed[K comparable, T any] struct {
	*Resource[T]

	keyMu sync.RWMutex
	key   K
	ready func(K) bool
	load  func(ctx context.Context, key K) (T, error)
}

// NewKeyed creates a keyed resource. ready reports whether a key is usable;
// nil means "not the zero value".
func NewKeyed[K comparable, T any](name, fallback string, initialLoading bool, ready func(K) bool, load func(ctx context.Context, key K) (T, error)) *Keyed[K, T] {
	if ready == nil {
		ready = func(k K) bool {
			var zero K
			return k != zero
		}
	}
	k := &Keyed[K, T]{ready: ready, load: load}
	k.Resource = NewResource[T](name, fallback, initialLoading, nil)
	return k
}

// Key returns the current key.
func (k *Keyed[K, T]) Key() K {
	k.keyMu.RLock()
	defer k.keyMu.RUnlock()
	return k.key
}

// SetKey changes the key and refetches if it differs from the previous one.
func (k *Keyed[K, T]) SetKey(ctx context.Context, key K) State[T] {
	k.keyMu.Lock()
	changed := key != k.key
	k.key = key
	k.keyMu.Unlock()

	if !changed {
		return k.State()
	}
	return k.Fetch(ctx)
}

// Fetch loads the value for the current key. With an unset key it returns
// the current state without issuing any request.
func (k *Keyed[K, T]) Fetch(ctx context.Context) State[T] {
	key := k.Key()
	if !k.ready(key) {
		telemetry.ObserveLoaderFetch(k.name, "skipped")
		return k.State()
	}

	// The key check and the new generation happen under one lock, so a
	// SetKey that lands after this point always starts a later generation.
	k.keyMu.RLock()
	if k.key != key {
		k.keyMu.RUnlock()
		telemetry.ObserveLoaderFetch(k.name, "stale")
		return k.State()
	}
	ctx, gen := k.begin(ctx)
	k.keyMu.RUnlock()

	return k.execute(ctx, gen, func(ctx context.Context) (T, error) {
		return k.load(ctx, key)
	})
}
