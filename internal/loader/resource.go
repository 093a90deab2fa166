// Package loader drives API calls on behalf of views and keeps their
// {data, loading, error} state.
//
// Every fetch takes a new generation number. Only the most recent generation
// may commit its result or clear the loading flag; older in-flight fetches
// are cancelled and their late results dropped.
package loader

import (
	"context"
	"sync"

	"github.com/TimurManjosov/abconsole/internal/telemetry"
)

// State is the snapshot a view renders from.
type State[T any] struct {
	Data    T
	Loading bool
	Err     string
}

// FetchFunc performs the API calls of one fetch.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Resource holds the state of one fetchable value.
type Resource[T any] struct {
	name     string
	fallback string
	fetch    FetchFunc[T]

	mu     sync.Mutex
	state  State[T]
	gen    uint64
	cancel context.CancelFunc
	subs   map[chan State[T]]struct{}
}

// NewResource creates a resource. name labels metrics; fallback is the error
// message used when a failure carries none.
func NewResource[T any](name, fallback string, initialLoading bool, fn FetchFunc[T]) *Resource[T] {
	return &Resource[T]{
		name:     name,
		fallback: fallback,
		fetch:    fn,
		state:    State[T]{Loading: initialLoading},
		subs:     make(map[chan State[T]]struct{}),
	}
}

// State returns the current snapshot.
func (r *Resource[T]) State() State[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Fetch runs the fetch function and returns the state after it completed.
func (r *Resource[T]) Fetch(ctx context.Context) State[T] {
	return r.run(ctx, r.fetch)
}

func (r *Resource[T]) run(ctx context.Context, fn FetchFunc[T]) State[T] {
	ctx, gen := r.begin(ctx)
	return r.execute(ctx, gen, fn)
}

// execute runs fn for generation gen and commits its outcome.
func (r *Resource[T]) execute(ctx context.Context, gen uint64, fn FetchFunc[T]) (st State[T]) {
	var (
		data T
		err  error
		done bool
	)
	// loading is reset even if fn panics
	defer func() {
		st = r.finish(gen, data, err, done)
	}()

	data, err = fn(ctx)
	done = true
	return st
}

// begin starts a new generation, cancels the previous one and marks loading.
func (r *Resource[T]) begin(ctx context.Context) (context.Context, uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.gen++

	r.state.Loading = true
	r.state.Err = ""
	r.publishLocked()
	return ctx, r.gen
}

// finish commits the outcome of generation gen if it is still the latest
// and returns the resulting state.
func (r *Resource[T]) finish(gen uint64, data T, err error, done bool) State[T] {
	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.gen {
		telemetry.ObserveLoaderFetch(r.name, "stale")
		return r.state
	}
	r.cancel()
	r.cancel = nil

	switch {
	case !done:
		r.state.Err = r.fallback
		telemetry.ObserveLoaderFetch(r.name, "error")
	case err != nil:
		r.state.Err = err.Error()
		if r.state.Err == "" {
			r.state.Err = r.fallback
		}
		telemetry.ObserveLoaderFetch(r.name, "error")
	default:
		r.state.Data = data
		telemetry.ObserveLoaderFetch(r.name, "ok")
	}
	r.state.Loading = false
	r.publishLocked()
	return r.state
}

// Subscribe returns a channel receiving every state change and an unsubscribe func.
// A slow reader only sees the latest state.
func (r *Resource[T]) Subscribe() (<-chan State[T], func()) {
	ch := make(chan State[T], 1)
	r.mu.Lock()
	r.subs[ch] = struct{}{}
	r.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, ch)
			close(ch)
			r.mu.Unlock()
		})
	}
	return ch, unsub
}

func (r *Resource[T]) publishLocked() {
	s := r.state
	for ch := range r.subs {
		select {
		case ch <- s:
		default:
			// replace the unread value with the newer one
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- s:
			default:
			}
		}
	}
}
