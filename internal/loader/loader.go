// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

/*
Package loader provides the per-request batching and caching layer that sits
between graph-style response assembly and the entity stores.

Rendering one API response frequently touches the same entities many times
(every chat message references its author, every planet card references its
owner). Issuing a point query per reference degenerates into an N+1 storm.
The [Loader] collapses all lookups issued within a short collection window
into a single batched backend call, deduplicates repeated keys, and memoizes
every result for the remainder of the request.

# Lifetime

A [Bundle] is constructed fresh for every incoming request and discarded when
the request finishes. Nothing is ever cached across requests: staleness and
cross-tenant leakage are impossible by construction.

# Failure Semantics

A key the backend does not return resolves to an explicit "missing" result
(found == false), never an error, so a partially missing batch cannot fail
sibling lookups. If the batched fetch itself fails, every key waiting on that
batch observes the same backend error.
*/
package loader

import (
	"context"
	"sync"
	"time"
)

// Default batching parameters. The window is deliberately tiny: it only needs
// to span the synchronous burst of Load calls issued while one response tree
// is being assembled, not any real I/O.
const (
	// DefaultWait is the collection window before a batch is dispatched.
	DefaultWait = 2 * time.Millisecond

	// DefaultMaxBatch caps the number of distinct keys per backend call.
	// A full batch dispatches immediately without waiting for the window.
	DefaultMaxBatch = 100
)

// BatchFunc fetches a set of entities by their deduplicated ids in one
// backend round-trip. Ids absent from the returned map are treated as
// missing, not as errors.
type BatchFunc[V any] func(ctx context.Context, keys []string) (map[string]V, error)

// Loader batches and caches lookups for one entity category within a single
// request. It is safe for concurrent use by the goroutines serving that
// request.
type Loader[V any] struct {
	fetch    BatchFunc[V]
	wait     time.Duration
	maxBatch int

	mu      sync.Mutex
	cache   map[string]*thunk[V]
	current *batch[V]
}

// New constructs a [Loader] around the given batch fetch function using the
// default window and batch size.
func New[V any](fetch BatchFunc[V]) *Loader[V] {
	return NewWithOptions(fetch, DefaultWait, DefaultMaxBatch)
}

// NewWithOptions constructs a [Loader] with explicit batching parameters.
func NewWithOptions[V any](fetch BatchFunc[V], wait time.Duration, maxBatch int) *Loader[V] {
	if wait <= 0 {
		wait = DefaultWait
	}
	if maxBatch <= 0 {
		maxBatch = DefaultMaxBatch
	}
	return &Loader[V]{
		fetch:    fetch,
		wait:     wait,
		maxBatch: maxBatch,
		cache:    make(map[string]*thunk[V]),
	}
}

// # Lookup API

// Load returns the entity for key, batching the backend call with every other
// Load issued inside the same collection window.
//
// The second return value reports whether the backend knows the key at all;
// a missing entity is not an error. The same key always resolves to the same
// result for the lifetime of the loader.
func (loader *Loader[V]) Load(ctx context.Context, key string) (V, bool, error) {
	return loader.loadThunk(ctx, key).wait()
}

// LoadMany resolves a set of keys, preserving input order. Duplicate keys
// share a single slot in the underlying batch.
func (loader *Loader[V]) LoadMany(ctx context.Context, keys []string) ([]Result[V], error) {
	thunks := make([]*thunk[V], len(keys))
	for i, key := range keys {
		thunks[i] = loader.loadThunk(ctx, key)
	}

	results := make([]Result[V], len(keys))
	for i, th := range thunks {
		value, found, err := th.wait()
		if err != nil {
			return nil, err
		}
		results[i] = Result[V]{Value: value, Found: found}
	}
	return results, nil
}

// Prime seeds the cache with a known value, typically right after a create
// or update so that later loads in the same request see the fresh entity
// without a backend round-trip. Priming never overwrites an existing slot.
func (loader *Loader[V]) Prime(key string, value V) {
	loader.mu.Lock()
	defer loader.mu.Unlock()

	if _, exists := loader.cache[key]; exists {
		return
	}
	th := &thunk[V]{done: make(chan struct{})}
	th.value, th.found = value, true
	close(th.done)
	loader.cache[key] = th
}

// Result is one slot of a [Loader.LoadMany] response.
type Result[V any] struct {
	Value V
	Found bool
}

// # Batching Internals

// thunk is the future for one requested key. It is resolved exactly once,
// when the batch it belongs to completes.
type thunk[V any] struct {
	done  chan struct{}
	value V
	found bool
	err   error
}

func (th *thunk[V]) wait() (V, bool, error) {
	<-th.done
	return th.value, th.found, th.err
}

// batch accumulates the distinct keys requested during one collection window.
type batch[V any] struct {
	ctx    context.Context
	keys   []string
	thunks map[string]*thunk[V]
}

// loadThunk returns the (possibly already resolved) thunk for key, creating
// it and attaching it to the open batch on first sight.
func (loader *Loader[V]) loadThunk(ctx context.Context, key string) *thunk[V] {
	loader.mu.Lock()

	// Memoized or already in-flight: the same key never fetches twice.
	if th, ok := loader.cache[key]; ok {
		loader.mu.Unlock()
		return th
	}

	th := &thunk[V]{done: make(chan struct{})}
	loader.cache[key] = th

	if loader.current == nil {
		// First key of a new window: open a batch and arm its timer.
		current := &batch[V]{
			ctx:    ctx,
			thunks: make(map[string]*thunk[V]),
		}
		loader.current = current
		time.AfterFunc(loader.wait, func() {
			loader.dispatchIfCurrent(current)
		})
	}

	current := loader.current
	current.keys = append(current.keys, key)
	current.thunks[key] = th

	// A full batch ships immediately; the timer finds nothing left to do.
	if len(current.keys) >= loader.maxBatch {
		loader.current = nil
		loader.mu.Unlock()
		go loader.dispatch(current)
		return th
	}

	loader.mu.Unlock()
	return th
}

// dispatchIfCurrent closes the collection window when the timer fires first.
func (loader *Loader[V]) dispatchIfCurrent(target *batch[V]) {
	loader.mu.Lock()
	if loader.current != target {
		// Already dispatched by the maxBatch path.
		loader.mu.Unlock()
		return
	}
	loader.current = nil
	loader.mu.Unlock()

	loader.dispatch(target)
}

// dispatch performs the single backend call for a closed batch and resolves
// every waiting thunk.
func (loader *Loader[V]) dispatch(target *batch[V]) {
	results, err := loader.fetch(target.ctx, target.keys)

	for key, th := range target.thunks {
		if err != nil {
			// The whole batch failed: every slot sees the same backend error.
			th.err = err
		} else if value, ok := results[key]; ok {
			th.value, th.found = value, true
		}
		close(th.done)
	}
}
