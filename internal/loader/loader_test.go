// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

package loader_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starbasehq/starbase/internal/loader"
)

// countingBackend records every batch it receives and serves from a fixed map.
type countingBackend struct {
	mu      sync.Mutex
	batches [][]string
	data    map[string]string
	err     error
	calls   atomic.Int64
}

func (backend *countingBackend) fetch(_ context.Context, keys []string) (map[string]string, error) {
	backend.calls.Add(1)
	backend.mu.Lock()
	backend.batches = append(backend.batches, append([]string(nil), keys...))
	backend.mu.Unlock()

	if backend.err != nil {
		return nil, backend.err
	}

	results := make(map[string]string, len(keys))
	for _, key := range keys {
		if value, ok := backend.data[key]; ok {
			results[key] = value
		}
	}
	return results, nil
}

/*
TestLoader_BatchesAndDeduplicates verifies that concurrent loads inside one
collection window trigger exactly one backend call over the deduplicated
key set, and that repeated loads return identical cached results.
*/
func TestLoader_BatchesAndDeduplicates(t *testing.T) {
	backend := &countingBackend{data: map[string]string{"A": "alpha", "B": "beta"}}
	ld := loader.New(backend.fetch)
	ctx := context.Background()

	// Issue [A, B, A] within one window.
	var wg sync.WaitGroup
	values := make([]string, 3)
	for i, key := range []string{"A", "B", "A"} {
		wg.Add(1)
		go func(slot int, k string) {
			defer wg.Done()
			value, found, err := ld.Load(ctx, k)
			require.NoError(t, err)
			require.True(t, found)
			values[slot] = value
		}(i, key)
	}
	wg.Wait()

	assert.Equal(t, []string{"alpha", "beta", "alpha"}, values)
	assert.Equal(t, int64(1), backend.calls.Load(), "one batch for the whole window")

	require.Len(t, backend.batches, 1)
	assert.ElementsMatch(t, []string{"A", "B"}, backend.batches[0], "duplicate key collapsed")

	// A later load of a cached key must not touch the backend again.
	value, found, err := ld.Load(ctx, "A")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "alpha", value)
	assert.Equal(t, int64(1), backend.calls.Load())
}

/*
TestLoader_MissingKey verifies that a key the backend does not return
resolves to an explicit missing marker without failing sibling lookups.
*/
func TestLoader_MissingKey(t *testing.T) {
	backend := &countingBackend{data: map[string]string{"A": "alpha"}}
	ld := loader.New(backend.fetch)

	results, err := ld.LoadMany(context.Background(), []string{"A", "ghost"})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.True(t, results[0].Found)
	assert.Equal(t, "alpha", results[0].Value)
	assert.False(t, results[1].Found, "absent id resolves to missing, not error")
	assert.Empty(t, results[1].Value)
}

/*
TestLoader_BatchError verifies that a failed backend fetch surfaces the same
error to every pending slot of that batch.
*/
func TestLoader_BatchError(t *testing.T) {
	backendErr := errors.New("store unavailable")
	backend := &countingBackend{err: backendErr}
	ld := loader.New(backend.fetch)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, key := range []string{"A", "B"} {
		wg.Add(1)
		go func(slot int, k string) {
			defer wg.Done()
			_, _, err := ld.Load(ctx, k)
			errs[slot] = err
		}(i, key)
	}
	wg.Wait()

	require.ErrorIs(t, errs[0], backendErr)
	require.ErrorIs(t, errs[1], backendErr)
	assert.Equal(t, int64(1), backend.calls.Load())
}

/*
TestLoader_MaxBatchDispatchesEarly verifies that a full batch ships without
waiting for the collection window to elapse.
*/
func TestLoader_MaxBatchDispatchesEarly(t *testing.T) {
	backend := &countingBackend{data: map[string]string{"A": "alpha", "B": "beta", "C": "gamma"}}
	// Window far longer than the test timeout: only the maxBatch path can ship.
	ld := loader.NewWithOptions(backend.fetch, time.Minute, 2)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _, _ = ld.Load(ctx, "A")
	}()
	value, found, err := ld.Load(ctx, "B")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "beta", value)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("batch never dispatched")
	}
}

/*
TestLoader_Prime verifies that primed entries are served from cache and are
never overwritten by later loads.
*/
func TestLoader_Prime(t *testing.T) {
	backend := &countingBackend{data: map[string]string{"A": "stale"}}
	ld := loader.New(backend.fetch)

	ld.Prime("A", "fresh")

	value, found, err := ld.Load(context.Background(), "A")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "fresh", value)
	assert.Equal(t, int64(0), backend.calls.Load(), "primed key skips the backend")
}

/*
TestBundle_IsPerRequest verifies that two bundles never share cached state.
*/
func TestBundle_IsPerRequest(t *testing.T) {
	backend := &countingBackend{data: map[string]string{"u1": "user-one"}}

	sources := loader.SourceSet{
		Users: func(ctx context.Context, keys []string) (map[string]loader.User, error) {
			raw, err := backend.fetch(ctx, keys)
			if err != nil {
				return nil, err
			}
			users := make(map[string]loader.User, len(raw))
			for id, name := range raw {
				users[id] = loader.User{ID: id, Username: name}
			}
			return users, nil
		},
	}

	first := loader.NewBundle(sources)
	second := loader.NewBundle(sources)
	ctx := context.Background()

	_, _, err := first.Users.Load(ctx, "u1")
	require.NoError(t, err)
	_, _, err = second.Users.Load(ctx, "u1")
	require.NoError(t, err)

	assert.Equal(t, int64(2), backend.calls.Load(), "fresh bundle, fresh cache")
}
