// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

package component_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starbasehq/starbase/internal/component"
)

// stubVariant is a minimal Variant recording dispatched calls.
type stubVariant struct {
	kind    component.Kind
	created []string
	deleted []string
}

func (v *stubVariant) Kind() component.Kind { return v.kind }

func (v *stubVariant) Create(_ context.Context, planetID, _, _ string) (string, error) {
	v.created = append(v.created, planetID)
	return string(v.kind) + "-1", nil
}

func (v *stubVariant) Delete(_ context.Context, componentID string) error {
	v.deleted = append(v.deleted, componentID)
	return nil
}

func allStubs() []component.Variant {
	variants := make([]component.Variant, 0, len(component.AllKinds))
	for _, kind := range component.AllKinds {
		variants = append(variants, &stubVariant{kind: kind})
	}
	return variants
}

/*
TestNewRegistry_RequiresExhaustiveCoverage verifies that the registry refuses
partial or duplicated variant sets.
*/
func TestNewRegistry_RequiresExhaustiveCoverage(t *testing.T) {
	t.Run("complete_set", func(t *testing.T) {
		registry, err := component.NewRegistry(allStubs()...)
		require.NoError(t, err)
		require.NotNil(t, registry)
	})

	t.Run("missing_kind", func(t *testing.T) {
		stubs := allStubs()
		_, err := component.NewRegistry(stubs[:len(stubs)-1]...)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no variant registered")
	})

	t.Run("duplicate_kind", func(t *testing.T) {
		stubs := append(allStubs(), &stubVariant{kind: component.KindChat})
		_, err := component.NewRegistry(stubs...)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate variant")
	})

	t.Run("unknown_kind", func(t *testing.T) {
		stubs := append(allStubs()[:0:0], &stubVariant{kind: component.Kind("blog")})
		_, err := component.NewRegistry(stubs...)
		require.Error(t, err)
	})
}

/*
TestRegistry_Dispatch verifies that create and delete route to the matching
variant and that unknown kinds fail.
*/
func TestRegistry_Dispatch(t *testing.T) {
	forum := &stubVariant{kind: component.KindForum}
	variants := []component.Variant{
		&stubVariant{kind: component.KindPage},
		&stubVariant{kind: component.KindWiki},
		forum,
		&stubVariant{kind: component.KindFiles},
		&stubVariant{kind: component.KindChat},
	}
	registry, err := component.NewRegistry(variants...)
	require.NoError(t, err)

	ctx := context.Background()

	id, err := registry.Create(ctx, component.KindForum, "planet-1", "user-1", "General")
	require.NoError(t, err)
	assert.Equal(t, "forum-1", id)
	assert.Equal(t, []string{"planet-1"}, forum.created)

	require.NoError(t, registry.Delete(ctx, component.KindForum, "forum-1"))
	assert.Equal(t, []string{"forum-1"}, forum.deleted)

	_, err = registry.Create(ctx, component.Kind("blog"), "planet-1", "user-1", "x")
	require.Error(t, err)
}

/*
TestKindValid pins the closed enumeration.
*/
func TestKindValid(t *testing.T) {
	for _, kind := range component.AllKinds {
		assert.True(t, kind.Valid(), string(kind))
	}
	assert.False(t, component.Kind("blog").Valid())
	assert.False(t, component.Kind("").Valid())
}
