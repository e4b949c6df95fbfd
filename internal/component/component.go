// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

/*
Package component defines the closed set of pluggable component kinds and the
capability interface every variant implements.

A planet carries an ordered list of component references; each reference
points at exactly one variant-owned entity (a page, a wiki, a forum, a files
tree, or a chat). The [Registry] is the single dispatch point: attach,
cascade-delete, and read-check operations go through it rather than through
string-keyed branching scattered across the codebase.

# Exhaustiveness

The Kind enumeration is closed. [NewRegistry] refuses to start unless every
kind has a registered variant, so a newly added kind cannot silently ship
without its capability implementation.
*/
package component

import (
	"context"
	"fmt"
)

// # Kind Enumeration

// Kind identifies one of the five component variants.
type Kind string

const (
	KindPage  Kind = "page"
	KindWiki  Kind = "wiki"
	KindForum Kind = "forum"
	KindFiles Kind = "files"
	KindChat  Kind = "chat"
)

// AllKinds lists every member of the closed enumeration.
var AllKinds = []Kind{KindPage, KindWiki, KindForum, KindFiles, KindChat}

// Valid reports whether k is a member of the closed enumeration.
func (k Kind) Valid() bool {
	switch k {
	case KindPage, KindWiki, KindForum, KindFiles, KindChat:
		return true
	}
	return false
}

// # Planet-Side Reference

// Ref is the entry a planet stores for each attached component.
type Ref struct {
	ComponentID string `json:"component_id"`
	Kind        Kind   `json:"kind"`
	Name        string `json:"name"`
}

// # Variant Capability

// Variant is the capability interface implemented by each component package.
//
// Variants own their child entities: Delete must cascade to everything the
// component contains (posts and replies, wiki pages, file objects with their
// backing storage, channels with their messages).
type Variant interface {
	// Kind returns the variant's member of the closed enumeration.
	Kind() Kind

	// Create provisions a new, empty component instance attached to the
	// given planet and returns its id.
	Create(ctx context.Context, planetID, ownerID, name string) (string, error)

	// Delete removes the component instance and cascades to all owned child
	// entities. Deleting an already absent component is a NOT_FOUND failure.
	Delete(ctx context.Context, componentID string) error
}

// # Registry

// Registry dispatches component operations over the closed [Kind] set.
type Registry struct {
	variants map[Kind]Variant
}

// NewRegistry builds the dispatch table and enforces exhaustive coverage:
// every member of [AllKinds] must be represented exactly once.
func NewRegistry(variants ...Variant) (*Registry, error) {
	table := make(map[Kind]Variant, len(AllKinds))
	for _, variant := range variants {
		kind := variant.Kind()
		if !kind.Valid() {
			return nil, fmt.Errorf("component: variant registered for unknown kind %q", kind)
		}
		if _, dup := table[kind]; dup {
			return nil, fmt.Errorf("component: duplicate variant for kind %q", kind)
		}
		table[kind] = variant
	}

	for _, kind := range AllKinds {
		if _, ok := table[kind]; !ok {
			return nil, fmt.Errorf("component: no variant registered for kind %q", kind)
		}
	}

	return &Registry{variants: table}, nil
}

// Variant returns the capability implementation for kind.
func (registry *Registry) Variant(kind Kind) (Variant, error) {
	variant, ok := registry.variants[kind]
	if !ok {
		return nil, fmt.Errorf("component: unknown kind %q", kind)
	}
	return variant, nil
}

// Create dispatches component provisioning to the kind's variant.
func (registry *Registry) Create(ctx context.Context, kind Kind, planetID, ownerID, name string) (string, error) {
	variant, err := registry.Variant(kind)
	if err != nil {
		return "", err
	}
	return variant.Create(ctx, planetID, ownerID, name)
}

// Delete dispatches cascade deletion to the kind's variant.
func (registry *Registry) Delete(ctx context.Context, kind Kind, componentID string) error {
	variant, err := registry.Variant(kind)
	if err != nil {
		return err
	}
	return variant.Delete(ctx, componentID)
}
