// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

/*
Package planet implements the tenant community — the top-level unit of
ownership and access control.

A planet has exactly one owner, an optional member set (the owner is
implicitly a full member and never appears in the set), per-planet bans, and
an ordered list of attached component references. Every sub-resource
operation anywhere in the system resolves back to a planet for its
permission decision.

# Architecture

The [Planet] entity is the permission engine's realm view: the engine asks
five questions (id, owner, private?, member?, banned?) and this package
answers them without exposing storage details.
*/
package planet

import (
	"time"

	"github.com/starbasehq/starbase/internal/component"
)

// # Domain Entity

// Planet represents a tenant community.
type Planet struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Owner string `json:"owner_id"`

	// Private hides the planet and all its components from non-members.
	Private bool `json:"private"`

	// Members never contains the owner; Banned and Members are kept disjoint
	// by the ban operation, not by a stored constraint.
	Members []string `json:"members"`
	Banned  []string `json:"banned"`

	// Components is the ordered list of attached component references.
	Components []component.Ref `json:"components"`

	// Operator-controlled metadata, orthogonal to permission tiers.
	Featured  bool `json:"featured"`
	Verified  bool `json:"verified"`
	Partnered bool `json:"partnered"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// # Permission Realm View

// RealmID returns the planet id for permission checks.
func (planet *Planet) RealmID() string { return planet.ID }

// OwnerID returns the single owning account id.
func (planet *Planet) OwnerID() string { return planet.Owner }

// IsPrivate reports whether the planet is members-only.
func (planet *Planet) IsPrivate() bool { return planet.Private }

// HasMember reports whether userID is in the member set. The owner is NOT
// part of the set; the permission engine treats ownership separately.
func (planet *Planet) HasMember(userID string) bool {
	for _, id := range planet.Members {
		if id == userID {
			return true
		}
	}
	return false
}

// HasBanned reports whether userID is banned from this planet.
func (planet *Planet) HasBanned(userID string) bool {
	for _, id := range planet.Banned {
		if id == userID {
			return true
		}
	}
	return false
}

// HasComponent returns the reference for componentID, if attached.
func (planet *Planet) HasComponent(componentID string) (component.Ref, bool) {
	for _, ref := range planet.Components {
		if ref.ComponentID == componentID {
			return ref, true
		}
	}
	return component.Ref{}, false
}

// # Operator Flags

// Flag names one of the operator-controlled metadata toggles.
type Flag string

const (
	FlagFeatured  Flag = "featured"
	FlagVerified  Flag = "verified"
	FlagPartnered Flag = "partnered"
)

// Valid reports whether f names a known flag.
func (f Flag) Valid() bool {
	switch f {
	case FlagFeatured, FlagVerified, FlagPartnered:
		return true
	}
	return false
}

// # Field Identifiers

const (
	FieldName    = "name"
	FieldPrivate = "private"
	FieldKind    = "kind"
	FieldFlag    = "flag"
	FieldCode    = "code"
)
