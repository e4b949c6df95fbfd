// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

/*
Package page implements the simplest component variant: a single
rich-content page attached to a planet.

Reading follows the planet's Read tier; editing is a structural change and
requires FullWrite.
*/
package page

import "time"

// Page represents a single rich-content page component.
type Page struct {
	ID       string `json:"id"`
	PlanetID string `json:"planet_id"`
	Name     string `json:"name"`

	// Content is the raw rich-text document. Rendering happens client-side.
	Content string `json:"content"`

	// UpdatedBy is the account that last edited the content.
	UpdatedBy string `json:"updated_by"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// # Field Identifiers

const (
	FieldName    = "name"
	FieldContent = "content"
)
