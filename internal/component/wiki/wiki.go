// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

/*
Package wiki implements the collaborative wiki component variant: a wiki
holds named pages addressed by slug.

Collaboration model: any caller passing the planet's PublicWrite tier may
create and edit pages (that is what a wiki is for); deleting a page is
moderation and requires FullWrite.
*/
package wiki

import "time"

// Wiki represents the wiki component root.
type Wiki struct {
	ID       string `json:"id"`
	PlanetID string `json:"planet_id"`
	Name     string `json:"name"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Page represents a single wiki page, addressed by slug within its wiki.
type Page struct {
	ID       string `json:"id"`
	WikiID   string `json:"wiki_id"`
	PlanetID string `json:"planet_id"`
	Slug     string `json:"slug"`
	Title    string `json:"title"`
	Content  string `json:"content"`

	// UpdatedBy is the account that last edited the page.
	UpdatedBy string `json:"updated_by"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// # Field Identifiers

const (
	FieldTitle   = "title"
	FieldContent = "content"
)
