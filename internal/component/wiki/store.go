// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

package wiki

import "context"

// WikiRepository defines the data access contract for wikis and their pages.
type WikiRepository interface {

	/*
		CreateWiki persists a new wiki component root.

		Parameters:
		  - context: context.Context
		  - wiki: *Wiki

		Returns:
		  - error: Persistence failures
	*/
	CreateWiki(context context.Context, wiki *Wiki) error

	/*
		FindWikiByID returns the wiki with the given component id.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *Wiki: Hydrated entity
		  - error: apperr NOT_FOUND or retrieval failures
	*/
	FindWikiByID(context context.Context, id string) (*Wiki, error)

	/*
		DeleteWiki removes the wiki root and all of its pages.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - error: Persistence failures
	*/
	DeleteWiki(context context.Context, id string) error

	/*
		CreatePage persists a new wiki page.

		Parameters:
		  - context: context.Context
		  - page: *Page

		Returns:
		  - error: Conflict on a taken slug within the wiki, or persistence
		    failures
	*/
	CreatePage(context context.Context, page *Page) error

	/*
		FindPageBySlug returns the page addressed by slug within a wiki.

		Parameters:
		  - context: context.Context
		  - wikiID: string
		  - slug: string

		Returns:
		  - *Page: Hydrated entity
		  - error: apperr NOT_FOUND or retrieval failures
	*/
	FindPageBySlug(context context.Context, wikiID, slug string) (*Page, error)

	/*
		ListPages returns all pages of a wiki ordered by title, without their
		content bodies.

		Parameters:
		  - context: context.Context
		  - wikiID: string

		Returns:
		  - []*Page: Page listing (Content left empty)
		  - error: Retrieval failures
	*/
	ListPages(context context.Context, wikiID string) ([]*Page, error)

	/*
		UpdatePage persists the page's title and content.

		Parameters:
		  - context: context.Context
		  - page: *Page

		Returns:
		  - error: Persistence failures
	*/
	UpdatePage(context context.Context, page *Page) error

	/*
		DeletePage removes a single wiki page.

		Parameters:
		  - context: context.Context
		  - wikiID: string
		  - slug: string

		Returns:
		  - error: apperr NOT_FOUND or persistence failures
	*/
	DeletePage(context context.Context, wikiID, slug string) error
}
