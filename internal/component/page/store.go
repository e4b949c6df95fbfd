// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

package page

import "context"

// PageRepository defines the data access contract for page components.
type PageRepository interface {

	/*
		Create persists a new page component.

		Parameters:
		  - context: context.Context
		  - page: *Page

		Returns:
		  - error: Persistence failures
	*/
	Create(context context.Context, page *Page) error

	/*
		FindByID returns the page with the given component id.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *Page: Hydrated entity
		  - error: apperr NOT_FOUND or retrieval failures
	*/
	FindByID(context context.Context, id string) (*Page, error)

	/*
		Update persists the page's name and content.

		Parameters:
		  - context: context.Context
		  - page: *Page

		Returns:
		  - error: Persistence failures
	*/
	Update(context context.Context, page *Page) error

	/*
		Delete removes the page row.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - error: Persistence failures
	*/
	Delete(context context.Context, id string) error
}
