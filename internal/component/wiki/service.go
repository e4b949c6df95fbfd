// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

package wiki

import (
	"context"

	"github.com/starbasehq/starbase/internal/component"
	"github.com/starbasehq/starbase/internal/component/access"
	"github.com/starbasehq/starbase/internal/perm"
	"github.com/starbasehq/starbase/internal/platform/apperr"
	"github.com/starbasehq/starbase/pkg/slug"
	"github.com/starbasehq/starbase/pkg/uuid"
)

// Service implements wiki component use cases and the variant lifecycle.
type Service struct {
	wikiRepository WikiRepository
	engine         *perm.Engine
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(wikiRepo WikiRepository, engine *perm.Engine) *Service {
	return &Service{wikiRepository: wikiRepo, engine: engine}
}

// # Variant Lifecycle

// Kind identifies this variant in the component registry.
func (service *Service) Kind() component.Kind { return component.KindWiki }

/*
Create provisions an empty wiki for a freshly attached component.

Parameters:
  - context: context.Context
  - planetID: string
  - ownerID: string
  - name: string

Returns:
  - string: New component id
  - error: Persistence failures
*/
func (service *Service) Create(context context.Context, planetID, _, name string) (string, error) {
	wiki := &Wiki{
		ID:       uuid.New(),
		PlanetID: planetID,
		Name:     name,
	}
	if err := service.wikiRepository.CreateWiki(context, wiki); err != nil {
		return "", err
	}
	return wiki.ID, nil
}

/*
Delete cascades the wiki and all of its pages when the component is detached.

Parameters:
  - context: context.Context
  - componentID: string

Returns:
  - error: Persistence failures
*/
func (service *Service) Delete(context context.Context, componentID string) error {
	return service.wikiRepository.DeleteWiki(context, componentID)
}

// # Use Cases

/*
Get returns the wiki root with its page listing, gated by the Read tier.

Parameters:
  - context: context.Context
  - userID: string (empty for anonymous)
  - wikiID: string

Returns:
  - *Wiki: The wiki root
  - []*Page: Page listing without content
  - error: apperr NOT_FOUND when missing OR the planet is not visible
*/
func (service *Service) Get(context context.Context, userID, wikiID string) (*Wiki, []*Page, error) {
	wiki, err := service.wikiRepository.FindWikiByID(context, wikiID)
	if err != nil {
		return nil, nil, err
	}
	if err := access.RequireRead(context, service.engine, userID, wiki.PlanetID); err != nil {
		return nil, nil, err
	}

	pages, err := service.wikiRepository.ListPages(context, wikiID)
	if err != nil {
		return nil, nil, err
	}
	return wiki, pages, nil
}

/*
GetPage returns one page by slug, gated by the Read tier.

Parameters:
  - context: context.Context
  - userID: string (empty for anonymous)
  - wikiID: string
  - pageSlug: string

Returns:
  - *Page: Hydrated entity
  - error: apperr NOT_FOUND when missing OR the planet is not visible
*/
func (service *Service) GetPage(context context.Context, userID, wikiID, pageSlug string) (*Page, error) {
	wiki, err := service.wikiRepository.FindWikiByID(context, wikiID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireRead(context, service.engine, userID, wiki.PlanetID); err != nil {
		return nil, err
	}
	return service.wikiRepository.FindPageBySlug(context, wikiID, pageSlug)
}

// PageInput holds the data for creating or editing a wiki page.
type PageInput struct {
	Title   string
	Content string
}

/*
CreatePage adds a page to the wiki. Requires the PublicWrite tier: wikis are
collaborative by design.

Description: The slug is derived from the title; a collision within the wiki
is a Conflict so authors can pick a different title.

Parameters:
  - context: context.Context
  - userID: string
  - wikiID: string
  - input: PageInput

Returns:
  - *Page: Created entity
  - error: apperr NOT_FOUND, FORBIDDEN, CONFLICT, or storage errors
*/
func (service *Service) CreatePage(context context.Context, userID, wikiID string, input PageInput) (*Page, error) {
	wiki, err := service.wikiRepository.FindWikiByID(context, wikiID)
	if err != nil {
		return nil, err
	}
	if err := access.RequirePublicWrite(context, service.engine, userID, wiki.PlanetID); err != nil {
		return nil, err
	}

	handle := slug.From(input.Title)
	if handle == "" {
		return nil, apperr.ValidationError("Page title must contain at least one letter or digit",
			apperr.FieldError{Field: FieldTitle, Message: "cannot be reduced to a slug"})
	}

	if _, err := service.wikiRepository.FindPageBySlug(context, wikiID, handle); err == nil {
		return nil, apperr.Conflict("A page with this title already exists in the wiki")
	}

	page := &Page{
		ID:        uuid.New(),
		WikiID:    wikiID,
		PlanetID:  wiki.PlanetID,
		Slug:      handle,
		Title:     input.Title,
		Content:   input.Content,
		UpdatedBy: userID,
	}
	if err := service.wikiRepository.CreatePage(context, page); err != nil {
		return nil, err
	}
	return page, nil
}

/*
UpdatePage edits an existing page. Requires the PublicWrite tier.

Description: The slug stays stable across title edits, so inbound links keep
resolving.

Parameters:
  - context: context.Context
  - userID: string
  - wikiID: string
  - pageSlug: string
  - input: PageInput

Returns:
  - *Page: Updated entity
  - error: apperr NOT_FOUND, FORBIDDEN, or storage errors
*/
func (service *Service) UpdatePage(context context.Context, userID, wikiID, pageSlug string, input PageInput) (*Page, error) {
	wiki, err := service.wikiRepository.FindWikiByID(context, wikiID)
	if err != nil {
		return nil, err
	}
	if err := access.RequirePublicWrite(context, service.engine, userID, wiki.PlanetID); err != nil {
		return nil, err
	}

	page, err := service.wikiRepository.FindPageBySlug(context, wikiID, pageSlug)
	if err != nil {
		return nil, err
	}

	page.Title = input.Title
	page.Content = input.Content
	page.UpdatedBy = userID

	if err := service.wikiRepository.UpdatePage(context, page); err != nil {
		return nil, err
	}
	return page, nil
}

/*
DeletePage removes a page. Requires the FullWrite tier: deletion is
moderation, not collaboration.

Parameters:
  - context: context.Context
  - userID: string
  - wikiID: string
  - pageSlug: string

Returns:
  - error: apperr NOT_FOUND, FORBIDDEN, or storage errors
*/
func (service *Service) DeletePage(context context.Context, userID, wikiID, pageSlug string) error {
	wiki, err := service.wikiRepository.FindWikiByID(context, wikiID)
	if err != nil {
		return err
	}
	if err := access.RequireFullWrite(context, service.engine, userID, wiki.PlanetID); err != nil {
		return err
	}
	return service.wikiRepository.DeletePage(context, wikiID, pageSlug)
}
