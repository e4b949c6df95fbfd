// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

package page

import (
	"context"

	"github.com/starbasehq/starbase/internal/component"
	"github.com/starbasehq/starbase/internal/component/access"
	"github.com/starbasehq/starbase/internal/perm"
	"github.com/starbasehq/starbase/pkg/uuid"
)

// Service implements page component use cases and the variant lifecycle.
type Service struct {
	pageRepository PageRepository
	engine         *perm.Engine
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(pageRepo PageRepository, engine *perm.Engine) *Service {
	return &Service{pageRepository: pageRepo, engine: engine}
}

// # Variant Lifecycle

// Kind identifies this variant in the component registry.
func (service *Service) Kind() component.Kind { return component.KindPage }

/*
Create provisions an empty page for a freshly attached component.

Description: Called by the planet service through the registry; the caller's
FullWrite tier has already been checked there.

Parameters:
  - context: context.Context
  - planetID: string
  - ownerID: string
  - name: string

Returns:
  - string: New component id
  - error: Persistence failures
*/
func (service *Service) Create(context context.Context, planetID, ownerID, name string) (string, error) {
	page := &Page{
		ID:        uuid.New(),
		PlanetID:  planetID,
		Name:      name,
		UpdatedBy: ownerID,
	}
	if err := service.pageRepository.Create(context, page); err != nil {
		return "", err
	}
	return page.ID, nil
}

/*
Delete cascades the page when the component is detached.

Parameters:
  - context: context.Context
  - componentID: string

Returns:
  - error: Persistence failures
*/
func (service *Service) Delete(context context.Context, componentID string) error {
	return service.pageRepository.Delete(context, componentID)
}

// # Use Cases

/*
Get returns the page, gated by the planet's Read tier.

Parameters:
  - context: context.Context
  - userID: string (empty for anonymous)
  - pageID: string

Returns:
  - *Page: Hydrated entity
  - error: apperr NOT_FOUND when missing OR the planet is not visible
*/
func (service *Service) Get(context context.Context, userID, pageID string) (*Page, error) {
	page, err := service.pageRepository.FindByID(context, pageID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireRead(context, service.engine, userID, page.PlanetID); err != nil {
		return nil, err
	}
	return page, nil
}

// UpdateInput holds the mutable page fields. Nil fields are unchanged.
type UpdateInput struct {
	Name    *string
	Content *string
}

/*
Update edits the page. Requires the planet's FullWrite tier: a page is the
planet's face, not drive-by content.

Parameters:
  - context: context.Context
  - userID: string
  - pageID: string
  - input: UpdateInput

Returns:
  - *Page: Updated entity
  - error: apperr NOT_FOUND, FORBIDDEN, or storage errors
*/
func (service *Service) Update(context context.Context, userID, pageID string, input UpdateInput) (*Page, error) {
	page, err := service.pageRepository.FindByID(context, pageID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireFullWrite(context, service.engine, userID, page.PlanetID); err != nil {
		return nil, err
	}

	if input.Name != nil {
		page.Name = *input.Name
	}
	if input.Content != nil {
		page.Content = *input.Content
	}
	page.UpdatedBy = userID

	if err := service.pageRepository.Update(context, page); err != nil {
		return nil, err
	}
	return page, nil
}
