// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

package page

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/starbasehq/starbase/internal/platform/apperr"
	"github.com/starbasehq/starbase/internal/platform/dberr"
)

// PostgresPageRepository implements the PageRepository interface using pgx.
type PostgresPageRepository struct {
	pool *pgxpool.Pool
}

// NewPageRepository creates a new PostgreSQL implementation of the PageRepository.
func NewPageRepository(pool *pgxpool.Pool) *PostgresPageRepository {
	return &PostgresPageRepository{pool: pool}
}

/*
Create persists a new page component.

Parameters:
  - context: context.Context
  - page: *Page

Returns:
  - error: Execution errors
*/
func (repository *PostgresPageRepository) Create(context context.Context, page *Page) error {
	const query = `
		INSERT INTO components.page (id, planetid, name, content, updatedby, createdat, updatedat)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	now := time.Now()
	page.CreatedAt = now
	page.UpdatedAt = now

	_, err := repository.pool.Exec(context, query,
		page.ID,
		page.PlanetID,
		page.Name,
		page.Content,
		page.UpdatedBy,
		page.CreatedAt,
		page.UpdatedAt,
	)
	return dberr.Wrap(err)
}

/*
FindByID retrieves a page by its component id.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - *Page: Hydrated entity
  - error: apperr NOT_FOUND or execution errors
*/
func (repository *PostgresPageRepository) FindByID(context context.Context, id string) (*Page, error) {
	const query = `
		SELECT id, planetid, name, content, updatedby, createdat, updatedat
		FROM components.page
		WHERE id = $1`

	page := &Page{}
	err := repository.pool.QueryRow(context, query, id).Scan(
		&page.ID,
		&page.PlanetID,
		&page.Name,
		&page.Content,
		&page.UpdatedBy,
		&page.CreatedAt,
		&page.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Page")
		}
		return nil, dberr.Wrap(err)
	}
	return page, nil
}

/*
Update persists the page's name and content.

Parameters:
  - context: context.Context
  - page: *Page

Returns:
  - error: Execution errors
*/
func (repository *PostgresPageRepository) Update(context context.Context, page *Page) error {
	const query = `
		UPDATE components.page
		SET name = $2, content = $3, updatedby = $4, updatedat = $5
		WHERE id = $1`

	page.UpdatedAt = time.Now()
	_, err := repository.pool.Exec(context, query,
		page.ID,
		page.Name,
		page.Content,
		page.UpdatedBy,
		page.UpdatedAt,
	)
	return dberr.Wrap(err)
}

/*
Delete removes the page row.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - error: Execution errors
*/
func (repository *PostgresPageRepository) Delete(context context.Context, id string) error {
	const query = "DELETE FROM components.page WHERE id = $1"
	_, err := repository.pool.Exec(context, query, id)
	return dberr.Wrap(err)
}
