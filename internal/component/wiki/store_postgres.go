// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

package wiki

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/starbasehq/starbase/internal/platform/apperr"
	"github.com/starbasehq/starbase/internal/platform/dberr"
)

// PostgresWikiRepository implements the WikiRepository interface using pgx.
//
// Page deletion cascades through the wikipage.wikiid foreign key, so
// [PostgresWikiRepository.DeleteWiki] is a single statement.
type PostgresWikiRepository struct {
	pool *pgxpool.Pool
}

// NewWikiRepository creates a new PostgreSQL implementation of the WikiRepository.
func NewWikiRepository(pool *pgxpool.Pool) *PostgresWikiRepository {
	return &PostgresWikiRepository{pool: pool}
}

/*
CreateWiki persists a new wiki component root.

Parameters:
  - context: context.Context
  - wiki: *Wiki

Returns:
  - error: Execution errors
*/
func (repository *PostgresWikiRepository) CreateWiki(context context.Context, wiki *Wiki) error {
	const query = `
		INSERT INTO components.wiki (id, planetid, name, createdat, updatedat)
		VALUES ($1, $2, $3, $4, $5)`

	now := time.Now()
	wiki.CreatedAt = now
	wiki.UpdatedAt = now

	_, err := repository.pool.Exec(context, query,
		wiki.ID, wiki.PlanetID, wiki.Name, wiki.CreatedAt, wiki.UpdatedAt)
	return dberr.Wrap(err)
}

/*
FindWikiByID retrieves a wiki by its component id.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - *Wiki: Hydrated entity
  - error: apperr NOT_FOUND or execution errors
*/
func (repository *PostgresWikiRepository) FindWikiByID(context context.Context, id string) (*Wiki, error) {
	const query = `
		SELECT id, planetid, name, createdat, updatedat
		FROM components.wiki
		WHERE id = $1`

	wiki := &Wiki{}
	err := repository.pool.QueryRow(context, query, id).Scan(
		&wiki.ID, &wiki.PlanetID, &wiki.Name, &wiki.CreatedAt, &wiki.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Wiki")
		}
		return nil, dberr.Wrap(err)
	}
	return wiki, nil
}

/*
DeleteWiki removes the wiki root; pages cascade via foreign key.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - error: Execution errors
*/
func (repository *PostgresWikiRepository) DeleteWiki(context context.Context, id string) error {
	const query = "DELETE FROM components.wiki WHERE id = $1"
	_, err := repository.pool.Exec(context, query, id)
	return dberr.Wrap(err)
}

/*
CreatePage persists a new wiki page.

Parameters:
  - context: context.Context
  - page: *Page

Returns:
  - error: Conflict on a duplicate (wikiid, slug), or execution errors
*/
func (repository *PostgresWikiRepository) CreatePage(context context.Context, page *Page) error {
	const query = `
		INSERT INTO components.wikipage (id, wikiid, planetid, slug, title, content, updatedby, createdat, updatedat)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	now := time.Now()
	page.CreatedAt = now
	page.UpdatedAt = now

	_, err := repository.pool.Exec(context, query,
		page.ID,
		page.WikiID,
		page.PlanetID,
		page.Slug,
		page.Title,
		page.Content,
		page.UpdatedBy,
		page.CreatedAt,
		page.UpdatedAt,
	)
	return dberr.Wrap(err)
}

/*
FindPageBySlug retrieves a page by (wikiID, slug).

Parameters:
  - context: context.Context
  - wikiID: string
  - slug: string

Returns:
  - *Page: Hydrated entity
  - error: apperr NOT_FOUND or execution errors
*/
func (repository *PostgresWikiRepository) FindPageBySlug(context context.Context, wikiID, slug string) (*Page, error) {
	const query = `
		SELECT id, wikiid, planetid, slug, title, content, updatedby, createdat, updatedat
		FROM components.wikipage
		WHERE wikiid = $1 AND slug = $2`

	page := &Page{}
	err := repository.pool.QueryRow(context, query, wikiID, slug).Scan(
		&page.ID,
		&page.WikiID,
		&page.PlanetID,
		&page.Slug,
		&page.Title,
		&page.Content,
		&page.UpdatedBy,
		&page.CreatedAt,
		&page.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Wiki page")
		}
		return nil, dberr.Wrap(err)
	}
	return page, nil
}

/*
ListPages retrieves all pages of a wiki, content omitted.

Parameters:
  - context: context.Context
  - wikiID: string

Returns:
  - []*Page: Page listing ordered by title
  - error: Execution errors
*/
func (repository *PostgresWikiRepository) ListPages(context context.Context, wikiID string) ([]*Page, error) {
	const query = `
		SELECT id, wikiid, planetid, slug, title, updatedby, createdat, updatedat
		FROM components.wikipage
		WHERE wikiid = $1
		ORDER BY title ASC`

	rows, err := repository.pool.Query(context, query, wikiID)
	if err != nil {
		return nil, dberr.Wrap(err)
	}
	defer rows.Close()

	var pages []*Page
	for rows.Next() {
		page := &Page{}
		err := rows.Scan(
			&page.ID,
			&page.WikiID,
			&page.PlanetID,
			&page.Slug,
			&page.Title,
			&page.UpdatedBy,
			&page.CreatedAt,
			&page.UpdatedAt,
		)
		if err != nil {
			return nil, dberr.Wrap(err)
		}
		pages = append(pages, page)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err)
	}
	return pages, nil
}

/*
UpdatePage persists the page's title and content.

Parameters:
  - context: context.Context
  - page: *Page

Returns:
  - error: Execution errors
*/
func (repository *PostgresWikiRepository) UpdatePage(context context.Context, page *Page) error {
	const query = `
		UPDATE components.wikipage
		SET title = $2, content = $3, updatedby = $4, updatedat = $5
		WHERE id = $1`

	page.UpdatedAt = time.Now()
	_, err := repository.pool.Exec(context, query,
		page.ID, page.Title, page.Content, page.UpdatedBy, page.UpdatedAt)
	return dberr.Wrap(err)
}

/*
DeletePage removes a single wiki page.

Parameters:
  - context: context.Context
  - wikiID: string
  - slug: string

Returns:
  - error: apperr NOT_FOUND or execution errors
*/
func (repository *PostgresWikiRepository) DeletePage(context context.Context, wikiID, slug string) error {
	const query = "DELETE FROM components.wikipage WHERE wikiid = $1 AND slug = $2"

	tag, err := repository.pool.Exec(context, query, wikiID, slug)
	if err != nil {
		return dberr.Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Wiki page")
	}
	return nil
}
