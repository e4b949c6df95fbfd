// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

// PostgreSQL implementation of the planet repository.
//
// The component reference list is stored as an ordered jsonb array; member
// and ban sets are text[] columns mutated with single-statement array
// operations.
package planet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/starbasehq/starbase/internal/component"
	"github.com/starbasehq/starbase/internal/platform/apperr"
	"github.com/starbasehq/starbase/internal/platform/dberr"
	"github.com/starbasehq/starbase/pkg/pagination"
)

// planetColumns is the canonical select list for planets.planet.
const planetColumns = `
	id, name, slug, owner, private, members, banned, components,
	featured, verified, partnered, createdat, updatedat`

// PostgresPlanetRepository implements the PlanetRepository interface using pgx.
type PostgresPlanetRepository struct {
	pool *pgxpool.Pool
}

// NewPlanetRepository creates a new PostgreSQL implementation of the PlanetRepository.
func NewPlanetRepository(pool *pgxpool.Pool) *PostgresPlanetRepository {
	return &PostgresPlanetRepository{pool: pool}
}

// scanPlanet hydrates a Planet from a row carrying [planetColumns].
func scanPlanet(row pgx.Row) (*Planet, error) {
	planet := &Planet{}
	err := row.Scan(
		&planet.ID,
		&planet.Name,
		&planet.Slug,
		&planet.Owner,
		&planet.Private,
		&planet.Members,
		&planet.Banned,
		&planet.Components,
		&planet.Featured,
		&planet.Verified,
		&planet.Partnered,
		&planet.CreatedAt,
		&planet.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return planet, nil
}

/*
Create persists a new planet record into the planets.planet table.

Parameters:
  - context: context.Context
  - planet: *Planet

Returns:
  - error: Conflict on duplicate slug, or connectivity errors
*/
func (repository *PostgresPlanetRepository) Create(context context.Context, planet *Planet) error {
	const query = `
		INSERT INTO planets.planet (
			id, name, slug, owner, private, members, banned, components,
			featured, verified, partnered, createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	now := time.Now()
	if planet.CreatedAt.IsZero() {
		planet.CreatedAt = now
	}
	planet.UpdatedAt = now
	if planet.Members == nil {
		planet.Members = []string{}
	}
	if planet.Banned == nil {
		planet.Banned = []string{}
	}
	components, err := json.Marshal(planet.Components)
	if err != nil {
		return fmt.Errorf("postgres_planet_repo_marshal_components_failed: %w", err)
	}

	_, err = repository.pool.Exec(context, query,
		planet.ID,
		planet.Name,
		planet.Slug,
		planet.Owner,
		planet.Private,
		planet.Members,
		planet.Banned,
		components,
		planet.Featured,
		planet.Verified,
		planet.Partnered,
		planet.CreatedAt,
		planet.UpdatedAt,
	)
	return dberr.Wrap(err)
}

/*
FindByID retrieves a planet by its unique ID.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - *Planet: Hydrated entity
  - error: apperr NOT_FOUND or execution errors
*/
func (repository *PostgresPlanetRepository) FindByID(context context.Context, id string) (*Planet, error) {
	const query = `
		SELECT ` + planetColumns + `
		FROM planets.planet
		WHERE id = $1`

	planet, err := scanPlanet(repository.pool.QueryRow(context, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Planet")
		}
		return nil, dberr.Wrap(err)
	}
	return planet, nil
}

/*
FindManyByIDs retrieves all planets matching the given ids.

Parameters:
  - context: context.Context
  - ids: []string

Returns:
  - map[string]*Planet: Found entities keyed by id
  - error: Execution errors
*/
func (repository *PostgresPlanetRepository) FindManyByIDs(context context.Context, ids []string) (map[string]*Planet, error) {
	const query = `
		SELECT ` + planetColumns + `
		FROM planets.planet
		WHERE id = ANY($1)`

	rows, err := repository.pool.Query(context, query, ids)
	if err != nil {
		return nil, dberr.Wrap(err)
	}
	defer rows.Close()

	found := make(map[string]*Planet, len(ids))
	for rows.Next() {
		planet, err := scanPlanet(rows)
		if err != nil {
			return nil, dberr.Wrap(err)
		}
		found[planet.ID] = planet
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err)
	}
	return found, nil
}

/*
FindBySlug retrieves a planet by its unique slug.

Parameters:
  - context: context.Context
  - slug: string

Returns:
  - *Planet: Hydrated entity
  - error: apperr NOT_FOUND or execution errors
*/
func (repository *PostgresPlanetRepository) FindBySlug(context context.Context, slug string) (*Planet, error) {
	const query = `
		SELECT ` + planetColumns + `
		FROM planets.planet
		WHERE slug = $1`

	planet, err := scanPlanet(repository.pool.QueryRow(context, query, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Planet")
		}
		return nil, dberr.Wrap(err)
	}
	return planet, nil
}

/*
ListPublic returns a page of public planets, newest first.

Parameters:
  - context: context.Context
  - params: pagination.Params
  - featuredOnly: bool

Returns:
  - []*Planet: Page of planets
  - int: Total matching count
  - error: Execution errors
*/
func (repository *PostgresPlanetRepository) ListPublic(context context.Context, params pagination.Params, featuredOnly bool) ([]*Planet, int, error) {
	const countQuery = `
		SELECT COUNT(*)
		FROM planets.planet
		WHERE private = FALSE AND (NOT $1 OR featured = TRUE)`
	const pageQuery = `
		SELECT ` + planetColumns + `
		FROM planets.planet
		WHERE private = FALSE AND (NOT $1 OR featured = TRUE)
		ORDER BY createdat DESC
		LIMIT $2 OFFSET $3`

	var total int
	if err := repository.pool.QueryRow(context, countQuery, featuredOnly).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err)
	}

	rows, err := repository.pool.Query(context, pageQuery, featuredOnly, params.Limit, params.Offset())
	if err != nil {
		return nil, 0, dberr.Wrap(err)
	}
	defer rows.Close()

	planets := make([]*Planet, 0, params.Limit)
	for rows.Next() {
		planet, err := scanPlanet(rows)
		if err != nil {
			return nil, 0, dberr.Wrap(err)
		}
		planets = append(planets, planet)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, dberr.Wrap(err)
	}
	return planets, total, nil
}

/*
Update persists changes to the planet's mutable settings.

Parameters:
  - context: context.Context
  - planet: *Planet

Returns:
  - error: Update failures
*/
func (repository *PostgresPlanetRepository) Update(context context.Context, planet *Planet) error {
	const query = `
		UPDATE planets.planet
		SET name = $2, slug = $3, private = $4, updatedat = $5
		WHERE id = $1`

	planet.UpdatedAt = time.Now()
	_, err := repository.pool.Exec(context, query,
		planet.ID,
		planet.Name,
		planet.Slug,
		planet.Private,
		planet.UpdatedAt,
	)
	return dberr.Wrap(err)
}

/*
Delete permanently removes the planet row.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - error: Execution errors
*/
func (repository *PostgresPlanetRepository) Delete(context context.Context, id string) error {
	const query = "DELETE FROM planets.planet WHERE id = $1"
	_, err := repository.pool.Exec(context, query, id)
	return dberr.Wrap(err)
}

/*
AddMember atomically appends userID to the member set if absent.

Parameters:
  - context: context.Context
  - planetID: string
  - userID: string

Returns:
  - error: Execution errors
*/
func (repository *PostgresPlanetRepository) AddMember(context context.Context, planetID, userID string) error {
	const query = `
		UPDATE planets.planet
		SET members = array_append(members, $2), updatedat = $3
		WHERE id = $1 AND NOT ($2 = ANY(members))`

	_, err := repository.pool.Exec(context, query, planetID, userID, time.Now())
	return dberr.Wrap(err)
}

/*
RemoveMember atomically removes userID from the member set.

Parameters:
  - context: context.Context
  - planetID: string
  - userID: string

Returns:
  - error: Execution errors
*/
func (repository *PostgresPlanetRepository) RemoveMember(context context.Context, planetID, userID string) error {
	const query = `
		UPDATE planets.planet
		SET members = array_remove(members, $2), updatedat = $3
		WHERE id = $1`

	_, err := repository.pool.Exec(context, query, planetID, userID, time.Now())
	return dberr.Wrap(err)
}

/*
SetBan atomically toggles a per-planet ban.

Description: The ban statement also strips membership, so the member and ban
sets stay disjoint even when a ban races a join.

Parameters:
  - context: context.Context
  - planetID: string
  - userID: string
  - banned: bool

Returns:
  - error: Execution errors
*/
func (repository *PostgresPlanetRepository) SetBan(context context.Context, planetID, userID string, banned bool) error {
	const banQuery = `
		UPDATE planets.planet
		SET banned = array_append(banned, $2), members = array_remove(members, $2), updatedat = $3
		WHERE id = $1 AND NOT ($2 = ANY(banned))`
	const unbanQuery = `
		UPDATE planets.planet
		SET banned = array_remove(banned, $2), updatedat = $3
		WHERE id = $1`

	query := unbanQuery
	if banned {
		query = banQuery
	}
	_, err := repository.pool.Exec(context, query, planetID, userID, time.Now())
	return dberr.Wrap(err)
}

/*
FindManyComponents retrieves component references by component id across all
planets.

Description: References live inside the planet row's jsonb list, so the batch
unnests every list and filters on the component id. Single query regardless of
batch size.

Parameters:
  - context: context.Context
  - ids: []string

Returns:
  - map[string]AttachedComponent: Found references keyed by component id
  - error: Execution errors
*/
func (repository *PostgresPlanetRepository) FindManyComponents(context context.Context, ids []string) (map[string]AttachedComponent, error) {
	const query = `
		SELECT p.id, entry->>'component_id', entry->>'kind', entry->>'name'
		FROM planets.planet p, jsonb_array_elements(p.components) AS entry
		WHERE entry->>'component_id' = ANY($1)`

	rows, err := repository.pool.Query(context, query, ids)
	if err != nil {
		return nil, dberr.Wrap(err)
	}
	defer rows.Close()

	keyed := make(map[string]AttachedComponent, len(ids))
	for rows.Next() {
		var attached AttachedComponent
		var kind string
		err := rows.Scan(&attached.PlanetID, &attached.Ref.ComponentID, &kind, &attached.Ref.Name)
		if err != nil {
			return nil, dberr.Wrap(err)
		}
		attached.Ref.Kind = component.Kind(kind)
		keyed[attached.Ref.ComponentID] = attached
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err)
	}
	return keyed, nil
}

/*
AppendComponent atomically appends a component reference to the ordered list.

Parameters:
  - context: context.Context
  - planetID: string
  - ref: component.Ref

Returns:
  - error: Execution errors
*/
func (repository *PostgresPlanetRepository) AppendComponent(context context.Context, planetID string, ref component.Ref) error {
	const query = `
		UPDATE planets.planet
		SET components = components || $2::jsonb, updatedat = $3
		WHERE id = $1`

	payload, err := json.Marshal(ref)
	if err != nil {
		return fmt.Errorf("postgres_planet_repo_marshal_component_failed: %w", err)
	}

	_, err = repository.pool.Exec(context, query, planetID, payload, time.Now())
	return dberr.Wrap(err)
}

/*
RemoveComponent atomically removes a component reference from the list.

Description: The filtered rebuild happens inside one UPDATE, so concurrent
attach/detach operations never resurrect a removed entry.

Parameters:
  - context: context.Context
  - planetID: string
  - componentID: string

Returns:
  - error: Execution errors
*/
func (repository *PostgresPlanetRepository) RemoveComponent(context context.Context, planetID, componentID string) error {
	const query = `
		UPDATE planets.planet
		SET components = COALESCE(
			(SELECT jsonb_agg(entry)
			 FROM jsonb_array_elements(components) AS entry
			 WHERE entry->>'component_id' <> $2),
			'[]'::jsonb),
		    updatedat = $3
		WHERE id = $1`

	_, err := repository.pool.Exec(context, query, planetID, componentID, time.Now())
	return dberr.Wrap(err)
}

/*
SetFlag toggles one operator-controlled metadata flag.

Parameters:
  - context: context.Context
  - planetID: string
  - flag: Flag
  - value: bool

Returns:
  - error: Validation on unknown flag, or execution errors
*/
func (repository *PostgresPlanetRepository) SetFlag(context context.Context, planetID string, flag Flag, value bool) error {
	// Column names are selected from a closed switch, never interpolated
	// from caller input.
	var query string
	switch flag {
	case FlagFeatured:
		query = "UPDATE planets.planet SET featured = $2, updatedat = $3 WHERE id = $1"
	case FlagVerified:
		query = "UPDATE planets.planet SET verified = $2, updatedat = $3 WHERE id = $1"
	case FlagPartnered:
		query = "UPDATE planets.planet SET partnered = $2, updatedat = $3 WHERE id = $1"
	default:
		return apperr.ValidationError("Unknown planet flag")
	}

	_, err := repository.pool.Exec(context, query, planetID, value, time.Now())
	return dberr.Wrap(err)
}
