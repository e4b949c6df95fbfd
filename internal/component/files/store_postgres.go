// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

// PostgreSQL implementation of the files repository.
//
// The tree lives in components.fileobject with the ancestor chain stored as a
// text[] column; prefix comparisons over that array drive subtree selection
// and the single-transaction folder move.
package files

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/starbasehq/starbase/internal/platform/apperr"
	"github.com/starbasehq/starbase/internal/platform/dberr"
)

// PostgresFileRepository implements the FileRepository interface using pgx.
type PostgresFileRepository struct {
	pool *pgxpool.Pool
}

// NewFileRepository creates a new PostgreSQL implementation of the FileRepository.
func NewFileRepository(pool *pgxpool.Pool) *PostgresFileRepository {
	return &PostgresFileRepository{pool: pool}
}

// # Component Root

func (repository *PostgresFileRepository) CreateFiles(context context.Context, files *Files) error {
	const query = `
		INSERT INTO components.files (id, planetid, name, createdat, updatedat)
		VALUES ($1, $2, $3, $4, $5)`

	now := time.Now()
	files.CreatedAt = now
	files.UpdatedAt = now

	_, err := repository.pool.Exec(context, query,
		files.ID, files.PlanetID, files.Name, files.CreatedAt, files.UpdatedAt)
	return dberr.Wrap(err)
}

func (repository *PostgresFileRepository) FindFilesByID(context context.Context, id string) (*Files, error) {
	const query = `
		SELECT id, planetid, name, createdat, updatedat
		FROM components.files
		WHERE id = $1`

	files := &Files{}
	err := repository.pool.QueryRow(context, query, id).Scan(
		&files.ID, &files.PlanetID, &files.Name, &files.CreatedAt, &files.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Files")
		}
		return nil, dberr.Wrap(err)
	}
	return files, nil
}

func (repository *PostgresFileRepository) DeleteFiles(context context.Context, id string) error {
	const query = "DELETE FROM components.files WHERE id = $1"
	_, err := repository.pool.Exec(context, query, id)
	return dberr.Wrap(err)
}

// # Objects

const objectColumns = `id, filesid, planetid, ownerid, kind, name, path, state, storagekey, contenttype, size, createdat, updatedat`

// scanObject hydrates a FileObject from a row carrying [objectColumns].
func scanObject(row pgx.Row) (*FileObject, error) {
	object := &FileObject{}
	err := row.Scan(
		&object.ID,
		&object.FilesID,
		&object.PlanetID,
		&object.OwnerID,
		&object.Kind,
		&object.Name,
		&object.Path,
		&object.State,
		&object.StorageKey,
		&object.ContentType,
		&object.Size,
		&object.CreatedAt,
		&object.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return object, nil
}

func (repository *PostgresFileRepository) CreateObject(context context.Context, object *FileObject) error {
	const query = `
		INSERT INTO components.fileobject
			(id, filesid, planetid, ownerid, kind, name, path, state, storagekey, contenttype, size, createdat, updatedat)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	now := time.Now()
	object.CreatedAt = now
	object.UpdatedAt = now
	if object.Path == nil {
		object.Path = []string{}
	}

	_, err := repository.pool.Exec(context, query,
		object.ID,
		object.FilesID,
		object.PlanetID,
		object.OwnerID,
		object.Kind,
		object.Name,
		object.Path,
		object.State,
		object.StorageKey,
		object.ContentType,
		object.Size,
		object.CreatedAt,
		object.UpdatedAt,
	)
	return dberr.Wrap(err)
}

func (repository *PostgresFileRepository) FindObjectByID(context context.Context, id string) (*FileObject, error) {
	const query = `
		SELECT ` + objectColumns + `
		FROM components.fileobject
		WHERE id = $1`

	object, err := scanObject(repository.pool.QueryRow(context, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("File")
		}
		return nil, dberr.Wrap(err)
	}
	return object, nil
}

func (repository *PostgresFileRepository) FindManyObjects(context context.Context, ids []string) ([]*FileObject, error) {
	const query = `
		SELECT ` + objectColumns + `
		FROM components.fileobject
		WHERE id = ANY($1)`

	return repository.queryObjects(context, query, ids)
}

func (repository *PostgresFileRepository) ListChildren(context context.Context, filesID string, path []string) ([]*FileObject, error) {
	const query = `
		SELECT ` + objectColumns + `
		FROM components.fileobject
		WHERE filesid = $1 AND path = $2::text[]
		ORDER BY (kind = 'folder') DESC, name ASC`

	if path == nil {
		path = []string{}
	}
	return repository.queryObjects(context, query, filesID, path)
}

func (repository *PostgresFileRepository) RenameObject(context context.Context, id, name string) error {
	const query = `
		UPDATE components.fileobject
		SET name = $2, updatedat = $3
		WHERE id = $1`

	_, err := repository.pool.Exec(context, query, id, name, time.Now())
	return dberr.Wrap(err)
}

// MarkUploaded transitions a pending file to uploaded. The state guard in the
// WHERE clause makes the transition single-shot.
func (repository *PostgresFileRepository) MarkUploaded(context context.Context, id string, size int64) error {
	const query = `
		UPDATE components.fileobject
		SET state = 'uploaded', size = $2, updatedat = $3
		WHERE id = $1 AND kind = 'file' AND state = 'pending'`

	tag, err := repository.pool.Exec(context, query, id, size, time.Now())
	if err != nil {
		return dberr.Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := repository.FindObjectByID(context, id); err != nil {
			return err
		}
		return apperr.Conflict("Upload already confirmed")
	}
	return nil
}

func (repository *PostgresFileRepository) DeleteObject(context context.Context, id string) (*FileObject, error) {
	const query = `
		DELETE FROM components.fileobject
		WHERE id = $1
		RETURNING ` + objectColumns

	object, err := scanObject(repository.pool.QueryRow(context, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("File")
		}
		return nil, dberr.Wrap(err)
	}
	return object, nil
}

func (repository *PostgresFileRepository) DeleteSubtree(context context.Context, filesID string, folder *FileObject) ([]*FileObject, error) {
	const query = `
		DELETE FROM components.fileobject
		WHERE filesid = $1 AND (id = $2 OR path[1:$3] = $4::text[])
		RETURNING ` + objectColumns

	prefix := folder.ChildPath()
	return repository.collectDeleted(context, query, filesID, folder.ID, len(prefix), prefix)
}

func (repository *PostgresFileRepository) DeleteAll(context context.Context, filesID string) ([]*FileObject, error) {
	const query = `
		DELETE FROM components.fileobject
		WHERE filesid = $1
		RETURNING ` + objectColumns

	return repository.collectDeleted(context, query, filesID)
}

/*
MoveObject reparents a node and, for folders, rewrites every descendant's
ancestor chain in the same transaction.

Description: The descendant rewrite is one UPDATE replacing the old prefix
(folder path + folder id) with the new one, leaving the suffix untouched.

Parameters:
  - context: context.Context
  - object: *FileObject (Path still the pre-move chain)
  - newPath: []string

Returns:
  - error: Persistence failures
*/
func (repository *PostgresFileRepository) MoveObject(context context.Context, object *FileObject, newPath []string) error {
	const selfQuery = `
		UPDATE components.fileobject
		SET path = $2::text[], updatedat = $3
		WHERE id = $1`

	const subtreeQuery = `
		UPDATE components.fileobject
		SET path = $2::text[] || path[($3 + 1):cardinality(path)], updatedat = $4
		WHERE filesid = $1 AND path[1:$3] = $5::text[]`

	if newPath == nil {
		newPath = []string{}
	}

	transaction, err := repository.pool.Begin(context)
	if err != nil {
		return dberr.Wrap(err)
	}
	defer transaction.Rollback(context)

	now := time.Now()
	if _, err := transaction.Exec(context, selfQuery, object.ID, newPath, now); err != nil {
		return dberr.Wrap(err)
	}

	if object.Kind == ObjectFolder {
		oldPrefix := object.ChildPath()
		newPrefix := append(append([]string{}, newPath...), object.ID)
		_, err := transaction.Exec(context, subtreeQuery,
			object.FilesID, newPrefix, len(oldPrefix), now, oldPrefix)
		if err != nil {
			return dberr.Wrap(err)
		}
	}

	return dberr.Wrap(transaction.Commit(context))
}

// # Row Helpers

func (repository *PostgresFileRepository) queryObjects(context context.Context, query string, args ...any) ([]*FileObject, error) {
	rows, err := repository.pool.Query(context, query, args...)
	if err != nil {
		return nil, dberr.Wrap(err)
	}
	defer rows.Close()

	var objects []*FileObject
	for rows.Next() {
		object, err := scanObject(rows)
		if err != nil {
			return nil, dberr.Wrap(err)
		}
		objects = append(objects, object)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err)
	}
	return objects, nil
}

// collectDeleted runs a DELETE ... RETURNING statement and hydrates the
// removed rows.
func (repository *PostgresFileRepository) collectDeleted(context context.Context, query string, args ...any) ([]*FileObject, error) {
	rows, err := repository.pool.Query(context, query, args...)
	if err != nil {
		return nil, dberr.Wrap(err)
	}
	defer rows.Close()

	var objects []*FileObject
	for rows.Next() {
		object, err := scanObject(rows)
		if err != nil {
			return nil, dberr.Wrap(err)
		}
		objects = append(objects, object)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err)
	}
	return objects, nil
}
