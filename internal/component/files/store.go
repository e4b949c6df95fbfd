// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

package files

import (
	"context"
	"time"
)

// FileRepository defines the data access contract for the files component
// tree.
type FileRepository interface {

	// CreateFiles persists a new component root.
	CreateFiles(context context.Context, files *Files) error

	// FindFilesByID returns the component root, or apperr NOT_FOUND.
	FindFilesByID(context context.Context, id string) (*Files, error)

	// DeleteFiles removes the component root row. Objects are cleared
	// separately through DeleteAll so the caller can release their backing
	// storage and quota.
	DeleteFiles(context context.Context, id string) error

	// CreateObject persists a new file or folder node.
	CreateObject(context context.Context, object *FileObject) error

	// FindObjectByID returns a single node, or apperr NOT_FOUND.
	FindObjectByID(context context.Context, id string) (*FileObject, error)

	/*
		FindManyObjects returns the nodes for the given ids.

		Description: Missing ids are simply absent from the result; the caller
		compares lengths when it needs all-or-nothing semantics.

		Parameters:
		  - context: context.Context
		  - ids: []string

		Returns:
		  - []*FileObject: Found nodes, in no particular order
		  - error: Retrieval failures
	*/
	FindManyObjects(context context.Context, ids []string) ([]*FileObject, error)

	// ListChildren returns the direct children at the given path, folders
	// first, then by name.
	ListChildren(context context.Context, filesID string, path []string) ([]*FileObject, error)

	// RenameObject updates a node's display name.
	RenameObject(context context.Context, id, name string) error

	/*
		MarkUploaded transitions a pending file to uploaded and records its
		confirmed size.

		Description: The transition is a single conditional UPDATE guarded on
		the pending state, so a concurrent duplicate confirmation cannot count
		quota twice.

		Parameters:
		  - context: context.Context
		  - id: string
		  - size: int64

		Returns:
		  - error: apperr CONFLICT when the object is not pending, NOT_FOUND
		    when it does not exist
	*/
	MarkUploaded(context context.Context, id string, size int64) error

	/*
		DeleteObject removes a single node and returns it as it was.

		Description: DELETE ... RETURNING makes removal and observation one
		atomic step: only the caller that actually deleted the row gets it
		back, so a double delete cannot double-decrement quota.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *FileObject: The removed node
		  - error: apperr NOT_FOUND when already gone
	*/
	DeleteObject(context context.Context, id string) (*FileObject, error)

	/*
		DeleteSubtree removes a folder together with every descendant.

		Parameters:
		  - context: context.Context
		  - filesID: string
		  - folder: *FileObject

		Returns:
		  - []*FileObject: Every removed node, the folder included
		  - error: Persistence failures
	*/
	DeleteSubtree(context context.Context, filesID string, folder *FileObject) ([]*FileObject, error)

	// DeleteAll removes every node of a component and returns them for
	// cleanup.
	DeleteAll(context context.Context, filesID string) ([]*FileObject, error)

	/*
		MoveObject reparents a node to newPath.

		Description: For folders, every descendant's path prefix is rewritten
		in the same transaction, so no reader observes a half-moved subtree.

		Parameters:
		  - context: context.Context
		  - object: *FileObject (current state, Path still the old chain)
		  - newPath: []string

		Returns:
		  - error: Persistence failures
	*/
	MoveObject(context context.Context, object *FileObject, newPath []string) error
}

// TicketRepository stores single-use bulk-download tickets in volatile
// storage.
type TicketRepository interface {

	// Create stores the bundle under ticketID for at most ttl.
	Create(context context.Context, ticketID string, bundle *TicketBundle, ttl time.Duration) error

	/*
		Consume atomically fetches and deletes a ticket.

		Description: Implemented with GETDEL, so of two racing consumers
		exactly one receives the bundle and the other gets NOT_FOUND.

		Parameters:
		  - context: context.Context
		  - ticketID: string

		Returns:
		  - *TicketBundle: The resolved bundle
		  - error: apperr NOT_FOUND for unknown, expired, or spent tickets
	*/
	Consume(context context.Context, ticketID string) (*TicketBundle, error)
}

// QuotaStore is the narrow view of the user store the file lifecycle needs
// for storage accounting.
type QuotaStore interface {

	// Usage returns the user's current byte counter and whether the cap is
	// waived for them.
	Usage(context context.Context, userID string) (usedBytes int64, capWaived bool, err error)

	// AddUsedBytes atomically adjusts the counter by delta (negative to
	// release).
	AddUsedBytes(context context.Context, userID string, delta int64) error
}
