// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

/*
Package files implements the file-storage component variant.

A files component holds a tree of file objects. Folders carry no content;
files reference a backing object in external storage and move through a small
state machine: created as pending while the client uploads through a
pre-signed URL, then confirmed as uploaded, at which point the size counts
against the owner's quota. The core never proxies file bytes on the upload or
single-download paths; only bulk zip downloads stream through the server.

# Path Chain

Every object's Path is the ordered chain of ancestor folder ids from the tree
root. Children of the root have an empty Path. The invariant: a descendant's
Path always equals its parent's Path plus the parent's id. Folder moves
rewrite every descendant's Path in one transaction so readers never observe a
half-moved subtree.
*/
package files

import "time"

// # Entities

// Files represents the component root on a planet.
type Files struct {
	ID       string `json:"id"`
	PlanetID string `json:"planet_id"`
	Name     string `json:"name"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ObjectKind distinguishes folders from files.
type ObjectKind string

const (
	ObjectFile   ObjectKind = "file"
	ObjectFolder ObjectKind = "folder"
)

// ObjectState is the upload lifecycle of a file object. Folders are active
// from creation.
type ObjectState string

const (
	// StatePending marks a file whose upload URL has been issued but whose
	// content has not been confirmed. Pending files hold no quota.
	StatePending ObjectState = "pending"

	// StateUploaded marks a confirmed file; its size is counted against the
	// owner's quota exactly once.
	StateUploaded ObjectState = "uploaded"
)

// FileObject is one node of the component's tree.
type FileObject struct {
	ID       string     `json:"id"`
	FilesID  string     `json:"files_id"`
	PlanetID string     `json:"planet_id"`
	OwnerID  string     `json:"owner_id"`
	Kind     ObjectKind `json:"kind"`
	Name     string     `json:"name"`

	// Path is the ancestor folder id chain from the root; empty at top level.
	Path []string `json:"path"`

	State ObjectState `json:"state"`

	// StorageKey addresses the backing object; empty for folders.
	StorageKey string `json:"-"`

	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ParentID returns the id of the object's immediate parent folder, or "" for
// top-level objects.
func (object *FileObject) ParentID() string {
	if len(object.Path) == 0 {
		return ""
	}
	return object.Path[len(object.Path)-1]
}

// ChildPath returns the Path a direct child of this folder must carry.
func (object *FileObject) ChildPath() []string {
	child := make([]string, 0, len(object.Path)+1)
	child = append(child, object.Path...)
	return append(child, object.ID)
}

// InSubtreeOf reports whether the object sits strictly below rootID.
func (object *FileObject) InSubtreeOf(rootID string) bool {
	for _, ancestor := range object.Path {
		if ancestor == rootID {
			return true
		}
	}
	return false
}

// # Download Tickets

// TicketEntry is one object inside a bulk-download bundle.
type TicketEntry struct {
	StorageKey string `json:"storage_key"`
	Name       string `json:"name"`
}

// TicketBundle is the payload a single-use download ticket resolves to.
type TicketBundle struct {
	Entries []TicketEntry `json:"entries"`
}

// # Field Identifiers

const (
	FieldName        = "name"
	FieldContentType = "content_type"
	FieldTargets     = "target_ids"
	FieldParent      = "parent_id"
)
