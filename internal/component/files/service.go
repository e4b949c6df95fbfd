// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

package files

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"

	"github.com/starbasehq/starbase/internal/component"
	"github.com/starbasehq/starbase/internal/component/access"
	"github.com/starbasehq/starbase/internal/perm"
	"github.com/starbasehq/starbase/internal/platform/apperr"
	"github.com/starbasehq/starbase/internal/platform/constants"
	"github.com/starbasehq/starbase/internal/platform/sec"
	"github.com/starbasehq/starbase/internal/platform/storage"
	"github.com/starbasehq/starbase/pkg/uuid"
)

// TicketIDLength is the number of random bytes behind a download ticket id.
const TicketIDLength = 16

// Service implements file component use cases and the variant lifecycle.
//
// Two side-effect disciplines apply throughout. Quota and state transitions
// are strict: the uploaded transition is a guarded single-statement update and
// the quota increment runs only after it succeeds, so a file's size is counted
// exactly once. Backing-storage cleanup is best-effort: cascades delete
// metadata first and then fire storage deletions and quota decrements,
// logging failures instead of propagating them.
type Service struct {
	fileRepository   FileRepository
	ticketRepository TicketRepository
	quota            QuotaStore
	objects          storage.ObjectStore
	engine           *perm.Engine
	logger           *slog.Logger
	quotaLimit       int64
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(
	fileRepo FileRepository,
	ticketRepo TicketRepository,
	quota QuotaStore,
	objects storage.ObjectStore,
	engine *perm.Engine,
	logger *slog.Logger,
) *Service {
	return &Service{
		fileRepository:   fileRepo,
		ticketRepository: ticketRepo,
		quota:            quota,
		objects:          objects,
		engine:           engine,
		logger:           logger,
		quotaLimit:       constants.DefaultFileQuotaBytes,
	}
}

// SetQuotaLimit overrides the per-user storage ceiling. Zero or negative
// keeps the default.
func (service *Service) SetQuotaLimit(bytes int64) {
	if bytes > 0 {
		service.quotaLimit = bytes
	}
}

// # Variant Lifecycle

// Kind identifies this variant in the component registry.
func (service *Service) Kind() component.Kind { return component.KindFiles }

/*
Create provisions an empty files component for a freshly attached component.

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
	files := &Files{
		ID:       uuid.New(),
		PlanetID: planetID,
		Name:     name,
	}
	if err := service.fileRepository.CreateFiles(context, files); err != nil {
		return "", err
	}
	return files.ID, nil
}

/*
Delete cascades the component when it is detached: every object row is
removed, then backing storage and quota are released best-effort.

Parameters:
  - context: context.Context
  - componentID: string

Returns:
  - error: Persistence failures
*/
func (service *Service) Delete(context context.Context, componentID string) error {
	removed, err := service.fileRepository.DeleteAll(context, componentID)
	if err != nil {
		return err
	}
	if err := service.fileRepository.DeleteFiles(context, componentID); err != nil {
		return err
	}
	service.release(context, removed)
	return nil
}

// # Browsing

/*
GetFiles returns the component root, gated by the Read tier.

Parameters:
  - context: context.Context
  - userID: string (empty for anonymous)
  - filesID: string

Returns:
  - *Files: Hydrated entity
  - error: apperr NOT_FOUND when the component or planet is not visible
*/
func (service *Service) GetFiles(context context.Context, userID, filesID string) (*Files, error) {
	files, err := service.fileRepository.FindFilesByID(context, filesID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireRead(context, service.engine, userID, files.PlanetID); err != nil {
		return nil, err
	}
	return files, nil
}

/*
ListFolder returns the direct children of a folder, or of the tree root when
folderID is empty.

Parameters:
  - context: context.Context
  - userID: string (empty for anonymous)
  - filesID: string
  - folderID: string

Returns:
  - []*FileObject: Children, folders first
  - error: apperr NOT_FOUND or storage errors
*/
func (service *Service) ListFolder(context context.Context, userID, filesID, folderID string) ([]*FileObject, error) {
	files, err := service.GetFiles(context, userID, filesID)
	if err != nil {
		return nil, err
	}

	var childPath []string
	if folderID != "" {
		folder, err := service.folderIn(context, files.ID, folderID)
		if err != nil {
			return nil, err
		}
		childPath = folder.ChildPath()
	}
	return service.fileRepository.ListChildren(context, filesID, childPath)
}

/*
GetObject returns a single node, gated by the Read tier. Pending uploads are
visible to their owner only.

Parameters:
  - context: context.Context
  - userID: string (empty for anonymous)
  - objectID: string

Returns:
  - *FileObject: Hydrated entity
  - error: apperr NOT_FOUND or storage errors
*/
func (service *Service) GetObject(context context.Context, userID, objectID string) (*FileObject, error) {
	object, err := service.fileRepository.FindObjectByID(context, objectID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireRead(context, service.engine, userID, object.PlanetID); err != nil {
		return nil, apperr.NotFound("File")
	}
	if object.State == StatePending && object.OwnerID != userID {
		return nil, apperr.NotFound("File")
	}
	return object, nil
}

// # Upload Lifecycle

/*
BeginUpload creates a pending file and issues its pre-signed upload URL.

Description: Requires the PublicWrite tier. The quota ceiling is checked
here — and only here: the cap gates new uploads, never previously stored
content. The pending row holds no quota until confirmation.

Parameters:
  - context: context.Context
  - userID: string
  - filesID: string
  - folderID: string ("" for the tree root)
  - name: string
  - contentType: string

Returns:
  - *FileObject: The pending node
  - string: Pre-signed PUT URL
  - error: apperr NOT_FOUND, FORBIDDEN, or storage errors
*/
func (service *Service) BeginUpload(context context.Context, userID, filesID, folderID, name, contentType string) (*FileObject, string, error) {
	files, err := service.fileRepository.FindFilesByID(context, filesID)
	if err != nil {
		return nil, "", err
	}
	if err := access.RequirePublicWrite(context, service.engine, userID, files.PlanetID); err != nil {
		return nil, "", err
	}

	var objectPath []string
	if folderID != "" {
		folder, err := service.folderIn(context, filesID, folderID)
		if err != nil {
			return nil, "", err
		}
		objectPath = folder.ChildPath()
	}

	used, waived, err := service.quota.Usage(context, userID)
	if err != nil {
		return nil, "", err
	}
	if !waived && used >= service.quotaLimit {
		return nil, "", apperr.Forbidden("Storage quota exceeded")
	}

	object := &FileObject{
		ID:          uuid.New(),
		FilesID:     filesID,
		PlanetID:    files.PlanetID,
		OwnerID:     userID,
		Kind:        ObjectFile,
		Name:        name,
		Path:        objectPath,
		State:       StatePending,
		ContentType: contentType,
	}
	object.StorageKey = storageKey(filesID, object.ID)

	if err := service.fileRepository.CreateObject(context, object); err != nil {
		return nil, "", err
	}

	uploadURL, err := service.objects.IssueUploadURL(context, object.StorageKey, contentType, constants.UploadURLTTL)
	if err != nil {
		return nil, "", err
	}
	return object, uploadURL, nil
}

/*
ConfirmUpload transitions a pending file to uploaded and counts its size
against the owner's quota.

Description: The size comes from the store's own metadata, not the client.
The pending→uploaded transition is guarded, so confirming twice yields
CONFLICT and the quota increments exactly once.

Parameters:
  - context: context.Context
  - userID: string
  - objectID: string

Returns:
  - *FileObject: The confirmed node
  - error: apperr NOT_FOUND, CONFLICT, UNPROCESSABLE, or storage errors
*/
func (service *Service) ConfirmUpload(context context.Context, userID, objectID string) (*FileObject, error) {
	object, err := service.pendingOwnedBy(context, userID, objectID)
	if err != nil {
		return nil, err
	}

	size, err := service.objects.HeadObject(context, object.StorageKey)
	if err != nil {
		if apperr.IsAppError(err) {
			return nil, apperr.Unprocessable("No uploaded content found for this file")
		}
		return nil, err
	}

	if err := service.fileRepository.MarkUploaded(context, object.ID, size); err != nil {
		return nil, err
	}
	if err := service.quota.AddUsedBytes(context, userID, size); err != nil {
		return nil, err
	}

	object.State = StateUploaded
	object.Size = size
	return object, nil
}

/*
CancelUpload hard-deletes a pending file before confirmation. No quota was
held, so none is released; the backing object, if partially written, is
removed best-effort.

Parameters:
  - context: context.Context
  - userID: string
  - objectID: string

Returns:
  - error: apperr NOT_FOUND, CONFLICT, or storage errors
*/
func (service *Service) CancelUpload(context context.Context, userID, objectID string) error {
	object, err := service.pendingOwnedBy(context, userID, objectID)
	if err != nil {
		return err
	}

	if _, err := service.fileRepository.DeleteObject(context, object.ID); err != nil {
		return err
	}
	if err := service.objects.DeleteObject(context, object.StorageKey); err != nil {
		service.logger.Error("file_storage_delete_failed",
			slog.String("storage_key", object.StorageKey),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// pendingOwnedBy loads a pending file owned by userID. Anyone else gets
// NOT_FOUND: pending uploads do not exist for other users.
func (service *Service) pendingOwnedBy(context context.Context, userID, objectID string) (*FileObject, error) {
	if userID == "" {
		return nil, apperr.Unauthorized("Authentication required")
	}
	object, err := service.fileRepository.FindObjectByID(context, objectID)
	if err != nil {
		return nil, err
	}
	if object.OwnerID != userID {
		return nil, apperr.NotFound("File")
	}
	if object.Kind != ObjectFile || object.State != StatePending {
		return nil, apperr.Conflict("File is not awaiting upload")
	}
	return object, nil
}

// # Downloads

/*
IssueDownload returns a pre-signed GET URL for an uploaded file.

Parameters:
  - context: context.Context
  - userID: string (empty for anonymous)
  - objectID: string

Returns:
  - string: Pre-signed URL carrying the filename hint
  - error: apperr NOT_FOUND or storage errors
*/
func (service *Service) IssueDownload(context context.Context, userID, objectID string) (string, error) {
	object, err := service.GetObject(context, userID, objectID)
	if err != nil {
		return "", err
	}
	if object.Kind != ObjectFile || object.State != StateUploaded {
		return "", apperr.NotFound("File")
	}
	return service.objects.IssueDownloadURL(context, object.StorageKey, constants.DownloadURLTTL, object.Name)
}

// # Folders

/*
CreateFolder adds a folder node. Requires the PublicWrite tier.

Parameters:
  - context: context.Context
  - userID: string
  - filesID: string
  - parentID: string ("" for the tree root)
  - name: string

Returns:
  - *FileObject: Created folder
  - error: apperr NOT_FOUND, FORBIDDEN, or storage errors
*/
func (service *Service) CreateFolder(context context.Context, userID, filesID, parentID, name string) (*FileObject, error) {
	files, err := service.fileRepository.FindFilesByID(context, filesID)
	if err != nil {
		return nil, err
	}
	if err := access.RequirePublicWrite(context, service.engine, userID, files.PlanetID); err != nil {
		return nil, err
	}

	var folderPath []string
	if parentID != "" {
		parent, err := service.folderIn(context, filesID, parentID)
		if err != nil {
			return nil, err
		}
		folderPath = parent.ChildPath()
	}

	folder := &FileObject{
		ID:       uuid.New(),
		FilesID:  filesID,
		PlanetID: files.PlanetID,
		OwnerID:  userID,
		Kind:     ObjectFolder,
		Name:     name,
		Path:     folderPath,
		State:    StateUploaded,
	}
	if err := service.fileRepository.CreateObject(context, folder); err != nil {
		return nil, err
	}
	return folder, nil
}

/*
Rename updates a node's display name. Allowed for the node's owner (while
they retain PublicWrite) and for moderators (FullWrite).

Parameters:
  - context: context.Context
  - userID: string
  - objectID: string
  - name: string

Returns:
  - *FileObject: Updated node
  - error: apperr NOT_FOUND, FORBIDDEN, or storage errors
*/
func (service *Service) Rename(context context.Context, userID, objectID, name string) (*FileObject, error) {
	object, err := service.GetObject(context, userID, objectID)
	if err != nil {
		return nil, err
	}
	if err := service.requireOwnerOrModerator(context, userID, object); err != nil {
		return nil, err
	}

	if err := service.fileRepository.RenameObject(context, object.ID, name); err != nil {
		return nil, err
	}
	object.Name = name
	return object, nil
}

// # Deletion

/*
DeleteNode removes a file or a folder subtree. Metadata removal is strict;
backing storage and quota release are best-effort afterwards.

Parameters:
  - context: context.Context
  - userID: string
  - objectID: string

Returns:
  - error: apperr NOT_FOUND, FORBIDDEN, or storage errors
*/
func (service *Service) DeleteNode(context context.Context, userID, objectID string) error {
	object, err := service.GetObject(context, userID, objectID)
	if err != nil {
		return err
	}
	if err := service.requireOwnerOrModerator(context, userID, object); err != nil {
		return err
	}
	return service.deleteValidated(context, object)
}

/*
DeleteMany removes a batch of nodes. Validation is all-or-nothing: every
target must exist in the component and be deletable by the caller before any
row is touched. The cascade itself is then best-effort per target.

Parameters:
  - context: context.Context
  - userID: string
  - filesID: string
  - targetIDs: []string

Returns:
  - error: apperr VALIDATION_ERROR, NOT_FOUND, FORBIDDEN, or storage errors
*/
func (service *Service) DeleteMany(context context.Context, userID, filesID string, targetIDs []string) error {
	targets, err := service.validateBatch(context, userID, filesID, targetIDs)
	if err != nil {
		return err
	}

	for _, target := range targets {
		if err := service.deleteValidated(context, target); err != nil {
			// Already-gone targets are fine: a concurrent delete won the race.
			if apperr.IsAppError(err) {
				continue
			}
			return err
		}
	}
	return nil
}

// deleteValidated removes an already-authorized node and releases its
// resources.
func (service *Service) deleteValidated(context context.Context, object *FileObject) error {
	var removed []*FileObject

	if object.Kind == ObjectFolder {
		subtree, err := service.fileRepository.DeleteSubtree(context, object.FilesID, object)
		if err != nil {
			return err
		}
		removed = subtree
	} else {
		deleted, err := service.fileRepository.DeleteObject(context, object.ID)
		if err != nil {
			return err
		}
		removed = []*FileObject{deleted}
	}

	service.release(context, removed)
	return nil
}

// # Move & Copy

/*
Move reparents a batch of nodes under a destination folder (or the tree
root). Validation is all-or-nothing; each folder move rewrites its subtree's
paths transactionally.

Parameters:
  - context: context.Context
  - userID: string
  - filesID: string
  - targetIDs: []string
  - destFolderID: string ("" for the tree root)

Returns:
  - error: apperr VALIDATION_ERROR, NOT_FOUND, FORBIDDEN, or storage errors
*/
func (service *Service) Move(context context.Context, userID, filesID string, targetIDs []string, destFolderID string) error {
	targets, err := service.validateBatch(context, userID, filesID, targetIDs)
	if err != nil {
		return err
	}

	// Nested targets would race each other's path rewrites; refuse them
	// upfront so the batch stays all-or-nothing.
	for _, target := range targets {
		for _, other := range targets {
			if target != other && target.InSubtreeOf(other.ID) {
				return apperr.ValidationError("Targets must not contain each other",
					apperr.FieldError{Field: FieldTargets, Message: "nested targets are not allowed"})
			}
		}
	}

	var destPath []string
	if destFolderID != "" {
		dest, err := service.folderIn(context, filesID, destFolderID)
		if err != nil {
			return err
		}
		destPath = dest.ChildPath()

		// A folder may not be moved into itself or its own subtree.
		for _, target := range targets {
			if target.ID == dest.ID || dest.InSubtreeOf(target.ID) {
				return apperr.ValidationError("Cannot move a folder into itself",
					apperr.FieldError{Field: FieldParent, Message: "destination is inside a moved folder"})
			}
		}
	}

	for _, target := range targets {
		if err := service.fileRepository.MoveObject(context, target, destPath); err != nil {
			return err
		}
	}
	return nil
}

/*
Copy duplicates an uploaded file under a destination folder. The copy is a
new object owned by the caller; its size counts against the caller's quota.

Parameters:
  - context: context.Context
  - userID: string
  - objectID: string
  - destFolderID: string ("" for the tree root)

Returns:
  - *FileObject: The new copy
  - error: apperr NOT_FOUND, FORBIDDEN, CONFLICT, or storage errors
*/
func (service *Service) Copy(context context.Context, userID, objectID, destFolderID string) (*FileObject, error) {
	source, err := service.GetObject(context, userID, objectID)
	if err != nil {
		return nil, err
	}
	if source.Kind != ObjectFile || source.State != StateUploaded {
		return nil, apperr.ValidationError("Only uploaded files can be copied")
	}
	if err := access.RequirePublicWrite(context, service.engine, userID, source.PlanetID); err != nil {
		return nil, err
	}

	var destPath []string
	if destFolderID != "" {
		dest, err := service.folderIn(context, source.FilesID, destFolderID)
		if err != nil {
			return nil, err
		}
		destPath = dest.ChildPath()
	}

	used, waived, err := service.quota.Usage(context, userID)
	if err != nil {
		return nil, err
	}
	if !waived && used >= service.quotaLimit {
		return nil, apperr.Forbidden("Storage quota exceeded")
	}

	duplicate := &FileObject{
		ID:          uuid.New(),
		FilesID:     source.FilesID,
		PlanetID:    source.PlanetID,
		OwnerID:     userID,
		Kind:        ObjectFile,
		Name:        source.Name,
		Path:        destPath,
		State:       StateUploaded,
		ContentType: source.ContentType,
		Size:        source.Size,
	}
	duplicate.StorageKey = storageKey(source.FilesID, duplicate.ID)

	if err := service.objects.CopyObject(context, source.StorageKey, duplicate.StorageKey); err != nil {
		return nil, err
	}
	if err := service.fileRepository.CreateObject(context, duplicate); err != nil {
		// The copied bytes are orphaned; reclaim them best-effort.
		if cleanupErr := service.objects.DeleteObject(context, duplicate.StorageKey); cleanupErr != nil {
			service.logger.Error("file_copy_cleanup_failed",
				slog.String("storage_key", duplicate.StorageKey),
				slog.String("error", cleanupErr.Error()),
			)
		}
		return nil, err
	}
	if err := service.quota.AddUsedBytes(context, userID, duplicate.Size); err != nil {
		return nil, err
	}
	return duplicate, nil
}

// # Bulk Download Tickets

/*
CreateDownloadTicket validates a set of uploaded files and stores a
single-use ticket resolving to their storage keys.

Parameters:
  - context: context.Context
  - userID: string (empty for anonymous; public files remain downloadable)
  - targetIDs: []string

Returns:
  - string: Ticket id for the zip side-channel
  - error: apperr VALIDATION_ERROR, NOT_FOUND, or storage errors
*/
func (service *Service) CreateDownloadTicket(context context.Context, userID string, targetIDs []string) (string, error) {
	if len(targetIDs) == 0 {
		return "", apperr.ValidationError("No files selected",
			apperr.FieldError{Field: FieldTargets, Message: "is required"})
	}
	if len(targetIDs) > constants.MaxBatchTargets {
		return "", apperr.ValidationError("Too many files selected",
			apperr.FieldError{Field: FieldTargets, Message: fmt.Sprintf("must not exceed %d entries", constants.MaxBatchTargets)})
	}

	objects, err := service.fileRepository.FindManyObjects(context, targetIDs)
	if err != nil {
		return "", err
	}
	if len(objects) != len(uniqueIDs(targetIDs)) {
		return "", apperr.NotFound("File")
	}

	bundle := &TicketBundle{Entries: make([]TicketEntry, 0, len(objects))}
	readable := make(map[string]bool)
	for _, object := range objects {
		if object.Kind != ObjectFile || object.State != StateUploaded {
			return "", apperr.ValidationError("Only uploaded files can be downloaded")
		}
		if _, checked := readable[object.PlanetID]; !checked {
			readable[object.PlanetID] = access.RequireRead(context, service.engine, userID, object.PlanetID) == nil
		}
		if !readable[object.PlanetID] {
			return "", apperr.NotFound("File")
		}
		bundle.Entries = append(bundle.Entries, TicketEntry{StorageKey: object.StorageKey, Name: object.Name})
	}

	ticketID, err := sec.GenerateSecureToken(TicketIDLength)
	if err != nil {
		return "", err
	}
	if err := service.ticketRepository.Create(context, ticketID, bundle, constants.DownloadTicketTTL); err != nil {
		return "", err
	}
	return ticketID, nil
}

/*
ResolveTicket consumes a ticket, spending it permanently.

Parameters:
  - context: context.Context
  - ticketID: string

Returns:
  - *TicketBundle: The files to stream
  - error: apperr NOT_FOUND for unknown, expired, or already-spent tickets
*/
func (service *Service) ResolveTicket(context context.Context, ticketID string) (*TicketBundle, error) {
	return service.ticketRepository.Consume(context, ticketID)
}

/*
WriteZip streams the bundle's objects as a zip archive.

Description: Entries whose backing object has vanished since ticket creation
are skipped with a log line; the archive still carries everything that
remains. Write failures on the response stream abort the archive.

Parameters:
  - context: context.Context
  - destination: io.Writer
  - bundle: *TicketBundle

Returns:
  - error: Stream write failures
*/
func (service *Service) WriteZip(context context.Context, destination io.Writer, bundle *TicketBundle) error {
	archive := zip.NewWriter(destination)
	names := make(map[string]int)

	for _, entry := range bundle.Entries {
		reader, err := service.objects.GetObject(context, entry.StorageKey)
		if err != nil {
			service.logger.Error("zip_entry_skipped",
				slog.String("storage_key", entry.StorageKey),
				slog.String("error", err.Error()),
			)
			continue
		}

		writer, err := archive.Create(archiveName(names, entry.Name))
		if err != nil {
			reader.Close()
			return err
		}
		if _, err := io.Copy(writer, reader); err != nil {
			reader.Close()
			return err
		}
		reader.Close()
	}
	return archive.Close()
}

// # Gate Helpers

// requireOwnerOrModerator allows a node's owner (while they keep PublicWrite)
// or a FullWrite moderator to modify it.
func (service *Service) requireOwnerOrModerator(context context.Context, userID string, object *FileObject) error {
	if userID == "" {
		return apperr.Unauthorized("Authentication required")
	}

	if object.OwnerID == userID {
		return access.RequirePublicWrite(context, service.engine, userID, object.PlanetID)
	}

	allowed, err := service.engine.FullWriteByID(context, userID, object.PlanetID)
	if err != nil {
		return err
	}
	if !allowed {
		return apperr.Forbidden("Only the owner or a moderator may modify this file")
	}
	return nil
}

// folderIn loads a folder and verifies it belongs to the component.
func (service *Service) folderIn(context context.Context, filesID, folderID string) (*FileObject, error) {
	folder, err := service.fileRepository.FindObjectByID(context, folderID)
	if err != nil {
		return nil, err
	}
	if folder.FilesID != filesID || folder.Kind != ObjectFolder {
		return nil, apperr.NotFound("Folder")
	}
	return folder, nil
}

// validateBatch performs the all-or-nothing checks shared by bulk delete and
// bulk move: size bound, existence, component consistency, and per-target
// authority.
func (service *Service) validateBatch(context context.Context, userID, filesID string, targetIDs []string) ([]*FileObject, error) {
	if userID == "" {
		return nil, apperr.Unauthorized("Authentication required")
	}
	ids := uniqueIDs(targetIDs)
	if len(ids) == 0 {
		return nil, apperr.ValidationError("No targets selected",
			apperr.FieldError{Field: FieldTargets, Message: "is required"})
	}
	if len(ids) > constants.MaxBatchTargets {
		return nil, apperr.ValidationError("Too many targets selected",
			apperr.FieldError{Field: FieldTargets, Message: fmt.Sprintf("must not exceed %d entries", constants.MaxBatchTargets)})
	}

	targets, err := service.fileRepository.FindManyObjects(context, ids)
	if err != nil {
		return nil, err
	}
	if len(targets) != len(ids) {
		return nil, apperr.NotFound("File")
	}

	for _, target := range targets {
		if target.FilesID != filesID {
			return nil, apperr.NotFound("File")
		}
		if err := service.requireOwnerOrModerator(context, userID, target); err != nil {
			return nil, err
		}
	}
	return targets, nil
}

// # Resource Release

// release frees the backing storage and quota held by deleted rows. Both
// sides are best-effort: the rows are already gone, and the quota counter is
// a derived value that tolerates eventual reconciliation.
func (service *Service) release(context context.Context, removed []*FileObject) {
	reclaimed := make(map[string]int64)

	for _, object := range removed {
		if object.Kind != ObjectFile {
			continue
		}
		if object.State == StateUploaded {
			reclaimed[object.OwnerID] += object.Size
		}
		if err := service.objects.DeleteObject(context, object.StorageKey); err != nil {
			service.logger.Error("file_storage_delete_failed",
				slog.String("storage_key", object.StorageKey),
				slog.String("error", err.Error()),
			)
		}
	}

	for ownerID, bytes := range reclaimed {
		if err := service.quota.AddUsedBytes(context, ownerID, -bytes); err != nil {
			service.logger.Error("file_quota_release_failed",
				slog.String("owner_id", ownerID),
				slog.Int64("bytes", bytes),
				slog.String("error", err.Error()),
			)
		}
	}
}

// # Helpers

func storageKey(filesID, objectID string) string {
	return "files/" + filesID + "/" + objectID
}

// uniqueIDs deduplicates while dropping empty entries.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}
	return unique
}

// archiveName returns a collision-free name for a zip entry.
func archiveName(names map[string]int, name string) string {
	count := names[name]
	names[name] = count + 1
	if count == 0 {
		return name
	}

	extension := path.Ext(name)
	base := name[:len(name)-len(extension)]
	return fmt.Sprintf("%s (%d)%s", base, count, extension)
}
