// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

package files

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starbasehq/starbase/internal/platform/constants"
	"github.com/starbasehq/starbase/internal/platform/ctxutil"
	"github.com/starbasehq/starbase/internal/platform/middleware"
	requestutil "github.com/starbasehq/starbase/internal/platform/request"
	"github.com/starbasehq/starbase/internal/platform/respond"
	"github.com/starbasehq/starbase/internal/platform/validate"
)

// Handler implements files component HTTP endpoints.
//
// The zip download side-channel ([Handler.DownloadZip]) is mounted by the API
// server outside this router so tickets resolve on a bare, unauthenticated
// route: the ticket itself is the credential.
type Handler struct {
	fileService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{fileService: service}
}

// Routes returns a [chi.Router] configured with files-specific routes.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/{id}", handler.getFiles)
	router.Get("/{id}/children", handler.listFolder)
	router.Get("/objects/{objectId}", handler.getObject)
	router.Get("/objects/{objectId}/download", handler.issueDownload)
	router.Post("/tickets", handler.createTicket)

	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Post("/{id}/uploads", handler.beginUpload)
		r.Put("/uploads/{objectId}", handler.confirmUpload)
		r.Delete("/uploads/{objectId}", handler.cancelUpload)

		r.Post("/{id}/folders", handler.createFolder)
		r.Patch("/objects/{objectId}", handler.renameObject)
		r.Delete("/objects/{objectId}", handler.deleteObject)

		r.Post("/{id}/batch/delete", handler.deleteMany)
		r.Post("/{id}/batch/move", handler.move)
	})

	return router
}

// # Request Payloads

type beginUploadRequest struct {
	FolderID    string `json:"folder_id"`
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
}

type createFolderRequest struct {
	ParentID string `json:"parent_id"`
	Name     string `json:"name"`
}

type renameRequest struct {
	Name string `json:"name"`
}

type batchRequest struct {
	TargetIDs []string `json:"target_ids"`
	ParentID  string   `json:"parent_id"`
}

type ticketRequest struct {
	TargetIDs []string `json:"target_ids"`
}

// uploadResponse pairs the pending object with its pre-signed PUT URL.
type uploadResponse struct {
	Object    *FileObject `json:"object"`
	UploadURL string      `json:"upload_url"`
}

// # Browsing Endpoints

/*
GetFiles returns the component root.

GET /api/v1/files/{id}
*/
func (handler *Handler) getFiles(writer http.ResponseWriter, request *http.Request) {
	files, err := handler.fileService.GetFiles(request.Context(), callerID(request), requestutil.ID(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, files)
}

/*
ListFolder returns the direct children of a folder.

GET /api/v1/files/{id}/children?folder={folderId}

Response:
  - 200: []FileObject, folders first
  - 404: ErrNotFound: Component, folder, or planet not visible
*/
func (handler *Handler) listFolder(writer http.ResponseWriter, request *http.Request) {
	children, err := handler.fileService.ListFolder(
		request.Context(),
		callerID(request),
		requestutil.ID(request, "id"),
		request.URL.Query().Get("folder"),
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, children)
}

/*
GetObject returns a single node.

GET /api/v1/files/objects/{objectId}
*/
func (handler *Handler) getObject(writer http.ResponseWriter, request *http.Request) {
	object, err := handler.fileService.GetObject(request.Context(), callerID(request), requestutil.ID(request, "objectId"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, object)
}

/*
IssueDownload returns a pre-signed download URL for an uploaded file.

GET /api/v1/files/objects/{objectId}/download

Response:
  - 200: {"url": ...}
  - 404: ErrNotFound: File missing, pending, or not visible
*/
func (handler *Handler) issueDownload(writer http.ResponseWriter, request *http.Request) {
	url, err := handler.fileService.IssueDownload(request.Context(), callerID(request), requestutil.ID(request, "objectId"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, map[string]string{"url": url})
}

// # Upload Endpoints

/*
BeginUpload creates a pending file and issues its upload URL.

POST /api/v1/files/{id}/uploads

Request:
  - Body: beginUploadRequest (FolderID, Name, ContentType)

Response:
  - 201: uploadResponse
  - 403: ErrForbidden: Caller lacks PublicWrite or exceeds quota
*/
func (handler *Handler) beginUpload(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input beginUploadRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	v := &validate.Validator{}
	v.Required(FieldName, input.Name).MaxLen(FieldName, input.Name, constants.MaxFileNameLen)
	v.Required(FieldContentType, input.ContentType)
	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	object, uploadURL, err := handler.fileService.BeginUpload(
		request.Context(), userID, requestutil.ID(request, "id"),
		input.FolderID, input.Name, input.ContentType,
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, uploadResponse{Object: object, UploadURL: uploadURL})
}

/*
ConfirmUpload finalizes a pending upload.

PUT /api/v1/files/uploads/{objectId}

Response:
  - 200: FileObject in uploaded state
  - 409: ErrConflict: Already confirmed
  - 422: ErrUnprocessable: No content was uploaded
*/
func (handler *Handler) confirmUpload(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	object, err := handler.fileService.ConfirmUpload(request.Context(), userID, requestutil.ID(request, "objectId"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, object)
}

/*
CancelUpload discards a pending upload.

DELETE /api/v1/files/uploads/{objectId}

Response:
  - 204: No Content
  - 409: ErrConflict: Upload already confirmed
*/
func (handler *Handler) cancelUpload(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.fileService.CancelUpload(request.Context(), userID, requestutil.ID(request, "objectId")); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}

// # Tree Endpoints

/*
CreateFolder adds a folder node.

POST /api/v1/files/{id}/folders

Request:
  - Body: createFolderRequest (ParentID, Name)
*/
func (handler *Handler) createFolder(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input createFolderRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	v := &validate.Validator{}
	v.Required(FieldName, input.Name).MaxLen(FieldName, input.Name, constants.MaxFileNameLen)
	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	folder, err := handler.fileService.CreateFolder(
		request.Context(), userID, requestutil.ID(request, "id"), input.ParentID, input.Name)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Created(writer, folder)
}

/*
RenameObject updates a node's display name.

PATCH /api/v1/files/objects/{objectId}
*/
func (handler *Handler) renameObject(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input renameRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	v := &validate.Validator{}
	v.Required(FieldName, input.Name).MaxLen(FieldName, input.Name, constants.MaxFileNameLen)
	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	object, err := handler.fileService.Rename(request.Context(), userID, requestutil.ID(request, "objectId"), input.Name)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, object)
}

/*
DeleteObject removes a file or a folder subtree.

DELETE /api/v1/files/objects/{objectId}
*/
func (handler *Handler) deleteObject(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.fileService.DeleteNode(request.Context(), userID, requestutil.ID(request, "objectId")); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}

/*
DeleteMany removes a validated batch of nodes.

POST /api/v1/files/{id}/batch/delete

Request:
  - Body: batchRequest (TargetIDs)
*/
func (handler *Handler) deleteMany(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input batchRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	if err := handler.fileService.DeleteMany(request.Context(), userID, requestutil.ID(request, "id"), input.TargetIDs); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}

/*
Move reparents a validated batch of nodes.

POST /api/v1/files/{id}/batch/move

Request:
  - Body: batchRequest (TargetIDs, ParentID — empty for the tree root)
*/
func (handler *Handler) move(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input batchRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	err = handler.fileService.Move(
		request.Context(), userID, requestutil.ID(request, "id"), input.TargetIDs, input.ParentID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}

// # Bulk Download

/*
CreateTicket issues a single-use bulk-download ticket.

POST /api/v1/files/tickets

Request:
  - Body: ticketRequest (TargetIDs)

Response:
  - 201: {"ticket": ...}
*/
func (handler *Handler) createTicket(writer http.ResponseWriter, request *http.Request) {
	var input ticketRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	ticketID, err := handler.fileService.CreateDownloadTicket(request.Context(), callerID(request), input.TargetIDs)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Created(writer, map[string]string{"ticket": ticketID})
}

/*
DownloadZip resolves a ticket and streams its files as a zip archive. The
ticket is spent on first use; replaying it yields 404.

GET /downloads/{ticketId}
*/
func (handler *Handler) DownloadZip(writer http.ResponseWriter, request *http.Request) {
	bundle, err := handler.fileService.ResolveTicket(request.Context(), requestutil.ID(request, "ticketId"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// Large archives outlive the server's write deadline; lift it for this
	// response only.
	_ = http.NewResponseController(writer).SetWriteDeadline(time.Time{})

	writer.Header().Set("Content-Type", "application/zip")
	writer.Header().Set("Content-Disposition", `attachment; filename="starbase-files.zip"`)
	writer.WriteHeader(http.StatusOK)

	if err := handler.fileService.WriteZip(request.Context(), writer, bundle); err != nil {
		// The status line is already on the wire; all we can do is log.
		ctxutil.GetLogger(request.Context()).Error("zip_stream_failed",
			slog.String("error", err.Error()),
		)
	}
}

// callerID extracts the authenticated user id, or "" for anonymous callers.
func callerID(request *http.Request) string {
	if claims := requestutil.Claims(request); claims != nil {
		return claims.UserID
	}
	return ""
}
