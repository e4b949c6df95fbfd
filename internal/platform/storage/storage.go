// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

/*
Package storage provides the object-storage capability consumed by the files
component.

The core never speaks the storage protocol itself: uploads and downloads
happen directly between the client and the object store through pre-signed
URLs with a bounded validity window. The core's job is limited to issuing
those URLs, verifying object metadata after an upload is confirmed, and
deleting or copying backing objects as file metadata changes.
*/
package storage

import (
	"context"
	"io"
	"time"
)

// ObjectStore is the narrow capability interface the files component
// depends on. The S3 implementation is the production backend; tests use an
// in-memory fake.
type ObjectStore interface {
	// IssueUploadURL returns a pre-signed PUT URL for key, valid for ttl.
	IssueUploadURL(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)

	// IssueDownloadURL returns a pre-signed GET URL for key, valid for ttl.
	// filenameHint, when non-empty, sets the download's attachment filename.
	IssueDownloadURL(ctx context.Context, key string, ttl time.Duration, filenameHint string) (string, error)

	// HeadObject returns the stored object's size in bytes, or a NOT_FOUND
	// application error when the key has never been written.
	HeadObject(ctx context.Context, key string) (int64, error)

	// GetObject opens the object's content stream. The caller owns the
	// returned reader and must close it.
	GetObject(ctx context.Context, key string) (io.ReadCloser, error)

	// DeleteObject removes the backing object. Deleting a missing key is
	// not an error.
	DeleteObject(ctx context.Context, key string) error

	// CopyObject duplicates srcKey's content under destKey.
	CopyObject(ctx context.Context, srcKey, destKey string) error
}
