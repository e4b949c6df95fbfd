// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/starbasehq/starbase/internal/platform/apperr"
	"github.com/starbasehq/starbase/internal/platform/config"
)

// S3Store implements [ObjectStore] against any S3-compatible backend
// (AWS S3, Cloudflare R2, MinIO) via the aws-sdk-go-v2 client and its
// pre-sign support.
type S3Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
}

// NewS3Store builds the S3 client from application configuration.
//
// Static credentials and a custom endpoint are optional: when absent the SDK
// falls back to its default credential chain, which is what a production AWS
// deployment uses.
func NewS3Store(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*S3Store, error) {
	loadOptions := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKey != "" {
		loadOptions = append(loadOptions, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to load S3 configuration: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(options *s3.Options) {
		if cfg.S3Endpoint != "" {
			options.BaseEndpoint = aws.String(cfg.S3Endpoint)
			// Path-style addressing for MinIO and other single-host backends.
			options.UsePathStyle = true
		}
	})

	logger.Info("object storage configured",
		slog.String("bucket", cfg.S3Bucket),
		slog.String("region", cfg.S3Region),
	)

	return &S3Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.S3Bucket,
	}, nil
}

// IssueUploadURL returns a pre-signed PUT URL for key.
func (store *S3Store) IssueUploadURL(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	request, err := store.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(store.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("storage: failed to presign upload for %q: %w", key, err)
	}
	return request.URL, nil
}

// IssueDownloadURL returns a pre-signed GET URL for key.
func (store *S3Store) IssueDownloadURL(ctx context.Context, key string, ttl time.Duration, filenameHint string) (string, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(store.bucket),
		Key:    aws.String(key),
	}
	if filenameHint != "" {
		disposition := fmt.Sprintf("attachment; filename=%q", filenameHint)
		input.ResponseContentDisposition = aws.String(disposition)
	}

	request, err := store.presign.PresignGetObject(ctx, input, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("storage: failed to presign download for %q: %w", key, err)
	}
	return request.URL, nil
}

// HeadObject returns the stored object's size.
func (store *S3Store) HeadObject(ctx context.Context, key string) (int64, error) {
	output, err := store.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(store.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return 0, apperr.NotFound("Object")
		}
		return 0, fmt.Errorf("storage: head of %q failed: %w", key, err)
	}
	return aws.ToInt64(output.ContentLength), nil
}

// GetObject opens the object's content stream.
func (store *S3Store) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	output, err := store.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(store.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, apperr.NotFound("Object")
		}
		return nil, fmt.Errorf("storage: get of %q failed: %w", key, err)
	}
	return output.Body, nil
}

// DeleteObject removes the backing object. S3 treats deleting a missing key
// as success, which matches the interface contract.
func (store *S3Store) DeleteObject(ctx context.Context, key string) error {
	_, err := store.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(store.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("storage: delete of %q failed: %w", key, err)
	}
	return nil
}

// CopyObject duplicates srcKey's content under destKey.
func (store *S3Store) CopyObject(ctx context.Context, srcKey, destKey string) error {
	source := url.PathEscape(store.bucket + "/" + srcKey)
	_, err := store.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(store.bucket),
		Key:        aws.String(destKey),
		CopySource: aws.String(source),
	})
	if err != nil {
		return fmt.Errorf("storage: copy %q -> %q failed: %w", srcKey, destKey, err)
	}
	return nil
}
