/*
Package storage issues presigned uploads to S3-compatible object storage for profile pictures
and the payloads of audio, image and file messages. The server never proxies file bytes.
*/
package storage

import (
	"context"
	"errors"
	"time"
)

var ErrUploadFailed = errors.New("object storage request failed")

// ServiceConfig holds the connection settings of the object store.
type ServiceConfig struct {
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string

	// S3PublicBaseURL is prefixed to object keys to build their public URL. Empty means
	// path-style URLs on S3Endpoint.
	S3PublicBaseURL string
}

// StorageService is the object store as seen by the handlers.
type StorageService interface {
	// PresignUpload returns a URL accepting one PUT of key with the given type and size.
	PresignUpload(ctx context.Context, key string, mimeType string, fileSize int64, duration time.Duration) (string, error)

	// ObjectURL returns the URL clients read key from once uploaded.
	ObjectURL(key string) string
}

// NewStorageService returns the S3-compatible implementation for cfg.
func NewStorageService(ctx context.Context, cfg ServiceConfig) (StorageService, error) {
	return newS3Client(ctx, cfg)
}
