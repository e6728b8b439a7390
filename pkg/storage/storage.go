package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
)

// Storage is the ephemeral holding area for uploaded audio: write once,
// read once during processing, deleted on every exit path.
type Storage interface {
	Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	Download(ctx context.Context, objectName, localPath string) error
	Delete(ctx context.Context, objectName string) error
}

type minioStorage struct {
	client *minio.Client
	bucket string
}

func NewMinioStorage(ctx context.Context, client *minio.Client, bucket string) (Storage, error) {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &minioStorage{
		client: client,
		bucket: bucket,
	}, nil
}

func (s *minioStorage) Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}
	return nil
}

func (s *minioStorage) Download(ctx context.Context, objectName, localPath string) error {
	return s.client.FGetObject(ctx, s.bucket, objectName, localPath, minio.GetObjectOptions{})
}

func (s *minioStorage) Delete(ctx context.Context, objectName string) error {
	return s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{})
}
