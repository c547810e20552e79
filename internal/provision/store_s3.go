package provision

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
)

// S3Store keeps archives in an object storage bucket, for deployments
// where service instances do not share a disk.
type S3Store struct {
	client *minio.Client
	bucket string
}

func NewS3Store(client *minio.Client, bucket string) *S3Store {
	return &S3Store{client: client, bucket: bucket}
}

func (s *S3Store) Put(ctx context.Context, token string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, token, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/zip"})
	if err != nil {
		return fmt.Errorf("put archive object: %w", err)
	}
	return nil
}

func (s *S3Store) Open(ctx context.Context, token string) (io.ReadCloser, int64, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, token, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, fmt.Errorf("get archive object: %w", err)
	}
	stat, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, 0, ErrArchiveNotFound
		}
		return nil, 0, fmt.Errorf("stat archive object: %w", err)
	}
	return obj, stat.Size, nil
}

func (s *S3Store) Remove(ctx context.Context, token string) error {
	err := s.client.RemoveObject(ctx, s.bucket, token, minio.RemoveObjectOptions{})
	if err != nil && minio.ToErrorResponse(err).Code != "NoSuchKey" {
		return fmt.Errorf("remove archive object: %w", err)
	}
	return nil
}
