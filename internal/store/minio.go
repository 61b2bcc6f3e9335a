package store

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ayush/snapshare/internal/models"
)

// MinioStore keeps uploaded images in a MinIO bucket keyed by random UUIDs.
type MinioStore struct {
	client *minio.Client
	bucket string
}

func NewMinioStore(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	// Ensure bucket exists
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket check: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio make bucket: %w", err)
		}
	}

	return &MinioStore{client: client, bucket: bucket}, nil
}

// Put uploads data under a fresh key. An empty filename means no file was chosen.
func (s *MinioStore) Put(ctx context.Context, data []byte, filename, contentType string) (string, error) {
	if filename == "" {
		return "", ErrNoUpload
	}
	key := uuid.NewString()
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: map[string]string{"filename": filename},
	})
	if err != nil {
		return "", fmt.Errorf("minio upload: %w", err)
	}
	return key, nil
}

func (s *MinioStore) Get(ctx context.Context, id string) (*models.Blob, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("blob %q: %w", id, ErrNotFound)
	}
	obj, err := s.client.GetObject(ctx, s.bucket, id, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.wrap(id, err)
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		return nil, s.wrap(id, err)
	}
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, s.wrap(id, err)
	}

	filename := info.UserMetadata["Filename"]
	if filename == "" {
		filename = info.UserMetadata["filename"]
	}
	return &models.Blob{
		ID:          id,
		Filename:    filename,
		ContentType: info.ContentType,
		Data:        data,
	}, nil
}

func (s *MinioStore) wrap(id string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("blob %s: %w", id, ErrNotFound)
	}
	return fmt.Errorf("minio download: %w", err)
}
