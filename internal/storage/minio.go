package storage

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/brforum/forum-backend/internal/observability"
)

// MinioStore keeps photos in an S3-compatible bucket. Bucket creation is
// deferred to first use so app startup never blocks on object storage.
type MinioStore struct {
	client   *minio.Client
	bucket   string
	initOnce sync.Once
	initErr  error
}

func NewMinioStore(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &MinioStore{client: client, bucket: bucket}, nil
}

func (s *MinioStore) lazyInit(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.initErr = fmt.Errorf("%w: check bucket: %v", ErrStorage, err)
			return
		}
		if !exists {
			if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
				s.initErr = fmt.Errorf("%w: create bucket: %v", ErrStorage, err)
			}
		}
	})
	return s.initErr
}

func (s *MinioStore) Save(ctx context.Context, upload *Upload) (string, error) {
	if upload == nil {
		return SentinelPhoto, nil
	}
	name, err := validateUpload(upload)
	if err != nil {
		observability.RecordPhotoOperation(ctx, "save", "rejected")
		return "", err
	}
	if err := s.lazyInit(ctx); err != nil {
		observability.RecordPhotoOperation(ctx, "save", "error")
		return "", err
	}
	_, err = s.client.PutObject(ctx, s.bucket, name,
		bytes.NewReader(upload.Data), int64(len(upload.Data)),
		minio.PutObjectOptions{ContentType: upload.ContentType})
	if err != nil {
		observability.RecordPhotoOperation(ctx, "save", "error")
		return "", fmt.Errorf("%w: put %s: %v", ErrStorage, name, err)
	}
	observability.RecordPhotoOperation(ctx, "save", "success")
	return name, nil
}

func (s *MinioStore) Remove(ctx context.Context, name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := s.lazyInit(ctx); err != nil {
		observability.RecordPhotoOperation(ctx, "remove", "error")
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, name, minio.RemoveObjectOptions{}); err != nil {
		observability.RecordPhotoOperation(ctx, "remove", "error")
		return fmt.Errorf("%w: remove %s: %v", ErrStorage, name, err)
	}
	observability.RecordPhotoOperation(ctx, "remove", "success")
	return nil
}
