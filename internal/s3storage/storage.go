// Package s3storage stores submitted app assets in MinIO/S3 buckets that the
// store front reads anonymously.
package s3storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dharsanguruparan/witverse/internal/config"
	"github.com/dharsanguruparan/witverse/internal/remote"
)

// Storage wraps MinIO interactions for app assets.
type Storage struct {
	client  *minio.Client
	buckets remote.Buckets
	region  string
	baseURL string
}

// New creates a MinIO client from the Config.
func New(cfg *config.Config) (*Storage, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	return &Storage{
		client:  client,
		buckets: cfg.Buckets(),
		region:  cfg.S3Region,
		baseURL: cfg.ObjectBaseURL(),
	}, nil
}

// EnsureBuckets creates any missing asset bucket and makes its objects
// publicly readable.
func (s *Storage) EnsureBuckets(ctx context.Context) error {
	for _, bucket := range s.buckets.All() {
		exists, err := s.client.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("check bucket %s: %w", bucket, err)
		}
		if !exists {
			if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
				return fmt.Errorf("make bucket %s: %w", bucket, err)
			}
		}
		if err := s.client.SetBucketPolicy(ctx, bucket, PublicReadPolicy(bucket)); err != nil {
			return fmt.Errorf("set policy on %s: %w", bucket, err)
		}
	}
	return nil
}

// UploadObject stores one asset and returns its public URL.
func (s *Storage) UploadObject(ctx context.Context, bucket, name string, r io.Reader, size int64, contentType string) (string, error) {
	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := s.client.PutObject(ctx, bucket, name, r, size, opts); err != nil {
		return "", fmt.Errorf("upload object: %w", err)
	}
	return PublicURL(s.baseURL, bucket, name), nil
}

// RemoveObject deletes one object. A missing object is not an error.
func (s *Storage) RemoveObject(ctx context.Context, bucket, name string) error {
	err := s.client.RemoveObject(ctx, bucket, name, minio.RemoveObjectOptions{})
	if err != nil {
		var resp minio.ErrorResponse
		if errors.As(err, &resp) && resp.Code == "NoSuchKey" {
			return nil
		}
		return fmt.Errorf("remove object %s/%s: %w", bucket, name, err)
	}
	return nil
}

// Ping checks the object store is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	if _, err := s.client.BucketExists(ctx, s.buckets.Logos); err != nil {
		return fmt.Errorf("ping object store: %w", err)
	}
	return nil
}

// PublicURL joins base, bucket and the escaped object name.
func PublicURL(base, bucket, name string) string {
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(base, "/"), bucket, url.PathEscape(name))
}

// PublicReadPolicy allows anonymous GetObject on every object of bucket.
func PublicReadPolicy(bucket string) string {
	return fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`, bucket)
}
