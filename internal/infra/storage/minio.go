package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Store keeps longitudinal reports as JSON objects in a MinIO bucket.
type Store struct {
	client     *minio.Client
	bucketName string
	region     string
}

// New buat koneksi MinIO dan pastikan bucket ada
func New(ctx context.Context, endpoint, region, bucket, accessKey, secretKey string, useSSL bool) (*Store, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: client: %w", err)
	}

	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("storage: bucket check: %w", err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, fmt.Errorf("storage: make bucket %s: %w", bucket, err)
		}
	}

	return &Store{client: cli, bucketName: bucket, region: region}, nil
}

// Put implementasi ReportStore: upload body under key as JSON.
func (s *Store) Put(ctx context.Context, key string, body []byte) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("storage: put %s: %w", key, err)
	}

	// URL publik (jika bucket public), kalau private pakai PresignedURL
	u := s.client.EndpointURL()
	return fmt.Sprintf("%s://%s/%s/%s", u.Scheme, u.Host, s.bucketName, key), nil
}

// PresignedURL returns a time-limited download link for key.
func (s *Store) PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucketName, key, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("storage: presign %s: %w", key, err)
	}
	return u.String(), nil
}

// Ping checks that the bucket is reachable; used by the readiness check.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucketName)
	return err
}
