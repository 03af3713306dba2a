// Package imagestore uploads grievance photos to an S3-compatible bucket
// and returns URLs the frontend can embed.
package imagestore

import (
	"context"
	"fmt"
	"io"
	"log"
	"path"
	"strings"

	"sampark/backend/internal/config"
	"sampark/backend/internal/models"

	"github.com/google/uuid"
	minioSDK "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var (
	ErrNotImage = fmt.Errorf("%w: only image files are allowed", models.ErrValidation)
	ErrTooLarge = fmt.Errorf("%w: image exceeds the 10 MB limit", models.ErrValidation)
)

const keyPrefix = "grievances/"

// Store writes images into one bucket.
type Store struct {
	Client    *minioSDK.Client
	Bucket    string
	PublicURL string
	MaxSize   int64
}

// New connects to the MinIO endpoint described by cfg.
func New(cfg *config.Config) (*Store, error) {
	client, err := minioSDK.New(cfg.MinioEndpoint, &minioSDK.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	publicURL := cfg.MinioPublicURL
	if publicURL == "" {
		publicURL = client.EndpointURL().String()
	}
	return &Store{
		Client:    client,
		Bucket:    cfg.MinioBucket,
		PublicURL: strings.TrimRight(publicURL, "/"),
		MaxSize:   config.MaxImageSize,
	}, nil
}

// publicReadPolicy lets browsers fetch objects under keyPrefix anonymously.
const publicReadPolicy = `{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/%s*"]}]}`

// EnsureBucket creates the bucket on first start and opens it for reading.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.Client.BucketExists(ctx, s.Bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", s.Bucket, err)
	}
	if exists {
		log.Printf("INFO: Bucket already exists: %s", s.Bucket)
		return nil
	}

	if err := s.Client.MakeBucket(ctx, s.Bucket, minioSDK.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.Bucket, err)
	}
	if err := s.Client.SetBucketPolicy(ctx, s.Bucket, fmt.Sprintf(publicReadPolicy, s.Bucket, keyPrefix)); err != nil {
		return fmt.Errorf("failed to set policy on bucket %s: %w", s.Bucket, err)
	}
	log.Printf("INFO: Bucket created: %s", s.Bucket)
	return nil
}

// Upload stores r under a fresh key and returns its public URL.
func (s *Store) Upload(ctx context.Context, filename, contentType string, size int64, r io.Reader) (string, error) {
	if err := s.check(contentType, size); err != nil {
		return "", err
	}

	key := keyPrefix + uuid.New().String() + strings.ToLower(path.Ext(filename))
	_, err := s.Client.PutObject(ctx, s.Bucket, key, r, size, minioSDK.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		log.Printf("ERROR: Failed to upload %s: %v", key, err)
		return "", fmt.Errorf("upload image: %w", err)
	}
	return s.ObjectURL(key), nil
}

func (s *Store) check(contentType string, size int64) error {
	if !strings.HasPrefix(contentType, "image/") {
		return ErrNotImage
	}
	limit := s.MaxSize
	if limit <= 0 {
		limit = config.MaxImageSize
	}
	if size <= 0 {
		return fmt.Errorf("%w: empty file", models.ErrValidation)
	}
	if size > limit {
		return ErrTooLarge
	}
	return nil
}

// ObjectURL is the path-style URL of key in the bucket.
func (s *Store) ObjectURL(key string) string {
	return s.PublicURL + "/" + s.Bucket + "/" + key
}
