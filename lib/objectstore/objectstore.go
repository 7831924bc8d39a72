// Package objectstore archives attachment bytes under deterministic
// keys so re-runs of the sync cycle can skip work already uploaded.
package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("objectstore")

type Config struct {
	Endpoint  string `json:"endpoint"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
	Bucket    string `json:"bucket"`
	UseSSL    bool   `json:"use_ssl"`
}

type Store struct {
	client *minio.Client
	config Config
}

func New(config Config) (*Store, error) {
	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}
	return &Store{client: client, config: config}, nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.config.Bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		err = s.client.MakeBucket(ctx, s.config.Bucket, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

// ObjectKey is the deterministic key one attachment lives under. the
// extension comes from the upstream file name, defaulting to jpg since
// the portal serves unnamed images as jpeg.
func ObjectKey(workID int64, phase, attachID, fileName string) string {
	return fmt.Sprintf("works/%d/%s/%s_original.%s", workID, phase, attachID, extension(fileName))
}

func extension(fileName string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), ".")
	if ext == "" {
		return "jpg"
	}
	return ext
}

var contentTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"bmp":  "image/bmp",
	"pdf":  "application/pdf",
}

func contentType(fileName string) string {
	if ct, ok := contentTypes[extension(fileName)]; ok {
		return ct
	}
	return "application/octet-stream"
}

type Object struct {
	Key  string
	URL  string
	Size int64
}

// Upload puts one attachment's bytes under its deterministic key with
// enough metadata to trace the object back to its work and phase.
func (s *Store) Upload(ctx context.Context, workID int64, phase, attachID string, data []byte, fileName string) (Object, error) {
	ctx, span := tracer.Start(ctx, "store:Upload")
	defer span.End()

	key := ObjectKey(workID, phase, attachID, fileName)
	span.SetAttributes(
		attribute.String("key", key),
		attribute.Int("bytes", len(data)),
	)

	_, err := s.client.PutObject(
		ctx, s.config.Bucket, key,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{
			ContentType: contentType(fileName),
			UserMetadata: map[string]string{
				"work-id":       fmt.Sprintf("%d", workID),
				"phase":         phase,
				"attach-id":     attachID,
				"original-name": fileName,
			},
		},
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to upload object")
		return Object{}, err
	}

	return Object{
		Key:  key,
		URL:  s.publicURL(key),
		Size: int64(len(data)),
	}, nil
}

// Exists probes the key's metadata without fetching the object. a
// missing key is a normal false, that is what makes re-runs idempotent.
func (s *Store) Exists(ctx context.Context, workID int64, phase, attachID, fileName string) (bool, error) {
	ctx, span := tracer.Start(ctx, "store:Exists")
	defer span.End()

	key := ObjectKey(workID, phase, attachID, fileName)
	span.SetAttributes(attribute.String("key", key))

	_, err := s.client.StatObject(ctx, s.config.Bucket, key, minio.StatObjectOptions{})
	if err != nil {
		errRes := minio.ToErrorResponse(err)
		if errRes.Code == "NoSuchKey" || errRes.StatusCode == 404 {
			return false, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to stat object")
		return false, err
	}
	return true, nil
}

func (s *Store) publicURL(key string) string {
	scheme := "http"
	if s.config.UseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.config.Endpoint, s.config.Bucket, key)
}
