// Package objectstore provides object storage repository implementations and factory.
package objectstore

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"

	apperrors "github.com/zzenonn/dstream/internal/errors"
)

// RepositoryType represents the type of object storage
type RepositoryType string

const (
	S3Type   RepositoryType = "s3"
	GCSType  RepositoryType = "gcs"
	MemType  RepositoryType = "mem"
	FileType RepositoryType = "file"
	// Add more types as needed
)

// ObjectURL is a parsed object location: scheme://bucket/key.
type ObjectURL struct {
	Type   RepositoryType
	Bucket string
	Key    string
}

// Base returns the scheme://bucket portion of the URL.
func (u ObjectURL) Base() string {
	return u.Scheme() + "://" + u.Bucket
}

// Scheme returns the URL scheme for the repository type.
func (u ObjectURL) Scheme() string {
	if u.Type == GCSType {
		return "gs"
	}
	return string(u.Type)
}

// ParseObjectURL parses an object URL of the form scheme://bucket/key.
// The key part may be empty (bucket root) and may itself contain slashes.
// Supported schemes: "s3", "gs", "mem", "file".
//
// For file URLs the "bucket" is a directory path, which may itself contain
// slashes (file:///data/train/00001.tar), so the split happens at the last
// separator instead of the first: the enclosing directory is the bucket and
// the final segment is the key. A trailing slash yields an empty key, i.e.
// a listing of the whole directory.
func ParseObjectURL(rawURL string) (ObjectURL, error) {
	trimmed := strings.TrimSpace(rawURL)

	parts := strings.SplitN(trimmed, "://", 2)
	if len(parts) != 2 {
		return ObjectURL{}, fmt.Errorf("invalid object URL: %s", rawURL)
	}

	scheme := strings.ToLower(strings.TrimSpace(parts[0]))
	rest := parts[1]
	if rest == "" {
		return ObjectURL{}, fmt.Errorf("bucket name cannot be empty: %s", rawURL)
	}

	var repoType RepositoryType
	switch scheme {
	case "s3":
		repoType = S3Type
	case "gs":
		repoType = GCSType
	case "mem":
		repoType = MemType
	case "file":
		repoType = FileType
	default:
		return ObjectURL{}, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedScheme, scheme)
	}

	var bucket, key string
	if repoType == FileType {
		if idx := strings.LastIndex(rest, "/"); idx >= 0 {
			bucket, key = rest[:idx], rest[idx+1:]
		} else {
			bucket = rest
		}
	} else {
		bucket, key, _ = strings.Cut(rest, "/")
	}
	if bucket == "" {
		return ObjectURL{}, fmt.Errorf("bucket name cannot be empty: %s", rawURL)
	}

	return ObjectURL{
		Type:   repoType,
		Bucket: bucket,
		Key:    key,
	}, nil
}

// ObjectRepositoryFactory creates object repository instances
type ObjectRepositoryFactory struct {
	awsConfig aws.Config
	gcsClient *storage.Client
	// Add other provider configs as needed
}

// NewObjectRepositoryFactory creates a new factory
func NewObjectRepositoryFactory(awsConfig aws.Config, gcsClient *storage.Client) *ObjectRepositoryFactory {
	return &ObjectRepositoryFactory{
		awsConfig: awsConfig,
		gcsClient: gcsClient,
	}
}

// CreateRepository creates a repository for the given type and bucket.
func (f *ObjectRepositoryFactory) CreateRepository(ctx context.Context, repoType RepositoryType, bucketName string) (ObjectRepository, error) {
	switch repoType {
	case S3Type:
		client := s3.NewFromConfig(f.awsConfig)
		repo := NewS3ObjectRepository(client, bucketName)
		return &repo, nil
	case GCSType:
		if f.gcsClient == nil {
			return nil, fmt.Errorf("GCS client not configured")
		}
		repo := NewGCSObjectRepository(f.gcsClient, bucketName)
		return &repo, nil
	case MemType:
		bucket, err := blob.OpenBucket(ctx, "mem://")
		if err != nil {
			return nil, fmt.Errorf("failed to open mem bucket %s: %w", bucketName, err)
		}
		repo := NewBlobObjectRepository(bucket, bucketName, string(MemType))
		return &repo, nil
	case FileType:
		// bucketName is the directory path parsed out of the file:// URL.
		bucket, err := fileblob.OpenBucket(bucketName, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to open directory %s: %w", bucketName, err)
		}
		repo := NewBlobObjectRepository(bucket, bucketName, string(FileType))
		return &repo, nil
	default:
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedScheme, repoType)
	}
}
