package objectstore

import (
	"context"
	"io"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// BlobObjectRepository implements ObjectRepository over a gocloud.dev blob
// bucket. Used for the mem:// backend (hermetic tests, local development)
// and any other driver registered with gocloud.
type BlobObjectRepository struct {
	bucket      *blob.Bucket
	bucketName  string
	storageType string
}

// NewBlobObjectRepository wraps an open blob bucket handle.
func NewBlobObjectRepository(bucket *blob.Bucket, bucketName string, storageType string) BlobObjectRepository {
	return BlobObjectRepository{
		bucket:      bucket,
		bucketName:  bucketName,
		storageType: storageType,
	}
}

// Exists reports whether the key names a concrete object in the bucket.
func (r *BlobObjectRepository) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := r.bucket.Exists(ctx, key)
	if err != nil && gcerrors.Code(err) == gcerrors.NotFound {
		return false, nil
	}
	return ok, err
}

// Size returns the object size in bytes.
func (r *BlobObjectRepository) Size(ctx context.Context, key string) (int64, error) {
	attrs, err := r.bucket.Attributes(ctx, key)
	if err != nil {
		return 0, err
	}
	return attrs.Size, nil
}

// ListKeys returns all keys under the prefix in listing order.
func (r *BlobObjectRepository) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	it := r.bucket.List(&blob.ListOptions{Prefix: prefix})
	for {
		obj, err := it.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if obj.IsDir {
			continue
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

// Get downloads the complete object into memory.
func (r *BlobObjectRepository) Get(ctx context.Context, key string) ([]byte, error) {
	return r.bucket.ReadAll(ctx, key)
}

// GetBucketName returns the bucket name.
func (r *BlobObjectRepository) GetBucketName() string {
	return r.bucketName
}

// GetStorageType returns the storage type.
func (r *BlobObjectRepository) GetStorageType() string {
	return r.storageType
}
