package objectstore

import (
	"context"
)

// Store is the URL-level view of object storage consumed by the dataset
// layer. Implementations accept full object URLs (e.g. s3://bucket/key)
// and route each call to the repository owning that bucket.
//
// All calls are synchronous and whole-object; there is no caching, no
// retry and no request coalescing at this layer. Failures propagate
// immediately wrapped as ErrStoreUnavailable.
type Store interface {
	// Exists reports whether url names a concrete object.
	Exists(ctx context.Context, url string) (bool, error)

	// Size returns the object size in bytes.
	Size(ctx context.Context, url string) (int64, error)

	// List returns the full URLs of all objects under the given prefix,
	// in the store's listing order.
	List(ctx context.Context, prefix string) ([]string, error)

	// Read returns the complete object contents.
	Read(ctx context.Context, url string) ([]byte, error)
}

// ObjectRepository defines the bucket-scoped interface for object storage
// operations. Keys are bucket-relative.
type ObjectRepository interface {
	Exists(ctx context.Context, key string) (bool, error)
	Size(ctx context.Context, key string) (int64, error)
	ListKeys(ctx context.Context, prefix string) ([]string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	GetBucketName() string
	GetStorageType() string
}
