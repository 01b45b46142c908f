package objectstore

import (
	"context"
	"sync"

	apperrors "github.com/zzenonn/dstream/internal/errors"
)

// Router implements the URL-level Store interface by routing each call to
// the bucket-scoped repository owning the URL's bucket. Repositories are
// created on first use through the factory and cached per scheme://bucket,
// so repeated reads against the same bucket reuse one client.
//
// Router must be safe for use from multiple worker goroutines; only the
// repository map is shared, guarded by a read-write mutex.
type Router struct {
	mu           sync.RWMutex
	factory      *ObjectRepositoryFactory
	repositories map[string]ObjectRepository
}

// NewRouter creates a Router backed by the given factory.
func NewRouter(factory *ObjectRepositoryFactory) *Router {
	return &Router{
		factory:      factory,
		repositories: make(map[string]ObjectRepository),
	}
}

// Register adds a pre-built repository for a scheme://bucket base URL.
// Used by tests and tooling to mount mem:// buckets with prepared contents.
func (r *Router) Register(base string, repo ObjectRepository) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.repositories[base] = repo
}

// repositoryFor resolves the repository and bucket-relative key for a URL.
func (r *Router) repositoryFor(ctx context.Context, rawURL string) (ObjectRepository, ObjectURL, error) {
	parsed, err := ParseObjectURL(rawURL)
	if err != nil {
		return nil, ObjectURL{}, err
	}

	base := parsed.Base()

	r.mu.RLock()
	repo, exists := r.repositories[base]
	r.mu.RUnlock()
	if exists {
		return repo, parsed, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if repo, exists = r.repositories[base]; exists {
		return repo, parsed, nil
	}

	repo, err = r.factory.CreateRepository(ctx, parsed.Type, parsed.Bucket)
	if err != nil {
		return nil, ObjectURL{}, err
	}
	r.repositories[base] = repo
	return repo, parsed, nil
}

// Exists reports whether the URL names a concrete object.
func (r *Router) Exists(ctx context.Context, rawURL string) (bool, error) {
	repo, parsed, err := r.repositoryFor(ctx, rawURL)
	if err != nil {
		return false, err
	}
	ok, err := repo.Exists(ctx, parsed.Key)
	if err != nil {
		return false, apperrors.StoreError("head", rawURL, err)
	}
	return ok, nil
}

// Size returns the object size in bytes.
func (r *Router) Size(ctx context.Context, rawURL string) (int64, error) {
	repo, parsed, err := r.repositoryFor(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	size, err := repo.Size(ctx, parsed.Key)
	if err != nil {
		return 0, apperrors.StoreError("stat", rawURL, err)
	}
	return size, nil
}

// List returns full URLs for every object under the prefix, preserving the
// store's listing order so resolution output feeds straight back into Read.
func (r *Router) List(ctx context.Context, prefix string) ([]string, error) {
	repo, parsed, err := r.repositoryFor(ctx, prefix)
	if err != nil {
		return nil, err
	}
	keys, err := repo.ListKeys(ctx, parsed.Key)
	if err != nil {
		return nil, apperrors.StoreError("list", prefix, err)
	}

	urls := make([]string, 0, len(keys))
	for _, key := range keys {
		urls = append(urls, parsed.Base()+"/"+key)
	}
	return urls, nil
}

// Read returns the complete object contents.
func (r *Router) Read(ctx context.Context, rawURL string) ([]byte, error) {
	repo, parsed, err := r.repositoryFor(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	data, err := repo.Get(ctx, parsed.Key)
	if err != nil {
		return nil, apperrors.StoreError("get", rawURL, err)
	}
	return data, nil
}
