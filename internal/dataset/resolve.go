package dataset

import (
	"context"

	log "github.com/sirupsen/logrus"

	apperrors "github.com/zzenonn/dstream/internal/errors"
	"github.com/zzenonn/dstream/internal/repository/objectstore"
)

// ResolveKeys expands user-supplied locations into a flat ordered list of
// concrete object URLs. Each location is first treated as a concrete object;
// if no such object exists it is treated as a prefix and all objects under
// it are appended in listing order. A prefix that yields zero objects is a
// configuration error.
//
// No retry or fault tolerance at this layer: store failures propagate
// immediately. Duplicate keys are not filtered.
func ResolveKeys(ctx context.Context, store objectstore.Store, locations []string) ([]string, error) {
	keys := make([]string, 0, len(locations))
	for _, location := range locations {
		exists, err := store.Exists(ctx, location)
		if err != nil {
			return nil, err
		}
		if exists {
			keys = append(keys, location)
			continue
		}

		listed, err := store.List(ctx, location)
		if err != nil {
			return nil, err
		}
		if len(listed) == 0 {
			return nil, apperrors.EmptyPrefixError(location)
		}
		log.Debugf("Resolved prefix %s to %d objects", location, len(listed))
		keys = append(keys, listed...)
	}
	return keys, nil
}
