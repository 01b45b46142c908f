package errors

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyPrefix       = errors.New("prefix does not contain any objects")
	ErrUnsupportedScheme = errors.New("unsupported object store scheme")
	ErrStoreUnavailable  = errors.New("object store request failed")
	ErrArchiveDecode     = errors.New("failed to decode archive entry")
)

// EmptyPrefixError generates a formatted error for a location that resolved
// to zero objects. Surfaced as a configuration error before iteration starts.
func EmptyPrefixError(prefix string) error {
	return fmt.Errorf("%w: %s", ErrEmptyPrefix, prefix)
}

// StoreError wraps a failure from an object store call with the operation
// and URL that triggered it.
func StoreError(op string, url string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", ErrStoreUnavailable, op, url, err)
}

// ArchiveDecodeError wraps a tar or zip decode failure with the source key.
func ArchiveDecodeError(key string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrArchiveDecode, key, err)
}

func ConfigNotSetError(config string) error {
	return fmt.Errorf("The %s configuration value must be set", config)
}
