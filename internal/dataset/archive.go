package dataset

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"io"
	"regexp"
	"strings"

	log "github.com/sirupsen/logrus"

	apperrors "github.com/zzenonn/dstream/internal/errors"
)

const (
	metaPrefix = "__"
	metaSuffix = "__"
)

// defaultSkipPattern excludes entries under a __name__ bracketed top-level
// segment, e.g. __MACOSX/ or __meta__/file.
var defaultSkipPattern = regexp.MustCompile(`^__[^/]*__($|/)`)

// ErrorAction is the decision returned by a DecodePolicy for a failed
// archive entry.
type ErrorAction int

const (
	// Abort surfaces the decode error and ends the archive.
	Abort ErrorAction = iota
	// Continue skips past the failure. For tar this moves to the next
	// entry; for zip it abandons the remaining entries of the archive and
	// iteration proceeds with the next object. A tar reader that repeats
	// the same header error without advancing is aborted regardless of the
	// policy, so Continue cannot spin on a stuck archive.
	Continue
)

// DecodePolicy decides how demultiplexing reacts to a malformed archive or
// entry. It is invoked once per failure with the underlying error.
type DecodePolicy func(error) ErrorAction

// AbortOnError is the default tar policy: malformed archives are fatal.
func AbortOnError(error) ErrorAction { return Abort }

// SkipOnError is the default zip policy: failures are logged and skipped.
func SkipOnError(error) ErrorAction { return Continue }

type demuxOptions struct {
	skipPattern *regexp.Regexp
	tarPolicy   DecodePolicy
	zipPolicy   DecodePolicy
}

func defaultDemuxOptions() demuxOptions {
	return demuxOptions{
		skipPattern: defaultSkipPattern,
		tarPolicy:   AbortOnError,
		zipPolicy:   SkipOnError,
	}
}

// DemuxOption customizes archive demultiplexing.
type DemuxOption func(*demuxOptions)

// WithSkipPattern overrides the pattern for tar entry paths to skip.
// A nil pattern disables path-based skipping.
func WithSkipPattern(pattern *regexp.Regexp) DemuxOption {
	return func(o *demuxOptions) {
		o.skipPattern = pattern
	}
}

// WithTarPolicy overrides the decode error policy for tar archives.
func WithTarPolicy(policy DecodePolicy) DemuxOption {
	return func(o *demuxOptions) {
		o.tarPolicy = policy
	}
}

// WithZipPolicy overrides the decode error policy for zip archives.
// Note the default differs from tar: zip failures abandon the archive and
// log rather than surfacing an error.
func WithZipPolicy(policy DecodePolicy) DemuxOption {
	return func(o *demuxOptions) {
		o.zipPolicy = policy
	}
}

// Demux expands one fetched object into a lazy sequence of records. The
// container kind is inferred from the key suffix: ".tar" and ".zip" are
// demultiplexed entry by entry, anything else yields a single record whose
// name is the key and whose payload is the buffer unchanged.
func Demux(key string, payload []byte, opts ...DemuxOption) Iterator {
	options := defaultDemuxOptions()
	for _, opt := range opts {
		opt(&options)
	}

	switch {
	case strings.HasSuffix(key, ".tar"):
		return &tarIterator{
			key:    key,
			reader: tar.NewReader(bytes.NewReader(payload)),
			opts:   options,
		}
	case strings.HasSuffix(key, ".zip"):
		return newZipIterator(key, payload, options)
	default:
		return &sliceIterator{records: []Record{{Name: key, Payload: payload}}}
	}
}

// tarIterator streams regular-file entries out of a tar archive, skipping
// metadata entries. The archive size need not be known up front.
type tarIterator struct {
	key           string
	reader        *tar.Reader
	opts          demuxOptions
	done          bool
	lastHeaderErr string
}

func (it *tarIterator) Next() (Record, error) {
	if it.done {
		return Record{}, io.EOF
	}
	for {
		header, err := it.reader.Next()
		if err == io.EOF {
			it.done = true
			return Record{}, io.EOF
		}
		if err != nil {
			if it.opts.tarPolicy(err) == Continue {
				// A reader that keeps failing with the same error is not
				// advancing; continuing would loop forever.
				if it.lastHeaderErr == err.Error() {
					it.done = true
					return Record{}, apperrors.ArchiveDecodeError(it.key, err)
				}
				it.lastHeaderErr = err.Error()
				continue
			}
			it.done = true
			return Record{}, apperrors.ArchiveDecodeError(it.key, err)
		}
		it.lastHeaderErr = ""
		if header.Typeflag != tar.TypeReg {
			continue
		}
		name := header.Name
		// A bare top-level __name__ entry is metadata; the same bracketed
		// form nested under a directory is not.
		if !strings.Contains(name, "/") && strings.HasPrefix(name, metaPrefix) && strings.HasSuffix(name, metaSuffix) {
			continue
		}
		if it.opts.skipPattern != nil && it.opts.skipPattern.MatchString(name) {
			continue
		}
		data, err := io.ReadAll(it.reader)
		if err != nil {
			if it.opts.tarPolicy(err) == Continue {
				continue
			}
			it.done = true
			return Record{}, apperrors.ArchiveDecodeError(it.key, err)
		}
		return Record{Name: name, Payload: data}, nil
	}
}

func (it *tarIterator) Close() error {
	it.done = true
	return nil
}

// newZipIterator opens the buffer as a zip archive. Zip requires random
// access to the central directory, so the whole buffer is materialized
// before any entry is read.
func newZipIterator(key string, payload []byte, opts demuxOptions) Iterator {
	reader, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		if opts.zipPolicy(err) == Continue {
			log.Warnf("Skipping unreadable zip archive %s: %v", key, err)
			return emptyIterator{}
		}
		return &errorIterator{err: apperrors.ArchiveDecodeError(key, err)}
	}
	return &zipIterator{key: key, reader: reader, opts: opts}
}

// zipIterator yields entries in archive-listed order. A failed entry read
// under the Continue policy abandons the remaining entries of this archive
// rather than skipping just the one entry.
type zipIterator struct {
	key    string
	reader *zip.Reader
	opts   demuxOptions
	next   int
	done   bool
}

func (it *zipIterator) Next() (Record, error) {
	if it.done {
		return Record{}, io.EOF
	}
	for it.next < len(it.reader.File) {
		file := it.reader.File[it.next]
		it.next++

		data, err := readZipEntry(file)
		if err != nil {
			it.done = true
			if it.opts.zipPolicy(err) == Continue {
				log.Warnf("Abandoning zip archive %s at entry %s: %v", it.key, file.Name, err)
				return Record{}, io.EOF
			}
			return Record{}, apperrors.ArchiveDecodeError(it.key, err)
		}
		return Record{Name: file.Name, Payload: data}, nil
	}
	it.done = true
	return Record{}, io.EOF
}

func (it *zipIterator) Close() error {
	it.done = true
	return nil
}

func readZipEntry(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
