// Package dataset streams object collections out of a blob store as a lazy
// sequence of named records, with deterministic rank/worker sharding,
// epoch-seeded key permutation, tar/zip demultiplexing and bounded-memory
// approximate shuffling.
package dataset

import "io"

// Record is one named payload produced by an iteration pass. Name is the
// object URL for plain objects, or the archive-internal entry path for
// records demultiplexed out of a tar or zip object.
type Record struct {
	Name    string
	Payload []byte
}

// Iterator is a pull-based stream of records. Next returns io.EOF after the
// final record; any other error terminates the pass. Close releases all
// buffered state and is safe to call at any point, including mid-stream and
// more than once. Abandoning a pass without draining it requires only Close.
type Iterator interface {
	Next() (Record, error)
	Close() error
}

// emptyIterator yields nothing. Used when an archive is abandoned before
// producing records.
type emptyIterator struct{}

func (emptyIterator) Next() (Record, error) { return Record{}, io.EOF }
func (emptyIterator) Close() error          { return nil }

// errorIterator surfaces a fixed error on first Next, then io.EOF.
type errorIterator struct {
	err error
}

func (it *errorIterator) Next() (Record, error) {
	if it.err == nil {
		return Record{}, io.EOF
	}
	err := it.err
	it.err = nil
	return Record{}, err
}

func (it *errorIterator) Close() error {
	it.err = nil
	return nil
}

// sliceIterator replays a fixed set of records.
type sliceIterator struct {
	records []Record
	next    int
}

func (it *sliceIterator) Next() (Record, error) {
	if it.next >= len(it.records) {
		return Record{}, io.EOF
	}
	rec := it.records[it.next]
	it.next++
	return rec, nil
}

func (it *sliceIterator) Close() error {
	it.records = nil
	return nil
}
