package dataset

import (
	"context"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/zzenonn/dstream/internal/repository/objectstore"
)

// Dataset is a restartable streaming view over a resolved set of object
// URLs. Each Iterate call produces an independent pass that permutes the
// key list for the current epoch (when shuffling is enabled), derives the
// caller's shard and lazily fetches and demultiplexes one object at a time.
//
// A Dataset holds no fetched bytes between passes; peak memory per pass is
// one object's raw payload plus whatever records the consumer retains.
type Dataset struct {
	store     objectstore.Store
	keys      []string
	shuffle   bool
	epoch     int
	demuxOpts []DemuxOption
}

// Option customizes a Dataset.
type Option func(*Dataset)

// WithKeyShuffle enables the per-epoch deterministic key permutation.
func WithKeyShuffle() Option {
	return func(d *Dataset) {
		d.shuffle = true
	}
}

// WithDemuxOptions forwards archive demultiplexing options to every pass.
func WithDemuxOptions(opts ...DemuxOption) Option {
	return func(d *Dataset) {
		d.demuxOpts = append(d.demuxOpts, opts...)
	}
}

// New resolves locations against the store and builds a Dataset. Resolution
// happens eagerly: a prefix with no objects or a store failure surfaces
// here, before any iteration starts.
func New(ctx context.Context, store objectstore.Store, locations []string, opts ...Option) (*Dataset, error) {
	keys, err := ResolveKeys(ctx, store, locations)
	if err != nil {
		return nil, err
	}

	d := &Dataset{
		store: store,
		keys:  keys,
	}
	for _, opt := range opts {
		opt(d)
	}
	log.Debugf("Dataset resolved %d locations to %d keys", len(locations), len(keys))
	return d, nil
}

// SetEpoch records the epoch counter that seeds the next pass's key
// permutation. It has no effect on a pass already in progress; call it
// between passes, from the training loop.
func (d *Dataset) SetEpoch(epoch int) {
	d.epoch = epoch
}

// Len returns the un-sharded total key count. It is NOT the number of
// records a given pass will produce: shards see a subset of keys, and
// archive keys expand to many records.
func (d *Dataset) Len() int {
	return len(d.keys)
}

// Get fetches the object at index i of the resolved key list and returns it
// as a single record, without archive demultiplexing. This is the map-style
// counterpart to Iterate for callers that index the dataset directly;
// indices follow resolution order and ignore epoch shuffling and sharding.
func (d *Dataset) Get(ctx context.Context, i int) (Record, error) {
	if i < 0 || i >= len(d.keys) {
		return Record{}, fmt.Errorf("dataset index %d out of range [0, %d)", i, len(d.keys))
	}
	key := d.keys[i]
	payload, err := d.store.Read(ctx, key)
	if err != nil {
		return Record{}, err
	}
	return Record{Name: key, Payload: payload}, nil
}

// Keys returns a copy of the resolved key list in resolution order.
func (d *Dataset) Keys() []string {
	keys := make([]string, len(d.keys))
	copy(keys, d.keys)
	return keys
}

// EpochKeys returns the key list as the current epoch orders it: the
// epoch-seeded permutation when shuffling is enabled, resolution order
// otherwise. Every replica observes the same ordering for the same epoch,
// which is what keeps shards disjoint across replicas.
func (d *Dataset) EpochKeys() []string {
	if !d.shuffle {
		return d.Keys()
	}
	perm := permutation(d.epoch, len(d.keys))
	keys := make([]string, len(d.keys))
	for i, p := range perm {
		keys[i] = d.keys[p]
	}
	return keys
}

// Iterate starts a fresh pass over the shard assigned to spec. Objects are
// fetched strictly one at a time, on demand: the next key is not read until
// the previous key's records are exhausted. The returned iterator is
// exclusively owned by the caller; abandoning it early requires only Close.
func (d *Dataset) Iterate(ctx context.Context, spec ShardSpec) Iterator {
	assigned := Plan(d.EpochKeys(), spec)
	log.Debugf("Starting pass: epoch=%d rank=%d/%d worker=%d/%d keys=%d",
		d.epoch, spec.Rank, spec.WorldSize, spec.WorkerID, spec.WorkerCount, len(assigned))
	return &passIterator{
		ctx:       ctx,
		store:     d.store,
		keys:      assigned,
		demuxOpts: d.demuxOpts,
	}
}

// passIterator is one pass over an assigned shard: fetch a key, demultiplex
// it, drain its records, move to the next key.
type passIterator struct {
	ctx       context.Context
	store     objectstore.Store
	keys      []string
	demuxOpts []DemuxOption
	next      int
	current   Iterator
	closed    bool
}

func (it *passIterator) Next() (Record, error) {
	if it.closed {
		return Record{}, io.EOF
	}
	for {
		if it.current != nil {
			record, err := it.current.Next()
			if err == nil {
				return record, nil
			}
			it.current.Close()
			it.current = nil
			if err != io.EOF {
				it.closed = true
				return Record{}, err
			}
		}

		if err := it.ctx.Err(); err != nil {
			it.closed = true
			return Record{}, err
		}
		if it.next >= len(it.keys) {
			it.closed = true
			return Record{}, io.EOF
		}

		key := it.keys[it.next]
		it.next++
		payload, err := it.store.Read(it.ctx, key)
		if err != nil {
			it.closed = true
			return Record{}, err
		}
		it.current = Demux(key, payload, it.demuxOpts...)
	}
}

func (it *passIterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	if it.current != nil {
		err := it.current.Close()
		it.current = nil
		return err
	}
	return nil
}
