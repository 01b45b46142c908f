package dataset

import (
	"encoding/binary"
	"io"
	"math/rand/v2"

	"github.com/cespare/xxhash/v2"
)

// permutation returns a pseudo-random permutation of [0, n) seeded solely by
// the epoch number. The seed is derived through xxhash so consecutive epochs
// do not produce correlated generator states. Every replica computes the
// identical permutation for a given (epoch, n); the generator is local, so
// nothing else in the process perturbs it.
func permutation(epoch int, n int) []int {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(int64(epoch)))
	seed := xxhash.Sum64(buf[:])
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return rng.Perm(n)
}

// Shuffle wraps a record iterator in a bounded-memory approximate shuffle.
// Up to bufferSize records are buffered; each pull evicts a uniformly random
// occupied slot, refilling it from the source until the source is exhausted,
// after which the buffer drains. A record is emitted at most bufferSize
// positions after its source position, so bufferSize trades shuffle quality
// against memory. bufferSize=1 is a strict pass-through.
//
// The shuffler owns its own random source, independent of the epoch
// permutation. Closing the returned iterator releases the buffer and closes
// the underlying source.
func Shuffle(src Iterator, bufferSize int) Iterator {
	return newReservoir(src, bufferSize, nil)
}

func newReservoir(src Iterator, bufferSize int, rng *rand.Rand) *reservoirIterator {
	if bufferSize < 1 {
		bufferSize = 1
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &reservoirIterator{
		src:        src,
		bufferSize: bufferSize,
		rng:        rng,
	}
}

type reservoirIterator struct {
	src        Iterator
	bufferSize int
	rng        *rand.Rand
	buffer     []Record
	primed     bool
	srcDone    bool
	pending    error
	closed     bool
}

func (it *reservoirIterator) Next() (Record, error) {
	if it.closed {
		return Record{}, io.EOF
	}
	if it.pending != nil {
		err := it.pending
		it.pending = nil
		return Record{}, err
	}
	if !it.primed {
		if err := it.fill(); err != nil {
			return Record{}, err
		}
	}
	if len(it.buffer) == 0 {
		return Record{}, io.EOF
	}

	slot := it.rng.IntN(len(it.buffer))
	record := it.buffer[slot]

	if it.srcDone {
		it.shrink(slot)
		return record, nil
	}

	next, err := it.src.Next()
	switch {
	case err == io.EOF:
		it.srcDone = true
		it.shrink(slot)
	case err != nil:
		// Emit the evicted record now; the failure surfaces on the
		// following pull so no record is lost.
		it.pending = err
		it.shrink(slot)
	default:
		it.buffer[slot] = next
	}
	return record, nil
}

// fill pulls up to bufferSize records. A short source shrinks the effective
// buffer rather than erroring.
func (it *reservoirIterator) fill() error {
	it.primed = true
	it.buffer = make([]Record, 0, it.bufferSize)
	for len(it.buffer) < it.bufferSize {
		record, err := it.src.Next()
		if err == io.EOF {
			it.srcDone = true
			return nil
		}
		if err != nil {
			return err
		}
		it.buffer = append(it.buffer, record)
	}
	return nil
}

// shrink removes the slot by swapping in the last occupant. Slot order
// carries no meaning here; eviction is uniformly random either way.
func (it *reservoirIterator) shrink(slot int) {
	last := len(it.buffer) - 1
	it.buffer[slot] = it.buffer[last]
	it.buffer[last] = Record{}
	it.buffer = it.buffer[:last]
}

func (it *reservoirIterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	it.buffer = nil
	return it.src.Close()
}
