package dataset

import (
	"context"
	"errors"
	"io"
	"testing"

	apperrors "github.com/zzenonn/dstream/internal/errors"
)

func singleProcess() ShardSpec {
	return ShardSpec{Rank: 0, WorldSize: 1, WorkerID: 0, WorkerCount: 1}
}

func TestDataset_New_ResolutionErrorIsFatal(t *testing.T) {
	store := newFakeStore()
	_, err := New(context.Background(), store, []string{"s3://bucket/empty-prefix/"})
	if !errors.Is(err, apperrors.ErrEmptyPrefix) {
		t.Fatalf("got err = %v, want empty prefix error at construction", err)
	}
}

func TestDataset_IterateFlattensArchives(t *testing.T) {
	store := newFakeStore()
	store.put("s3://bucket/plain.bin", []byte("raw"))
	store.put("s3://bucket/bundle.tar", buildTar(t, map[string]string{
		"a.txt": "alpha",
		"b.txt": "beta",
	}, []string{"a.txt", "b.txt"}))

	ds, err := New(context.Background(), store, []string{"s3://bucket/"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	records := drain(t, ds.Iterate(context.Background(), singleProcess()))
	want := []string{"s3://bucket/plain.bin", "a.txt", "b.txt"}
	got := names(records)
	if len(got) != len(want) {
		t.Fatalf("got records %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record %d = %s, want %s (per-key order must be preserved)", i, got[i], want[i])
		}
	}
}

func TestDataset_LenCountsKeysNotRecords(t *testing.T) {
	store := newFakeStore()
	store.put("s3://bucket/bundle.tar", buildTar(t, map[string]string{
		"a.txt": "alpha",
		"b.txt": "beta",
		"c.txt": "gamma",
	}, []string{"a.txt", "b.txt", "c.txt"}))

	ds, err := New(context.Background(), store, []string{"s3://bucket/bundle.tar"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if ds.Len() != 1 {
		t.Errorf("Len() = %d, want 1 (un-sharded key count, not record count)", ds.Len())
	}
	records := drain(t, ds.Iterate(context.Background(), singleProcess()))
	if len(records) != 3 {
		t.Errorf("pass produced %d records, want 3", len(records))
	}
}

// Len reports the un-sharded count even when the caller iterates a shard.
func TestDataset_LenIgnoresSharding(t *testing.T) {
	store := newFakeStore()
	for _, key := range makeKeys(10) {
		store.put(key, []byte("x"))
	}

	ds, err := New(context.Background(), store, []string{"s3://bucket/"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	records := drain(t, ds.Iterate(context.Background(),
		ShardSpec{Rank: 1, WorldSize: 2, WorkerID: 0, WorkerCount: 1}))
	if ds.Len() != 10 {
		t.Errorf("Len() = %d, want 10", ds.Len())
	}
	if len(records) != 5 {
		t.Errorf("shard produced %d records, want 5", len(records))
	}
}

func TestDataset_FetchIsLazyAndSequential(t *testing.T) {
	store := newFakeStore()
	keys := makeKeys(3)
	for _, key := range keys {
		store.put(key, []byte("payload"))
	}

	ds, err := New(context.Background(), store, []string{"s3://bucket/"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	it := ds.Iterate(context.Background(), singleProcess())
	defer it.Close()

	if len(store.reads) != 0 {
		t.Fatalf("%d objects fetched before the first pull", len(store.reads))
	}
	if _, err := it.Next(); err != nil {
		t.Fatalf("first Next: %v", err)
	}
	if len(store.reads) != 1 {
		t.Fatalf("%d objects fetched after one pull, want 1", len(store.reads))
	}
	if _, err := it.Next(); err != nil {
		t.Fatalf("second Next: %v", err)
	}
	if len(store.reads) != 2 {
		t.Fatalf("%d objects fetched after two pulls, want 2", len(store.reads))
	}
}

func TestDataset_EpochPermutationMatchesAcrossReplicas(t *testing.T) {
	build := func() *Dataset {
		store := newFakeStore()
		for _, key := range makeKeys(20) {
			store.put(key, []byte("x"))
		}
		ds, err := New(context.Background(), store, []string{"s3://bucket/"}, WithKeyShuffle())
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		return ds
	}

	replicaA := build()
	replicaB := build()
	replicaA.SetEpoch(5)
	replicaB.SetEpoch(5)

	keysA := replicaA.EpochKeys()
	keysB := replicaB.EpochKeys()
	for i := range keysA {
		if keysA[i] != keysB[i] {
			t.Fatalf("replicas disagree at index %d for the same epoch: %s vs %s",
				i, keysA[i], keysB[i])
		}
	}

	replicaB.SetEpoch(6)
	keysC := replicaB.EpochKeys()
	same := true
	for i := range keysA {
		if keysA[i] != keysC[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("epochs 5 and 6 ordered 20 keys identically")
	}
}

// With shuffling enabled, shards of one epoch must still partition the key
// list exactly: every replica permutes identically before striding.
func TestDataset_ShardsPartitionShuffledKeys(t *testing.T) {
	store := newFakeStore()
	keys := makeKeys(13)
	for _, key := range keys {
		store.put(key, []byte("x"))
	}

	seen := make(map[string]int)
	for rank := 0; rank < 3; rank++ {
		ds, err := New(context.Background(), store, []string{"s3://bucket/"}, WithKeyShuffle())
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		ds.SetEpoch(9)
		records := drain(t, ds.Iterate(context.Background(),
			ShardSpec{Rank: rank, WorldSize: 3, WorkerID: 0, WorkerCount: 1}))
		for _, record := range records {
			seen[record.Name]++
		}
	}

	if len(seen) != len(keys) {
		t.Fatalf("union covers %d keys, want %d", len(seen), len(keys))
	}
	for key, count := range seen {
		if count != 1 {
			t.Errorf("key %s read by %d ranks", key, count)
		}
	}
}

func TestDataset_GetByIndex(t *testing.T) {
	store := newFakeStore()
	store.put("s3://bucket/a.bin", []byte("first"))
	store.put("s3://bucket/bundle.tar", []byte("not demuxed on indexed access"))

	ds, err := New(context.Background(), store, []string{"s3://bucket/"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	record, err := ds.Get(context.Background(), 0)
	if err != nil {
		t.Fatalf("Get(0): %v", err)
	}
	if record.Name != "s3://bucket/a.bin" || string(record.Payload) != "first" {
		t.Errorf("Get(0) = (%s, %q), want the first key's raw bytes", record.Name, record.Payload)
	}

	// Indexed access returns the raw object, archive or not.
	record, err = ds.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("Get(1): %v", err)
	}
	if record.Name != "s3://bucket/bundle.tar" || string(record.Payload) != "not demuxed on indexed access" {
		t.Errorf("Get(1) = (%s, %q), want the tar object's raw bytes", record.Name, record.Payload)
	}

	for _, i := range []int{-1, 2} {
		if _, err := ds.Get(context.Background(), i); err == nil {
			t.Errorf("Get(%d) accepted an out-of-range index", i)
		}
	}
}

func TestDataset_IterateIsRestartable(t *testing.T) {
	store := newFakeStore()
	for _, key := range makeKeys(4) {
		store.put(key, []byte("x"))
	}

	ds, err := New(context.Background(), store, []string{"s3://bucket/"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	first := drain(t, ds.Iterate(context.Background(), singleProcess()))
	second := drain(t, ds.Iterate(context.Background(), singleProcess()))
	if len(first) != 4 || len(second) != 4 {
		t.Fatalf("passes produced %d and %d records, want 4 and 4", len(first), len(second))
	}
}

func TestDataset_ReadFailureTerminatesPass(t *testing.T) {
	store := newFakeStore()
	store.put("s3://bucket/file.bin", []byte("x"))

	ds, err := New(context.Background(), store, []string{"s3://bucket/file.bin"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	store.fail("read", apperrors.StoreError("get", "s3://bucket/file.bin", errors.New("timeout")))
	it := ds.Iterate(context.Background(), singleProcess())
	defer it.Close()

	_, err = it.Next()
	if !errors.Is(err, apperrors.ErrStoreUnavailable) {
		t.Fatalf("got err = %v, want store unavailable", err)
	}
	if _, err := it.Next(); err != io.EOF {
		t.Fatalf("Next after failure = %v, want io.EOF", err)
	}
}

func TestDataset_CancelledContextStopsPass(t *testing.T) {
	store := newFakeStore()
	for _, key := range makeKeys(3) {
		store.put(key, []byte("x"))
	}

	ds, err := New(context.Background(), store, []string{"s3://bucket/"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	it := ds.Iterate(ctx, singleProcess())
	defer it.Close()

	if _, err := it.Next(); err != nil {
		t.Fatalf("first Next: %v", err)
	}
	cancel()
	if _, err := it.Next(); !errors.Is(err, context.Canceled) {
		t.Fatalf("got err = %v, want context.Canceled", err)
	}
}

func TestDataset_ShuffledPassThroughReservoir(t *testing.T) {
	store := newFakeStore()
	keys := makeKeys(30)
	for _, key := range keys {
		store.put(key, []byte("x"))
	}

	ds, err := New(context.Background(), store, []string{"s3://bucket/"}, WithKeyShuffle())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ds.SetEpoch(2)

	it := Shuffle(ds.Iterate(context.Background(), singleProcess()), 8)
	records := drain(t, it)
	if len(records) != len(keys) {
		t.Fatalf("got %d records through the reservoir, want %d", len(records), len(keys))
	}
	seen := make(map[string]bool)
	for _, record := range records {
		seen[record.Name] = true
	}
	if len(seen) != len(keys) {
		t.Fatalf("reservoir duplicated or dropped records: %d unique of %d", len(seen), len(keys))
	}
}
