package dataset

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"gocloud.dev/blob/memblob"

	"github.com/zzenonn/dstream/internal/repository/objectstore"
)

// Wires the dataset through the real Router against a memblob bucket, the
// same path the CLI takes, instead of the package-local fake.
func TestDataset_EndToEndMemBucket(t *testing.T) {
	ctx := context.Background()

	bucket := memblob.OpenBucket(nil)
	t.Cleanup(func() { bucket.Close() })

	for i := 0; i < 4; i++ {
		key := fmt.Sprintf("shards/%05d.tar", i)
		payload := buildTar(t, map[string]string{
			"sample.jpg": fmt.Sprintf("pixels-%d", i),
			"sample.cls": fmt.Sprintf("%d", i),
		}, []string{"sample.jpg", "sample.cls"})
		if err := bucket.WriteAll(ctx, key, payload, nil); err != nil {
			t.Fatalf("write %s: %v", key, err)
		}
	}
	if err := bucket.WriteAll(ctx, "extra/readme.bin", []byte("plain"), nil); err != nil {
		t.Fatalf("write extra object: %v", err)
	}

	router := objectstore.NewRouter(objectstore.NewObjectRepositoryFactory(aws.Config{}, nil))
	repo := objectstore.NewBlobObjectRepository(bucket, "train", string(objectstore.MemType))
	router.Register("mem://train", &repo)

	ds, err := New(ctx, router, []string{"mem://train/shards/", "mem://train/extra/readme.bin"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if ds.Len() != 5 {
		t.Fatalf("Len() = %d, want 5 keys", ds.Len())
	}

	records := drain(t, ds.Iterate(ctx, singleProcess()))
	// 4 archives x 2 entries each, plus the plain object.
	if len(records) != 9 {
		t.Fatalf("got %d records, want 9: %v", len(records), names(records))
	}
	if records[len(records)-1].Name != "mem://train/extra/readme.bin" {
		t.Errorf("last record = %s, want the plain object (key order preserved)",
			records[len(records)-1].Name)
	}
}
