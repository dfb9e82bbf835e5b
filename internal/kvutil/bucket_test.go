package kvutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"

	sptest "github.com/arloliu/scenepart/testing"
)

func TestEnsureKVBucketWithRetry_Concurrent(t *testing.T) {
	_, nc := sptest.StartEmbeddedNATS(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	js, err := jetstream.New(nc)
	require.NoError(t, err)

	const ranks = 8
	kvs := make([]jetstream.KeyValue, ranks)
	errs := make([]error, ranks)

	var wg sync.WaitGroup
	for i := range ranks {
		wg.Go(func() {
			kvs[i], errs[i] = EnsureKVBucketWithRetry(ctx, js, jetstream.KeyValueConfig{
				Bucket:  "test-ranks",
				History: 1,
				TTL:     5 * time.Second,
			}, 3)
		})
	}
	wg.Wait()

	for i := range ranks {
		require.NoError(t, errs[i], "rank %d", i)
		require.NotNil(t, kvs[i])
	}

	_, err = kvs[0].Put(ctx, "k", []byte("v"))
	require.NoError(t, err)
	entry, err := kvs[ranks-1].Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("v"), entry.Value())
}

func TestEnsureKVBucketWithRetry_CanceledContext(t *testing.T) {
	_, nc := sptest.StartEmbeddedNATS(t)
	js, err := jetstream.New(nc)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = EnsureKVBucketWithRetry(ctx, js, jetstream.KeyValueConfig{Bucket: "never"}, 2)
	require.Error(t, err)
}

func TestBucketName(t *testing.T) {
	require.Equal(t, "scenepart-ranks-abc-123", BucketName("scenepart-ranks", "abc-123"))
	require.Equal(t, "scenepart-ranks-a_b_c", BucketName("scenepart-ranks", "a.b c"))
}
