package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/xtctx/internal/core/ports/driven"
)

func TestLazyEmbeddingService_ConcurrentCallersShareOneInit(t *testing.T) {
	var inits atomic.Int32
	release := make(chan struct{})

	lazy := NewLazyEmbeddingService(func(context.Context) (driven.EmbeddingService, error) {
		inits.Add(1)
		<-release
		return newMockEmbedding(), nil
	}, 3, "mock")

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := lazy.Embed(context.Background(), "hello")
			errs <- err
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), inits.Load())

	_, err := lazy.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), inits.Load(), "later calls reuse the service")
}

func TestLazyEmbeddingService_FailedInitIsRetried(t *testing.T) {
	var inits atomic.Int32

	lazy := NewLazyEmbeddingService(func(context.Context) (driven.EmbeddingService, error) {
		if inits.Add(1) == 1 {
			return nil, errors.New("model server starting")
		}
		return newMockEmbedding(), nil
	}, 3, "mock")

	_, err := lazy.Embed(context.Background(), "hello")
	require.Error(t, err)

	_, err = lazy.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, int32(2), inits.Load())
}

func TestLazyEmbeddingService_WaiterCanGiveUp(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	lazy := NewLazyEmbeddingService(func(context.Context) (driven.EmbeddingService, error) {
		<-release
		return newMockEmbedding(), nil
	}, 3, "mock")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := lazy.Embed(ctx, "hello")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLazyEmbeddingService_Metadata(t *testing.T) {
	lazy := NewLazyEmbeddingService(func(context.Context) (driven.EmbeddingService, error) {
		t.Fatal("metadata must not initialise the service")
		return nil, nil
	}, 384, "hash-384")

	assert.Equal(t, 384, lazy.Dimensions())
	assert.Equal(t, "hash-384", lazy.ModelName())
	assert.NoError(t, lazy.Close())
}
