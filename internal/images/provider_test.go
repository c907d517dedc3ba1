package images

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Borislavv/go-ash-feed/config"
	"github.com/Borislavv/go-ash-feed/internal/cache"
	"github.com/Borislavv/go-ash-feed/internal/dispatch"
	"github.com/Borislavv/go-ash-feed/internal/images/mock"
	"github.com/Borislavv/go-ash-feed/internal/metrics"
	"github.com/Borislavv/go-ash-feed/internal/shared/hash"
	"github.com/Borislavv/go-ash-feed/model"
	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testKey = "https://cdn.example.com/photos/1.png"

type testEnv struct {
	provider *Provider
	cache    *cache.Cache[string, *Image]
	fetcher  *mock.MockFetcher
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T, delivery dispatch.Executor, mutate func(cfg *config.Images)) testEnv {
	t.Helper()

	cfg := config.Default()
	if mutate != nil {
		mutate(&cfg.Images)
	}
	cfg.AdjustConfig()

	ctrl := gomock.NewController(t)
	env := testEnv{
		cache:   cache.New[string, *Image](&cfg.Cache, clock.NewMock(), hash.String, (*Image).Weight),
		fetcher: mock.NewMockFetcher(ctrl),
		metrics: metrics.New(prometheus.NewRegistry()),
		logger:  discardLogger(),
	}
	if delivery == nil {
		delivery = dispatch.Immediate{}
	}
	env.provider = NewProvider(context.Background(), &cfg.Images, env.cache, env.fetcher, delivery, env.logger, env.metrics)
	t.Cleanup(func() { _ = env.provider.Close() })
	return env
}

func blockingFetch(release <-chan struct{}, data []byte) func(ctx context.Context, _ string) ([]byte, error) {
	return func(ctx context.Context, _ string) ([]byte, error) {
		select {
		case <-release:
			return data, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// TestProvider_Load_CachesAndShortCircuits fetches once and serves the second call from cache.
func TestProvider_Load_CachesAndShortCircuits(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.fetcher.EXPECT().Fetch(gomock.Any(), testKey).Return(pngBytes(t, 16, 16), nil).Times(1)

	first, err := env.provider.Load(context.Background(), testKey, nil)
	require.NoError(t, err)
	require.Equal(t, 16, first.Width)

	second, err := env.provider.Load(context.Background(), testKey, nil)
	require.NoError(t, err)
	require.Same(t, first, second)

	require.Equal(t, 1.0, testutil.ToFloat64(env.metrics.ImageRequests.WithLabelValues("hit")))
	require.Equal(t, 1.0, testutil.ToFloat64(env.metrics.ImageFetches))
}

// TestProvider_Fetch_HitNeverCallsRemote delivers a cached value without any remote call.
func TestProvider_Fetch_HitNeverCallsRemote(t *testing.T) {
	q := dispatch.NewQueue(context.Background(), discardLogger())
	defer q.Close()
	env := newTestEnv(t, q, nil)

	cached := &Image{Key: testKey, Width: 1, Height: 1}
	env.cache.Insert(testKey, cached)

	got := make(chan *Image, 1)
	env.provider.Fetch(context.Background(), testKey, nil, func(img *Image) { got <- img })

	select {
	case img := <-got:
		require.Same(t, cached, img)
	case <-time.After(time.Second):
		t.Fatal("completion was not delivered")
	}
}

// TestProvider_Fetch_MissCountedOnce records a single cache miss for a single remote fetch.
func TestProvider_Fetch_MissCountedOnce(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.fetcher.EXPECT().Fetch(gomock.Any(), testKey).Return(pngBytes(t, 8, 8), nil).Times(1)

	done := make(chan *Image, 1)
	env.provider.Fetch(context.Background(), testKey, nil, func(img *Image) { done <- img })

	select {
	case img := <-done:
		require.NotNil(t, img)
	case <-time.After(time.Second):
		t.Fatal("completion was not delivered")
	}

	hits, misses, expired, _, _ := env.cache.CacheMetrics()
	require.Zero(t, hits)
	require.Equal(t, int64(1), misses)
	require.Zero(t, expired)
	require.Equal(t, 1.0, testutil.ToFloat64(env.metrics.ImageRequests.WithLabelValues("miss")))

	_, err := env.provider.Load(context.Background(), testKey, nil)
	require.NoError(t, err)
	hits, misses, _, _, _ = env.cache.CacheMetrics()
	require.Equal(t, int64(1), hits)
	require.Equal(t, int64(1), misses)
}

// TestProvider_Load_TransportFailureIsNotCached retries the remote on the next call.
func TestProvider_Load_TransportFailureIsNotCached(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	boom := errors.New("connection reset")
	gomock.InOrder(
		env.fetcher.EXPECT().Fetch(gomock.Any(), testKey).Return(nil, boom),
		env.fetcher.EXPECT().Fetch(gomock.Any(), testKey).Return(pngBytes(t, 8, 8), nil),
	)

	_, err := env.provider.Load(context.Background(), testKey, nil)
	require.ErrorIs(t, err, ErrTransport)
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, ErrDecode)
	require.Zero(t, env.cache.Len())

	img, err := env.provider.Load(context.Background(), testKey, nil)
	require.NoError(t, err)
	require.NotNil(t, img)
	require.Equal(t, int64(1), env.cache.Len())
	require.Equal(t, 1.0, testutil.ToFloat64(env.metrics.ImageFailures.WithLabelValues("transport")))
}

// TestProvider_Load_DecodeFailure reports undecodable bytes and caches nothing.
func TestProvider_Load_DecodeFailure(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.fetcher.EXPECT().Fetch(gomock.Any(), testKey).Return([]byte("<html>404</html>"), nil)

	_, err := env.provider.Load(context.Background(), testKey, nil)

	var ierr *Error
	require.ErrorAs(t, err, &ierr)
	require.Equal(t, KindDecode, ierr.Kind)
	require.Equal(t, testKey, ierr.Key)
	require.Zero(t, env.cache.Len())
}

// TestProvider_Load_InvalidKeyFailsBeforeIO never reaches the fetcher.
func TestProvider_Load_InvalidKeyFailsBeforeIO(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	for _, key := range []string{"", "not a url", "http://", "://missing-scheme"} {
		_, err := env.provider.Load(context.Background(), key, nil)
		require.ErrorIs(t, err, ErrInvalidKey, key)
	}
}

// TestProvider_Fetch_FailureDeliversNil collapses every failure to a nil completion.
func TestProvider_Fetch_FailureDeliversNil(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.fetcher.EXPECT().Fetch(gomock.Any(), testKey).Return(nil, errors.New("timeout"))

	done := make(chan struct{})
	got := &Image{}
	env.provider.Fetch(context.Background(), testKey, nil, func(img *Image) {
		got = img
		close(done)
	})

	select {
	case <-done:
		require.Nil(t, got)
	case <-time.After(time.Second):
		t.Fatal("completion was not delivered")
	}
}

// TestProvider_Load_CoalescesConcurrentMisses shares one remote fetch between all waiters.
func TestProvider_Load_CoalescesConcurrentMisses(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	release := make(chan struct{})
	env.fetcher.EXPECT().Fetch(gomock.Any(), testKey).DoAndReturn(blockingFetch(release, pngBytes(t, 8, 8))).Times(1)

	const waiters = 16
	var (
		wg      sync.WaitGroup
		results [waiters]*Image
	)
	for i := 0; i < waiters; i++ {
		wg.Go(func() {
			img, err := env.provider.Load(context.Background(), testKey, nil)
			require.NoError(t, err)
			results[i] = img
		})
	}

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(env.metrics.ImageRequests.WithLabelValues("miss")) == waiters
	}, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	for i := 1; i < waiters; i++ {
		require.Same(t, results[0], results[i])
	}
	require.Equal(t, 1.0, testutil.ToFloat64(env.metrics.ImageFetches))
	require.LessOrEqual(t, testutil.ToFloat64(env.metrics.ImageJoined), float64(waiters-1))
}

// TestProvider_Fetch_EachCallGetsItsOwnCompletion fans one result out to every caller.
func TestProvider_Fetch_EachCallGetsItsOwnCompletion(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	release := make(chan struct{})
	env.fetcher.EXPECT().Fetch(gomock.Any(), testKey).DoAndReturn(blockingFetch(release, pngBytes(t, 8, 8))).Times(1)

	var (
		wg    sync.WaitGroup
		calls atomic.Int32
	)
	wg.Add(3)
	for i := 0; i < 3; i++ {
		env.provider.Fetch(context.Background(), testKey, nil, func(img *Image) {
			require.NotNil(t, img)
			calls.Add(1)
			wg.Done()
		})
	}
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(env.metrics.ImageRequests.WithLabelValues("miss")) == 3
	}, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(3), calls.Load())
}

// TestProvider_Fetch_CancelledCallerIsDropped skips the callback but still fills the cache.
func TestProvider_Fetch_CancelledCallerIsDropped(t *testing.T) {
	q := dispatch.NewQueue(context.Background(), discardLogger())
	env := newTestEnv(t, q, nil)
	release := make(chan struct{})
	env.fetcher.EXPECT().Fetch(gomock.Any(), testKey).DoAndReturn(blockingFetch(release, pngBytes(t, 8, 8)))

	ctx, cancel := context.WithCancel(context.Background())
	var called atomic.Bool
	env.provider.Fetch(ctx, testKey, nil, func(*Image) { called.Store(true) })

	cancel()
	close(release)
	require.Eventually(t, func() bool { return env.cache.Len() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, env.provider.Close())
	require.NoError(t, q.Close())
	require.False(t, called.Load())
}

// TestProvider_Load_TargetSizeSharesSlotByDefault serves the first fetched size to later sizes.
func TestProvider_Load_TargetSizeSharesSlotByDefault(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.fetcher.EXPECT().Fetch(gomock.Any(), testKey).Return(pngBytes(t, 200, 100), nil).Times(1)

	small, err := env.provider.Load(context.Background(), testKey, &model.Size{Width: 20, Height: 20})
	require.NoError(t, err)
	require.Equal(t, 20, small.Width)

	again, err := env.provider.Load(context.Background(), testKey, &model.Size{Width: 100, Height: 100})
	require.NoError(t, err)
	require.Same(t, small, again)
}

// TestProvider_Load_KeyIncludesSize keeps one slot per target size.
func TestProvider_Load_KeyIncludesSize(t *testing.T) {
	env := newTestEnv(t, nil, func(cfg *config.Images) { cfg.KeyIncludesSize = true })
	env.fetcher.EXPECT().Fetch(gomock.Any(), testKey).Return(pngBytes(t, 200, 100), nil).Times(2)

	small, err := env.provider.Load(context.Background(), testKey, &model.Size{Width: 20, Height: 20})
	require.NoError(t, err)
	big, err := env.provider.Load(context.Background(), testKey, &model.Size{Width: 100, Height: 100})
	require.NoError(t, err)

	require.Equal(t, 20, small.Width)
	require.Equal(t, 100, big.Width)
	require.Equal(t, int64(2), env.cache.Len())
}

// TestProvider_Load_CallerTimeoutLeavesFlightRunning returns ctx error while the fetch completes for others.
func TestProvider_Load_CallerTimeoutLeavesFlightRunning(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	release := make(chan struct{})
	env.fetcher.EXPECT().Fetch(gomock.Any(), testKey).DoAndReturn(blockingFetch(release, pngBytes(t, 8, 8))).Times(1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := env.provider.Load(ctx, testKey, nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	require.Eventually(t, func() bool { return env.cache.Len() == 1 }, time.Second, time.Millisecond)
}

// TestProvider_Load_AfterClose refuses new work.
func TestProvider_Load_AfterClose(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	require.NoError(t, env.provider.Close())

	_, err := env.provider.Load(context.Background(), testKey, nil)
	require.ErrorIs(t, err, ErrClosed)
}
