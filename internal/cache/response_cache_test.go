package cache

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"niche-finder/internal/common/errors"
	"niche-finder/internal/common/logger"
)

type countingFetcher struct {
	calls   atomic.Int32
	bodies  map[string]string
	fail    map[string]bool
	release chan struct{}
}

func (f *countingFetcher) FetchJSON(ctx context.Context, url string) ([]byte, error) {
	f.calls.Add(1)
	if f.release != nil {
		<-f.release
	}
	if f.fail[url] {
		return nil, errors.NewNetworkError(url, stderrors.New("connection reset"))
	}
	return []byte(f.bodies[url]), nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

const detailsURL = "https://places.test/details/json?place_id=p1&key=k"

func TestFetchCached_HitSkipsNetwork(t *testing.T) {
	fetcher := &countingFetcher{bodies: map[string]string{detailsURL: `{"result":{"name":"A"}}`}}
	c := New(fetcher, logger.NewTestLogger(t))

	first, err := c.FetchCached(context.Background(), detailsURL)
	require.NoError(t, err)
	second, err := c.FetchCached(context.Background(), detailsURL)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), fetcher.calls.Load())
}

func TestFetchCached_ExpiredEntryRefetches(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	fetcher := &countingFetcher{bodies: map[string]string{detailsURL: `{}`}}
	c := New(fetcher, logger.NewTestLogger(t),
		WithStore(NewMemoryStoreWithClock(clock.Now)),
		WithTTL(time.Hour),
	)

	_, err := c.FetchCached(context.Background(), detailsURL)
	require.NoError(t, err)

	clock.Advance(59 * time.Minute)
	_, err = c.FetchCached(context.Background(), detailsURL)
	require.NoError(t, err)
	assert.Equal(t, int32(1), fetcher.calls.Load())

	clock.Advance(time.Minute)
	_, err = c.FetchCached(context.Background(), detailsURL)
	require.NoError(t, err)
	assert.Equal(t, int32(2), fetcher.calls.Load())
}

func TestFetchCached_ErrorsAreNotCached(t *testing.T) {
	fetcher := &countingFetcher{fail: map[string]bool{detailsURL: true}}
	store := NewMemoryStore()
	c := New(fetcher, logger.NewTestLogger(t), WithStore(store))

	_, err := c.FetchCached(context.Background(), detailsURL)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeNetworkError))

	_, err = c.FetchCached(context.Background(), detailsURL)
	require.Error(t, err)

	assert.Equal(t, int32(2), fetcher.calls.Load())
	assert.Equal(t, 0, store.Len())
}

func TestFetchCached_DistinctURLsAreDistinctEntries(t *testing.T) {
	other := "https://places.test/details/json?place_id=p2&key=k"
	fetcher := &countingFetcher{bodies: map[string]string{detailsURL: `{"n":1}`, other: `{"n":2}`}}
	c := New(fetcher, logger.NewTestLogger(t))

	a, err := c.FetchCached(context.Background(), detailsURL)
	require.NoError(t, err)
	b, err := c.FetchCached(context.Background(), other)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Equal(t, int32(2), fetcher.calls.Load())
}

func TestFetchCached_ConcurrentMissesCoalesce(t *testing.T) {
	fetcher := &countingFetcher{
		bodies:  map[string]string{detailsURL: `{"result":{}}`},
		release: make(chan struct{}),
	}
	c := New(fetcher, logger.NewNoOpLogger())

	var wg sync.WaitGroup
	results := make([][]byte, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body, err := c.FetchCached(context.Background(), detailsURL)
			assert.NoError(t, err)
			results[i] = body
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(fetcher.release)
	wg.Wait()

	assert.Equal(t, int32(1), fetcher.calls.Load())
	for _, body := range results {
		assert.JSONEq(t, `{"result":{}}`, string(body))
	}
}

func TestRedisStore_RoundTripAndExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	fetcher := &countingFetcher{bodies: map[string]string{detailsURL: `{"result":{"name":"A"}}`}}
	c := New(fetcher, logger.NewTestLogger(t), WithStore(NewRedisStore(client)), WithTTL(time.Hour))

	_, err := c.FetchCached(context.Background(), detailsURL)
	require.NoError(t, err)

	key := RedisKey(detailsURL)
	assert.True(t, mr.Exists(key))
	assert.NotContains(t, key, "key=k")
	assert.Equal(t, time.Hour, mr.TTL(key))

	_, err = c.FetchCached(context.Background(), detailsURL)
	require.NoError(t, err)
	assert.Equal(t, int32(1), fetcher.calls.Load())

	mr.FastForward(time.Hour + time.Second)
	_, err = c.FetchCached(context.Background(), detailsURL)
	require.NoError(t, err)
	assert.Equal(t, int32(2), fetcher.calls.Load())
}

func TestRedisStore_FailuresDegradeToFetch(t *testing.T) {
	client, mock := redismock.NewClientMock()
	key := RedisKey(detailsURL)
	body := `{"result":{"name":"A"}}`

	// Outer lookup and the re-check inside the flight both miss.
	mock.ExpectGet(key).SetErr(stderrors.New("redis down"))
	mock.ExpectGet(key).SetErr(stderrors.New("redis down"))
	mock.ExpectSet(key, []byte(body), time.Hour).SetErr(stderrors.New("redis down"))

	fetcher := &countingFetcher{bodies: map[string]string{detailsURL: body}}
	c := New(fetcher, logger.NewTestLogger(t), WithStore(NewRedisStore(client)), WithTTL(time.Hour))

	got, err := c.FetchCached(context.Background(), detailsURL)
	require.NoError(t, err)
	assert.JSONEq(t, body, string(got))
	assert.Equal(t, int32(1), fetcher.calls.Load())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryStore_ReplacesWholeEntry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "u", []byte(`{"v":1}`), time.Minute))
	require.NoError(t, store.Set(ctx, "u", []byte(`{"v":2}`), time.Minute))

	body, ok, err := store.Get(ctx, "u")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"v":2}`, string(body))
	assert.Equal(t, 1, store.Len())
}
