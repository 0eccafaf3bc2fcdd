package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/firms-fire-service/internal/domain"
)

const testKey = "0123456789abcdef0123456789abcdef"

func testRequest() domain.QueryRequest {
	return domain.QueryRequest{
		APIKey:      testKey,
		BoundingBox: domain.BoundingBox{MinLat: -10, MinLon: -70, MaxLat: 5, MaxLon: -50},
		DateRange:   domain.NewDateRange(time.Date(2023, 8, 1, 0, 0, 0, 0, time.UTC), time.Date(2023, 8, 3, 0, 0, 0, 0, time.UTC)),
		Source:      domain.SourceMODIS,
	}
}

func TestStore_CreateGetDelete(t *testing.T) {
	st := NewStore(time.Hour, clockwork.NewFakeClock())

	s := st.Create(testKey)
	require.NotEmpty(t, s.ID)
	assert.Equal(t, testKey, s.APIKey())

	got, err := st.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = st.Get("nope")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, st.Delete(s.ID))
	_, err = st.Get(s.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, st.Delete(s.ID), ErrNotFound)
}

func TestSession_LastRequestWins(t *testing.T) {
	st := NewStore(time.Hour, clockwork.NewFakeClock())
	s := st.Create(testKey)

	ctx1, gen1 := s.Begin(context.Background())
	ctx2, gen2 := s.Begin(context.Background())

	require.Error(t, ctx1.Err(), "older fetch cancelled")
	assert.ErrorIs(t, context.Cause(ctx1), domain.ErrSuperseded)
	require.NoError(t, ctx2.Err())

	newer := &domain.FetchResult{RawCount: 2}
	require.NoError(t, s.Commit(gen2, testRequest(), newer))

	older := &domain.FetchResult{RawCount: 1}
	require.ErrorIs(t, s.Commit(gen1, testRequest(), older), domain.ErrSuperseded)

	last, ok := s.Last()
	require.True(t, ok)
	assert.Equal(t, 2, last.RawCount, "superseded result did not overwrite")
}

func TestSession_CommitOutOfOrder(t *testing.T) {
	s := NewStore(time.Hour, nil).Create(testKey)

	_, gen1 := s.Begin(context.Background())
	_, gen2 := s.Begin(context.Background())

	// The older fetch finishing first must still lose.
	require.ErrorIs(t, s.Commit(gen1, testRequest(), &domain.FetchResult{RawCount: 1}), domain.ErrSuperseded)
	_, ok := s.Last()
	assert.False(t, ok)

	require.NoError(t, s.Commit(gen2, testRequest(), &domain.FetchResult{RawCount: 2}))
	last, _ := s.Last()
	assert.Equal(t, 2, last.RawCount)
}

func TestSession_ConcurrentBegins(t *testing.T) {
	s := NewStore(time.Hour, nil).Create(testKey)

	var wg sync.WaitGroup
	var mu sync.Mutex
	committed := 0
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, gen := s.Begin(context.Background())
			if err := s.Commit(gen, testRequest(), &domain.FetchResult{RawCount: i}); err == nil {
				mu.Lock()
				committed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.GreaterOrEqual(t, committed, 1)
	_, ok := s.Last()
	assert.True(t, ok)
}

func TestSession_CommitStripsAPIKey(t *testing.T) {
	s := NewStore(time.Hour, nil).Create(testKey)
	_, gen := s.Begin(context.Background())

	res := &domain.FetchResult{Query: testRequest()}
	require.NoError(t, s.Commit(gen, testRequest(), res))

	last, _ := s.Last()
	assert.Empty(t, last.Query.APIKey)
	q, ok := s.LastQuery()
	require.True(t, ok)
	assert.Empty(t, q.APIKey)
	assert.Equal(t, testKey, res.Query.APIKey, "caller's copy untouched")
}

func TestSession_Abandon(t *testing.T) {
	s := NewStore(time.Hour, nil).Create(testKey)

	ctx, gen := s.Begin(context.Background())
	s.Abandon(gen)
	require.Error(t, ctx.Err())
	assert.ErrorIs(t, context.Cause(ctx), context.Canceled)

	_, ok := s.LastQuery()
	assert.False(t, ok)
}

func TestStore_Expiry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	st := NewStore(30*time.Minute, clock)

	idle := st.Create(testKey)
	active := st.Create(testKey)
	ctx, _ := idle.Begin(context.Background())

	clock.Advance(20 * time.Minute)
	_, _ = active.Last()
	clock.Advance(10 * time.Minute)

	_, err := st.Get(idle.ID)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = st.Get(active.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, st.Sweep())
	assert.Equal(t, 1, st.Len())
	assert.True(t, errors.Is(ctx.Err(), context.Canceled), "in-flight fetch of an expired session is cancelled")
}

func TestStore_Run(t *testing.T) {
	clock := clockwork.NewFakeClock()
	st := NewStore(time.Minute, clock)
	st.Create(testKey)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	swept := make(chan int, 1)
	go st.Run(ctx, time.Minute, func(live int) { swept <- live })

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Minute)

	select {
	case live := <-swept:
		assert.Equal(t, 0, live)
	case <-time.After(2 * time.Second):
		t.Fatal("sweep did not run")
	}
}
