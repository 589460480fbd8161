package pagination

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// source serves pages of the given sizes; item values are page*1000+offset so
// ordering is observable. Pages past the end of sizes repeat the last size.
type source struct {
	mu    sync.Mutex
	sizes []int
	calls []int
	fail  map[int]error
}

func (s *source) fetch(_ context.Context, page int) ([]int, error) {
	s.mu.Lock()
	s.calls = append(s.calls, page)
	s.mu.Unlock()

	if err, ok := s.fail[page]; ok {
		return nil, err
	}
	size := s.sizes[len(s.sizes)-1]
	if page < len(s.sizes) {
		size = s.sizes[page]
	}
	items := make([]int, size)
	for i := range items {
		items[i] = page*1000 + i
	}
	return items, nil
}

func (s *source) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func assertPageOrder(t *testing.T, items []int, sizes ...int) {
	t.Helper()
	idx := 0
	for page, size := range sizes {
		for i := 0; i < size; i++ {
			require.Equal(t, page*1000+i, items[idx])
			idx++
		}
	}
	assert.Len(t, items, idx)
}

func TestFetchAll_ConcatenatesPagesInOrder(t *testing.T) {
	src := &source{sizes: []int{50, 50, 50, 0}}

	items, err := FetchAll(context.Background(), src.fetch)

	require.NoError(t, err)
	assert.Len(t, items, 150)
	assertPageOrder(t, items, 50, 50, 50)
	assert.Equal(t, []int{0, 1, 2, 3}, src.calls)
}

func TestFetchAll_EmptyFirstPage(t *testing.T) {
	src := &source{sizes: []int{0}}

	items, err := FetchAll(context.Background(), src.fetch)

	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
	assert.Equal(t, 1, src.callCount())
}

func TestFetchAll_ShortPagesDoNotTerminate(t *testing.T) {
	// Only an empty page ends the sequence; a short page does not.
	src := &source{sizes: []int{50, 3, 50, 0}}

	items, err := FetchAll(context.Background(), src.fetch)

	require.NoError(t, err)
	assertPageOrder(t, items, 50, 3, 50)
}

func TestFetchAll_FailFastWithoutPartialResults(t *testing.T) {
	boom := errors.New("network down")
	src := &source{sizes: []int{50, 50, 50, 0}, fail: map[int]error{2: boom}}

	items, err := FetchAll(context.Background(), src.fetch)

	require.ErrorIs(t, err, boom)
	assert.Nil(t, items)
	assert.Equal(t, []int{0, 1, 2}, src.calls)
}

func TestFetchAll_NeverEmptySourceHitsPageLimit(t *testing.T) {
	// Without a limit a source returning [50, 50, ...] forever never
	// terminates. The limit makes that observable.
	src := &source{sizes: []int{50, 50}}

	items, err := FetchAll(context.Background(), src.fetch, WithMaxPages(20))

	require.ErrorIs(t, err, ErrPageLimit)
	assert.Nil(t, items)
	assert.Equal(t, 21, src.callCount())
}

func TestFetchAll_PageLimitAllowsExactFit(t *testing.T) {
	src := &source{sizes: []int{50, 50, 0}}

	items, err := FetchAll(context.Background(), src.fetch, WithMaxPages(2))

	require.NoError(t, err)
	assert.Len(t, items, 100)
}

func TestFetchAll_FetchAheadPreservesOrder(t *testing.T) {
	for _, window := range []int{2, 3, 4, 10} {
		src := &source{sizes: []int{50, 50, 50, 20, 50, 0, 50}}

		items, err := FetchAll(context.Background(), src.fetch, WithFetchAhead(window))

		require.NoError(t, err, "window %d", window)
		assertPageOrder(t, items, 50, 50, 50, 20, 50)
	}
}

func TestFetchAll_FetchAheadIgnoresFailuresPastTheEnd(t *testing.T) {
	src := &source{sizes: []int{50, 0, 50}, fail: map[int]error{2: errors.New("out of range")}}

	items, err := FetchAll(context.Background(), src.fetch, WithFetchAhead(4))

	require.NoError(t, err)
	assert.Len(t, items, 50)
}

func TestFetchAll_FetchAheadFailFast(t *testing.T) {
	boom := errors.New("timeout")
	src := &source{sizes: []int{50, 50, 50, 0}, fail: map[int]error{1: boom}}

	items, err := FetchAll(context.Background(), src.fetch, WithFetchAhead(2))

	require.ErrorIs(t, err, boom)
	assert.Nil(t, items)
}

func TestFetchAll_FetchAheadPageLimit(t *testing.T) {
	src := &source{sizes: []int{50}}

	_, err := FetchAll(context.Background(), src.fetch, WithFetchAhead(3), WithMaxPages(5))

	require.ErrorIs(t, err, ErrPageLimit)
	assert.LessOrEqual(t, src.callCount(), 6)
}

func TestPages_LazyAndRestartable(t *testing.T) {
	src := &source{sizes: []int{50, 50, 50, 0}}
	seq := Pages(context.Background(), src.fetch)

	for items, err := range seq {
		require.NoError(t, err)
		assert.Len(t, items, 50)
		break
	}
	assert.Equal(t, []int{0}, src.calls, "stopping early fetches nothing more")

	pages := 0
	for _, err := range seq {
		require.NoError(t, err)
		pages++
	}
	assert.Equal(t, 3, pages)
	assert.Equal(t, []int{0, 0, 1, 2, 3}, src.calls, "second range restarts at page 0")
}

func TestPages_YieldsErrorOnce(t *testing.T) {
	boom := errors.New("boom")
	src := &source{sizes: []int{50}, fail: map[int]error{1: boom}}

	var errs int
	for _, err := range Pages(context.Background(), src.fetch) {
		if err != nil {
			assert.ErrorIs(t, err, boom)
			errs++
		}
	}
	assert.Equal(t, 1, errs)
}

func TestPages_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := &source{sizes: []int{50}}

	for _, err := range Pages(ctx, src.fetch) {
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Zero(t, src.callCount())
}

func TestTake_FetchesOnlyNeededPages(t *testing.T) {
	src := &source{sizes: []int{50, 50, 50, 0}}

	items, err := Take(context.Background(), src.fetch, 60)

	require.NoError(t, err)
	assert.Len(t, items, 60)
	assert.Equal(t, []int{0, 1}, src.calls)
	assert.Equal(t, 1000, items[50])
}

func TestTake_ShorterSource(t *testing.T) {
	src := &source{sizes: []int{5, 0}}

	items, err := Take(context.Background(), src.fetch, 60)

	require.NoError(t, err)
	assert.Len(t, items, 5)
}

func TestCount(t *testing.T) {
	var calls atomic.Int32
	fetch := func(_ context.Context, page int) ([]string, error) {
		calls.Add(1)
		if page < 2 {
			return []string{"a", "b", "c"}, nil
		}
		return nil, nil
	}

	n, err := Count(context.Background(), PageFunc[string](fetch))

	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, int32(3), calls.Load())
}
