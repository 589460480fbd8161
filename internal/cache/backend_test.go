package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anmoldairy/dairy/internal/config"
	"github.com/anmoldairy/dairy/internal/domain/models"
	"github.com/anmoldairy/dairy/internal/repository/memory"
)

type mapStore struct {
	mu     sync.Mutex
	values map[string][]byte
	ttls   map[string]time.Duration
	failOn error
}

func newMapStore() *mapStore {
	return &mapStore{values: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (s *mapStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn != nil {
		return nil, false, s.failOn
	}
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *mapStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn != nil {
		return s.failOn
	}
	s.values[key] = value
	s.ttls[key] = ttl
	return nil
}

func (s *mapStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.values, k)
	}
	return nil
}

// countingBackend counts reads that reach the wrapped backend.
type countingBackend struct {
	*memory.Memory
	rateReads   int
	farmerReads int
}

func (c *countingBackend) GetRates(ctx context.Context) (models.Rates, error) {
	c.rateReads++
	return c.Memory.GetRates(ctx)
}

func (c *countingBackend) GetAllFarmers(ctx context.Context) ([]models.Farmer, error) {
	c.farmerReads++
	return c.Memory.GetAllFarmers(ctx)
}

func TestBackend_CachesRatesUntilUpdated(t *testing.T) {
	ctx := context.Background()
	inner := &countingBackend{Memory: memory.New(10)}
	require.NoError(t, inner.UpdateRates(ctx, 50, 43))
	store := newMapStore()
	b := NewBackend(inner, store, 0, nil)

	for range 3 {
		rates, err := b.GetRates(ctx)
		require.NoError(t, err)
		assert.Equal(t, models.Rates{VLC: 50, Thekadari: 43}, rates)
	}
	assert.Equal(t, 1, inner.rateReads)
	assert.Equal(t, 10*time.Minute, store.ttls[ratesKey])

	require.NoError(t, b.UpdateRates(ctx, 55, 45))
	rates, err := b.GetRates(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Rates{VLC: 55, Thekadari: 45}, rates)
	assert.Equal(t, 2, inner.rateReads)
}

func TestBackend_FarmerListInvalidatedOnWrites(t *testing.T) {
	ctx := context.Background()
	inner := &countingBackend{Memory: memory.New(10)}
	store := newMapStore()
	b := NewBackend(inner, store, 0, nil)

	farmers, err := b.GetAllFarmers(ctx)
	require.NoError(t, err)
	assert.Empty(t, farmers)
	assert.Equal(t, 3*time.Minute, store.ttls[farmersKey])

	id, err := b.AddFarmer(ctx, "Ramesh", "", models.MilkTypeVLC)
	require.NoError(t, err)
	farmers, err = b.GetAllFarmers(ctx)
	require.NoError(t, err)
	require.Len(t, farmers, 1)

	require.NoError(t, b.UpdateFarmerDetails(ctx, id, "Ramesh K", "", models.MilkTypeVLC, id))
	farmers, err = b.GetAllFarmers(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ramesh K", farmers[0].Name)
	assert.Equal(t, 3, inner.farmerReads)

	_, err = b.GetAllFarmers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, inner.farmerReads)
}

func TestBackend_FallsThroughOnCacheFailure(t *testing.T) {
	ctx := context.Background()
	inner := &countingBackend{Memory: memory.New(10)}
	require.NoError(t, inner.UpdateRates(ctx, 50, 43))
	store := newMapStore()
	store.failOn = errors.New("connection refused")
	b := NewBackend(inner, store, time.Minute, nil)

	for range 2 {
		rates, err := b.GetRates(ctx)
		require.NoError(t, err)
		assert.Equal(t, 50.0, rates.VLC)
	}
	assert.Equal(t, 2, inner.rateReads)
}

func TestNewStore_NoopWithoutURL(t *testing.T) {
	store, err := NewStore(configWithoutRedis())
	require.NoError(t, err)

	require.NoError(t, store.Set(context.Background(), "k", []byte("v"), time.Minute))
	_, ok, err := store.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func configWithoutRedis() config.CacheConfig {
	return config.CacheConfig{}
}
