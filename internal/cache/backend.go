package cache

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/anmoldairy/dairy/internal/domain/models"
	"github.com/anmoldairy/dairy/internal/repository"
)

const (
	ratesKey   = "dairy:rates"
	farmersKey = "dairy:farmers"

	defaultRatesTTL   = 10 * time.Minute
	defaultFarmersTTL = 3 * time.Minute
)

// Backend caches GetRates and GetAllFarmers of the wrapped backend and drops
// the cached value whenever the same backend changes it. Cache failures are
// logged and the call falls through to the wrapped backend.
type Backend struct {
	repository.Backend

	store      Store
	ratesTTL   time.Duration
	farmersTTL time.Duration
	logger     *zap.Logger
}

// NewBackend wraps inner. A positive ttl replaces both default lifetimes.
func NewBackend(inner repository.Backend, store Store, ttl time.Duration, logger *zap.Logger) *Backend {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Backend{
		Backend:    inner,
		store:      store,
		ratesTTL:   defaultRatesTTL,
		farmersTTL: defaultFarmersTTL,
		logger:     logger,
	}
	if ttl > 0 {
		b.ratesTTL, b.farmersTTL = ttl, ttl
	}
	return b
}

func cached[T any](ctx context.Context, b *Backend, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	if payload, ok, err := b.store.Get(ctx, key); err != nil {
		b.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		var value T
		if err := json.Unmarshal(payload, &value); err == nil {
			return value, nil
		}
		b.logger.Warn("cache entry undecodable", zap.String("key", key))
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}
	payload, err := json.Marshal(value)
	if err == nil {
		err = b.store.Set(ctx, key, payload, ttl)
	}
	if err != nil {
		b.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return value, nil
}

func (b *Backend) invalidate(ctx context.Context, key string) {
	if err := b.store.Delete(ctx, key); err != nil {
		b.logger.Warn("cache invalidation failed", zap.String("key", key), zap.Error(err))
	}
}

// GetRates serves the rates from cache when present.
func (b *Backend) GetRates(ctx context.Context) (models.Rates, error) {
	return cached(ctx, b, ratesKey, b.ratesTTL, b.Backend.GetRates)
}

// UpdateRates updates the wrapped backend and drops the cached rates.
func (b *Backend) UpdateRates(ctx context.Context, vlcRate, thekadariRate float64) error {
	if err := b.Backend.UpdateRates(ctx, vlcRate, thekadariRate); err != nil {
		return err
	}
	b.invalidate(ctx, ratesKey)
	return nil
}

// GetAllFarmers serves the farmer list from cache when present.
func (b *Backend) GetAllFarmers(ctx context.Context) ([]models.Farmer, error) {
	return cached(ctx, b, farmersKey, b.farmersTTL, b.Backend.GetAllFarmers)
}

// AddFarmer adds through the wrapped backend and drops the cached farmer list.
func (b *Backend) AddFarmer(ctx context.Context, name, phone string, milkType models.MilkType) (int64, error) {
	id, err := b.Backend.AddFarmer(ctx, name, phone, milkType)
	if err != nil {
		return 0, err
	}
	b.invalidate(ctx, farmersKey)
	return id, nil
}

// UpdateFarmerDetails updates through the wrapped backend and drops the cached farmer list.
func (b *Backend) UpdateFarmerDetails(ctx context.Context, id int64, name, phone string, milkType models.MilkType, newID int64) error {
	if err := b.Backend.UpdateFarmerDetails(ctx, id, name, phone, milkType, newID); err != nil {
		return err
	}
	b.invalidate(ctx, farmersKey)
	return nil
}

var _ repository.Backend = (*Backend)(nil)
