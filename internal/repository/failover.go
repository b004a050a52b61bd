package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"flowershop/internal/domain"
	"flowershop/internal/models"

	"github.com/rs/zerolog"
)

// Store is the full surface shared by the Redis and in-memory backends.
type Store interface {
	domain.Cache
	domain.SessionStore
}

const recoveryInterval = time.Minute

// FailoverStore serves from primary until it errors, then from fallback,
// retrying primary once per recoveryInterval.
type FailoverStore struct {
	primary  Store
	fallback Store
	logger   *zerolog.Logger

	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
}

func NewFailoverStore(primary, fallback Store, logger *zerolog.Logger) *FailoverStore {
	return &FailoverStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// usePrimary reports whether the call should go to primary.
func (r *FailoverStore) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if time.Since(r.lastCheck) > recoveryInterval {
		r.lastCheck = time.Now()
		return true
	}
	return false
}

// observe records the outcome of a primary call and reports whether it succeeded.
func (r *FailoverStore) observe(err error) bool {
	if err == nil {
		if r.isDown.Swap(false) {
			r.logger.Info().Msg("Primary store recovered")
		}
		return true
	}
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Msg("Primary store failed, falling back to memory")
	}
	r.mu.Lock()
	r.lastCheck = time.Now()
	r.mu.Unlock()
	return false
}

func (r *FailoverStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if r.usePrimary() {
		val, ok, err := r.primary.Get(ctx, key)
		if r.observe(err) {
			return val, ok, nil
		}
	}
	return r.fallback.Get(ctx, key)
}

func (r *FailoverStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if r.usePrimary() && r.observe(r.primary.Set(ctx, key, value, ttl)) {
		return nil
	}
	return r.fallback.Set(ctx, key, value, ttl)
}

// Delete always clears the fallback too, so stale entries written during an outage
// do not survive invalidation.
func (r *FailoverStore) Delete(ctx context.Context, keys ...string) error {
	if r.usePrimary() {
		r.observe(r.primary.Delete(ctx, keys...))
	}
	return r.fallback.Delete(ctx, keys...)
}

func (r *FailoverStore) GetSession(ctx context.Context, id string) (*models.CheckoutSession, error) {
	if r.usePrimary() {
		session, err := r.primary.GetSession(ctx, id)
		if r.observe(err) {
			return session, nil
		}
	}
	return r.fallback.GetSession(ctx, id)
}

func (r *FailoverStore) SetSession(ctx context.Context, session *models.CheckoutSession) error {
	if r.usePrimary() && r.observe(r.primary.SetSession(ctx, session)) {
		return nil
	}
	return r.fallback.SetSession(ctx, session)
}

func (r *FailoverStore) ClearSession(ctx context.Context, id string) error {
	if r.usePrimary() {
		r.observe(r.primary.ClearSession(ctx, id))
	}
	return r.fallback.ClearSession(ctx, id)
}

func (r *FailoverStore) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.usePrimary() {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		if r.observe(err) {
			return allowed, nil
		}
	}
	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}
