package repository

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"flowershop/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]byte), args.Bool(1), args.Error(2)
}

func (m *mockStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}

func (m *mockStore) Delete(ctx context.Context, keys ...string) error {
	return m.Called(ctx, keys).Error(0)
}

func (m *mockStore) GetSession(ctx context.Context, id string) (*models.CheckoutSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CheckoutSession), args.Error(1)
}

func (m *mockStore) SetSession(ctx context.Context, session *models.CheckoutSession) error {
	return m.Called(ctx, session).Error(0)
}

func (m *mockStore) ClearSession(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockStore) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

func TestFailoverStore(t *testing.T) {
	primary := new(mockStore)
	fallback := new(mockStore)
	logger := zerolog.New(io.Discard)
	repo := NewFailoverStore(primary, fallback, &logger)
	ctx := context.Background()

	t.Run("PrimarySuccess", func(t *testing.T) {
		session := &models.CheckoutSession{ID: "a"}
		primary.On("GetSession", ctx, "a").Return(session, nil).Once()

		got, err := repo.GetSession(ctx, "a")
		assert.NoError(t, err)
		assert.Equal(t, session, got)
		primary.AssertExpectations(t)
	})

	t.Run("PrimaryFailFallbackSuccess", func(t *testing.T) {
		primary.On("Get", ctx, "k").Return(nil, false, errors.New("connection refused")).Once()
		fallback.On("Get", ctx, "k").Return([]byte("v"), true, nil).Once()

		got, ok, err := repo.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "v", string(got))
		assert.True(t, repo.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("StaysOnFallbackWhileDown", func(t *testing.T) {
		fallback.On("CheckRateLimit", ctx, "ip", 10, time.Minute).Return(true, nil).Once()

		allowed, err := repo.CheckRateLimit(ctx, "ip", 10, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
		primary.AssertNotCalled(t, "CheckRateLimit", ctx, "ip", 10, time.Minute)
		fallback.AssertExpectations(t)
	})

	t.Run("RecoveryAttempt", func(t *testing.T) {
		repo.isDown.Store(true)
		repo.lastCheck = time.Now().Add(-2 * time.Minute)

		session := &models.CheckoutSession{ID: "b"}
		primary.On("GetSession", ctx, "b").Return(session, nil).Once()

		got, err := repo.GetSession(ctx, "b")
		assert.NoError(t, err)
		assert.Equal(t, session, got)
		assert.False(t, repo.isDown.Load())
		primary.AssertExpectations(t)
	})

	t.Run("RecoveryAttemptFail", func(t *testing.T) {
		repo.isDown.Store(true)
		repo.lastCheck = time.Now().Add(-2 * time.Minute)

		primary.On("GetSession", ctx, "c").Return(nil, errors.New("still down")).Once()
		fallback.On("GetSession", ctx, "c").Return(nil, nil).Once()

		got, err := repo.GetSession(ctx, "c")
		assert.NoError(t, err)
		assert.Nil(t, got)
		assert.True(t, repo.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("DeleteClearsBoth", func(t *testing.T) {
		repo.isDown.Store(false)
		keys := []string{models.CacheKeyActiveShops}
		primary.On("Delete", ctx, keys).Return(nil).Once()
		fallback.On("Delete", ctx, keys).Return(nil).Once()

		require.NoError(t, repo.Delete(ctx, models.CacheKeyActiveShops))
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("SetSessionSuccess", func(t *testing.T) {
		repo.isDown.Store(false)
		session := &models.CheckoutSession{ID: "d"}
		primary.On("SetSession", ctx, session).Return(nil).Once()

		require.NoError(t, repo.SetSession(ctx, session))
		primary.AssertExpectations(t)
	})
}
