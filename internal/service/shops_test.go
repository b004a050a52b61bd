package service

import (
	"context"
	"testing"
	"time"

	"flowershop/internal/models"
	"flowershop/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockGeocoder struct {
	mock.Mock
}

func (m *mockGeocoder) ResolveCoordinates(ctx context.Context, address string) (float64, float64, bool) {
	args := m.Called(ctx, address)
	return args.Get(0).(float64), args.Get(1).(float64), args.Bool(2)
}

func TestShopService_Geocoding(t *testing.T) {
	db := setupTestDB(t)
	geo := new(mockGeocoder)
	svc := NewShopService(db, geo, nil, 0, models.MapCenter{Lat: 1, Lng: 2}, testLogger())
	ctx := context.Background()

	geo.On("ResolveCoordinates", ctx, "ул. Мира, 1").Return(56.01, 92.85, true).Once()
	shop := &models.Shop{Name: "Центр", Address: "ул. Мира, 1", IsActive: true}
	require.NoError(t, svc.Create(ctx, shop))
	require.True(t, shop.HasCoordinates())
	assert.Equal(t, 56.01, *shop.Latitude)

	geo.On("ResolveCoordinates", ctx, "нигде").Return(0.0, 0.0, false).Once()
	lost := &models.Shop{Name: "Окраина", Address: "нигде", IsActive: true}
	require.NoError(t, svc.Create(ctx, lost))
	assert.False(t, lost.HasCoordinates())

	// координаты уже заданы: геокодер не нужен
	shop.Name = "Центральный"
	require.NoError(t, svc.Update(ctx, shop))
	geo.AssertExpectations(t)

	var verr *ValidationError
	assert.ErrorAs(t, svc.Create(ctx, &models.Shop{Name: "Без адреса"}), &verr)
	assert.Equal(t, models.MapCenter{Lat: 1, Lng: 2}, svc.MapCenter())
}

func TestShopService_ActiveCache(t *testing.T) {
	db := setupTestDB(t)
	cache := repository.NewMemoryStore(time.Hour)
	svc := NewShopService(db, nil, cache, time.Hour, models.MapCenter{}, testLogger())
	ctx := context.Background()

	require.NoError(t, svc.Create(ctx, &models.Shop{Name: "Первый", Address: "a", IsActive: true, SortOrder: 2}))
	require.NoError(t, svc.Create(ctx, &models.Shop{Name: "Закрыт", Address: "b", IsActive: false}))

	shops, err := svc.ActiveShops(ctx)
	require.NoError(t, err)
	require.Len(t, shops, 1)

	second := &models.Shop{Name: "Второй", Address: "c", IsActive: true, SortOrder: 1}
	require.NoError(t, svc.Create(ctx, second))

	shops, err = svc.ActiveShops(ctx)
	require.NoError(t, err)
	require.Len(t, shops, 2)
	assert.Equal(t, "Второй", shops[0].Name)

	require.NoError(t, svc.Delete(ctx, second.ID))
	shops, err = svc.ActiveShops(ctx)
	require.NoError(t, err)
	assert.Len(t, shops, 1)
}
