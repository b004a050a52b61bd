package database

import (
	"context"
	"testing"

	"flowershop/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShops(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	lat, lon := 56.01, 92.85
	central := &models.Shop{Name: "Центральный", Address: "пр. Мира, 10", Latitude: &lat, Longitude: &lon, IsActive: true, SortOrder: 1}
	closed := &models.Shop{Name: "Закрытый", Address: "ул. Маркса, 5", IsActive: false}
	require.NoError(t, db.CreateShop(ctx, central))
	require.NoError(t, db.CreateShop(ctx, closed))

	active, err := db.ListShops(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.True(t, active[0].HasCoordinates())
	assert.InDelta(t, 56.01, *active[0].Latitude, 1e-9)

	all, err := db.ListShops(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	closed.IsActive = true
	require.NoError(t, db.UpdateShop(ctx, closed))
	got, err := db.GetShop(ctx, closed.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
	assert.False(t, got.HasCoordinates())

	require.NoError(t, db.DeleteShop(ctx, closed.ID))
	_, err = db.GetShop(ctx, closed.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
