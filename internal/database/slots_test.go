package database

import (
	"context"
	"testing"

	"flowershop/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotCRUD(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	evening := &models.DeliveryTimeSlot{Start: models.NewTimeOfDay(18, 0), End: models.NewTimeOfDay(21, 0)}
	morning := &models.DeliveryTimeSlot{Start: models.NewTimeOfDay(9, 0), End: models.NewTimeOfDay(12, 0), Label: "Утро", AvailableTomorrow: true}
	require.NoError(t, db.CreateSlot(ctx, evening))
	require.NoError(t, db.CreateSlot(ctx, morning))

	assert.Equal(t, "с 18:00 до 21:00", evening.Label)

	slots, err := db.ListSlots(ctx)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, morning.ID, slots[0].ID)
	assert.Equal(t, models.NewTimeOfDay(9, 0), slots[0].Start)
	assert.True(t, slots[0].AvailableTomorrow)
	assert.Equal(t, "Утро", slots[0].Label)

	evening.End = models.NewTimeOfDay(22, 0)
	require.NoError(t, db.UpdateSlot(ctx, evening))
	got, err := db.GetSlot(ctx, evening.ID)
	require.NoError(t, err)
	assert.Equal(t, "22:00", got.End.String())

	require.NoError(t, db.DeleteSlot(ctx, evening.ID))
	_, err = db.GetSlot(ctx, evening.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, db.DeleteSlot(ctx, evening.ID), ErrNotFound)
}

func TestSingleExpressSlot(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	express := &models.DeliveryTimeSlot{Start: models.NewTimeOfDay(8, 0), End: models.NewTimeOfDay(22, 0), IsExpress: true}
	require.NoError(t, db.CreateSlot(ctx, express))

	second := &models.DeliveryTimeSlot{Start: models.NewTimeOfDay(10, 0), End: models.NewTimeOfDay(20, 0), IsExpress: true}
	assert.ErrorIs(t, db.CreateSlot(ctx, second), ErrExpressSlotExists)

	regular := &models.DeliveryTimeSlot{Start: models.NewTimeOfDay(10, 0), End: models.NewTimeOfDay(12, 0)}
	require.NoError(t, db.CreateSlot(ctx, regular))
	regular.IsExpress = true
	assert.ErrorIs(t, db.UpdateSlot(ctx, regular), ErrExpressSlotExists)

	// после снятия флага можно назначить другой слот
	express.IsExpress = false
	require.NoError(t, db.UpdateSlot(ctx, express))
	require.NoError(t, db.UpdateSlot(ctx, regular))
}

func TestSyncSlots(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	slots := []models.DeliveryTimeSlot{
		{ID: 1, Start: models.NewTimeOfDay(10, 0), End: models.NewTimeOfDay(13, 0)},
		{ID: 2, Start: models.NewTimeOfDay(8, 0), End: models.NewTimeOfDay(22, 0), IsExpress: true},
	}
	require.NoError(t, db.SyncSlots(ctx, slots))

	slots[0].Label = "День"
	require.NoError(t, db.SyncSlots(ctx, slots))

	got, err := db.ListSlots(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)

	first, err := db.GetSlot(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "День", first.Label)

	express, err := db.GetSlot(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "с 08:00 до 22:00", express.Label)
	assert.True(t, express.IsExpress)
}
