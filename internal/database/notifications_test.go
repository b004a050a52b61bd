package database

import (
	"context"
	"testing"

	"flowershop/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationLog(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	require.NoError(t, db.RecordNotification(ctx, &models.NotificationRecord{
		Recipient: "123", Kind: models.NotifyOrderCreated, OrderID: models.Int64Ptr(1), Success: true,
	}))
	require.NoError(t, db.RecordNotification(ctx, &models.NotificationRecord{
		Recipient: "abc", Kind: models.NotifyCourierAssigned, Error: "invalid telegram id",
	}))

	all, err := db.ListNotifications(ctx, false, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	failed, err := db.ListNotifications(ctx, true, 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "abc", failed[0].Recipient)
	assert.Equal(t, models.NotifyCourierAssigned, failed[0].Kind)
	assert.Nil(t, failed[0].OrderID)
}
