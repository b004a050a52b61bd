package database

import (
	"context"
	"testing"
	"time"

	"flowershop/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsultations(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	client := createTestUser(t, db, "Светлана", "+79995550000", models.RoleCustomer)
	manager := createTestUser(t, db, "Менеджер", "+79995550001", models.RoleManager)

	old := &models.Consultation{UserID: client.ID, CreatedAt: time.Now().Add(-30 * time.Minute)}
	fresh := &models.Consultation{UserID: client.ID}
	require.NoError(t, db.CreateConsultation(ctx, old))
	require.NoError(t, db.CreateConsultation(ctx, fresh))

	got, err := db.GetConsultation(ctx, old.ID)
	require.NoError(t, err)
	require.NotNil(t, got.User)
	assert.Equal(t, "Светлана", got.User.FullName)
	assert.True(t, got.Stale)

	stale, err := db.ListStaleConsultations(ctx, time.Now().Add(-models.ConsultationStaleAfter))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, old.ID, stale[0].ID)

	require.NoError(t, db.MarkConsultationsReminded(ctx, []int64{old.ID}, time.Now()))
	stale, err = db.ListStaleConsultations(ctx, time.Now().Add(-models.ConsultationStaleAfter))
	require.NoError(t, err)
	assert.Empty(t, stale)

	require.NoError(t, db.MarkConsultationProcessed(ctx, fresh.ID, &manager.ID))
	open, err := db.ListConsultations(ctx, true)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, old.ID, open[0].ID)

	all, err := db.ListConsultations(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	processed, err := db.GetConsultation(ctx, fresh.ID)
	require.NoError(t, err)
	assert.True(t, processed.Processed)
	assert.False(t, processed.Stale)
	require.NotNil(t, processed.ManagerID)
	assert.Equal(t, manager.ID, *processed.ManagerID)

	assert.ErrorIs(t, db.MarkConsultationProcessed(ctx, 9999, nil), ErrNotFound)
	assert.NoError(t, db.MarkConsultationsReminded(ctx, nil, time.Now()))
}
