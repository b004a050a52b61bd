package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"flowershop/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder() *models.Order {
	from := models.NewTimeOfDay(12, 0)
	to := models.NewTimeOfDay(15, 0)
	return &models.Order{
		ProductName:        "Букет «Нежность»",
		ProductPrice:       decimal.RequireFromString("3490.50"),
		ProductComposition: "7 роз, эвкалипт",
		DeliveryAddress:    "ул. Ленина, 1",
		DeliveryDate:       time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC),
		DeliveryTimeFrom:   &from,
		DeliveryTimeTo:     &to,
	}
}

func TestCreateOrderForCustomer(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	customer := &models.ShopUser{ExternalID: "c1", FullName: "Ольга", Phone: "+79990001122"}
	order := newTestOrder()
	require.NoError(t, db.CreateOrderForCustomer(ctx, customer, order))
	assert.NotZero(t, order.ID)
	assert.Equal(t, models.OrderCreated, order.Status)

	again := newTestOrder()
	require.NoError(t, db.CreateOrderForCustomer(ctx, &models.ShopUser{ExternalID: "c2", FullName: "Ольга", Phone: "+7 999 000 11 22"}, again))
	assert.Equal(t, order.CustomerID, again.CustomerID)

	got, err := db.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "Букет «Нежность»", got.ProductName)
	assert.True(t, got.ProductPrice.Equal(decimal.RequireFromString("3490.5")))
	assert.Equal(t, "2025-03-08", got.DeliveryDate.Format(models.DateLayout))
	require.NotNil(t, got.DeliveryTimeFrom)
	assert.Equal(t, "12:00", got.DeliveryTimeFrom.String())
	require.NotNil(t, got.Customer)
	assert.Equal(t, "Ольга", got.Customer.FullName)
	assert.Nil(t, got.Courier)

	_, err = db.GetOrder(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateOrder(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	courier := createTestUser(t, db, "Иван", "+79991230000", models.RoleCourier)
	order := newTestOrder()
	require.NoError(t, db.CreateOrderForCustomer(ctx, &models.ShopUser{ExternalID: "c", FullName: "Ольга", Phone: "+79990001122"}, order))

	t.Run("Returns before and after", func(t *testing.T) {
		before, after, err := db.UpdateOrder(ctx, order.ID, func(current *models.Order) (*models.Order, error) {
			current.Status = models.OrderInDelivery
			current.CourierID = models.Int64Ptr(courier.ID)
			return current, nil
		})
		require.NoError(t, err)
		assert.Equal(t, models.OrderCreated, before.Status)
		assert.Nil(t, before.CourierID)
		assert.Equal(t, models.OrderInDelivery, after.Status)
		require.NotNil(t, after.Courier)
		assert.Equal(t, "Иван", after.Courier.FullName)

		stored, err := db.GetOrder(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, models.OrderInDelivery, stored.Status)
		assert.Equal(t, courier.ID, *stored.CourierID)
	})

	t.Run("Related users load in the same transaction", func(t *testing.T) {
		done := make(chan struct{})
		var before, after *models.Order
		var err error
		go func() {
			defer close(done)
			before, after, err = db.UpdateOrder(ctx, order.ID, func(current *models.Order) (*models.Order, error) {
				current.DeliveryComments = "домофон 12"
				return current, nil
			})
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("UpdateOrder blocked on the database connection")
		}
		require.NoError(t, err)
		require.NotNil(t, before.Customer)
		require.NotNil(t, after.Customer)
		assert.Equal(t, "Ольга", after.Customer.FullName)
		require.NotNil(t, before.Courier)
		require.NotNil(t, after.Courier)
		assert.Equal(t, courier.ID, after.Courier.ID)
	})

	t.Run("Mutation error aborts write", func(t *testing.T) {
		boom := errors.New("boom")
		_, _, err := db.UpdateOrder(ctx, order.ID, func(current *models.Order) (*models.Order, error) {
			current.Status = models.OrderCancelled
			return nil, boom
		})
		assert.ErrorIs(t, err, boom)

		stored, err := db.GetOrder(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, models.OrderInDelivery, stored.Status)
	})

	t.Run("Snapshot is not rewritten", func(t *testing.T) {
		_, after, err := db.UpdateOrder(ctx, order.ID, func(current *models.Order) (*models.Order, error) {
			current.ProductName = "Другое"
			current.Comment = "позвонить заранее"
			return current, nil
		})
		require.NoError(t, err)
		assert.Equal(t, "позвонить заранее", after.Comment)

		stored, err := db.GetOrder(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, "Букет «Нежность»", stored.ProductName)
		assert.Equal(t, "позвонить заранее", stored.Comment)
	})

	t.Run("Missing order", func(t *testing.T) {
		_, _, err := db.UpdateOrder(ctx, 9999, func(current *models.Order) (*models.Order, error) {
			return current, nil
		})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestListOrders(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	customer := &models.ShopUser{ExternalID: "c", FullName: "Ольга", Phone: "+79990001122"}
	for i := 0; i < 3; i++ {
		o := newTestOrder()
		o.DeliveryDate = o.DeliveryDate.AddDate(0, 0, i)
		require.NoError(t, db.CreateOrderForCustomer(ctx, customer, o))
	}
	_, _, err := db.UpdateOrder(ctx, 1, func(current *models.Order) (*models.Order, error) {
		current.Status = models.OrderInWork
		return current, nil
	})
	require.NoError(t, err)

	all, err := db.ListOrders(ctx, models.OrderFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.NotNil(t, all[0].Customer)

	inWork, err := db.ListOrders(ctx, models.OrderFilter{Status: models.OrderInWork})
	require.NoError(t, err)
	require.Len(t, inWork, 1)
	assert.Equal(t, int64(1), inWork[0].ID)

	byDate, err := db.ListOrders(ctx, models.OrderFilter{
		From: time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Len(t, byDate, 2)

	page, err := db.ListOrders(ctx, models.OrderFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page, 2)
}
