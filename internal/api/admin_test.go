package api

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"flowershop/internal/config"
	"flowershop/internal/models"
	"flowershop/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authConfig() config.APIConfig {
	return config.APIConfig{Auth: config.APIAuthConfig{
		Enabled:      true,
		HeaderAPIKey: "x-api-key",
		HeaderExtra:  "x-api-extra",
		APIKeys: []config.APIClientKey{
			{Key: "root", Extra: "secret", Name: "owner"},
			{Key: "florist", Extra: "roses", Name: "florist", Permissions: []string{PermCatalog}},
		},
	}}
}

func rootHeaders() map[string]string {
	return map[string]string{"x-api-key": "root", "x-api-extra": "secret"}
}

func (e *apiEnv) user(t *testing.T, name, phone, telegramID string, role models.UserRole) *models.ShopUser {
	t.Helper()
	u := &models.ShopUser{ExternalID: "ext-" + phone, FullName: name, Phone: phone, TelegramID: telegramID, Role: role}
	require.NoError(t, e.db.CreateUser(context.Background(), u))
	return u
}

func (e *apiEnv) order(t *testing.T) *models.Order {
	t.Helper()
	p := e.product(t, "Нежность", 3500)
	s := e.slot(t, 8, 12, true)
	o, err := e.server.svc.Orders.PlaceOrder(context.Background(), service.PlaceOrderRequest{
		ProductID:    p.ID,
		CustomerName: "Олег",
		Phone:        "+79990001122",
		Address:      "ул. Ленина, 1",
		Selection:    fmt.Sprintf("tomorrow-%d", s.ID),
	})
	require.NoError(t, err)
	return o
}

func TestAdminAuth(t *testing.T) {
	env := newAPIEnv(t, authConfig())

	tests := []struct {
		name    string
		path    string
		headers map[string]string
		want    int
	}{
		{"MissingHeaders", "/api/v1/admin/orders", nil, http.StatusUnauthorized},
		{"UnknownKey", "/api/v1/admin/orders", map[string]string{"x-api-key": "nope", "x-api-extra": "secret"}, http.StatusUnauthorized},
		{"WrongExtra", "/api/v1/admin/orders", map[string]string{"x-api-key": "root", "x-api-extra": "bad"}, http.StatusUnauthorized},
		{"FullAccess", "/api/v1/admin/orders", rootHeaders(), http.StatusOK},
		{"ScopedDenied", "/api/v1/admin/orders", map[string]string{"x-api-key": "florist", "x-api-extra": "roses"}, http.StatusForbidden},
		{"ScopedAllowed", "/api/v1/admin/products", map[string]string{"x-api-key": "florist", "x-api-extra": "roses"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, tt.path, nil, tt.headers)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}

	t.Run("StorefrontIsPublic", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/v1/categories", nil, nil).Code)
	})
}

func TestAdminUpdateOrder(t *testing.T) {
	env := newAPIEnv(t, config.APIConfig{})
	o := env.order(t)
	courier := env.user(t, "Пётр", "+79991112233", "", models.RoleCourier)
	path := fmt.Sprintf("/api/v1/admin/orders/%d", o.ID)

	t.Run("DeliveryNeedsCourier", func(t *testing.T) {
		rec := env.do(t, http.MethodPatch, path, map[string]any{"status": "inDelivery"}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("UnknownStatus", func(t *testing.T) {
		rec := env.do(t, http.MethodPatch, path, map[string]any{"status": "lost"}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		res := decode[errorResponse](t, rec)
		assert.Equal(t, "oneof", res.Fields["status"])
	})

	t.Run("AssignAndDeliver", func(t *testing.T) {
		rec := env.do(t, http.MethodPatch, path, map[string]any{"status": "inDelivery", "courier_id": courier.ID}, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		updated := decode[models.Order](t, rec)
		assert.Equal(t, models.OrderInDelivery, updated.Status)
		require.NotNil(t, updated.CourierID)
		assert.Equal(t, courier.ID, *updated.CourierID)

		rec = env.do(t, http.MethodPatch, path, map[string]any{"status": "delivered"}, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotNil(t, decode[models.Order](t, rec).DeliveredAt)

		rec = env.do(t, http.MethodPatch, path, map[string]any{"comment": "поздно"}, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("MissingOrder", func(t *testing.T) {
		rec := env.do(t, http.MethodPatch, "/api/v1/admin/orders/9999", map[string]any{"comment": "x"}, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAdminAssignCourier(t *testing.T) {
	env := newAPIEnv(t, config.APIConfig{})
	o := env.order(t)
	courier := env.user(t, "Пётр", "+79991112233", "", models.RoleCourier)

	t.Run("SeveralOrders", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v1/admin/orders/assign", map[string]any{
			"order_ids": []int64{o.ID, o.ID + 1}, "courier_id": courier.ID,
		}, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		res := decode[service.AssignmentResult](t, rec)
		assert.NotEmpty(t, res.Warnings)
	})

	t.Run("Assigned", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v1/admin/orders/assign", map[string]any{
			"order_ids": []int64{o.ID}, "courier_id": courier.ID,
		}, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		res := decode[service.AssignmentResult](t, rec)
		require.NotNil(t, res.Order)
		assert.Equal(t, models.OrderInDelivery, res.Order.Status)
		assert.Equal(t, "no_telegram", res.CourierOutcome)
	})

	t.Run("CourierUnreachable", func(t *testing.T) {
		other := env.order(t)
		reachable := env.user(t, "Олег", "+79991112244", "1001", models.RoleCourier)

		rec := env.do(t, http.MethodPost, "/api/v1/admin/orders/assign", map[string]any{
			"order_ids": []int64{other.ID}, "courier_id": reachable.ID,
		}, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		res := decode[service.AssignmentResult](t, rec)
		assert.Equal(t, "send_failed", res.CourierOutcome)
		assert.Empty(t, res.Errors)
		assert.NotEmpty(t, res.Warnings)

		stored, err := env.db.GetOrder(context.Background(), other.ID)
		require.NoError(t, err)
		assert.Equal(t, models.OrderInDelivery, stored.Status)
		assert.Equal(t, reachable.ID, *stored.CourierID)

		// повтор уже ничего не меняет
		rec = env.do(t, http.MethodPost, "/api/v1/admin/orders/assign", map[string]any{
			"order_ids": []int64{other.ID}, "courier_id": reachable.ID,
		}, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("UnknownCourier", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v1/admin/orders/assign", map[string]any{
			"order_ids": []int64{o.ID}, "courier_id": 4242,
		}, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAdminExportOrders(t *testing.T) {
	env := newAPIEnv(t, config.APIConfig{})
	env.order(t)

	rec := env.do(t, http.MethodGet, "/api/v1/admin/orders/export?from=2025-03-01&to=2025-03-31", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "orders_2025-03-01_to_2025-03-31.xlsx")
	// xlsx is a zip archive
	assert.Equal(t, "PK", rec.Body.String()[:2])

	rec = env.do(t, http.MethodGet, "/api/v1/admin/orders/export?from=March", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminCatalogCRUD(t *testing.T) {
	env := newAPIEnv(t, config.APIConfig{})

	rec := env.do(t, http.MethodPost, "/api/v1/admin/categories", map[string]any{"name": "Розы"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	category := decode[models.Category](t, rec)

	rec = env.do(t, http.MethodPost, "/api/v1/admin/products", map[string]any{
		"name": "Алые розы", "price": "4200", "category_ids": []int64{category.ID},
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	product := decode[models.Product](t, rec)
	assert.Equal(t, models.ProductActive, product.Status)

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/quiz/result?category_id=%d", category.ID), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, product.ID, decode[models.Product](t, rec).ID)

	rec = env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/products/%d/archive", product.ID), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/products/%d", product.ID), nil, nil).Code)

	rec = env.do(t, http.MethodPost, "/api/v1/admin/price-ranges", map[string]any{"min_price": "5000", "max_price": "1000"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/admin/price-ranges", map[string]any{"min_price": "1000"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "от 1000 руб", decode[priceRangeView](t, rec).Label)
}

func TestAdminSlots(t *testing.T) {
	env := newAPIEnv(t, config.APIConfig{})

	rec := env.do(t, http.MethodPost, "/api/v1/admin/slots", map[string]any{"start": "18:00", "end": "20:00", "is_express": true}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	slot := decode[models.DeliveryTimeSlot](t, rec)
	assert.Equal(t, "с 18:00 до 20:00", slot.Label)

	rec = env.do(t, http.MethodPost, "/api/v1/admin/slots", map[string]any{"start": "20:00", "end": "21:00", "is_express": true}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/admin/slots", map[string]any{"start": "12:00", "end": "08:00"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/admin/slots/%d", slot.ID), nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/admin/slots/%d", slot.ID), nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminUsersAndConsultations(t *testing.T) {
	env := newAPIEnv(t, config.APIConfig{})

	rec := env.do(t, http.MethodPost, "/api/v1/admin/users", map[string]any{
		"full_name": "Мария", "phone": "+79993334455", "role": "manager", "telegram_id": "12345",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/v1/admin/users", map[string]any{
		"full_name": "Дубль", "phone": "+79993334455", "role": "delivery",
	}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/admin/users", map[string]any{
		"full_name": "Бот", "phone": "+79990000000", "telegram_id": "@handle",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/admin/users?role=manager", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.ShopUser](t, rec), 1)

	rec = env.do(t, http.MethodPost, "/api/v1/consultations", map[string]string{"name": "Анна", "phone": "+79990001122"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/admin/consultations?unprocessed=true", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]models.Consultation](t, rec)
	require.Len(t, list, 1)
	assert.False(t, list[0].Stale)

	rec = env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/consultations/%d/process", list[0].ID), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/v1/admin/consultations?unprocessed=true", nil, nil)
	assert.Empty(t, decode[[]models.Consultation](t, rec))

	// менеджер без бота: попытка доставки записана как неудачная
	rec = env.do(t, http.MethodGet, "/api/v1/admin/notifications?failed=true", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	records := decode[[]models.NotificationRecord](t, rec)
	require.NotEmpty(t, records)
	assert.Equal(t, "12345", records[0].Recipient)
}
