package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"flowershop/internal/config"
	"flowershop/internal/database"
	"flowershop/internal/events"
	"flowershop/internal/models"
	"flowershop/internal/repository"
	"flowershop/internal/service"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 8, 10, 0, 0, 0, time.UTC)

type apiEnv struct {
	db     *database.DB
	server *HTTPServer
	store  *repository.MemoryStore
}

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func newAPIEnv(t *testing.T, cfg config.APIConfig) *apiEnv {
	t.Helper()
	logger := testLogger()

	db, err := database.NewDB(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := repository.NewMemoryStore(time.Hour)
	clock := service.ClockFunc(func() time.Time { return testNow })
	bus := events.NewEventBus(logger)

	notifier := service.NewNotifier(nil, db, db, service.NotifierConfig{SendTimeout: time.Second}, logger)
	notifier.Subscribe(bus)

	slots := service.NewSlotService(db, clock, logger)
	svc := Services{
		Catalog:       service.NewCatalogService(db, store, service.CatalogConfig{PageSize: 6, LoadMoreSize: 3, FeaturedTTL: time.Hour}, logger),
		Slots:         slots,
		Orders:        service.NewOrderService(db, db, db, slots, store, notifier, bus, clock, logger),
		Sessions:      service.NewSessionService(store, slots, clock, logger),
		Assignment:    service.NewAssignmentService(db, db, notifier, bus, logger),
		Consultations: service.NewConsultationService(db, db, notifier, bus, clock, logger),
		Shops:         service.NewShopService(db, nil, store, time.Hour, models.MapCenter{Lat: 56.0096, Lng: 92.8726}, logger),
		Users:         service.NewUserService(db, logger),
		Notifications: db,
		SessionStore:  store,
	}

	return &apiEnv{db: db, server: NewHTTPServer(cfg, svc, logger), store: store}
}

func (e *apiEnv) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (e *apiEnv) product(t *testing.T, name string, price int64) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:        name,
		Composition: "пионы",
		Price:       decimal.NewFromInt(price),
		Status:      models.ProductActive,
	}
	require.NoError(t, e.db.CreateProduct(context.Background(), p, nil))
	return p
}

func (e *apiEnv) slot(t *testing.T, from, to int, tomorrow bool) models.DeliveryTimeSlot {
	t.Helper()
	s := models.DeliveryTimeSlot{Start: models.NewTimeOfDay(from, 0), End: models.NewTimeOfDay(to, 0), AvailableTomorrow: tomorrow}
	require.NoError(t, e.db.CreateSlot(context.Background(), &s))
	return s
}

func TestHealthz(t *testing.T) {
	env := newAPIEnv(t, config.APIConfig{})
	rec := env.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestConsultationEndpoint(t *testing.T) {
	env := newAPIEnv(t, config.APIConfig{})

	t.Run("Success", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v1/consultations", map[string]string{
			"name": "Анна", "phone": "+7 (999) 000-11-22",
		}, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		res := decode[consultationResponse](t, rec)
		assert.True(t, res.Success)
		assert.Equal(t, "Анна", res.UserName)
		assert.Equal(t, "+79990001122", res.UserPhone)
	})

	t.Run("MissingFields", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v1/consultations", map[string]string{"name": "Анна"}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		res := decode[errorResponse](t, rec)
		assert.False(t, res.Success)
		assert.Equal(t, "Заполните все поля", res.Error)
	})

	t.Run("UnknownField", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v1/consultations", map[string]string{"email": "x@y"}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestPlaceOrderEndpoint(t *testing.T) {
	env := newAPIEnv(t, config.APIConfig{})
	p := env.product(t, "Нежность", 3500)
	morning := env.slot(t, 8, 12, true)

	t.Run("Created", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v1/orders", map[string]any{
			"product_id":    p.ID,
			"name":          "Олег",
			"phone":         "89990001122",
			"address":       "ул. Ленина, 1",
			"delivery_time": fmt.Sprintf("tomorrow-%d", morning.ID),
		}, nil)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		res := decode[orderResponse](t, rec)
		require.NotNil(t, res.Order)
		assert.Equal(t, "Нежность", res.Order.ProductName)
		assert.True(t, decimal.NewFromInt(3500).Equal(res.Order.ProductPrice))
		assert.Equal(t, models.OrderCreated, res.Order.Status)
		assert.Equal(t, "2025-03-09", res.Order.DeliveryDate.Format(models.DateLayout))
	})

	t.Run("MissingDeliveryTime", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v1/orders", map[string]any{
			"product_id": p.ID, "name": "Олег", "phone": "89990001122", "address": "ул. Ленина, 1",
		}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		res := decode[errorResponse](t, rec)
		assert.Contains(t, res.Fields, "delivery_time")
	})

	t.Run("UnknownProduct", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v1/orders", map[string]any{
			"product_id": 999, "name": "Олег", "phone": "89990001122", "address": "ул. Ленина, 1",
			"delivery_time": fmt.Sprintf("tomorrow-%d", morning.ID),
		}, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestCheckoutSessionFlow(t *testing.T) {
	env := newAPIEnv(t, config.APIConfig{})
	p := env.product(t, "Рассвет", 2000)
	day := env.slot(t, 12, 18, true)

	rec := env.do(t, http.MethodPost, "/api/v1/orders/step", map[string]any{
		"name": "Ирина", "phone": "+79995550000", "address": "пр. Мира, 10",
		"delivery_time": fmt.Sprintf("today-%d", day.ID),
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	sid := rec.Header().Get(sessionHeader)
	require.NotEmpty(t, sid)
	step := decode[stepResponse](t, rec)
	assert.Equal(t, sid, step.SessionID)

	rec = env.do(t, http.MethodPost, "/api/v1/orders/finalize", map[string]any{"product_id": p.ID},
		map[string]string{sessionHeader: sid})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decode[orderResponse](t, rec)
	assert.Equal(t, "Рассвет", res.Order.ProductName)
	assert.Equal(t, "2025-03-08", res.Order.DeliveryDate.Format(models.DateLayout))

	// сессия очищена после оформления
	rec = env.do(t, http.MethodPost, "/api/v1/orders/finalize", map[string]any{"product_id": p.ID},
		map[string]string{sessionHeader: sid})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFinalizeWithoutSession(t *testing.T) {
	env := newAPIEnv(t, config.APIConfig{})
	rec := env.do(t, http.MethodPost, "/api/v1/orders/finalize", map[string]any{"product_id": 1}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStorefrontReads(t *testing.T) {
	env := newAPIEnv(t, config.APIConfig{})
	for i := 0; i < 8; i++ {
		env.product(t, fmt.Sprintf("Букет %d", i), int64(1000+i*100))
	}
	env.slot(t, 8, 12, true)

	t.Run("Catalog", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/v1/catalog", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		page := decode[models.CatalogPage](t, rec)
		assert.Len(t, page.Products, 6)
		assert.Equal(t, 8, page.Total)
		assert.True(t, page.HasMore)
	})

	t.Run("LoadMore", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/v1/catalog/more?offset=6", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		page := decode[models.CatalogPage](t, rec)
		assert.Len(t, page.Products, 2)
		assert.False(t, page.HasMore)
		assert.Equal(t, 9, page.NextOffset)

		rec = env.do(t, http.MethodGet, "/api/v1/catalog/more?offset=-1", nil, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Slots", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/v1/delivery/slots", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		availability := decode[models.SlotAvailability](t, rec)
		assert.Len(t, availability.Today, 1)
		assert.Len(t, availability.Tomorrow, 1)
	})

	t.Run("Shops", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/v1/shops", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		res := decode[shopsResponse](t, rec)
		assert.Empty(t, res.Shops)
		assert.Equal(t, 56.0096, res.MapCenter.Lat)
	})

	t.Run("QuizBadParam", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/v1/quiz/result?category_id=abc", nil, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Quiz", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/v1/quiz/result", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		p := decode[models.Product](t, rec)
		assert.NotZero(t, p.ID)
	})

	t.Run("ArchivedProductHidden", func(t *testing.T) {
		p := env.product(t, "Старый", 500)
		require.NoError(t, env.db.SetProductStatus(context.Background(), p.ID, models.ProductArchived))
		rec := env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/products/%d", p.ID), nil, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestSubmissionRateLimit(t *testing.T) {
	env := newAPIEnv(t, config.APIConfig{RateLimit: config.APIRateLimitConfig{Submissions: 2, Window: time.Minute}})

	body := map[string]string{"name": "Анна", "phone": "+79990001122"}
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/v1/consultations", body, nil).Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/v1/consultations", body, nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, env.do(t, http.MethodPost, "/api/v1/consultations", body, nil).Code)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&service.ValidationError{Field: "name", Message: "укажите имя"}, http.StatusBadRequest},
		{service.ErrInvalidSelection, http.StatusBadRequest},
		{service.ErrCourierRequired, http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", service.ErrSlotUnavailable), http.StatusConflict},
		{service.ErrTerminalStatus, http.StatusConflict},
		{database.ErrExpressSlotExists, http.StatusConflict},
		{service.ErrOrderNotFound, http.StatusNotFound},
		{database.ErrNotFound, http.StatusNotFound},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		got, _ := classify(tt.err)
		assert.Equal(t, tt.want, got, tt.err.Error())
	}

	_, msg := classify(errors.New("disk full"))
	assert.Equal(t, "disk full", msg)
}
