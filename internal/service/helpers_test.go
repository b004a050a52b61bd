package service

import (
	"context"
	"testing"
	"time"

	"flowershop/internal/database"
	"flowershop/internal/events"
	"flowershop/internal/models"
	"flowershop/internal/repository"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockTelegramSender struct {
	mock.Mock
}

func (m *mockTelegramSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return args.Get(0).(tgbotapi.Message), args.Error(1)
}

func (m *mockTelegramSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	args := m.Called(c)
	return args.Get(0).(*tgbotapi.APIResponse), args.Error(1)
}

func (m *mockTelegramSender) GetSelf() tgbotapi.User {
	args := m.Called()
	return args.Get(0).(tgbotapi.User)
}

// toChat matches a message addressed to chatID.
func toChat(chatID int64) interface{} {
	return mock.MatchedBy(func(c tgbotapi.Chattable) bool {
		msg, ok := c.(tgbotapi.MessageConfig)
		return ok && msg.ChatID == chatID
	})
}

func sentTo(m *mockTelegramSender, chatID int64) int {
	n := 0
	for _, call := range m.Calls {
		if call.Method != "Send" {
			continue
		}
		if msg, ok := call.Arguments.Get(0).(tgbotapi.MessageConfig); ok && msg.ChatID == chatID {
			n++
		}
	}
	return n
}

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func fixedClock(t time.Time) ClockFunc {
	return func() time.Time { return t }
}

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.NewDB(":memory:", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func createUser(t *testing.T, db *database.DB, name, phone, telegramID string, role models.UserRole) *models.ShopUser {
	t.Helper()
	u := &models.ShopUser{
		ExternalID: name + "-" + phone,
		FullName:   name,
		Phone:      phone,
		TelegramID: telegramID,
		Role:       role,
	}
	require.NoError(t, db.CreateUser(context.Background(), u))
	return u
}

func createProduct(t *testing.T, db *database.DB, name string, price int64) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:        name,
		Composition: "розы, эвкалипт",
		Price:       decimal.NewFromInt(price),
		Image:       "img/" + name + ".jpg",
		Status:      models.ProductActive,
	}
	require.NoError(t, db.CreateProduct(context.Background(), p, nil))
	return p
}

func standardSlots(t *testing.T, db *database.DB) (morning, day, express models.DeliveryTimeSlot) {
	t.Helper()
	ctx := context.Background()
	morning = models.DeliveryTimeSlot{Start: models.NewTimeOfDay(8, 0), End: models.NewTimeOfDay(12, 0), AvailableTomorrow: true}
	day = models.DeliveryTimeSlot{Start: models.NewTimeOfDay(12, 0), End: models.NewTimeOfDay(18, 0), AvailableTomorrow: true}
	express = models.DeliveryTimeSlot{Start: models.NewTimeOfDay(18, 0), End: models.NewTimeOfDay(20, 0), IsExpress: true}
	require.NoError(t, db.CreateSlot(ctx, &morning))
	require.NoError(t, db.CreateSlot(ctx, &day))
	require.NoError(t, db.CreateSlot(ctx, &express))
	return morning, day, express
}

type testEnv struct {
	db       *database.DB
	bot      *mockTelegramSender
	notifier *Notifier
	slots    *SlotService
	orders   *OrderService
	assign   *AssignmentService
	store    *repository.MemoryStore
	bus      *events.EventBus
}

func newTestEnv(t *testing.T, now time.Time) *testEnv {
	t.Helper()
	db := setupTestDB(t)
	bot := new(mockTelegramSender)
	logger := testLogger()
	clock := fixedClock(now)
	store := repository.NewMemoryStore(time.Hour)
	bus := events.NewEventBus(logger)

	notifier := NewNotifier(bot, db, db, NotifierConfig{SendTimeout: time.Second}, logger)
	slots := NewSlotService(db, clock, logger)
	return &testEnv{
		db:       db,
		bot:      bot,
		notifier: notifier,
		slots:    slots,
		orders:   NewOrderService(db, db, db, slots, store, notifier, bus, clock, logger),
		assign:   NewAssignmentService(db, db, notifier, bus, logger),
		store:    store,
		bus:      bus,
	}
}
