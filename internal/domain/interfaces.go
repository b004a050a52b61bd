package domain

import (
	"context"
	"time"

	"flowershop/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// OrderMutation is applied to the stored order inside the update transaction.
// Returning an error aborts the write.
type OrderMutation func(current *models.Order) (*models.Order, error)

type OrderRepository interface {
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	ListOrders(ctx context.Context, filter models.OrderFilter) ([]*models.Order, error)
	// CreateOrderForCustomer resolves the customer by phone and inserts the order in one transaction.
	CreateOrderForCustomer(ctx context.Context, customer *models.ShopUser, order *models.Order) error
	// UpdateOrder loads the stored row, applies mutate and writes the result atomically.
	// It returns the stored state before and the state after the write.
	UpdateOrder(ctx context.Context, id int64, mutate OrderMutation) (before, after *models.Order, err error)
}

type UserRepository interface {
	GetUserByID(ctx context.Context, id int64) (*models.ShopUser, error)
	GetUserByPhone(ctx context.Context, phone string) (*models.ShopUser, error)
	GetOrCreateUserByPhone(ctx context.Context, user *models.ShopUser) (*models.ShopUser, bool, error)
	CreateUser(ctx context.Context, user *models.ShopUser) error
	UpdateUser(ctx context.Context, user *models.ShopUser) error
	ListUsers(ctx context.Context) ([]*models.ShopUser, error)
	ListUsersByRole(ctx context.Context, role models.UserRole) ([]*models.ShopUser, error)
}

type SlotRepository interface {
	ListSlots(ctx context.Context) ([]models.DeliveryTimeSlot, error)
	GetSlot(ctx context.Context, id int64) (*models.DeliveryTimeSlot, error)
	CreateSlot(ctx context.Context, slot *models.DeliveryTimeSlot) error
	UpdateSlot(ctx context.Context, slot *models.DeliveryTimeSlot) error
	DeleteSlot(ctx context.Context, id int64) error
	// SyncSlots upserts slots keyed by id.
	SyncSlots(ctx context.Context, slots []models.DeliveryTimeSlot) error
}

type CatalogRepository interface {
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	ListProducts(ctx context.Context, filter models.ProductFilter, offset, limit int) ([]models.Product, error)
	CountProducts(ctx context.Context, filter models.ProductFilter) (int, error)
	RandomProduct(ctx context.Context, filter models.ProductFilter) (*models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product, categoryIDs []int64) error
	UpdateProduct(ctx context.Context, product *models.Product, categoryIDs []int64) error
	SetProductStatus(ctx context.Context, id int64, status models.ProductStatus) error
	DeleteProduct(ctx context.Context, id int64) error

	ListCategories(ctx context.Context) ([]models.Category, error)
	CreateCategory(ctx context.Context, category *models.Category) error
	DeleteCategory(ctx context.Context, id int64) error

	ListPriceRanges(ctx context.Context) ([]models.PriceRange, error)
	GetPriceRange(ctx context.Context, id int64) (*models.PriceRange, error)
	CreatePriceRange(ctx context.Context, r *models.PriceRange) error
	DeletePriceRange(ctx context.Context, id int64) error
}

type ConsultationRepository interface {
	CreateConsultation(ctx context.Context, c *models.Consultation) error
	GetConsultation(ctx context.Context, id int64) (*models.Consultation, error)
	ListConsultations(ctx context.Context, onlyUnprocessed bool) ([]*models.Consultation, error)
	MarkConsultationProcessed(ctx context.Context, id int64, managerID *int64) error
	ListStaleConsultations(ctx context.Context, createdBefore time.Time) ([]*models.Consultation, error)
	MarkConsultationsReminded(ctx context.Context, ids []int64, at time.Time) error
}

type ShopRepository interface {
	GetShop(ctx context.Context, id int64) (*models.Shop, error)
	ListShops(ctx context.Context, onlyActive bool) ([]models.Shop, error)
	CreateShop(ctx context.Context, shop *models.Shop) error
	UpdateShop(ctx context.Context, shop *models.Shop) error
	DeleteShop(ctx context.Context, id int64) error
}

type NotificationLog interface {
	RecordNotification(ctx context.Context, rec *models.NotificationRecord) error
	ListNotifications(ctx context.Context, onlyFailed bool, limit int) ([]models.NotificationRecord, error)
}

// Cache is a byte-oriented key/value store with expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type SessionStore interface {
	GetSession(ctx context.Context, id string) (*models.CheckoutSession, error)
	SetSession(ctx context.Context, session *models.CheckoutSession) error
	ClearSession(ctx context.Context, id string) error
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetSelf() tgbotapi.User
}

// Geocoder resolves a postal address. ok is false when nothing was found or the call failed.
type Geocoder interface {
	ResolveCoordinates(ctx context.Context, address string) (lat, lon float64, ok bool)
}

// Clock is injected so slot computations can be tested at fixed times.
type Clock interface {
	Now() time.Time
}
