package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"flowershop/internal/domain"
	"flowershop/internal/events"
	"flowershop/internal/metrics"
	"flowershop/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PlaceOrderRequest is the checkout form.
type PlaceOrderRequest struct {
	ProductID    int64
	CustomerName string
	Phone        string
	Address      string
	Comment      string
	Selection    string
}

// OrderPatch carries the admin-editable fields. Nil fields are left unchanged.
type OrderPatch struct {
	Status           *models.OrderStatus
	CourierID        *int64
	ClearCourier     bool
	ManagerID        *int64
	DeliveryAddress  *string
	DeliveryDate     *time.Time
	Comment          *string
	DeliveryComments *string
}

func (p OrderPatch) apply(o *models.Order) {
	if p.Status != nil {
		o.Status = *p.Status
	}
	switch {
	case p.ClearCourier:
		o.CourierID = nil
	case p.CourierID != nil:
		o.CourierID = models.Int64Ptr(*p.CourierID)
	}
	if p.ManagerID != nil {
		o.ManagerID = models.Int64Ptr(*p.ManagerID)
	}
	if p.DeliveryAddress != nil {
		o.DeliveryAddress = strings.TrimSpace(*p.DeliveryAddress)
	}
	if p.DeliveryDate != nil {
		o.DeliveryDate = *p.DeliveryDate
	}
	if p.Comment != nil {
		o.Comment = *p.Comment
	}
	if p.DeliveryComments != nil {
		o.DeliveryComments = *p.DeliveryComments
	}
}

type OrderService struct {
	orders   domain.OrderRepository
	catalog  domain.CatalogRepository
	users    domain.UserRepository
	slots    *SlotService
	sessions domain.SessionStore
	notifier *Notifier
	eventBus domain.EventPublisher
	clock    domain.Clock
	logger   *zerolog.Logger
}

func NewOrderService(
	orders domain.OrderRepository,
	catalog domain.CatalogRepository,
	users domain.UserRepository,
	slots *SlotService,
	sessions domain.SessionStore,
	notifier *Notifier,
	eventBus domain.EventPublisher,
	clock domain.Clock,
	logger *zerolog.Logger,
) *OrderService {
	return &OrderService{
		orders:   orders,
		catalog:  catalog,
		users:    users,
		slots:    slots,
		sessions: sessions,
		notifier: notifier,
		eventBus: eventBus,
		clock:    clock,
		logger:   logger,
	}
}

func validatePlaceOrder(req *PlaceOrderRequest) error {
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.Phone = models.NormalizePhone(req.Phone)
	req.Address = strings.TrimSpace(req.Address)
	req.Selection = strings.TrimSpace(req.Selection)

	switch {
	case req.ProductID <= 0:
		return newValidationError("product_id", "не выбран букет")
	case req.CustomerName == "":
		return newValidationError("name", "укажите имя")
	case req.Phone == "":
		return newValidationError("phone", "укажите телефон")
	case !models.ValidPhone(req.Phone):
		return newValidationError("phone", msgInvalidPhone)
	case req.Address == "":
		return newValidationError("address", "укажите адрес доставки")
	case req.Selection == "":
		return newValidationError("delivery_time", "выберите время доставки")
	}
	return nil
}

// PlaceOrder validates the checkout form, copies the product data onto the order and
// stores it together with the customer in one transaction.
func (s *OrderService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*models.Order, error) {
	if err := validatePlaceOrder(&req); err != nil {
		return nil, err
	}

	selection, err := s.slots.ResolveSelection(ctx, req.Selection)
	if err != nil {
		return nil, err
	}

	product, err := s.catalog.GetProduct(ctx, req.ProductID)
	if err != nil {
		return nil, translateNotFound(err, ErrProductNotFound)
	}
	if !product.IsActive() {
		return nil, ErrProductInactive
	}

	order := buildOrder(product, selection, req)
	customer := &models.ShopUser{
		ExternalID: uuid.NewString(),
		FullName:   req.CustomerName,
		Phone:      req.Phone,
		Address:    req.Address,
		Role:       models.RoleCustomer,
	}

	if err := s.orders.CreateOrderForCustomer(ctx, customer, order); err != nil {
		s.logger.Error().Err(err).Int64("product_id", req.ProductID).Msg("Failed to create order")
		return nil, err
	}

	metrics.IncOrderPlaced()
	s.logger.Info().
		Int64("order_id", order.ID).
		Int64("customer_id", order.CustomerID).
		Str("selection", selection.Raw).
		Msg("Order placed")

	s.publish(events.EventOrderCreated, order, "")
	return order, nil
}

// buildOrder materializes the product snapshot. Later catalog edits do not touch it.
func buildOrder(product *models.Product, selection *DeliverySelection, req PlaceOrderRequest) *models.Order {
	productID := product.ID
	return &models.Order{
		ProductID:          &productID,
		ProductName:        product.Name,
		ProductPrice:       product.Price,
		ProductComposition: product.Composition,
		ProductImage:       product.Image,
		DeliveryAddress:    req.Address,
		DeliveryDate:       selection.Date,
		IsExpress:          selection.IsExpress,
		DeliveryTimeFrom:   selection.From,
		DeliveryTimeTo:     selection.To,
		Status:             models.OrderCreated,
		Comment:            strings.TrimSpace(req.Comment),
	}
}

// FinalizeFromSession places the order from the selections saved in the checkout session.
func (s *OrderService) FinalizeFromSession(ctx context.Context, sessionID string, productID int64) (*models.Order, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	order, err := s.PlaceOrder(ctx, PlaceOrderRequest{
		ProductID:    productID,
		CustomerName: session.CustomerName,
		Phone:        session.Phone,
		Address:      session.Address,
		Comment:      session.Comment,
		Selection:    session.Selection,
	})
	if err != nil {
		return nil, err
	}

	if err := s.sessions.ClearSession(ctx, sessionID); err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("Failed to clear checkout session")
	}
	return order, nil
}

// UpdateOrder is the field-level admin save. The stored row is read, patched, checked
// and written in one transaction; the courier is messaged after commit when the
// transition requires it.
func (s *OrderService) UpdateOrder(ctx context.Context, id int64, patch OrderPatch) (*models.Order, error) {
	var courier *models.ShopUser
	if patch.CourierID != nil && !patch.ClearCourier {
		u, err := s.users.GetUserByID(ctx, *patch.CourierID)
		if err != nil || u.Role != models.RoleCourier {
			return nil, ErrCourierNotFound
		}
		courier = u
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, newValidationError("status", "неизвестный статус заказа")
	}

	now := s.clock.Now()
	before, after, err := s.orders.UpdateOrder(ctx, id, func(current *models.Order) (*models.Order, error) {
		if current.Status.IsTerminal() {
			return nil, ErrTerminalStatus
		}
		patch.apply(current)
		if current.Status == models.OrderInDelivery && !current.HasCourier() {
			return nil, ErrCourierRequired
		}
		if current.Status == models.OrderDelivered && current.DeliveredAt == nil {
			current.DeliveredAt = &now
		}
		return current, nil
	})
	if err != nil {
		return nil, translateNotFound(err, ErrOrderNotFound)
	}

	if before.Status != after.Status {
		metrics.IncStatusTransition(string(after.Status))
		s.logger.Info().
			Int64("order_id", id).
			Str("from", string(before.Status)).
			Str("to", string(after.Status)).
			Msg("Order status changed")
		s.publish(events.EventOrderStatusChanged, after, before.Status)
	}

	if RequiresCourierNotification(before, after) {
		if courier == nil {
			courier = after.Courier
		}
		if courier != nil {
			s.notifier.NotifyCourierAssigned(ctx, after, courier)
		}
	}
	return after, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	order, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, translateNotFound(err, ErrOrderNotFound)
	}
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, filter models.OrderFilter) ([]*models.Order, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, newValidationError("status", "неизвестный статус заказа")
	}
	return s.orders.ListOrders(ctx, filter)
}

func (s *OrderService) publish(eventType string, order *models.Order, prev models.OrderStatus) {
	publishOrderEvent(s.eventBus, s.logger, eventType, order, prev)
}

func publishOrderEvent(bus domain.EventPublisher, logger *zerolog.Logger, eventType string, order *models.Order, prev models.OrderStatus) {
	if bus == nil {
		return
	}
	if err := bus.PublishJSON(eventType, orderPayload(order, prev)); err != nil {
		logger.Error().Err(err).Str("event", eventType).Int64("order_id", order.ID).Msg("Failed to publish order event")
	}
}

func orderPayload(order *models.Order, prev models.OrderStatus) events.OrderEventPayload {
	p := events.OrderEventPayload{
		OrderID:      order.ID,
		ProductName:  order.ProductName,
		Address:      order.DeliveryAddress,
		DeliveryDate: order.DeliveryDate,
		IsExpress:    order.IsExpress,
		Status:       string(order.Status),
		PrevStatus:   string(prev),
	}
	if order.HasCourier() {
		p.CourierID = *order.CourierID
	}
	if order.Customer != nil {
		p.CustomerName = order.Customer.FullName
		p.CustomerPhone = order.Customer.Phone
	}
	if order.DeliveryTimeFrom != nil {
		p.TimeFrom = order.DeliveryTimeFrom.String()
	}
	if order.DeliveryTimeTo != nil {
		p.TimeTo = order.DeliveryTimeTo.String()
	}
	return p
}

// IsNotFound reports any of the not-found sentinels.
func IsNotFound(err error) bool {
	for _, target := range []error{ErrNotFound, ErrOrderNotFound, ErrProductNotFound, ErrSlotNotFound, ErrCourierNotFound, ErrSessionNotFound} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
