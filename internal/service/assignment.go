package service

import (
	"context"
	"errors"

	"flowershop/internal/domain"
	"flowershop/internal/events"
	"flowershop/internal/metrics"
	"flowershop/internal/models"

	"github.com/rs/zerolog"
)

type AssignRequest struct {
	OrderIDs       []int64 `json:"order_ids"`
	CourierID      int64   `json:"courier_id"`
	NotifyManagers bool    `json:"notify_managers"`
}

// AssignmentResult carries the messages shown to the administrator.
type AssignmentResult struct {
	Order          *models.Order   `json:"order,omitempty"`
	Messages       []string        `json:"messages"`
	Warnings       []string        `json:"warnings,omitempty"`
	Errors         []string        `json:"errors,omitempty"`
	CourierOutcome string          `json:"courier_outcome,omitempty"`
	Managers       *DispatchReport `json:"managers,omitempty"`
}

func (r *AssignmentResult) info(msg string)    { r.Messages = append(r.Messages, msg) }
func (r *AssignmentResult) warning(msg string) { r.Warnings = append(r.Warnings, msg) }
func (r *AssignmentResult) fail(msg string)    { r.Errors = append(r.Errors, msg) }

// errAlreadyAssigned aborts the assignment transaction for an order already in delivery.
type errAlreadyAssigned struct {
	courierID int64
}

func (e *errAlreadyAssigned) Error() string { return "order is already in delivery" }

// AssignmentService hands orders over to couriers. It is the only path that
// notifies couriers from the admin action; it does not go through the transition watcher.
type AssignmentService struct {
	orders   domain.OrderRepository
	users    domain.UserRepository
	notifier *Notifier
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

func NewAssignmentService(
	orders domain.OrderRepository,
	users domain.UserRepository,
	notifier *Notifier,
	eventBus domain.EventPublisher,
	logger *zerolog.Logger,
) *AssignmentService {
	return &AssignmentService{
		orders:   orders,
		users:    users,
		notifier: notifier,
		eventBus: eventBus,
		logger:   logger,
	}
}

// AssignCourier sets the courier and moves the order into delivery, then messages the
// courier and optionally the managers. Selection problems and rejected orders are
// reported in the result without an error; the error is for lookups and storage failures.
// Once the order is stored, notification problems only add warnings.
func (s *AssignmentService) AssignCourier(ctx context.Context, req AssignRequest) (*AssignmentResult, error) {
	result := &AssignmentResult{}

	switch {
	case len(req.OrderIDs) == 0 || req.CourierID <= 0:
		result.fail(msgNoOrderSelected)
		return result, nil
	case len(req.OrderIDs) > 1:
		result.warning(msgSelectOneOrder)
		return result, nil
	}
	orderID := req.OrderIDs[0]

	courier, err := s.users.GetUserByID(ctx, req.CourierID)
	if err != nil {
		return nil, translateNotFound(err, ErrCourierNotFound)
	}
	if courier.Role != models.RoleCourier {
		return nil, ErrCourierNotFound
	}

	before, order, err := s.orders.UpdateOrder(ctx, orderID, func(current *models.Order) (*models.Order, error) {
		if current.Status == models.OrderInDelivery && current.HasCourier() {
			return nil, &errAlreadyAssigned{courierID: *current.CourierID}
		}
		if current.Status.IsTerminal() {
			return nil, ErrTerminalStatus
		}
		current.CourierID = models.Int64Ptr(courier.ID)
		current.Status = models.OrderInDelivery
		return current, nil
	})

	var assigned *errAlreadyAssigned
	switch {
	case errors.As(err, &assigned):
		result.warning(alreadyAssignedMessage(orderID, s.courierName(ctx, assigned.courierID)))
		return result, nil
	case errors.Is(err, ErrTerminalStatus):
		if current, getErr := s.orders.GetOrder(ctx, orderID); getErr == nil {
			result.warning(terminalOrderMessage(orderID, current.Status))
		} else {
			result.warning(ErrTerminalStatus.Error())
		}
		return result, nil
	case err != nil:
		return nil, translateNotFound(err, ErrOrderNotFound)
	}

	s.logger.Info().Int64("order_id", order.ID).Int64("courier_id", courier.ID).Msg("Courier assigned")
	if before.Status != order.Status {
		metrics.IncStatusTransition(string(order.Status))
		publishOrderEvent(s.eventBus, s.logger, events.EventOrderStatusChanged, order, before.Status)
	}

	result.Order = order
	result.info(assignedMessage(order.ID, courier.FullName))

	switch s.notifier.NotifyCourierAssigned(ctx, order, courier) {
	case CourierNotified:
		result.CourierOutcome = "notified"
		result.info(msgCourierNotified)
	case CourierNoTelegram:
		result.CourierOutcome = "no_telegram"
		result.warning(courierNoTelegramMessage(courier.FullName))
	case CourierSendFailed:
		result.CourierOutcome = "send_failed"
		result.warning(msgCourierSendFailed)
	}

	if req.NotifyManagers {
		id := order.ID
		report := s.notifier.NotifyManagers(ctx, models.NotifyDeliveryHandoff, &id, handoffMessage(order, courier))
		result.Managers = &report
		if report.Total > 0 {
			result.info(managersNotifiedMessage(report.Sent, report.Total))
		}
	}
	return result, nil
}

func (s *AssignmentService) courierName(ctx context.Context, id int64) string {
	u, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return "#" + formatID(id)
	}
	return u.FullName
}
