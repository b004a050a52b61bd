package service

import (
	"context"
	"strings"

	"flowershop/internal/domain"
	"flowershop/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OrderStepRequest is the first checkout step: who, where and when.
type OrderStepRequest struct {
	CustomerName string
	Phone        string
	Address      string
	Comment      string
	Selection    string
}

type SessionService struct {
	store  domain.SessionStore
	slots  *SlotService
	clock  domain.Clock
	logger *zerolog.Logger
}

func NewSessionService(store domain.SessionStore, slots *SlotService, clock domain.Clock, logger *zerolog.Logger) *SessionService {
	return &SessionService{
		store:  store,
		slots:  slots,
		clock:  clock,
		logger: logger,
	}
}

// SaveStep validates the step and stores it. An empty sessionID starts a new session.
func (s *SessionService) SaveStep(ctx context.Context, sessionID string, req OrderStepRequest) (*models.CheckoutSession, error) {
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.Phone = models.NormalizePhone(req.Phone)
	req.Address = strings.TrimSpace(req.Address)
	switch {
	case req.CustomerName == "":
		return nil, newValidationError("name", "укажите имя")
	case req.Phone == "":
		return nil, newValidationError("phone", "укажите телефон")
	case !models.ValidPhone(req.Phone):
		return nil, newValidationError("phone", msgInvalidPhone)
	case req.Address == "":
		return nil, newValidationError("address", "укажите адрес доставки")
	}

	selection, err := s.slots.ResolveSelection(ctx, req.Selection)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(sessionID) == "" {
		sessionID = uuid.NewString()
	}
	session := &models.CheckoutSession{
		ID:               sessionID,
		CustomerName:     req.CustomerName,
		Phone:            req.Phone,
		Address:          req.Address,
		Comment:          strings.TrimSpace(req.Comment),
		Selection:        selection.Raw,
		DeliveryDate:     selection.Date,
		IsExpress:        selection.IsExpress,
		DeliveryTimeFrom: selection.From,
		DeliveryTimeTo:   selection.To,
		UpdatedAt:        s.clock.Now(),
	}
	if err := s.store.SetSession(ctx, session); err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("Failed to save checkout session")
		return nil, err
	}
	return session, nil
}

func (s *SessionService) Get(ctx context.Context, sessionID string) (*models.CheckoutSession, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (s *SessionService) Clear(ctx context.Context, sessionID string) error {
	return s.store.ClearSession(ctx, sessionID)
}
