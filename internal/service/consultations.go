package service

import (
	"context"
	"strings"

	"flowershop/internal/domain"
	"flowershop/internal/events"
	"flowershop/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type ConsultationService struct {
	repo     domain.ConsultationRepository
	users    domain.UserRepository
	notifier *Notifier
	eventBus domain.EventPublisher
	clock    domain.Clock
	logger   *zerolog.Logger
}

func NewConsultationService(
	repo domain.ConsultationRepository,
	users domain.UserRepository,
	notifier *Notifier,
	eventBus domain.EventPublisher,
	clock domain.Clock,
	logger *zerolog.Logger,
) *ConsultationService {
	return &ConsultationService{
		repo:     repo,
		users:    users,
		notifier: notifier,
		eventBus: eventBus,
		clock:    clock,
		logger:   logger,
	}
}

// Submit registers a call-back request. The customer is looked up by phone and created
// on first contact.
func (s *ConsultationService) Submit(ctx context.Context, name, phone string) (*models.Consultation, error) {
	name = strings.TrimSpace(name)
	phone = models.NormalizePhone(phone)
	if name == "" || phone == "" {
		return nil, newValidationError("form", "Заполните все поля")
	}
	if !models.ValidPhone(phone) {
		return nil, newValidationError("phone", msgInvalidPhone)
	}

	user, created, err := s.users.GetOrCreateUserByPhone(ctx, &models.ShopUser{
		ExternalID: uuid.NewString(),
		FullName:   name,
		Phone:      phone,
		Role:       models.RoleCustomer,
	})
	if err != nil {
		return nil, err
	}
	if created {
		s.logger.Info().Int64("user_id", user.ID).Msg("Customer registered from consultation form")
	}

	c := &models.Consultation{UserID: user.ID, CreatedAt: s.clock.Now(), User: user}
	if err := s.repo.CreateConsultation(ctx, c); err != nil {
		return nil, err
	}

	if s.eventBus != nil {
		payload := events.ConsultationEventPayload{
			ConsultationID: c.ID,
			UserName:       name,
			Phone:          phone,
			CreatedAt:      c.CreatedAt,
		}
		if err := s.eventBus.PublishJSON(events.EventConsultationCreated, payload); err != nil {
			s.logger.Error().Err(err).Int64("consultation_id", c.ID).Msg("Failed to publish consultation event")
		}
	}
	return c, nil
}

func (s *ConsultationService) List(ctx context.Context, onlyUnprocessed bool) ([]*models.Consultation, error) {
	list, err := s.repo.ListConsultations(ctx, onlyUnprocessed)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	for _, c := range list {
		c.Stale = c.IsStale(now)
	}
	return list, nil
}

func (s *ConsultationService) MarkProcessed(ctx context.Context, id int64, managerID *int64) error {
	if err := s.repo.MarkConsultationProcessed(ctx, id, managerID); err != nil {
		return err
	}
	s.logger.Info().Int64("consultation_id", id).Msg("Consultation processed")
	return nil
}

// RemindStale sends managers one digest of the requests waiting longer than
// ConsultationStaleAfter. Each request is included in at most one digest.
func (s *ConsultationService) RemindStale(ctx context.Context) (int, error) {
	now := s.clock.Now()
	stale, err := s.repo.ListStaleConsultations(ctx, now.Add(-models.ConsultationStaleAfter))
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	report := s.notifier.NotifyManagers(ctx, models.NotifyStaleConsultations, nil, staleConsultationsMessage(stale, now))
	if report.Sent == 0 {
		s.logger.Warn().Int("consultations", len(stale)).Msg("Stale consultation reminder was not delivered")
		return 0, nil
	}

	ids := make([]int64, 0, len(stale))
	for _, c := range stale {
		ids = append(ids, c.ID)
	}
	if err := s.repo.MarkConsultationsReminded(ctx, ids, now); err != nil {
		return 0, err
	}
	s.logger.Info().Int("consultations", len(ids)).Int("managers", report.Sent).Msg("Stale consultation reminder sent")
	return len(ids), nil
}
