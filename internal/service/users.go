package service

import (
	"context"
	"strings"

	"flowershop/internal/domain"
	"flowershop/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type UserService struct {
	repo   domain.UserRepository
	logger *zerolog.Logger
}

func NewUserService(repo domain.UserRepository, logger *zerolog.Logger) *UserService {
	return &UserService{
		repo:   repo,
		logger: logger,
	}
}

func (s *UserService) Get(ctx context.Context, id int64) (*models.ShopUser, error) {
	return s.repo.GetUserByID(ctx, id)
}

func (s *UserService) List(ctx context.Context) ([]*models.ShopUser, error) {
	return s.repo.ListUsers(ctx)
}

func (s *UserService) ListByRole(ctx context.Context, role models.UserRole) ([]*models.ShopUser, error) {
	if !role.Valid() {
		return nil, newValidationError("role", "неизвестная роль")
	}
	return s.repo.ListUsersByRole(ctx, role)
}

func (s *UserService) ListCouriers(ctx context.Context) ([]*models.ShopUser, error) {
	return s.repo.ListUsersByRole(ctx, models.RoleCourier)
}

func (s *UserService) ListManagers(ctx context.Context) ([]*models.ShopUser, error) {
	return s.repo.ListUsersByRole(ctx, models.RoleManager)
}

func (s *UserService) GetOrCreateByPhone(ctx context.Context, name, phone string) (*models.ShopUser, error) {
	phone = models.NormalizePhone(phone)
	if phone == "" {
		return nil, newValidationError("phone", "укажите телефон")
	}
	if !models.ValidPhone(phone) {
		return nil, newValidationError("phone", msgInvalidPhone)
	}
	user, _, err := s.repo.GetOrCreateUserByPhone(ctx, &models.ShopUser{
		ExternalID: uuid.NewString(),
		FullName:   strings.TrimSpace(name),
		Phone:      phone,
		Role:       models.RoleCustomer,
	})
	return user, err
}

func validateUser(u *models.ShopUser) error {
	u.FullName = strings.TrimSpace(u.FullName)
	u.TelegramID = strings.TrimSpace(u.TelegramID)
	u.Phone = models.NormalizePhone(u.Phone)
	if u.Phone != "" && !models.ValidPhone(u.Phone) {
		return newValidationError("phone", msgInvalidPhone)
	}
	if u.Role == "" {
		u.Role = models.RoleCustomer
	}
	if !u.Role.Valid() {
		return newValidationError("role", "неизвестная роль")
	}
	if u.TelegramID != "" && !ValidChatID(u.TelegramID) {
		return newValidationError("telegram_id", "Telegram ID должен быть числом")
	}
	return nil
}

func (s *UserService) Create(ctx context.Context, u *models.ShopUser) error {
	if err := validateUser(u); err != nil {
		return err
	}
	if u.ExternalID == "" {
		u.ExternalID = uuid.NewString()
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return err
	}
	s.logger.Info().Int64("user_id", u.ID).Str("role", string(u.Role)).Msg("User created")
	return nil
}

func (s *UserService) Update(ctx context.Context, u *models.ShopUser) error {
	if err := validateUser(u); err != nil {
		return err
	}
	return s.repo.UpdateUser(ctx, u)
}
