package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"flowershop/internal/models"

	"github.com/jmoiron/sqlx"
)

const userColumns = `id, external_id, full_name, COALESCE(phone, '') AS phone, address, role, telegram_id, created_at, updated_at`

func (db *DB) GetUserByID(ctx context.Context, id int64) (*models.ShopUser, error) {
	return getUser(ctx, db, `SELECT `+userColumns+` FROM shop_users WHERE id = ?`, id)
}

func (db *DB) GetUserByPhone(ctx context.Context, phone string) (*models.ShopUser, error) {
	return getUser(ctx, db, `SELECT `+userColumns+` FROM shop_users WHERE phone = ?`, models.NormalizePhone(phone))
}

func getUser(ctx context.Context, q sqlx.QueryerContext, query string, args ...interface{}) (*models.ShopUser, error) {
	var user models.ShopUser
	if err := sqlx.GetContext(ctx, q, &user, query, args...); err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (db *DB) CreateUser(ctx context.Context, user *models.ShopUser) error {
	return insertUser(ctx, db, user)
}

func insertUser(ctx context.Context, e sqlx.ExtContext, user *models.ShopUser) error {
	if user.Role == "" {
		user.Role = models.RoleCustomer
	}
	user.Phone = models.NormalizePhone(user.Phone)

	query := `INSERT INTO shop_users (external_id, full_name, phone, address, role, telegram_id, created_at, updated_at)
              VALUES (?, ?, NULLIF(?, ''), ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := e.ExecContext(ctx, query,
		user.ExternalID,
		user.FullName,
		user.Phone,
		user.Address,
		user.Role,
		user.TelegramID,
		now,
		now,
	)
	if err != nil {
		return mapUserConstraint(err, "failed to create user")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (db *DB) UpdateUser(ctx context.Context, user *models.ShopUser) error {
	user.Phone = models.NormalizePhone(user.Phone)
	query := `UPDATE shop_users
              SET full_name = ?, phone = NULLIF(?, ''), address = ?, role = ?, telegram_id = ?, updated_at = ?
              WHERE id = ?`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		user.FullName, user.Phone, user.Address, user.Role, user.TelegramID, now, user.ID)
	if err != nil {
		return mapUserConstraint(err, "failed to update user")
	}
	if err := expectAffected(result); err != nil {
		return err
	}
	user.UpdatedAt = now
	return nil
}

// GetOrCreateUserByPhone returns the user registered under the phone, creating it from
// the given template when absent. The bool reports whether a row was created.
func (db *DB) GetOrCreateUserByPhone(ctx context.Context, user *models.ShopUser) (*models.ShopUser, bool, error) {
	var (
		result  *models.ShopUser
		created bool
	)
	err := db.withTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		result, created, err = getOrCreateUserTx(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return result, created, nil
}

func getOrCreateUserTx(ctx context.Context, tx *sqlx.Tx, user *models.ShopUser) (*models.ShopUser, bool, error) {
	phone := models.NormalizePhone(user.Phone)
	if phone == "" {
		return nil, false, fmt.Errorf("phone is required to resolve a customer")
	}

	existing, err := getUser(ctx, tx, `SELECT `+userColumns+` FROM shop_users WHERE phone = ?`, phone)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, fmt.Errorf("failed to look up user by phone: %w", err)
	}

	fresh := *user
	fresh.Phone = phone
	if err := insertUser(ctx, tx, &fresh); err != nil {
		return nil, false, err
	}
	return &fresh, true, nil
}

func (db *DB) ListUsers(ctx context.Context) ([]*models.ShopUser, error) {
	var users []*models.ShopUser
	if err := db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM shop_users ORDER BY created_at DESC, id DESC`); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (db *DB) ListUsersByRole(ctx context.Context, role models.UserRole) ([]*models.ShopUser, error) {
	var users []*models.ShopUser
	query := `SELECT ` + userColumns + ` FROM shop_users WHERE role = ? ORDER BY full_name, id`
	if err := db.SelectContext(ctx, &users, query, role); err != nil {
		return nil, fmt.Errorf("failed to list users by role: %w", err)
	}
	return users, nil
}

func getUsersByIDs(ctx context.Context, q sqlx.QueryerContext, ids []int64) (map[int64]*models.ShopUser, error) {
	out := make(map[int64]*models.ShopUser, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query, args, err := sqlx.In(`SELECT `+userColumns+` FROM shop_users WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	var users []*models.ShopUser
	if err := sqlx.SelectContext(ctx, q, &users, query, args...); err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func mapUserConstraint(err error, op string) error {
	switch {
	case isUniqueViolation(err, "shop_users.phone"):
		return ErrPhoneTaken
	case isUniqueViolation(err, "shop_users.external_id"):
		return ErrExternalIDTaken
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
