package database

import (
	"context"
	"fmt"
	"time"

	"flowershop/internal/models"

	"github.com/jmoiron/sqlx"
)

const consultationColumns = `id, user_id, created_at, processed, manager_id, reminded_at`

func (db *DB) CreateConsultation(ctx context.Context, c *models.Consultation) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	result, err := db.ExecContext(ctx,
		`INSERT INTO consultations (user_id, created_at, processed, manager_id) VALUES (?, ?, ?, ?)`,
		c.UserID, c.CreatedAt, c.Processed, c.ManagerID)
	if err != nil {
		return fmt.Errorf("failed to create consultation: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	c.ID = id
	return nil
}

func (db *DB) GetConsultation(ctx context.Context, id int64) (*models.Consultation, error) {
	var c models.Consultation
	if err := db.GetContext(ctx, &c, `SELECT `+consultationColumns+` FROM consultations WHERE id = ?`, id); err != nil {
		return nil, notFound(err)
	}
	list := []*models.Consultation{&c}
	if err := db.attachConsultationUsers(ctx, list); err != nil {
		return nil, err
	}
	return &c, nil
}

func (db *DB) ListConsultations(ctx context.Context, onlyUnprocessed bool) ([]*models.Consultation, error) {
	query := `SELECT ` + consultationColumns + ` FROM consultations`
	if onlyUnprocessed {
		query += ` WHERE processed = 0`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	var list []*models.Consultation
	if err := db.SelectContext(ctx, &list, query); err != nil {
		return nil, fmt.Errorf("failed to list consultations: %w", err)
	}
	if err := db.attachConsultationUsers(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

func (db *DB) MarkConsultationProcessed(ctx context.Context, id int64, managerID *int64) error {
	result, err := db.ExecContext(ctx,
		`UPDATE consultations SET processed = 1, manager_id = COALESCE(?, manager_id) WHERE id = ?`,
		managerID, id)
	if err != nil {
		return fmt.Errorf("failed to mark consultation processed: %w", err)
	}
	return expectAffected(result)
}

// ListStaleConsultations returns unprocessed requests created before the cutoff
// that have not been included in a reminder yet.
func (db *DB) ListStaleConsultations(ctx context.Context, createdBefore time.Time) ([]*models.Consultation, error) {
	query := `SELECT ` + consultationColumns + ` FROM consultations
              WHERE processed = 0 AND reminded_at IS NULL AND created_at < ?
              ORDER BY created_at, id`
	var list []*models.Consultation
	if err := db.SelectContext(ctx, &list, query, createdBefore); err != nil {
		return nil, fmt.Errorf("failed to list stale consultations: %w", err)
	}
	if err := db.attachConsultationUsers(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

func (db *DB) MarkConsultationsReminded(ctx context.Context, ids []int64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`UPDATE consultations SET reminded_at = ? WHERE id IN (?)`, at, ids)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to mark consultations reminded: %w", err)
	}
	return nil
}

func (db *DB) attachConsultationUsers(ctx context.Context, list []*models.Consultation) error {
	ids := make([]int64, 0, len(list))
	for _, c := range list {
		ids = append(ids, c.UserID)
	}
	users, err := getUsersByIDs(ctx, db, ids)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, c := range list {
		c.User = users[c.UserID]
		c.Stale = c.IsStale(now)
	}
	return nil
}
