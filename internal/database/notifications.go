package database

import (
	"context"
	"fmt"
	"time"

	"flowershop/internal/models"
)

func (db *DB) RecordNotification(ctx context.Context, rec *models.NotificationRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	result, err := db.ExecContext(ctx,
		`INSERT INTO notifications (recipient, kind, order_id, success, error, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.Recipient, rec.Kind, rec.OrderID, rec.Success, rec.Error, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record notification: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	rec.ID = id
	return nil
}

// ListNotifications returns the latest delivery attempts, newest first.
func (db *DB) ListNotifications(ctx context.Context, onlyFailed bool, limit int) ([]models.NotificationRecord, error) {
	query := `SELECT id, recipient, kind, order_id, success, error, created_at FROM notifications`
	if onlyFailed {
		query += ` WHERE success = 0`
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`

	var records []models.NotificationRecord
	if err := db.SelectContext(ctx, &records, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return records, nil
}
