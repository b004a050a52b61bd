package database

import (
	"context"
	"fmt"
	"time"

	"flowershop/internal/models"
)

const slotColumns = `id, time_start, time_end, label, available_tomorrow, is_express, created_at, updated_at`

// ListSlots returns all slots ordered by start time.
func (db *DB) ListSlots(ctx context.Context) ([]models.DeliveryTimeSlot, error) {
	var slots []models.DeliveryTimeSlot
	query := `SELECT ` + slotColumns + ` FROM delivery_slots ORDER BY time_start, id`
	if err := db.SelectContext(ctx, &slots, query); err != nil {
		return nil, fmt.Errorf("failed to list delivery slots: %w", err)
	}
	return slots, nil
}

func (db *DB) GetSlot(ctx context.Context, id int64) (*models.DeliveryTimeSlot, error) {
	var slot models.DeliveryTimeSlot
	if err := db.GetContext(ctx, &slot, `SELECT `+slotColumns+` FROM delivery_slots WHERE id = ?`, id); err != nil {
		return nil, notFound(err)
	}
	return &slot, nil
}

func (db *DB) CreateSlot(ctx context.Context, slot *models.DeliveryTimeSlot) error {
	query := `INSERT INTO delivery_slots (time_start, time_end, label, available_tomorrow, is_express, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)`
	if slot.Label == "" {
		slot.Label = slot.DefaultLabel()
	}
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		slot.Start, slot.End, slot.Label, slot.AvailableTomorrow, slot.IsExpress, now, now)
	if err != nil {
		return mapSlotConstraint(err, "failed to create delivery slot")
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	slot.ID = id
	slot.CreatedAt = now
	slot.UpdatedAt = now
	return nil
}

func (db *DB) UpdateSlot(ctx context.Context, slot *models.DeliveryTimeSlot) error {
	query := `UPDATE delivery_slots
              SET time_start = ?, time_end = ?, label = ?, available_tomorrow = ?, is_express = ?, updated_at = ?
              WHERE id = ?`
	if slot.Label == "" {
		slot.Label = slot.DefaultLabel()
	}
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		slot.Start, slot.End, slot.Label, slot.AvailableTomorrow, slot.IsExpress, now, slot.ID)
	if err != nil {
		return mapSlotConstraint(err, "failed to update delivery slot")
	}
	if err := expectAffected(result); err != nil {
		return err
	}
	slot.UpdatedAt = now
	return nil
}

func (db *DB) DeleteSlot(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM delivery_slots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete delivery slot: %w", err)
	}
	return expectAffected(result)
}

// SyncSlots upserts slots loaded from the configuration file, keyed by id.
func (db *DB) SyncSlots(ctx context.Context, slots []models.DeliveryTimeSlot) error {
	query := `INSERT INTO delivery_slots (id, time_start, time_end, label, available_tomorrow, is_express, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT(id) DO UPDATE SET
                time_start = excluded.time_start,
                time_end = excluded.time_end,
                label = excluded.label,
                available_tomorrow = excluded.available_tomorrow,
                is_express = excluded.is_express,
                updated_at = excluded.updated_at`

	now := time.Now()
	for _, slot := range slots {
		label := slot.Label
		if label == "" {
			label = slot.DefaultLabel()
		}
		if _, err := db.ExecContext(ctx, query,
			slot.ID, slot.Start, slot.End, label, slot.AvailableTomorrow, slot.IsExpress, now, now); err != nil {
			return mapSlotConstraint(err, fmt.Sprintf("failed to sync slot %d", slot.ID))
		}
	}
	return nil
}

func mapSlotConstraint(err error, op string) error {
	if isUniqueViolation(err, "is_express") {
		return ErrExpressSlotExists
	}
	return fmt.Errorf("%s: %w", op, err)
}
