package database

import (
	"context"
	"fmt"
	"time"

	"flowershop/internal/models"
)

const shopColumns = `id, name, address, phone, working_hours, latitude, longitude, is_active, sort_order, created_at, updated_at`

func (db *DB) GetShop(ctx context.Context, id int64) (*models.Shop, error) {
	var shop models.Shop
	if err := db.GetContext(ctx, &shop, `SELECT `+shopColumns+` FROM shops WHERE id = ?`, id); err != nil {
		return nil, notFound(err)
	}
	return &shop, nil
}

func (db *DB) ListShops(ctx context.Context, onlyActive bool) ([]models.Shop, error) {
	query := `SELECT ` + shopColumns + ` FROM shops`
	if onlyActive {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY sort_order, name, id`

	var shops []models.Shop
	if err := db.SelectContext(ctx, &shops, query); err != nil {
		return nil, fmt.Errorf("failed to list shops: %w", err)
	}
	return shops, nil
}

func (db *DB) CreateShop(ctx context.Context, shop *models.Shop) error {
	query := `INSERT INTO shops (name, address, phone, working_hours, latitude, longitude, is_active, sort_order, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		shop.Name,
		shop.Address,
		shop.Phone,
		shop.WorkingHours,
		shop.Latitude,
		shop.Longitude,
		shop.IsActive,
		shop.SortOrder,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create shop: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	shop.ID = id
	shop.CreatedAt = now
	shop.UpdatedAt = now
	return nil
}

func (db *DB) UpdateShop(ctx context.Context, shop *models.Shop) error {
	query := `UPDATE shops
              SET name = ?, address = ?, phone = ?, working_hours = ?, latitude = ?, longitude = ?,
                  is_active = ?, sort_order = ?, updated_at = ?
              WHERE id = ?`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		shop.Name,
		shop.Address,
		shop.Phone,
		shop.WorkingHours,
		shop.Latitude,
		shop.Longitude,
		shop.IsActive,
		shop.SortOrder,
		now,
		shop.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update shop: %w", err)
	}
	if err := expectAffected(result); err != nil {
		return err
	}
	shop.UpdatedAt = now
	return nil
}

func (db *DB) DeleteShop(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM shops WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete shop: %w", err)
	}
	return expectAffected(result)
}
