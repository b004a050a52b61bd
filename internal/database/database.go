package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

type DB struct {
	*sqlx.DB
	path   string
	logger *zerolog.Logger
}

// NewDB opens the sqlite database at path and creates the schema.
// Transactions take the write lock immediately, so read-modify-write
// sequences inside UpdateOrder cannot interleave.
func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sqlx.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Один писатель: sqlite не поддерживает параллельные транзакции записи
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &DB{DB: conn, path: path, logger: logger}
	if err := db.createTables(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if logger != nil {
		logger.Info().Str("path", path).Msg("База данных инициализирована")
	}
	return db, nil
}

func dsn(path string) string {
	params := "_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"
	if strings.HasPrefix(path, "file:") {
		return path + "?" + params
	}
	return "file:" + path + "?" + params
}

// Path returns the on-disk location used for backups.
func (db *DB) Path() string {
	return db.path
}

func (db *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS shop_users (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            external_id TEXT NOT NULL UNIQUE,
            full_name TEXT NOT NULL,
            phone TEXT UNIQUE,
            address TEXT NOT NULL DEFAULT '',
            role TEXT NOT NULL DEFAULT 'user',
            telegram_id TEXT NOT NULL DEFAULT '',
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS categories (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL UNIQUE
        )`,
		`CREATE TABLE IF NOT EXISTS price_ranges (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            min_price NUMERIC,
            max_price NUMERIC
        )`,
		`CREATE TABLE IF NOT EXISTS products (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            composition TEXT NOT NULL DEFAULT '',
            price NUMERIC NOT NULL,
            image TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL DEFAULT 'active',
            is_featured BOOLEAN NOT NULL DEFAULT 0,
            is_bestseller BOOLEAN NOT NULL DEFAULT 0,
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS product_categories (
            product_id INTEGER NOT NULL REFERENCES products(id) ON DELETE CASCADE,
            category_id INTEGER NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
            PRIMARY KEY (product_id, category_id)
        )`,
		`CREATE TABLE IF NOT EXISTS delivery_slots (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            time_start TEXT NOT NULL,
            time_end TEXT NOT NULL,
            label TEXT NOT NULL DEFAULT '',
            available_tomorrow BOOLEAN NOT NULL DEFAULT 0,
            is_express BOOLEAN NOT NULL DEFAULT 0,
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS orders (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            product_id INTEGER REFERENCES products(id) ON DELETE SET NULL,
            product_name TEXT NOT NULL,
            product_price NUMERIC NOT NULL,
            product_composition TEXT NOT NULL DEFAULT '',
            product_image TEXT NOT NULL DEFAULT '',
            customer_id INTEGER NOT NULL REFERENCES shop_users(id),
            delivery_address TEXT NOT NULL,
            delivery_date DATE NOT NULL,
            is_express BOOLEAN NOT NULL DEFAULT 0,
            delivery_time_from TEXT,
            delivery_time_to TEXT,
            delivered_at DATETIME,
            status TEXT NOT NULL DEFAULT 'created',
            manager_id INTEGER REFERENCES shop_users(id) ON DELETE SET NULL,
            courier_id INTEGER REFERENCES shop_users(id) ON DELETE SET NULL,
            comment TEXT NOT NULL DEFAULT '',
            delivery_comments TEXT NOT NULL DEFAULT '',
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS consultations (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            user_id INTEGER NOT NULL REFERENCES shop_users(id) ON DELETE CASCADE,
            created_at DATETIME NOT NULL,
            processed BOOLEAN NOT NULL DEFAULT 0,
            manager_id INTEGER REFERENCES shop_users(id) ON DELETE SET NULL,
            reminded_at DATETIME
        )`,
		`CREATE TABLE IF NOT EXISTS shops (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            address TEXT NOT NULL DEFAULT '',
            phone TEXT NOT NULL DEFAULT '',
            working_hours TEXT NOT NULL DEFAULT '',
            latitude REAL,
            longitude REAL,
            is_active BOOLEAN NOT NULL DEFAULT 1,
            sort_order INTEGER NOT NULL DEFAULT 0,
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS notifications (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            recipient TEXT NOT NULL,
            kind TEXT NOT NULL,
            order_id INTEGER,
            success BOOLEAN NOT NULL,
            error TEXT NOT NULL DEFAULT '',
            created_at DATETIME NOT NULL
        )`,

		// Не больше одного экспресс-слота
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_delivery_slots_single_express ON delivery_slots(is_express) WHERE is_express = 1`,

		`CREATE INDEX IF NOT EXISTS idx_shop_users_role ON shop_users(role)`,
		`CREATE INDEX IF NOT EXISTS idx_products_status ON products(status)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_courier_id ON orders(courier_id)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_delivery_date ON orders(delivery_date)`,
		`CREATE INDEX IF NOT EXISTS idx_consultations_processed ON consultations(processed)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_success ON notifications(success)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// withTx runs fn inside a transaction and commits when fn returns nil.
func (db *DB) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func expectAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
