package database

import (
	"context"
	"fmt"
	"time"

	"flowershop/internal/domain"
	"flowershop/internal/models"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

const orderColumns = `id, product_id, product_name, product_price, product_composition, product_image,
       customer_id, delivery_address, delivery_date, is_express, delivery_time_from, delivery_time_to,
       delivered_at, status, manager_id, courier_id, comment, delivery_comments, created_at, updated_at`

// GetOrder loads an order together with its customer, courier and manager.
func (db *DB) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	order, err := getOrder(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if err := attachOrderUsers(ctx, db, []*models.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

func getOrder(ctx context.Context, q sqlx.QueryerContext, id int64) (*models.Order, error) {
	var order models.Order
	if err := sqlx.GetContext(ctx, q, &order, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id); err != nil {
		return nil, notFound(err)
	}
	return &order, nil
}

func (db *DB) ListOrders(ctx context.Context, filter models.OrderFilter) ([]*models.Order, error) {
	builder := sq.Select(orderColumns).From("orders").OrderBy("created_at DESC", "id DESC")

	if filter.Status != "" {
		builder = builder.Where(sq.Eq{"status": filter.Status})
	}
	if filter.CourierID != 0 {
		builder = builder.Where(sq.Eq{"courier_id": filter.CourierID})
	}
	if filter.CustomerID != 0 {
		builder = builder.Where(sq.Eq{"customer_id": filter.CustomerID})
	}
	if !filter.From.IsZero() {
		builder = builder.Where(sq.GtOrEq{"delivery_date": filter.From.Format(models.DateLayout)})
	}
	if !filter.To.IsZero() {
		builder = builder.Where(sq.LtOrEq{"delivery_date": filter.To.Format(models.DateLayout)})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(filter.Limit).Offset(filter.Offset)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build orders query: %w", err)
	}

	var orders []*models.Order
	if err := db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	if err := attachOrderUsers(ctx, db, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// CreateOrderForCustomer resolves the customer by phone (creating it if needed)
// and inserts the order in the same transaction.
func (db *DB) CreateOrderForCustomer(ctx context.Context, customer *models.ShopUser, order *models.Order) error {
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		user, _, err := getOrCreateUserTx(ctx, tx, customer)
		if err != nil {
			return err
		}
		order.CustomerID = user.ID
		order.Customer = user
		return insertOrder(ctx, tx, order)
	})
}

func insertOrder(ctx context.Context, tx *sqlx.Tx, order *models.Order) error {
	if order.Status == "" {
		order.Status = models.OrderCreated
	}
	query := `INSERT INTO orders (
                product_id, product_name, product_price, product_composition, product_image,
                customer_id, delivery_address, delivery_date, is_express, delivery_time_from, delivery_time_to,
                delivered_at, status, manager_id, courier_id, comment, delivery_comments, created_at, updated_at
              ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := tx.ExecContext(ctx, query,
		order.ProductID,
		order.ProductName,
		order.ProductPrice,
		order.ProductComposition,
		order.ProductImage,
		order.CustomerID,
		order.DeliveryAddress,
		order.DeliveryDate.Format(models.DateLayout),
		order.IsExpress,
		order.DeliveryTimeFrom,
		order.DeliveryTimeTo,
		order.DeliveredAt,
		order.Status,
		order.ManagerID,
		order.CourierID,
		order.Comment,
		order.DeliveryComments,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	order.ID = id
	order.CreatedAt = now
	order.UpdatedAt = now
	return nil
}

// UpdateOrder reads the stored order, applies mutate and writes the result in one
// transaction. mutate must not call back into the database.
func (db *DB) UpdateOrder(ctx context.Context, id int64, mutate domain.OrderMutation) (before, after *models.Order, err error) {
	err = db.withTx(ctx, func(tx *sqlx.Tx) error {
		current, err := getOrder(ctx, tx, id)
		if err != nil {
			return err
		}
		before = current

		next, err := mutate(current.Clone())
		if err != nil {
			return err
		}
		next.ID = id
		next.UpdatedAt = time.Now()

		query := `UPDATE orders SET
                    product_id = ?, delivery_address = ?, delivery_date = ?, is_express = ?,
                    delivery_time_from = ?, delivery_time_to = ?, delivered_at = ?, status = ?,
                    manager_id = ?, courier_id = ?, comment = ?, delivery_comments = ?, updated_at = ?
                  WHERE id = ?`
		if _, err := tx.ExecContext(ctx, query,
			next.ProductID,
			next.DeliveryAddress,
			next.DeliveryDate.Format(models.DateLayout),
			next.IsExpress,
			next.DeliveryTimeFrom,
			next.DeliveryTimeTo,
			next.DeliveredAt,
			next.Status,
			next.ManagerID,
			next.CourierID,
			next.Comment,
			next.DeliveryComments,
			next.UpdatedAt,
			id,
		); err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}
		after = next
		// inside the transaction: the single connection is held until commit
		return attachOrderUsers(ctx, tx, []*models.Order{before, after})
	})
	if err != nil {
		return nil, nil, err
	}
	return before, after, nil
}

func attachOrderUsers(ctx context.Context, q sqlx.QueryerContext, orders []*models.Order) error {
	ids := make([]int64, 0, len(orders)*3)
	for _, o := range orders {
		ids = append(ids, o.CustomerID)
		if o.CourierID != nil {
			ids = append(ids, *o.CourierID)
		}
		if o.ManagerID != nil {
			ids = append(ids, *o.ManagerID)
		}
	}

	users, err := getUsersByIDs(ctx, q, ids)
	if err != nil {
		return err
	}

	for _, o := range orders {
		o.Customer = users[o.CustomerID]
		o.Courier = nil
		o.Manager = nil
		if o.CourierID != nil {
			o.Courier = users[*o.CourierID]
		}
		if o.ManagerID != nil {
			o.Manager = users[*o.ManagerID]
		}
	}
	return nil
}
