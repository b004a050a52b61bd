package database

import (
	"context"
	"fmt"
	"time"

	"flowershop/internal/models"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

const productColumns = `p.id, p.name, p.description, p.composition, p.price, p.image, p.status,
       p.is_featured, p.is_bestseller, p.created_at, p.updated_at`

func (db *DB) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	if err := db.GetContext(ctx, &product, `SELECT `+productColumns+` FROM products p WHERE p.id = ?`, id); err != nil {
		return nil, notFound(err)
	}
	products := []models.Product{product}
	if err := db.attachCategories(ctx, products); err != nil {
		return nil, err
	}
	return &products[0], nil
}

func productQuery(columns string, filter models.ProductFilter) sq.SelectBuilder {
	builder := sq.Select(columns).From("products p")
	if filter.Status != "" {
		builder = builder.Where(sq.Eq{"p.status": filter.Status})
	}
	if filter.Featured {
		builder = builder.Where(sq.Eq{"p.is_featured": true})
	}
	if filter.CategoryID != 0 {
		builder = builder.Where(sq.Expr(
			"EXISTS (SELECT 1 FROM product_categories pc WHERE pc.product_id = p.id AND pc.category_id = ?)",
			filter.CategoryID,
		))
	}
	if r := filter.PriceRange; r != nil {
		if r.MinPrice != nil {
			builder = builder.Where(sq.GtOrEq{"p.price": *r.MinPrice})
		}
		if r.MaxPrice != nil {
			builder = builder.Where(sq.LtOrEq{"p.price": *r.MaxPrice})
		}
	}
	return builder
}

// ListProducts returns a page of products, newest first.
func (db *DB) ListProducts(ctx context.Context, filter models.ProductFilter, offset, limit int) ([]models.Product, error) {
	builder := productQuery(productColumns, filter).OrderBy("p.created_at DESC", "p.id DESC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit)).Offset(uint64(offset))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build products query: %w", err)
	}

	var products []models.Product
	if err := db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	if err := db.attachCategories(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

func (db *DB) CountProducts(ctx context.Context, filter models.ProductFilter) (int, error) {
	query, args, err := productQuery("COUNT(*)", filter).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}
	var count int
	if err := db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return count, nil
}

// RandomProduct picks one product matching filter. ErrNotFound when none match.
func (db *DB) RandomProduct(ctx context.Context, filter models.ProductFilter) (*models.Product, error) {
	query, args, err := productQuery(productColumns, filter).OrderBy("RANDOM()").Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build random product query: %w", err)
	}
	var product models.Product
	if err := db.GetContext(ctx, &product, query, args...); err != nil {
		return nil, notFound(err)
	}
	products := []models.Product{product}
	if err := db.attachCategories(ctx, products); err != nil {
		return nil, err
	}
	return &products[0], nil
}

func (db *DB) CreateProduct(ctx context.Context, product *models.Product, categoryIDs []int64) error {
	if product.Status == "" {
		product.Status = models.ProductActive
	}
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		query := `INSERT INTO products (name, description, composition, price, image, status, is_featured, is_bestseller, created_at, updated_at)
                  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		now := time.Now()
		result, err := tx.ExecContext(ctx, query,
			product.Name,
			product.Description,
			product.Composition,
			product.Price,
			product.Image,
			product.Status,
			product.IsFeatured,
			product.IsBestseller,
			now,
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		product.ID = id
		product.CreatedAt = now
		product.UpdatedAt = now
		return setProductCategories(ctx, tx, id, categoryIDs)
	})
}

// UpdateProduct overwrites the product row. A nil categoryIDs keeps the current categories.
func (db *DB) UpdateProduct(ctx context.Context, product *models.Product, categoryIDs []int64) error {
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		query := `UPDATE products
                  SET name = ?, description = ?, composition = ?, price = ?, image = ?, status = ?,
                      is_featured = ?, is_bestseller = ?, updated_at = ?
                  WHERE id = ?`
		now := time.Now()
		result, err := tx.ExecContext(ctx, query,
			product.Name,
			product.Description,
			product.Composition,
			product.Price,
			product.Image,
			product.Status,
			product.IsFeatured,
			product.IsBestseller,
			now,
			product.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update product: %w", err)
		}
		if err := expectAffected(result); err != nil {
			return err
		}
		product.UpdatedAt = now
		if categoryIDs == nil {
			return nil
		}
		return setProductCategories(ctx, tx, product.ID, categoryIDs)
	})
}

func setProductCategories(ctx context.Context, tx *sqlx.Tx, productID int64, categoryIDs []int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM product_categories WHERE product_id = ?`, productID); err != nil {
		return fmt.Errorf("failed to clear product categories: %w", err)
	}
	for _, categoryID := range categoryIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO product_categories (product_id, category_id) VALUES (?, ?)`,
			productID, categoryID,
		); err != nil {
			return fmt.Errorf("failed to link category %d: %w", categoryID, err)
		}
	}
	return nil
}

func (db *DB) SetProductStatus(ctx context.Context, id int64, status models.ProductStatus) error {
	result, err := db.ExecContext(ctx,
		`UPDATE products SET status = ?, updated_at = ? WHERE id = ?`, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set product status: %w", err)
	}
	return expectAffected(result)
}

// DeleteProduct removes the product. Orders keep their snapshot and lose only the link.
func (db *DB) DeleteProduct(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return expectAffected(result)
}

func (db *DB) attachCategories(ctx context.Context, products []models.Product) error {
	if len(products) == 0 {
		return nil
	}
	ids := make([]int64, len(products))
	for i := range products {
		ids[i] = products[i].ID
	}

	query, args, err := sqlx.In(`SELECT pc.product_id, c.id, c.name
                                 FROM product_categories pc
                                 JOIN categories c ON c.id = pc.category_id
                                 WHERE pc.product_id IN (?)
                                 ORDER BY c.name`, ids)
	if err != nil {
		return err
	}

	var rows []struct {
		ProductID int64 `db:"product_id"`
		models.Category
	}
	if err := db.SelectContext(ctx, &rows, query, args...); err != nil {
		return fmt.Errorf("failed to load product categories: %w", err)
	}

	byProduct := make(map[int64][]models.Category)
	for _, row := range rows {
		byProduct[row.ProductID] = append(byProduct[row.ProductID], row.Category)
	}
	for i := range products {
		products[i].Categories = byProduct[products[i].ID]
	}
	return nil
}

func (db *DB) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := db.SelectContext(ctx, &categories, `SELECT id, name FROM categories ORDER BY name`); err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

func (db *DB) CreateCategory(ctx context.Context, category *models.Category) error {
	result, err := db.ExecContext(ctx, `INSERT INTO categories (name) VALUES (?)`, category.Name)
	if err != nil {
		if isUniqueViolation(err, "categories.name") {
			return ErrDuplicateName
		}
		return fmt.Errorf("failed to create category: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	category.ID = id
	return nil
}

func (db *DB) DeleteCategory(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return expectAffected(result)
}

func (db *DB) ListPriceRanges(ctx context.Context) ([]models.PriceRange, error) {
	var ranges []models.PriceRange
	query := `SELECT id, min_price, max_price FROM price_ranges ORDER BY COALESCE(min_price, 0), id`
	if err := db.SelectContext(ctx, &ranges, query); err != nil {
		return nil, fmt.Errorf("failed to list price ranges: %w", err)
	}
	return ranges, nil
}

func (db *DB) GetPriceRange(ctx context.Context, id int64) (*models.PriceRange, error) {
	var r models.PriceRange
	if err := db.GetContext(ctx, &r, `SELECT id, min_price, max_price FROM price_ranges WHERE id = ?`, id); err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

func (db *DB) CreatePriceRange(ctx context.Context, r *models.PriceRange) error {
	result, err := db.ExecContext(ctx, `INSERT INTO price_ranges (min_price, max_price) VALUES (?, ?)`, r.MinPrice, r.MaxPrice)
	if err != nil {
		return fmt.Errorf("failed to create price range: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	r.ID = id
	return nil
}

func (db *DB) DeletePriceRange(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM price_ranges WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete price range: %w", err)
	}
	return expectAffected(result)
}
