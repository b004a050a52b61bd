package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type ProductStatus string

const (
	ProductActive   ProductStatus = "active"
	ProductArchived ProductStatus = "archived"
)

func (s ProductStatus) Valid() bool {
	return s == ProductActive || s == ProductArchived
}

type Category struct {
	ID   int64  `json:"id" db:"id" yaml:"id"`
	Name string `json:"name" db:"name" yaml:"name"`
}

// Product is a bouquet in the catalog.
type Product struct {
	ID           int64           `json:"id" db:"id" yaml:"id"`
	Name         string          `json:"name" db:"name" yaml:"name"`
	Description  string          `json:"description" db:"description" yaml:"description"`
	Composition  string          `json:"composition" db:"composition" yaml:"composition"`
	Price        decimal.Decimal `json:"price" db:"price" yaml:"-"`
	Image        string          `json:"image" db:"image" yaml:"image"`
	Status       ProductStatus   `json:"status" db:"status" yaml:"status"`
	IsFeatured   bool            `json:"is_featured" db:"is_featured" yaml:"is_featured"`
	IsBestseller bool            `json:"is_bestseller" db:"is_bestseller" yaml:"is_bestseller"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at" yaml:"-"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at" yaml:"-"`

	Categories []Category `json:"categories,omitempty" db:"-" yaml:"-"`
}

func (p *Product) IsActive() bool {
	return p != nil && p.Status == ProductActive
}

// PriceRange is a price bucket used by the quiz. Either bound may be absent.
type PriceRange struct {
	ID       int64            `json:"id" db:"id"`
	MinPrice *decimal.Decimal `json:"min_price,omitempty" db:"min_price"`
	MaxPrice *decimal.Decimal `json:"max_price,omitempty" db:"max_price"`
}

func (r PriceRange) String() string {
	switch {
	case r.MinPrice != nil && r.MaxPrice != nil:
		return fmt.Sprintf("%s - %s руб", r.MinPrice.String(), r.MaxPrice.String())
	case r.MinPrice != nil:
		return fmt.Sprintf("от %s руб", r.MinPrice.String())
	case r.MaxPrice != nil:
		return fmt.Sprintf("до %s руб", r.MaxPrice.String())
	default:
		return "Без ограничения"
	}
}

// Contains reports whether price falls inside the range, bounds inclusive.
func (r PriceRange) Contains(price decimal.Decimal) bool {
	if r.MinPrice != nil && price.LessThan(*r.MinPrice) {
		return false
	}
	if r.MaxPrice != nil && price.GreaterThan(*r.MaxPrice) {
		return false
	}
	return true
}

// ProductFilter selects products for listings and the quiz.
type ProductFilter struct {
	Status     ProductStatus
	CategoryID int64
	PriceRange *PriceRange
	Featured   bool
}

type CatalogPage struct {
	Products   []Product `json:"products"`
	Total      int       `json:"total"`
	HasMore    bool      `json:"has_more"`
	NextOffset int       `json:"next_offset"`
}
