package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"flowershop/internal/database"
	"flowershop/internal/models"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type seedPriceRange struct {
	Min *string `yaml:"min"`
	Max *string `yaml:"max"`
}

type seedProduct struct {
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description"`
	Composition  string   `yaml:"composition"`
	Price        string   `yaml:"price"`
	Image        string   `yaml:"image"`
	IsFeatured   bool     `yaml:"is_featured"`
	IsBestseller bool     `yaml:"is_bestseller"`
	Categories   []string `yaml:"categories"`
}

type CatalogSeed struct {
	PriceRanges []seedPriceRange `yaml:"price_ranges"`
	Products    []seedProduct    `yaml:"products"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	var (
		seedPath = flag.String("catalog", "configs/catalog.yaml", "path to catalog.yaml")
		dbPath   = flag.String("db", "./data/flowershop.db", "path to sqlite db")
	)
	flag.Parse()

	data, err := os.ReadFile(*seedPath)
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}
	var seed CatalogSeed
	if err = yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("parse catalog: %w", err)
	}
	if len(seed.Products) == 0 && len(seed.PriceRanges) == 0 {
		return fmt.Errorf("nothing to import in %s", *seedPath)
	}

	db, err := database.NewDB(*dbPath, &logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	ranges, err := seedPriceRanges(ctx, db, seed.PriceRanges)
	if err != nil {
		return err
	}
	created, skipped, err := seedProducts(ctx, db, seed.Products)
	if err != nil {
		return err
	}

	logger.Info().
		Int("price_ranges_created", ranges).
		Int("products_created", created).
		Int("products_skipped", skipped).
		Msg("catalog import finished")
	return nil
}

func parseOptionalPrice(raw *string) (*decimal.Decimal, error) {
	if raw == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// seedPriceRanges creates ranges whose bounds are not stored yet.
func seedPriceRanges(ctx context.Context, db *database.DB, seeds []seedPriceRange) (int, error) {
	existing, err := db.ListPriceRanges(ctx)
	if err != nil {
		return 0, fmt.Errorf("list price ranges: %w", err)
	}
	known := make(map[string]bool, len(existing))
	for _, r := range existing {
		known[r.String()] = true
	}

	created := 0
	for _, s := range seeds {
		minPrice, err := parseOptionalPrice(s.Min)
		if err != nil {
			return created, fmt.Errorf("price range min: %w", err)
		}
		maxPrice, err := parseOptionalPrice(s.Max)
		if err != nil {
			return created, fmt.Errorf("price range max: %w", err)
		}
		r := &models.PriceRange{MinPrice: minPrice, MaxPrice: maxPrice}
		if known[r.String()] {
			continue
		}
		if err := db.CreatePriceRange(ctx, r); err != nil {
			return created, fmt.Errorf("create price range %s: %w", r, err)
		}
		known[r.String()] = true
		created++
	}
	return created, nil
}

// seedProducts creates missing categories and the products not yet in the catalog, matched by name.
func seedProducts(ctx context.Context, db *database.DB, seeds []seedProduct) (created, skipped int, err error) {
	categories, err := db.ListCategories(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list categories: %w", err)
	}
	categoryIDs := make(map[string]int64, len(categories))
	for _, c := range categories {
		categoryIDs[c.Name] = c.ID
	}

	products, err := db.ListProducts(ctx, models.ProductFilter{}, 0, 0)
	if err != nil {
		return 0, 0, fmt.Errorf("list products: %w", err)
	}
	names := make(map[string]bool, len(products))
	for _, p := range products {
		names[p.Name] = true
	}

	for _, s := range seeds {
		if names[s.Name] {
			skipped++
			continue
		}
		price, err := decimal.NewFromString(s.Price)
		if err != nil {
			return created, skipped, fmt.Errorf("product %q price: %w", s.Name, err)
		}

		ids := make([]int64, 0, len(s.Categories))
		for _, name := range s.Categories {
			id, ok := categoryIDs[name]
			if !ok {
				c := &models.Category{Name: name}
				if err := db.CreateCategory(ctx, c); err != nil {
					return created, skipped, fmt.Errorf("create category %q: %w", name, err)
				}
				id = c.ID
				categoryIDs[name] = id
			}
			ids = append(ids, id)
		}

		p := &models.Product{
			Name:         s.Name,
			Description:  s.Description,
			Composition:  s.Composition,
			Price:        price,
			Image:        s.Image,
			Status:       models.ProductActive,
			IsFeatured:   s.IsFeatured,
			IsBestseller: s.IsBestseller,
		}
		if err := db.CreateProduct(ctx, p, ids); err != nil {
			return created, skipped, fmt.Errorf("create product %q: %w", s.Name, err)
		}
		names[s.Name] = true
		created++
	}
	return created, skipped, nil
}
