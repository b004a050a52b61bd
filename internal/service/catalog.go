package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"flowershop/internal/database"
	"flowershop/internal/domain"
	"flowershop/internal/models"

	"github.com/rs/zerolog"
)

// featuredLimit is how many featured bouquets the home page shows.
const featuredLimit = 6

type CatalogConfig struct {
	PageSize     int
	LoadMoreSize int
	FeaturedTTL  time.Duration
}

type CatalogService struct {
	repo   domain.CatalogRepository
	cache  domain.Cache
	cfg    CatalogConfig
	logger *zerolog.Logger
}

func NewCatalogService(repo domain.CatalogRepository, cache domain.Cache, cfg CatalogConfig, logger *zerolog.Logger) *CatalogService {
	if cfg.PageSize <= 0 {
		cfg.PageSize = models.CatalogPageSize
	}
	if cfg.LoadMoreSize <= 0 {
		cfg.LoadMoreSize = models.LoadMoreSize
	}
	if cfg.FeaturedTTL <= 0 {
		cfg.FeaturedTTL = models.FeaturedCacheTTL
	}
	return &CatalogService{
		repo:   repo,
		cache:  cache,
		cfg:    cfg,
		logger: logger,
	}
}

var activeProducts = models.ProductFilter{Status: models.ProductActive}

// CatalogPage returns the first page of active bouquets.
func (s *CatalogService) CatalogPage(ctx context.Context) (*models.CatalogPage, error) {
	return s.page(ctx, 0, s.cfg.PageSize)
}

// LoadMore returns the next batch after offset.
func (s *CatalogService) LoadMore(ctx context.Context, offset int) (*models.CatalogPage, error) {
	if offset < 0 {
		offset = 0
	}
	return s.page(ctx, offset, s.cfg.LoadMoreSize)
}

func (s *CatalogService) page(ctx context.Context, offset, limit int) (*models.CatalogPage, error) {
	total, err := s.repo.CountProducts(ctx, activeProducts)
	if err != nil {
		return nil, err
	}
	products, err := s.ListActive(ctx, offset, limit)
	if err != nil {
		return nil, err
	}
	return &models.CatalogPage{
		Products:   products,
		Total:      total,
		HasMore:    total > offset+limit,
		NextOffset: offset + limit,
	}, nil
}

func (s *CatalogService) ListActive(ctx context.Context, offset, limit int) ([]models.Product, error) {
	return s.repo.ListProducts(ctx, activeProducts, offset, limit)
}

func (s *CatalogService) ListProducts(ctx context.Context, filter models.ProductFilter, offset, limit int) ([]models.Product, error) {
	return s.repo.ListProducts(ctx, filter, offset, limit)
}

// FeaturedProducts is served from cache; product writes invalidate it.
func (s *CatalogService) FeaturedProducts(ctx context.Context) ([]models.Product, error) {
	return cachedJSON(ctx, s.cache, s.logger, models.CacheKeyFeaturedProducts, s.cfg.FeaturedTTL,
		func(ctx context.Context) ([]models.Product, error) {
			filter := models.ProductFilter{Status: models.ProductActive, Featured: true}
			return s.repo.ListProducts(ctx, filter, 0, featuredLimit)
		})
}

func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, translateNotFound(err, ErrProductNotFound)
	}
	return p, nil
}

func validateProduct(p *models.Product) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return newValidationError("name", "укажите название букета")
	}
	if p.Price.IsNegative() {
		return newValidationError("price", "цена не может быть отрицательной")
	}
	if p.Status == "" {
		p.Status = models.ProductActive
	}
	if !p.Status.Valid() {
		return newValidationError("status", "неизвестный статус букета")
	}
	return nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, p *models.Product, categoryIDs []int64) error {
	if err := validateProduct(p); err != nil {
		return err
	}
	if err := s.repo.CreateProduct(ctx, p, categoryIDs); err != nil {
		return err
	}
	s.logger.Info().Int64("product_id", p.ID).Str("name", p.Name).Msg("Product created")
	s.invalidateFeatured(ctx)
	return nil
}

// UpdateProduct saves the product. Existing orders keep their own snapshot.
func (s *CatalogService) UpdateProduct(ctx context.Context, p *models.Product, categoryIDs []int64) error {
	if err := validateProduct(p); err != nil {
		return err
	}
	if err := s.repo.UpdateProduct(ctx, p, categoryIDs); err != nil {
		return translateNotFound(err, ErrProductNotFound)
	}
	s.invalidateFeatured(ctx)
	return nil
}

func (s *CatalogService) ArchiveProduct(ctx context.Context, id int64) error {
	if err := s.repo.SetProductStatus(ctx, id, models.ProductArchived); err != nil {
		return translateNotFound(err, ErrProductNotFound)
	}
	s.invalidateFeatured(ctx)
	return nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return translateNotFound(err, ErrProductNotFound)
	}
	s.logger.Info().Int64("product_id", id).Msg("Product deleted")
	s.invalidateFeatured(ctx)
	return nil
}

func (s *CatalogService) invalidateFeatured(ctx context.Context) {
	invalidate(ctx, s.cache, s.logger, models.CacheKeyFeaturedProducts)
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *CatalogService) CreateCategory(ctx context.Context, c *models.Category) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return newValidationError("name", "укажите название категории")
	}
	return s.repo.CreateCategory(ctx, c)
}

func (s *CatalogService) DeleteCategory(ctx context.Context, id int64) error {
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.invalidateFeatured(ctx)
	return nil
}

func (s *CatalogService) ListPriceRanges(ctx context.Context) ([]models.PriceRange, error) {
	return s.repo.ListPriceRanges(ctx)
}

func (s *CatalogService) CreatePriceRange(ctx context.Context, r *models.PriceRange) error {
	if r.MinPrice != nil && r.MaxPrice != nil && r.MinPrice.GreaterThan(*r.MaxPrice) {
		return newValidationError("max_price", "верхняя граница меньше нижней")
	}
	return s.repo.CreatePriceRange(ctx, r)
}

func (s *CatalogService) DeletePriceRange(ctx context.Context, id int64) error {
	return s.repo.DeletePriceRange(ctx, id)
}

// QuizResult picks a random active bouquet matching the quiz answers. When nothing
// matches it falls back to any active bouquet; nil means the catalog is empty.
func (s *CatalogService) QuizResult(ctx context.Context, categoryID, priceRangeID *int64) (*models.Product, error) {
	filter := activeProducts
	if categoryID != nil {
		filter.CategoryID = *categoryID
	}
	if priceRangeID != nil {
		r, err := s.repo.GetPriceRange(ctx, *priceRangeID)
		switch {
		case err == nil:
			filter.PriceRange = r
		case errors.Is(err, database.ErrNotFound):
			s.logger.Warn().Int64("price_range_id", *priceRangeID).Msg("Unknown price range in quiz")
		default:
			return nil, err
		}
	}

	p, err := s.repo.RandomProduct(ctx, filter)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	p, err = s.repo.RandomProduct(ctx, activeProducts)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	return p, err
}
