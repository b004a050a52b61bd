package service

import (
	"context"
	"strings"
	"time"

	"flowershop/internal/domain"
	"flowershop/internal/models"

	"github.com/rs/zerolog"
)

type ShopService struct {
	repo      domain.ShopRepository
	geocoder  domain.Geocoder
	cache     domain.Cache
	cacheTTL  time.Duration
	mapCenter models.MapCenter
	logger    *zerolog.Logger
}

func NewShopService(repo domain.ShopRepository, geocoder domain.Geocoder, cache domain.Cache, cacheTTL time.Duration, mapCenter models.MapCenter, logger *zerolog.Logger) *ShopService {
	if cacheTTL <= 0 {
		cacheTTL = models.ShopsCacheTTL
	}
	return &ShopService{
		repo:      repo,
		geocoder:  geocoder,
		cache:     cache,
		cacheTTL:  cacheTTL,
		mapCenter: mapCenter,
		logger:    logger,
	}
}

func (s *ShopService) MapCenter() models.MapCenter {
	return s.mapCenter
}

// ActiveShops is served from cache; shop writes invalidate it.
func (s *ShopService) ActiveShops(ctx context.Context) ([]models.Shop, error) {
	return cachedJSON(ctx, s.cache, s.logger, models.CacheKeyActiveShops, s.cacheTTL,
		func(ctx context.Context) ([]models.Shop, error) {
			return s.repo.ListShops(ctx, true)
		})
}

func (s *ShopService) List(ctx context.Context) ([]models.Shop, error) {
	return s.repo.ListShops(ctx, false)
}

func (s *ShopService) Get(ctx context.Context, id int64) (*models.Shop, error) {
	return s.repo.GetShop(ctx, id)
}

func (s *ShopService) Create(ctx context.Context, shop *models.Shop) error {
	if err := s.prepare(ctx, shop); err != nil {
		return err
	}
	if err := s.repo.CreateShop(ctx, shop); err != nil {
		return err
	}
	s.logger.Info().Int64("shop_id", shop.ID).Str("name", shop.Name).Msg("Shop created")
	s.invalidate(ctx)
	return nil
}

func (s *ShopService) Update(ctx context.Context, shop *models.Shop) error {
	if err := s.prepare(ctx, shop); err != nil {
		return err
	}
	if err := s.repo.UpdateShop(ctx, shop); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *ShopService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.DeleteShop(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// prepare validates the shop and fills missing coordinates from the address.
func (s *ShopService) prepare(ctx context.Context, shop *models.Shop) error {
	shop.Name = strings.TrimSpace(shop.Name)
	shop.Address = strings.TrimSpace(shop.Address)
	if shop.Name == "" {
		return newValidationError("name", "укажите название магазина")
	}
	if shop.Address == "" {
		return newValidationError("address", "укажите адрес магазина")
	}

	if shop.HasCoordinates() || s.geocoder == nil {
		return nil
	}
	lat, lon, ok := s.geocoder.ResolveCoordinates(ctx, shop.Address)
	if !ok {
		s.logger.Warn().Str("address", shop.Address).Msg("Shop saved without coordinates")
		return nil
	}
	shop.Latitude = &lat
	shop.Longitude = &lon
	return nil
}

func (s *ShopService) invalidate(ctx context.Context) {
	invalidate(ctx, s.cache, s.logger, models.CacheKeyActiveShops)
}
