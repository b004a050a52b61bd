package models

import "time"

const (
	ParseModeMarkdown = "Markdown"
	ParseModeHTML     = "HTML"
)

const (
	// DeliveryLeadTime минимальный запас до конца слота, чтобы успеть доставить сегодня
	DeliveryLeadTime = 30 * time.Minute

	// ConsultationStaleAfter через сколько необработанная заявка считается просроченной
	ConsultationStaleAfter = 20 * time.Minute

	// CatalogPageSize количество букетов на первой странице каталога
	CatalogPageSize = 6

	// LoadMoreSize количество букетов в одной подгрузке
	LoadMoreSize = 3

	// DefaultSessionTTL время жизни сессии оформления заказа
	DefaultSessionTTL = 24 * time.Hour

	// ShopsCacheTTL время жизни кэша активных магазинов
	ShopsCacheTTL = 24 * time.Hour

	// FeaturedCacheTTL время жизни кэша букетов для главной
	FeaturedCacheTTL = time.Hour

	// DefaultSendTimeout таймаут одной отправки в Telegram
	DefaultSendTimeout = 10 * time.Second

	// DefaultFanoutDelay пауза между отправками при рассылке
	DefaultFanoutDelay = 500 * time.Millisecond

	// MinPhoneDigits минимальное количество цифр в телефоне клиента
	MinPhoneDigits = 6

	// RateLimitSubmissions количество заявок с одного адреса в окне
	RateLimitSubmissions = 10

	// RateLimitWindow окно ограничения частоты заявок
	RateLimitWindow = 10 * time.Minute
)

const (
	CacheKeyActiveShops      = "shops:active"
	CacheKeyFeaturedProducts = "products:featured"
)

// DateLayout is the storage format of calendar dates.
const DateLayout = "2006-01-02"
