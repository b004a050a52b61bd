package api

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"flowershop/internal/config"
	"flowershop/internal/domain"
	"flowershop/internal/service"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Services bundles what the handlers call into.
type Services struct {
	Catalog       *service.CatalogService
	Slots         *service.SlotService
	Orders        *service.OrderService
	Sessions      *service.SessionService
	Assignment    *service.AssignmentService
	Consultations *service.ConsultationService
	Shops         *service.ShopService
	Users         *service.UserService
	Notifications domain.NotificationLog
	SessionStore  domain.SessionStore
}

// HTTPServer serves the storefront and admin JSON API.
type HTTPServer struct {
	cfg      config.APIConfig
	svc      Services
	auth     *HTTPAuth
	validate *validator.Validate
	logger   *zerolog.Logger
	router   chi.Router
	server   *http.Server
}

func NewHTTPServer(cfg config.APIConfig, svc Services, logger *zerolog.Logger) *HTTPServer {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	srv := &HTTPServer{
		cfg:      cfg,
		svc:      svc,
		auth:     NewHTTPAuth(cfg.Auth),
		validate: validate,
		logger:   logger,
	}
	srv.router = srv.routes()
	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.router,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return srv
}

// Handler exposes the router, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.router
}

func (s *HTTPServer) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(loggingMiddleware(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", sessionHeader, s.cfg.Auth.HeaderAPIKey, s.cfg.Auth.HeaderExtra},
		ExposedHeaders:   []string{sessionHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	limiter := newRateLimiter(s.cfg.RateLimit)
	submissions := submissionLimit(s.svc.SessionStore, s.cfg.RateLimit.Submissions, s.cfg.RateLimit.Window, s.logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(limiter.Middleware)

			r.Get("/catalog", s.handleCatalog)
			r.Get("/catalog/more", s.handleLoadMore)
			r.Get("/products/featured", s.handleFeatured)
			r.Get("/products/{id}", s.handleProduct)
			r.Get("/categories", s.handleCategories)
			r.Get("/price-ranges", s.handlePriceRanges)
			r.Get("/quiz/result", s.handleQuizResult)
			r.Get("/delivery/slots", s.handleDeliverySlots)
			r.Get("/shops", s.handleShops)

			r.With(submissions).Post("/consultations", s.handleConsultation)
			r.With(submissions).Post("/orders", s.handlePlaceOrder)
			r.Post("/orders/step", s.handleOrderStep)
			r.With(submissions).Post("/orders/finalize", s.handleFinalize)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.auth.Authenticate)
			s.adminRoutes(r)
		})
	})

	return r
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// decodeAndValidate writes the 400 response itself and reports whether the handler may continue.
func (s *HTTPServer) decodeAndValidate(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := decodeBody(r, v); err != nil {
		writeError(w, http.StatusBadRequest, "Некорректный запрос")
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		writeValidationError(w, err)
		return false
	}
	return true
}
