package api

import (
	"net/http"
	"strconv"
	"strings"

	"flowershop/internal/models"
	"flowershop/internal/service"
)

const (
	sessionHeader = "X-Session-ID"
	sessionCookie = "session_id"
)

type shopsResponse struct {
	Shops     []models.Shop    `json:"shops"`
	MapCenter models.MapCenter `json:"map_center"`
}

type consultationResponse struct {
	Success   bool   `json:"success"`
	UserName  string `json:"user_name"`
	UserPhone string `json:"user_phone"`
}

type orderResponse struct {
	Success bool          `json:"success"`
	Order   *models.Order `json:"order"`
}

type stepResponse struct {
	Success   bool                    `json:"success"`
	SessionID string                  `json:"session_id"`
	Session   *models.CheckoutSession `json:"session"`
}

func (s *HTTPServer) handleCatalog(w http.ResponseWriter, r *http.Request) {
	page, err := s.svc.Catalog.CatalogPage(r.Context())
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *HTTPServer) handleLoadMore(w http.ResponseWriter, r *http.Request) {
	offset := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("offset")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			writeError(w, http.StatusBadRequest, "Некорректное смещение")
			return
		}
		offset = v
	}
	page, err := s.svc.Catalog.LoadMore(r.Context(), offset)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *HTTPServer) handleFeatured(w http.ResponseWriter, r *http.Request) {
	products, err := s.svc.Catalog.FeaturedProducts(r.Context())
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (s *HTTPServer) handleProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Некорректный идентификатор")
		return
	}
	p, err := s.svc.Catalog.GetProduct(r.Context(), id)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	// архивные букеты на витрине не показываем
	if !p.IsActive() {
		writeError(w, http.StatusNotFound, "Не найдено")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *HTTPServer) handleCategories(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Catalog.ListCategories(r.Context())
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type priceRangeView struct {
	models.PriceRange
	Label string `json:"label"`
}

func (s *HTTPServer) handlePriceRanges(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Catalog.ListPriceRanges(r.Context())
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	views := make([]priceRangeView, 0, len(list))
	for _, pr := range list {
		views = append(views, priceRangeView{PriceRange: pr, Label: pr.String()})
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *HTTPServer) handleQuizResult(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := optionalInt(r, "category_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Некорректная категория")
		return
	}
	priceRangeID, ok := optionalInt(r, "price_range_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Некорректный диапазон цен")
		return
	}

	p, err := s.svc.Catalog.QuizResult(r.Context(), categoryID, priceRangeID)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "Подходящих букетов пока нет")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *HTTPServer) handleDeliverySlots(w http.ResponseWriter, r *http.Request) {
	availability, err := s.svc.Slots.Availability(r.Context())
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, availability)
}

func (s *HTTPServer) handleShops(w http.ResponseWriter, r *http.Request) {
	shops, err := s.svc.Shops.ActiveShops(r.Context())
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	if shops == nil {
		shops = []models.Shop{}
	}
	writeJSON(w, http.StatusOK, shopsResponse{Shops: shops, MapCenter: s.svc.Shops.MapCenter()})
}

func (s *HTTPServer) handleConsultation(w http.ResponseWriter, r *http.Request) {
	var req consultationRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	c, err := s.svc.Consultations.Submit(r.Context(), req.Name, req.Phone)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}

	res := consultationResponse{Success: true}
	if c.User != nil {
		res.UserName = c.User.FullName
		res.UserPhone = c.User.Phone
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *HTTPServer) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	order, err := s.svc.Orders.PlaceOrder(r.Context(), req.toService())
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, orderResponse{Success: true, Order: order})
}

func (s *HTTPServer) handleOrderStep(w http.ResponseWriter, r *http.Request) {
	var req orderStepRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	session, err := s.svc.Sessions.SaveStep(r.Context(), sessionID(r), req.toService())
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}

	w.Header().Set(sessionHeader, session.ID)
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    session.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, stepResponse{Success: true, SessionID: session.ID, Session: session})
}

func (s *HTTPServer) handleFinalize(w http.ResponseWriter, r *http.Request) {
	var req finalizeRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	id := sessionID(r)
	if id == "" {
		writeServiceError(w, s.logger, service.ErrSessionNotFound)
		return
	}

	order, err := s.svc.Orders.FinalizeFromSession(r.Context(), id, req.ProductID)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, orderResponse{Success: true, Order: order})
}

// sessionID reads the checkout session from the header, then the cookie.
func sessionID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(sessionHeader)); id != "" {
		return id
	}
	if c, err := r.Cookie(sessionCookie); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}
