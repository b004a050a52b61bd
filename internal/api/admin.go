package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"flowershop/internal/export"
	"flowershop/internal/models"
	"flowershop/internal/service"

	"github.com/go-chi/chi/v5"
)

const notificationsPageSize = 100

func (s *HTTPServer) adminRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(s.auth.Require(PermOrders))
		r.Get("/orders", s.handleListOrders)
		r.Get("/orders/export", s.handleExportOrders)
		r.Post("/orders/assign", s.handleAssignCourier)
		r.Get("/orders/{id}", s.handleGetOrder)
		r.Patch("/orders/{id}", s.handleUpdateOrder)
		r.Get("/notifications", s.handleListNotifications)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.auth.Require(PermCatalog))
		r.Get("/products", s.handleAdminListProducts)
		r.Post("/products", s.handleCreateProduct)
		r.Get("/products/{id}", s.handleAdminGetProduct)
		r.Put("/products/{id}", s.handleUpdateProduct)
		r.Post("/products/{id}/archive", s.handleArchiveProduct)
		r.Delete("/products/{id}", s.handleDeleteProduct)

		r.Get("/categories", s.handleCategories)
		r.Post("/categories", s.handleCreateCategory)
		r.Delete("/categories/{id}", s.handleDeleteCategory)

		r.Get("/price-ranges", s.handlePriceRanges)
		r.Post("/price-ranges", s.handleCreatePriceRange)
		r.Delete("/price-ranges/{id}", s.handleDeletePriceRange)

		r.Get("/slots", s.handleListSlots)
		r.Post("/slots", s.handleCreateSlot)
		r.Get("/slots/{id}", s.handleGetSlot)
		r.Put("/slots/{id}", s.handleUpdateSlot)
		r.Delete("/slots/{id}", s.handleDeleteSlot)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.auth.Require(PermShops))
		r.Get("/shops", s.handleAdminListShops)
		r.Post("/shops", s.handleCreateShop)
		r.Get("/shops/{id}", s.handleGetShop)
		r.Put("/shops/{id}", s.handleUpdateShop)
		r.Delete("/shops/{id}", s.handleDeleteShop)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.auth.Require(PermUsers))
		r.Get("/users", s.handleListUsers)
		r.Post("/users", s.handleCreateUser)
		r.Get("/users/{id}", s.handleGetUser)
		r.Put("/users/{id}", s.handleUpdateUser)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.auth.Require(PermConsultations))
		r.Get("/consultations", s.handleListConsultations)
		r.Post("/consultations/{id}/process", s.handleProcessConsultation)
	})
}

// Orders

func parseOrderFilter(r *http.Request) (models.OrderFilter, error) {
	q := r.URL.Query()
	var filter models.OrderFilter

	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		st := models.OrderStatus(raw)
		if !st.Valid() {
			return filter, fmt.Errorf("unknown status %q", raw)
		}
		filter.Status = st
	}
	for name, dst := range map[string]*int64{"courier_id": &filter.CourierID, "customer_id": &filter.CustomerID} {
		if raw := strings.TrimSpace(q.Get(name)); raw != "" {
			v, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return filter, fmt.Errorf("invalid %s", name)
			}
			*dst = v
		}
	}
	for name, dst := range map[string]*time.Time{"from": &filter.From, "to": &filter.To} {
		if raw := strings.TrimSpace(q.Get(name)); raw != "" {
			d, err := time.Parse(models.DateLayout, raw)
			if err != nil {
				return filter, fmt.Errorf("invalid %s date", name)
			}
			*dst = d
		}
	}
	for name, dst := range map[string]*uint64{"limit": &filter.Limit, "offset": &filter.Offset} {
		if raw := strings.TrimSpace(q.Get(name)); raw != "" {
			v, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				return filter, fmt.Errorf("invalid %s", name)
			}
			*dst = v
		}
	}
	return filter, nil
}

func (s *HTTPServer) handleListOrders(w http.ResponseWriter, r *http.Request) {
	filter, err := parseOrderFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	orders, err := s.svc.Orders.ListOrders(r.Context(), filter)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	if orders == nil {
		orders = []*models.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

func (s *HTTPServer) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Некорректный идентификатор")
		return
	}
	order, err := s.svc.Orders.GetOrder(r.Context(), id)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *HTTPServer) handleUpdateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Некорректный идентификатор")
		return
	}
	var req orderPatchRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	patch, err := req.toService()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Некорректная дата доставки")
		return
	}

	order, err := s.svc.Orders.UpdateOrder(r.Context(), id, patch)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	s.logger.Info().Int64("order_id", id).Str("client", clientName(r)).Msg("Order updated via admin API")
	writeJSON(w, http.StatusOK, order)
}

func (s *HTTPServer) handleAssignCourier(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	result, err := s.svc.Assignment.AssignCourier(r.Context(), service.AssignRequest{
		OrderIDs:       req.OrderIDs,
		CourierID:      req.CourierID,
		NotifyManagers: req.NotifyManagers,
	})
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}

	// 422 only when nothing was stored; a stored assignment is 200 even if the courier was not reached
	status := http.StatusOK
	if result.Order == nil && (len(result.Errors) > 0 || len(result.Warnings) > 0) {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, result)
}

func (s *HTTPServer) handleExportOrders(w http.ResponseWriter, r *http.Request) {
	filter, err := parseOrderFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	orders, err := s.svc.Orders.ListOrders(r.Context(), filter)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteOrders(&buf, orders, filter.From, filter.To); err != nil {
		writeServiceError(w, s.logger, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(filter.From, filter.To)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *HTTPServer) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	onlyFailed := r.URL.Query().Get("failed") == "true"
	list, err := s.svc.Notifications.ListNotifications(r.Context(), onlyFailed, notificationsPageSize)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	if list == nil {
		list = []models.NotificationRecord{}
	}
	writeJSON(w, http.StatusOK, list)
}

// Catalog

func (s *HTTPServer) handleAdminListProducts(w http.ResponseWriter, r *http.Request) {
	var filter models.ProductFilter
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		filter.Status = models.ProductStatus(raw)
		if !filter.Status.Valid() {
			writeError(w, http.StatusBadRequest, "Неизвестный статус букета")
			return
		}
	}
	if categoryID, ok := optionalInt(r, "category_id"); !ok {
		writeError(w, http.StatusBadRequest, "Некорректная категория")
		return
	} else if categoryID != nil {
		filter.CategoryID = *categoryID
	}

	products, err := s.svc.Catalog.ListProducts(r.Context(), filter, 0, 0)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	if products == nil {
		products = []models.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

func (s *HTTPServer) handleAdminGetProduct(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, p)
}

func (s *HTTPServer) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	p := req.toModel(0)
	if err := s.svc.Catalog.CreateProduct(r.Context(), p, req.CategoryIDs); err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *HTTPServer) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Некорректный идентификатор")
		return
	}
	var req productRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	p := req.toModel(id)
	if err := s.svc.Catalog.UpdateProduct(r.Context(), p, req.CategoryIDs); err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *HTTPServer) handleArchiveProduct(w http.ResponseWriter, r *http.Request) {
	s.byID(w, r, s.svc.Catalog.ArchiveProduct)
}

func (s *HTTPServer) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	s.byID(w, r, s.svc.Catalog.DeleteProduct)
}

func (s *HTTPServer) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	c := &models.Category{Name: req.Name}
	if err := s.svc.Catalog.CreateCategory(r.Context(), c); err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *HTTPServer) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	s.byID(w, r, s.svc.Catalog.DeleteCategory)
}

func (s *HTTPServer) handleCreatePriceRange(w http.ResponseWriter, r *http.Request) {
	var req priceRangeRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	pr := &models.PriceRange{MinPrice: req.MinPrice, MaxPrice: req.MaxPrice}
	if err := s.svc.Catalog.CreatePriceRange(r.Context(), pr); err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, priceRangeView{PriceRange: *pr, Label: pr.String()})
}

func (s *HTTPServer) handleDeletePriceRange(w http.ResponseWriter, r *http.Request) {
	s.byID(w, r, s.svc.Catalog.DeletePriceRange)
}

// Delivery slots

func (s *HTTPServer) handleListSlots(w http.ResponseWriter, r *http.Request) {
	slots, err := s.svc.Slots.List(r.Context())
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	if slots == nil {
		slots = []models.DeliveryTimeSlot{}
	}
	writeJSON(w, http.StatusOK, slots)
}

func (s *HTTPServer) handleGetSlot(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Некорректный идентификатор")
		return
	}
	slot, err := s.svc.Slots.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, slot)
}

func (s *HTTPServer) handleCreateSlot(w http.ResponseWriter, r *http.Request) {
	var req slotRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	slot := req.toModel(0)
	if err := s.svc.Slots.Create(r.Context(), slot); err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, slot)
}

func (s *HTTPServer) handleUpdateSlot(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Некорректный идентификатор")
		return
	}
	var req slotRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	slot := req.toModel(id)
	if err := s.svc.Slots.Update(r.Context(), slot); err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, slot)
}

func (s *HTTPServer) handleDeleteSlot(w http.ResponseWriter, r *http.Request) {
	s.byID(w, r, s.svc.Slots.Delete)
}

// Shops

func (s *HTTPServer) handleAdminListShops(w http.ResponseWriter, r *http.Request) {
	shops, err := s.svc.Shops.List(r.Context())
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	if shops == nil {
		shops = []models.Shop{}
	}
	writeJSON(w, http.StatusOK, shops)
}

func (s *HTTPServer) handleGetShop(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Некорректный идентификатор")
		return
	}
	shop, err := s.svc.Shops.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, shop)
}

func (s *HTTPServer) handleCreateShop(w http.ResponseWriter, r *http.Request) {
	var req shopRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	shop := req.toModel(0)
	if err := s.svc.Shops.Create(r.Context(), shop); err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, shop)
}

func (s *HTTPServer) handleUpdateShop(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Некорректный идентификатор")
		return
	}
	var req shopRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	shop := req.toModel(id)
	if err := s.svc.Shops.Update(r.Context(), shop); err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, shop)
}

func (s *HTTPServer) handleDeleteShop(w http.ResponseWriter, r *http.Request) {
	s.byID(w, r, s.svc.Shops.Delete)
}

// Users

func (s *HTTPServer) handleListUsers(w http.ResponseWriter, r *http.Request) {
	var (
		users []*models.ShopUser
		err   error
	)
	if raw := strings.TrimSpace(r.URL.Query().Get("role")); raw != "" {
		role, perr := models.ParseUserRole(raw)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "Неизвестная роль")
			return
		}
		users, err = s.svc.Users.ListByRole(r.Context(), role)
	} else {
		users, err = s.svc.Users.List(r.Context())
	}
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	if users == nil {
		users = []*models.ShopUser{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *HTTPServer) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Некорректный идентификатор")
		return
	}
	u, err := s.svc.Users.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *HTTPServer) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	u := req.toModel(0)
	if err := s.svc.Users.Create(r.Context(), u); err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (s *HTTPServer) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Некорректный идентификатор")
		return
	}
	var req userRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	u := req.toModel(id)
	if err := s.svc.Users.Update(r.Context(), u); err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// Consultations

func (s *HTTPServer) handleListConsultations(w http.ResponseWriter, r *http.Request) {
	onlyUnprocessed := r.URL.Query().Get("unprocessed") == "true"
	list, err := s.svc.Consultations.List(r.Context(), onlyUnprocessed)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	if list == nil {
		list = []*models.Consultation{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *HTTPServer) handleProcessConsultation(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Некорректный идентификатор")
		return
	}
	var req processRequest
	if r.ContentLength != 0 && !s.decodeAndValidate(w, r, &req) {
		return
	}
	if err := s.svc.Consultations.MarkProcessed(r.Context(), id, req.ManagerID); err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// byID runs a delete-style action on the {id} path parameter.
func (s *HTTPServer) byID(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, id int64) error) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Некорректный идентификатор")
		return
	}
	if err := action(r.Context(), id); err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
