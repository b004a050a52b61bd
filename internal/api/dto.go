package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"flowershop/internal/models"
	"flowershop/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type consultationRequest struct {
	Name  string `json:"name" validate:"max=200"`
	Phone string `json:"phone" validate:"max=32"`
}

// Required fields are checked by the order service so the customer gets per-field messages.
type placeOrderRequest struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name" validate:"max=200"`
	Phone     string `json:"phone" validate:"max=32"`
	Address   string `json:"address" validate:"max=500"`
	Comment   string `json:"comment" validate:"max=1000"`
	// DeliveryTime is "express", "today-{id}" or "tomorrow-{id}".
	DeliveryTime string `json:"delivery_time"`
}

func (r placeOrderRequest) toService() service.PlaceOrderRequest {
	return service.PlaceOrderRequest{
		ProductID:    r.ProductID,
		CustomerName: r.Name,
		Phone:        r.Phone,
		Address:      r.Address,
		Comment:      r.Comment,
		Selection:    r.DeliveryTime,
	}
}

type orderStepRequest struct {
	Name         string `json:"name" validate:"max=200"`
	Phone        string `json:"phone" validate:"max=32"`
	Address      string `json:"address" validate:"max=500"`
	Comment      string `json:"comment" validate:"max=1000"`
	DeliveryTime string `json:"delivery_time"`
}

func (r orderStepRequest) toService() service.OrderStepRequest {
	return service.OrderStepRequest{
		CustomerName: r.Name,
		Phone:        r.Phone,
		Address:      r.Address,
		Comment:      r.Comment,
		Selection:    r.DeliveryTime,
	}
}

type finalizeRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
}

type orderPatchRequest struct {
	Status           *string `json:"status" validate:"omitempty,oneof=created inWork inDelivery delivered cancelled"`
	CourierID        *int64  `json:"courier_id" validate:"omitempty,gt=0"`
	ClearCourier     bool    `json:"clear_courier"`
	ManagerID        *int64  `json:"manager_id" validate:"omitempty,gt=0"`
	DeliveryAddress  *string `json:"delivery_address" validate:"omitempty,max=500"`
	DeliveryDate     *string `json:"delivery_date" validate:"omitempty,datetime=2006-01-02"`
	Comment          *string `json:"comment" validate:"omitempty,max=1000"`
	DeliveryComments *string `json:"delivery_comments" validate:"omitempty,max=1000"`
}

func (r orderPatchRequest) toService() (service.OrderPatch, error) {
	patch := service.OrderPatch{
		CourierID:        r.CourierID,
		ClearCourier:     r.ClearCourier,
		ManagerID:        r.ManagerID,
		DeliveryAddress:  r.DeliveryAddress,
		Comment:          r.Comment,
		DeliveryComments: r.DeliveryComments,
	}
	if r.Status != nil {
		s := models.OrderStatus(*r.Status)
		patch.Status = &s
	}
	if r.DeliveryDate != nil {
		d, err := time.Parse(models.DateLayout, *r.DeliveryDate)
		if err != nil {
			return patch, err
		}
		patch.DeliveryDate = &d
	}
	return patch, nil
}

type assignRequest struct {
	OrderIDs       []int64 `json:"order_ids" validate:"dive,gt=0"`
	CourierID      int64   `json:"courier_id"`
	NotifyManagers bool    `json:"notify_managers"`
}

type productRequest struct {
	Name         string          `json:"name" validate:"required,max=200"`
	Description  string          `json:"description"`
	Composition  string          `json:"composition"`
	Price        decimal.Decimal `json:"price"`
	Image        string          `json:"image" validate:"max=500"`
	Status       string          `json:"status" validate:"omitempty,oneof=active archived"`
	IsFeatured   bool            `json:"is_featured"`
	IsBestseller bool            `json:"is_bestseller"`
	CategoryIDs  []int64         `json:"category_ids" validate:"dive,gt=0"`
}

func (r productRequest) toModel(id int64) *models.Product {
	return &models.Product{
		ID:           id,
		Name:         r.Name,
		Description:  r.Description,
		Composition:  r.Composition,
		Price:        r.Price,
		Image:        r.Image,
		Status:       models.ProductStatus(r.Status),
		IsFeatured:   r.IsFeatured,
		IsBestseller: r.IsBestseller,
	}
}

type categoryRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type priceRangeRequest struct {
	MinPrice *decimal.Decimal `json:"min_price"`
	MaxPrice *decimal.Decimal `json:"max_price"`
}

type slotRequest struct {
	Start             models.TimeOfDay `json:"start"`
	End               models.TimeOfDay `json:"end"`
	Label             string           `json:"label" validate:"max=100"`
	AvailableTomorrow bool             `json:"available_tomorrow"`
	IsExpress         bool             `json:"is_express"`
}

func (r slotRequest) toModel(id int64) *models.DeliveryTimeSlot {
	return &models.DeliveryTimeSlot{
		ID:                id,
		Start:             r.Start,
		End:               r.End,
		Label:             r.Label,
		AvailableTomorrow: r.AvailableTomorrow,
		IsExpress:         r.IsExpress,
	}
}

type shopRequest struct {
	Name         string   `json:"name" validate:"required,max=200"`
	Address      string   `json:"address" validate:"required,max=500"`
	Phone        string   `json:"phone" validate:"max=32"`
	WorkingHours string   `json:"working_hours" validate:"max=200"`
	Latitude     *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude    *float64 `json:"longitude" validate:"omitempty,longitude"`
	IsActive     bool     `json:"is_active"`
	SortOrder    int64    `json:"sort_order"`
}

func (r shopRequest) toModel(id int64) *models.Shop {
	return &models.Shop{
		ID:           id,
		Name:         r.Name,
		Address:      r.Address,
		Phone:        r.Phone,
		WorkingHours: r.WorkingHours,
		Latitude:     r.Latitude,
		Longitude:    r.Longitude,
		IsActive:     r.IsActive,
		SortOrder:    r.SortOrder,
	}
}

type userRequest struct {
	FullName   string `json:"full_name" validate:"required,max=200"`
	Phone      string `json:"phone" validate:"max=32"`
	Address    string `json:"address" validate:"max=500"`
	Role       string `json:"role" validate:"omitempty,oneof=owner user admin manager delivery"`
	TelegramID string `json:"telegram_id" validate:"max=32"`
}

func (r userRequest) toModel(id int64) *models.ShopUser {
	return &models.ShopUser{
		ID:         id,
		FullName:   r.FullName,
		Phone:      r.Phone,
		Address:    r.Address,
		Role:       models.UserRole(r.Role),
		TelegramID: r.TelegramID,
	}
}

type processRequest struct {
	ManagerID *int64 `json:"manager_id" validate:"omitempty,gt=0"`
}

func decodeBody(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// optionalInt parses an optional positive query parameter.
func optionalInt(r *http.Request, name string) (*int64, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return nil, false
	}
	return &v, true
}
