package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderCreated    OrderStatus = "created"
	OrderInWork     OrderStatus = "inWork"
	OrderInDelivery OrderStatus = "inDelivery"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

var orderStatusTitles = map[OrderStatus]string{
	OrderCreated:    "Создан",
	OrderInWork:     "В работе",
	OrderInDelivery: "В доставке",
	OrderDelivered:  "Выдан клиенту",
	OrderCancelled:  "Отменен",
}

func (s OrderStatus) Valid() bool {
	_, ok := orderStatusTitles[s]
	return ok
}

func (s OrderStatus) Title() string {
	if title, ok := orderStatusTitles[s]; ok {
		return title
	}
	return string(s)
}

// IsTerminal reports whether no further transitions are allowed.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

// Order keeps its own copy of the product data taken at checkout.
type Order struct {
	ID                 int64           `json:"id" db:"id"`
	ProductID          *int64          `json:"product_id,omitempty" db:"product_id"`
	ProductName        string          `json:"product_name" db:"product_name"`
	ProductPrice       decimal.Decimal `json:"product_price" db:"product_price"`
	ProductComposition string          `json:"product_composition" db:"product_composition"`
	ProductImage       string          `json:"product_image,omitempty" db:"product_image"`
	CustomerID         int64           `json:"customer_id" db:"customer_id"`
	DeliveryAddress    string          `json:"delivery_address" db:"delivery_address"`
	DeliveryDate       time.Time       `json:"delivery_date" db:"delivery_date"`
	IsExpress          bool            `json:"is_express" db:"is_express"`
	DeliveryTimeFrom   *TimeOfDay      `json:"delivery_time_from,omitempty" db:"delivery_time_from"`
	DeliveryTimeTo     *TimeOfDay      `json:"delivery_time_to,omitempty" db:"delivery_time_to"`
	DeliveredAt        *time.Time      `json:"delivered_at,omitempty" db:"delivered_at"`
	Status             OrderStatus     `json:"status" db:"status"`
	ManagerID          *int64          `json:"manager_id,omitempty" db:"manager_id"`
	CourierID          *int64          `json:"courier_id,omitempty" db:"courier_id"`
	Comment            string          `json:"comment,omitempty" db:"comment"`
	DeliveryComments   string          `json:"delivery_comments,omitempty" db:"delivery_comments"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at" db:"updated_at"`

	Customer *ShopUser `json:"customer,omitempty" db:"-"`
	Courier  *ShopUser `json:"courier,omitempty" db:"-"`
	Manager  *ShopUser `json:"manager,omitempty" db:"-"`
}

func (o *Order) HasCourier() bool {
	return o != nil && o.CourierID != nil && *o.CourierID != 0
}

// Clone returns a copy whose pointer fields do not alias the original.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	c.ProductID = cloneInt64(o.ProductID)
	c.ManagerID = cloneInt64(o.ManagerID)
	c.CourierID = cloneInt64(o.CourierID)
	if o.DeliveryTimeFrom != nil {
		v := *o.DeliveryTimeFrom
		c.DeliveryTimeFrom = &v
	}
	if o.DeliveryTimeTo != nil {
		v := *o.DeliveryTimeTo
		c.DeliveryTimeTo = &v
	}
	if o.DeliveredAt != nil {
		v := *o.DeliveredAt
		c.DeliveredAt = &v
	}
	return &c
}

// OrderFilter narrows admin order listings. Zero values mean "any".
type OrderFilter struct {
	Status     OrderStatus
	CourierID  int64
	CustomerID int64
	From       time.Time
	To         time.Time
	Limit      uint64
	Offset     uint64
}

func cloneInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func Int64Ptr(v int64) *int64 {
	return &v
}
