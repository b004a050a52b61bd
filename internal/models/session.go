package models

import "time"

// CheckoutSession keeps order-step selections until the order is finalized.
type CheckoutSession struct {
	ID               string     `json:"id"`
	CustomerName     string     `json:"customer_name"`
	Phone            string     `json:"phone"`
	Address          string     `json:"address"`
	Comment          string     `json:"comment,omitempty"`
	Selection        string     `json:"selection"`
	DeliveryDate     time.Time  `json:"delivery_date"`
	IsExpress        bool       `json:"is_express"`
	DeliveryTimeFrom *TimeOfDay `json:"delivery_time_from,omitempty"`
	DeliveryTimeTo   *TimeOfDay `json:"delivery_time_to,omitempty"`
	UpdatedAt        time.Time  `json:"updated_at"`
}
