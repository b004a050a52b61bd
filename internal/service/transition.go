package service

import "flowershop/internal/models"

// RequiresCourierNotification compares the stored order with the incoming one and
// reports whether the assigned courier has to be messaged after the write.
// It fires when the order enters delivery with a courier, or when the courier of
// an order in delivery changes. New orders (stored == nil) never fire.
func RequiresCourierNotification(stored, incoming *models.Order) bool {
	if stored == nil || incoming == nil {
		return false
	}
	if incoming.Status != models.OrderInDelivery || !incoming.HasCourier() {
		return false
	}
	if stored.Status != models.OrderInDelivery {
		return true
	}
	return !stored.HasCourier() || *stored.CourierID != *incoming.CourierID
}
