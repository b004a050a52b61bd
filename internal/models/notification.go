package models

import "time"

type NotificationKind string

const (
	NotifyOrderCreated        NotificationKind = "order_created"
	NotifyConsultationCreated NotificationKind = "consultation_created"
	NotifyCourierAssigned     NotificationKind = "courier_assigned"
	NotifyDeliveryHandoff     NotificationKind = "delivery_handoff"
	NotifyStaleConsultations  NotificationKind = "stale_consultations"
	NotifyChannel             NotificationKind = "channel"
	NotifyDirect              NotificationKind = "direct"
)

// NotificationRecord is one delivery attempt to one recipient.
type NotificationRecord struct {
	ID        int64            `json:"id" db:"id"`
	Recipient string           `json:"recipient" db:"recipient"`
	Kind      NotificationKind `json:"kind" db:"kind"`
	OrderID   *int64           `json:"order_id,omitempty" db:"order_id"`
	Success   bool             `json:"success" db:"success"`
	Error     string           `json:"error,omitempty" db:"error"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}
