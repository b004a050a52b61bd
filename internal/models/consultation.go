package models

import "time"

// Consultation is a call-back request left on the site.
type Consultation struct {
	ID         int64      `json:"id" db:"id"`
	UserID     int64      `json:"user_id" db:"user_id"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	Processed  bool       `json:"processed" db:"processed"`
	ManagerID  *int64     `json:"manager_id,omitempty" db:"manager_id"`
	RemindedAt *time.Time `json:"reminded_at,omitempty" db:"reminded_at"`

	User  *ShopUser `json:"user,omitempty" db:"-"`
	Stale bool      `json:"stale" db:"-"`
}

// IsStale reports an unprocessed request older than ConsultationStaleAfter.
func (c *Consultation) IsStale(now time.Time) bool {
	return !c.Processed && now.Sub(c.CreatedAt) > ConsultationStaleAfter
}
