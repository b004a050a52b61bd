package models

import (
	"fmt"
	"time"
)

// DeliveryTimeSlot is a configured delivery window.
type DeliveryTimeSlot struct {
	ID                int64     `json:"id" db:"id" yaml:"id"`
	Start             TimeOfDay `json:"start" db:"time_start" yaml:"start"`
	End               TimeOfDay `json:"end" db:"time_end" yaml:"end"`
	Label             string    `json:"label" db:"label" yaml:"label"`
	AvailableTomorrow bool      `json:"available_tomorrow" db:"available_tomorrow" yaml:"available_tomorrow"`
	IsExpress         bool      `json:"is_express" db:"is_express" yaml:"is_express"`
	CreatedAt         time.Time `json:"created_at" db:"created_at" yaml:"-"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at" yaml:"-"`
}

// DefaultLabel is the label used when staff leave it empty.
func (s *DeliveryTimeSlot) DefaultLabel() string {
	return fmt.Sprintf("с %s до %s", s.Start, s.End)
}

func (s *DeliveryTimeSlot) DisplayLabel() string {
	if s.Label != "" {
		return s.Label
	}
	return s.DefaultLabel()
}

// SlotAvailability is what the checkout form may offer right now.
type SlotAvailability struct {
	TodayDate        time.Time          `json:"today_date"`
	TomorrowDate     time.Time          `json:"tomorrow_date"`
	ExpressSlot      *DeliveryTimeSlot  `json:"express_slot,omitempty"`
	ExpressAvailable bool               `json:"express_available"`
	Today            []DeliveryTimeSlot `json:"today"`
	Tomorrow         []DeliveryTimeSlot `json:"tomorrow"`
	CutoffMessage    string             `json:"cutoff_message,omitempty"`
}

func (a *SlotAvailability) FindToday(id int64) (DeliveryTimeSlot, bool) {
	return findSlot(a.Today, id)
}

func (a *SlotAvailability) FindTomorrow(id int64) (DeliveryTimeSlot, bool) {
	return findSlot(a.Tomorrow, id)
}

func findSlot(slots []DeliveryTimeSlot, id int64) (DeliveryTimeSlot, bool) {
	for _, s := range slots {
		if s.ID == id {
			return s, true
		}
	}
	return DeliveryTimeSlot{}, false
}
