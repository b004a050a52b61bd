package models

import "time"

// Shop is a physical store shown on the map.
type Shop struct {
	ID           int64     `json:"id" db:"id" yaml:"id"`
	Name         string    `json:"name" db:"name" yaml:"name"`
	Address      string    `json:"address" db:"address" yaml:"address"`
	Phone        string    `json:"phone,omitempty" db:"phone" yaml:"phone"`
	WorkingHours string    `json:"working_hours,omitempty" db:"working_hours" yaml:"working_hours"`
	Latitude     *float64  `json:"latitude,omitempty" db:"latitude" yaml:"latitude"`
	Longitude    *float64  `json:"longitude,omitempty" db:"longitude" yaml:"longitude"`
	IsActive     bool      `json:"is_active" db:"is_active" yaml:"is_active"`
	SortOrder    int64     `json:"sort_order" db:"sort_order" yaml:"sort_order"`
	CreatedAt    time.Time `json:"created_at" db:"created_at" yaml:"-"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at" yaml:"-"`
}

func (s *Shop) HasCoordinates() bool {
	return s.Latitude != nil && s.Longitude != nil
}

type MapCenter struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}
