package models

import (
	"fmt"
	"strings"
	"time"
)

// UserRole is the status of a ShopUser. Stored values match the legacy data.
type UserRole string

const (
	RoleOwner    UserRole = "owner"
	RoleCustomer UserRole = "user"
	RoleAdmin    UserRole = "admin"
	RoleManager  UserRole = "manager"
	RoleCourier  UserRole = "delivery"
)

var roleTitles = map[UserRole]string{
	RoleOwner:    "Владелец сервиса",
	RoleCustomer: "Пользователь",
	RoleAdmin:    "Админ",
	RoleManager:  "Менеджер",
	RoleCourier:  "Доставщик",
}

func (r UserRole) Valid() bool {
	_, ok := roleTitles[r]
	return ok
}

func (r UserRole) Title() string {
	if title, ok := roleTitles[r]; ok {
		return title
	}
	return string(r)
}

func ParseUserRole(s string) (UserRole, error) {
	r := UserRole(strings.TrimSpace(s))
	if !r.Valid() {
		return "", fmt.Errorf("unknown user role %q", s)
	}
	return r, nil
}

// ShopUser is a customer, a staff member or a courier.
type ShopUser struct {
	ID         int64     `json:"id" db:"id"`
	ExternalID string    `json:"external_id" db:"external_id"`
	FullName   string    `json:"full_name" db:"full_name"`
	Phone      string    `json:"phone" db:"phone"`
	Address    string    `json:"address,omitempty" db:"address"`
	Role       UserRole  `json:"role" db:"role"`
	TelegramID string    `json:"telegram_id,omitempty" db:"telegram_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

func (u *ShopUser) HasTelegram() bool {
	return u != nil && strings.TrimSpace(u.TelegramID) != ""
}

// NormalizePhone keeps digits and a leading plus so the phone can serve as a natural key.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	var b strings.Builder
	for i, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidPhone reports whether a normalized phone carries enough digits to identify a customer.
func ValidPhone(phone string) bool {
	digits := 0
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= MinPhoneDigits
}
