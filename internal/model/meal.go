package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Meal is the projection of the externally managed meal catalog that the
// order core reads and whose quantity it mutates. Catalog attributes are
// owned by the meal-management subsystem.
type Meal struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	RestaurantID   uuid.UUID       `json:"restaurantId" db:"restaurant_id"`
	Name           string          `json:"name" db:"name"`
	Price          decimal.Decimal `json:"price" db:"price"`
	Quantity       int             `json:"quantity" db:"quantity"`
	AvailableFrom  *time.Time      `json:"availableFrom,omitempty" db:"available_from"`
	AvailableUntil *time.Time      `json:"availableUntil,omitempty" db:"available_until"`
}

// AvailableAt reports whether the meal can be ordered at the given time.
func (m Meal) AvailableAt(t time.Time) bool {
	if m.AvailableFrom != nil && t.Before(*m.AvailableFrom) {
		return false
	}
	if m.AvailableUntil != nil && t.After(*m.AvailableUntil) {
		return false
	}
	return true
}

// Restaurant is the projection needed for authorization and commission
// snapshotting: who owns it and which rate applies.
type Restaurant struct {
	ID             uuid.UUID        `json:"id" db:"id"`
	OwnerUserID    uuid.UUID        `json:"ownerUserId" db:"owner_user_id"`
	Name           string           `json:"name" db:"name"`
	CommissionRate *decimal.Decimal `json:"commissionRate,omitempty" db:"commission_rate"`
}
