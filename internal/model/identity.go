package model

import "github.com/google/uuid"

// Role is the caller's role as resolved by the external auth layer.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleProvider Role = "provider"
	RoleAdmin    Role = "admin"
)

// Identity is the authenticated caller forwarded by the auth collaborator.
type Identity struct {
	UserID uuid.UUID
	Role   Role
}
