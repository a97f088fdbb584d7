package types

import "time"

// Roles a user account can hold. Farmers can list products; buyers can
// only shop.
const (
	RoleFarmer = "farmer"
	RoleBuyer  = "buyer"
)

// ValidRole reports whether role is one of the known account roles.
func ValidRole(role string) bool {
	return role == RoleFarmer || role == RoleBuyer
}

// User represents an account in the system.
// It contains identity, role, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Name is the user's display or full name.
	Name string `json:"name" db:"name"`

	// Email is the user's email address. It is globally unique and is the
	// login identifier.
	Email string `json:"email" db:"email"`

	// Role is either "farmer" or "buyer".
	Role string `json:"role" db:"role"`

	// Location is an optional free-form locality string.
	Location string `json:"location,omitempty" db:"location"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
