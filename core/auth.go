package core

import (
	"context"
	"errors"
)

// Roles carried in token claims and resolved identities.
const (
	RoleUser  = "user"
	RoleGuest = "guest"
)

// GuestUsername is the fixed display name for anonymous guest sessions.
const GuestUsername = "Guest User"

var (
	// ErrInvalidCredentials is returned when username/password is wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDuplicateUsername is returned when the normalized username is taken.
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrUserNotFound is returned when no user matches the lookup key.
	ErrUserNotFound = errors.New("user not found")
	// ErrNotFound is returned by repositories when a record does not exist
	// or is outside the caller's ownership scope.
	ErrNotFound = errors.New("record not found")
)

// ValidationError carries a user-facing message for rejected input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Identity is the per-request principal resolved from a validated token.
// UserID is empty for guests.
type Identity struct {
	Role     string
	UserID   string
	Username string
}

// OwnerFilter restricts which records an identity may read or write.
// A nil Owner selects the shared ownerless pool used by guests.
type OwnerFilter struct {
	Owner *string
}

// OwnerFilterFor derives the data-access filter for id: users see their own
// records, guests share one global ownerless pool.
func OwnerFilterFor(id Identity) OwnerFilter {
	if id.Role == RoleGuest {
		return OwnerFilter{}
	}
	owner := id.UserID
	return OwnerFilter{Owner: &owner}
}

// AuthService defines registration, login, and guest session behaviour.
// Each call returns a signed bearer token alongside the resolved identity.
type AuthService interface {
	Register(ctx context.Context, username, password string) (string, Identity, error)
	Login(ctx context.Context, username, password string) (string, Identity, error)
	GuestSession() (string, Identity, error)
}
