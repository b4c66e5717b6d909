package auth

import "context"

// Repository defines data access for staff accounts.
type Repository interface {
	GetUserByEmail(ctx context.Context, email string) (*User, error)
}
