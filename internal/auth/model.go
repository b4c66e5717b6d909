package auth

import (
	"time"

	"github.com/google/uuid"
)

// User is a staff account bound to exactly one store. The store binding is
// what scopes every product, batch and sale lookup downstream.
type User struct {
	ID           uuid.UUID `json:"id"`
	StoreID      uuid.UUID `json:"store_id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Role         string    `json:"role"` // OWNER, CASHIER
	CreatedAt    time.Time `json:"created_at"`
}

// LoginRequest is the payload for obtaining a token.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the signed token and the resolved store context.
type LoginResponse struct {
	Token   string    `json:"token"`
	StoreID uuid.UUID `json:"store_id"`
	Role    string    `json:"role"`
}
