package auth

import (
	"context"
	"errors"
	"time"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for a bad email/password pair. The email
// and password cases are deliberately indistinguishable to the caller.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// Service defines the interface for authentication-related business logic.
type Service interface {
	Login(ctx context.Context, email, password string) (*LoginResponse, error)
}

type service struct {
	repo     Repository
	secret   []byte
	tokenTTL time.Duration
}

// NewService creates a new auth service.
func NewService(repo Repository, secret string, ttl time.Duration) Service {
	return &service{repo: repo, secret: []byte(secret), tokenTTL: ttl}
}

func (s *service) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	claims := jwt.MapClaims{
		"sub":      user.ID.String(),
		"store_id": user.StoreID.String(),
		"role":     user.Role,
		"exp":      time.Now().Add(s.tokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, err
	}

	return &LoginResponse{Token: signed, StoreID: user.StoreID, Role: user.Role}, nil
}
