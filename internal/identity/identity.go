// Package identity resolves callers to account owners and guards transfers
// with a hashed transaction PIN. Sessions and tokens are handled upstream;
// this core only consumes an already-authenticated caller identifier.
package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrUserNotFound indicates no user matches the identifier or phone.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserExists indicates the phone number is already registered.
	ErrUserExists = errors.New("user already exists")

	// ErrInvalidPIN indicates the transaction PIN did not match.
	ErrInvalidPIN = errors.New("invalid transaction PIN")
)

// User represents a registered account owner.
type User struct {
	ID        string
	Phone     string
	FullName  string
	PINHash   []byte
	CreatedAt time.Time
}

// Repository persists users.
type Repository interface {
	Create(ctx context.Context, user User) error
	FindByID(ctx context.Context, id string) (User, error)
	FindByPhone(ctx context.Context, phone string) (User, error)
}

// Service manages user registration and transaction-PIN verification.
type Service struct {
	repo Repository
}

// NewService creates an identity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register creates a user with a bcrypt-hashed transaction PIN.
func (s *Service) Register(ctx context.Context, phone, fullName, pin string) (User, error) {
	if len(pin) < 4 {
		return User{}, errors.New("transaction PIN must be at least 4 digits")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	user := User{
		ID:        uuid.NewString(),
		Phone:     phone,
		FullName:  fullName,
		PINHash:   hash,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

// VerifyPIN checks the caller's transaction PIN before money moves.
func (s *Service) VerifyPIN(ctx context.Context, userID, pin string) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword(user.PINHash, []byte(pin)) != nil {
		return ErrInvalidPIN
	}
	return nil
}

// Lookup fetches a user by identifier.
func (s *Service) Lookup(ctx context.Context, userID string) (User, error) {
	return s.repo.FindByID(ctx, userID)
}
