package identity

import (
	"context"
	"errors"
	"testing"
)

func TestRegisterHashesPIN(t *testing.T) {
	svc := NewService(NewMemoryRepository())

	user, err := svc.Register(context.Background(), "+2348012345678", "Ada Obi", "4321")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.ID == "" {
		t.Fatal("expected a generated user id")
	}
	if string(user.PINHash) == "4321" {
		t.Fatal("PIN stored in plaintext")
	}

	if err := svc.VerifyPIN(context.Background(), user.ID, "4321"); err != nil {
		t.Fatalf("verify correct PIN: %v", err)
	}
	if err := svc.VerifyPIN(context.Background(), user.ID, "0000"); !errors.Is(err, ErrInvalidPIN) {
		t.Fatalf("expected ErrInvalidPIN, got %v", err)
	}
}

func TestRegisterRejectsShortPIN(t *testing.T) {
	svc := NewService(NewMemoryRepository())

	if _, err := svc.Register(context.Background(), "+2348012345678", "Ada Obi", "123"); err == nil {
		t.Fatal("expected short PIN to be rejected")
	}
}

func TestRegisterRejectsDuplicatePhone(t *testing.T) {
	svc := NewService(NewMemoryRepository())

	if _, err := svc.Register(context.Background(), "+2348012345678", "Ada Obi", "4321"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := svc.Register(context.Background(), "+2348012345678", "Chidi Eze", "9876"); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestVerifyPINUnknownUser(t *testing.T) {
	svc := NewService(NewMemoryRepository())

	if err := svc.VerifyPIN(context.Background(), "missing", "4321"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
