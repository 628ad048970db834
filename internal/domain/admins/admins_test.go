package admins_test

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/jerseyhouse/storefront/internal/domain/admins"
	"github.com/jerseyhouse/storefront/internal/storage/memory"
	"github.com/jerseyhouse/storefront/internal/validation"
)

func TestServiceRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc := admins.NewService(memory.NewAdminRepository(), bcrypt.MinCost)

	admin, err := svc.Register(ctx, admins.RegisterInput{
		Email:    "Owner@JerseyHouse.lk",
		Name:     "Store Owner",
		Password: "supersecret",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if admin.ID == "" {
		t.Fatalf("expected ID to be set")
	}
	if admin.PasswordHash == "" || admin.PasswordHash == "supersecret" {
		t.Fatalf("expected a password hash")
	}

	authed, err := svc.Authenticate(ctx, "owner@jerseyhouse.lk", "supersecret")
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if authed.ID != admin.ID {
		t.Fatalf("expected same admin ID")
	}

	if _, err := svc.Authenticate(ctx, "owner@jerseyhouse.lk", "wrong"); !errors.Is(err, admins.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "nobody@jerseyhouse.lk", "supersecret"); !errors.Is(err, admins.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}

	got, err := svc.Get(ctx, admin.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Email != "owner@jerseyhouse.lk" {
		t.Fatalf("unexpected email: %s", got.Email)
	}
}

func TestServiceRegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc := admins.NewService(memory.NewAdminRepository(), bcrypt.MinCost)

	if _, err := svc.Register(ctx, admins.RegisterInput{Email: "no-at-sign", Password: "supersecret"}); !validation.Is(err) {
		t.Fatalf("expected validation error for email, got %v", err)
	}
	if _, err := svc.Register(ctx, admins.RegisterInput{Email: "a@b.lk", Password: "short"}); !validation.Is(err) {
		t.Fatalf("expected validation error for password, got %v", err)
	}

	if _, err := svc.Register(ctx, admins.RegisterInput{Email: "a@b.lk", Password: "longenough"}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := svc.Register(ctx, admins.RegisterInput{Email: "A@B.lk", Password: "longenough"}); !errors.Is(err, admins.ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}
}
