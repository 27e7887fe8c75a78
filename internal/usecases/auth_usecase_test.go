package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"conexbot/internal/config"
	"conexbot/internal/entities"
)

func newAuthFixture(t *testing.T) (*AuthUsecase, *fakeUserStore, *fakeProvider) {
	t.Helper()
	store := newFakeUserStore()
	provider := &fakeProvider{}
	return NewAuthUsecase(store, NewInstanceSaga(provider), "test-secret", time.Hour), store, provider
}

func TestRegisterAndLogin(t *testing.T) {
	uc, _, provider := newAuthFixture(t)
	ctx := context.Background()

	user, outcome, err := uc.Register(ctx, "Ana", "ana@loja.com", "123456")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Role != entities.RoleUser || !outcome.Succeeded() {
		t.Errorf("user=%+v outcome=%+v", user, outcome)
	}
	if provider.count("create") != 1 {
		t.Error("signup should provision an instance")
	}

	token, logged, err := uc.Login(ctx, "ANA@loja.com", "123456")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if logged.ID != user.ID || token == "" {
		t.Errorf("logged=%+v token=%q", logged, token)
	}

	who, err := uc.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if who.ID != user.ID || who.Email != "ana@loja.com" || who.Role != entities.RoleUser {
		t.Errorf("identity = %+v", who)
	}
}

func TestLoginFailures(t *testing.T) {
	uc, _, _ := newAuthFixture(t)
	ctx := context.Background()
	if _, _, err := uc.Register(ctx, "Ana", "ana@loja.com", "123456"); err != nil {
		t.Fatal(err)
	}

	if _, _, err := uc.Login(ctx, "ana@loja.com", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: %v", err)
	}
	if _, _, err := uc.Login(ctx, "nobody@loja.com", "123456"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email: %v", err)
	}
	if _, _, err := uc.Login(ctx, "not-an-email", ""); !errors.Is(err, entities.ErrValidation) {
		t.Errorf("bad input: %v", err)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	uc, _, provider := newAuthFixture(t)
	ctx := context.Background()
	uc.Register(ctx, "Ana", "ana@loja.com", "123456")

	if _, _, err := uc.Register(ctx, "Ana 2", "Ana@Loja.com", "abcdef"); !errors.Is(err, entities.ErrEmailTaken) {
		t.Errorf("err = %v", err)
	}
	if provider.count("create") != 1 {
		t.Error("duplicate signup must not provision")
	}
}

func TestParseTokenRejections(t *testing.T) {
	uc, _, _ := newAuthFixture(t)
	user := &entities.User{ID: 7, Name: "Ana", Email: "ana@loja.com", Role: entities.RoleUser}

	issuedAt := time.Now().Add(-2 * time.Hour)
	uc.now = func() time.Time { return issuedAt }
	stale, err := uc.IssueToken(user)
	if err != nil {
		t.Fatal(err)
	}
	uc.now = time.Now
	if _, err := uc.ParseToken(stale); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("expired: %v", err)
	}

	other := NewAuthUsecase(newFakeUserStore(), nil, "another-secret", time.Hour)
	forged, _ := other.IssueToken(user)
	if _, err := uc.ParseToken(forged); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("wrong secret: %v", err)
	}

	if _, err := uc.ParseToken("not.a.token"); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("malformed: %v", err)
	}

	anon, _ := uc.IssueToken(&entities.User{})
	if _, err := uc.ParseToken(anon); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("empty identity: %v", err)
	}
}

func TestEnsureAdmin(t *testing.T) {
	uc, store, provider := newAuthFixture(t)
	ctx := context.Background()
	seed := config.AdminSeed{Name: "Admin", Email: "admin@conexbot.io", Password: "admin123"}

	if err := uc.EnsureAdmin(ctx, seed); err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}
	if err := uc.EnsureAdmin(ctx, seed); err != nil {
		t.Fatalf("second EnsureAdmin: %v", err)
	}
	counts, _ := store.CountByRole(ctx)
	if counts.Total != 1 || counts.Admins != 1 {
		t.Errorf("counts = %+v", counts)
	}
	if provider.count("create") != 0 {
		t.Error("seeding must not provision an instance")
	}
	if err := uc.EnsureAdmin(ctx, config.AdminSeed{}); err != nil {
		t.Errorf("empty seed: %v", err)
	}
}
