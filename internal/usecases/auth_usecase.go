package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"conexbot/internal/config"
	"conexbot/internal/entities"
	"conexbot/internal/interfaces"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("invalid token")
)

// Claims is the signed token payload.
type Claims struct {
	User entities.Identity `json:"user"`
	jwt.RegisteredClaims
}

type AuthUsecase struct {
	users     interfaces.UserStore
	saga      *InstanceSaga
	jwtSecret []byte
	ttl       time.Duration
	now       func() time.Time
}

func NewAuthUsecase(users interfaces.UserStore, saga *InstanceSaga, secret string, ttl time.Duration) *AuthUsecase {
	return &AuthUsecase{
		users:     users,
		saga:      saga,
		jwtSecret: []byte(secret),
		ttl:       ttl,
		now:       time.Now,
	}
}

func (uc *AuthUsecase) TokenTTL() time.Duration { return uc.ttl }

// Login checks credentials and returns a signed token for the account.
func (uc *AuthUsecase) Login(ctx context.Context, email, password string) (string, *entities.User, error) {
	verr := &entities.ValidationError{}
	email = strings.TrimSpace(email)
	if !ValidEmail(email) {
		verr.Add("email", "a valid email is required")
	}
	if password == "" {
		verr.Add("password", "password is required")
	}
	if err := verr.OrNil(); err != nil {
		return "", nil, err
	}

	user, err := uc.users.GetByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}
	if user == nil {
		return "", nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := uc.IssueToken(user)
	if err != nil {
		return "", nil, err
	}
	zap.L().Info("user logged in", zap.Int("user_id", user.ID), zap.String("role", user.Role))
	return token, user, nil
}

// Register is the self-service signup. New accounts always get the user role
// and a best-effort WhatsApp instance.
func (uc *AuthUsecase) Register(ctx context.Context, name, email, password string) (*entities.User, InstanceOutcome, error) {
	in := CreateUserInput{Name: name, Email: email, Password: password, Role: entities.RoleUser}
	user, err := createAccount(ctx, uc.users, in)
	if err != nil {
		return nil, InstanceOutcome{}, err
	}
	outcome := uc.saga.Provision(ctx, user.Email, entities.InstanceOptions{})
	zap.L().Info("user registered", zap.Int("user_id", user.ID), zap.String("whatsapp", string(outcome.Status)))
	return user, outcome, nil
}

func (uc *AuthUsecase) IssueToken(user *entities.User) (string, error) {
	now := uc.now()
	claims := Claims{
		User: user.Identity(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(uc.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(uc.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies a token. Expired tokens yield ErrTokenExpired, other
// rejected tokens ErrTokenInvalid. Any other error means verification itself
// broke.
func (uc *AuthUsecase) ParseToken(tokenString string) (entities.Identity, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return uc.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(uc.now))

	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return entities.Identity{}, ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrTokenNotValidYet),
		errors.Is(err, jwt.ErrTokenInvalidClaims):
		return entities.Identity{}, ErrTokenInvalid
	default:
		return entities.Identity{}, fmt.Errorf("verify token: %w", err)
	}

	if claims.User.ID == 0 || claims.User.Email == "" {
		return entities.Identity{}, ErrTokenInvalid
	}
	return claims.User, nil
}

// EnsureAdmin seeds the configured administrator when no account uses its
// email yet. Called on startup.
func (uc *AuthUsecase) EnsureAdmin(ctx context.Context, seed config.AdminSeed) error {
	if seed.Email == "" || seed.Password == "" {
		return nil
	}
	existing, err := uc.users.GetByEmail(ctx, seed.Email)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	_, err = createAccount(ctx, uc.users, CreateUserInput{
		Name:     seed.Name,
		Email:    seed.Email,
		Password: seed.Password,
		Role:     entities.RoleAdmin,
	})
	if err != nil {
		return err
	}
	zap.L().Info("seeded administrator account", zap.String("email", seed.Email))
	return nil
}
