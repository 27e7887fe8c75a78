package usecases

import (
	"context"
	"errors"
	"strings"
	"time"

	"conexbot/internal/entities"
	"conexbot/internal/interfaces"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Role     string
	Company  string
	Phone    string
	CPF      string
}

type UpdateUserInput struct {
	Name     string
	Email    string
	Role     string
	Password string // empty keeps the stored hash

	Company       *string
	Phone         *string
	CPF           *string
	PlanExpiresAt *time.Time
	ClearPlan     bool
}

// UserAdminUsecase backs the admin user management API.
type UserAdminUsecase struct {
	users    interfaces.UserStore
	provider interfaces.InstanceProvider
	saga     *InstanceSaga
}

func NewUserAdminUsecase(users interfaces.UserStore, provider interfaces.InstanceProvider, saga *InstanceSaga) *UserAdminUsecase {
	return &UserAdminUsecase{users: users, provider: provider, saga: saga}
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// createAccount validates and inserts an account. Shared by signup, admin
// create and the startup seed.
func createAccount(ctx context.Context, users interfaces.UserStore, in CreateUserInput) (*entities.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Company = strings.TrimSpace(in.Company)
	in.Phone = strings.TrimSpace(in.Phone)
	in.CPF = strings.TrimSpace(in.CPF)
	if in.Role == "" {
		in.Role = entities.RoleUser
	}

	verr := &entities.ValidationError{}
	if in.Name == "" {
		verr.Add("name", "name is required")
	}
	checkLength(verr, "name", in.Name, entities.MaxNameLength)
	checkProfileLengths(verr, &in.Company, &in.Phone, &in.CPF)
	if !ValidEmail(in.Email) {
		verr.Add("email", "a valid email is required")
	}
	if len(in.Password) < MinPasswordLength {
		verr.Add("password", "password must have at least 6 characters")
	}
	if !entities.ValidRole(in.Role) {
		verr.Add("role", "role must be admin, user or moderator")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &entities.User{
		Name:            in.Name,
		Email:           in.Email,
		PasswordHash:    hash,
		Role:            in.Role,
		Company:         in.Company,
		Phone:           in.Phone,
		CPF:             in.CPF,
		MessageInterval: entities.DefaultMessageInterval,
		Contacts:        []entities.Contact{},
	}
	if err := users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (uc *UserAdminUsecase) Dashboard(ctx context.Context) (entities.RoleCounts, error) {
	return uc.users.CountByRole(ctx)
}

func (uc *UserAdminUsecase) List(ctx context.Context) ([]entities.User, error) {
	return uc.users.List(ctx)
}

// Create inserts the account, then provisions its WhatsApp instance. A failed
// provisioning is reported in the outcome only.
func (uc *UserAdminUsecase) Create(ctx context.Context, actor entities.Identity, in CreateUserInput) (*entities.User, InstanceOutcome, error) {
	if !actor.IsAdmin() {
		return nil, InstanceOutcome{}, ErrForbidden
	}
	user, err := createAccount(ctx, uc.users, in)
	if err != nil {
		return nil, InstanceOutcome{}, err
	}
	zap.L().Info("user created by admin",
		zap.Int("admin_id", actor.ID), zap.Int("user_id", user.ID), zap.String("role", user.Role))

	outcome := uc.saga.Provision(ctx, user.Email, entities.InstanceOptions{})
	return user, outcome, nil
}

func (uc *UserAdminUsecase) Update(ctx context.Context, actor entities.Identity, id int, in UpdateUserInput) (*entities.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Password = strings.TrimSpace(in.Password)
	in.Company = trimPtr(in.Company)
	in.Phone = trimPtr(in.Phone)
	in.CPF = trimPtr(in.CPF)

	verr := &entities.ValidationError{}
	if in.Name == "" {
		verr.Add("name", "name is required")
	}
	checkLength(verr, "name", in.Name, entities.MaxNameLength)
	checkProfileLengths(verr, in.Company, in.Phone, in.CPF)
	if !ValidEmail(in.Email) {
		verr.Add("email", "a valid email is required")
	}
	if in.Role == "" {
		verr.Add("role", "role is required")
	}
	if in.Password != "" && len(in.Password) < MinPasswordLength {
		verr.Add("password", "password must have at least 6 characters")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	if err := AuthorizeUserChange(actor, id, RoleChange(in.Role)); err != nil {
		return nil, err
	}

	user, err := uc.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, entities.ErrNotFound
	}

	user.Name, user.Email, user.Role = in.Name, in.Email, in.Role
	if in.Company != nil {
		user.Company = *in.Company
	}
	if in.Phone != nil {
		user.Phone = *in.Phone
	}
	if in.CPF != nil {
		user.CPF = *in.CPF
	}
	if in.PlanExpiresAt != nil {
		user.PlanExpiresAt = in.PlanExpiresAt
	} else if in.ClearPlan {
		user.PlanExpiresAt = nil
	}

	var hash string
	if in.Password != "" {
		if hash, err = hashPassword(in.Password); err != nil {
			return nil, err
		}
	}
	if err := uc.users.Update(ctx, user, hash); err != nil {
		return nil, err
	}

	zap.L().Info("user updated by admin",
		zap.Int("admin_id", actor.ID), zap.Int("user_id", id), zap.Bool("password_changed", hash != ""))
	return user, nil
}

func (uc *UserAdminUsecase) UpdateRole(ctx context.Context, actor entities.Identity, id int, role string) (*entities.User, error) {
	if err := AuthorizeUserChange(actor, id, RoleChange(role)); err != nil {
		return nil, err
	}
	user, err := uc.users.UpdateRole(ctx, id, role)
	if err != nil {
		return nil, err
	}
	zap.L().Info("user role changed",
		zap.Int("admin_id", actor.ID), zap.Int("user_id", id), zap.String("role", role))
	return user, nil
}

// Delete removes the account, then its WhatsApp instance. A failed instance
// removal is logged and reported in the outcome only.
func (uc *UserAdminUsecase) Delete(ctx context.Context, actor entities.Identity, id int) (*entities.User, InstanceOutcome, error) {
	if err := AuthorizeUserChange(actor, id, DeleteChange()); err != nil {
		return nil, InstanceOutcome{}, err
	}
	user, err := uc.users.Delete(ctx, id)
	if err != nil {
		return nil, InstanceOutcome{}, err
	}
	zap.L().Info("user deleted by admin", zap.Int("admin_id", actor.ID), zap.Int("user_id", id))

	outcome := uc.saga.Deprovision(ctx, user.Email)
	return user, outcome, nil
}

// CreateInstanceFor provisions an instance for an existing account. Unlike
// the create saga the provider result is the point of the call.
func (uc *UserAdminUsecase) CreateInstanceFor(ctx context.Context, email string, opts entities.InstanceOptions) (entities.InstanceResult, error) {
	user, err := uc.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return entities.InstanceResult{}, err
	}
	if user == nil {
		return entities.InstanceResult{}, entities.ErrNotFound
	}
	return uc.provider.CreateInstance(ctx, user.Email, opts), nil
}

func (uc *UserAdminUsecase) DeleteInstanceFor(ctx context.Context, email string) entities.InstanceResult {
	return uc.provider.DeleteInstance(ctx, strings.TrimSpace(email))
}

func (uc *UserAdminUsecase) InstanceStatus(ctx context.Context, email string) entities.StatusResult {
	return uc.provider.Status(ctx, strings.TrimSpace(email))
}

func (uc *UserAdminUsecase) ListInstances(ctx context.Context) entities.InstanceListResult {
	return uc.provider.ListInstances(ctx)
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

// IsPolicyError reports whether err is a role policy rejection.
func IsPolicyError(err error) bool {
	return errors.Is(err, ErrSelfDemotion) || errors.Is(err, ErrSelfDeletion) || errors.Is(err, ErrInvalidRole)
}
