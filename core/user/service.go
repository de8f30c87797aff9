package user

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/elimusoft/elimu/core"
)

var (
	// errors
	ErrNotFound    = errors.New("user not found")
	ErrEmailExists = errors.New("a user with this email already exists")

	// ErrInvalidCredentials collapses every sign-in failure cause (unknown
	// email, wrong password, missing hash, deactivated account) into one
	// message so callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type (
	// GetFilter selects a single user by ID or email.
	GetFilter struct {
		ID    string
		Email string
	}

	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of
		// User.FirstName, User.LastName or User.Email.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		UpdateOrCreateUser(ctx context.Context, usr User) (User, error)
		// SetLastLogin is a single-field, best-effort write; it carries no
		// cross-record invariant.
		SetLastLogin(ctx context.Context, id string, t time.Time) error
	}

	ServiceInterface interface {
		CheckEmailUniqueness(email string, excludedUsers ...User) error
		Create(ctx context.Context, nu NewUser) (User, error)
		Authenticate(ctx context.Context, email, pwd string) (User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		Update(ctx context.Context, id string, uu UpdateUser) (User, error)
		ChangePassword(ctx context.Context, usr User, newPwd string) (User, error)
	}

	Service struct {
		repo   Repository
		logger core.Logger
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (svc *Service) CheckEmailUniqueness(email string, excludedUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(context.Background(), email, excludedUsers...); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		FirstName: nu.FirstName,
		LastName:  nu.LastName,
		Email:     nu.Email,
		Roles:     RolesForType(nu.UserType),
		Country:   nu.Country,
		Timezone:  nu.Timezone,
		Birthday:  nu.Birthday,
		CreatedAt: now,
		UpdatedAt: now,
	}
	usr.SetActive(true)
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

// Authenticate checks the given credentials against the store.
// Any failure cause comes back as ErrInvalidCredentials; unexpected store
// errors are returned as-is for the caller to treat as server errors.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if len(usr.PasswordHash) == 0 {
		return User{}, ErrInvalidCredentials
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if !usr.Active() {
		return User{}, ErrInvalidCredentials
	}

	// best effort; a failed lastLogin write must not fail the sign-in
	now := time.Now().UTC()
	if err = svc.repo.SetLastLogin(ctx, usr.ID, now); err != nil {
		svc.logger.Warn("setting lastLogin", err, usr)
	} else {
		usr.LastLogin = now
	}
	return usr, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

func (svc *Service) Update(ctx context.Context, id string, uu UpdateUser) (User, error) {
	usr := User{
		ID:        id,
		FirstName: uu.FirstName,
		LastName:  uu.LastName,
		IsActive:  uu.IsActive,
		Roles:     uu.Roles,
		Country:   uu.Country,
		Timezone:  uu.Timezone,
		UpdatedAt: time.Now().UTC(),
	}
	return svc.repo.UpdateUser(ctx, usr)
}

// ChangePassword stores a new password hash.
// Known gap: outstanding session tokens stay valid until their natural
// expiry; there is no token-version counter yet.
func (svc *Service) ChangePassword(ctx context.Context, usr User, newPwd string) (User, error) {
	if err := usr.SetPassword(newPwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}
