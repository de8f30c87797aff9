package user

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/elimusoft/elimu/core"
)

// Role assignments. A user holds one or more; holding both RoleStudent and
// RoleInstructor at once (dual-role) is a first-class case.
const (
	RoleStudent    = "student"
	RoleInstructor = "instructor"
	RoleAdmin      = "admin"
)

// User types (portals). The type a session operates as; dual-role users
// switch between the two without re-authenticating.
const (
	TypeStudent    = "student"
	TypeInstructor = "instructor"
)

var (
	AllRoles = []string{RoleStudent, RoleInstructor, RoleAdmin}
	AllTypes = []string{TypeStudent, TypeInstructor}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent},
		{Name: "Instructor", Value: RoleInstructor},
		{Name: "Admin", Value: RoleAdmin},
	}
)

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID              string     `json:"id"`
	FirstName       string     `json:"first_name"`
	LastName        string     `json:"last_name"`
	Email           string     `json:"email"`
	IsActive        *bool      `json:"is_active"`
	IsEmailVerified bool       `json:"is_email_verified"`
	Roles           []string   `json:"roles"`
	PasswordHash    []byte     `json:"-"`
	Country         string     `json:"country,omitempty"`
	Timezone        string     `json:"timezone,omitempty"`
	Birthday        *time.Time `json:"birthday,omitempty"`
	CreatedAt       time.Time  `json:"created_at"` // UTC
	UpdatedAt       time.Time  `json:"updated_at"` // UTC
	LastLogin       time.Time  `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) SetActive(active bool) {
	u.IsActive = &active
}

func (u User) Active() bool {
	return u.IsActive != nil && *u.IsActive
}

func (u User) FullName() string {
	return core.CleanString(u.FirstName + " " + u.LastName)
}

func (u User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (u User) HasStudentProfile() bool    { return u.HasRole(RoleStudent) }
func (u User) HasInstructorProfile() bool { return u.HasRole(RoleInstructor) }
func (u User) IsAdmin() bool              { return u.HasRole(RoleAdmin) }

// HasType reports whether the user holds a role assignment backing the given
// user type. The admin role rides on the instructor portal.
func (u User) HasType(userType string) bool {
	switch userType {
	case TypeStudent:
		return u.HasStudentProfile()
	case TypeInstructor:
		return u.HasInstructorProfile() || u.IsAdmin()
	}
	return false
}

// DefaultType is the portal a fresh sign-in lands on. Admins land on the
// instructor portal; dual-role users land on the student portal and switch.
func (u User) DefaultType() string {
	if u.IsAdmin() {
		return TypeInstructor
	}
	if u.HasType(TypeInstructor) && !u.HasStudentProfile() {
		return TypeInstructor
	}
	return TypeStudent
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	FirstName       string     `json:"first_name" validate:"required"`
	LastName        string     `json:"last_name" validate:"required"`
	Email           string     `json:"email" validate:"required,email"`
	Password        string     `json:"password" validate:"required"`
	PasswordConfirm string     `json:"password_confirm" validate:"required,eqfield=Password"`
	UserType        string     `json:"user_type" validate:"omitempty,oneof=student instructor"`
	Country         string     `json:"country"`
	Timezone        string     `json:"timezone"`
	Birthday        *time.Time `json:"birthday"`
}

func (nu *NewUser) Validate(validate *validator.Validate, svc ServiceInterface) error {
	nu.FirstName = core.CleanString(nu.FirstName)
	nu.LastName = core.CleanString(nu.LastName)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	if nu.UserType == "" {
		nu.UserType = TypeStudent
	}

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
// `IsActive` and `Roles` may only be set by admins; the handlers enforce that.
type UpdateUser struct {
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	IsActive  *bool    `json:"is_active"`
	Roles     []string `json:"roles" validate:"omitempty,allroles"`
	Country   string   `json:"country"`
	Timezone  string   `json:"timezone"`
}

func (uu *UpdateUser) Validate(origUsr User, validate *validator.Validate) error {
	firstName := core.CleanString(uu.FirstName)
	if firstName != "" {
		uu.FirstName = firstName
	} else {
		uu.FirstName = origUsr.FirstName
	}

	lastName := core.CleanString(uu.LastName)
	if lastName != "" {
		uu.LastName = lastName
	} else {
		uu.LastName = origUsr.LastName
	}

	if uu.Roles != nil {
		uu.Roles = cleanRoles(uu.Roles)
	}
	return validate.Struct(uu)
}

// ChangePassword carries a password change for an authenticated user.
type ChangePassword struct {
	OldPassword     string `json:"old_password" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`

	// attribute-similarity inputs; populated by the handler, never bound
	FirstName string `json:"-"`
	LastName  string `json:"-"`
	Email     string `json:"-"`
}

func (cp ChangePassword) Validate(validate *validator.Validate) error {
	return validate.Struct(cp)
}

type QueryFilter struct {
	Search      string    `query:"search"`
	Roles       []string  `query:"role"`
	IsActive    *bool     `query:"is_active"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil && qf.IsActive == nil && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// RolesForType returns the initial role assignments of a new sign-up.
func RolesForType(userType string) []string {
	if userType == TypeInstructor {
		return []string{RoleInstructor}
	}
	return []string{RoleStudent}
}

func cleanRoles(roles []string) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		r = strings.TrimSpace(strings.ToLower(r))
		if r != "" {
			out = append(out, r)
		}
	}
	return out
}
