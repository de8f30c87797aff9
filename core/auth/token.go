package auth

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"

	"github.com/elimusoft/elimu/core/user"
)

// minSecretLen guards against a forgeable-secret class of vulnerability:
// a Codec cannot be constructed with a key shorter than this.
const minSecretLen = 32

var (
	ErrWeakSecret = errors.Errorf("signing secret must be at least %d bytes", minSecretLen)

	nowFunc = time.Now // mockable
)

// Claims represents the authorization claims transmitted via a session token.
type Claims struct {
	jwt.StandardClaims
	Email                string `json:"email,omitempty"`
	UserType             string `json:"user_type,omitempty"` // student|instructor
	Role                 string `json:"role,omitempty"`      // admin tag, if any
	HasStudentProfile    bool   `json:"has_student_profile,omitempty"`
	HasInstructorProfile bool   `json:"has_instructor_profile,omitempty"`
	CurrentView          string `json:"current_view,omitempty"`
}

// Codec signs and verifies session tokens (HS256).
// Tokens are immutable once issued; a view switch issues a new token.
type Codec struct {
	appName         string
	secret          []byte
	expirationDelta time.Duration
}

// NewCodec fails fast on a weak secret; there is no fallback.
func NewCodec(appName string, secret []byte, expirationDelta time.Duration) (*Codec, error) {
	if len(secret) < minSecretLen {
		return nil, ErrWeakSecret
	}
	return &Codec{
		appName:         appName,
		secret:          secret,
		expirationDelta: expirationDelta,
	}, nil
}

// NewClaims derives the token claims for a user.
// currentView may override the portal the token operates as; it defaults to
// the user's default type.
func (c *Codec) NewClaims(usr user.User, currentView ...string) *Claims {
	now := nowFunc()

	userType := usr.DefaultType()
	view := userType
	if len(currentView) > 0 && currentView[0] != "" {
		view = currentView[0]
		userType = currentView[0]
	}

	var role string
	if usr.IsAdmin() {
		role = user.RoleAdmin
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    c.appName,
			Subject:   usr.ID,
			Audience:  "Elimu",
			ExpiresAt: now.Add(c.expirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Email:                usr.Email,
		UserType:             userType,
		Role:                 role,
		HasStudentProfile:    usr.HasStudentProfile(),
		HasInstructorProfile: usr.HasInstructorProfile() || usr.IsAdmin(),
		CurrentView:          view,
	}
}

// IssueToken generates a signed token string representing the Claims.
func (c *Codec) IssueToken(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString(c.secret)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// VerifyToken parses and validates a signed token string.
// It returns nil on any failure — malformed token, wrong signing method,
// signature mismatch or expiry — so callers cannot tell the reasons apart.
func (c *Codec) VerifyToken(tok string) *Claims {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %q", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil || !token.Valid {
		return nil
	}
	return claims
}

// SessionUser is the resolved, sanitized session identity handed to routes.
type SessionUser struct {
	ID                   string `json:"id"`
	Email                string `json:"email"`
	UserType             string `json:"user_type"`
	Role                 string `json:"role,omitempty"`
	FirstName            string `json:"first_name"`
	LastName             string `json:"last_name"`
	CurrentView          string `json:"current_view,omitempty"`
	HasStudentProfile    bool   `json:"has_student_profile"`
	HasInstructorProfile bool   `json:"has_instructor_profile"`
}

// NewSessionUser combines live store state with the token's view claims.
// Display fields and the admin tag come from the store, never from the token.
func NewSessionUser(usr user.User, claims *Claims) SessionUser {
	var role string
	if usr.IsAdmin() {
		role = user.RoleAdmin
	}
	return SessionUser{
		ID:                   usr.ID,
		Email:                usr.Email,
		UserType:             claims.UserType,
		Role:                 role,
		FirstName:            usr.FirstName,
		LastName:             usr.LastName,
		CurrentView:          claims.CurrentView,
		HasStudentProfile:    usr.HasStudentProfile(),
		HasInstructorProfile: usr.HasInstructorProfile() || usr.IsAdmin(),
	}
}
