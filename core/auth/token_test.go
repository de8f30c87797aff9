package auth

import (
	"testing"
	"time"

	"github.com/elimusoft/elimu/core/user"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestCodec(t *testing.T) *Codec {
	codec, err := NewCodec("Elimu", testSecret, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("NewCodec() failed: %v", err)
	}
	return codec
}

func newTestUser(roles ...string) user.User {
	usr := user.User{
		ID:        "e7a0d380-9f92-47a6-a545-cbb125e3b450",
		FirstName: "Ada",
		LastName:  "Wong",
		Email:     "ada@test.cd",
		Roles:     roles,
	}
	usr.SetActive(true)
	return usr
}

func TestNewCodecWeakSecret(t *testing.T) {
	if _, err := NewCodec("Elimu", []byte("short"), time.Hour); err != ErrWeakSecret {
		t.Errorf("NewCodec() error = %v, wantErr %v", err, ErrWeakSecret)
	}
}

func TestIssueVerifyToken(t *testing.T) {
	codec := newTestCodec(t)
	usr := newTestUser(user.RoleStudent, user.RoleInstructor)

	token, err := codec.IssueToken(codec.NewClaims(usr))
	if err != nil {
		t.Fatalf("IssueToken() failed: %v", err)
	}

	// generate an expired token
	nowFunc = func() time.Time { return time.Now().Add(-8 * 24 * time.Hour) }
	expiredToken, err := codec.IssueToken(codec.NewClaims(usr))
	if err != nil {
		t.Fatalf("IssueToken() failed: %v", err)
	}
	nowFunc = time.Now // reset

	// a token signed with a different key
	otherCodec, _ := NewCodec("Elimu", []byte("another-secret-key-32-bytes-long"), time.Hour)
	forgedToken, err := otherCodec.IssueToken(otherCodec.NewClaims(usr))
	if err != nil {
		t.Fatalf("IssueToken() failed: %v", err)
	}

	// flip one byte of the signature
	tampered := []byte(token)
	last := len(tampered) - 1
	if tampered[last] == 'A' {
		tampered[last] = 'B'
	} else {
		tampered[last] = 'A'
	}

	tests := []struct {
		name    string
		token   string
		wantNil bool
	}{
		{name: "no token", wantNil: true},
		{name: "malformed token", token: "lmaooolol", wantNil: true},
		{name: "tampered token", token: string(tampered), wantNil: true},
		{name: "forged token", token: forgedToken, wantNil: true},
		{name: "expired token", token: expiredToken, wantNil: true},
		{name: "valid token", token: token},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := codec.VerifyToken(tt.token)
			if tt.wantNil {
				if claims != nil {
					t.Errorf("VerifyToken() = %+v, want nil", claims)
				}
				return
			}
			if claims == nil {
				t.Fatal("VerifyToken() = nil, want claims")
			}
			if claims.Subject != usr.ID {
				t.Errorf("Subject = %v, want %v", claims.Subject, usr.ID)
			}
			if claims.Email != usr.Email {
				t.Errorf("Email = %v, want %v", claims.Email, usr.Email)
			}
			if !claims.HasStudentProfile || !claims.HasInstructorProfile {
				t.Errorf("profile flags = (%v, %v), want both true",
					claims.HasStudentProfile, claims.HasInstructorProfile)
			}
		})
	}
}

func TestNewClaims(t *testing.T) {
	codec := newTestCodec(t)

	tests := []struct {
		name         string
		usr          user.User
		currentView  string
		wantUserType string
		wantView     string
		wantRole     string
	}{
		{
			name:         "student defaults to student portal",
			usr:          newTestUser(user.RoleStudent),
			wantUserType: user.TypeStudent,
			wantView:     user.TypeStudent,
		},
		{
			name:         "instructor defaults to instructor portal",
			usr:          newTestUser(user.RoleInstructor),
			wantUserType: user.TypeInstructor,
			wantView:     user.TypeInstructor,
		},
		{
			name:         "dual-role defaults to student portal",
			usr:          newTestUser(user.RoleStudent, user.RoleInstructor),
			wantUserType: user.TypeStudent,
			wantView:     user.TypeStudent,
		},
		{
			name:         "dual-role switched to instructor portal",
			usr:          newTestUser(user.RoleStudent, user.RoleInstructor),
			currentView:  user.TypeInstructor,
			wantUserType: user.TypeInstructor,
			wantView:     user.TypeInstructor,
		},
		{
			name:         "admin carries the admin tag",
			usr:          newTestUser(user.RoleAdmin),
			wantUserType: user.TypeInstructor,
			wantView:     user.TypeInstructor,
			wantRole:     user.RoleAdmin,
		},
		{
			name:         "full-roles admin lands on the instructor portal",
			usr:          newTestUser(user.AllRoles...),
			wantUserType: user.TypeInstructor,
			wantView:     user.TypeInstructor,
			wantRole:     user.RoleAdmin,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var claims *Claims
			if tt.currentView != "" {
				claims = codec.NewClaims(tt.usr, tt.currentView)
			} else {
				claims = codec.NewClaims(tt.usr)
			}
			if claims.UserType != tt.wantUserType {
				t.Errorf("UserType = %v, want %v", claims.UserType, tt.wantUserType)
			}
			if claims.CurrentView != tt.wantView {
				t.Errorf("CurrentView = %v, want %v", claims.CurrentView, tt.wantView)
			}
			if claims.Role != tt.wantRole {
				t.Errorf("Role = %v, want %v", claims.Role, tt.wantRole)
			}
		})
	}
}

func TestNewSessionUser(t *testing.T) {
	codec := newTestCodec(t)

	// the admin tag must come from the store, not the token
	usr := newTestUser(user.RoleInstructor)
	claims := codec.NewClaims(usr)
	claims.Role = user.RoleAdmin // forged claim

	su := NewSessionUser(usr, claims)
	if su.Role != "" {
		t.Errorf("Role = %v, want empty", su.Role)
	}
	if su.FirstName != usr.FirstName || su.LastName != usr.LastName {
		t.Errorf("names = (%v, %v), want (%v, %v)", su.FirstName, su.LastName, usr.FirstName, usr.LastName)
	}
	if su.UserType != user.TypeInstructor {
		t.Errorf("UserType = %v, want %v", su.UserType, user.TypeInstructor)
	}
}
