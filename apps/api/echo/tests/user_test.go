package tests

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	. "github.com/elimusoft/elimu/apps/api/echo"
	"github.com/elimusoft/elimu/core/user"
	testutil "github.com/elimusoft/elimu/tests"
)

func TestUserQuery(t *testing.T) {
	app := setup(t)

	testutil.CreateUser(t, usrRepo, "Ada", "Wong", "ada@test.cd", testPassword, []string{user.RoleStudent}, true)
	testutil.CreateUser(t, usrRepo, "Mori", "Yuki", "mori@test.cd", testPassword, []string{user.RoleInstructor}, true)
	testutil.CreateUser(t, usrRepo, "Root", "Admin", "admin@test.cd", testPassword, user.AllRoles, true)

	t.Run("anonymous", func(t *testing.T) {
		c := newClient(t, app)
		if rec := c.get("/v1/users"); rec.Code != http.StatusUnauthorized {
			t.Errorf("code = %v, want %v", rec.Code, http.StatusUnauthorized)
		}
	})

	t.Run("non-admin", func(t *testing.T) {
		c := newClient(t, app)
		c.signIn("ada@test.cd", testPassword)
		if rec := c.get("/v1/users"); rec.Code != http.StatusForbidden {
			t.Errorf("code = %v, want %v", rec.Code, http.StatusForbidden)
		}
		if rec := c.get("/v1/users/roles"); rec.Code != http.StatusForbidden {
			t.Errorf("code = %v, want %v", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("admin", func(t *testing.T) {
		c := newClient(t, app)
		c.signIn("admin@test.cd", testPassword)

		rec := c.get("/v1/users")
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v, want %v; body = %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var users []user.User
		if err := json.Unmarshal(rec.Body.Bytes(), &users); err != nil {
			t.Fatalf("decoding users: %v", err)
		}
		if len(users) != 3 {
			t.Errorf("len(users) = %d, want 3", len(users))
		}

		// filter by role
		rec = c.get("/v1/users?role=instructor")
		if err := json.Unmarshal(rec.Body.Bytes(), &users); err != nil {
			t.Fatalf("decoding users: %v", err)
		}
		if len(users) != 2 { // instructor + admin (holds all roles)
			t.Errorf("len(users) = %d, want 2", len(users))
		}

		rec = c.get("/v1/users/roles")
		if rec.Code != http.StatusOK {
			t.Errorf("code = %v, want %v", rec.Code, http.StatusOK)
		}
		if !strings.Contains(rec.Body.String(), user.RoleInstructor) {
			t.Errorf("body = %s, want role list", rec.Body.String())
		}
	})

	// admin endpoints ride the instructor portal; an admin browsing as a
	// student is just a student
	t.Run("admin in student view", func(t *testing.T) {
		c := newClient(t, app)
		c.signIn("admin@test.cd", testPassword)

		rec := c.post("/v1/auth/switch-view", marchallObj(t, SwitchViewRequest{View: user.TypeStudent}))
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v, want %v; body = %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		if rec := c.get("/v1/users"); rec.Code != http.StatusForbidden {
			t.Errorf("code = %v, want %v", rec.Code, http.StatusForbidden)
		}
	})
}

func TestUserRetrieve(t *testing.T) {
	app := setup(t)

	ada := testutil.CreateUser(t, usrRepo, "Ada", "Wong", "ada@test.cd", testPassword, []string{user.RoleStudent}, true)
	mori := testutil.CreateUser(t, usrRepo, "Mori", "Yuki", "mori@test.cd", testPassword, []string{user.RoleInstructor}, true)
	testutil.CreateUser(t, usrRepo, "Root", "Admin", "admin@test.cd", testPassword, user.AllRoles, true)

	t.Run("self", func(t *testing.T) {
		c := newClient(t, app)
		c.signIn("ada@test.cd", testPassword)

		rec := c.get("/v1/users/" + ada.ID)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v, want %v; body = %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var usr user.User
		if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
			t.Fatalf("decoding user: %v", err)
		}
		if usr.ID != ada.ID {
			t.Errorf("ID = %v, want %v", usr.ID, ada.ID)
		}
	})

	// someone else's record is a 404, not a 403
	t.Run("other user", func(t *testing.T) {
		c := newClient(t, app)
		c.signIn("ada@test.cd", testPassword)
		if rec := c.get("/v1/users/" + mori.ID); rec.Code != http.StatusNotFound {
			t.Errorf("code = %v, want %v", rec.Code, http.StatusNotFound)
		}
	})

	t.Run("admin reads anyone", func(t *testing.T) {
		c := newClient(t, app)
		c.signIn("admin@test.cd", testPassword)
		if rec := c.get("/v1/users/" + mori.ID); rec.Code != http.StatusOK {
			t.Errorf("code = %v, want %v; body = %s", rec.Code, http.StatusOK, rec.Body.String())
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		c := newClient(t, app)
		c.signIn("admin@test.cd", testPassword)
		if rec := c.get("/v1/users/e7a0d380-9f92-47a6-a545-cbb125e3b450"); rec.Code != http.StatusNotFound {
			t.Errorf("code = %v, want %v", rec.Code, http.StatusNotFound)
		}
	})
}

func TestUserUpdate(t *testing.T) {
	app := setup(t)

	ada := testutil.CreateUser(t, usrRepo, "Ada", "Wong", "ada@test.cd", testPassword, []string{user.RoleStudent}, true)
	testutil.CreateUser(t, usrRepo, "Root", "Admin", "admin@test.cd", testPassword, user.AllRoles, true)

	t.Run("self profile fields", func(t *testing.T) {
		c := newClient(t, app)
		c.signIn("ada@test.cd", testPassword)

		rec := c.put("/v1/users/"+ada.ID, marchallObj(t, user.UpdateUser{Country: "CD", Timezone: "Africa/Lubumbashi"}))
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v, want %v; body = %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var usr user.User
		if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
			t.Fatalf("decoding user: %v", err)
		}
		if usr.Country != "CD" || usr.Timezone != "Africa/Lubumbashi" {
			t.Errorf("(country, timezone) = (%v, %v), want (CD, Africa/Lubumbashi)", usr.Country, usr.Timezone)
		}
	})

	// non-admins cannot touch role assignments or activation
	t.Run("self role escalation", func(t *testing.T) {
		c := newClient(t, app)
		c.signIn("ada@test.cd", testPassword)

		rec := c.put("/v1/users/"+ada.ID, marchallObj(t, user.UpdateUser{Roles: user.AllRoles}))
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %v, want %v", rec.Code, http.StatusForbidden)
		}

		inactive := false
		rec = c.put("/v1/users/"+ada.ID, marchallObj(t, user.UpdateUser{IsActive: &inactive}))
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %v, want %v", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("admin grants a role", func(t *testing.T) {
		c := newClient(t, app)
		c.signIn("admin@test.cd", testPassword)

		rec := c.put("/v1/users/"+ada.ID, marchallObj(t, user.UpdateUser{
			Roles: []string{user.RoleStudent, user.RoleInstructor},
		}))
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v, want %v; body = %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var usr user.User
		if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
			t.Fatalf("decoding user: %v", err)
		}
		if !usr.HasRole(user.RoleInstructor) {
			t.Errorf("Roles = %v, want instructor granted", usr.Roles)
		}
	})

	t.Run("invalid roles", func(t *testing.T) {
		c := newClient(t, app)
		c.signIn("admin@test.cd", testPassword)

		rec := c.put("/v1/users/"+ada.ID, marchallObj(t, user.UpdateUser{Roles: []string{"janitor"}}))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v, want %v; body = %s", rec.Code, http.StatusBadRequest, rec.Body.String())
		}
	})
}
