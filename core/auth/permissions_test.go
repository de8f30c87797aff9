package auth

import (
	"testing"

	"github.com/elimusoft/elimu/core/user"
)

func TestHasPermission(t *testing.T) {
	tests := []struct {
		name string
		role string
		perm string
		want bool
	}{
		{name: "student views enrolled courses", role: user.RoleStudent, perm: PermCoursesViewEnrolled, want: true},
		{name: "student cannot view all courses", role: user.RoleStudent, perm: PermCoursesViewAll},
		{name: "student cannot create courses", role: user.RoleStudent, perm: PermCoursesCreate},
		{name: "instructor views all courses", role: user.RoleInstructor, perm: PermCoursesViewAll, want: true},
		{name: "instructor creates courses", role: user.RoleInstructor, perm: PermCoursesCreate, want: true},
		{name: "instructor edits own courses", role: user.RoleInstructor, perm: PermCoursesEditOwn, want: true},
		{name: "instructor manages enrollment", role: user.RoleInstructor, perm: PermEnrollmentManage, want: true},
		{name: "instructor marks attendance", role: user.RoleInstructor, perm: PermAttendanceMark, want: true},
		{name: "instructor moderates forum", role: user.RoleInstructor, perm: PermForumModerate, want: true},
		{name: "instructor cannot assign instructors", role: user.RoleInstructor, perm: PermInstructorsAssign},
		{name: "instructor cannot manage users", role: user.RoleInstructor, perm: PermUsersManage},
		{name: "admin assigns instructors", role: user.RoleAdmin, perm: PermInstructorsAssign, want: true},
		{name: "admin manages users", role: user.RoleAdmin, perm: PermUsersManage, want: true},
		{name: "unknown role grants nothing", role: "janitor", perm: PermCoursesViewEnrolled},
		{name: "unknown permission", role: user.RoleAdmin, perm: "courses.destroy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasPermission(tt.role, tt.perm); got != tt.want {
				t.Errorf("HasPermission(%q, %q) = %v, want %v", tt.role, tt.perm, got, tt.want)
			}
		})
	}
}

func TestAdminSupersetOfInstructor(t *testing.T) {
	for _, perm := range rolePermissions[user.RoleInstructor] {
		if !HasPermission(user.RoleAdmin, perm) {
			t.Errorf("admin is missing instructor permission %q", perm)
		}
	}
}

func TestHasAnyAllPermissions(t *testing.T) {
	if !HasAnyPermission(user.RoleStudent, PermCoursesViewAll, PermCoursesViewEnrolled) {
		t.Error("HasAnyPermission() = false, want true")
	}
	if HasAnyPermission(user.RoleStudent, PermCoursesViewAll, PermCoursesCreate) {
		t.Error("HasAnyPermission() = true, want false")
	}
	if !HasAllPermissions(user.RoleInstructor, PermCoursesCreate, PermForumModerate) {
		t.Error("HasAllPermissions() = false, want true")
	}
	if HasAllPermissions(user.RoleInstructor, PermCoursesCreate, PermUsersManage) {
		t.Error("HasAllPermissions() = true, want false")
	}
	// an empty permission list grants nothing
	if HasAllPermissions(user.RoleAdmin) {
		t.Error("HasAllPermissions() with no permissions = true, want false")
	}
}

func TestUserHasPermission(t *testing.T) {
	dual := newTestUser(user.RoleStudent, user.RoleInstructor)
	if !UserHasPermission(dual, PermCoursesViewEnrolled) || !UserHasPermission(dual, PermCoursesCreate) {
		t.Error("dual-role user is missing a permission from one of their roles")
	}
	if UserHasPermission(dual, PermInstructorsAssign) {
		t.Error("dual-role user should not assign instructors")
	}
}

func TestIsAdmin(t *testing.T) {
	if IsAdmin(newTestUser(user.RoleInstructor)) {
		t.Error("IsAdmin(instructor) = true, want false")
	}
	if !IsAdmin(newTestUser(user.RoleAdmin)) {
		t.Error("IsAdmin(admin) = false, want true")
	}
	if IsAdmin(newTestUser()) {
		t.Error("IsAdmin(no roles) = true, want false")
	}
}
