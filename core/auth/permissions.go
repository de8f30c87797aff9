package auth

import (
	"sort"

	"github.com/elimusoft/elimu/core/user"
)

// Permission tags.
const (
	PermCoursesViewAll      = "courses.view.all"
	PermCoursesViewEnrolled = "courses.view.enrolled"
	PermCoursesCreate       = "courses.create"
	PermCoursesEditOwn      = "courses.edit.own"
	PermEnrollmentManage    = "enrollment.manage"
	PermAttendanceMark      = "attendance.mark"
	PermForumModerate       = "forum.moderate"
	PermInstructorsAssign   = "instructors.assign"
	PermUsersManage         = "users.manage"
)

// rolePermissions is the static role → permission-set matrix.
// Loaded once at process start (sorted in init for binary search) and never
// mutated afterwards; concurrent reads are safe without synchronization.
// Admin is a strict superset of instructor.
var rolePermissions = map[string][]string{
	user.RoleStudent: {
		PermCoursesViewEnrolled,
	},
	user.RoleInstructor: {
		PermCoursesViewAll,
		PermCoursesCreate,
		PermCoursesEditOwn,
		PermEnrollmentManage,
		PermAttendanceMark,
		PermForumModerate,
	},
	user.RoleAdmin: {
		PermCoursesViewAll,
		PermCoursesCreate,
		PermCoursesEditOwn,
		PermEnrollmentManage,
		PermAttendanceMark,
		PermForumModerate,
		PermInstructorsAssign,
		PermUsersManage,
	},
}

func init() {
	for _, perms := range rolePermissions {
		sort.Strings(perms)
	}
}

// HasPermission reports whether a role grants the given permission tag.
// A pure function of the matrix; unknown roles grant nothing.
func HasPermission(role, perm string) bool {
	perms, ok := rolePermissions[role]
	if !ok {
		return false
	}
	idx := sort.SearchStrings(perms, perm)
	return idx < len(perms) && perms[idx] == perm
}

func HasAnyPermission(role string, perms ...string) bool {
	for _, perm := range perms {
		if HasPermission(role, perm) {
			return true
		}
	}
	return false
}

func HasAllPermissions(role string, perms ...string) bool {
	for _, perm := range perms {
		if !HasPermission(role, perm) {
			return false
		}
	}
	return len(perms) > 0
}

// UserHasPermission checks every role assignment the user holds.
func UserHasPermission(usr user.User, perm string) bool {
	for _, role := range usr.Roles {
		if HasPermission(role, perm) {
			return true
		}
	}
	return false
}

// Named capability checks, derived from the matrix.

func CanViewAllCourses(role string) bool    { return HasPermission(role, PermCoursesViewAll) }
func CanCreateCourses(role string) bool     { return HasPermission(role, PermCoursesCreate) }
func CanManageEnrollment(role string) bool  { return HasPermission(role, PermEnrollmentManage) }
func CanMarkAttendance(role string) bool    { return HasPermission(role, PermAttendanceMark) }
func CanModerateForum(role string) bool     { return HasPermission(role, PermForumModerate) }
func CanAssignInstructors(role string) bool { return HasPermission(role, PermInstructorsAssign) }

// IsAdmin is defined as "holds the instructors.assign permission" — the
// matrix, not a separate flag, is the single source of truth.
func IsAdmin(usr user.User) bool {
	return UserHasPermission(usr, PermInstructorsAssign)
}
