package auth_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-classroom-api/internal/auth"
)

func TestParseRoleNormalises(t *testing.T) {
	require.Equal(t, auth.RoleTeacher, auth.ParseRole(" Teacher "))
	require.Equal(t, auth.RoleStudent, auth.ParseRole("STUDENT"))
	require.Equal(t, auth.RoleAdmin, auth.ParseRole("admin"))
	require.Equal(t, auth.Role(""), auth.ParseRole("guest"))
}

func TestIdentityNarrowing(t *testing.T) {
	teacherIdentity := auth.Identity{UserID: 7, Role: auth.RoleTeacher}

	teacher, ok := teacherIdentity.AsTeacher()
	require.True(t, ok)
	require.Equal(t, uint(7), teacher.UserID)

	_, ok = teacherIdentity.AsStudent()
	require.False(t, ok)

	student, ok := auth.Identity{UserID: 9, Role: auth.RoleStudent}.AsStudent()
	require.True(t, ok)
	require.Equal(t, uint(9), student.UserID)

	_, ok = auth.Identity{UserID: 3, Role: auth.RoleAdmin}.AsTeacher()
	require.False(t, ok, "admins are not classroom teachers")

	_, ok = auth.Identity{Role: auth.RoleTeacher}.AsTeacher()
	require.False(t, ok, "anonymous identity cannot be narrowed")
}
