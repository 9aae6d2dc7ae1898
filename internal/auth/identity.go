// Package auth defines the caller identities resolved once per request.
//
// Handlers never compare role strings. Middleware turns the stored account role into an
// Identity, and narrows it into a Teacher or Student before a handler runs; services take
// the narrowed type so a student identity cannot reach a teacher operation.
package auth

import (
	"strings"

	"github.com/noah-isme/gema-classroom-api/internal/models"
)

// Role is the account role stored on the user record.
type Role string

const (
	RoleTeacher Role = models.RoleTeacher
	RoleStudent Role = models.RoleStudent
	RoleAdmin   Role = models.RoleAdmin
)

// ParseRole normalises a stored role string. Unknown roles yield an empty Role.
func ParseRole(value string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(value))) {
	case RoleTeacher:
		return RoleTeacher
	case RoleStudent:
		return RoleStudent
	case RoleAdmin:
		return RoleAdmin
	default:
		return ""
	}
}

// Identity is an authenticated caller whose role was read from the account store.
type Identity struct {
	UserID uint
	Role   Role
}

// Teacher is an identity proven to hold the teacher role.
type Teacher struct {
	UserID uint
}

// Student is an identity proven to hold the student role.
type Student struct {
	UserID uint
}

// AsTeacher narrows the identity to a Teacher.
func (i Identity) AsTeacher() (Teacher, bool) {
	if i.UserID == 0 || i.Role != RoleTeacher {
		return Teacher{}, false
	}
	return Teacher{UserID: i.UserID}, true
}

// AsStudent narrows the identity to a Student.
func (i Identity) AsStudent() (Student, bool) {
	if i.UserID == 0 || i.Role != RoleStudent {
		return Student{}, false
	}
	return Student{UserID: i.UserID}, true
}
