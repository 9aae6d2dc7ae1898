package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-classroom-api/internal/auth"
	"github.com/noah-isme/gema-classroom-api/internal/repository"
	"github.com/noah-isme/gema-classroom-api/internal/utils"
)

const (
	localIdentity = "identity"
	localTeacher  = "teacher"
	localStudent  = "student"
)

// ResolveIdentity loads the account behind user_id once per request and stores its identity.
func ResolveIdentity(users repository.UserRepository, logger zerolog.Logger) fiber.Handler {
	log := logger.With().Str("component", "identity_middleware").Logger()

	return func(c *fiber.Ctx) error {
		userID, ok := c.Locals(localUserID).(uint)
		if !ok || userID == 0 {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}

		user, err := users.GetByID(c.UserContext(), userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.SendError(c, fiber.StatusUnauthorized, "unknown account")
			}
			log.Error().Err(err).Uint("user_id", userID).Str("correlation_id", GetCorrelationID(c)).Msg("failed to resolve identity")
			return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
		}

		identity := auth.Identity{UserID: user.ID, Role: auth.ParseRole(user.Role)}
		if claimed, _ := c.Locals(localClaimedRole).(string); claimed != "" && claimed != string(identity.Role) {
			log.Debug().Uint("user_id", user.ID).Str("claimed_role", claimed).Str("stored_role", string(identity.Role)).Msg("token role differs from account")
		}

		c.Locals(localIdentity, identity)
		return c.Next()
	}
}

// RequireTeacher admits teacher accounts only.
func RequireTeacher() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}
		teacher, ok := identity.AsTeacher()
		if !ok {
			return utils.SendError(c, fiber.StatusForbidden, "teacher role required")
		}
		c.Locals(localTeacher, teacher)
		return c.Next()
	}
}

// RequireStudent admits student accounts only.
func RequireStudent() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}
		student, ok := identity.AsStudent()
		if !ok {
			return utils.SendError(c, fiber.StatusForbidden, "student role required")
		}
		c.Locals(localStudent, student)
		return c.Next()
	}
}

// IdentityFromContext returns the identity stored by ResolveIdentity.
func IdentityFromContext(c *fiber.Ctx) (auth.Identity, bool) {
	identity, ok := c.Locals(localIdentity).(auth.Identity)
	return identity, ok && identity.UserID != 0
}

// TeacherFromContext returns the identity narrowed by RequireTeacher.
func TeacherFromContext(c *fiber.Ctx) (auth.Teacher, bool) {
	teacher, ok := c.Locals(localTeacher).(auth.Teacher)
	return teacher, ok
}

// StudentFromContext returns the identity narrowed by RequireStudent.
func StudentFromContext(c *fiber.Ctx) (auth.Student, bool) {
	student, ok := c.Locals(localStudent).(auth.Student)
	return student, ok
}
