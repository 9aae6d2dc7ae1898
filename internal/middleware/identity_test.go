package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-classroom-api/internal/auth"
	"github.com/noah-isme/gema-classroom-api/internal/database"
	"github.com/noah-isme/gema-classroom-api/internal/middleware"
	"github.com/noah-isme/gema-classroom-api/internal/models"
	"github.com/noah-isme/gema-classroom-api/internal/repository"
)

const testSecret = "test-secret"

func setupUsers(t *testing.T) (*gorm.DB, models.User, models.User) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	teacher := models.User{Name: "Ibu Sari", Email: "sari@school.test", Role: models.RoleTeacher}
	student := models.User{Name: "Rina", Email: "rina@school.test", Role: models.RoleStudent}
	require.NoError(t, db.Create(&teacher).Error)
	require.NoError(t, db.Create(&student).Error)
	return db, teacher, student
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func newApp(db *gorm.DB, gate fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Use(middleware.JWTProtected(testSecret))
	app.Use(middleware.ResolveIdentity(repository.NewUserRepository(db), zerolog.Nop()))
	app.Get("/", gate, func(c *fiber.Ctx) error {
		if teacher, ok := middleware.TeacherFromContext(c); ok {
			return c.JSON(fiber.Map{"teacher": teacher.UserID})
		}
		if student, ok := middleware.StudentFromContext(c); ok {
			return c.JSON(fiber.Map{"student": student.UserID})
		}
		identity, _ := middleware.IdentityFromContext(c)
		return c.JSON(fiber.Map{"role": string(identity.Role)})
	})
	return app
}

func call(t *testing.T, app *fiber.App, token string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func passthrough(c *fiber.Ctx) error { return c.Next() }

func TestStoredRoleWinsOverTokenClaim(t *testing.T) {
	db, _, student := setupUsers(t)
	app := newApp(db, middleware.RequireTeacher())

	token := signToken(t, jwt.MapClaims{"sub": float64(student.ID), "role": "teacher", "exp": time.Now().Add(time.Hour).Unix()})
	resp := call(t, app, token)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestRequireTeacherNarrowsIdentity(t *testing.T) {
	db, teacher, _ := setupUsers(t)
	app := newApp(db, middleware.RequireTeacher())

	resp := call(t, app, signToken(t, jwt.MapClaims{"sub": float64(teacher.ID)}))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRequireStudentRejectsTeacher(t *testing.T) {
	db, teacher, student := setupUsers(t)
	app := newApp(db, middleware.RequireStudent())

	require.Equal(t, fiber.StatusForbidden, call(t, app, signToken(t, jwt.MapClaims{"sub": float64(teacher.ID)})).StatusCode)
	subject := strconv.FormatUint(uint64(student.ID), 10)
	require.Equal(t, fiber.StatusOK, call(t, app, signToken(t, jwt.MapClaims{"user_id": subject, "exp": time.Now().Add(time.Minute).Unix()})).StatusCode)
}

func TestUnknownAccountAndBadTokens(t *testing.T) {
	db, _, _ := setupUsers(t)
	app := newApp(db, passthrough)

	require.Equal(t, fiber.StatusUnauthorized, call(t, app, "").StatusCode)
	require.Equal(t, fiber.StatusUnauthorized, call(t, app, "garbage").StatusCode)
	require.Equal(t, fiber.StatusUnauthorized, call(t, app, signToken(t, jwt.MapClaims{"sub": float64(999)})).StatusCode)
	require.Equal(t, fiber.StatusUnauthorized, call(t, app, signToken(t, jwt.MapClaims{"sub": float64(1), "exp": time.Now().Add(-time.Hour).Unix()})).StatusCode)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": float64(1)}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, call(t, app, none).StatusCode)

	require.Equal(t, fiber.StatusOK, call(t, app, signToken(t, jwt.MapClaims{"sub": float64(1)})).StatusCode)
}

func TestIdentityNarrowing(t *testing.T) {
	_, ok := auth.Identity{UserID: 1, Role: auth.RoleAdmin}.AsTeacher()
	require.False(t, ok, "admins are not teachers")
}
