package handler

import (
	"context"
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-classroom-api/internal/auth"
	"github.com/noah-isme/gema-classroom-api/internal/middleware"
	"github.com/noah-isme/gema-classroom-api/internal/service"
	"github.com/noah-isme/gema-classroom-api/internal/utils"
)

var errMissingIdentity = errors.New("authentication required")

func parseUintParam(c *fiber.Ctx, name string) (uint, error) {
	value := strings.TrimSpace(c.Params(name))
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil || parsed == 0 {
		return 0, errors.New("invalid " + name)
	}
	return uint(parsed), nil
}

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.New("invalid " + key)
	}
	return parsed, nil
}

// requestContext carries the correlation id into services.
func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func teacherFrom(c *fiber.Ctx) (auth.Teacher, error) {
	teacher, ok := middleware.TeacherFromContext(c)
	if !ok {
		return auth.Teacher{}, errMissingIdentity
	}
	return teacher, nil
}

func studentFrom(c *fiber.Ctx) (auth.Student, error) {
	student, ok := middleware.StudentFromContext(c)
	if !ok {
		return auth.Student{}, errMissingIdentity
	}
	return student, nil
}

func identityFrom(c *fiber.Ctx) (auth.Identity, error) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		return auth.Identity{}, errMissingIdentity
	}
	return identity, nil
}

// respondError maps service errors onto the HTTP taxonomy. Unexpected errors are logged and hidden.
func respondError(c *fiber.Ctx, logger zerolog.Logger, err error, event string) error {
	var (
		validationErrors validator.ValidationErrors
		missingSteps     *service.MissingStepsError
	)

	switch {
	case errors.Is(err, errMissingIdentity):
		return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
	case errors.As(err, &missingSteps):
		return utils.Fail(c, fiber.StatusBadRequest, missingSteps.Error(), fiber.Map{"missing_steps": missingSteps.StepNumbers})
	case errors.As(err, &validationErrors):
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(validationErrors))
	case errors.Is(err, service.ErrNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrForbidden):
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrBadRequest):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(logger, c).Error().Err(err).Str("path", c.Path()).Msg(event)
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}

// validationDetails keys failures by field name. Field names follow the json tags when the
// validator was built with NewValidator.
func validationDetails(errs validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(errs))
	for _, fieldErr := range errs {
		details[fieldErr.Field()] = fieldErr.Tag()
	}
	return details
}

// NewValidator reports field errors under their json names.
func NewValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	return validate
}
