package server

import (
	"errors"
	"log/slog"

	"bulletin/internal/models"
	"bulletin/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler renders every error returned by a handler as a
// models.ErrorResponse. Server errors are logged, and their message is
// hidden unless development is true.
func ErrorHandler(development bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError

		var appErr *models.AppError
		var fiberErr *fiber.Error
		switch {
		case errors.As(err, &appErr):
			status = appErr.Status
		case errors.As(err, &fiberErr):
			status = fiberErr.Code
		}

		if status >= fiber.StatusInternalServerError {
			observability.GlobalLogger.ErrorContext(c.UserContext(), "unhandled request error",
				slog.String("method", c.Method()),
				slog.String("path", c.Path()),
				slog.Int("status", status),
				slog.String("error", err.Error()),
			)
			internal := models.NewInternalError(status, err)
			if development {
				internal.Message = err.Error()
			}
			return models.RespondWithError(c, status, internal)
		}

		if appErr != nil {
			return models.RespondWithError(c, status, appErr)
		}
		return models.RespondWithError(c, status, err)
	}
}

// NotFound answers requests that matched no route.
func NotFound(c *fiber.Ctx) error {
	return models.NewRouteNotFoundError(c.Method(), c.OriginalURL())
}
