package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"blogapi/internal/apperr"
	"blogapi/internal/logger"
)

// errorPayload is the body of every failed response.
type errorPayload struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

var kindStatus = map[error]int{
	apperr.ErrNotFound:            fiber.StatusNotFound,
	apperr.ErrConstraintViolation: fiber.StatusBadRequest,
	apperr.ErrUnauthorized:        fiber.StatusUnauthorized,
	apperr.ErrSessionExpired:      fiber.StatusBadRequest,
	apperr.ErrQueryExecution:      fiber.StatusInternalServerError,
	apperr.ErrInvalidInput:        fiber.StatusBadRequest,
}

// writeError writes a failed response. message must be safe to show.
func writeError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(errorPayload{StatusCode: status, Message: message})
}

// statusFor returns the HTTP status and client message for err.
func statusFor(err error) (int, string) {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, fe.Message
	}
	if kind := apperr.Kind(err); kind != nil {
		return kindStatus[kind], apperr.Message(err)
	}
	return fiber.StatusInternalServerError, apperr.Message(err)
}

// ErrorHandler returns the Fiber error handler. Classified errors keep
// their client message; anything else becomes a bare 500.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status, message := statusFor(err)
		if status >= fiber.StatusInternalServerError {
			logger.From(c.UserContext()).Error("request failed",
				logger.Path(c.Path()),
				logger.Status(status),
				logger.Err(err),
			)
		}
		return writeError(c, status, message)
	}
}
