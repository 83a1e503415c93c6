package handler

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"blogapi/internal/apperr"
)

const defaultMessage = "Request successful"

// successPayload is the body of every successful response.
type successPayload struct {
	Data    any    `json:"data"`
	Message string `json:"message"`
}

func respond(c *fiber.Ctx, status int, message string, data any) error {
	if message == "" {
		message = defaultMessage
	}
	return c.Status(status).JSON(successPayload{Data: data, Message: message})
}

// queryInt reads an optional numeric query parameter. Absent means 0.
func queryInt(c *fiber.Ctx, key string) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.New(apperr.ErrInvalidInput, key+" must be a number string")
	}
	return n, nil
}

// parseBody decodes the request body into out.
func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperr.New(apperr.ErrInvalidInput, "invalid data provided")
	}
	return nil
}
