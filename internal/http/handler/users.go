package handler

import (
	"github.com/gofiber/fiber/v2"

	"blogapi/internal/apperr"
	"blogapi/internal/http/middleware"
	"blogapi/internal/service"
)

// Profile returns the signed-in user.
//
// @Summary View user profile
// @Tags v1/users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} successPayload{data=model.User}
// @Failure 401 {object} errorPayload
// @Router /v1/users/profile [get]
func Profile(svc service.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			return apperr.ErrUnauthorized
		}
		res, err := svc.Profile(c.UserContext(), user.ID)
		if err != nil {
			return err
		}
		return respond(c, fiber.StatusOK, "User profile fetched successfully", res)
	}
}
