package handler

import (
	"github.com/gofiber/fiber/v2"

	"blogapi/internal/service"
)

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Register creates an account.
//
// @Summary Register
// @Tags v1/auth
// @Accept json
// @Produce json
// @Param body body service.RegisterInput true "account"
// @Success 201 {object} successPayload{data=service.AccessToken}
// @Failure 400 {object} errorPayload
// @Router /v1/auth/register [post]
func Register(svc service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in service.RegisterInput
		if err := parseBody(c, &in); err != nil {
			return err
		}
		res, err := svc.Register(c.UserContext(), in)
		if err != nil {
			return err
		}
		return respond(c, fiber.StatusCreated, "User registered successfully", res)
	}
}

// Login exchanges credentials for a token pair.
//
// @Summary Login
// @Tags v1/auth
// @Accept json
// @Produce json
// @Param body body service.LoginInput true "credentials"
// @Success 200 {object} successPayload{data=service.LoginResult}
// @Failure 400 {object} errorPayload
// @Router /v1/auth/login [post]
func Login(svc service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in service.LoginInput
		if err := parseBody(c, &in); err != nil {
			return err
		}
		res, err := svc.Login(c.UserContext(), in)
		if err != nil {
			return err
		}
		return respond(c, fiber.StatusOK, "User logged in successfully", res)
	}
}

// Refresh issues a new access token.
//
// @Summary Refresh access token
// @Tags v1/auth
// @Accept json
// @Produce json
// @Param body body refreshRequest true "refresh token"
// @Success 200 {object} successPayload{data=service.AccessToken}
// @Failure 400 {object} errorPayload
// @Failure 401 {object} errorPayload
// @Router /v1/auth/refresh [post]
func Refresh(svc service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in refreshRequest
		if err := parseBody(c, &in); err != nil {
			return err
		}
		res, err := svc.Refresh(c.UserContext(), in.RefreshToken)
		if err != nil {
			return err
		}
		return respond(c, fiber.StatusOK, "Token refreshed successfully", res)
	}
}
