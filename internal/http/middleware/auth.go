package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"blogapi/internal/apperr"
	"blogapi/internal/auth"
	"blogapi/internal/logger"
	"blogapi/internal/model"
	"blogapi/internal/repository"
)

// CurrentUserLocalKey stores the authenticated user in Fiber's context locals.
const CurrentUserLocalKey = "current_user"

// TokenVerifier checks a bearer token.
type TokenVerifier interface {
	Verify(token string, kind auth.TokenKind) (*auth.Claims, error)
}

// Authenticate admits requests carrying a valid access token for an
// existing user and stores that user for CurrentUser.
//
// Expired tokens fail with ErrSessionExpired. Every other token problem
// fails with ErrUnauthorized.
func Authenticate(tokens TokenVerifier, users repository.UserRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		log := logger.From(ctx)

		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return apperr.ErrUnauthorized
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			return apperr.ErrUnauthorized
		}

		claims, err := tokens.Verify(token, auth.AccessToken)
		if err != nil {
			log.Debug("token rejected", logger.Err(err))
			if errors.Is(err, auth.ErrTokenExpired) {
				return apperr.ErrSessionExpired
			}
			return apperr.ErrUnauthorized
		}

		user, err := users.FindByID(ctx, claims.UserID, repository.FindOptions{})
		if err != nil {
			return err
		}
		if user == nil {
			log.Debug("token for unknown user", zap.String("user_id", claims.UserID))
			return apperr.ErrUnauthorized
		}

		c.Locals(CurrentUserLocalKey, user)
		c.SetUserContext(logger.ToContext(ctx, log.With(logger.UserID(user.ID.Hex()))))
		return c.Next()
	}
}

// CurrentUser returns the user stored by Authenticate.
func CurrentUser(c *fiber.Ctx) (*model.User, bool) {
	u, ok := c.Locals(CurrentUserLocalKey).(*model.User)
	return u, ok && u != nil
}
