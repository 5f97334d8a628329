package server

import (
	"socially/internal/middleware"
	"socially/internal/models"

	"github.com/gofiber/fiber/v2"
)

const userIDLocalsKey = "userID"

// Authenticated rejects requests without a valid identity token, then
// resolves the identity to an internal user (creating one on first sight)
// and stores the user id in Locals("userID").
func (s *Server) Authenticated() []fiber.Handler {
	return []fiber.Handler{
		middleware.RequireIdentity(s.verifier),
		func(c *fiber.Ctx) error {
			identity := middleware.IdentityFromContext(c)
			if identity == nil {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthenticatedError("Authentication required"))
			}
			if err := s.attachUser(c, identity); err != nil {
				return models.RespondWithAppError(c, err)
			}
			return c.Next()
		},
	}
}

// OptionalUser resolves the internal user when a valid token is present and
// lets anonymous requests through.
func (s *Server) OptionalUser() []fiber.Handler {
	return []fiber.Handler{
		middleware.OptionalIdentity(s.verifier),
		func(c *fiber.Ctx) error {
			identity := middleware.IdentityFromContext(c)
			if identity == nil {
				return c.Next()
			}
			if err := s.attachUser(c, identity); err != nil {
				return models.RespondWithAppError(c, err)
			}
			return c.Next()
		},
	}
}

func (s *Server) attachUser(c *fiber.Ctx, identity *models.ExternalIdentity) error {
	user, err := s.userService.SyncUser(c.UserContext(), *identity)
	if err != nil {
		return err
	}
	c.Locals(userIDLocalsKey, user.ID)
	c.SetUserContext(middleware.WithUserID(c.UserContext(), user.ID))
	return nil
}

// with returns the handlers in front followed by h.
func with(front []fiber.Handler, h ...fiber.Handler) []fiber.Handler {
	out := make([]fiber.Handler, 0, len(front)+len(h))
	out = append(out, front...)
	return append(out, h...)
}

// currentUserID returns the authenticated user's id, or "" for anonymous requests.
func currentUserID(c *fiber.Ctx) string {
	id, _ := c.Locals(userIDLocalsKey).(string)
	return id
}
