package server

import (
	"socially/internal/models"
	"socially/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMe handles GET /api/users/me
func (s *Server) GetMe(c *fiber.Ctx) error {
	user, err := s.userService.GetByID(c.UserContext(), currentUserID(c))
	return respond(c, fiber.StatusOK, "user", models.From(user, err))
}

// UpdateMe handles PUT /api/users/me
func (s *Server) UpdateMe(c *fiber.Ctx) error {
	var req service.UpdateProfileInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	user, err := s.userService.UpdateProfile(c.UserContext(), currentUserID(c), req)
	return respond(c, fiber.StatusOK, "user", models.From(user, err))
}

// GetSuggestions handles GET /api/users/suggestions
func (s *Server) GetSuggestions(c *fiber.Ctx) error {
	users, err := s.followService.Suggestions(c.UserContext(), currentUserID(c))
	return respond(c, fiber.StatusOK, "users", models.From(users, err))
}

// ToggleFollow handles POST /api/users/:id/follow
func (s *Server) ToggleFollow(c *fiber.Ctx) error {
	following, err := s.followService.ToggleFollow(c.UserContext(), currentUserID(c), c.Params("id"))
	return respond(c, fiber.StatusOK, "following", models.From(following, err))
}

// GetProfile handles GET /api/profiles/:username
func (s *Server) GetProfile(c *fiber.Ctx) error {
	page, err := s.profileService.GetProfilePage(c.UserContext(), c.Params("username"), currentUserID(c))
	return respond(c, fiber.StatusOK, "profile", models.From(page, err))
}

// GetFeatures handles GET /api/users/me/features
func (s *Server) GetFeatures(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"success": true, "features": s.flags.Snapshot(currentUserID(c))})
}
