package server

import (
	"socially/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetNotifications handles GET /api/notifications
func (s *Server) GetNotifications(c *fiber.Ctx) error {
	list, err := s.notificationService.List(c.UserContext(), currentUserID(c), parsePagination(c))
	return respond(c, fiber.StatusOK, "notifications", models.From(list, err))
}

// GetUnreadCount handles GET /api/notifications/unread-count
func (s *Server) GetUnreadCount(c *fiber.Ctx) error {
	count, err := s.notificationService.UnreadCount(c.UserContext(), currentUserID(c))
	return respond(c, fiber.StatusOK, "count", models.From(count, err))
}

// MarkNotificationsRead handles POST /api/notifications/read. An empty or
// missing ids list marks everything read.
func (s *Server) MarkNotificationsRead(c *fiber.Ctx) error {
	var req struct {
		IDs []string `json:"ids"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}
	updated, err := s.notificationService.MarkRead(c.UserContext(), currentUserID(c), req.IDs)
	return respond(c, fiber.StatusOK, "updated", models.From(updated, err))
}
