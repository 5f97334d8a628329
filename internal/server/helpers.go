package server

import (
	"socially/internal/models"
	"socially/internal/service"

	"github.com/gofiber/fiber/v2"
)

const defaultPageSize = service.DefaultPageSize

// parsePagination extracts limit and offset query parameters.
func parsePagination(c *fiber.Ctx) service.Page {
	return service.Page{
		Limit:  c.QueryInt("limit", defaultPageSize),
		Offset: c.QueryInt("offset", 0),
	}
}

// respond writes the success envelope {"success":true,"<key>":value} or the
// failure envelope for r.
func respond[T any](c *fiber.Ctx, status int, key string, r models.Result[T]) error {
	return r.Match(
		func(v T) error {
			return c.Status(status).JSON(fiber.Map{"success": true, key: v})
		},
		func(appErr *models.AppError) error {
			return models.RespondWithAppError(c, appErr)
		},
	)
}

// respondOK writes {"success":true} or the failure envelope.
func respondOK(c *fiber.Ctx, err error) error {
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return models.RespondWithAppError(c, models.NewValidationError(msg))
}
