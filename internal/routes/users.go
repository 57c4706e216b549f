package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/securecipher/bankcore/internal/identity"
)

// RegisterUserRoutes wires user registration.
func RegisterUserRoutes(app *fiber.App, h *identity.Handler) {
	grp := app.Group("/api/v1/users")
	grp.Post("/", h.Register)
}
