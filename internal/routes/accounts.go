package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/securecipher/bankcore/internal/account"
)

// RegisterAccountRoutes wires account lifecycle endpoints.
func RegisterAccountRoutes(app *fiber.App, h *account.Handler) {
	grp := app.Group("/api/v1/accounts")
	grp.Post("/", h.Open)
	grp.Get("/types", h.Types)
	grp.Get("/:accountNumber/balance", h.Balance)
	grp.Delete("/:accountNumber", h.Close)
}
