package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/securecipher/bankcore/internal/transfer"
)

// RegisterTransferRoutes wires money movement and history endpoints.
func RegisterTransferRoutes(app *fiber.App, h *transfer.Handler) {
	grp := app.Group("/api/v1")
	grp.Post("/transfers", h.Create)
	grp.Post("/deposits", h.Deposit)
	grp.Post("/withdrawals", h.Withdraw)
	grp.Get("/accounts/:accountNumber/transactions", h.History)
}
