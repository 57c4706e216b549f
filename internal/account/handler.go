package account

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/securecipher/bankcore/internal/ledger"
)

// Handler exposes account HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds an account HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type openRequest struct {
	OwnerID string `json:"owner_id"`
	Phone   string `json:"phone"`
	Type    string `json:"type"`
	Primary bool   `json:"primary"`
}

type accountResponse struct {
	ID             string `json:"id"`
	Number         string `json:"number"`
	OwnerID        string `json:"owner_id"`
	Type           string `json:"type"`
	Balance        string `json:"balance"`
	MinimumBalance string `json:"minimum_balance"`
	Status         string `json:"status"`
	Primary        bool   `json:"primary"`
	CreatedAt      string `json:"created_at"`
}

// Open provisions an account for the given owner.
func (h *Handler) Open(c *fiber.Ctx) error {
	var req openRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	acct, err := h.service.Open(c.UserContext(), OpenInput{
		OwnerID:  req.OwnerID,
		Phone:    req.Phone,
		TypeName: req.Type,
		Primary:  req.Primary,
	})
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(toAccountResponse(acct))
}

// Balance returns the account's current ledger balance.
func (h *Handler) Balance(c *fiber.Ctx) error {
	balance, err := h.service.Balance(c.UserContext(), c.Params("accountNumber"))
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return fiber.NewError(http.StatusNotFound, "account not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{
		"account_number": balance.AccountNumber,
		"balance":        balance.Amount.StringFixed(2),
		"timestamp":      balance.AsOf.Format(time.RFC3339),
	})
}

// Close runs the explicit closure workflow.
func (h *Handler) Close(c *fiber.Ctx) error {
	err := h.service.Close(c.UserContext(), c.Params("accountNumber"))
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return fiber.NewError(http.StatusNotFound, "account not found")
		}
		return fiber.NewError(http.StatusConflict, err.Error())
	}
	return c.JSON(fiber.Map{"status": string(ledger.StatusClosed)})
}

// Types lists the active account types.
func (h *Handler) Types(c *fiber.Ctx) error {
	types, err := h.service.Types(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	items := make([]fiber.Map, 0, len(types))
	for _, at := range types {
		items = append(items, fiber.Map{
			"name":            at.Name,
			"description":     at.Description,
			"minimum_balance": at.MinimumBalance.StringFixed(2),
			"daily_limit":     at.DailyLimit.StringFixed(2),
		})
	}
	return c.JSON(fiber.Map{"account_types": items})
}

func toAccountResponse(acct ledger.Account) accountResponse {
	return accountResponse{
		ID:             acct.ID,
		Number:         acct.Number,
		OwnerID:        acct.OwnerID,
		Type:           acct.TypeName,
		Balance:        acct.Balance.StringFixed(2),
		MinimumBalance: acct.MinimumBalance.StringFixed(2),
		Status:         string(acct.Status),
		Primary:        acct.Primary,
		CreatedAt:      acct.CreatedAt.UTC().Format(time.RFC3339),
	}
}
