package transfer

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/securecipher/bankcore/internal/identity"
	"github.com/securecipher/bankcore/internal/ledger"
	"github.com/securecipher/bankcore/internal/translog"
)

// callerHeader carries the authenticated caller resolved by the upstream
// identity layer. This core consumes it as a given.
const callerHeader = "X-User-ID"

// Handler exposes transfer and history endpoints.
type Handler struct {
	service *Service
	ids     *identity.Service
}

// NewHandler constructs a transfer handler.
func NewHandler(service *Service, ids *identity.Service) *Handler {
	return &Handler{service: service, ids: ids}
}

type transferRequest struct {
	SourceAccount  string `json:"source_account"`
	DestAccount    string `json:"dest_account"`
	Amount         string `json:"amount"`
	Description    string `json:"description"`
	IdempotencyKey string `json:"idempotency_key"`
	PIN            string `json:"pin"`
}

type cashRequest struct {
	Account        string `json:"account"`
	Amount         string `json:"amount"`
	Description    string `json:"description"`
	IdempotencyKey string `json:"idempotency_key"`
	PIN            string `json:"pin"`
}

type transactionResponse struct {
	Reference     string `json:"reference"`
	SourceAccount string `json:"source_account,omitempty"`
	DestAccount   string `json:"dest_account,omitempty"`
	Amount        string `json:"amount"`
	Category      string `json:"category"`
	Description   string `json:"description,omitempty"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at"`
}

// Create processes an account-to-account transfer.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return err
	}
	caller := c.Get(callerHeader)
	if err := h.checkPIN(c, caller, req.PIN); err != nil {
		return err
	}

	res, err := h.service.Execute(c.UserContext(), Input{
		SourceNumber:    req.SourceAccount,
		DestNumber:      req.DestAccount,
		Amount:          amount,
		Description:     req.Description,
		IdempotencyKey:  idemKey(c, req.IdempotencyKey),
		RequestorUserID: caller,
	})
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"transaction":    toResponse(res.Transaction),
		"source_balance": res.SourceBalance.StringFixed(2),
		"dest_balance":   res.DestBalance.StringFixed(2),
	})
}

// Deposit processes a cash deposit into an account.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	return h.cash(c, h.service.Deposit)
}

// Withdraw processes a cash withdrawal out of an account.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	return h.cash(c, h.service.Withdraw)
}

func (h *Handler) cash(c *fiber.Ctx, op func(ctx context.Context, input CashInput) (Result, error)) error {
	var req cashRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return err
	}
	caller := c.Get(callerHeader)
	if err := h.checkPIN(c, caller, req.PIN); err != nil {
		return err
	}

	res, err := op(c.UserContext(), CashInput{
		AccountNumber:   req.Account,
		Amount:          amount,
		Description:     req.Description,
		IdempotencyKey:  idemKey(c, req.IdempotencyKey),
		RequestorUserID: caller,
	})
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"transaction":    toResponse(res.Transaction),
		"source_balance": res.SourceBalance.StringFixed(2),
		"dest_balance":   res.DestBalance.StringFixed(2),
	})
}

// History lists an account's transactions most-recent-first.
func (h *Handler) History(c *fiber.Ctx) error {
	q := translog.Query{
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", 0),
		Category: c.Query("category"),
		Status:   translog.Status(c.Query("status")),
	}
	if v := c.Query("from"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid from timestamp")
		}
		q.From = ts
	}
	if v := c.Query("to"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid to timestamp")
		}
		q.To = ts
	}

	history, err := h.service.History(c.UserContext(), c.Params("accountNumber"), q)
	if err != nil {
		return mapError(err)
	}
	items := make([]transactionResponse, 0, len(history))
	for _, tx := range history {
		items = append(items, toResponse(tx))
	}
	return c.JSON(fiber.Map{"transactions": items, "page": q.Normalize().Page})
}

func (h *Handler) checkPIN(c *fiber.Ctx, caller, pin string) error {
	if pin == "" || h.ids == nil || caller == "" {
		return nil
	}
	if err := h.ids.VerifyPIN(c.UserContext(), caller, pin); err != nil {
		if errors.Is(err, identity.ErrInvalidPIN) {
			return fiber.NewError(http.StatusForbidden, "invalid transaction PIN")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return nil
}

func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fiber.NewError(http.StatusBadRequest, "invalid amount")
	}
	return amount, nil
}

func idemKey(c *fiber.Ctx, bodyKey string) string {
	if key := c.Get("Idempotency-Key"); key != "" {
		return key
	}
	return bodyKey
}

func toResponse(tx translog.Transaction) transactionResponse {
	return transactionResponse{
		Reference:     tx.Reference,
		SourceAccount: tx.SourceNumber,
		DestAccount:   tx.DestNumber,
		Amount:        tx.Amount.StringFixed(2),
		Category:      tx.Category,
		Description:   tx.Description,
		Status:        string(tx.Status),
		CreatedAt:     tx.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrSameAccountTransfer):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return fiber.NewError(http.StatusBadRequest, "insufficient funds")
	case errors.Is(err, ledger.ErrAccountNotFound):
		return fiber.NewError(http.StatusNotFound, "account not found")
	case errors.Is(err, ledger.ErrAccountInactive):
		return fiber.NewError(http.StatusConflict, "account is not active")
	case errors.Is(err, ledger.ErrDuplicateTransaction):
		return fiber.NewError(http.StatusConflict, "duplicate transaction")
	case errors.Is(err, ErrNotOwner):
		return fiber.NewError(http.StatusForbidden, "not owner of source account")
	case errors.Is(err, ledger.ErrTransferTimeout):
		return fiber.NewError(http.StatusServiceUnavailable, "transfer timed out, no changes applied")
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
