package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/adgenix/adgenix-backend/internal/models"
	"github.com/adgenix/adgenix-backend/internal/repository"
	"github.com/adgenix/adgenix-backend/internal/service"
	"github.com/adgenix/adgenix-backend/pkg/utils"
)

type TokenHandler struct {
	ledgerService *service.LedgerService
	validator     *utils.Validator
}

func NewTokenHandler(ledgerService *service.LedgerService, validator *utils.Validator) *TokenHandler {
	return &TokenHandler{
		ledgerService: ledgerService,
		validator:     validator,
	}
}

// GetBalance is polled by the UI after payment to pick up credited tokens.
func (h *TokenHandler) GetBalance(c *fiber.Ctx) error {
	userID, email, err := currentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse("User not authenticated"))
	}

	balance, err := h.ledgerService.GetBalance(userID, email)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse(err.Error()))
	}
	return c.JSON(models.SuccessResponse(balance, ""))
}

// SpendTokens debits the ledger for one generation call.
func (h *TokenHandler) SpendTokens(c *fiber.Ctx) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse("User not authenticated"))
	}

	var req models.SpendTokensRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse("Invalid request body"))
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse("amount must be a positive integer"))
	}

	if err := h.ledgerService.Spend(userID, req.Amount, req.Reason); err != nil {
		if errors.Is(err, repository.ErrInsufficientTokens) {
			return c.Status(fiber.StatusPaymentRequired).JSON(models.ErrorResponse("Insufficient token balance"))
		}
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse(err.Error()))
	}

	return c.JSON(models.SuccessResponse(nil, "Tokens debited"))
}
