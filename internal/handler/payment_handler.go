package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/adgenix/adgenix-backend/internal/models"
	"github.com/adgenix/adgenix-backend/internal/repository"
	"github.com/adgenix/adgenix-backend/internal/service"
	"github.com/adgenix/adgenix-backend/pkg/dana"
	"github.com/adgenix/adgenix-backend/pkg/qrcode"
	"github.com/adgenix/adgenix-backend/pkg/utils"
)

type PaymentHandler struct {
	paymentService *service.PaymentService
	validator      *utils.Validator
	log            *zap.Logger
}

func NewPaymentHandler(paymentService *service.PaymentService, validator *utils.Validator, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		validator:      validator,
		log:            log,
	}
}

// CreatePayment starts a Dana QRIS payment.
func (h *PaymentHandler) CreatePayment(c *fiber.Ctx) error {
	var req models.CreatePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse("Invalid request body"))
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse("email, userId and packageId are required"))
	}

	result, err := h.paymentService.CreateDanaPayment(c.Context(), req)
	if err != nil {
		return h.paymentError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"orderId":    result.OrderID,
		"qrCode":     result.QRCode,
		"expireTime": result.ExpireTime,
	})
}

// GetPaymentQR renders the stored QR payload of a pending payment as PNG.
func (h *PaymentHandler) GetPaymentQR(c *fiber.Ctx) error {
	orderID := c.Params("orderId")

	payload, err := h.paymentService.GetQRPayload(orderID)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse("Unknown order"))
		}
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse("Failed to load order"))
	}

	png, err := qrcode.Render(payload, c.QueryInt("size", 256))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse("Failed to render QR code"))
	}

	c.Set("Content-Type", "image/png")
	return c.Send(png)
}

// CreateCheckoutSession starts a Stripe hosted checkout.
func (h *PaymentHandler) CreateCheckoutSession(c *fiber.Ctx) error {
	packageID, err := c.ParamsInt("packageId")
	if err != nil || packageID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse("Invalid package ID"))
	}

	userID, userEmail, err := currentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse("User not authenticated"))
	}

	session, err := h.paymentService.CreateStripeCheckout(userID, userEmail, uint(packageID))
	if err != nil {
		return h.paymentError(c, err)
	}

	return c.JSON(models.SuccessResponse(session, ""))
}

func (h *PaymentHandler) GetTokenPackages(c *fiber.Ctx) error {
	packages, err := h.paymentService.GetTokenPackages()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse(err.Error()))
	}
	return c.JSON(models.SuccessResponse(packages, ""))
}

func (h *PaymentHandler) GetPurchaseHistory(c *fiber.Ctx) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse("User not authenticated"))
	}

	history, err := h.paymentService.GetUserHistory(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse(err.Error()))
	}
	return c.JSON(models.SuccessResponse(history, ""))
}

// paymentError maps service errors onto the client-facing taxonomy:
// configuration → 503, unknown package → 400, retryable gateway trouble →
// 502 with a backoff hint, anything else → 500.
func (h *PaymentHandler) paymentError(c *fiber.Ctx, err error) error {
	if errors.Is(err, service.ErrPaymentNotConfigured) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse("Payment system not configured"))
	}
	if errors.Is(err, service.ErrUnknownPackage) {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse("Unknown token package"))
	}

	var gwErr *dana.GatewayError
	if errors.As(err, &gwErr) {
		if gwErr.Retryable {
			c.Set("Retry-After", "5")
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"success":   false,
				"error":     "Payment gateway is temporarily unavailable, please retry",
				"retryable": true,
			})
		}
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"success":   false,
			"error":     "Payment was rejected by the gateway",
			"retryable": false,
		})
	}

	h.log.Error("payment creation failed", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse("Internal error"))
}

func currentUser(c *fiber.Ctx) (uint, string, error) {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return 0, "", errors.New("not authenticated")
	}
	email, _ := c.Locals("userEmail").(string)
	return userID, email, nil
}
