package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/stripe/stripe-go/v74/webhook"
	"go.uber.org/zap"

	"github.com/adgenix/adgenix-backend/internal/config"
	"github.com/adgenix/adgenix-backend/internal/models"
	"github.com/adgenix/adgenix-backend/internal/service"
)

type WebhookHandler struct {
	webhookService *service.WebhookService
	stripeCfg      config.StripeConfig
	log            *zap.Logger
}

func NewWebhookHandler(webhookService *service.WebhookService, stripeCfg config.StripeConfig, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		webhookService: webhookService,
		stripeCfg:      stripeCfg,
		log:            log,
	}
}

// HandleDanaWebhook accepts the gateway's payment-status callback. It always
// answers 200 with the gateway's expected body: the gateway treats anything
// else as undelivered and retries forever.
func (h *WebhookHandler) HandleDanaWebhook(c *fiber.Ctx) error {
	ack := h.webhookService.ProcessDanaNotification(c.Body(), c.Get("X-SIGNATURE"))
	return c.JSON(ack)
}

// HandleDanaRefundWebhook accepts the refund callback. The raw body and the
// gateway signature go to the service together so the payload is verified
// before any of it is parsed.
func (h *WebhookHandler) HandleDanaRefundWebhook(c *fiber.Ctx) error {
	return c.JSON(h.webhookService.ProcessRefund(c.Body(), c.Get("X-SIGNATURE")))
}

// HandleStripeWebhook verifies the event signature with the Stripe SDK and
// hands it to the reconciler. Signature failures get a 400; Stripe signs
// retries identically, so this cannot retry-storm.
func (h *WebhookHandler) HandleStripeWebhook(c *fiber.Ctx) error {
	event, err := webhook.ConstructEventWithOptions(
		c.Body(),
		c.Get("Stripe-Signature"),
		h.stripeCfg.WebhookSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		})
	if err != nil {
		h.log.Warn("stripe webhook signature verification failed", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse("Invalid signature"))
	}

	if err := h.webhookService.ProcessStripeEvent(&event); err != nil {
		// absorbed: Stripe retries on non-2xx, and retries cannot succeed
		// where this delivery failed. Logged for manual reconciliation.
		h.log.Error("stripe event processing failed",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err),
		)
	}

	return c.SendStatus(fiber.StatusOK)
}
