package service

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v74"
	"go.uber.org/zap"

	"github.com/adgenix/adgenix-backend/internal/models"
	"github.com/adgenix/adgenix-backend/internal/repository"
	"github.com/adgenix/adgenix-backend/pkg/signature"
)

// Purchased tokens are valid for 28 days. Every completed purchase restarts
// the clock; stacking purchases does not extend from the old expiry.
const TokenValidity = 28 * 24 * time.Hour

// danaStatusSuccess is the gateway's latestTransactionStatus for a paid
// transaction. Everything else is acknowledged and ignored.
const danaStatusSuccess = "00"

// WebhookService reconciles asynchronous payment callbacks against the
// transaction store and the token ledger. Processing failures are absorbed:
// the gateway always receives its expected acknowledgement and failures are
// logged for manual follow-up, because the gateway has no user-facing
// recovery path and treats non-200 answers as "retry forever".
type WebhookService struct {
	webhookSecret   string
	packageRepo     PackageStore
	transactionRepo TransactionStore
	email           ReceiptSender
	log             *zap.Logger

	now func() time.Time
}

func NewWebhookService(
	webhookSecret string,
	packageRepo PackageStore,
	transactionRepo TransactionStore,
	email ReceiptSender,
	log *zap.Logger,
) *WebhookService {
	return &WebhookService{
		webhookSecret:   webhookSecret,
		packageRepo:     packageRepo,
		transactionRepo: transactionRepo,
		email:           email,
		log:             log,
		now:             time.Now,
	}
}

// ProcessDanaNotification handles a payment-status callback. It never fails
// outward: every path returns the gateway's acknowledgement body.
func (s *WebhookService) ProcessDanaNotification(raw []byte, sig string) models.DanaAck {
	ack := models.NewDanaAck()

	// authenticity first: an unverifiable payload is rejected (not
	// reconciled), but still acknowledged so the gateway stops retrying
	if s.webhookSecret == "" {
		s.log.Error("dana webhook secret not configured, notification rejected")
		return ack
	}
	if !signature.VerifyHMAC(string(raw), s.webhookSecret, sig) {
		s.log.Error("dana webhook signature verification failed",
			zap.Int("payload_len", len(raw)))
		return ack
	}

	var n models.DanaNotification
	if err := json.Unmarshal(raw, &n); err != nil {
		s.log.Error("dana webhook payload unparseable", zap.Error(err))
		return ack
	}

	if n.LatestTransactionStatus != danaStatusSuccess {
		s.log.Info("dana webhook for unsuccessful transaction, ignoring",
			zap.String("partner_reference_no", n.OriginalPartnerReferenceNo),
			zap.String("status", n.LatestTransactionStatus),
			zap.String("status_desc", n.TransactionStatusDesc),
		)
		return ack
	}

	extra := models.Metadata{
		"gatewayReferenceNo": n.OriginalReferenceNo,
		"finishedTime":       n.FinishedTime,
	}
	if method, ok := n.AdditionalInfo["paymentMethod"]; ok {
		extra["paymentMethod"] = method
	}

	if err := s.completePurchase(n.OriginalPartnerReferenceNo, extra); err != nil {
		// logged for manual reconciliation, never surfaced to the gateway
		s.log.Error("dana webhook reconciliation failed",
			zap.String("partner_reference_no", n.OriginalPartnerReferenceNo),
			zap.Error(err),
		)
	}
	return ack
}

// completePurchase is the shared crediting path for both providers: resolve
// the transaction and its package, then apply status flip + ledger credit as
// one idempotent unit.
func (s *WebhookService) completePurchase(partnerRef string, extra models.Metadata) error {
	txn, err := s.transactionRepo.GetByPartnerReference(partnerRef)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			// nothing to reconcile; never fabricate a transaction from
			// webhook data alone
			s.log.Warn("webhook references unknown transaction",
				zap.String("partner_reference_no", partnerRef))
			return nil
		}
		return err
	}

	pkg, err := s.packageRepo.GetByID(txn.PackageID)
	if err != nil {
		return err
	}

	expiry := s.now().Add(TokenValidity)
	applied, err := s.transactionRepo.ApplyPurchase(partnerRef, extra, pkg, expiry)
	if err != nil {
		return err
	}
	if applied == nil {
		s.log.Info("duplicate webhook delivery, already completed",
			zap.String("partner_reference_no", partnerRef))
		return nil
	}

	s.log.Info("purchase completed",
		zap.String("partner_reference_no", partnerRef),
		zap.Uint("user_id", applied.UserID),
		zap.Int("tokens", pkg.Tokens),
		zap.Time("tokens_expiry", expiry),
	)

	if email := applied.Metadata["email"]; email != "" {
		if err := s.email.SendPurchaseReceipt(email, pkg.Name, pkg.Tokens, partnerRef); err != nil {
			s.log.Warn("receipt email failed", zap.Error(err))
		}
	}
	return nil
}

// ProcessStripeEvent handles a signature-verified Stripe event. The SDK has
// already authenticated the payload by the time it gets here.
func (s *WebhookService) ProcessStripeEvent(event *stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return err
		}
		if _, err := s.transactionRepo.GetByPartnerReference(session.ID); errors.Is(err, repository.ErrTransactionNotFound) {
			// checkout created outside this service: rebuild the attempt
			// from the session's correlation fields before reconciling
			if err := s.recordStripeSession(&session); err != nil {
				s.log.Warn("stripe session not recordable",
					zap.String("session_id", session.ID), zap.Error(err))
				return nil
			}
		}
		extra := models.Metadata{
			"stripeEventId": event.ID,
		}
		// the event carries the payment intent as a bare id; store it so a
		// later charge.refunded can find this transaction
		if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
			extra["stripePaymentIntent"] = session.PaymentIntent.ID
		}
		return s.completePurchase(session.ID, extra)

	case "checkout.session.expired", "checkout.session.async_payment_failed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return err
		}
		flipped, err := s.transactionRepo.MarkFailed(session.ID, models.Metadata{
			"stripeEventId": event.ID,
		})
		if err != nil {
			return err
		}
		if !flipped {
			s.log.Info("stripe failure event for non-pending transaction, ignoring",
				zap.String("session_id", session.ID))
		}
		return nil

	case "charge.refunded":
		var charge stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			return err
		}
		if charge.PaymentIntent == nil || charge.PaymentIntent.ID == "" {
			return nil
		}

		txn, err := s.transactionRepo.GetByPaymentIntent(charge.PaymentIntent.ID)
		if err != nil {
			if errors.Is(err, repository.ErrTransactionNotFound) {
				s.log.Warn("stripe refund for unknown payment intent",
					zap.String("payment_intent", charge.PaymentIntent.ID),
					zap.String("charge_id", charge.ID))
				return nil
			}
			return err
		}
		pkg, err := s.packageRepo.GetByID(txn.PackageID)
		if err != nil {
			return err
		}
		applied, err := s.transactionRepo.ApplyRefund(charge.ID, txn.UserID, pkg)
		if err != nil {
			return err
		}
		if applied {
			s.log.Info("stripe refund debited",
				zap.String("charge_id", charge.ID),
				zap.Uint("user_id", txn.UserID),
				zap.Int("tokens", pkg.Tokens),
			)
		}
		return nil
	}

	return nil
}

// recordStripeSession creates the pending transaction for a checkout session
// this process never saw, using client_reference_id as the user id and
// metadata.packageId as the package. The unique partner reference makes a
// racing duplicate insert harmless.
func (s *WebhookService) recordStripeSession(session *stripe.CheckoutSession) error {
	userID, err := ParseUserID(session.ClientReferenceID)
	if err != nil {
		return err
	}
	pkgID, err := strconv.ParseUint(session.Metadata["packageId"], 10, 32)
	if err != nil {
		return err
	}
	pkg, err := s.packageRepo.GetByID(uint(pkgID))
	if err != nil {
		return err
	}

	txn := &models.Transaction{
		UserID:             userID,
		PackageID:          pkg.ID,
		AmountIDR:          pkg.FinalPriceIDR(),
		Status:             models.TransactionStatusPending,
		Provider:           models.ProviderStripe,
		PartnerReferenceNo: session.ID,
		Metadata: models.Metadata{
			"email": session.CustomerEmail,
		},
	}
	if err := s.transactionRepo.Create(txn); err != nil {
		// a concurrent delivery may have inserted it already
		if _, lookupErr := s.transactionRepo.GetByPartnerReference(session.ID); lookupErr == nil {
			return nil
		}
		return err
	}
	return nil
}

// ProcessRefund handles the gateway refund callback. Authenticity is checked
// the same way as the payment notification: HMAC over the raw body, and an
// unverifiable payload is rejected before any field is trusted. Duplicate
// deliveries of the same refund_id are no-ops; the debit clamps at zero.
func (s *WebhookService) ProcessRefund(raw []byte, sig string) models.RefundAck {
	if s.webhookSecret == "" {
		s.log.Error("dana webhook secret not configured, refund rejected")
		return models.RefundAck{Success: false, Message: "refund not verifiable"}
	}
	if !signature.VerifyHMAC(string(raw), s.webhookSecret, sig) {
		s.log.Error("dana refund signature verification failed",
			zap.Int("payload_len", len(raw)))
		return models.RefundAck{Success: false, Message: "invalid signature"}
	}

	var req models.RefundNotification
	if err := json.Unmarshal(raw, &req); err != nil {
		s.log.Error("refund webhook payload unparseable", zap.Error(err))
		return models.RefundAck{Success: false, Message: "unparseable payload"}
	}

	if !strings.EqualFold(req.Status, "SUCCESS") {
		return models.RefundAck{Success: true, Message: "refund not successful, ignored"}
	}
	if req.RefundID == "" || req.Metadata.UserID == 0 || req.Metadata.PackageID == 0 {
		s.log.Error("refund webhook missing correlation metadata",
			zap.String("refund_id", req.RefundID),
			zap.String("transaction_id", req.TransactionID),
		)
		return models.RefundAck{Success: false, Message: "missing refund metadata"}
	}

	pkg, err := s.packageRepo.GetByID(req.Metadata.PackageID)
	if err != nil {
		s.log.Error("refund webhook references unknown package",
			zap.String("refund_id", req.RefundID),
			zap.Uint("package_id", req.Metadata.PackageID),
			zap.Error(err),
		)
		return models.RefundAck{Success: false, Message: "unknown package"}
	}

	applied, err := s.transactionRepo.ApplyRefund(req.RefundID, req.Metadata.UserID, pkg)
	if err != nil {
		s.log.Error("refund reconciliation failed",
			zap.String("refund_id", req.RefundID),
			zap.Error(err),
		)
		return models.RefundAck{Success: false, Message: "refund processing failed"}
	}
	if !applied {
		return models.RefundAck{Success: true, Message: "refund already processed"}
	}

	s.log.Info("refund debited",
		zap.String("refund_id", req.RefundID),
		zap.Uint("user_id", req.Metadata.UserID),
		zap.Int("tokens", pkg.Tokens),
	)
	return models.RefundAck{Success: true, Message: "refund processed"}
}

// ParseUserID reads a Stripe client_reference_id back into a user id.
func ParseUserID(ref string) (uint, error) {
	id, err := strconv.ParseUint(ref, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
