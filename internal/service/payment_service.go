package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/adgenix/adgenix-backend/internal/models"
	"github.com/adgenix/adgenix-backend/pkg/dana"
)

var (
	// ErrPaymentNotConfigured means the provider credentials are absent;
	// handlers answer 503 so the client knows it is not their fault.
	ErrPaymentNotConfigured = errors.New("payment system not configured")

	// ErrUnknownPackage is a client error: the requested package is not in
	// the catalog. Nothing is persisted.
	ErrUnknownPackage = errors.New("unknown token package")
)

type PaymentService struct {
	danaGateway     QRGateway
	stripeService   CheckoutProvider
	packageRepo     PackageStore
	transactionRepo TransactionStore
	ledgerRepo      LedgerStore
	log             *zap.Logger

	now func() time.Time
}

func NewPaymentService(
	danaGateway QRGateway,
	stripeService CheckoutProvider,
	packageRepo PackageStore,
	transactionRepo TransactionStore,
	ledgerRepo LedgerStore,
	log *zap.Logger,
) *PaymentService {
	return &PaymentService{
		danaGateway:     danaGateway,
		stripeService:   stripeService,
		packageRepo:     packageRepo,
		transactionRepo: transactionRepo,
		ledgerRepo:      ledgerRepo,
		log:             log,
		now:             time.Now,
	}
}

// newPartnerReference builds a merchant order reference unique across
// concurrent requests from the same user: user id + millisecond timestamp +
// random uuid fragment.
func (s *PaymentService) newPartnerReference(userID uint) string {
	return fmt.Sprintf("ADG-%d-%d-%s", userID, s.now().UnixMilli(), uuid.NewString()[:8])
}

// CreateDanaPayment builds and submits a QRIS payment request and records the
// pending transaction. No transaction row is created for rejected attempts.
func (s *PaymentService) CreateDanaPayment(ctx context.Context, req models.CreatePaymentRequest) (*models.PaymentResult, error) {
	if !s.danaGateway.Configured() {
		return nil, ErrPaymentNotConfigured
	}

	pkg, err := s.packageRepo.GetByID(req.PackageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownPackage
		}
		return nil, err
	}
	if !pkg.IsActive {
		return nil, ErrUnknownPackage
	}

	// make sure the ledger row exists before money moves
	if _, err := s.ledgerRepo.GetOrCreate(req.UserID, req.Email); err != nil {
		return nil, err
	}

	partnerRef := s.newPartnerReference(req.UserID)
	amount := pkg.FinalPriceIDR()

	resp, err := s.danaGateway.CreateQRPayment(ctx, dana.QRPaymentRequest{
		PartnerReferenceNo: partnerRef,
		AmountIDR:          amount,
	})
	if err != nil {
		return nil, err
	}

	txn := &models.Transaction{
		UserID:             req.UserID,
		PackageID:          pkg.ID,
		AmountIDR:          amount,
		Status:             models.TransactionStatusPending,
		Provider:           models.ProviderDana,
		PartnerReferenceNo: partnerRef,
		Metadata: models.Metadata{
			"referenceId": resp.ReferenceID,
			"orderId":     resp.OrderID,
			"qrCode":      resp.QRCode,
			"expireTime":  resp.ExpireTime,
			"email":       req.Email,
		},
	}
	if err := s.transactionRepo.Create(txn); err != nil {
		return nil, err
	}

	s.log.Info("dana payment created",
		zap.Uint("user_id", req.UserID),
		zap.Uint("package_id", pkg.ID),
		zap.String("partner_reference_no", partnerRef),
		zap.Int64("amount_idr", amount),
	)

	return &models.PaymentResult{
		OrderID:     partnerRef,
		QRCode:      resp.QRCode,
		ExpireTime:  resp.ExpireTime,
		ReferenceID: resp.ReferenceID,
	}, nil
}

// CreateStripeCheckout delegates to Stripe's hosted checkout and records the
// pending transaction keyed by the checkout session id.
func (s *PaymentService) CreateStripeCheckout(userID uint, email string, packageID uint) (*models.CheckoutSession, error) {
	if !s.stripeService.Configured() {
		return nil, ErrPaymentNotConfigured
	}

	pkg, err := s.packageRepo.GetByID(packageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownPackage
		}
		return nil, err
	}
	if !pkg.IsActive {
		return nil, ErrUnknownPackage
	}

	if _, err := s.ledgerRepo.GetOrCreate(userID, email); err != nil {
		return nil, err
	}

	session, err := s.stripeService.CreateCheckoutSession(email, userID, pkg.ID, pkg.Name, pkg.FinalPriceIDR())
	if err != nil {
		return nil, err
	}

	txn := &models.Transaction{
		UserID:             userID,
		PackageID:          pkg.ID,
		AmountIDR:          pkg.FinalPriceIDR(),
		Status:             models.TransactionStatusPending,
		Provider:           models.ProviderStripe,
		PartnerReferenceNo: session.ID,
		Metadata: models.Metadata{
			"email": email,
		},
	}
	if err := s.transactionRepo.Create(txn); err != nil {
		return nil, err
	}

	return &models.CheckoutSession{
		ID:  session.ID,
		URL: session.URL,
	}, nil
}

func (s *PaymentService) GetTokenPackages() ([]models.TokenPackage, error) {
	return s.packageRepo.GetAll()
}

func (s *PaymentService) GetUserHistory(userID uint) ([]models.Transaction, error) {
	return s.transactionRepo.GetUserHistory(userID)
}

// GetQRPayload returns the raw QR payload stored at creation time, for the
// PNG rendering endpoint.
func (s *PaymentService) GetQRPayload(orderID string) (string, error) {
	txn, err := s.transactionRepo.GetByPartnerReference(orderID)
	if err != nil {
		return "", err
	}
	return txn.Metadata["qrCode"], nil
}
