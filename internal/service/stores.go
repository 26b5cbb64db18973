package service

import (
	"context"
	"time"

	"github.com/stripe/stripe-go/v74"

	"github.com/adgenix/adgenix-backend/internal/models"
	"github.com/adgenix/adgenix-backend/pkg/dana"
)

// Storage and gateway seams. The gorm-backed repositories satisfy these in
// production; tests drive the services with in-memory fakes.

type PackageStore interface {
	GetByID(id uint) (*models.TokenPackage, error)
	GetAll() ([]models.TokenPackage, error)
}

type TransactionStore interface {
	Create(tx *models.Transaction) error
	GetByPartnerReference(ref string) (*models.Transaction, error)
	GetByPaymentIntent(id string) (*models.Transaction, error)
	GetUserHistory(userID uint) ([]models.Transaction, error)
	MarkFailed(ref string, extra models.Metadata) (bool, error)
	ApplyPurchase(ref string, extra models.Metadata, pkg *models.TokenPackage, expiry time.Time) (*models.Transaction, error)
	ApplyRefund(refundID string, userID uint, pkg *models.TokenPackage) (bool, error)
}

type LedgerStore interface {
	GetOrCreate(userID uint, email string) (*models.UserTokenAccount, error)
	Debit(userID uint, amount int, now time.Time) error
	Credit(userID uint, email string, amount int, tier models.Tier, expiry time.Time) error
}

type QRGateway interface {
	Configured() bool
	CreateQRPayment(ctx context.Context, req dana.QRPaymentRequest) (*dana.QRPaymentResponse, error)
}

type CheckoutProvider interface {
	Configured() bool
	CreateCheckoutSession(userEmail string, userID uint, packageID uint, packageName string, priceIDR int64) (*stripe.CheckoutSession, error)
}

type ReceiptSender interface {
	SendPurchaseReceipt(email, packageName string, tokens int, orderID string) error
}
