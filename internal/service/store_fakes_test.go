package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stripe/stripe-go/v74"
	"gorm.io/gorm"

	"github.com/adgenix/adgenix-backend/internal/models"
	"github.com/adgenix/adgenix-backend/internal/repository"
	"github.com/adgenix/adgenix-backend/pkg/dana"
)

// memStore is an in-memory stand-in for the gorm repositories. It mirrors
// their transition semantics: status flips are conditional on the current
// status and refunds are gated by the unique partner reference.
type memStore struct {
	mu       sync.Mutex
	packages map[uint]*models.TokenPackage
	txns     map[string]*models.Transaction
	accounts map[uint]*models.UserTokenAccount
}

func newMemStore() *memStore {
	return &memStore{
		packages: make(map[uint]*models.TokenPackage),
		txns:     make(map[string]*models.Transaction),
		accounts: make(map[uint]*models.UserTokenAccount),
	}
}

func (m *memStore) addPackage(pkg models.TokenPackage) {
	m.packages[pkg.ID] = &pkg
}

func (m *memStore) GetByID(id uint) (*models.TokenPackage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pkg, ok := m.packages[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *pkg
	return &cp, nil
}

func (m *memStore) GetAll() ([]models.TokenPackage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.TokenPackage
	for _, pkg := range m.packages {
		if pkg.IsActive {
			out = append(out, *pkg)
		}
	}
	return out, nil
}

func (m *memStore) Create(tx *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.txns[tx.PartnerReferenceNo]; exists {
		return fmt.Errorf("duplicate partner_reference_no %q", tx.PartnerReferenceNo)
	}
	cp := *tx
	m.txns[tx.PartnerReferenceNo] = &cp
	return nil
}

func (m *memStore) GetByPartnerReference(ref string) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.txns[ref]
	if !ok {
		return nil, repository.ErrTransactionNotFound
	}
	cp := *tx
	return &cp, nil
}

func (m *memStore) GetByPaymentIntent(id string) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tx := range m.txns {
		if tx.Metadata["stripePaymentIntent"] == id {
			cp := *tx
			return &cp, nil
		}
	}
	return nil, repository.ErrTransactionNotFound
}

func (m *memStore) GetUserHistory(userID uint) ([]models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Transaction
	for _, tx := range m.txns {
		if tx.UserID == userID {
			out = append(out, *tx)
		}
	}
	return out, nil
}

func (m *memStore) MarkFailed(ref string, extra models.Metadata) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.txns[ref]
	if !ok || tx.Status != models.TransactionStatusPending {
		return false, nil
	}
	tx.Status = models.TransactionStatusFailed
	mergeMeta(tx, extra)
	return true, nil
}

func (m *memStore) ApplyPurchase(ref string, extra models.Metadata, pkg *models.TokenPackage, expiry time.Time) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.txns[ref]
	if !ok {
		return nil, repository.ErrTransactionNotFound
	}
	if tx.Status != models.TransactionStatusPending {
		return nil, nil
	}
	tx.Status = models.TransactionStatusCompleted
	mergeMeta(tx, extra)

	acct, ok := m.accounts[tx.UserID]
	if !ok {
		acct = &models.UserTokenAccount{UserID: tx.UserID}
		m.accounts[tx.UserID] = acct
	}
	acct.Tokens += pkg.Tokens
	acct.Tier = pkg.Tier
	e := expiry
	acct.TokensExpiryDate = &e

	cp := *tx
	return &cp, nil
}

func (m *memStore) ApplyRefund(refundID string, userID uint, pkg *models.TokenPackage) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	marker := "REFUND-" + refundID
	if _, exists := m.txns[marker]; exists {
		return false, nil
	}
	m.txns[marker] = &models.Transaction{
		UserID:             userID,
		PackageID:          pkg.ID,
		Status:             models.TransactionStatusCompleted,
		PartnerReferenceNo: marker,
	}
	if acct, ok := m.accounts[userID]; ok {
		acct.Tokens -= pkg.Tokens
		if acct.Tokens < 0 {
			acct.Tokens = 0
		}
	}
	return true, nil
}

func (m *memStore) GetOrCreate(userID uint, email string) (*models.UserTokenAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, ok := m.accounts[userID]
	if !ok {
		acct = &models.UserTokenAccount{UserID: userID, Email: email, Tier: models.TierPioneer}
		m.accounts[userID] = acct
	}
	cp := *acct
	return &cp, nil
}

func (m *memStore) Debit(userID uint, amount int, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, ok := m.accounts[userID]
	if !ok {
		return repository.ErrInsufficientTokens
	}
	if acct.Expired(now) || acct.Tokens < amount {
		return repository.ErrInsufficientTokens
	}
	acct.Tokens -= amount
	return nil
}

func (m *memStore) Credit(userID uint, email string, amount int, tier models.Tier, expiry time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, ok := m.accounts[userID]
	if !ok {
		acct = &models.UserTokenAccount{UserID: userID, Email: email}
		m.accounts[userID] = acct
	}
	acct.Tokens += amount
	acct.Tier = tier
	e := expiry
	acct.TokensExpiryDate = &e
	return nil
}

func (m *memStore) account(userID uint) *models.UserTokenAccount {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accounts[userID]
}

func (m *memStore) setAccount(acct models.UserTokenAccount) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[acct.UserID] = &acct
}

func mergeMeta(tx *models.Transaction, extra models.Metadata) {
	if tx.Metadata == nil {
		tx.Metadata = models.Metadata{}
	}
	for k, v := range extra {
		tx.Metadata[k] = v
	}
}

// fakeGateway scripts the Dana client.
type fakeGateway struct {
	configured bool
	resp       *dana.QRPaymentResponse
	err        error
	requests   []dana.QRPaymentRequest
}

func (f *fakeGateway) Configured() bool { return f.configured }

func (f *fakeGateway) CreateQRPayment(_ context.Context, req dana.QRPaymentRequest) (*dana.QRPaymentResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

// fakeCheckout scripts the Stripe wrapper.
type fakeCheckout struct {
	configured bool
	session    *stripe.CheckoutSession
	err        error
}

func (f *fakeCheckout) Configured() bool { return f.configured }

func (f *fakeCheckout) CreateCheckoutSession(string, uint, uint, string, int64) (*stripe.CheckoutSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

// fakeEmail records receipts.
type fakeEmail struct {
	mu       sync.Mutex
	receipts []string
}

func (f *fakeEmail) SendPurchaseReceipt(email, packageName string, tokens int, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receipts = append(f.receipts, orderID)
	return nil
}
