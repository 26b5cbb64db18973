package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/adgenix/adgenix-backend/internal/models"
)

// LedgerService fronts the token ledger for the generation pipeline and the
// UI balance poll.
type LedgerService struct {
	ledgerRepo LedgerStore
	log        *zap.Logger

	now func() time.Time
}

func NewLedgerService(ledgerRepo LedgerStore, log *zap.Logger) *LedgerService {
	return &LedgerService{
		ledgerRepo: ledgerRepo,
		log:        log,
		now:        time.Now,
	}
}

// GetBalance returns the stored balance plus the spendable view. A balance
// past its expiry reads as zero spendable tokens while the stored integer
// stays visible for support and audit.
func (s *LedgerService) GetBalance(userID uint, email string) (*models.TokenBalance, error) {
	account, err := s.ledgerRepo.GetOrCreate(userID, email)
	if err != nil {
		return nil, err
	}

	balance := &models.TokenBalance{
		Tokens:          account.Tokens,
		SpendableTokens: account.SpendableTokens(s.now()),
		Tier:            account.Tier,
	}
	if account.TokensExpiryDate != nil {
		formatted := account.TokensExpiryDate.Format(time.RFC3339)
		balance.TokensExpiryDate = &formatted
	}
	return balance, nil
}

// Spend debits tokens for one generation call. Insufficient or expired
// balances are rejected, never clamped.
func (s *LedgerService) Spend(userID uint, amount int, reason string) error {
	if err := s.ledgerRepo.Debit(userID, amount, s.now()); err != nil {
		return err
	}

	s.log.Info("tokens spent",
		zap.Uint("user_id", userID),
		zap.Int("amount", amount),
		zap.String("reason", reason),
	)
	return nil
}
