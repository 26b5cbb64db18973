package models

import (
	"time"
)

// UserTokenAccount is the token ledger row for one user: the single source of
// truth the generation pipeline debits and the webhook reconciler credits.
type UserTokenAccount struct {
	ID               uint       `json:"id" gorm:"primaryKey"`
	UserID           uint       `json:"user_id" gorm:"unique;not null"`
	Email            string     `json:"email" gorm:"not null"`
	Tokens           int        `json:"tokens" gorm:"not null;default:0"`
	Tier             Tier       `json:"tier" gorm:"default:'pioneer'"`
	TokensExpiryDate *time.Time `json:"tokens_expiry_date"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Expired reports whether the balance is past its expiry. Expiry gates
// spending only; the stored token count is kept for support and audit.
func (a *UserTokenAccount) Expired(now time.Time) bool {
	return a.TokensExpiryDate != nil && !now.Before(*a.TokensExpiryDate)
}

// SpendableTokens is the balance the generation pipeline may draw on.
func (a *UserTokenAccount) SpendableTokens(now time.Time) int {
	if a.Expired(now) {
		return 0
	}
	return a.Tokens
}
