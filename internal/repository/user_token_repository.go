package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/adgenix/adgenix-backend/internal/models"
)

// ErrInsufficientTokens is returned when a debit would take the stored
// balance negative, or when the balance is past its expiry date.
var ErrInsufficientTokens = errors.New("insufficient token balance")

type UserTokenRepository struct {
	db *gorm.DB
}

func NewUserTokenRepository(db *gorm.DB) *UserTokenRepository {
	return &UserTokenRepository{
		db: db,
	}
}

// GetOrCreate returns the ledger row for userID, creating a zero-balance
// account on first sight.
func (r *UserTokenRepository) GetOrCreate(userID uint, email string) (*models.UserTokenAccount, error) {
	account := models.UserTokenAccount{
		UserID: userID,
		Email:  email,
		Tier:   models.TierPioneer,
	}
	err := r.db.Where(models.UserTokenAccount{UserID: userID}).
		Attrs(account).
		FirstOrCreate(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// Debit spends tokens. The balance check, the expiry spend-gate and the
// subtraction run as one conditional UPDATE so concurrent debits can never
// drive the stored balance negative, even across process instances.
func (r *UserTokenRepository) Debit(userID uint, amount int, now time.Time) error {
	res := r.db.Model(&models.UserTokenAccount{}).
		Where("user_id = ? AND tokens >= ? AND (tokens_expiry_date IS NULL OR tokens_expiry_date > ?)",
			userID, amount, now).
		Update("tokens", gorm.Expr("tokens - ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientTokens
	}
	return nil
}

// Credit adds purchased tokens and overwrites tier and expiry. The expiry is
// always reset to the new date: every purchase restarts the 28-day clock.
func (r *UserTokenRepository) Credit(userID uint, email string, amount int, tier models.Tier, expiry time.Time) error {
	return creditAccount(r.db, userID, email, amount, tier, expiry)
}

// creditAccount is shared with the purchase applier so the credit can run
// inside the reconciler's database transaction. A single upsert covers both
// the first-ever purchase and the existing account: two concurrent first
// credits resolve on the user_id unique index instead of one of them failing
// a racing INSERT.
func creditAccount(db *gorm.DB, userID uint, email string, amount int, tier models.Tier, expiry time.Time) error {
	account := models.UserTokenAccount{
		UserID:           userID,
		Email:            email,
		Tokens:           amount,
		Tier:             tier,
		TokensExpiryDate: &expiry,
	}
	return db.Clauses(creditUpsert(amount, tier, expiry)).Create(&account).Error
}

func creditUpsert(amount int, tier models.Tier, expiry time.Time) clause.OnConflict {
	return clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"tokens":             gorm.Expr("user_token_accounts.tokens + ?", amount),
			"tier":               tier,
			"tokens_expiry_date": expiry,
		}),
	}
}
