package repository

import (
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/adgenix/adgenix-backend/internal/models"
)

var ErrTransactionNotFound = errors.New("transaction not found")

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{
		db: db,
	}
}

func (r *TransactionRepository) Create(tx *models.Transaction) error {
	return r.db.Create(tx).Error
}

func (r *TransactionRepository) GetByPartnerReference(ref string) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.db.Where("partner_reference_no = ?", ref).First(&tx).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// GetByPaymentIntent finds the transaction stamped with the given Stripe
// payment intent id during reconciliation.
func (r *TransactionRepository) GetByPaymentIntent(id string) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.db.Where("metadata ->> 'stripePaymentIntent' = ?", id).First(&tx).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *TransactionRepository) GetUserHistory(userID uint) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&txs).Error
	return txs, err
}

// MarkFailed flips a pending transaction to failed. Terminal states are
// sticky: a transaction that already completed or failed is left alone and
// false is returned.
func (r *TransactionRepository) MarkFailed(ref string, extra models.Metadata) (bool, error) {
	return r.transition(r.db, ref, models.TransactionStatusFailed, extra)
}

// ApplyPurchase is the reconciler's unit of work: flip the transaction to
// completed and credit the ledger as one database transaction. The
// conditional status UPDATE is the idempotency gate; a replayed webhook sees
// zero rows affected and the credit never runs, so a given transaction
// credits the ledger exactly once. Returns the transaction row when the
// credit was applied, nil when it was a no-op.
func (r *TransactionRepository) ApplyPurchase(ref string, extra models.Metadata, pkg *models.TokenPackage, expiry time.Time) (*models.Transaction, error) {
	var applied *models.Transaction

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var txn models.Transaction
		if err := tx.Where("partner_reference_no = ?", ref).First(&txn).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTransactionNotFound
			}
			return err
		}

		flipped, err := r.transition(tx, ref, models.TransactionStatusCompleted, extra)
		if err != nil {
			return err
		}
		if !flipped {
			// duplicate delivery, nothing else to do
			return nil
		}

		if err := creditAccount(tx, txn.UserID, "", pkg.Tokens, pkg.Tier, expiry); err != nil {
			return err
		}

		txn.Status = models.TransactionStatusCompleted
		applied = &txn
		return nil
	})

	return applied, err
}

// ApplyRefund debits the refunded package from the ledger, clamped at zero.
// Idempotency rides on the partner_reference_no unique index: a marker row
// keyed by the refund id is inserted with ON CONFLICT DO NOTHING, and a
// conflict means this refund was already processed.
func (r *TransactionRepository) ApplyRefund(refundID string, userID uint, pkg *models.TokenPackage) (bool, error) {
	applied := false

	err := r.db.Transaction(func(tx *gorm.DB) error {
		marker := models.Transaction{
			UserID:             userID,
			PackageID:          pkg.ID,
			AmountIDR:          -pkg.FinalPriceIDR(),
			Status:             models.TransactionStatusCompleted,
			Provider:           models.ProviderDana,
			PartnerReferenceNo: "REFUND-" + refundID,
			Metadata:           models.Metadata{"refundId": refundID},
		}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "partner_reference_no"}},
			DoNothing: true,
		}).Create(&marker)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		if err := tx.Model(&models.UserTokenAccount{}).
			Where("user_id = ?", userID).
			Update("tokens", gorm.Expr("GREATEST(tokens - ?, 0)", pkg.Tokens)).Error; err != nil {
			return err
		}

		applied = true
		return nil
	})

	return applied, err
}

func (r *TransactionRepository) transition(db *gorm.DB, ref string, to models.TransactionStatus, extra models.Metadata) (bool, error) {
	updates := map[string]interface{}{"status": to}
	if len(extra) > 0 {
		patch, err := metadataPatch(extra)
		if err != nil {
			return false, err
		}
		updates["metadata"] = patch
	}

	res := db.Model(&models.Transaction{}).
		Where("partner_reference_no = ? AND status = ?", ref, models.TransactionStatusPending).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// metadataPatch merges extra into the stored jsonb column inside the UPDATE
// itself, so concurrent transitions cannot drop each other's keys the way a
// read-merge-write would.
func metadataPatch(extra models.Metadata) (clause.Expr, error) {
	patch, err := json.Marshal(extra)
	if err != nil {
		return clause.Expr{}, err
	}
	return clause.Expr{
		SQL:  "COALESCE(metadata, '{}'::jsonb) || ?::jsonb",
		Vars: []interface{}{string(patch)},
	}, nil
}
