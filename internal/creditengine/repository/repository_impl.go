package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/dairylink/creditledger/internal/creditengine/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) CreateTransaction(ctx context.Context, db *gorm.DB, txn *domain.CreditTransaction) error {
	return db.WithContext(ctx).Create(txn).Error
}

func (r *repo) ListByFarmer(ctx context.Context, db *gorm.DB, farmerID snowflake.ID, limit int) ([]domain.CreditTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	var txns []domain.CreditTransaction
	err := db.WithContext(ctx).Raw(
		`SELECT id, farmer_id, type, amount, balance_before, balance_after,
		 product_id, packaging_option_id, quantity, unit_price,
		 approved_by, approval_status, notes, created_at
		 FROM credit_transactions
		 WHERE farmer_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		farmerID, limit,
	).Scan(&txns).Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}
