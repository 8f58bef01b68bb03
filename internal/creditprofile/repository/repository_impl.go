package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/dairylink/creditledger/internal/creditprofile/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const profileColumns = `id, farmer_id, tier, limit_percentage, max_credit_amount,
 current_balance, total_used, pending_deductions, is_frozen, freeze_reason,
 last_settlement_at, next_settlement_at, created_at, updated_at`

func (r *repo) Create(ctx context.Context, db *gorm.DB, profile *domain.CreditProfile) error {
	return db.WithContext(ctx).Create(profile).Error
}

func (r *repo) FindByFarmerID(ctx context.Context, db *gorm.DB, farmerID snowflake.ID) (*domain.CreditProfile, error) {
	var profile domain.CreditProfile
	err := db.WithContext(ctx).Raw(
		`SELECT `+profileColumns+` FROM credit_profiles WHERE farmer_id = ?`,
		farmerID,
	).Scan(&profile).Error
	if err != nil {
		return nil, err
	}
	if profile.ID == 0 {
		return nil, nil
	}
	return &profile, nil
}

func (r *repo) FindByFarmerIDForUpdate(ctx context.Context, tx *gorm.DB, farmerID snowflake.ID) (*domain.CreditProfile, error) {
	var profile domain.CreditProfile
	err := tx.WithContext(ctx).Raw(
		`SELECT `+profileColumns+` FROM credit_profiles WHERE farmer_id = ? FOR UPDATE`,
		farmerID,
	).Scan(&profile).Error
	if err != nil {
		return nil, err
	}
	if profile.ID == 0 {
		return nil, nil
	}
	return &profile, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, profile *domain.CreditProfile) error {
	return db.WithContext(ctx).Exec(
		`UPDATE credit_profiles SET
		 tier = ?, limit_percentage = ?, max_credit_amount = ?, current_balance = ?,
		 total_used = ?, pending_deductions = ?, is_frozen = ?, freeze_reason = ?,
		 last_settlement_at = ?, next_settlement_at = ?, updated_at = ?
		 WHERE id = ?`,
		profile.Tier, profile.LimitPercentage, profile.MaxCreditAmount, profile.CurrentBalance,
		profile.TotalUsed, profile.PendingDeductions, profile.IsFrozen, profile.FreezeReason,
		profile.LastSettlementAt, profile.NextSettlementAt, profile.UpdatedAt,
		profile.ID,
	).Error
}

func (r *repo) ListDueForSettlement(ctx context.Context, db *gorm.DB, asOf time.Time) ([]domain.CreditProfile, error) {
	var profiles []domain.CreditProfile
	err := db.WithContext(ctx).Raw(
		`SELECT `+profileColumns+` FROM credit_profiles
		 WHERE is_frozen = ? AND next_settlement_at IS NOT NULL AND next_settlement_at <= ?
		 ORDER BY next_settlement_at ASC`,
		false, asOf,
	).Scan(&profiles).Error
	if err != nil {
		return nil, err
	}
	return profiles, nil
}
