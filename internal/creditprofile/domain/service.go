package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Service interface {
	// CheckEligibility lazily creates the profile on first sight of a
	// farmer and degrades any downstream failure to a not-eligible answer.
	CheckEligibility(ctx context.Context, farmerID snowflake.ID) (*EligibilityResult, error)

	Get(ctx context.Context, farmerID snowflake.ID) (*CreditProfile, error)

	// GetOrCreate runs against the caller's transaction so a first grant
	// and the profile it lands on commit together.
	GetOrCreate(ctx context.Context, tx *gorm.DB, farmerID snowflake.ID) (*CreditProfile, error)
}

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, profile *CreditProfile) error
	FindByFarmerID(ctx context.Context, db *gorm.DB, farmerID snowflake.ID) (*CreditProfile, error)
	// FindByFarmerIDForUpdate locks the row for the duration of tx.
	FindByFarmerIDForUpdate(ctx context.Context, tx *gorm.DB, farmerID snowflake.ID) (*CreditProfile, error)
	Update(ctx context.Context, db *gorm.DB, profile *CreditProfile) error
	// ListDueForSettlement returns unfrozen profiles whose next settlement
	// is at or before asOf.
	ListDueForSettlement(ctx context.Context, db *gorm.DB, asOf time.Time) ([]CreditProfile, error)
}
