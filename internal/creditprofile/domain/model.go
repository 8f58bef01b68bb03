package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Tier string

const (
	TierNew         Tier = "new"
	TierEstablished Tier = "established"
	TierPremium     Tier = "premium"
)

// TierDefaults are the entitlements a tier starts with.
type TierDefaults struct {
	LimitPercentage decimal.Decimal
	MaxCreditAmount decimal.Decimal
}

// DefaultsFor returns the tier's limit percentage and absolute cap.
func DefaultsFor(tier Tier) TierDefaults {
	switch tier {
	case TierEstablished:
		return TierDefaults{
			LimitPercentage: decimal.NewFromInt(60),
			MaxCreditAmount: decimal.NewFromInt(75000),
		}
	case TierPremium:
		return TierDefaults{
			LimitPercentage: decimal.NewFromInt(70),
			MaxCreditAmount: decimal.NewFromInt(100000),
		}
	default:
		return TierDefaults{
			LimitPercentage: decimal.NewFromInt(30),
			MaxCreditAmount: decimal.NewFromInt(50000),
		}
	}
}

// DeriveTier maps a farmer's tenure since registration onto a credit tier.
// Up to three months is new, up to twelve is established, beyond that premium.
func DeriveTier(joinedAt, now time.Time) Tier {
	if joinedAt.IsZero() || joinedAt.After(now) {
		return TierNew
	}
	months := now.Sub(joinedAt).Hours() / (24 * 30)
	switch {
	case months <= 3:
		return TierNew
	case months <= 12:
		return TierEstablished
	default:
		return TierPremium
	}
}

// CreditProfile is a farmer's ledger row. CurrentBalance only moves through
// the transaction processor; 0 <= CurrentBalance <= MaxCreditAmount.
type CreditProfile struct {
	ID                snowflake.ID    `json:"id" gorm:"primaryKey"`
	FarmerID          snowflake.ID    `json:"farmer_id" gorm:"uniqueIndex"`
	Tier              Tier            `json:"tier"`
	LimitPercentage   decimal.Decimal `json:"limit_percentage" gorm:"type:decimal(14,2)"`
	MaxCreditAmount   decimal.Decimal `json:"max_credit_amount" gorm:"type:decimal(14,2)"`
	CurrentBalance    decimal.Decimal `json:"current_balance" gorm:"type:decimal(14,2)"`
	TotalUsed         decimal.Decimal `json:"total_used" gorm:"type:decimal(14,2)"`
	PendingDeductions decimal.Decimal `json:"pending_deductions" gorm:"type:decimal(14,2)"`
	IsFrozen          bool            `json:"is_frozen"`
	FreezeReason      *string         `json:"freeze_reason"`
	LastSettlementAt  *time.Time      `json:"last_settlement_at"`
	NextSettlementAt  *time.Time      `json:"next_settlement_at"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (CreditProfile) TableName() string {
	return "credit_profiles"
}

// EligibilityResult is the read-path answer for one farmer. AvailableCredit
// mirrors the stored balance; CreditLimit is advisory and only drives grants.
type EligibilityResult struct {
	IsEligible      bool            `json:"is_eligible"`
	CreditLimit     decimal.Decimal `json:"credit_limit"`
	AvailableCredit decimal.Decimal `json:"available_credit"`
	PendingPayments decimal.Decimal `json:"pending_payments"`
}

var ErrProfileNotFound = errors.New("credit profile not found")
