package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type UseRequest struct {
	FarmerID    snowflake.ID
	ProductID   snowflake.ID
	PackagingID *snowflake.ID
	Quantity    decimal.Decimal
	// UnitPrice, when set, is a price snapshot taken earlier and is used
	// as-is instead of a live catalog lookup.
	UnitPrice      *decimal.Decimal
	UsedBy         *snowflake.ID
	ApprovalStatus string
	Notes          *string
}

type UseResult struct {
	Success       bool          `json:"success"`
	TransactionID *snowflake.ID `json:"transaction_id,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	Decision      Decision      `json:"decision"`
}

type AdjustRequest struct {
	FarmerID      snowflake.ID
	NewPercentage *decimal.Decimal
	NewMaxAmount  decimal.Decimal
	AdjustedBy    *snowflake.ID
	Notes         *string
}

// Processor is the sole mutator of credit balances. Every mutation commits
// together with its audit transaction or not at all.
type Processor interface {
	Grant(ctx context.Context, farmerID snowflake.ID, grantedBy *snowflake.ID) (*CreditTransaction, error)
	Use(ctx context.Context, req UseRequest) (*UseResult, error)
	Repay(ctx context.Context, farmerID snowflake.ID, amount decimal.Decimal, repaidBy *snowflake.ID) (*CreditTransaction, error)
	Adjust(ctx context.Context, req AdjustRequest) (*CreditTransaction, error)
	Freeze(ctx context.Context, farmerID snowflake.ID, reason string, frozenBy *snowflake.ID) error
	Unfreeze(ctx context.Context, farmerID snowflake.ID, unfrozenBy *snowflake.ID) error
	Settle(ctx context.Context, farmerID snowflake.ID, settledBy *snowflake.ID) (*CreditTransaction, error)
	ListTransactions(ctx context.Context, farmerID snowflake.ID, limit int) ([]CreditTransaction, error)
}

type Repository interface {
	CreateTransaction(ctx context.Context, db *gorm.DB, txn *CreditTransaction) error
	ListByFarmer(ctx context.Context, db *gorm.DB, farmerID snowflake.ID, limit int) ([]CreditTransaction, error)
}
