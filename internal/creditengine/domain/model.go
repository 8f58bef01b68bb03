package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TxnCreditGranted  TransactionType = "credit_granted"
	TxnCreditUsed     TransactionType = "credit_used"
	TxnCreditRepaid   TransactionType = "credit_repaid"
	TxnCreditAdjusted TransactionType = "credit_adjusted"
	TxnSettlement     TransactionType = "settlement"
)

const (
	ApprovalApproved = "approved"
	ApprovalPending  = "pending"
)

// CreditTransaction is the immutable audit record paired with every balance
// change. Rows are never updated or deleted.
type CreditTransaction struct {
	ID                snowflake.ID     `json:"id" gorm:"primaryKey"`
	FarmerID          snowflake.ID     `json:"farmer_id" gorm:"index"`
	Type              TransactionType  `json:"type"`
	Amount            decimal.Decimal  `json:"amount" gorm:"type:decimal(14,2)"`
	BalanceBefore     decimal.Decimal  `json:"balance_before" gorm:"type:decimal(14,2)"`
	BalanceAfter      decimal.Decimal  `json:"balance_after" gorm:"type:decimal(14,2)"`
	ProductID         *snowflake.ID    `json:"product_id"`
	PackagingOptionID *snowflake.ID    `json:"packaging_option_id"`
	Quantity          *decimal.Decimal `json:"quantity" gorm:"type:decimal(14,2)"`
	UnitPrice         *decimal.Decimal `json:"unit_price" gorm:"type:decimal(14,2)"`
	ApprovedBy        *snowflake.ID    `json:"approved_by"`
	ApprovalStatus    string           `json:"approval_status"`
	Notes             *string          `json:"notes"`
	CreatedAt         time.Time        `json:"created_at" gorm:"index"`
}

func (CreditTransaction) TableName() string {
	return "credit_transactions"
}

var (
	ErrAlreadyGranted       = errors.New("credit already granted")
	ErrAccountFrozen        = errors.New("credit account is frozen")
	ErrNotEligible          = errors.New("farmer is not eligible for credit")
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrFreezeReasonRequired = errors.New("freeze reason is required")
)
