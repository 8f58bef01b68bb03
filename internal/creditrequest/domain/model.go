package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// IsTransitionAllowed reports whether a request may move between two states.
// Both terminal states only accept arrivals from pending.
func IsTransitionAllowed(from, to Status) bool {
	if from != StatusPending {
		return false
	}
	return to == StatusApproved || to == StatusRejected
}

// CreditRequest is a farmer's purchase intent. Name, unit price, and total
// are frozen at creation and never recomputed from the live catalog.
type CreditRequest struct {
	ID                snowflake.ID    `json:"id" gorm:"primaryKey"`
	FarmerID          snowflake.ID    `json:"farmer_id" gorm:"index"`
	ProductID         snowflake.ID    `json:"product_id"`
	ProductName       string          `json:"product_name"` // snapshot
	PackagingOptionID *snowflake.ID   `json:"packaging_option_id"`
	Quantity          decimal.Decimal `json:"quantity" gorm:"type:decimal(14,2)"`
	UnitPrice         decimal.Decimal `json:"unit_price" gorm:"type:decimal(14,2)"` // snapshot
	TotalAmount       decimal.Decimal `json:"total_amount" gorm:"type:decimal(14,2)"` // snapshot
	Status            Status          `json:"status" gorm:"index"`
	ApprovedBy        *snowflake.ID   `json:"approved_by"`
	RejectionReason   *string         `json:"rejection_reason"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	DecidedAt         *time.Time      `json:"decided_at"`
}

func (CreditRequest) TableName() string {
	return "credit_requests"
}

type CreateRequest struct {
	FarmerID    snowflake.ID
	ProductID   snowflake.ID
	PackagingID *snowflake.ID
	Quantity    decimal.Decimal
}

// DecisionResult is the outcome of an approval attempt. A gate denial keeps
// the request pending and carries the denial reason.
type DecisionResult struct {
	Success bool          `json:"success"`
	Reason  string        `json:"reason,omitempty"`
	Request *CreditRequest `json:"request,omitempty"`
}

type ListFilter struct {
	FarmerID *snowflake.ID
	Status   *Status
	Limit    int
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*CreditRequest, error)
	// Approve debits the ledger with the request's snapshot values. The
	// approver resolves through the staff identity space and may be NULL.
	Approve(ctx context.Context, requestID snowflake.ID, approvedBy string) (*DecisionResult, error)
	Reject(ctx context.Context, requestID snowflake.ID, reason, rejectedBy string) (*CreditRequest, error)
	Get(ctx context.Context, requestID snowflake.ID) (*CreditRequest, error)
	List(ctx context.Context, filter ListFilter) ([]CreditRequest, error)
}

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, request *CreditRequest) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*CreditRequest, error)
	Update(ctx context.Context, db *gorm.DB, request *CreditRequest) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]CreditRequest, error)
}

var (
	ErrRequestNotFound          = errors.New("credit request not found")
	ErrInvalidStatusTransition  = errors.New("request already decided")
	ErrRejectionReasonRequired  = errors.New("rejection reason is required")
	ErrInvalidQuantity          = errors.New("quantity must be positive")
	ErrProductNotCreditEligible = errors.New("product is not credit eligible")
)
