package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

const (
	DeliveryStatusPending = "pending"
	DeliveryStatusPaid    = "paid"
)

// MilkDelivery is one collection-center delivery. Unpaid rows back a
// farmer's credit limit.
type MilkDelivery struct {
	ID            snowflake.ID    `json:"id" gorm:"primaryKey"`
	FarmerID      snowflake.ID    `json:"farmer_id" gorm:"index"`
	DeliveredAt   time.Time       `json:"delivered_at"`
	QuantityLiter decimal.Decimal `json:"quantity_liter" gorm:"type:decimal(14,2)"`
	PricePerLiter decimal.Decimal `json:"price_per_liter" gorm:"type:decimal(14,2)"`
	TotalAmount   decimal.Decimal `json:"total_amount" gorm:"type:decimal(14,2)"`
	Status        string          `json:"status" gorm:"index"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (MilkDelivery) TableName() string {
	return "milk_deliveries"
}

// Source reports a farmer's outstanding milk receivables. Callers treat a
// failure as "not eligible" rather than surfacing it.
type Source interface {
	PendingReceivables(ctx context.Context, farmerID snowflake.ID) (decimal.Decimal, error)
}
