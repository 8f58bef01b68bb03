package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/dairylink/creditledger/internal/receivables/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB *gorm.DB
}

type source struct {
	db *gorm.DB
}

func Provide(p Params) domain.Source {
	return &source{db: p.DB}
}

func (s *source) PendingReceivables(ctx context.Context, farmerID snowflake.ID) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal
	}
	err := s.db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(total_amount), 0) AS total
		 FROM milk_deliveries
		 WHERE farmer_id = ? AND status <> ?`,
		farmerID, domain.DeliveryStatusPaid,
	).Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	return row.Total, nil
}
