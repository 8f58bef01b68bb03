package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/dairylink/creditledger/internal/creditrequest/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const requestColumns = `id, farmer_id, product_id, product_name, packaging_option_id,
 quantity, unit_price, total_amount, status, approved_by, rejection_reason,
 created_at, updated_at, decided_at`

func (r *repo) Create(ctx context.Context, db *gorm.DB, request *domain.CreditRequest) error {
	return db.WithContext(ctx).Create(request).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.CreditRequest, error) {
	var request domain.CreditRequest
	err := db.WithContext(ctx).Raw(
		`SELECT `+requestColumns+` FROM credit_requests WHERE id = ?`,
		id,
	).Scan(&request).Error
	if err != nil {
		return nil, err
	}
	if request.ID == 0 {
		return nil, nil
	}
	return &request, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, request *domain.CreditRequest) error {
	return db.WithContext(ctx).Exec(
		`UPDATE credit_requests SET
		 status = ?, approved_by = ?, rejection_reason = ?, updated_at = ?, decided_at = ?
		 WHERE id = ?`,
		request.Status, request.ApprovedBy, request.RejectionReason,
		request.UpdatedAt, request.DecidedAt,
		request.ID,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.CreditRequest, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + requestColumns + ` FROM credit_requests WHERE 1 = 1`
	args := make([]any, 0, 3)
	if filter.FarmerID != nil {
		query += ` AND farmer_id = ?`
		args = append(args, *filter.FarmerID)
	}
	if filter.Status != nil {
		query += ` AND status = ?`
		args = append(args, *filter.Status)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	var requests []domain.CreditRequest
	err := db.WithContext(ctx).Raw(query, args...).Scan(&requests).Error
	if err != nil {
		return nil, err
	}
	return requests, nil
}
