package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/dairylink/creditledger/internal/identity/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB *gorm.DB
}

type repo struct {
	db *gorm.DB
}

func Provide(p Params) domain.Resolver {
	return &repo{db: p.DB}
}

func (r *repo) ResolveStaffID(ctx context.Context, userID string) (*snowflake.ID, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, nil
	}

	var staff domain.StaffMember
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, user_id, full_name, role, active, created_at
		 FROM staff_members WHERE user_id = ? AND active = ? LIMIT 1`,
		userID,
		true,
	).Scan(&staff).Error
	if err != nil {
		return nil, err
	}
	if staff.ID == 0 {
		return nil, nil
	}

	id := staff.ID
	return &id, nil
}

func (r *repo) FindFarmer(ctx context.Context, farmerID snowflake.ID) (*domain.Farmer, error) {
	var farmer domain.Farmer
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, full_name, phone, joined_at, created_at, updated_at
		 FROM farmers WHERE id = ?`,
		farmerID,
	).Scan(&farmer).Error
	if err != nil {
		return nil, err
	}
	if farmer.ID == 0 {
		return nil, nil
	}
	return &farmer, nil
}
