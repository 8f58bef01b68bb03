package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/dairylink/creditledger/internal/clock"
	"github.com/dairylink/creditledger/internal/config"
	"github.com/dairylink/creditledger/internal/creditprofile/domain"
	identitydomain "github.com/dairylink/creditledger/internal/identity/domain"
	receivablesdomain "github.com/dairylink/creditledger/internal/receivables/domain"
	"github.com/dairylink/creditledger/pkg/db"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Cfg         config.Config
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	Receivables receivablesdomain.Source
	Identity    identitydomain.Resolver
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	cfg         config.Config
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	receivables receivablesdomain.Source
	identity    identitydomain.Resolver
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("creditprofile.service"),
		cfg:         p.Cfg,
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		receivables: p.Receivables,
		identity:    p.Identity,
	}
}

var notEligible = domain.EligibilityResult{
	IsEligible:      false,
	CreditLimit:     decimal.Zero,
	AvailableCredit: decimal.Zero,
	PendingPayments: decimal.Zero,
}

// CheckEligibility implements domain.Service. It is called from read paths,
// so every downstream failure degrades to a not-eligible answer.
func (s *Service) CheckEligibility(ctx context.Context, farmerID snowflake.ID) (*domain.EligibilityResult, error) {
	profile, err := s.GetOrCreate(ctx, s.db, farmerID)
	if err != nil {
		s.log.Warn("eligibility degraded: profile lookup failed",
			zap.String("farmer_id", farmerID.String()),
			zap.Error(err),
		)
		result := notEligible
		return &result, nil
	}

	if profile.IsFrozen {
		result := notEligible
		return &result, nil
	}

	pending, err := s.receivables.PendingReceivables(ctx, farmerID)
	if err != nil {
		s.log.Warn("eligibility degraded: receivables source failed",
			zap.String("farmer_id", farmerID.String()),
			zap.Error(err),
		)
		result := notEligible
		return &result, nil
	}

	limit := decimal.Min(
		pending.Mul(profile.LimitPercentage).Div(decimal.NewFromInt(100)),
		profile.MaxCreditAmount,
	)

	return &domain.EligibilityResult{
		IsEligible:      true,
		CreditLimit:     limit.Round(2),
		AvailableCredit: profile.CurrentBalance.Round(2),
		PendingPayments: pending.Round(2),
	}, nil
}

func (s *Service) Get(ctx context.Context, farmerID snowflake.ID) (*domain.CreditProfile, error) {
	profile, err := s.findWithRetry(ctx, farmerID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, domain.ErrProfileNotFound
	}
	return profile, nil
}

// GetOrCreate implements domain.Service. A lost creation race falls back to
// the winner's row.
func (s *Service) GetOrCreate(ctx context.Context, tx *gorm.DB, farmerID snowflake.ID) (*domain.CreditProfile, error) {
	profile, err := s.findWithRetry(ctx, farmerID)
	if err != nil {
		return nil, err
	}
	if profile != nil {
		return profile, nil
	}

	created := s.newProfile(ctx, farmerID)
	if err := s.repo.Create(ctx, tx, created); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return s.repo.FindByFarmerID(ctx, tx, farmerID)
		}
		return nil, err
	}
	s.log.Info("credit profile created",
		zap.String("farmer_id", farmerID.String()),
		zap.String("tier", string(created.Tier)),
	)
	return created, nil
}

func (s *Service) newProfile(ctx context.Context, farmerID snowflake.ID) *domain.CreditProfile {
	now := s.clock.Now()

	tier := domain.TierNew
	farmer, err := s.identity.FindFarmer(ctx, farmerID)
	if err != nil {
		s.log.Warn("farmer lookup failed, defaulting tier",
			zap.String("farmer_id", farmerID.String()),
			zap.Error(err),
		)
	} else if farmer != nil {
		tier = domain.DeriveTier(farmer.JoinedAt, now)
	}

	defaults := domain.DefaultsFor(tier)
	next := now.AddDate(0, 0, s.cfg.SettlementPeriodDays)
	return &domain.CreditProfile{
		ID:                s.genID.Generate(),
		FarmerID:          farmerID,
		Tier:              tier,
		LimitPercentage:   defaults.LimitPercentage,
		MaxCreditAmount:   defaults.MaxCreditAmount,
		CurrentBalance:    decimal.Zero,
		TotalUsed:         decimal.Zero,
		PendingDeductions: decimal.Zero,
		NextSettlementAt:  &next,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// findWithRetry retries a failed read once. Mutating paths never retry.
func (s *Service) findWithRetry(ctx context.Context, farmerID snowflake.ID) (*domain.CreditProfile, error) {
	profile, err := s.repo.FindByFarmerID(ctx, s.db, farmerID)
	if err == nil {
		return profile, nil
	}
	s.log.Warn("profile read failed, retrying once",
		zap.String("farmer_id", farmerID.String()),
		zap.Error(err),
	)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(50 * time.Millisecond):
	}
	return s.repo.FindByFarmerID(ctx, s.db, farmerID)
}
