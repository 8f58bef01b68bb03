// Package scheduler drives the periodic settlement sweep.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/dairylink/creditledger/internal/clock"
	"github.com/dairylink/creditledger/internal/config"
	enginedomain "github.com/dairylink/creditledger/internal/creditengine/domain"
	profiledomain "github.com/dairylink/creditledger/internal/creditprofile/domain"
	"github.com/dairylink/creditledger/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("scheduler: missing dependency")

const sweepTimeout = 5 * time.Minute

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Cfg         config.Config
	Clock       clock.Clock
	ProfileRepo profiledomain.Repository
	Processor   enginedomain.Processor
}

// Scheduler sweeps profiles whose settlement date has passed and settles
// them one by one. A failing farmer never aborts the sweep.
type Scheduler struct {
	db          *gorm.DB
	log         *zap.Logger
	cfg         config.Config
	clock       clock.Clock
	profileRepo profiledomain.Repository
	processor   enginedomain.Processor
	metrics     *metrics.LedgerMetrics
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil || p.ProfileRepo == nil || p.Processor == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:          p.DB,
		log:         p.Log.Named("scheduler"),
		cfg:         p.Cfg,
		clock:       p.Clock,
		profileRepo: p.ProfileRepo,
		processor:   p.Processor,
		metrics: metrics.LedgerWithConfig(metrics.Config{
			ServiceName: p.Cfg.AppName,
			Environment: p.Cfg.Environment,
		}),
	}, nil
}

// RunOnce settles every due profile and reports how many were settled.
func (s *Scheduler) RunOnce(parent context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(parent, sweepTimeout)
	defer cancel()

	start := time.Now()
	asOf := s.clock.Now()

	due, err := s.profileRepo.ListDueForSettlement(ctx, s.db, asOf)
	if err != nil {
		s.metrics.ObserveSweep(metrics.OutcomeError, 0, time.Since(start))
		return 0, err
	}

	settled := 0
	failed := 0
	for _, profile := range due {
		if err := ctx.Err(); err != nil {
			s.metrics.ObserveSweep(metrics.OutcomeError, settled, time.Since(start))
			return settled, err
		}
		if skippable(profile) {
			continue
		}
		if _, err := s.processor.Settle(ctx, profile.FarmerID, nil); err != nil {
			failed++
			s.log.Warn("settlement failed for farmer",
				zap.String("farmer_id", profile.FarmerID.String()),
				zap.Error(err),
			)
			continue
		}
		settled++
	}

	s.metrics.ObserveSweep(metrics.OutcomeSuccess, settled, time.Since(start))
	s.log.Info("settlement sweep finished",
		zap.Int("due", len(due)),
		zap.Int("settled", settled),
		zap.Int("failed", failed),
	)
	return settled, nil
}

// skippable reports whether a due profile has had no credit activity since
// its last settlement.
func skippable(profile profiledomain.CreditProfile) bool {
	return profile.PendingDeductions.IsZero() &&
		profile.CurrentBalance.Equal(profile.MaxCreditAmount)
}
