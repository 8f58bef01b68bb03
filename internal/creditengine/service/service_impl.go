package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/dairylink/creditledger/internal/catalog/domain"
	"github.com/dairylink/creditledger/internal/clock"
	"github.com/dairylink/creditledger/internal/config"
	"github.com/dairylink/creditledger/internal/creditengine/domain"
	profiledomain "github.com/dairylink/creditledger/internal/creditprofile/domain"
	"github.com/dairylink/creditledger/internal/observability/metrics"
	receivablesdomain "github.com/dairylink/creditledger/internal/receivables/domain"
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
	ProfileRepo profiledomain.Repository
	Profiles    profiledomain.Service
	Catalog     catalogdomain.Service
	Receivables receivablesdomain.Source
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	cfg         config.Config
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	profileRepo profiledomain.Repository
	profiles    profiledomain.Service
	catalog     catalogdomain.Service
	receivables receivablesdomain.Source
	locks       *keyedMutex
	metrics     *metrics.LedgerMetrics
}

func New(p Params) domain.Processor {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("creditengine.service"),
		cfg:         p.Cfg,
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		profileRepo: p.ProfileRepo,
		profiles:    p.Profiles,
		catalog:     p.Catalog,
		receivables: p.Receivables,
		locks:       newKeyedMutex(),
		metrics: metrics.LedgerWithConfig(metrics.Config{
			ServiceName: p.Cfg.AppName,
			Environment: p.Cfg.Environment,
		}),
	}
}

// grantDefaultShare is the fraction of the tier cap granted when a farmer
// has no receivables yet.
var grantDefaultShare = decimal.RequireFromString("0.10")

// Grant implements domain.Processor. The balance moves from zero to the
// farmer's eligibility limit, or to a tier-based default when no
// receivables back the limit yet.
func (s *Service) Grant(ctx context.Context, farmerID snowflake.ID, grantedBy *snowflake.ID) (*domain.CreditTransaction, error) {
	pending, err := s.receivables.PendingReceivables(ctx, farmerID)
	if err != nil {
		s.metrics.ObserveOperation(string(domain.OpGrant), metrics.OutcomeError)
		return nil, fmt.Errorf("read pending receivables: %w", err)
	}

	unlock := s.lockFarmer(farmerID)
	defer unlock()

	var txn *domain.CreditTransaction
	err = s.db.Transaction(func(tx *gorm.DB) error {
		profile, err := s.profiles.GetOrCreate(ctx, tx, farmerID)
		if err != nil {
			return err
		}
		locked, err := s.profileRepo.FindByFarmerIDForUpdate(ctx, tx, farmerID)
		if err != nil {
			return err
		}
		if locked != nil {
			profile = locked
		}

		if profile.IsFrozen {
			return domain.ErrAccountFrozen
		}
		if profile.CurrentBalance.IsPositive() {
			return domain.ErrAlreadyGranted
		}

		amount := decimal.Min(
			pending.Mul(profile.LimitPercentage).Div(decimal.NewFromInt(100)),
			profile.MaxCreditAmount,
		).Round(2)
		if !amount.IsPositive() {
			amount = profile.MaxCreditAmount.Mul(grantDefaultShare).Round(2)
		}

		now := s.clock.Now()
		before := profile.CurrentBalance
		profile.CurrentBalance = amount
		profile.UpdatedAt = now
		if err := s.profileRepo.Update(ctx, tx, profile); err != nil {
			return err
		}

		txn = &domain.CreditTransaction{
			ID:             s.genID.Generate(),
			FarmerID:       farmerID,
			Type:           domain.TxnCreditGranted,
			Amount:         amount,
			BalanceBefore:  before,
			BalanceAfter:   profile.CurrentBalance,
			ApprovedBy:     grantedBy,
			ApprovalStatus: domain.ApprovalApproved,
			CreatedAt:      now,
		}
		return s.repo.CreateTransaction(ctx, tx, txn)
	})
	if err != nil {
		s.metrics.ObserveOperation(string(domain.OpGrant), outcomeFor(err))
		return nil, err
	}

	s.metrics.ObserveOperation(string(domain.OpGrant), metrics.OutcomeSuccess)
	s.log.Info("credit granted",
		zap.String("farmer_id", farmerID.String()),
		zap.String("amount", txn.Amount.String()),
	)
	return txn, nil
}

// errDenied aborts the mutation transaction when the locked re-check fails;
// the decision itself travels out of the closure.
var errDenied = errors.New("gate denied")

// Use implements domain.Processor. The gate runs twice: once against a
// fresh read, then again against the locked row immediately before the
// write.
func (s *Service) Use(ctx context.Context, req domain.UseRequest) (*domain.UseResult, error) {
	if !req.Quantity.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	quote, err := s.resolvePrice(ctx, req)
	if err != nil {
		return nil, err
	}
	total := req.Quantity.Mul(quote.UnitPrice).Round(2)

	profile, err := s.profileRepo.FindByFarmerID(ctx, s.db, req.FarmerID)
	if err != nil {
		s.metrics.ObserveOperation(string(domain.OpUse), metrics.OutcomeError)
		return nil, err
	}
	if decision := domain.Evaluate(profile, total, domain.OpUse); !decision.Allowed {
		return s.deny(req.FarmerID, decision), nil
	}

	unlock := s.lockFarmer(req.FarmerID)
	defer unlock()

	var (
		txn      *domain.CreditTransaction
		decision domain.Decision
	)
	err = s.db.Transaction(func(tx *gorm.DB) error {
		locked, err := s.profileRepo.FindByFarmerIDForUpdate(ctx, tx, req.FarmerID)
		if err != nil {
			return err
		}
		decision = domain.Evaluate(locked, total, domain.OpUse)
		if !decision.Allowed {
			return errDenied
		}

		now := s.clock.Now()
		before := locked.CurrentBalance
		locked.CurrentBalance = locked.CurrentBalance.Sub(total)
		locked.TotalUsed = locked.TotalUsed.Add(total)
		locked.PendingDeductions = locked.PendingDeductions.Add(total)
		locked.UpdatedAt = now
		if err := s.profileRepo.Update(ctx, tx, locked); err != nil {
			return err
		}

		approval := req.ApprovalStatus
		if approval == "" {
			approval = domain.ApprovalApproved
		}
		quantity := req.Quantity
		unitPrice := quote.UnitPrice
		productID := quote.ProductID
		txn = &domain.CreditTransaction{
			ID:                s.genID.Generate(),
			FarmerID:          req.FarmerID,
			Type:              domain.TxnCreditUsed,
			Amount:            total,
			BalanceBefore:     before,
			BalanceAfter:      locked.CurrentBalance,
			ProductID:         &productID,
			PackagingOptionID: quote.PackagingID,
			Quantity:          &quantity,
			UnitPrice:         &unitPrice,
			ApprovedBy:        req.UsedBy,
			ApprovalStatus:    approval,
			Notes:             req.Notes,
			CreatedAt:         now,
		}
		return s.repo.CreateTransaction(ctx, tx, txn)
	})
	if errors.Is(err, errDenied) {
		return s.deny(req.FarmerID, decision), nil
	}
	if err != nil {
		s.metrics.ObserveOperation(string(domain.OpUse), metrics.OutcomeError)
		return nil, err
	}

	if err := s.catalog.DecrementStock(ctx, quote.ProductID, req.Quantity); err != nil {
		s.log.Warn("stock decrement failed after purchase",
			zap.String("product_id", quote.ProductID.String()),
			zap.Error(err),
		)
	}

	s.metrics.ObserveOperation(string(domain.OpUse), metrics.OutcomeSuccess)
	if decision.Warning != "" {
		s.log.Warn("purchase approved with high utilization",
			zap.String("farmer_id", req.FarmerID.String()),
			zap.String("warning", decision.Warning),
		)
	}
	id := txn.ID
	return &domain.UseResult{
		Success:       true,
		TransactionID: &id,
		Decision:      decision,
	}, nil
}

// Repay implements domain.Processor. The credited amount is clipped so the
// balance never exceeds the cap.
func (s *Service) Repay(ctx context.Context, farmerID snowflake.ID, amount decimal.Decimal, repaidBy *snowflake.ID) (*domain.CreditTransaction, error) {
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	amount = amount.Round(2)

	unlock := s.lockFarmer(farmerID)
	defer unlock()

	var txn *domain.CreditTransaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		profile, err := s.lockedProfile(ctx, tx, farmerID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		before := profile.CurrentBalance
		profile.CurrentBalance = decimal.Min(before.Add(amount), profile.MaxCreditAmount)
		profile.PendingDeductions = decimal.Max(profile.PendingDeductions.Sub(amount), decimal.Zero)
		profile.UpdatedAt = now
		if err := s.profileRepo.Update(ctx, tx, profile); err != nil {
			return err
		}

		txn = &domain.CreditTransaction{
			ID:             s.genID.Generate(),
			FarmerID:       farmerID,
			Type:           domain.TxnCreditRepaid,
			Amount:         profile.CurrentBalance.Sub(before),
			BalanceBefore:  before,
			BalanceAfter:   profile.CurrentBalance,
			ApprovedBy:     repaidBy,
			ApprovalStatus: domain.ApprovalApproved,
			CreatedAt:      now,
		}
		return s.repo.CreateTransaction(ctx, tx, txn)
	})
	if err != nil {
		s.metrics.ObserveOperation(string(domain.OpRepay), outcomeFor(err))
		return nil, err
	}
	s.metrics.ObserveOperation(string(domain.OpRepay), metrics.OutcomeSuccess)
	return txn, nil
}

// Adjust implements domain.Processor. Limits move, the balance does not.
func (s *Service) Adjust(ctx context.Context, req domain.AdjustRequest) (*domain.CreditTransaction, error) {
	if !req.NewMaxAmount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	unlock := s.lockFarmer(req.FarmerID)
	defer unlock()

	var txn *domain.CreditTransaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		profile, err := s.lockedProfile(ctx, tx, req.FarmerID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		oldMax := profile.MaxCreditAmount
		profile.MaxCreditAmount = req.NewMaxAmount.Round(2)
		if req.NewPercentage != nil {
			profile.LimitPercentage = req.NewPercentage.Round(2)
		}
		profile.UpdatedAt = now
		if err := s.profileRepo.Update(ctx, tx, profile); err != nil {
			return err
		}

		note := fmt.Sprintf("credit limit adjusted from %s to %s",
			oldMax.StringFixed(2), profile.MaxCreditAmount.StringFixed(2))
		if req.Notes != nil && *req.Notes != "" {
			note = fmt.Sprintf("%s: %s", note, *req.Notes)
		}
		txn = &domain.CreditTransaction{
			ID:             s.genID.Generate(),
			FarmerID:       req.FarmerID,
			Type:           domain.TxnCreditAdjusted,
			Amount:         profile.MaxCreditAmount.Sub(oldMax),
			BalanceBefore:  profile.CurrentBalance,
			BalanceAfter:   profile.CurrentBalance,
			ApprovedBy:     req.AdjustedBy,
			ApprovalStatus: domain.ApprovalApproved,
			Notes:          &note,
			CreatedAt:      now,
		}
		return s.repo.CreateTransaction(ctx, tx, txn)
	})
	if err != nil {
		s.metrics.ObserveOperation(string(domain.OpAdjust), outcomeFor(err))
		return nil, err
	}
	s.metrics.ObserveOperation(string(domain.OpAdjust), metrics.OutcomeSuccess)
	return txn, nil
}

// Freeze implements domain.Processor.
func (s *Service) Freeze(ctx context.Context, farmerID snowflake.ID, reason string, frozenBy *snowflake.ID) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.ErrFreezeReasonRequired
	}
	note := fmt.Sprintf("account frozen: %s", reason)
	return s.setFrozen(ctx, farmerID, true, &reason, note, frozenBy)
}

// Unfreeze implements domain.Processor.
func (s *Service) Unfreeze(ctx context.Context, farmerID snowflake.ID, unfrozenBy *snowflake.ID) error {
	return s.setFrozen(ctx, farmerID, false, nil, "account unfrozen", unfrozenBy)
}

func (s *Service) setFrozen(ctx context.Context, farmerID snowflake.ID, frozen bool, reason *string, note string, by *snowflake.ID) error {
	unlock := s.lockFarmer(farmerID)
	defer unlock()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		profile, err := s.lockedProfile(ctx, tx, farmerID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		profile.IsFrozen = frozen
		profile.FreezeReason = reason
		profile.UpdatedAt = now
		if err := s.profileRepo.Update(ctx, tx, profile); err != nil {
			return err
		}

		txn := &domain.CreditTransaction{
			ID:             s.genID.Generate(),
			FarmerID:       farmerID,
			Type:           domain.TxnCreditAdjusted,
			Amount:         decimal.Zero,
			BalanceBefore:  profile.CurrentBalance,
			BalanceAfter:   profile.CurrentBalance,
			ApprovedBy:     by,
			ApprovalStatus: domain.ApprovalApproved,
			Notes:          &note,
			CreatedAt:      now,
		}
		return s.repo.CreateTransaction(ctx, tx, txn)
	})
	if err != nil {
		s.metrics.ObserveOperation(string(domain.OpAdjust), outcomeFor(err))
		return err
	}
	s.metrics.ObserveOperation(string(domain.OpAdjust), metrics.OutcomeSuccess)
	s.log.Info("freeze state changed",
		zap.String("farmer_id", farmerID.String()),
		zap.Bool("frozen", frozen),
	)
	return nil
}

// Settle implements domain.Processor. The balance resets to the cap and the
// audit amount is the pending deductions the period accumulated.
func (s *Service) Settle(ctx context.Context, farmerID snowflake.ID, settledBy *snowflake.ID) (*domain.CreditTransaction, error) {
	unlock := s.lockFarmer(farmerID)
	defer unlock()

	var txn *domain.CreditTransaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		profile, err := s.lockedProfile(ctx, tx, farmerID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		next := now.AddDate(0, 0, s.cfg.SettlementPeriodDays)
		settled := profile.PendingDeductions
		before := profile.CurrentBalance

		profile.CurrentBalance = profile.MaxCreditAmount
		profile.PendingDeductions = decimal.Zero
		profile.LastSettlementAt = &now
		profile.NextSettlementAt = &next
		profile.UpdatedAt = now
		if err := s.profileRepo.Update(ctx, tx, profile); err != nil {
			return err
		}

		txn = &domain.CreditTransaction{
			ID:             s.genID.Generate(),
			FarmerID:       farmerID,
			Type:           domain.TxnSettlement,
			Amount:         settled,
			BalanceBefore:  before,
			BalanceAfter:   profile.CurrentBalance,
			ApprovedBy:     settledBy,
			ApprovalStatus: domain.ApprovalApproved,
			CreatedAt:      now,
		}
		return s.repo.CreateTransaction(ctx, tx, txn)
	})
	if err != nil {
		s.metrics.ObserveOperation(string(domain.OpSettlement), outcomeFor(err))
		return nil, err
	}
	s.metrics.ObserveOperation(string(domain.OpSettlement), metrics.OutcomeSuccess)
	s.log.Info("settlement applied",
		zap.String("farmer_id", farmerID.String()),
		zap.String("settled_amount", txn.Amount.String()),
	)
	return txn, nil
}

// ListTransactions implements domain.Processor. Reads retry once.
func (s *Service) ListTransactions(ctx context.Context, farmerID snowflake.ID, limit int) ([]domain.CreditTransaction, error) {
	txns, err := s.repo.ListByFarmer(ctx, s.db, farmerID, limit)
	if err == nil {
		return txns, nil
	}
	s.log.Warn("transaction list failed, retrying once",
		zap.String("farmer_id", farmerID.String()),
		zap.Error(err),
	)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(50 * time.Millisecond):
	}
	return s.repo.ListByFarmer(ctx, s.db, farmerID, limit)
}

func (s *Service) resolvePrice(ctx context.Context, req domain.UseRequest) (*catalogdomain.PriceQuote, error) {
	if req.UnitPrice != nil {
		return &catalogdomain.PriceQuote{
			ProductID:   req.ProductID,
			PackagingID: req.PackagingID,
			UnitPrice:   *req.UnitPrice,
		}, nil
	}
	return s.catalog.ResolveUnitPrice(ctx, req.ProductID, req.PackagingID)
}

func (s *Service) lockFarmer(farmerID snowflake.ID) func() {
	start := time.Now()
	unlock := s.locks.Lock(farmerID)
	s.metrics.ObserveLockWait(time.Since(start))
	return unlock
}

func (s *Service) lockedProfile(ctx context.Context, tx *gorm.DB, farmerID snowflake.ID) (*profiledomain.CreditProfile, error) {
	profile, err := s.profileRepo.FindByFarmerIDForUpdate(ctx, tx, farmerID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, profiledomain.ErrProfileNotFound
	}
	return profile, nil
}

func (s *Service) deny(farmerID snowflake.ID, decision domain.Decision) *domain.UseResult {
	s.metrics.ObserveOperation(string(domain.OpUse), metrics.OutcomeDenied)
	s.metrics.ObserveGateDenial(string(domain.OpUse), denialReason(decision.Reason))
	s.log.Info("purchase denied",
		zap.String("farmer_id", farmerID.String()),
		zap.String("reason", decision.Reason),
		zap.String("utilization", decision.UtilizationPercentage.String()),
	)
	return &domain.UseResult{
		Success:  false,
		Reason:   decision.Reason,
		Decision: decision,
	}
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrAlreadyGranted),
		errors.Is(err, domain.ErrAccountFrozen),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrFreezeReasonRequired),
		errors.Is(err, profiledomain.ErrProfileNotFound):
		return metrics.OutcomeDenied
	default:
		return metrics.OutcomeError
	}
}

func denialReason(reason string) string {
	switch {
	case strings.Contains(reason, "no credit profile"):
		return metrics.DenialReasonNoProfile
	case strings.Contains(reason, "frozen"):
		return metrics.DenialReasonFrozen
	case strings.Contains(reason, "exceeds available credit"):
		return metrics.DenialReasonInsufficient
	case strings.Contains(reason, "utilization"):
		return metrics.DenialReasonUtilization
	case strings.Contains(reason, "obligations"):
		return metrics.DenialReasonObligations
	default:
		return metrics.DenialReasonUnknown
	}
}
