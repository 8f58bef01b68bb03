package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/dairylink/creditledger/internal/catalog/domain"
	"github.com/dairylink/creditledger/internal/clock"
	enginedomain "github.com/dairylink/creditledger/internal/creditengine/domain"
	profiledomain "github.com/dairylink/creditledger/internal/creditprofile/domain"
	"github.com/dairylink/creditledger/internal/creditrequest/domain"
	identitydomain "github.com/dairylink/creditledger/internal/identity/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	ProfileRepo profiledomain.Repository
	Processor   enginedomain.Processor
	Catalog     catalogdomain.Service
	Identity    identitydomain.Resolver
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	profileRepo profiledomain.Repository
	processor   enginedomain.Processor
	catalog     catalogdomain.Service
	identity    identitydomain.Resolver
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("creditrequest.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		profileRepo: p.ProfileRepo,
		processor:   p.Processor,
		catalog:     p.Catalog,
		identity:    p.Identity,
	}
}

// Create implements domain.Service. The price resolved here is the one the
// approval will debit, whatever the catalog does in between.
func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.CreditRequest, error) {
	if !req.Quantity.IsPositive() {
		return nil, domain.ErrInvalidQuantity
	}

	product, err := s.catalog.Get(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.IsCreditEligible {
		return nil, domain.ErrProductNotCreditEligible
	}

	quote, err := s.catalog.ResolveUnitPrice(ctx, req.ProductID, req.PackagingID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	request := &domain.CreditRequest{
		ID:                s.genID.Generate(),
		FarmerID:          req.FarmerID,
		ProductID:         product.ID,
		ProductName:       product.Name,
		PackagingOptionID: quote.PackagingID,
		Quantity:          req.Quantity,
		UnitPrice:         quote.UnitPrice,
		TotalAmount:       req.Quantity.Mul(quote.UnitPrice).Round(2),
		Status:            domain.StatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.Create(ctx, s.db, request); err != nil {
		return nil, err
	}

	s.log.Info("credit request created",
		zap.String("request_id", request.ID.String()),
		zap.String("farmer_id", request.FarmerID.String()),
		zap.String("total_amount", request.TotalAmount.String()),
	)
	return request, nil
}

// Approve implements domain.Service. A denial keeps the request pending so
// it can be retried after a repayment or settlement.
func (s *Service) Approve(ctx context.Context, requestID snowflake.ID, approvedBy string) (*domain.DecisionResult, error) {
	request, err := s.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !domain.IsTransitionAllowed(request.Status, domain.StatusApproved) {
		return nil, domain.ErrInvalidStatusTransition
	}

	// The snapshot survives catalog edits; a vanished packaging option is
	// worth a warning but never blocks the approval.
	if request.PackagingOptionID != nil {
		if _, err := s.catalog.ResolveUnitPrice(ctx, request.ProductID, request.PackagingOptionID); err != nil {
			s.log.Warn("packaging option no longer resolves, approving on snapshot",
				zap.String("request_id", request.ID.String()),
				zap.String("packaging_option_id", request.PackagingOptionID.String()),
				zap.Error(err),
			)
		}
	}

	profile, err := s.profileRepo.FindByFarmerID(ctx, s.db, request.FarmerID)
	if err != nil {
		return nil, err
	}
	if decision := enginedomain.Evaluate(profile, request.TotalAmount, enginedomain.OpUse); !decision.Allowed {
		return &domain.DecisionResult{Success: false, Reason: decision.Reason, Request: request}, nil
	}

	approverID, err := s.resolveApprover(ctx, approvedBy)
	if err != nil {
		return nil, err
	}

	unitPrice := request.UnitPrice
	result, err := s.processor.Use(ctx, enginedomain.UseRequest{
		FarmerID:    request.FarmerID,
		ProductID:   request.ProductID,
		PackagingID: request.PackagingOptionID,
		Quantity:    request.Quantity,
		UnitPrice:   &unitPrice,
		UsedBy:      approverID,
	})
	if err != nil {
		return nil, err
	}
	if !result.Success {
		return &domain.DecisionResult{Success: false, Reason: result.Reason, Request: request}, nil
	}

	now := s.clock.Now()
	request.Status = domain.StatusApproved
	request.ApprovedBy = approverID
	request.UpdatedAt = now
	request.DecidedAt = &now
	if err := s.repo.Update(ctx, s.db, request); err != nil {
		// the debit is already committed; surface the stuck request
		s.log.Error("request approved but status update failed",
			zap.String("request_id", request.ID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	s.log.Info("credit request approved",
		zap.String("request_id", request.ID.String()),
		zap.String("farmer_id", request.FarmerID.String()),
	)
	return &domain.DecisionResult{Success: true, Request: request}, nil
}

// Reject implements domain.Service.
func (s *Service) Reject(ctx context.Context, requestID snowflake.ID, reason, rejectedBy string) (*domain.CreditRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domain.ErrRejectionReasonRequired
	}

	request, err := s.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !domain.IsTransitionAllowed(request.Status, domain.StatusRejected) {
		return nil, domain.ErrInvalidStatusTransition
	}

	approverID, err := s.resolveApprover(ctx, rejectedBy)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	request.Status = domain.StatusRejected
	request.ApprovedBy = approverID
	request.RejectionReason = &reason
	request.UpdatedAt = now
	request.DecidedAt = &now
	if err := s.repo.Update(ctx, s.db, request); err != nil {
		return nil, err
	}
	return request, nil
}

func (s *Service) Get(ctx context.Context, requestID snowflake.ID) (*domain.CreditRequest, error) {
	request, err := s.repo.FindByID(ctx, s.db, requestID)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, domain.ErrRequestNotFound
	}
	return request, nil
}

func (s *Service) List(ctx context.Context, filter domain.ListFilter) ([]domain.CreditRequest, error) {
	return s.repo.List(ctx, s.db, filter)
}

// resolveApprover maps a portal user onto the staff identity space. Roles
// without a staff record come back as NULL rather than an error.
func (s *Service) resolveApprover(ctx context.Context, userID string) (*snowflake.ID, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, nil
	}
	return s.identity.ResolveStaffID(ctx, userID)
}
