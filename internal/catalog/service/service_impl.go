package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/dairylink/creditledger/internal/cache"
	"github.com/dairylink/creditledger/internal/catalog/domain"
	"github.com/dairylink/creditledger/internal/clock"
	"github.com/dairylink/creditledger/internal/config"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

const creditShopCacheKey = "credit_eligible_catalog"

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Cfg   config.Config
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository

	shopTTL   time.Duration
	shopCache cache.Cache[string, []domain.CreditEligibleProduct]
	flight    singleflight.Group
}

func New(p Params) domain.Service {
	ttl := time.Duration(p.Cfg.CatalogCacheTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("catalog.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		shopTTL:   ttl,
		shopCache: cache.NewTTLCacheWithNow[string, []domain.CreditEligibleProduct](p.Clock.Now),
	}
}

func (s *Service) Get(ctx context.Context, productID snowflake.ID) (*domain.Product, error) {
	if productID == 0 {
		return nil, domain.ErrProductNotFound
	}
	product, err := s.repo.FindProductByID(ctx, s.db, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrProductNotFound
	}
	return product, nil
}

func (s *Service) PackagingOptions(ctx context.Context, productID snowflake.ID) ([]domain.PackagingOption, error) {
	if productID == 0 {
		return nil, domain.ErrProductNotFound
	}
	return s.repo.ListPackagingByProduct(ctx, s.db, productID)
}

// ResolveUnitPrice implements domain.Service.
func (s *Service) ResolveUnitPrice(ctx context.Context, productID snowflake.ID, packagingID *snowflake.ID) (*domain.PriceQuote, error) {
	product, err := s.Get(ctx, productID)
	if err != nil {
		return nil, err
	}

	quote := &domain.PriceQuote{
		ProductID:   product.ID,
		ProductName: product.Name,
		Unit:        product.Unit,
	}

	if packagingID != nil && *packagingID != 0 {
		option, err := s.repo.FindPackagingByID(ctx, s.db, *packagingID, false)
		if err != nil {
			return nil, err
		}
		if option == nil || option.ProductID != product.ID {
			return nil, domain.ErrPackagingNotFound
		}
		id := option.ID
		quote.PackagingID = &id
		quote.UnitPrice = option.Price
		return quote, nil
	}

	options, err := s.repo.ListPackagingByProduct(ctx, s.db, product.ID)
	if err != nil {
		return nil, err
	}
	for _, option := range options {
		if !option.IsCreditEligible {
			continue
		}
		// options come back cheapest first
		id := option.ID
		quote.PackagingID = &id
		quote.UnitPrice = option.Price
		return quote, nil
	}

	quote.UnitPrice = product.SellingPrice
	return quote, nil
}

// ListCreditEligible implements domain.Service. Concurrent callers share one
// database round trip; results are cached for the configured TTL.
func (s *Service) ListCreditEligible(ctx context.Context) ([]domain.CreditEligibleProduct, error) {
	if cached, ok := s.shopCache.Get(creditShopCacheKey); ok {
		return cached, nil
	}

	result, err, _ := s.flight.Do(creditShopCacheKey, func() (any, error) {
		if cached, ok := s.shopCache.Get(creditShopCacheKey); ok {
			return cached, nil
		}
		items, err := s.loadCreditEligible(ctx)
		if err != nil {
			return nil, err
		}
		s.shopCache.Set(creditShopCacheKey, items, s.shopTTL)
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.CreditEligibleProduct), nil
}

func (s *Service) loadCreditEligible(ctx context.Context) ([]domain.CreditEligibleProduct, error) {
	products, err := s.repo.ListCreditEligibleProducts(ctx, s.db)
	if err != nil {
		return nil, err
	}

	items := make([]domain.CreditEligibleProduct, 0, len(products))
	for _, product := range products {
		options, err := s.repo.ListPackagingByProduct(ctx, s.db, product.ID)
		if err != nil {
			s.log.Warn("failed to load packaging options",
				zap.String("product_id", product.ID.String()),
				zap.Error(err),
			)
			options = nil
		}
		eligible := make([]domain.PackagingOption, 0, len(options))
		for _, option := range options {
			if option.IsCreditEligible {
				eligible = append(eligible, option)
			}
		}
		items = append(items, domain.CreditEligibleProduct{
			Product:          product,
			PackagingOptions: eligible,
		})
	}
	return items, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.CreateProductRequest) (*domain.Product, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if req.SellingPrice.IsNegative() {
		return nil, domain.ErrInvalidPrice
	}

	now := s.clock.Now()
	product := &domain.Product{
		ID:               s.genID.Generate(),
		Name:             name,
		SKU:              req.SKU,
		Description:      req.Description,
		Category:         strings.TrimSpace(req.Category),
		Unit:             strings.TrimSpace(req.Unit),
		CurrentStock:     req.CurrentStock,
		ReorderLevel:     req.ReorderLevel,
		Supplier:         req.Supplier,
		CostPrice:        req.CostPrice,
		SellingPrice:     req.SellingPrice,
		IsCreditEligible: req.IsCreditEligible,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.CreateProduct(ctx, s.db, product); err != nil {
		return nil, err
	}
	s.shopCache.Delete(creditShopCacheKey)
	return product, nil
}

func (s *Service) UpdateProduct(ctx context.Context, productID snowflake.ID, req domain.UpdateProductRequest) (*domain.Product, error) {
	product, err := s.Get(ctx, productID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		product.Name = name
	}
	if req.SellingPrice != nil {
		if req.SellingPrice.IsNegative() {
			return nil, domain.ErrInvalidPrice
		}
		product.SellingPrice = *req.SellingPrice
	}
	if req.SKU != nil {
		product.SKU = req.SKU
	}
	if req.Description != nil {
		product.Description = req.Description
	}
	if req.Category != nil {
		product.Category = strings.TrimSpace(*req.Category)
	}
	if req.Unit != nil {
		product.Unit = strings.TrimSpace(*req.Unit)
	}
	if req.CurrentStock != nil {
		product.CurrentStock = *req.CurrentStock
	}
	if req.ReorderLevel != nil {
		product.ReorderLevel = *req.ReorderLevel
	}
	if req.Supplier != nil {
		product.Supplier = req.Supplier
	}
	if req.CostPrice != nil {
		product.CostPrice = *req.CostPrice
	}
	if req.IsCreditEligible != nil {
		product.IsCreditEligible = *req.IsCreditEligible
	}

	product.UpdatedAt = s.clock.Now()
	if err := s.repo.UpdateProduct(ctx, s.db, product); err != nil {
		return nil, err
	}
	s.shopCache.Delete(creditShopCacheKey)
	return product, nil
}

func (s *Service) CreatePackaging(ctx context.Context, req domain.CreatePackagingRequest) (*domain.PackagingOption, error) {
	productID, err := snowflake.ParseString(strings.TrimSpace(req.ProductID))
	if err != nil || productID == 0 {
		return nil, domain.ErrProductNotFound
	}
	product, err := s.Get(ctx, productID)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if !req.Price.IsPositive() {
		return nil, domain.ErrInvalidPrice
	}

	unitCount := req.UnitCount
	if !unitCount.IsPositive() {
		unitCount = decimal.NewFromInt(1)
	}

	now := s.clock.Now()
	option := &domain.PackagingOption{
		ID:               s.genID.Generate(),
		ProductID:        product.ID,
		Name:             name,
		UnitCount:        unitCount,
		Price:            req.Price,
		IsCreditEligible: req.IsCreditEligible,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.CreatePackaging(ctx, s.db, option); err != nil {
		return nil, err
	}
	s.shopCache.Delete(creditShopCacheKey)
	return option, nil
}

func (s *Service) DeletePackaging(ctx context.Context, packagingID snowflake.ID) error {
	if packagingID == 0 {
		return domain.ErrPackagingNotFound
	}
	if err := s.repo.SoftDeletePackaging(ctx, s.db, packagingID); err != nil {
		return err
	}
	s.shopCache.Delete(creditShopCacheKey)
	return nil
}

func (s *Service) DecrementStock(ctx context.Context, productID snowflake.ID, units decimal.Decimal) error {
	if productID == 0 || !units.IsPositive() {
		return nil
	}
	return s.repo.DecrementStock(ctx, s.db, productID, units)
}
