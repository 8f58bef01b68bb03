package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/dairylink/creditledger/internal/catalog/domain"
	"github.com/dairylink/creditledger/internal/catalog/repository"
	"github.com/dairylink/creditledger/internal/clock"
	"github.com/dairylink/creditledger/internal/config"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (domain.Service, *gorm.DB, *clock.FakeClock) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Product{}, &domain.PackagingOption{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		Cfg:   config.Config{CatalogCacheTTLSeconds: 30},
		GenID: node,
		Clock: clk,
		Repo:  repository.Provide(),
	})
	return svc, db, clk
}

func createProduct(t *testing.T, svc domain.Service, name string, price string, eligible bool) *domain.Product {
	t.Helper()
	product, err := svc.CreateProduct(context.Background(), domain.CreateProductRequest{
		Name:             name,
		Category:         "feed",
		Unit:             "bag",
		SellingPrice:     decimal.RequireFromString(price),
		IsCreditEligible: eligible,
	})
	require.NoError(t, err)
	return product
}

func createPackaging(t *testing.T, svc domain.Service, productID snowflake.ID, name, price string, eligible bool) *domain.PackagingOption {
	t.Helper()
	option, err := svc.CreatePackaging(context.Background(), domain.CreatePackagingRequest{
		ProductID:        productID.String(),
		Name:             name,
		UnitCount:        decimal.NewFromInt(1),
		Price:            decimal.RequireFromString(price),
		IsCreditEligible: eligible,
	})
	require.NoError(t, err)
	return option
}

func TestResolveUnitPrice_NamedPackaging(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	product := createProduct(t, svc, "Dairy Meal", "1500.00", true)
	createPackaging(t, svc, product.ID, "10kg bag", "900.00", true)
	named := createPackaging(t, svc, product.ID, "20kg bag", "1700.00", true)

	quote, err := svc.ResolveUnitPrice(ctx, product.ID, &named.ID)
	require.NoError(t, err)
	require.NotNil(t, quote.PackagingID)
	assert.Equal(t, named.ID, *quote.PackagingID)
	assert.True(t, quote.UnitPrice.Equal(decimal.RequireFromString("1700.00")))
}

func TestResolveUnitPrice_CheapestEligiblePackaging(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	product := createProduct(t, svc, "Dairy Meal", "1500.00", true)
	createPackaging(t, svc, product.ID, "5kg bag", "450.00", false)
	cheapest := createPackaging(t, svc, product.ID, "10kg bag", "900.00", true)
	createPackaging(t, svc, product.ID, "20kg bag", "1700.00", true)

	quote, err := svc.ResolveUnitPrice(ctx, product.ID, nil)
	require.NoError(t, err)
	require.NotNil(t, quote.PackagingID)
	assert.Equal(t, cheapest.ID, *quote.PackagingID)
	assert.True(t, quote.UnitPrice.Equal(decimal.RequireFromString("900.00")))
}

func TestResolveUnitPrice_FallsBackToBasePrice(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	product := createProduct(t, svc, "Mineral Lick", "320.50", true)

	quote, err := svc.ResolveUnitPrice(ctx, product.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, quote.PackagingID)
	assert.True(t, quote.UnitPrice.Equal(decimal.RequireFromString("320.50")))
}

func TestResolveUnitPrice_PackagingFromOtherProduct(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	feed := createProduct(t, svc, "Dairy Meal", "1500.00", true)
	lick := createProduct(t, svc, "Mineral Lick", "320.50", true)
	foreign := createPackaging(t, svc, lick.ID, "2kg block", "300.00", true)

	_, err := svc.ResolveUnitPrice(ctx, feed.ID, &foreign.ID)
	assert.ErrorIs(t, err, domain.ErrPackagingNotFound)
}

func TestResolveUnitPrice_UnknownProduct(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.ResolveUnitPrice(context.Background(), snowflake.ID(42), nil)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestListCreditEligible_FiltersAndCaches(t *testing.T) {
	svc, _, clk := newTestService(t)
	ctx := context.Background()

	eligible := createProduct(t, svc, "Dairy Meal", "1500.00", true)
	createProduct(t, svc, "Cash Only Tonic", "120.00", false)
	createPackaging(t, svc, eligible.ID, "10kg bag", "900.00", true)
	createPackaging(t, svc, eligible.ID, "Staff bundle", "600.00", false)

	items, err := svc.ListCreditEligible(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, eligible.ID, items[0].Product.ID)
	require.Len(t, items[0].PackagingOptions, 1)
	assert.Equal(t, "10kg bag", items[0].PackagingOptions[0].Name)

	// A create invalidates the cache right away.
	createProduct(t, svc, "Calf Starter", "800.00", true)
	items, err = svc.ListCreditEligible(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	// Within the TTL the cached listing is served even if rows change
	// underneath it.
	impl := svc.(*Service)
	impl.repo = failingRepo{}
	items, err = svc.ListCreditEligible(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	// Past the TTL the reload hits the repository again.
	clk.Advance(31 * time.Second)
	_, err = svc.ListCreditEligible(ctx)
	assert.Error(t, err)
}

func TestDeletePackaging_RemovedFromResolution(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	product := createProduct(t, svc, "Dairy Meal", "1500.00", true)
	option := createPackaging(t, svc, product.ID, "10kg bag", "900.00", true)

	require.NoError(t, svc.DeletePackaging(ctx, option.ID))

	_, err := svc.ResolveUnitPrice(ctx, product.ID, &option.ID)
	assert.ErrorIs(t, err, domain.ErrPackagingNotFound)

	quote, err := svc.ResolveUnitPrice(ctx, product.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, quote.PackagingID)
	assert.True(t, quote.UnitPrice.Equal(decimal.RequireFromString("1500.00")))
}

func TestDeletePackaging_Unknown(t *testing.T) {
	svc, _, _ := newTestService(t)

	err := svc.DeletePackaging(context.Background(), snowflake.ID(99))
	assert.ErrorIs(t, err, domain.ErrPackagingNotFound)
}

func TestCreateProduct_Validation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, domain.CreateProductRequest{Name: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.CreateProduct(ctx, domain.CreateProductRequest{
		Name:         "Dairy Meal",
		SellingPrice: decimal.RequireFromString("-1"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)
}

func TestCreatePackaging_Validation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	product := createProduct(t, svc, "Dairy Meal", "1500.00", true)

	_, err := svc.CreatePackaging(ctx, domain.CreatePackagingRequest{
		ProductID: product.ID.String(),
		Name:      "",
		Price:     decimal.NewFromInt(10),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.CreatePackaging(ctx, domain.CreatePackagingRequest{
		ProductID: product.ID.String(),
		Name:      "10kg bag",
		Price:     decimal.Zero,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)

	_, err = svc.CreatePackaging(ctx, domain.CreatePackagingRequest{
		ProductID: "123456789",
		Name:      "10kg bag",
		Price:     decimal.NewFromInt(10),
	})
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestUpdateProduct_PartialFields(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	product := createProduct(t, svc, "Dairy Meal", "1500.00", true)

	newPrice := decimal.RequireFromString("1650.00")
	eligible := false
	updated, err := svc.UpdateProduct(ctx, product.ID, domain.UpdateProductRequest{
		SellingPrice:     &newPrice,
		IsCreditEligible: &eligible,
	})
	require.NoError(t, err)
	assert.Equal(t, "Dairy Meal", updated.Name)
	assert.True(t, updated.SellingPrice.Equal(newPrice))
	assert.False(t, updated.IsCreditEligible)

	var stored domain.Product
	require.NoError(t, db.First(&stored, "id = ?", product.ID).Error)
	assert.True(t, stored.SellingPrice.Equal(newPrice))
	assert.False(t, stored.IsCreditEligible)

	// taking the product off credit must drop it from the cached shop
	items, err := svc.ListCreditEligible(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestUpdateProduct_Validation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	product := createProduct(t, svc, "Dairy Meal", "1500.00", true)

	blank := "  "
	_, err := svc.UpdateProduct(ctx, product.ID, domain.UpdateProductRequest{Name: &blank})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	negative := decimal.RequireFromString("-1")
	_, err = svc.UpdateProduct(ctx, product.ID, domain.UpdateProductRequest{SellingPrice: &negative})
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)

	_, err = svc.UpdateProduct(ctx, snowflake.ID(987654), domain.UpdateProductRequest{})
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestDecrementStock(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, domain.CreateProductRequest{
		Name:         "Dairy Meal",
		Unit:         "bag",
		CurrentStock: decimal.NewFromInt(20),
		SellingPrice: decimal.RequireFromString("1500.00"),
	})
	require.NoError(t, err)

	require.NoError(t, svc.DecrementStock(ctx, product.ID, decimal.NewFromInt(3)))

	var stored domain.Product
	require.NoError(t, db.First(&stored, "id = ?", product.ID).Error)
	assert.True(t, stored.CurrentStock.Equal(decimal.NewFromInt(17)))
}

type failingRepo struct{}

func (failingRepo) CreateProduct(context.Context, *gorm.DB, *domain.Product) error {
	return assert.AnError
}

func (failingRepo) UpdateProduct(context.Context, *gorm.DB, *domain.Product) error {
	return assert.AnError
}

func (failingRepo) FindProductByID(context.Context, *gorm.DB, snowflake.ID) (*domain.Product, error) {
	return nil, assert.AnError
}

func (failingRepo) ListCreditEligibleProducts(context.Context, *gorm.DB) ([]domain.Product, error) {
	return nil, assert.AnError
}

func (failingRepo) CreatePackaging(context.Context, *gorm.DB, *domain.PackagingOption) error {
	return assert.AnError
}

func (failingRepo) FindPackagingByID(context.Context, *gorm.DB, snowflake.ID, bool) (*domain.PackagingOption, error) {
	return nil, assert.AnError
}

func (failingRepo) ListPackagingByProduct(context.Context, *gorm.DB, snowflake.ID) ([]domain.PackagingOption, error) {
	return nil, assert.AnError
}

func (failingRepo) SoftDeletePackaging(context.Context, *gorm.DB, snowflake.ID) error {
	return assert.AnError
}

func (failingRepo) DecrementStock(context.Context, *gorm.DB, snowflake.ID, decimal.Decimal) error {
	return assert.AnError
}
