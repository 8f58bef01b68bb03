package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Repository interface {
	CreateProduct(ctx context.Context, db *gorm.DB, product *Product) error
	UpdateProduct(ctx context.Context, db *gorm.DB, product *Product) error
	FindProductByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Product, error)
	ListCreditEligibleProducts(ctx context.Context, db *gorm.DB) ([]Product, error)

	CreatePackaging(ctx context.Context, db *gorm.DB, option *PackagingOption) error
	// FindPackagingByID excludes soft-deleted options when includeDeleted is false.
	FindPackagingByID(ctx context.Context, db *gorm.DB, id snowflake.ID, includeDeleted bool) (*PackagingOption, error)
	ListPackagingByProduct(ctx context.Context, db *gorm.DB, productID snowflake.ID) ([]PackagingOption, error)
	SoftDeletePackaging(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	DecrementStock(ctx context.Context, db *gorm.DB, productID snowflake.ID, units decimal.Decimal) error
}
