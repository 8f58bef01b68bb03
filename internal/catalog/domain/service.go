package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// PriceQuote is the resolved unit price for a purchase, with the packaging
// option it came from when one was used.
type PriceQuote struct {
	ProductID   snowflake.ID
	ProductName string
	Unit        string
	PackagingID *snowflake.ID
	UnitPrice   decimal.Decimal
}

// CreditEligibleProduct is a catalog row of the farmer-facing credit shop.
type CreditEligibleProduct struct {
	Product          Product           `json:"product"`
	PackagingOptions []PackagingOption `json:"packaging_options"`
}

type CreateProductRequest struct {
	Name             string          `json:"name"`
	SKU              *string         `json:"sku"`
	Description      *string         `json:"description"`
	Category         string          `json:"category"`
	Unit             string          `json:"unit"`
	CurrentStock     decimal.Decimal `json:"current_stock"`
	ReorderLevel     decimal.Decimal `json:"reorder_level"`
	Supplier         *string         `json:"supplier"`
	CostPrice        decimal.Decimal `json:"cost_price"`
	SellingPrice     decimal.Decimal `json:"selling_price"`
	IsCreditEligible bool            `json:"is_credit_eligible"`
}

// UpdateProductRequest carries partial updates; nil fields are untouched.
type UpdateProductRequest struct {
	Name             *string          `json:"name"`
	SKU              *string          `json:"sku"`
	Description      *string          `json:"description"`
	Category         *string          `json:"category"`
	Unit             *string          `json:"unit"`
	CurrentStock     *decimal.Decimal `json:"current_stock"`
	ReorderLevel     *decimal.Decimal `json:"reorder_level"`
	Supplier         *string          `json:"supplier"`
	CostPrice        *decimal.Decimal `json:"cost_price"`
	SellingPrice     *decimal.Decimal `json:"selling_price"`
	IsCreditEligible *bool            `json:"is_credit_eligible"`
}

type CreatePackagingRequest struct {
	ProductID        string          `json:"product_id"`
	Name             string          `json:"name"`
	UnitCount        decimal.Decimal `json:"unit_count"`
	Price            decimal.Decimal `json:"price"`
	IsCreditEligible bool            `json:"is_credit_eligible"`
}

// Service is the read surface the credit core depends on, plus the
// back-office writes needed to maintain the catalog.
type Service interface {
	Get(ctx context.Context, productID snowflake.ID) (*Product, error)
	PackagingOptions(ctx context.Context, productID snowflake.ID) ([]PackagingOption, error)

	// ResolveUnitPrice picks the price for a purchase: the named packaging
	// option when given, else the cheapest credit-eligible option, else the
	// product's base selling price.
	ResolveUnitPrice(ctx context.Context, productID snowflake.ID, packagingID *snowflake.ID) (*PriceQuote, error)

	// ListCreditEligible serves the farmer-facing credit shop through a
	// TTL read-through cache with request coalescing.
	ListCreditEligible(ctx context.Context) ([]CreditEligibleProduct, error)

	CreateProduct(ctx context.Context, req CreateProductRequest) (*Product, error)
	UpdateProduct(ctx context.Context, productID snowflake.ID, req UpdateProductRequest) (*Product, error)
	CreatePackaging(ctx context.Context, req CreatePackagingRequest) (*PackagingOption, error)
	DeletePackaging(ctx context.Context, packagingID snowflake.ID) error

	// DecrementStock is a best-effort side effect of purchases; callers log
	// failures and never surface them as the operation's result.
	DecrementStock(ctx context.Context, productID snowflake.ID, units decimal.Decimal) error
}

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrPackagingNotFound = errors.New("packaging option not found")
	ErrInvalidName       = errors.New("invalid product name")
	ErrInvalidPrice      = errors.New("invalid price")
)
