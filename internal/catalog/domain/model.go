// Package domain contains persistence models for the agrovet product catalog.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a stocked agrovet item farmers can purchase.
type Product struct {
	ID               snowflake.ID    `gorm:"primaryKey"`
	Name             string          `gorm:"type:text;not null"`
	SKU              *string         `gorm:"type:text"`
	Description      *string         `gorm:"type:text"`
	Category         string          `gorm:"type:text;not null"`
	Unit             string          `gorm:"type:text;not null"`
	CurrentStock     decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	ReorderLevel     decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	Supplier         *string         `gorm:"type:text"`
	CostPrice        decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	SellingPrice     decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	IsCreditEligible bool            `gorm:"not null;default:false"`
	CreatedAt        time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Product) TableName() string { return "products" }

// PackagingOption is an independently priced package size of a product.
// Options are soft-deleted so historical snapshots keep a resolvable row.
type PackagingOption struct {
	ID               snowflake.ID    `gorm:"primaryKey"`
	ProductID        snowflake.ID    `gorm:"not null;index"`
	Name             string          `gorm:"type:text;not null"`
	UnitCount        decimal.Decimal `gorm:"type:decimal(14,2);not null;default:1"`
	Price            decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	IsCreditEligible bool            `gorm:"not null;default:false"`
	CreatedAt        time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
	DeletedAt        gorm.DeletedAt  `gorm:"index"`
}

// TableName sets the database table name.
func (PackagingOption) TableName() string { return "packaging_options" }
