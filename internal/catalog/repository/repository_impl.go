package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/dairylink/creditledger/internal/catalog/domain"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) CreateProduct(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Create(product).Error
}

func (r *repo) UpdateProduct(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Exec(
		`UPDATE products SET name = ?, sku = ?, description = ?, category = ?, unit = ?,
		 current_stock = ?, reorder_level = ?, supplier = ?, cost_price = ?, selling_price = ?,
		 is_credit_eligible = ?, updated_at = ? WHERE id = ?`,
		product.Name,
		product.SKU,
		product.Description,
		product.Category,
		product.Unit,
		product.CurrentStock,
		product.ReorderLevel,
		product.Supplier,
		product.CostPrice,
		product.SellingPrice,
		product.IsCreditEligible,
		product.UpdatedAt,
		product.ID,
	).Error
}

func (r *repo) FindProductByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Product, error) {
	var product domain.Product
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, sku, description, category, unit, current_stock, reorder_level,
		 supplier, cost_price, selling_price, is_credit_eligible, created_at, updated_at
		 FROM products WHERE id = ?`,
		id,
	).Scan(&product).Error
	if err != nil {
		return nil, err
	}
	if product.ID == 0 {
		return nil, nil
	}
	return &product, nil
}

func (r *repo) ListCreditEligibleProducts(ctx context.Context, db *gorm.DB) ([]domain.Product, error) {
	var products []domain.Product
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, sku, description, category, unit, current_stock, reorder_level,
		 supplier, cost_price, selling_price, is_credit_eligible, created_at, updated_at
		 FROM products WHERE is_credit_eligible = ? ORDER BY name ASC`,
		true,
	).Scan(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repo) CreatePackaging(ctx context.Context, db *gorm.DB, option *domain.PackagingOption) error {
	return db.WithContext(ctx).Create(option).Error
}

func (r *repo) FindPackagingByID(ctx context.Context, db *gorm.DB, id snowflake.ID, includeDeleted bool) (*domain.PackagingOption, error) {
	var option domain.PackagingOption
	stmt := db.WithContext(ctx)
	if includeDeleted {
		stmt = stmt.Unscoped()
	}
	err := stmt.Where("id = ?", id).First(&option).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &option, nil
}

func (r *repo) ListPackagingByProduct(ctx context.Context, db *gorm.DB, productID snowflake.ID) ([]domain.PackagingOption, error) {
	var options []domain.PackagingOption
	err := db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("price ASC").
		Find(&options).Error
	if err != nil {
		return nil, err
	}
	return options, nil
}

func (r *repo) SoftDeletePackaging(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	result := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.PackagingOption{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrPackagingNotFound
	}
	return nil
}

func (r *repo) DecrementStock(ctx context.Context, db *gorm.DB, productID snowflake.ID, units decimal.Decimal) error {
	return db.WithContext(ctx).Exec(
		`UPDATE products SET current_stock = current_stock - ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		units,
		productID,
	).Error
}
