package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	catalogdomain "github.com/dairylink/creditledger/internal/catalog/domain"
	identitydomain "github.com/dairylink/creditledger/internal/identity/domain"
	receivablesdomain "github.com/dairylink/creditledger/internal/receivables/domain"
)

// EnsureDemoData seeds a handful of farmers, a staff member, and a small
// agrovet catalog so a fresh install is explorable. Every ensure is keyed on
// a natural identifier and safe to run on every startup.
func EnsureDemoData(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		farmer, err := ensureFarmer(ctx, tx, node, "Wanjiku Kamau", "+254700000001", 45)
		if err != nil {
			return err
		}
		if _, err := ensureFarmer(ctx, tx, node, "Otieno Odhiambo", "+254700000002", 400); err != nil {
			return err
		}
		if err := ensureStaff(ctx, tx, node, "user-demo-clerk", "Demo Clerk", "clerk"); err != nil {
			return err
		}
		if err := ensureDelivery(ctx, tx, node, farmer.ID, "2500.00"); err != nil {
			return err
		}

		product, err := ensureProduct(ctx, tx, node, "Dairy Meal", "feed", "1500.00")
		if err != nil {
			return err
		}
		return ensurePackaging(ctx, tx, node, product.ID, "20kg bag", "1000.00")
	})
}

func ensureFarmer(ctx context.Context, tx *gorm.DB, node *snowflake.Node, name, phone string, tenureDays int) (*identitydomain.Farmer, error) {
	var farmer identitydomain.Farmer
	err := tx.WithContext(ctx).Where("phone = ?", phone).First(&farmer).Error
	if err == nil {
		return &farmer, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	farmer = identitydomain.Farmer{
		ID:        node.Generate(),
		FullName:  name,
		Phone:     &phone,
		JoinedAt:  now.AddDate(0, 0, -tenureDays),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(&farmer).Error; err != nil {
		return nil, err
	}
	return &farmer, nil
}

func ensureStaff(ctx context.Context, tx *gorm.DB, node *snowflake.Node, userID, name, role string) error {
	var staff identitydomain.StaffMember
	err := tx.WithContext(ctx).Where("user_id = ?", userID).First(&staff).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	staff = identitydomain.StaffMember{
		ID:        node.Generate(),
		UserID:    userID,
		FullName:  name,
		Role:      role,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	return tx.WithContext(ctx).Create(&staff).Error
}

func ensureDelivery(ctx context.Context, tx *gorm.DB, node *snowflake.Node, farmerID snowflake.ID, total string) error {
	var count int64
	if err := tx.WithContext(ctx).
		Model(&receivablesdomain.MilkDelivery{}).
		Where("farmer_id = ?", farmerID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	amount := decimal.RequireFromString(total)
	now := time.Now().UTC()
	delivery := receivablesdomain.MilkDelivery{
		ID:            node.Generate(),
		FarmerID:      farmerID,
		DeliveredAt:   now.AddDate(0, 0, -1),
		QuantityLiter: decimal.NewFromInt(50),
		PricePerLiter: amount.Div(decimal.NewFromInt(50)).Round(2),
		TotalAmount:   amount,
		Status:        receivablesdomain.DeliveryStatusPending,
		CreatedAt:     now,
	}
	return tx.WithContext(ctx).Create(&delivery).Error
}

func ensureProduct(ctx context.Context, tx *gorm.DB, node *snowflake.Node, name, category, price string) (*catalogdomain.Product, error) {
	var product catalogdomain.Product
	err := tx.WithContext(ctx).Where("name = ?", name).First(&product).Error
	if err == nil {
		return &product, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	product = catalogdomain.Product{
		ID:               node.Generate(),
		Name:             name,
		Category:         category,
		Unit:             "kg",
		CurrentStock:     decimal.NewFromInt(100),
		SellingPrice:     decimal.RequireFromString(price),
		IsCreditEligible: true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := tx.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func ensurePackaging(ctx context.Context, tx *gorm.DB, node *snowflake.Node, productID snowflake.ID, name, price string) error {
	var option catalogdomain.PackagingOption
	err := tx.WithContext(ctx).
		Where("product_id = ? AND name = ?", productID, name).
		First(&option).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	now := time.Now().UTC()
	option = catalogdomain.PackagingOption{
		ID:               node.Generate(),
		ProductID:        productID,
		Name:             name,
		UnitCount:        decimal.NewFromInt(20),
		Price:            decimal.RequireFromString(price),
		IsCreditEligible: true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	return tx.WithContext(ctx).Create(&option).Error
}
