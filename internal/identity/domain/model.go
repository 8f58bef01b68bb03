// Package domain contains persistence models for farmers and staff identities.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Farmer is the registered milk supplier a credit profile belongs to.
type Farmer struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	FullName  string       `gorm:"type:text;not null"`
	Phone     *string      `gorm:"type:text"`
	// JoinedAt drives credit tier derivation from tenure.
	JoinedAt  time.Time `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Farmer) TableName() string { return "farmers" }

// StaffMember links an auth-space user to an attributable staff identity.
type StaffMember struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	UserID    string       `gorm:"type:text;not null;uniqueIndex"`
	FullName  string       `gorm:"type:text;not null"`
	Role      string       `gorm:"type:text;not null"`
	Active    bool         `gorm:"not null;default:true"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (StaffMember) TableName() string { return "staff_members" }

// Resolver maps auth-space user IDs to staff identities. Elevated
// administrative roles have no staff record and resolve to nil, not an error.
type Resolver interface {
	ResolveStaffID(ctx context.Context, userID string) (*snowflake.ID, error)
	FindFarmer(ctx context.Context, farmerID snowflake.ID) (*Farmer, error)
}
