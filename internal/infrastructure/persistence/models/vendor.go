package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/vendor"
)

// VendorProfileModel is the persistence model for the VendorProfile aggregate root.
type VendorProfileModel struct {
	AggregateModel
	UserID           uuid.UUID            `gorm:"type:uuid;not null;uniqueIndex"`
	StoreName        string               `gorm:"type:varchar(100);not null"`
	Slug             string               `gorm:"type:varchar(120);not null;uniqueIndex"`
	Description      string               `gorm:"type:text"`
	Status           vendor.Status        `gorm:"type:varchar(20);not null;default:'pending';index"`
	CommissionExempt bool                 `gorm:"not null;default:false"`
	Payout           vendor.PayoutDetails `gorm:"type:text;serializer:json"`
	ApprovedAt       *time.Time
	SuspendedReason  string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (VendorProfileModel) TableName() string {
	return "vendor_profiles"
}

// ToDomain converts the persistence model to a domain VendorProfile.
func (m *VendorProfileModel) ToDomain() *vendor.VendorProfile {
	return &vendor.VendorProfile{
		BaseAggregateRoot: m.ToAggregateRoot(),
		UserID:            m.UserID,
		StoreName:         m.StoreName,
		Slug:              m.Slug,
		Description:       m.Description,
		Status:            m.Status,
		CommissionExempt:  m.CommissionExempt,
		Payout:            m.Payout,
		ApprovedAt:        m.ApprovedAt,
		SuspendedReason:   m.SuspendedReason,
	}
}

// VendorProfileModelFromDomain creates a persistence model from a domain VendorProfile.
func VendorProfileModelFromDomain(v *vendor.VendorProfile) *VendorProfileModel {
	m := &VendorProfileModel{
		UserID:           v.UserID,
		StoreName:        v.StoreName,
		Slug:             v.Slug,
		Description:      v.Description,
		Status:           v.Status,
		CommissionExempt: v.CommissionExempt,
		Payout:           v.Payout,
		ApprovedAt:       v.ApprovedAt,
		SuspendedReason:  v.SuspendedReason,
	}
	m.FromDomainAggregateRoot(v.BaseAggregateRoot)
	return m
}
