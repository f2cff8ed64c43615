package models

import (
	"time"

	"github.com/marketplace/backend/internal/domain/identity"
)

// ProfileModel is the persistence model for the Profile aggregate root.
type ProfileModel struct {
	AggregateModel
	Email        string        `gorm:"type:varchar(200);not null;uniqueIndex"`
	FullName     string        `gorm:"type:varchar(200);not null"`
	Phone        string        `gorm:"type:varchar(50)"`
	Role         identity.Role `gorm:"type:varchar(20);not null;default:'customer';index"`
	IsGuest      bool          `gorm:"not null;default:false"`
	PasswordHash string        `gorm:"type:varchar(255)"`
	LastLoginAt  *time.Time
}

// TableName returns the table name for GORM
func (ProfileModel) TableName() string {
	return "profiles"
}

// ToDomain converts the persistence model to a domain Profile.
func (m *ProfileModel) ToDomain() *identity.Profile {
	return &identity.Profile{
		BaseAggregateRoot: m.ToAggregateRoot(),
		Email:             m.Email,
		FullName:          m.FullName,
		Phone:             m.Phone,
		Role:              m.Role,
		IsGuest:           m.IsGuest,
		PasswordHash:      m.PasswordHash,
		LastLoginAt:       m.LastLoginAt,
	}
}

// ProfileModelFromDomain creates a persistence model from a domain Profile.
func ProfileModelFromDomain(p *identity.Profile) *ProfileModel {
	m := &ProfileModel{
		Email:        p.Email,
		FullName:     p.FullName,
		Phone:        p.Phone,
		Role:         p.Role,
		IsGuest:      p.IsGuest,
		PasswordHash: p.PasswordHash,
		LastLoginAt:  p.LastLoginAt,
	}
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	return m
}
