package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/vendor"
	"github.com/marketplace/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormVendorRepository implements vendor.Repository using GORM
type GormVendorRepository struct {
	db *gorm.DB
}

// NewGormVendorRepository creates a new GormVendorRepository
func NewGormVendorRepository(db *gorm.DB) *GormVendorRepository {
	return &GormVendorRepository{db: db}
}

func (r *GormVendorRepository) findOne(ctx context.Context, query string, args ...any) (*vendor.VendorProfile, error) {
	var model models.VendorProfileModel
	if err := r.db.WithContext(ctx).Where(query, args...).First(&model).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return model.ToDomain(), nil
}

// FindByID finds a vendor by its ID
func (r *GormVendorRepository) FindByID(ctx context.Context, id uuid.UUID) (*vendor.VendorProfile, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByUserID finds the vendor owned by a profile
func (r *GormVendorRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*vendor.VendorProfile, error) {
	return r.findOne(ctx, "user_id = ?", userID)
}

// FindBySlug finds a vendor by its storefront slug
func (r *GormVendorRepository) FindBySlug(ctx context.Context, slug string) (*vendor.VendorProfile, error) {
	return r.findOne(ctx, "slug = ?", slug)
}

// FindByIDs finds multiple vendors by their IDs
func (r *GormVendorRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]vendor.VendorProfile, error) {
	if len(ids) == 0 {
		return []vendor.VendorProfile{}, nil
	}
	var rows []models.VendorProfileModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return toVendors(rows), nil
}

// FindAll lists vendors, filtered by "status" and searched by store name
func (r *GormVendorRepository) FindAll(ctx context.Context, filter shared.Filter) ([]vendor.VendorProfile, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.VendorProfileModel{})
	if filter.Search != "" {
		query = query.Where(`LOWER(store_name) LIKE ? ESCAPE '\'`, likePattern(filter.Search))
	}
	if status, ok := filter.Filters["status"]; ok && status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.VendorProfileModel
	if err := paginate(query, filter, VendorSortFields).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return toVendors(rows), total, nil
}

// ExistsBySlug checks whether another vendor already uses a slug
func (r *GormVendorRepository) ExistsBySlug(ctx context.Context, slug string, excludeID uuid.UUID) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.VendorProfileModel{}).Where("slug = ?", slug)
	if excludeID != uuid.Nil {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates a vendor
func (r *GormVendorRepository) Save(ctx context.Context, v *vendor.VendorProfile) error {
	return r.db.WithContext(ctx).Save(models.VendorProfileModelFromDomain(v)).Error
}

// CountByStatus counts vendors in a status
func (r *GormVendorRepository) CountByStatus(ctx context.Context, status vendor.Status) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.VendorProfileModel{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}

func toVendors(rows []models.VendorProfileModel) []vendor.VendorProfile {
	out := make([]vendor.VendorProfile, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out
}

// Ensure GormVendorRepository implements vendor.Repository
var _ vendor.Repository = (*GormVendorRepository)(nil)
