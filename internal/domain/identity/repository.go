package identity

import (
	"context"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/shared"
)

// ProfileRepository persists profiles
type ProfileRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	// FindByEmail matches case-insensitively
	FindByEmail(ctx context.Context, email string) (*Profile, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Profile, int64, error)
	Save(ctx context.Context, p *Profile) error
	CountByRole(ctx context.Context, role Role) (int64, error)
}
