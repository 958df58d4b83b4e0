package repositories

import (
	"context"

	"github.com/SAP-F-2025/lms-registry/internal/models"
)

// UserFilters defines filters for user queries
type UserFilters struct {
	LecturersOnly bool
	Limit         int
	Offset        int
}

type UserRepository interface {
	GetByIdentity(ctx context.Context, identity string) (*models.User, error)
	List(ctx context.Context, filters UserFilters) ([]*models.User, error)

	// Save inserts the user or overwrites the stored profile.
	Save(ctx context.Context, user *models.User) error
}
