package repositories

import (
	"context"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
)

// UserRepository is read-only: identities are owned by the auth provider
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]*models.User, error)
	HasRole(ctx context.Context, id string, role models.UserRole) (bool, error)
}
