package ports

import (
	"context"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// UserRepository defines persistence operations for user accounts.
type UserRepository interface {
	// Create inserts the user. A unique index violation is reported as
	// *domain.ConflictError.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	// FindByUsernameOrEmail returns every user matching either field.
	FindByUsernameOrEmail(ctx context.Context, username, email string) ([]*domain.User, error)
}

// RoleRepository defines persistence operations for the fixed role set.
type RoleRepository interface {
	// Seed inserts names when the collection is empty and reports how many
	// roles were added.
	Seed(ctx context.Context, names []string) (int, error)
	List(ctx context.Context) ([]domain.Role, error)
}
