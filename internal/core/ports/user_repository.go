package ports

import (
	"context"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// UserRepository is the credential store adapter. Implementations return
// domain.ErrUserNotFound for a missing record and wrap every other failure in
// domain.ErrStorage so callers can tell the two apart.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	// Create assigns the user an ID and returns domain.ErrUserExists when the
	// username is taken.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	SaveRefreshTokenHash(ctx context.Context, userID, hash string) error
	// SwapRefreshTokenHash replaces the stored hash only while it still equals
	// expected, returning domain.ErrRefreshConflict otherwise.
	SwapRefreshTokenHash(ctx context.Context, userID, expected, hash string) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	UpdateRole(ctx context.Context, userID string, role domain.Role) (*domain.User, error)
	Delete(ctx context.Context, userID string) (*domain.User, error)
}

// ProfileLookup resolves a user without credential material: PasswordHash and
// RefreshTokenHash are always empty. Code that compares hashes reads them from
// UserRepository.FindByID instead.
type ProfileLookup interface {
	FindProfile(ctx context.Context, id string) (*domain.User, error)
}
