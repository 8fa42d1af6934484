package ports

import (
	"context"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// UserService covers account administration behind the guard chain.
type UserService interface {
	List(ctx context.Context) ([]*domain.User, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	ChangePassword(ctx context.Context, id, password string) error
	Delete(ctx context.Context, id string) (*domain.User, error)
	GetRole(ctx context.Context, id string) (domain.Role, error)
	UpdateRole(ctx context.Context, id string, role domain.Role) (*domain.User, error)
}
