package ports

import (
	"context"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// LoginResult is returned by Login and Register.
type LoginResult struct {
	UserID       string
	AccessToken  string
	RefreshToken string
}

// RefreshResult is returned by Refresh.
type RefreshResult struct {
	AccessToken  string
	RefreshToken string
}

// RegisterInput carries an already validated registration request.
// An empty Role defaults to domain.RoleUser.
type RegisterInput struct {
	Username string
	Password string
	Role     domain.Role
}

type AuthService interface {
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	Register(ctx context.Context, in RegisterInput) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error)
	GetLoggedIn(ctx context.Context, accessToken string) bool
}
