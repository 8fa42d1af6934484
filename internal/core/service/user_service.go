package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

// UserService implements account and role administration.
type UserService struct {
	repo         ports.UserRepository
	hasher       ports.PasswordHasher
	audit        ports.AuditSink
	storeTimeout time.Duration
	log          zerolog.Logger
}

func NewUserService(
	repo ports.UserRepository,
	hasher ports.PasswordHasher,
	audit ports.AuditSink,
	storeTimeout time.Duration,
	log zerolog.Logger,
) *UserService {
	if storeTimeout <= 0 {
		storeTimeout = defaultStoreTimeout
	}
	if audit == nil {
		audit = nopAudit{}
	}
	return &UserService{repo: repo, hasher: hasher, audit: audit, storeTimeout: storeTimeout, log: log}
}

func (s *UserService) List(ctx context.Context) ([]*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	return s.repo.List(ctx)
}

func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	return s.repo.FindByID(ctx, id)
}

// ChangePassword stores a new password hash and clears the refresh-token hash,
// which ends the user's current session.
func (s *UserService) ChangePassword(ctx context.Context, id, password string) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if err := s.repo.UpdatePassword(ctx, id, hash); err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	if err := s.repo.SaveRefreshTokenHash(ctx, id, ""); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	s.audit.Record(domain.AuthEvent{Type: domain.EventPasswordChanged, UserID: id, OccurredAt: time.Now().UTC()})
	return nil
}

func (s *UserService) Delete(ctx context.Context, id string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	user, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	s.audit.Record(domain.AuthEvent{Type: domain.EventUserDeleted, UserID: user.ID, Username: user.Username, OccurredAt: time.Now().UTC()})
	return user, nil
}

func (s *UserService) GetRole(ctx context.Context, id string) (domain.Role, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return user.Role, nil
}

// UpdateRole assigns role to the user. The change applies to the next request
// because the identity guard reloads the user on every call.
func (s *UserService) UpdateRole(ctx context.Context, id string, role domain.Role) (*domain.User, error) {
	if !domain.IsValidRole(string(role)) {
		return nil, domain.NewValidationError("invalid role, valid roles are: admin, user")
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	user, err := s.repo.UpdateRole(ctx, id, role)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", id).Str("role", string(role)).Msg("role updated")
	s.audit.Record(domain.AuthEvent{Type: domain.EventRoleChanged, UserID: id, Username: user.Username, Detail: string(role), OccurredAt: time.Now().UTC()})
	return user, nil
}
