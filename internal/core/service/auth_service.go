package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

// placeholderUserID stands in for a missing user so login does the same work
// whether or not the username exists.
const placeholderUserID = "00000000-0000-0000-0000-000000000000"

const defaultStoreTimeout = 5 * time.Second

// AuthService implements login, registration and refresh-token rotation.
type AuthService struct {
	repo            ports.UserRepository
	tokens          ports.TokenService
	hasher          ports.PasswordHasher
	audit           ports.AuditSink
	log             zerolog.Logger
	storeTimeout    time.Duration
	placeholderHash string
}

// NewAuthService hashes a random placeholder password with hasher so the
// unknown-username branch of Login pays the same bcrypt cost as a real one.
func NewAuthService(
	repo ports.UserRepository,
	tokens ports.TokenService,
	hasher ports.PasswordHasher,
	audit ports.AuditSink,
	storeTimeout time.Duration,
	log zerolog.Logger,
) (*AuthService, error) {
	if storeTimeout <= 0 {
		storeTimeout = defaultStoreTimeout
	}
	if audit == nil {
		audit = nopAudit{}
	}
	placeholder, err := hasher.Hash(rand.Text())
	if err != nil {
		return nil, fmt.Errorf("placeholder hash: %w", err)
	}
	return &AuthService{
		repo:            repo,
		tokens:          tokens,
		hasher:          hasher,
		audit:           audit,
		log:             log,
		storeTimeout:    storeTimeout,
		placeholderHash: placeholder,
	}, nil
}

// Login verifies credentials. Every variable-cost step runs even when the
// username is unknown; the rejection is decided only at the end, and it never
// says which factor was wrong.
func (s *AuthService) Login(ctx context.Context, username, password string) (*ports.LoginResult, error) {
	user, err := s.findByUsername(ctx, username)
	found := err == nil
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		s.log.Error().Err(err).Msg("login lookup failed")
	}

	userID, role, hash := placeholderUserID, domain.RoleUser, s.placeholderHash
	if found {
		userID, role, hash = user.ID, user.Role, user.PasswordHash
	}

	valid := s.hasher.Compare(hash, password) == nil && found
	pair, tokenErr := s.tokens.RotateTokens(userID, role)

	if !valid {
		s.recordFailedLogin(user, username)
		return nil, domain.ErrInvalidCredentials
	}
	if tokenErr != nil {
		return nil, tokenErr
	}

	if err := s.saveRefreshHash(ctx, userID, pair.RefreshTokenHash); err != nil {
		return nil, err
	}

	s.audit.Record(domain.AuthEvent{Type: domain.EventLoginSucceeded, UserID: userID, Username: user.Username, OccurredAt: time.Now().UTC()})
	return &ports.LoginResult{
		UserID:       userID,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

// Register creates the account and mints its first token pair.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.LoginResult, error) {
	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}
	if !domain.IsValidRole(string(role)) {
		return nil, domain.NewValidationError("role must be one of: admin, user")
	}

	_, err := s.findByUsername(ctx, in.Username)
	switch {
	case err == nil:
		return nil, domain.ErrUserExists
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		if !errors.Is(err, domain.ErrHashing) {
			err = fmt.Errorf("%w: %w", domain.ErrHashing, err)
		}
		return nil, err
	}

	now := time.Now().UTC()
	cctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	created, err := s.repo.Create(cctx, &domain.User{
		Username:     in.Username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	cancel()
	if err != nil {
		return nil, err
	}
	if created.ID == "" {
		return nil, fmt.Errorf("%w: created user has no id", domain.ErrStorage)
	}

	pair, err := s.tokens.RotateTokens(created.ID, created.Role)
	if err != nil {
		return nil, err
	}
	if err := s.saveRefreshHash(ctx, created.ID, pair.RefreshTokenHash); err != nil {
		return nil, err
	}

	s.audit.Record(domain.AuthEvent{Type: domain.EventRegistered, UserID: created.ID, Username: created.Username, OccurredAt: now})
	return &ports.LoginResult{
		UserID:       created.ID,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

// Refresh exchanges a refresh token for a new pair. The claimed subject is only
// trusted once the token matches the stored hash, and the stored hash is
// replaced atomically so each refresh token can be used once.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*ports.RefreshResult, error) {
	claims, ok := s.tokens.DecodeToken(refreshToken)
	if !ok || claims.Subject == "" {
		return nil, domain.ErrInvalidToken
	}
	if claims.Type != "" && claims.Type != domain.TokenTypeRefresh {
		return nil, domain.ErrInvalidToken
	}

	cctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	user, err := s.repo.FindByID(cctx, claims.Subject)
	cancel()
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			s.log.Error().Err(err).Str("user_id", claims.Subject).Msg("refresh lookup failed")
		}
		return nil, domain.ErrUnauthorized
	}
	if user.RefreshTokenHash == "" {
		return nil, domain.ErrUnauthorized
	}

	if !s.tokens.CompareToken(refreshToken, user.RefreshTokenHash) || !s.tokens.VerifyToken(refreshToken) {
		s.audit.Record(domain.AuthEvent{Type: domain.EventRefreshRejected, UserID: user.ID, Username: user.Username, Detail: "hash mismatch", OccurredAt: time.Now().UTC()})
		return nil, domain.ErrInvalidToken
	}

	pair, err := s.tokens.RotateTokens(user.ID, user.Role)
	if err != nil {
		return nil, err
	}

	cctx, cancel = context.WithTimeout(ctx, s.storeTimeout)
	err = s.repo.SwapRefreshTokenHash(cctx, user.ID, user.RefreshTokenHash, pair.RefreshTokenHash)
	cancel()
	if err != nil {
		if errors.Is(err, domain.ErrRefreshConflict) {
			s.audit.Record(domain.AuthEvent{Type: domain.EventRefreshRejected, UserID: user.ID, Username: user.Username, Detail: "concurrent rotation", OccurredAt: time.Now().UTC()})
			return nil, domain.ErrInvalidToken
		}
		return nil, err
	}

	s.audit.Record(domain.AuthEvent{Type: domain.EventTokenRefreshed, UserID: user.ID, Username: user.Username, OccurredAt: time.Now().UTC()})
	return &ports.RefreshResult{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

// GetLoggedIn never fails; any problem with the token means "not logged in".
func (s *AuthService) GetLoggedIn(_ context.Context, accessToken string) bool {
	if !s.tokens.VerifyToken(accessToken) {
		return false
	}
	claims, ok := s.tokens.DecodeToken(accessToken)
	return ok && claims.Subject != "" && claims.Type != domain.TokenTypeRefresh
}

func (s *AuthService) findByUsername(ctx context.Context, username string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	return s.repo.FindByUsername(ctx, username)
}

func (s *AuthService) saveRefreshHash(ctx context.Context, userID, hash string) error {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.repo.SaveRefreshTokenHash(ctx, userID, hash); err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	return nil
}

func (s *AuthService) recordFailedLogin(user *domain.User, username string) {
	ev := domain.AuthEvent{Type: domain.EventLoginFailed, Username: username, OccurredAt: time.Now().UTC()}
	if user != nil {
		ev.UserID = user.ID
	}
	s.audit.Record(ev)
}

type nopAudit struct{}

func (nopAudit) Record(domain.AuthEvent) {}
