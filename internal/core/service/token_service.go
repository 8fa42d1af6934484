package service

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// TokenConfig is the signing material and lifetimes. All fields except
// HashCost are required.
type TokenConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// HashCost is the bcrypt cost for stored refresh-token hashes.
	HashCost int
}

// tokenClaims is the wire form of domain.TokenClaims.
type tokenClaims struct {
	Role string `json:"role"`
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenService issues HS256 access and refresh tokens.
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	hashCost   int
	now        func() time.Time
	parser     *jwt.Parser
	log        zerolog.Logger
}

// NewTokenService validates cfg once at startup and returns
// domain.ErrConfiguration when it is incomplete.
func NewTokenService(cfg TokenConfig, log zerolog.Logger) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("%w: token secret is empty", domain.ErrConfiguration)
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, fmt.Errorf("%w: token lifetimes must be positive", domain.ErrConfiguration)
	}
	if cfg.RefreshTTL <= cfg.AccessTTL {
		return nil, fmt.Errorf("%w: refresh lifetime must exceed access lifetime", domain.ErrConfiguration)
	}
	if cfg.HashCost == 0 {
		cfg.HashCost = bcrypt.DefaultCost
	}
	if cfg.HashCost < bcrypt.MinCost || cfg.HashCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("%w: token hash cost %d out of range", domain.ErrConfiguration, cfg.HashCost)
	}

	s := &TokenService{
		secret:     []byte(cfg.Secret),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		hashCost:   cfg.HashCost,
		now:        time.Now,
		log:        log,
	}
	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	)
	return s, nil
}

// WithClock replaces the time source. Intended for tests.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

func (s *TokenService) IssueAccessToken(subject string, role domain.Role) (string, error) {
	return s.sign(subject, role, domain.TokenTypeAccess, s.accessTTL)
}

func (s *TokenService) IssueRefreshToken(subject string, role domain.Role) (string, error) {
	return s.sign(subject, role, domain.TokenTypeRefresh, s.refreshTTL)
}

func (s *TokenService) sign(subject string, role domain.Role, typ domain.TokenType, ttl time.Duration) (string, error) {
	now := s.now()
	claims := tokenClaims{
		Role: string(role),
		Type: string(typ),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, nil
}

// VerifyToken reports whether token carries a valid HS256 signature and has
// not expired. The cause of a failure is only logged at debug level.
func (s *TokenService) VerifyToken(token string) bool {
	if token == "" {
		return false
	}
	parsed, err := s.parser.ParseWithClaims(token, &tokenClaims{}, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		s.log.Debug().Err(err).Msg("token verification failed")
		return false
	}
	return parsed.Valid
}

// DecodeToken extracts the payload without checking the signature. Only use
// it after VerifyToken, or when a later hash comparison does the real check.
func (s *TokenService) DecodeToken(token string) (*domain.TokenClaims, bool) {
	var claims tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, false
	}
	return &domain.TokenClaims{
		Subject: claims.Subject,
		Role:    domain.Role(claims.Role),
		Type:    domain.TokenType(claims.Type),
	}, true
}

// HashToken returns a salted bcrypt hash of the token's SHA-256 fingerprint.
// bcrypt reads at most 72 bytes, and JWTs for one subject share a long prefix,
// so hashing the raw token would make rotated tokens indistinguishable.
func (s *TokenService) HashToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(fingerprint(token), s.hashCost)
	if err != nil {
		return "", fmt.Errorf("%w: token: %w", domain.ErrHashing, err)
	}
	return string(hash), nil
}

// CompareToken reports whether token matches a hash produced by HashToken.
func (s *TokenService) CompareToken(token, hash string) bool {
	if token == "" || hash == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), fingerprint(token))
	if err != nil && !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		s.log.Debug().Err(err).Msg("stored token hash unreadable")
	}
	return err == nil
}

// RotateTokens is the only way a token pair is minted.
func (s *TokenService) RotateTokens(subject string, role domain.Role) (*domain.TokenPair, error) {
	access, err := s.IssueAccessToken(subject, role)
	if err != nil {
		return nil, err
	}
	refresh, err := s.IssueRefreshToken(subject, role)
	if err != nil {
		return nil, err
	}
	hash, err := s.HashToken(refresh)
	if err != nil {
		return nil, err
	}
	return &domain.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		RefreshTokenHash: hash,
	}, nil
}

func fingerprint(token string) []byte {
	sum := sha256.Sum256([]byte(token))
	out := make([]byte, base64.RawURLEncoding.EncodedLen(len(sum)))
	base64.RawURLEncoding.Encode(out, sum[:])
	return out
}
