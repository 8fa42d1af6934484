package ports

import "github.com/99minutos/auth-service/internal/core/domain"

// TokenService signs, checks and rotates session tokens.
type TokenService interface {
	IssueAccessToken(subject string, role domain.Role) (string, error)
	IssueRefreshToken(subject string, role domain.Role) (string, error)
	// VerifyToken checks signature and expiry. It never returns an error.
	VerifyToken(token string) bool
	// DecodeToken extracts claims without checking the signature.
	DecodeToken(token string) (*domain.TokenClaims, bool)
	HashToken(token string) (string, error)
	CompareToken(token, hash string) bool
	RotateTokens(subject string, role domain.Role) (*domain.TokenPair, error)
}

// PasswordHasher hashes and checks account passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}
