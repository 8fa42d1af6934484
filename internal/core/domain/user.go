package domain

import "time"

// User models an account known to the credential store.
//
// RefreshTokenHash is empty or the one-way hash of the most recently issued
// refresh token; at most one refresh token is valid per user at a time.
type User struct {
	ID               string    `json:"id"`
	Username         string    `json:"username"`
	PasswordHash     string    `json:"-"`
	Role             Role      `json:"role"`
	RefreshTokenHash string    `json:"-"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Identity is the normalized principal attached to an authenticated request.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Roles    []Role `json:"roles"`
}

// Profile returns a copy of u without the password and refresh-token hashes.
func (u *User) Profile() *User {
	p := *u
	p.PasswordHash = ""
	p.RefreshTokenHash = ""
	return &p
}

// IdentityOf builds the request identity for u.
func IdentityOf(u *User) *Identity {
	return &Identity{
		ID:       u.ID,
		Username: u.Username,
		Role:     u.Role,
		Roles:    []Role{u.Role},
	}
}

// TokenClaims is the payload carried by access and refresh tokens.
type TokenClaims struct {
	Subject string
	Role    Role
	Type    TokenType
}

// TokenType distinguishes the two token classes.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// TokenPair is the result of a rotation. RefreshTokenHash is what the caller
// persists; the raw refresh token is only ever handed to the client.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	RefreshTokenHash string
}
