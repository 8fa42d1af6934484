package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

const (
	defaultCacheTTL = time.Minute
	// tombstoneTTL bounds how long after a write a lookup that started before
	// it can still try to fill the cache.
	tombstoneTTL = 5 * time.Second
	tombstone    = "-"
)

// CachedUserRepository serves FindProfile from Redis and falls through to the
// wrapped store on a miss. FindByID always reads the store, so password and
// refresh-token hashes never reach Redis. Every write goes to the store first
// and then replaces the cached record with a short-lived tombstone; fills use
// SET NX, so a lookup that read the store before the write cannot overwrite
// the tombstone with its stale copy. Redis failures degrade to the store; they
// never fail the call.
//
// Key format: user:<id>
type CachedUserRepository struct {
	ports.UserRepository
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

var (
	_ ports.UserRepository = (*CachedUserRepository)(nil)
	_ ports.ProfileLookup  = (*CachedUserRepository)(nil)
)

// NewCachedUserRepository wraps inner with a read-through profile cache.
func NewCachedUserRepository(inner ports.UserRepository, client *redis.Client, ttl time.Duration, log zerolog.Logger) *CachedUserRepository {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedUserRepository{UserRepository: inner, client: client, ttl: ttl, log: log}
}

type cachedProfile struct {
	ID        string      `json:"id"`
	Username  string      `json:"username"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func (r *CachedUserRepository) FindProfile(ctx context.Context, id string) (*domain.User, error) {
	raw, err := r.client.Get(ctx, r.key(id)).Bytes()
	switch {
	case err == nil && string(raw) == tombstone:
		// Recently written; read the store without caching.
	case err == nil:
		var cp cachedProfile
		if jsonErr := json.Unmarshal(raw, &cp); jsonErr == nil {
			return &domain.User{
				ID:        cp.ID,
				Username:  cp.Username,
				Role:      cp.Role,
				CreatedAt: cp.CreatedAt,
				UpdatedAt: cp.UpdatedAt,
			}, nil
		}
		r.log.Warn().Str("user_id", id).Msg("discarding unreadable cached user")
	case !errors.Is(err, redis.Nil):
		r.log.Warn().Err(err).Str("user_id", id).Msg("user cache read failed")
	}

	user, err := r.UserRepository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	profile := user.Profile()
	r.store(ctx, profile)
	return profile, nil
}

func (r *CachedUserRepository) SaveRefreshTokenHash(ctx context.Context, userID, hash string) error {
	defer r.evict(ctx, userID)
	return r.UserRepository.SaveRefreshTokenHash(ctx, userID, hash)
}

func (r *CachedUserRepository) SwapRefreshTokenHash(ctx context.Context, userID, expected, hash string) error {
	defer r.evict(ctx, userID)
	return r.UserRepository.SwapRefreshTokenHash(ctx, userID, expected, hash)
}

func (r *CachedUserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	defer r.evict(ctx, userID)
	return r.UserRepository.UpdatePassword(ctx, userID, passwordHash)
}

func (r *CachedUserRepository) UpdateRole(ctx context.Context, userID string, role domain.Role) (*domain.User, error) {
	defer r.evict(ctx, userID)
	return r.UserRepository.UpdateRole(ctx, userID, role)
}

func (r *CachedUserRepository) Delete(ctx context.Context, userID string) (*domain.User, error) {
	defer r.evict(ctx, userID)
	return r.UserRepository.Delete(ctx, userID)
}

func (r *CachedUserRepository) store(ctx context.Context, u *domain.User) {
	raw, err := json.Marshal(cachedProfile{
		ID:        u.ID,
		Username:  u.Username,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	})
	if err != nil {
		return
	}
	// A tombstone or a fresher fill wins.
	if err := r.client.SetNX(ctx, r.key(u.ID), raw, r.ttl).Err(); err != nil {
		r.log.Warn().Err(err).Str("user_id", u.ID).Msg("user cache write failed")
	}
}

func (r *CachedUserRepository) evict(ctx context.Context, userID string) {
	// Evict even if the caller's context is already done.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := r.client.Set(ctx, r.key(userID), tombstone, tombstoneTTL).Err(); err != nil {
		r.log.Warn().Err(err).Str("user_id", userID).Msg("user cache eviction failed")
	}
}

func (r *CachedUserRepository) key(id string) string {
	return "user:" + id
}
