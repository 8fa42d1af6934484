package redis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// stubStore is a minimal inner repository that counts FindByID calls.
// afterFind runs once the record has been read, before it is returned.
type stubStore struct {
	users     map[string]*domain.User
	finds     int
	afterFind func()
}

func (s *stubStore) FindByID(_ context.Context, id string) (*domain.User, error) {
	s.finds++
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	clone := *u
	if s.afterFind != nil {
		hook := s.afterFind
		s.afterFind = nil
		hook()
	}
	return &clone, nil
}

func (s *stubStore) FindByUsername(context.Context, string) (*domain.User, error) {
	return nil, domain.ErrUserNotFound
}

func (s *stubStore) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	s.users[u.ID] = u
	return u, nil
}

func (s *stubStore) List(context.Context) ([]*domain.User, error) { return nil, nil }

func (s *stubStore) SaveRefreshTokenHash(_ context.Context, id, hash string) error {
	s.users[id].RefreshTokenHash = hash
	return nil
}

func (s *stubStore) SwapRefreshTokenHash(_ context.Context, id, expected, hash string) error {
	if s.users[id].RefreshTokenHash != expected {
		return domain.ErrRefreshConflict
	}
	s.users[id].RefreshTokenHash = hash
	return nil
}

func (s *stubStore) UpdatePassword(_ context.Context, id, hash string) error {
	s.users[id].PasswordHash = hash
	return nil
}

func (s *stubStore) UpdateRole(_ context.Context, id string, role domain.Role) (*domain.User, error) {
	s.users[id].Role = role
	clone := *s.users[id]
	return &clone, nil
}

func (s *stubStore) Delete(_ context.Context, id string) (*domain.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	delete(s.users, id)
	return u, nil
}

func setupCache(t *testing.T) (*miniredis.Miniredis, *stubStore, *CachedUserRepository) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := &stubStore{users: map[string]*domain.User{
		"u1": {ID: "u1", Username: "cam", PasswordHash: "pw-hash", Role: domain.RoleUser, RefreshTokenHash: "r1"},
	}}
	return mr, store, NewCachedUserRepository(store, client, time.Minute, zerolog.Nop())
}

func TestCachedUserRepository_ReadThrough(t *testing.T) {
	mr, store, repo := setupCache(t)
	ctx := context.Background()

	first, err := repo.FindProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("FindProfile: %v", err)
	}
	second, err := repo.FindProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("FindProfile: %v", err)
	}

	if store.finds != 1 {
		t.Fatalf("expected one store lookup, got %d", store.finds)
	}
	if !mr.Exists("user:u1") {
		t.Fatalf("expected user:u1 to be cached")
	}
	if second.Username != "cam" || second.Role != first.Role {
		t.Fatalf("cached record lost fields: %+v", second)
	}
	if ttl := mr.TTL("user:u1"); ttl != time.Minute {
		t.Fatalf("expected 1m ttl, got %s", ttl)
	}
}

func TestCachedUserRepository_HashesStayOutOfRedis(t *testing.T) {
	mr, _, repo := setupCache(t)
	ctx := context.Background()

	profile, err := repo.FindProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("FindProfile: %v", err)
	}
	if profile.PasswordHash != "" || profile.RefreshTokenHash != "" {
		t.Fatalf("profile carries hashes: %+v", profile)
	}

	raw, err := mr.Get("user:u1")
	if err != nil {
		t.Fatalf("miniredis Get: %v", err)
	}
	if strings.Contains(raw, "pw-hash") || strings.Contains(raw, "r1") || strings.Contains(raw, "hash") {
		t.Fatalf("cached value leaks credential material: %s", raw)
	}
}

func TestCachedUserRepository_FindByIDReadsStore(t *testing.T) {
	mr, store, repo := setupCache(t)
	ctx := context.Background()

	_, _ = repo.FindProfile(ctx, "u1")
	store.users["u1"].RefreshTokenHash = "r9"

	u, err := repo.FindByID(ctx, "u1")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if u.RefreshTokenHash != "r9" || u.PasswordHash != "pw-hash" {
		t.Fatalf("expected the stored hashes, got %+v", u)
	}
	if store.finds != 2 {
		t.Fatalf("expected FindByID to skip the cache, got %d store lookups", store.finds)
	}
	raw, _ := mr.Get("user:u1")
	if strings.Contains(raw, "r9") {
		t.Fatalf("FindByID must not fill the cache: %s", raw)
	}
}

func TestCachedUserRepository_WritesEvict(t *testing.T) {
	mr, store, repo := setupCache(t)
	ctx := context.Background()

	_, _ = repo.FindProfile(ctx, "u1")
	if _, err := repo.UpdateRole(ctx, "u1", domain.RoleAdmin); err != nil {
		t.Fatalf("UpdateRole: %v", err)
	}
	if raw, _ := mr.Get("user:u1"); raw != tombstone {
		t.Fatalf("expected tombstone after write, got %q", raw)
	}
	if ttl := mr.TTL("user:u1"); ttl != tombstoneTTL {
		t.Fatalf("expected tombstone ttl %s, got %s", tombstoneTTL, ttl)
	}

	u, _ := repo.FindProfile(ctx, "u1")
	if u.Role != domain.RoleAdmin || store.finds != 2 {
		t.Fatalf("expected fresh read from store, got %+v after %d finds", u, store.finds)
	}

	mr.FastForward(tombstoneTTL)
	_, _ = repo.FindProfile(ctx, "u1")
	if raw, _ := mr.Get("user:u1"); raw == tombstone || raw == "" {
		t.Fatalf("expected the cache to refill once the tombstone expired, got %q", raw)
	}
}

// A lookup that read the store before a concurrent write must not put its
// stale copy back after the write evicted the key.
func TestCachedUserRepository_StaleFillAfterWrite(t *testing.T) {
	mr, store, repo := setupCache(t)
	ctx := context.Background()

	store.afterFind = func() {
		if _, err := repo.UpdateRole(ctx, "u1", domain.RoleAdmin); err != nil {
			t.Errorf("UpdateRole: %v", err)
		}
	}
	stale, err := repo.FindProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("FindProfile: %v", err)
	}
	if stale.Role != domain.RoleUser {
		t.Fatalf("expected the pre-write snapshot, got %+v", stale)
	}

	if raw, _ := mr.Get("user:u1"); raw != tombstone {
		t.Fatalf("stale fill overwrote the tombstone: %q", raw)
	}
	u, err := repo.FindProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("FindProfile: %v", err)
	}
	if u.Role != domain.RoleAdmin {
		t.Fatalf("expected role admin after write, got %s", u.Role)
	}
}

func TestCachedUserRepository_ConflictStillEvicts(t *testing.T) {
	mr, _, repo := setupCache(t)
	ctx := context.Background()

	_, _ = repo.FindProfile(ctx, "u1")
	if err := repo.SwapRefreshTokenHash(ctx, "u1", "stale", "r3"); !errors.Is(err, domain.ErrRefreshConflict) {
		t.Fatalf("expected ErrRefreshConflict, got %v", err)
	}
	if raw, _ := mr.Get("user:u1"); raw != tombstone {
		t.Fatalf("expected eviction after failed swap, got %q", raw)
	}
}

func TestCachedUserRepository_NotFoundIsNotCached(t *testing.T) {
	mr, _, repo := setupCache(t)

	if _, err := repo.FindProfile(context.Background(), "ghost"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if mr.Exists("user:ghost") {
		t.Fatalf("missing users must not be cached")
	}
}

func TestCachedUserRepository_RedisDownFallsBack(t *testing.T) {
	mr, store, repo := setupCache(t)
	mr.Close()

	u, err := repo.FindProfile(context.Background(), "u1")
	if err != nil {
		t.Fatalf("expected fallback to store, got %v", err)
	}
	if u.Username != "cam" || store.finds != 1 {
		t.Fatalf("unexpected fallback result: %+v", u)
	}
}
