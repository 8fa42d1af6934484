package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/99minutos/auth-service/internal/core/domain"
)

func TestConfigOptions(t *testing.T) {
	opts := Config{Addr: "cache:6379", DB: 2, Timeout: 750 * time.Millisecond}.options()
	if opts.ReadTimeout != 750*time.Millisecond || opts.WriteTimeout != opts.ReadTimeout || opts.DialTimeout != opts.ReadTimeout {
		t.Fatalf("timeouts not applied: %+v", opts)
	}
	if opts.Addr != "cache:6379" || opts.DB != 2 {
		t.Fatalf("unexpected options: %+v", opts)
	}

	if got := (Config{}).options().ReadTimeout; got != defaultTimeout {
		t.Fatalf("expected default timeout %s, got %s", defaultTimeout, got)
	}
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := Connect(context.Background(), Config{Addr: mr.Addr(), Timeout: time.Second})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	if err := client.Set(context.Background(), "k", "v", 0).Err(); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got, _ := mr.Get("k"); got != "v" {
		t.Fatalf("expected v, got %q", got)
	}
}

func TestConnect_Password(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.RequireAuth("s3cret")

	if _, err := Connect(context.Background(), Config{Addr: mr.Addr(), Timeout: time.Second}); !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("expected ErrStorage without a password, got %v", err)
	}

	client, err := Connect(context.Background(), Config{Addr: mr.Addr(), Password: "s3cret", Timeout: time.Second})
	if err != nil {
		t.Fatalf("Connect with password: %v", err)
	}
	_ = client.Close()
}

func TestConnect_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	if _, err := Connect(context.Background(), Config{Addr: addr, Timeout: 200 * time.Millisecond}); !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
}
