package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("API_ADDR", "")
	t.Setenv("SHARELIST_ACCESS_TTL_SECONDS", "")
	t.Setenv("MINIO_USE_SSL", "")

	cfg := Load()
	if cfg.Addr != ":8787" {
		t.Fatalf("expected default addr :8787, got %q", cfg.Addr)
	}
	if cfg.AccessTTL != 24*time.Hour {
		t.Fatalf("expected default access ttl 24h, got %s", cfg.AccessTTL)
	}
	if cfg.MinioUseSSL {
		t.Fatal("expected MinioUseSSL to default to false")
	}
	if cfg.MinioBucket != "sharelist-audit" {
		t.Fatalf("expected default bucket sharelist-audit, got %q", cfg.MinioBucket)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("API_ADDR", ":9000")
	t.Setenv("SHARELIST_ACCESS_TTL_SECONDS", "60")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("REDIS_URL", "redis://cache:6379/1")

	cfg := Load()
	if cfg.Addr != ":9000" {
		t.Fatalf("expected addr :9000, got %q", cfg.Addr)
	}
	if cfg.AccessTTL != time.Minute {
		t.Fatalf("expected access ttl 1m, got %s", cfg.AccessTTL)
	}
	if !cfg.MinioUseSSL {
		t.Fatal("expected MinioUseSSL true")
	}
	if cfg.RedisURL != "redis://cache:6379/1" {
		t.Fatalf("unexpected redis url %q", cfg.RedisURL)
	}
}

func TestInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("SHARELIST_REFRESH_TTL_SECONDS", "soon")
	t.Setenv("MINIO_USE_SSL", "maybe")

	cfg := Load()
	if cfg.RefreshTTL != 30*24*time.Hour {
		t.Fatalf("expected fallback refresh ttl, got %s", cfg.RefreshTTL)
	}
	if cfg.MinioUseSSL {
		t.Fatal("expected invalid bool to fall back to false")
	}
}
