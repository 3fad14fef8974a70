package config

import (
	"strings"
	"testing"
	"time"
)

func setBase(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "test")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("JWT_SECRET", "s3cret")
}

func TestLoadDefaults(t *testing.T) {
	setBase(t)
	t.Setenv("STORE_DRIVER", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StoreDriver != DriverMongo || cfg.MongoDatabase != "hotel_inventory" {
		t.Fatalf("unexpected store defaults: %+v", cfg)
	}
	if cfg.AccessTTLMin != 60 || cfg.BcryptCost != 10 || cfg.RequestTimeout != 5*time.Second {
		t.Fatalf("unexpected numeric defaults: %+v", cfg)
	}
}

func TestLoadReportsEveryMissingVar(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("APP_PORT", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("STORE_DRIVER", "mysql")
	t.Setenv("DB_HOST", "")
	_, err := Load()
	if err == nil {
		t.Fatal("expected an error")
	}
	for _, key := range []string{"APP_ENV", "APP_PORT", "JWT_SECRET", "DB_HOST"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error does not mention %s: %v", key, err)
		}
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	setBase(t)
	t.Setenv("STORE_DRIVER", "cassandra")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "cassandra") {
		t.Fatalf("expected unknown driver error, got %v", err)
	}
}

func TestRateLimitClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	c := LoadRateLimitConfig()
	if c.Capacity != 1 || c.TTL != 10*time.Second {
		t.Fatalf("unexpected clamps: %+v", c)
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("X_BOOL", "Yes")
	t.Setenv("X_INT", "nope")
	t.Setenv("X_DUR", "90s")
	if !envBool("X_BOOL", false) || envInt("X_INT", 7) != 7 || envDur("X_DUR", 0) != 90*time.Second {
		t.Fatal("env helpers misparsed")
	}
	if m := parseMethods(" get, head ,"); !m["GET"] || !m["HEAD"] || len(m) != 2 {
		t.Fatalf("unexpected methods %v", m)
	}
}
