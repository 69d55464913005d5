package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("ESCALATION_OTP_MAX_ATTEMPTS", "")
	t.Setenv("REFRESH_ACTIVE_QUEUE_INTERVAL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.StoreDriver != "postgres" {
		t.Errorf("store driver = %q, want postgres", cfg.App.StoreDriver)
	}
	if cfg.Escalation.OTPMaxAttempts != 0 || cfg.Escalation.OTPTTL != 0 || cfg.Escalation.HashAtRest {
		t.Errorf("escalation hardening should be off by default: %+v", cfg.Escalation)
	}
	if cfg.Refresh.ActiveQueue != 5*time.Second {
		t.Errorf("active queue interval = %s, want 5s", cfg.Refresh.ActiveQueue)
	}
	if cfg.Refresh.Analytics != time.Minute {
		t.Errorf("analytics interval = %s, want 1m", cfg.Refresh.Analytics)
	}
	if cfg.Refresh.CallQueue != 5*time.Second {
		t.Errorf("call queue interval = %s, want 5s", cfg.Refresh.CallQueue)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("ESCALATION_OTP_MAX_ATTEMPTS", "5")
	t.Setenv("ESCALATION_OTP_TTL", "15m")
	t.Setenv("REFRESH_URGENT_INTERVAL", "not-a-duration")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.StoreDriver != "memory" {
		t.Errorf("store driver = %q", cfg.App.StoreDriver)
	}
	if cfg.Escalation.OTPMaxAttempts != 5 || cfg.Escalation.OTPTTL != 15*time.Minute {
		t.Errorf("unexpected escalation config %+v", cfg.Escalation)
	}
	if cfg.Refresh.Urgent != 30*time.Second {
		t.Errorf("invalid duration should fall back, got %s", cfg.Refresh.Urgent)
	}
}

func TestLoadRejectsUnknownStoreDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown store driver")
	}
}

func TestLoadLoggerAndRedis(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("LOG_FORMAT", "console")
	t.Setenv("REDIS_KEY_PREFIX", "rideops:")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Logger.Format != "console" {
		t.Errorf("log format = %q, want console", cfg.Logger.Format)
	}
	if cfg.Redis.KeyPrefix != "rideops:" {
		t.Errorf("redis key prefix = %q", cfg.Redis.KeyPrefix)
	}
	if cfg.Redis.DialTimeout != 3*time.Second {
		t.Errorf("redis dial timeout = %s, want 3s", cfg.Redis.DialTimeout)
	}

	t.Setenv("LOG_FORMAT", "xml")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown log format")
	}
}
