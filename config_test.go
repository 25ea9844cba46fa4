package kinauth

import (
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := validateConfig(defaultConfig()); err != nil {
		t.Fatalf("default config rejected: %v", err)
	}
}

func TestDefaultConfigValues(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Lockout.MaxAttempts != 5 {
		t.Fatalf("MaxAttempts = %d, want 5", cfg.Lockout.MaxAttempts)
	}
	if cfg.Lockout.LockDuration != 15*time.Minute {
		t.Fatalf("LockDuration = %v, want 15m", cfg.Lockout.LockDuration)
	}
	if cfg.Lockout.CounterResetAfter != time.Hour {
		t.Fatalf("CounterResetAfter = %v, want 1h", cfg.Lockout.CounterResetAfter)
	}
	if cfg.Session.DefaultTTL != 24*time.Hour {
		t.Fatalf("DefaultTTL = %v, want 24h", cfg.Session.DefaultTTL)
	}
	if cfg.Session.RememberTTL != 30*24*time.Hour {
		t.Fatalf("RememberTTL = %v, want 720h", cfg.Session.RememberTTL)
	}
	if cfg.Session.TokenBytes != 32 {
		t.Fatalf("TokenBytes = %d, want 32", cfg.Session.TokenBytes)
	}
	if cfg.Password.MinLength != 8 {
		t.Fatalf("MinLength = %d, want 8", cfg.Password.MinLength)
	}
}

func TestValidateConfigRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero max attempts", func(c *Config) { c.Lockout.MaxAttempts = 0 }},
		{"zero lock duration", func(c *Config) { c.Lockout.LockDuration = 0 }},
		{"negative cool-down", func(c *Config) { c.Lockout.CounterResetAfter = -time.Minute }},
		{"zero update retries", func(c *Config) { c.Lockout.UpdateRetries = 0 }},
		{"short tokens", func(c *Config) { c.Session.TokenBytes = 16 }},
		{"zero default ttl", func(c *Config) { c.Session.DefaultTTL = 0 }},
		{"remember below default", func(c *Config) { c.Session.RememberTTL = time.Hour }},
		{"zero store timeout", func(c *Config) { c.Session.StoreTimeout = 0 }},
		{"low policy floor", func(c *Config) { c.Password.MinLength = 6 }},
		{"audit without buffer", func(c *Config) { c.Audit.BufferSize = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(&cfg)
			if err := validateConfig(cfg); err == nil {
				t.Fatal("invalid config accepted")
			}
		})
	}
}

func TestCloneConfigIsIndependent(t *testing.T) {
	cfg := defaultConfig()
	clone := cloneConfig(cfg)
	clone.Lockout.MaxAttempts = 99
	if cfg.Lockout.MaxAttempts == 99 {
		t.Fatal("clone shares state with the original")
	}
}
