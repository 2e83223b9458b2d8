package config

import (
	"strings"
	"testing"
	"time"
)

func intPtr(n int) *int { return &n }

func boolPtr(b bool) *bool { return &b }

func validConfig() *Config {
	return &Config{
		Location: "us-east-1.api.example.com",
		Account:  "ops",
		KeyID:    "ab:cd:ef",
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.ApplyDefaults()

	if cfg.SecretKeyPath != DefaultSecretKeyPath {
		t.Errorf("SecretKeyPath = %q, want %q", cfg.SecretKeyPath, DefaultSecretKeyPath)
	}
	if cfg.WaitTimeout != DefaultWaitTimeout {
		t.Errorf("WaitTimeout = %d, want %d", cfg.WaitTimeout, DefaultWaitTimeout)
	}
	if cfg.State != StatePresent {
		t.Errorf("State = %q, want %q", cfg.State, StatePresent)
	}
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := validConfig()
	cfg.SecretKeyPath = "/etc/keys/deploy"
	cfg.WaitTimeout = 120
	cfg.State = StateAbsent
	cfg.ApplyDefaults()

	if cfg.SecretKeyPath != "/etc/keys/deploy" {
		t.Errorf("SecretKeyPath = %q, want explicit value kept", cfg.SecretKeyPath)
	}
	if cfg.WaitTimeout != 120 {
		t.Errorf("WaitTimeout = %d, want 120", cfg.WaitTimeout)
	}
	if cfg.State != StateAbsent {
		t.Errorf("State = %q, want %q", cfg.State, StateAbsent)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "minimal valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing account",
			mutate:  func(c *Config) { c.Account = "" },
			wantErr: "no account provided",
		},
		{
			name:    "missing key_id",
			mutate:  func(c *Config) { c.KeyID = "" },
			wantErr: "no key_id provided",
		},
		{
			name:    "missing location",
			mutate:  func(c *Config) { c.Location = "" },
			wantErr: "validation failed",
		},
		{
			name: "count and exact_count together",
			mutate: func(c *Config) {
				c.Count = intPtr(2)
				c.ExactCount = intPtr(2)
				c.CountTag = map[string]string{"group": "web"}
			},
			wantErr: "mutually exclusive",
		},
		{
			name: "exact_count without count_tag",
			mutate: func(c *Config) {
				c.ExactCount = intPtr(2)
			},
			wantErr: "count_tag is required",
		},
		{
			name: "exact_count with count_tag",
			mutate: func(c *Config) {
				c.ExactCount = intPtr(2)
				c.CountTag = map[string]string{"group": "web"}
			},
		},
		{
			name:    "negative count",
			mutate:  func(c *Config) { c.Count = intPtr(-1) },
			wantErr: "validation failed",
		},
		{
			name:    "zero count allowed",
			mutate:  func(c *Config) { c.Count = intPtr(0) },
		},
		{
			name:    "invalid state",
			mutate:  func(c *Config) { c.State = "rebooted" },
			wantErr: "validation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestCreateCount(t *testing.T) {
	cfg := validConfig()
	if got := cfg.CreateCount(); got != DefaultCount {
		t.Errorf("CreateCount() = %d, want default %d", got, DefaultCount)
	}

	cfg.Count = intPtr(4)
	if got := cfg.CreateCount(); got != 4 {
		t.Errorf("CreateCount() = %d, want 4", got)
	}
}

func TestWaitEnabled(t *testing.T) {
	cfg := validConfig()
	if !cfg.WaitEnabled() {
		t.Error("WaitEnabled() = false, want true by default")
	}

	cfg.Wait = boolPtr(false)
	if cfg.WaitEnabled() {
		t.Error("WaitEnabled() = true, want false when explicitly disabled")
	}
}

func TestWaitTimeoutDuration(t *testing.T) {
	cfg := validConfig()
	cfg.WaitTimeout = 90
	if got := cfg.WaitTimeoutDuration(); got != 90*time.Second {
		t.Errorf("WaitTimeoutDuration() = %s, want 90s", got)
	}
}
