package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"
)

func TestConfig_UnmarshalJSON_DurationStrings(t *testing.T) {
	tests := []struct {
		name     string
		jsonData string
		want     Config
		wantErr  bool
	}{
		{
			name: "duration strings",
			jsonData: `{
				"enabled": true,
				"max_size": 1000,
				"ttl": "1h",
				"cleanup_interval": "5m"
			}`,
			want: Config{
				Enabled:         true,
				MaxSize:         1000,
				TTL:             1 * time.Hour,
				CleanupInterval: 5 * time.Minute,
			},
			wantErr: false,
		},
		{
			name: "integer nanoseconds (backward compatibility)",
			jsonData: `{
				"enabled": true,
				"max_size": 1000,
				"ttl": 3600000000000,
				"cleanup_interval": 300000000000
			}`,
			want: Config{
				Enabled:         true,
				MaxSize:         1000,
				TTL:             1 * time.Hour,
				CleanupInterval: 5 * time.Minute,
			},
			wantErr: false,
		},
		{
			name: "mixed formats",
			jsonData: `{
				"enabled": true,
				"max_size": 500,
				"ttl": "2h30m",
				"cleanup_interval": 60000000000
			}`,
			want: Config{
				Enabled:         true,
				MaxSize:         500,
				TTL:             2*time.Hour + 30*time.Minute,
				CleanupInterval: 1 * time.Minute,
			},
			wantErr: false,
		},
		{
			name: "invalid duration string",
			jsonData: `{
				"enabled": true,
				"ttl": "invalid"
			}`,
			wantErr: true,
		},
		{
			name: "minimal config",
			jsonData: `{
				"enabled": false
			}`,
			want: Config{
				Enabled: false,
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Config
			err := json.Unmarshal([]byte(tt.jsonData), &got)

			if (err != nil) != tt.wantErr {
				t.Errorf("Config.UnmarshalJSON() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr {
				if got.Enabled != tt.want.Enabled {
					t.Errorf("Enabled = %v, want %v", got.Enabled, tt.want.Enabled)
				}
				if got.MaxSize != tt.want.MaxSize {
					t.Errorf("MaxSize = %v, want %v", got.MaxSize, tt.want.MaxSize)
				}
				if got.TTL != tt.want.TTL {
					t.Errorf("TTL = %v, want %v", got.TTL, tt.want.TTL)
				}
				if got.CleanupInterval != tt.want.CleanupInterval {
					t.Errorf("CleanupInterval = %v, want %v", got.CleanupInterval, tt.want.CleanupInterval)
				}
			}
		})
	}
}

func TestConfig_UnmarshalJSON_RealWorldExample(t *testing.T) {
	// Test with a dispatch cache config as it appears in service configuration
	jsonData := `{
		"enabled": true,
		"max_size": 5000,
		"ttl": "1h",
		"cleanup_interval": "5m"
	}`

	var cfg Config
	if err := json.Unmarshal([]byte(jsonData), &cfg); err != nil {
		t.Fatalf("UnmarshalJSON() failed: %v", err)
	}

	if cfg.TTL != 1*time.Hour {
		t.Errorf("TTL = %v, want 1h", cfg.TTL)
	}

	if cfg.CleanupInterval != 5*time.Minute {
		t.Errorf("CleanupInterval = %v, want 5m", cfg.CleanupInterval)
	}

	// Verify it validates correctly
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() failed: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Run("Default", func(t *testing.T) {
		if err := DefaultConfig().Validate(); err != nil {
			t.Errorf("DefaultConfig should validate, got %v", err)
		}
	})

	t.Run("DisabledSkipsValidation", func(t *testing.T) {
		cfg := Config{Enabled: false}
		if err := cfg.Validate(); err != nil {
			t.Errorf("Disabled config should validate, got %v", err)
		}
	})

	invalid := []Config{
		{Enabled: true, MaxSize: 0, TTL: time.Minute, CleanupInterval: time.Minute},
		{Enabled: true, MaxSize: 10, TTL: 0, CleanupInterval: time.Minute},
		{Enabled: true, MaxSize: 10, TTL: time.Minute, CleanupInterval: 0},
	}
	for i, cfg := range invalid {
		t.Run(fmt.Sprintf("Invalid%d", i), func(t *testing.T) {
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := Config{Enabled: true, MaxSize: 0, TTL: time.Minute, CleanupInterval: time.Minute}
	if _, err := New[string](context.Background(), cfg); err == nil {
		t.Error("Expected error for invalid config")
	}
}

func TestNew_Disabled(t *testing.T) {
	cache, err := New[string](context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer cache.Close()

	// Should always miss and never store
	if isNew, err := cache.Set("test", "value"); err != nil || isNew {
		t.Errorf("Expected silent no-op Set, got isNew=%t err=%v", isNew, err)
	}
	if _, exists := cache.Get("test"); exists {
		t.Error("Disabled cache should always miss")
	}
	if removed, err := cache.InvalidateTag("t"); err != nil || removed != 0 {
		t.Errorf("Expected no-op InvalidateTag, got removed=%d err=%v", removed, err)
	}
	if cache.Stats() != nil {
		t.Error("Disabled cache should have nil stats")
	}
}
