package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"flowershop/internal/models"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	t.Setenv("SHOP_BOT_TOKEN", "env_token")

	yamlContent := `
telegram:
  bot_token: "${SHOP_BOT_TOKEN}"
  channel_id: "-100123"
  send_timeout: 3s
database:
  path: "test.db"
api:
  auth:
    enabled: true
    api_keys:
      - key: "k1"
        extra: "e1"
        name: "admin"
        permissions: ["admin:orders"]
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Telegram.BotToken != "env_token" {
		t.Errorf("expected bot_token env_token, got %s", cfg.Telegram.BotToken)
	}
	if cfg.Telegram.SendTimeout != 3*time.Second {
		t.Errorf("expected send_timeout 3s, got %s", cfg.Telegram.SendTimeout)
	}
	if len(cfg.API.Auth.APIKeys) != 1 || cfg.API.Auth.APIKeys[0].Name != "admin" {
		t.Errorf("expected one api key named admin")
	}
}

func TestLoadConfigWithDotEnv(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("database:\n  path: \"${SHOP_DB_FROM_DOTENV}\"\n"), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	if err := os.WriteFile(".env", []byte("SHOP_DB_FROM_DOTENV=from_env.db\n"), 0o644); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}
	defer os.Remove(".env")
	defer os.Unsetenv("SHOP_DB_FROM_DOTENV")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Database.Path != "from_env.db" {
		t.Errorf("expected database path from .env, got %q", cfg.Database.Path)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "valid config",
			cfg:     Config{Database: DatabaseConfig{Path: "path"}},
			wantErr: false,
		},
		{
			name:    "missing database path",
			cfg:     Config{},
			wantErr: true,
		},
		{
			name: "backup without storage",
			cfg: Config{
				Database: DatabaseConfig{Path: "path"},
				Backup:   BackupConfig{Enabled: true},
			},
			wantErr: true,
		},
		{
			name: "bad timezone",
			cfg: Config{
				Database: DatabaseConfig{Path: "path"},
				Shop:     ShopConfig{Timezone: "Mars/Olympus"},
			},
			wantErr: true,
		},
		{
			name: "duplicate api key",
			cfg: Config{
				Database: DatabaseConfig{Path: "path"},
				API: APIConfig{Auth: APIAuthConfig{APIKeys: []APIClientKey{
					{Key: "a", Name: "one"},
					{Key: "a", Name: "two"},
				}}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	if cfg.Telegram.SendTimeout != models.DefaultSendTimeout {
		t.Errorf("expected default send timeout %s, got %s", models.DefaultSendTimeout, cfg.Telegram.SendTimeout)
	}
	if cfg.Cache.ShopsTTL != 24*time.Hour {
		t.Errorf("expected shops cache ttl 24h, got %s", cfg.Cache.ShopsTTL)
	}
	if cfg.Shop.CatalogPageSize != models.CatalogPageSize {
		t.Errorf("expected catalog page size %d, got %d", models.CatalogPageSize, cfg.Shop.CatalogPageSize)
	}
	if cfg.Shop.LoadMoreSize != models.LoadMoreSize {
		t.Errorf("expected load more size %d, got %d", models.LoadMoreSize, cfg.Shop.LoadMoreSize)
	}
	if cfg.API.HTTP.Port != 8080 {
		t.Errorf("expected default http port 8080, got %d", cfg.API.HTTP.Port)
	}
	if cfg.Shop.MapCenter.Lat != 56.0096 {
		t.Errorf("expected default map center, got %+v", cfg.Shop.MapCenter)
	}
}

func TestTelegramEnabled(t *testing.T) {
	if (TelegramConfig{BotToken: "YOUR_BOT_TOKEN_HERE"}).Enabled() {
		t.Errorf("placeholder token must not enable telegram")
	}
	if !(TelegramConfig{BotToken: "123:abc"}).Enabled() {
		t.Errorf("real token must enable telegram")
	}
}
