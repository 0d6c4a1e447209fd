package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func noFiles(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "ACUMIDATA_ENV", "ACUMIDATA_API_KEY", "ACUMIDATA_UAT_KEY", "COMPS_SOLD_LIMIT", "SESSION_TTL", "ALLOWED_ORIGINS"} {
		t.Setenv(k, "")
	}
	cfg := Load(noFiles(t))

	if cfg.Port != "8080" {
		t.Errorf("Port: got %q", cfg.Port)
	}
	if cfg.Acumidata.Env != "uat" {
		t.Errorf("Env: got %q", cfg.Acumidata.Env)
	}
	if cfg.Comps.SoldLimit != 10 || cfg.Comps.PendingLimit != 5 || cfg.Comps.ActiveLimit != 10 {
		t.Errorf("Comps limits: %+v", cfg.Comps)
	}
	if cfg.Session.TTL != 12*time.Hour {
		t.Errorf("Session TTL: got %v", cfg.Session.TTL)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Errorf("AllowedOrigins: got %v", cfg.AllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ACUMIDATA_ENV", "prod")
	t.Setenv("ACUMIDATA_API_KEY", "")
	t.Setenv("ACUMIDATA_PROD_KEY", "prod-key")
	t.Setenv("ACUMIDATA_UAT_KEY", "uat-key")
	t.Setenv("COMPS_PENDING_LIMIT", "3")
	t.Setenv("SESSION_TTL", "90")
	t.Setenv("BATCH_REQUEST_TIMEOUT", "45s")
	t.Setenv("LOG_JSON", "true")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg := Load(noFiles(t))
	if cfg.Acumidata.APIKey != "prod-key" {
		t.Errorf("APIKey: got %q, want prod-key", cfg.Acumidata.APIKey)
	}
	if cfg.Comps.PendingLimit != 3 {
		t.Errorf("PendingLimit: got %d", cfg.Comps.PendingLimit)
	}
	if cfg.Session.TTL != 90*time.Second {
		t.Errorf("TTL: got %v", cfg.Session.TTL)
	}
	if cfg.BatchTimeout != 45*time.Second {
		t.Errorf("BatchTimeout: got %v", cfg.BatchTimeout)
	}
	if !cfg.Log.JSON {
		t.Errorf("LOG_JSON not applied")
	}
	if strings.Join(cfg.AllowedOrigins, "|") != "https://a.example|https://b.example" {
		t.Errorf("AllowedOrigins: got %v", cfg.AllowedOrigins)
	}
	if cfg.Session.RedisDB != 0 {
		t.Errorf("bad int should fall back, got %d", cfg.Session.RedisDB)
	}

	t.Setenv("ACUMIDATA_API_KEY", "generic")
	if k := Load(noFiles(t)).Acumidata.APIKey; k != "generic" {
		t.Errorf("generic key should win, got %q", k)
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	const key = "COMPS_TEST_FROM_FILE"
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("APP_NAME_UNUSED=x\n"+key+"=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Unsetenv(key)
		os.Unsetenv("APP_NAME_UNUSED")
	})

	Load(noFiles(t), path)
	if got := os.Getenv(key); got != "from-file" {
		t.Errorf("env file not loaded, got %q", got)
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{Session: SessionConfig{RedisAddr: "localhost:6379"}}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for empty config")
	}
	for _, want := range []string{"ACUMIDATA_API_KEY", "PG_DSN"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not name %s", err, want)
		}
	}

	cfg.PGDSN = "postgres://localhost/comps"
	cfg.Acumidata.Username, cfg.Acumidata.Password = "u", "p"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	if err := (&Config{Acumidata: AcumidataConfig{APIKey: "k"}}).ValidateClient(); err != nil {
		t.Errorf("ValidateClient: %v", err)
	}
}

func TestWiring(t *testing.T) {
	t.Setenv("ACUMIDATA_ENV", "prod")
	t.Setenv("ACUMIDATA_API_KEY", "k")
	t.Setenv("ACUMIDATA_RETRY_MAX", "1")
	t.Setenv("COMPS_SOLD_LIMIT", "4")
	t.Setenv("FLUENT_ENABLED", "yes")
	cfg := Load(noFiles(t))

	cc := cfg.ClientConfig(nil)
	if cc.Env != "prod" || cc.APIKey != "k" || cc.RetryMax != 1 {
		t.Errorf("client config: %+v", cc)
	}
	if lim := cfg.Limits(); lim.Sold != 4 {
		t.Errorf("limits: %+v", lim)
	}
	if lc := cfg.LogxConfig(); !lc.FluentEnabled || lc.AppName != cfg.AppName {
		t.Errorf("log config: %+v", lc)
	}
}
