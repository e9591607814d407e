package config

import (
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"
)

// mockKeychain is a test double for the keychain interface.
type mockKeychain map[string]string

func (m mockKeychain) Get(service, account string) (string, error) {
	if service != "jobportal" {
		return "", errors.New("wrong service")
	}
	v, ok := m[account]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

// mapBackend is an in-memory ConfigBackend.
type mapBackend map[string]string

func (b mapBackend) GetString(key string) (string, bool, error) {
	v, ok := b[key]
	return v, ok, nil
}

func (b mapBackend) GetInt(key string) (int, bool, error) {
	v, ok := b[key]
	if !ok {
		return 0, false, nil
	}
	i, err := strconv.Atoi(v)
	return i, true, err
}

func (b mapBackend) SetString(key, val string) error { b[key] = val; return nil }
func (b mapBackend) SetInt(key string, val int) error {
	b[key] = strconv.Itoa(val)
	return nil
}
func (b mapBackend) Delete(key string) error { delete(b, key); return nil }

func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		t.Setenv(s.env, "")
	}
}

// TestDefaults verifies all default values are applied when nothing is configured.
func TestDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := loadWith(mapBackend{}, mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 4100 || cfg.Server.MaxConns != 256 {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.DataDir != ":memory:" {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if cfg.Forms.Delay != time.Second || cfg.Forms.CheckoutDelay != 2*time.Second {
		t.Errorf("Forms = %+v", cfg.Forms)
	}
	if cfg.Chat.ReplyDelay != time.Second || cfg.Chat.IdleTimeout != 30*time.Minute {
		t.Errorf("Chat = %+v", cfg.Chat)
	}
	if cfg.Catalog.CacheTTL != 30*time.Second {
		t.Errorf("Catalog.CacheTTL = %v", cfg.Catalog.CacheTTL)
	}
	if cfg.Notify.Channel != "jobportal:notifications" || cfg.Log.Level != "info" {
		t.Errorf("Notify = %+v, Log = %+v", cfg.Notify, cfg.Log)
	}
}

// TestBackendValues verifies typed keys are read from the backend.
func TestBackendValues(t *testing.T) {
	clearEnv(t)
	b := mapBackend{
		"server.port":          "5000",
		"storage.data_dir":     "/tmp/jobportal-test",
		"forms.delay":          "250ms",
		"chat.reply_delay":     "1500",
		"catalog.cache_ttl":    "not-a-duration",
		"storage.database_url": "postgres://ignored",
	}
	cfg, err := loadWith(b, mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 5000 || cfg.Storage.DataDir != "/tmp/jobportal-test" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Forms.Delay != 250*time.Millisecond {
		t.Errorf("Forms.Delay = %v", cfg.Forms.Delay)
	}
	if cfg.Chat.ReplyDelay != 1500*time.Millisecond {
		t.Errorf("Chat.ReplyDelay = %v, want bare milliseconds", cfg.Chat.ReplyDelay)
	}
	if cfg.Catalog.CacheTTL != 30*time.Second {
		t.Errorf("unparseable duration should keep the default, got %v", cfg.Catalog.CacheTTL)
	}
	if cfg.Storage.DatabaseURL != "" {
		t.Error("secrets must not be read from the backend")
	}
}

// TestEnvOverride verifies that environment variables override backend values.
func TestEnvOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("JOBPORTAL_SERVER_PORT", "6000")
	t.Setenv("JOBPORTAL_FORMS_CHECKOUT_DELAY", "3s")
	t.Setenv("JOBPORTAL_SERVER_MAX_CONNS", "lots")

	cfg, err := loadWith(mapBackend{"server.port": "5000"}, mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 6000 {
		t.Errorf("Server.Port = %d, want 6000", cfg.Server.Port)
	}
	if cfg.Forms.CheckoutDelay != 3*time.Second {
		t.Errorf("CheckoutDelay = %v", cfg.Forms.CheckoutDelay)
	}
	if cfg.Server.MaxConns != 256 {
		t.Errorf("bad integer should keep the default, got %d", cfg.Server.MaxConns)
	}
}

// TestPostgresRequiresURL verifies the fail-fast error for a missing database URL.
func TestPostgresRequiresURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("JOBPORTAL_STORAGE_DRIVER", "postgres")

	_, err := loadWith(mapBackend{}, mockKeychain{})
	if err == nil || !strings.Contains(err.Error(), "missing required config") {
		t.Fatalf("err = %v", err)
	}

	t.Setenv("JOBPORTAL_DATABASE_URL", "postgres://localhost/jobportal")
	cfg, err := loadWith(mapBackend{}, mockKeychain{})
	if err != nil || cfg.Storage.DatabaseURL != "postgres://localhost/jobportal" {
		t.Errorf("cfg = %+v, err = %v", cfg.Storage, err)
	}
}

func TestUnknownDriver(t *testing.T) {
	clearEnv(t)
	t.Setenv("JOBPORTAL_STORAGE_DRIVER", "mysql")
	if _, err := loadWith(mapBackend{}, mockKeychain{}); err == nil {
		t.Fatal("expected an error for an unknown driver")
	}
}

// TestOperatorPasswords verifies an operator email needs its password.
func TestOperatorPasswords(t *testing.T) {
	clearEnv(t)
	t.Setenv("JOBPORTAL_AUTH_ADMIN_EMAIL", "admin@jobportal.test")

	if _, err := loadWith(mapBackend{}, mockKeychain{}); err == nil {
		t.Fatal("expected an error for a missing admin password")
	}

	cfg, err := loadWith(mapBackend{}, mockKeychain{"admin_password": "from-keychain"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Auth.AdminPassword != "from-keychain" {
		t.Errorf("AdminPassword = %q", cfg.Auth.AdminPassword)
	}

	t.Setenv("JOBPORTAL_ADMIN_PASSWORD", "from-env")
	cfg, _ = loadWith(mapBackend{}, mockKeychain{"admin_password": "from-keychain"})
	if cfg.Auth.AdminPassword != "from-env" {
		t.Errorf("environment should win over keychain, got %q", cfg.Auth.AdminPassword)
	}
}

func TestShowAllMasksSecrets(t *testing.T) {
	cfg := defaults()
	cfg.Auth.SalesPassword = "hunter2"
	for _, k := range ShowAll(cfg) {
		if strings.Contains(k.Value, "hunter2") {
			t.Fatalf("secret leaked through %s", k.Key)
		}
		if k.Key == "auth.sales_password" && k.Value != "(set)" {
			t.Errorf("sales password = %q", k.Value)
		}
		if k.Key == "forms.checkout_delay" && k.Value != "2s" {
			t.Errorf("checkout delay = %q", k.Value)
		}
	}
}

func TestSetKey(t *testing.T) {
	b := mapBackend{}
	tests := []struct {
		key, value string
		wantErr    bool
	}{
		{"server.port", "4200", false},
		{"server.port", "abc", true},
		{"chat.idle_timeout", "1h", false},
		{"chat.idle_timeout", "soon", true},
		{"auth.admin_password", "x", true},
		{"no.such.key", "x", true},
	}
	for _, tt := range tests {
		err := setKeyWith(b, tt.key, tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("setKeyWith(%s, %s) err = %v, wantErr %v", tt.key, tt.value, err, tt.wantErr)
		}
	}
	if b["server.port"] != "4200" || b["chat.idle_timeout"] != "1h" {
		t.Errorf("backend = %v", b)
	}
}

func TestValidKeysExcludeSecrets(t *testing.T) {
	for _, k := range ValidKeys() {
		if strings.Contains(k, "password") || k == "storage.database_url" || k == "notify.redis_url" {
			t.Errorf("secret %s listed as settable", k)
		}
	}
}
