package config

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Catalog CatalogConfig
	Forms   FormsConfig
	Chat    ChatConfig
	Notify  NotifyConfig
	Auth    AuthConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port     int
	MaxConns int
}

type StorageConfig struct {
	Driver      string
	DataDir     string
	DatabaseURL string
}

type CatalogConfig struct {
	CacheTTL time.Duration
}

type FormsConfig struct {
	Delay         time.Duration
	CheckoutDelay time.Duration
}

type ChatConfig struct {
	ReplyDelay  time.Duration
	IdleTimeout time.Duration
}

type NotifyConfig struct {
	RedisURL string
	Channel  string
}

type AuthConfig struct {
	AdminEmail    string
	AdminPassword string
	SalesEmail    string
	SalesPassword string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:     4100,
			MaxConns: 256,
		},
		Storage: StorageConfig{
			Driver:  "sqlite",
			DataDir: ":memory:",
		},
		Catalog: CatalogConfig{CacheTTL: 30 * time.Second},
		Forms: FormsConfig{
			Delay:         time.Second,
			CheckoutDelay: 2 * time.Second,
		},
		Chat: ChatConfig{
			ReplyDelay:  time.Second,
			IdleTimeout: 30 * time.Minute,
		},
		Notify: NotifyConfig{Channel: "jobportal:notifications"},
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.kalambet.jobportal) and
// secrets fall back to the macOS Keychain (service: jobportal).
// On Linux the backend is a YAML file at $XDG_CONFIG_HOME/jobportal/config.yaml
// and secrets come from environment variables or the secrets file.
//
// Environment variables (JOBPORTAL_*) override backend values on all platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), keychainReader{})
}

// keychain abstracts Keychain access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)
	applySecrets(&cfg, kc)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applySecrets fills secrets still empty after the environment from the keychain.
func applySecrets(cfg *Config, kc keychain) {
	for _, s := range specs {
		if !s.secret || s.account == "" {
			continue
		}
		if cur, _ := s.extract(*cfg).(string); cur != "" {
			continue
		}
		if v, err := kc.Get("jobportal", s.account); err == nil && v != "" {
			s.apply(cfg, v)
		}
	}
}

func (cfg Config) validate() error {
	switch cfg.Storage.Driver {
	case "sqlite", "":
	case "postgres", "postgresql":
		if cfg.Storage.DatabaseURL == "" {
			return fmt.Errorf("%s", "missing required config: storage.database_url. "+
				"Set it via environment variable JOBPORTAL_DATABASE_URL"+secretHint("database_url"))
		}
	default:
		return fmt.Errorf("invalid storage.driver %q: want sqlite or postgres", cfg.Storage.Driver)
	}
	if cfg.Auth.AdminEmail != "" && cfg.Auth.AdminPassword == "" {
		return fmt.Errorf("missing required config: admin password for %s. "+
			"Set it via environment variable JOBPORTAL_ADMIN_PASSWORD%s", cfg.Auth.AdminEmail, secretHint("admin_password"))
	}
	if cfg.Auth.SalesEmail != "" && cfg.Auth.SalesPassword == "" {
		return fmt.Errorf("missing required config: sales password for %s. "+
			"Set it via environment variable JOBPORTAL_SALES_PASSWORD%s", cfg.Auth.SalesEmail, secretHint("sales_password"))
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", cfg.Server.Port)
	}
	return nil
}

// keychainReader reads from the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainExec(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
