package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kDuration
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	account string // keychain account for secrets
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "JOBPORTAL_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.max_conns", typ: kInt, env: "JOBPORTAL_SERVER_MAX_CONNS",
		apply:   func(cfg *Config, v any) { cfg.Server.MaxConns = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.MaxConns },
	},
	{
		key: "storage.driver", typ: kString, env: "JOBPORTAL_STORAGE_DRIVER",
		apply:   func(cfg *Config, v any) { cfg.Storage.Driver = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.Driver },
	},
	{
		key: "storage.data_dir", typ: kString, env: "JOBPORTAL_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "storage.database_url", typ: kString, env: "JOBPORTAL_DATABASE_URL",
		secret: true, account: "database_url",
		apply:   func(cfg *Config, v any) { cfg.Storage.DatabaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DatabaseURL },
	},
	{
		key: "catalog.cache_ttl", typ: kDuration, env: "JOBPORTAL_CATALOG_CACHE_TTL",
		apply:   func(cfg *Config, v any) { cfg.Catalog.CacheTTL = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Catalog.CacheTTL },
	},
	{
		key: "forms.delay", typ: kDuration, env: "JOBPORTAL_FORMS_DELAY",
		apply:   func(cfg *Config, v any) { cfg.Forms.Delay = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Forms.Delay },
	},
	{
		key: "forms.checkout_delay", typ: kDuration, env: "JOBPORTAL_FORMS_CHECKOUT_DELAY",
		apply:   func(cfg *Config, v any) { cfg.Forms.CheckoutDelay = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Forms.CheckoutDelay },
	},
	{
		key: "chat.reply_delay", typ: kDuration, env: "JOBPORTAL_CHAT_REPLY_DELAY",
		apply:   func(cfg *Config, v any) { cfg.Chat.ReplyDelay = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Chat.ReplyDelay },
	},
	{
		key: "chat.idle_timeout", typ: kDuration, env: "JOBPORTAL_CHAT_IDLE_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Chat.IdleTimeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Chat.IdleTimeout },
	},
	{
		key: "notify.redis_url", typ: kString, env: "JOBPORTAL_REDIS_URL",
		secret: true, account: "redis_url",
		apply:   func(cfg *Config, v any) { cfg.Notify.RedisURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Notify.RedisURL },
	},
	{
		key: "notify.channel", typ: kString, env: "JOBPORTAL_NOTIFY_CHANNEL",
		apply:   func(cfg *Config, v any) { cfg.Notify.Channel = v.(string) },
		extract: func(cfg Config) any { return cfg.Notify.Channel },
	},
	{
		key: "auth.admin_email", typ: kString, env: "JOBPORTAL_AUTH_ADMIN_EMAIL",
		apply:   func(cfg *Config, v any) { cfg.Auth.AdminEmail = v.(string) },
		extract: func(cfg Config) any { return cfg.Auth.AdminEmail },
	},
	{
		key: "auth.admin_password", typ: kString, env: "JOBPORTAL_ADMIN_PASSWORD",
		secret: true, account: "admin_password",
		apply:   func(cfg *Config, v any) { cfg.Auth.AdminPassword = v.(string) },
		extract: func(cfg Config) any { return cfg.Auth.AdminPassword },
	},
	{
		key: "auth.sales_email", typ: kString, env: "JOBPORTAL_AUTH_SALES_EMAIL",
		apply:   func(cfg *Config, v any) { cfg.Auth.SalesEmail = v.(string) },
		extract: func(cfg Config) any { return cfg.Auth.SalesEmail },
	},
	{
		key: "auth.sales_password", typ: kString, env: "JOBPORTAL_SALES_PASSWORD",
		secret: true, account: "sales_password",
		apply:   func(cfg *Config, v any) { cfg.Auth.SalesPassword = v.(string) },
		extract: func(cfg Config) any { return cfg.Auth.SalesPassword },
	},
	{
		key: "log.level", typ: kString, env: "JOBPORTAL_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kDuration:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if d, err := parseDuration(v); err == nil {
					s.apply(cfg, d)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse duration from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kDuration:
			if d, err := parseDuration(raw); err == nil {
				s.apply(cfg, d)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse duration from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}

// parseDuration accepts Go durations ("1.5s") and bare milliseconds ("1500").
func parseDuration(s string) (time.Duration, error) {
	if ms, err := strconv.Atoi(s); err == nil {
		if ms < 0 {
			return 0, fmt.Errorf("negative duration %d", ms)
		}
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", s)
	}
	return d, nil
}
