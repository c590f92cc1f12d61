// Package config loads server settings from the environment, an optional
// .env file and command-line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/netip"
	"strings"
	"time"

	adminkit "github.com/Adrijan-Petek/miniapp-admin-kit"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DevSecret is the signing secret used outside production when
// ADMIN_JWT_SECRET is unset. Production refuses it.
const DevSecret = "change_me_dev_secret"

const (
	defaultAdminUsername = "admin"
	defaultAdminPassword = "password"
)

// Config is the resolved server configuration.
type Config struct {
	Env        string
	ServerAddr string

	JWTSecret     string
	AdminUsername string
	AdminPassword string

	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LogLevel  string
	LogFormat string

	LoginMaxAttempts int
	LoginCooldown    time.Duration
	IPThrottle       bool

	CookieDomain string
	AuditBuffer  int

	// TrustedProxies are the peers allowed to set X-Forwarded-For.
	TrustedProxies []netip.Prefix
}

// Production reports whether APP_ENV is "production".
func (c *Config) Production() bool {
	return c.Env == "production"
}

// UsesStaticAdmin reports whether logins are checked against ADMIN_USERNAME and
// ADMIN_PASSWORD instead of the users table.
func (c *Config) UsesStaticAdmin() bool {
	return c.DatabaseURL == ""
}

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"addr":            "server_addr",
	"env":             "app_env",
	"database-url":    "database_url",
	"redis-addr":      "redis_addr",
	"log-level":       "log_level",
	"log-format":      "log_format",
	"trusted-proxies": "trusted_proxies",
}

// Load reads configuration. envFile, when non-empty, is loaded with godotenv
// first; a missing file is ignored. Variables already set in the process
// environment win over the file, and set flags win over both.
func Load(flags *pflag.FlagSet, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetDefault("app_env", "development")
	v.SetDefault("server_addr", ":3000")
	v.SetDefault("admin_jwt_secret", "")
	v.SetDefault("admin_username", defaultAdminUsername)
	v.SetDefault("admin_password", defaultAdminPassword)
	v.SetDefault("database_url", "")
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "")
	v.SetDefault("login_max_attempts", 5)
	v.SetDefault("login_cooldown", "15m")
	v.SetDefault("login_ip_throttle", true)
	v.SetDefault("cookie_domain", "")
	v.SetDefault("audit_buffer", 256)
	v.SetDefault("trusted_proxies", "")
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{
		Env:              strings.ToLower(strings.TrimSpace(v.GetString("app_env"))),
		ServerAddr:       v.GetString("server_addr"),
		JWTSecret:        v.GetString("admin_jwt_secret"),
		AdminUsername:    v.GetString("admin_username"),
		AdminPassword:    v.GetString("admin_password"),
		DatabaseURL:      v.GetString("database_url"),
		RedisAddr:        v.GetString("redis_addr"),
		RedisPassword:    v.GetString("redis_password"),
		RedisDB:          v.GetInt("redis_db"),
		LogLevel:         v.GetString("log_level"),
		LogFormat:        v.GetString("log_format"),
		LoginMaxAttempts: v.GetInt("login_max_attempts"),
		LoginCooldown:    v.GetDuration("login_cooldown"),
		IPThrottle:       v.GetBool("login_ip_throttle"),
		CookieDomain:     v.GetString("cookie_domain"),
		AuditBuffer:      v.GetInt("audit_buffer"),
	}

	proxies, err := ParseTrustedProxies(v.GetString("trusted_proxies"))
	if err != nil {
		return nil, err
	}
	cfg.TrustedProxies = proxies

	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
		if cfg.Production() {
			cfg.LogFormat = "json"
		}
	}
	if cfg.JWTSecret == "" && !cfg.Production() {
		cfg.JWTSecret = DevSecret
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseTrustedProxies reads a comma separated list of CIDRs or single
// addresses, e.g. "10.0.0.0/8, 127.0.0.1".
func ParseTrustedProxies(list string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if strings.Contains(item, "/") {
			p, err := netip.ParsePrefix(item)
			if err != nil {
				return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(item)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

// Validate rejects settings that are unsafe or unusable.
func (c *Config) Validate() error {
	switch c.Env {
	case "development", "test", "production":
	default:
		return fmt.Errorf("APP_ENV must be development, test or production, got %q", c.Env)
	}
	if c.Production() {
		if c.JWTSecret == "" || c.JWTSecret == DevSecret {
			return errors.New("ADMIN_JWT_SECRET must be set in production")
		}
		if c.UsesStaticAdmin() && c.AdminPassword == defaultAdminPassword {
			return errors.New("ADMIN_PASSWORD must be changed in production")
		}
	}
	if len(c.JWTSecret) < 16 {
		return errors.New("ADMIN_JWT_SECRET must be at least 16 bytes")
	}
	if c.LoginMaxAttempts <= 0 {
		return errors.New("LOGIN_MAX_ATTEMPTS must be > 0")
	}
	if c.LoginCooldown <= 0 {
		return errors.New("LOGIN_COOLDOWN must be > 0")
	}
	if c.AuditBuffer < 0 {
		return errors.New("AUDIT_BUFFER must be >= 0")
	}
	return nil
}

// Adminkit maps the server settings onto the library configuration.
func (c *Config) Adminkit() adminkit.Config {
	cfg := adminkit.DefaultConfig()
	cfg.ProductionMode = c.Production()
	cfg.Session.Secret = []byte(c.JWTSecret)
	cfg.Cookie.Secure = c.Production()
	cfg.Cookie.Domain = c.CookieDomain
	cfg.Cookie.SameSite = http.SameSiteLaxMode
	cfg.Login.MaxAttempts = c.LoginMaxAttempts
	cfg.Login.Cooldown = c.LoginCooldown
	cfg.Login.EnableIPThrottle = c.IPThrottle
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = c.AuditBuffer
	return cfg
}
