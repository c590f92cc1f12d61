package config

import (
	"net/netip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

var configEnv = []string{
	"APP_ENV", "SERVER_ADDR", "ADMIN_JWT_SECRET", "ADMIN_USERNAME", "ADMIN_PASSWORD",
	"DATABASE_URL", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "LOG_LEVEL", "LOG_FORMAT",
	"LOGIN_MAX_ATTEMPTS", "LOGIN_COOLDOWN", "LOGIN_IP_THROTTLE", "COOKIE_DOMAIN", "AUDIT_BUFFER",
	"TRUSTED_PROXIES",
}

// clearEnv unsets every variable Load reads and restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnv {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(nil, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Env != "development" || cfg.ServerAddr != ":3000" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.JWTSecret != DevSecret {
		t.Fatalf("expected dev secret fallback, got %q", cfg.JWTSecret)
	}
	if cfg.AdminUsername != "admin" || cfg.AdminPassword != "password" || !cfg.UsesStaticAdmin() {
		t.Fatalf("unexpected static admin defaults: %+v", cfg)
	}
	if cfg.LoginMaxAttempts != 5 || cfg.LoginCooldown != 15*time.Minute || !cfg.IPThrottle {
		t.Fatalf("unexpected login defaults: %+v", cfg)
	}
	if cfg.LogFormat != "text" {
		t.Fatalf("expected text logs outside production, got %q", cfg.LogFormat)
	}
	if len(cfg.TrustedProxies) != 0 {
		t.Fatalf("no proxy should be trusted by default: %v", cfg.TrustedProxies)
	}

	ak := cfg.Adminkit()
	if ak.Cookie.Secure || ak.ProductionMode || string(ak.Session.Secret) != DevSecret {
		t.Fatalf("unexpected adminkit config: %+v", ak)
	}
	if err := ak.Validate(); err != nil {
		t.Fatalf("adminkit config must validate: %v", err)
	}
}

func TestLoadProductionRequiresSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("ADMIN_PASSWORD", "Str0ngPassword")

	if _, err := Load(nil, ""); err == nil {
		t.Fatal("expected missing secret to fail in production")
	}

	t.Setenv("ADMIN_JWT_SECRET", DevSecret)
	if _, err := Load(nil, ""); err == nil {
		t.Fatal("expected dev secret to fail in production")
	}

	t.Setenv("ADMIN_JWT_SECRET", "a-real-production-secret-value")
	cfg, err := Load(nil, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogFormat != "json" {
		t.Fatalf("expected json logs in production, got %q", cfg.LogFormat)
	}
	ak := cfg.Adminkit()
	if !ak.Cookie.Secure || !ak.ProductionMode {
		t.Fatal("production must force secure cookies")
	}
	if err := ak.Validate(); err != nil {
		t.Fatalf("adminkit config must validate: %v", err)
	}
}

func TestLoadProductionRejectsDefaultPassword(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("ADMIN_JWT_SECRET", "a-real-production-secret-value")

	if _, err := Load(nil, ""); err == nil {
		t.Fatal("expected default admin password to fail in production")
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/admin")
	if _, err := Load(nil, ""); err != nil {
		t.Fatalf("database-backed logins do not use the static password: %v", err)
	}
}

func TestLoadEnvFileAndOverrides(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := "ADMIN_USERNAME=fromfile\nLOGIN_MAX_ATTEMPTS=9\nLOGIN_COOLDOWN=90s\nREDIS_ADDR=redis:6379\n"
	if err := os.WriteFile(envFile, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Cleanup(func() {
		for _, key := range []string{"ADMIN_USERNAME", "LOGIN_MAX_ATTEMPTS", "LOGIN_COOLDOWN", "REDIS_ADDR"} {
			os.Unsetenv(key)
		}
	})

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("addr", ":3000", "listen address")
	flags.String("redis-addr", "", "redis address")
	if err := flags.Parse([]string{"--addr", ":9999"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load(flags, envFile)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AdminUsername != "fromfile" || cfg.LoginMaxAttempts != 9 || cfg.LoginCooldown != 90*time.Second {
		t.Fatalf("env file values not applied: %+v", cfg)
	}
	if cfg.ServerAddr != ":9999" {
		t.Fatalf("flag must override default, got %q", cfg.ServerAddr)
	}
	if cfg.RedisAddr != "redis:6379" {
		t.Fatalf("unset flag must not hide env value, got %q", cfg.RedisAddr)
	}
}

func TestLoadMissingEnvFileIgnored(t *testing.T) {
	clearEnv(t)
	if _, err := Load(nil, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing env file must be ignored: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	base := func() *Config {
		return &Config{Env: "development", JWTSecret: DevSecret, LoginMaxAttempts: 5, LoginCooldown: time.Minute}
	}
	mutations := map[string]func(*Config){
		"unknown env":    func(c *Config) { c.Env = "staging" },
		"short secret":   func(c *Config) { c.JWTSecret = "short" },
		"zero attempts":  func(c *Config) { c.LoginMaxAttempts = 0 },
		"zero cooldown":  func(c *Config) { c.LoginCooldown = 0 },
		"negative audit": func(c *Config) { c.AuditBuffer = -1 },
	}
	if err := base().Validate(); err != nil {
		t.Fatalf("base config must be valid: %v", err)
	}
	for name, mutate := range mutations {
		c := base()
		mutate(c)
		if err := c.Validate(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadTrustedProxies(t *testing.T) {
	clearEnv(t)
	t.Setenv("TRUSTED_PROXIES", " 10.0.0.0/8, 127.0.0.1 ,::1,192.168.1.7/24")

	cfg, err := Load(nil, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("127.0.0.1/32"),
		netip.MustParsePrefix("::1/128"),
		netip.MustParsePrefix("192.168.1.0/24"),
	}
	if len(cfg.TrustedProxies) != len(want) {
		t.Fatalf("expected %v, got %v", want, cfg.TrustedProxies)
	}
	for i := range want {
		if cfg.TrustedProxies[i] != want[i] {
			t.Fatalf("prefix %d: expected %v, got %v", i, want[i], cfg.TrustedProxies[i])
		}
	}
}

func TestParseTrustedProxiesRejectsGarbage(t *testing.T) {
	for _, in := range []string{"proxy.local", "10.0.0.0/33", "300.1.1.1"} {
		if _, err := ParseTrustedProxies(in); err == nil {
			t.Fatalf("%q: expected error", in)
		}
	}
	clearEnv(t)
	t.Setenv("TRUSTED_PROXIES", "not-an-ip")
	if _, err := Load(nil, ""); err == nil {
		t.Fatal("Load must reject an invalid TRUSTED_PROXIES entry")
	}
}
