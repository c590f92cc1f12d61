// Command adminkit-server serves the admin login API and the gated admin area.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	adminkit "github.com/Adrijan-Petek/miniapp-admin-kit"
	"github.com/Adrijan-Petek/miniapp-admin-kit/credential"
	"github.com/Adrijan-Petek/miniapp-admin-kit/internal/config"
	"github.com/Adrijan-Petek/miniapp-admin-kit/internal/httpapi"
	"github.com/Adrijan-Petek/miniapp-admin-kit/internal/logging"
	"github.com/Adrijan-Petek/miniapp-admin-kit/internal/store"
	"github.com/Adrijan-Petek/miniapp-admin-kit/metrics"
	"github.com/Adrijan-Petek/miniapp-admin-kit/password"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "adminkit-server: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("adminkit-server", pflag.ContinueOnError)
	flags.String("addr", ":3000", "listen address")
	flags.String("env", "development", "environment: development, test or production")
	flags.String("database-url", "", "PostgreSQL URL; empty uses the static admin account")
	flags.String("redis-addr", "", "Redis address for shared login throttling")
	flags.String("log-level", "info", "log level")
	flags.String("log-format", "", "log format: json or text")
	flags.String("trusted-proxies", "", "comma separated proxy CIDRs allowed to set X-Forwarded-For")
	envFile := flags.String("env-file", ".env", "optional dotenv file")
	migrateOnStart := flags.Bool("migrate", false, "apply database migrations before serving")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(flags, *envFile)
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return err
	}
	log := logger.WithField("component", "adminkit-server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	builder := adminkit.New().
		WithConfig(cfg.Adminkit()).
		WithLogger(log).
		WithMetrics(metrics.NewCollector(registry))

	var db *sql.DB
	if cfg.UsesStaticAdmin() {
		log.WithField("username", cfg.AdminUsername).Warn("no DATABASE_URL, using the static admin account")
		builder.WithCredentialChecker(credential.NewStaticChecker(cfg.AdminUsername, cfg.AdminPassword))
	} else {
		if *migrateOnStart {
			if err := store.RunMigrations(cfg.DatabaseURL); err != nil {
				return err
			}
			log.Info("migrations applied")
		}
		db, err = store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()

		checker, err := newStoreChecker(store.NewUserRepo(db), log)
		if err != nil {
			return err
		}
		builder.WithCredentialChecker(checker).
			WithAuditSink(adminkit.NewLogrusAuditSink(log)).
			WithAuditSink(store.NewAuditLogSink(db, log))
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		builder.WithRedis(rdb)
	}

	engine, err := builder.Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := metrics.RegisterAuditDropped(registry, engine); err != nil {
		return err
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Engine:  engine,
		Logger:  logger,
		Metrics: metrics.Handler(registry),
		Ready:   readiness(db, rdb),

		TrustedProxies: cfg.TrustedProxies,
	})

	server := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{"addr": server.Addr, "env": cfg.Env}).Info("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}

// newStoreChecker verifies logins against users and rehashes legacy or weak
// hashes with the default Argon2id parameters after a successful login.
func newStoreChecker(users credential.UserFinder, log logrus.FieldLogger) (*credential.StoreChecker, error) {
	hasher, err := password.NewHasher(password.DefaultParams())
	if err != nil {
		return nil, err
	}
	return credential.NewStoreChecker(users,
		credential.WithHasher(hasher),
		credential.WithLogger(log),
	)
}

func readiness(db *sql.DB, rdb *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				return fmt.Errorf("database: %w", err)
			}
		}
		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
		}
		return nil
	}
}
