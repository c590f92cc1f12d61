package adminkit

import (
	"errors"

	"github.com/Adrijan-Petek/miniapp-admin-kit/internal/audit"
	"github.com/Adrijan-Petek/miniapp-admin-kit/internal/rate"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Builder assembles an Engine. It is single use.
type Builder struct {
	config  Config
	checker CredentialChecker
	redis   redis.UniversalClient
	sinks   []AuditSink
	metrics MetricsRecorder
	logger  logrus.FieldLogger

	built bool
}

// New returns a Builder holding DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithSecret sets the token signing secret.
func (b *Builder) WithSecret(secret []byte) *Builder {
	b.config.Session.Secret = append([]byte(nil), secret...)
	return b
}

// WithCredentialChecker sets the checker used by Login. Required.
func (b *Builder) WithCredentialChecker(c CredentialChecker) *Builder {
	b.checker = c
	return b
}

// WithRedis makes login throttling shared across replicas. Without it the
// engine throttles in memory.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAuditSink adds a sink. Events fan out to every added sink in order.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	if sink != nil {
		b.sinks = append(b.sinks, sink)
	}
	return b
}

// WithMetrics sets the metrics recorder.
func (b *Builder) WithMetrics(m MetricsRecorder) *Builder {
	b.metrics = m
	return b
}

// WithLogger sets the logger. Defaults to the logrus standard logger.
func (b *Builder) WithLogger(logger logrus.FieldLogger) *Builder {
	b.logger = logger
	return b
}

// Build validates the configuration and returns a ready Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.checker == nil {
		return nil, errors.New("credential checker required")
	}

	authority, err := NewAuthority(cfg.Session)
	if err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger = logger.WithField("component", "adminkit")

	metrics := b.metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}

	e := &Engine{
		config:    cfg,
		authority: authority,
		checker:   b.checker,
		metrics:   metrics,
		logger:    logger,
	}

	// -------- LOGIN THROTTLE --------
	limitCfg := rate.Config{
		EnableIPThrottle: cfg.Login.EnableIPThrottle,
		MaxAttempts:      cfg.Login.MaxAttempts,
		Cooldown:         cfg.Login.Cooldown,
	}
	if b.redis != nil {
		e.limiter = rate.NewRedisLimiter(b.redis, limitCfg)
	} else {
		mem := rate.NewMemoryLimiter(limitCfg, cfg.Login.Cooldown)
		e.limiter = mem
		e.stopper = mem.Stop
	}

	// -------- AUDIT --------
	var sink AuditSink
	switch len(b.sinks) {
	case 0:
		sink = audit.NewLogrusSink(logger)
	case 1:
		sink = b.sinks[0]
	default:
		sink = audit.MultiSink(append([]AuditSink(nil), b.sinks...))
	}
	e.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
		OnDrop: func(ev audit.Event) {
			logger.WithField("audit", ev.EventType).Warn("audit buffer full, event dropped")
		},
	}, sink)

	b.built = true
	return e, nil
}
