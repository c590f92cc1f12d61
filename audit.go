package adminkit

import (
	"context"
	"io"
	"time"

	"github.com/Adrijan-Petek/miniapp-admin-kit/internal/audit"
	"github.com/sirupsen/logrus"
)

// AuditEvent is the record handed to audit sinks.
type AuditEvent = audit.Event

// AuditSink receives audit events from the engine's background dispatcher.
type AuditSink = audit.Sink

// Audit event types.
const (
	AuditLoginSuccess     = audit.EventLoginSuccess
	AuditLoginFailure     = audit.EventLoginFailure
	AuditLoginRateLimited = audit.EventLoginRateLimited
	AuditLogout           = audit.EventLogout
	AuditAccessDenied     = audit.EventAccessDenied
)

// NoOpAuditSink discards events.
type NoOpAuditSink = audit.NoOpSink

// ChannelAuditSink delivers events on a buffered channel.
type ChannelAuditSink = audit.ChannelSink

// NewChannelAuditSink returns a sink with a channel of the given capacity.
func NewChannelAuditSink(buffer int) *ChannelAuditSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterAuditSink writes one JSON object per event to w.
func NewJSONWriterAuditSink(w io.Writer) AuditSink {
	return audit.NewJSONWriterSink(w)
}

// NewLogrusAuditSink logs each event through logger.
func NewLogrusAuditSink(logger logrus.FieldLogger) AuditSink {
	return audit.NewLogrusSink(logger)
}

func (e *Engine) emitAudit(ctx context.Context, eventType string, success bool, sess Session, username string, err error, metadata map[string]string) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Subject:   sess.Subject,
		Username:  username,
		Role:      string(sess.Role),
		SessionID: sess.ID,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if event.Username == "" {
		event.Username = sess.Username
	}
	if err != nil {
		event.Error = err.Error()
	}
	if metadata != nil {
		event.Resource = metadata["resource"]
	}
	e.audit.Emit(ctx, event)
}
