package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/Adrijan-Petek/miniapp-admin-kit/internal/audit"
	"github.com/Adrijan-Petek/miniapp-admin-kit/permission"
	"github.com/sirupsen/logrus"
)

const insertAuditLog = `INSERT INTO audit_logs
(user_id, action, resource, resource_id, details, ip_address, user_agent, timestamp)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// maxDetailValue caps metadata values copied into details. Resource names come
// from request paths and are attacker controlled.
const maxDetailValue = 128

// AuditLogSink writes audit events into audit_logs. Insert failures are logged
// and otherwise ignored.
type AuditLogSink struct {
	db      *sql.DB
	logger  logrus.FieldLogger
	timeout time.Duration
}

// NewAuditLogSink returns a sink over db.
func NewAuditLogSink(db *sql.DB, logger logrus.FieldLogger) *AuditLogSink {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &AuditLogSink{db: db, logger: logger, timeout: 5 * time.Second}
}

type auditDetails struct {
	Username string            `json:"username,omitempty"`
	Role     string            `json:"role,omitempty"`
	Success  bool              `json:"success"`
	Error    string            `json:"error,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Emit inserts event. It runs on the dispatcher goroutine, so it uses its own
// timeout instead of the request context.
func (s *AuditLogSink) Emit(_ context.Context, event audit.Event) {
	if s == nil || s.db == nil {
		return
	}

	// The resource column only holds known names; the requested name is kept,
	// truncated, in details.
	resource := "session"
	metadata := boundMetadata(event.Metadata)
	if event.Resource != "" {
		resource = permission.Label(event.Resource)
		if resource != event.Resource {
			if metadata == nil {
				metadata = make(map[string]string, 1)
			}
			metadata["resource"] = truncate(event.Resource, maxDetailValue)
		}
	}

	details, err := json.Marshal(auditDetails{
		Username: event.Username,
		Role:     event.Role,
		Success:  event.Success,
		Error:    event.Error,
		Metadata: metadata,
	})
	if err != nil {
		return
	}
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	_, err = s.db.ExecContext(ctx, insertAuditLog,
		userIDArg(event.Subject),
		event.EventType,
		resource,
		nullString(event.SessionID),
		string(details),
		nullString(event.IP),
		nullString(event.UserAgent),
		ts,
	)
	if err != nil {
		s.logger.WithError(err).WithField("audit", event.EventType).Warn("failed to persist audit event")
	}
}

// userIDArg maps a numeric subject to users.id. Subjects of the static admin
// are usernames and are stored as NULL.
func userIDArg(subject string) sql.NullInt64 {
	id, err := strconv.ParseInt(subject, 10, 64)
	if err != nil || id <= 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: id, Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boundMetadata(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = truncate(v, maxDetailValue)
	}
	return out
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
