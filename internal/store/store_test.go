package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/Adrijan-Petek/miniapp-admin-kit/credential"
	"github.com/Adrijan-Petek/miniapp-admin-kit/internal/audit"
	"github.com/Adrijan-Petek/miniapp-admin-kit/permission"
	"github.com/DATA-DOG/go-sqlmock"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

var userColumns = []string{"id", "username", "email", "password_hash", "role", "is_active", "last_login"}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("expectations: %v", err)
		}
		db.Close()
	})
	return db, mock
}

func TestFindByUsername(t *testing.T) {
	db, mock := newMock(t)
	last := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, username, email, password_hash, role, is_active, last_login")).
		WithArgs("superadmin").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(int64(7), "superadmin", "admin@example.com", "$argon2id$...", "super_admin", true, last))

	rec, err := NewUserRepo(db).FindByUsername(context.Background(), "superadmin")
	if err != nil {
		t.Fatalf("FindByUsername: %v", err)
	}
	if rec.ID != "7" || rec.Role != "super_admin" || !rec.Active || rec.Email != "admin@example.com" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.LastLogin == nil || !rec.LastLogin.Equal(last) {
		t.Fatalf("unexpected last login: %v", rec.LastLogin)
	}
}

func TestFindByUsernameNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SELECT id, username").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(userColumns))

	_, err := NewUserRepo(db).FindByUsername(context.Background(), "ghost")
	if !errors.Is(err, credential.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestFindByUsernameBackendError(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SELECT id, username").
		WithArgs("alice").
		WillReturnError(errors.New("connection reset"))

	_, err := NewUserRepo(db).FindByUsername(context.Background(), "alice")
	if err == nil || errors.Is(err, credential.ErrUserNotFound) {
		t.Fatalf("expected backend error, got %v", err)
	}
}

func TestCreateAndExists(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)")).
		WithArgs("superadmin").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users (username, email, password_hash, role, is_active)")).
		WithArgs("superadmin", "admin@example.com", "hash", "super_admin").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	ctx := context.Background()
	exists, err := repo.ExistsByUsername(ctx, "superadmin")
	if err != nil || exists {
		t.Fatalf("unexpected exists=%v err=%v", exists, err)
	}
	id, err := repo.Create(ctx, NewUser{
		Username:     "superadmin",
		Email:        "admin@example.com",
		PasswordHash: "hash",
		Role:         permission.RoleSuperAdmin,
	})
	if err != nil || id != "1" {
		t.Fatalf("unexpected id=%q err=%v", id, err)
	}
}

func TestCreateRejectsUnknownRole(t *testing.T) {
	db, _ := newMock(t)
	if _, err := NewUserRepo(db).Create(context.Background(), NewUser{Username: "x", Role: "owner"}); err == nil {
		t.Fatal("expected unknown role to be rejected")
	}
}

func TestUpdateLastLoginAndPasswordHash(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)
	at := time.Unix(1_700_000_000, 0).UTC()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET last_login = $1")).
		WithArgs(at, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET password_hash = $1")).
		WithArgs("new-hash", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := context.Background()
	if err := repo.UpdateLastLogin(ctx, "7", at); err != nil {
		t.Fatalf("UpdateLastLogin: %v", err)
	}
	if err := repo.UpdatePasswordHash(ctx, "7", "new-hash"); !errors.Is(err, credential.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound for zero rows, got %v", err)
	}
	if err := repo.UpdateLastLogin(ctx, "admin", at); err == nil {
		t.Fatal("expected non-numeric id to be rejected")
	}
}

type detailsArg struct {
	t    *testing.T
	want auditDetails
}

func (d detailsArg) Match(v driver.Value) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	var got auditDetails
	if err := json.Unmarshal([]byte(s), &got); err != nil {
		d.t.Errorf("details not JSON: %v", err)
		return false
	}
	for k, want := range d.want.Metadata {
		if got.Metadata[k] != want {
			d.t.Errorf("details metadata %s = %q, want %q", k, got.Metadata[k], want)
			return false
		}
	}
	return got.Username == d.want.Username && got.Role == d.want.Role && got.Success == d.want.Success && got.Error == d.want.Error
}

func TestAuditLogSink(t *testing.T) {
	db, mock := newMock(t)
	ts := time.Unix(1_700_000_000, 0).UTC()

	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(
			int64(7),
			"access_denied",
			"treasury",
			"sid-1",
			detailsArg{t: t, want: auditDetails{Username: "mod", Role: "moderator", Error: "permission denied"}},
			"10.0.0.1",
			nil,
			ts,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(nil, "login_failure", "session", nil, sqlmock.AnyArg(), nil, nil, sqlmock.AnyArg()).
		WillReturnError(errors.New("disk full"))

	logger, hook := logtest.NewNullLogger()
	sink := NewAuditLogSink(db, logger)

	sink.Emit(context.Background(), audit.Event{
		Timestamp: ts,
		EventType: audit.EventAccessDenied,
		Subject:   "7",
		Username:  "mod",
		Role:      "moderator",
		SessionID: "sid-1",
		Resource:  "treasury",
		IP:        "10.0.0.1",
		Error:     "permission denied",
	})
	sink.Emit(context.Background(), audit.Event{
		EventType: audit.EventLoginFailure,
		Username:  "admin",
		Subject:   "admin",
	})

	if len(hook.AllEntries()) != 1 {
		t.Fatalf("expected insert failure to be logged once, got %d entries", len(hook.AllEntries()))
	}
}

func TestAuditLogSinkBoundsUnknownResource(t *testing.T) {
	db, mock := newMock(t)
	requested := strings.Repeat("a", 300)

	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(
			int64(3),
			"access_denied",
			permission.OtherLabel,
			"sid-2",
			detailsArg{t: t, want: auditDetails{
				Username: "viewer",
				Role:     "viewer",
				Error:    "permission denied",
				Metadata: map[string]string{"resource": requested[:maxDetailValue]},
			}},
			nil,
			nil,
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	logger, hook := logtest.NewNullLogger()
	sink := NewAuditLogSink(db, logger)

	sink.Emit(context.Background(), audit.Event{
		EventType: audit.EventAccessDenied,
		Subject:   "3",
		Username:  "viewer",
		Role:      "viewer",
		SessionID: "sid-2",
		Resource:  requested,
		Error:     "permission denied",
		Metadata:  map[string]string{"resource": requested},
	})

	if len(hook.AllEntries()) != 0 {
		t.Fatalf("unexpected log entries: %v", hook.AllEntries())
	}
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	s := strings.Repeat("é", 100) // two bytes each
	got := truncate(s, 5)
	if got != "éé" {
		t.Fatalf("truncate = %q, want %q", got, "éé")
	}
	if truncate("short", 10) != "short" {
		t.Fatal("short strings must be returned unchanged")
	}
}
