// Package store persists administrators and audit records in PostgreSQL.
//
// The schema lives in embedded golang-migrate files (migrations/*.sql) and is
// applied by RunMigrations. UserRepo satisfies credential.UserFinder together
// with the optional last-login and password-upgrade hooks. AuditLogSink writes
// audit events into audit_logs.
package store
