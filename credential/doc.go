// Package credential provides adminkit.CredentialChecker implementations.
//
// StaticChecker accepts one configured administrator, typically taken from the
// ADMIN_USERNAME and ADMIN_PASSWORD environment variables. StoreChecker looks
// administrators up through a UserFinder, such as the Postgres repository in
// internal/store, and verifies their stored password hash.
//
// Both return errors wrapping adminkit.ErrLoginFailed for wrong credentials so
// the engine can count them against the login budget.
package credential
