// Package password hashes and verifies admin passwords.
//
// New hashes are Argon2id in PHC form:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Verify also accepts bcrypt hashes ($2a$, $2b$, $2y$) so accounts seeded by
// older tooling keep working. NeedsUpgrade reports true for those, and for
// Argon2id hashes produced with weaker parameters, so callers can rehash after
// a successful login.
//
// ValidatePolicy enforces the admin password rules before hashing. This
// package never stores or logs passwords.
package password
