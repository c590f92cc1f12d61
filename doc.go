// Package adminkit gates the miniapp admin area with signed, time-limited session
// tokens and a fixed role to permission table.
//
// The [Authority] is the core: [Authority.Issue] turns an already verified
// [Identity] into a signed token, and [Authority.Verify] turns a token back into
// a [Session] or reports the caller as unauthenticated. Every verification
// failure (missing, malformed, expired, forged) folds into the same negative
// result.
//
// The [Engine], assembled through [Builder], wraps the authority with a
// credential check, login throttling, audit events and metrics. It is safe for
// concurrent use after [Builder.Build].
//
// # Architecture boundaries
//
// adminkit is the public surface. Token encoding lives in jwt/, the role table in
// permission/, HTTP guards in middleware/. Rate limiting and audit dispatch live
// under internal/ and are never exported directly.
//
// # What this package must NOT do
//
//   - Keep a server-side session store. Expiry is the only termination.
//   - Let a verification error escape as anything other than ok == false.
//   - Mutate the role table at runtime.
package adminkit
