// Package middleware gates net/http handlers on admin sessions.
//
// A Guard wraps anything that can validate a request, normally *adminkit.Engine:
//
//   - [Guard.RequireSession] validates the session cookie and stores the
//     session in the request context. Failure answers 401 JSON, or redirects to
//     Options.LoginPath for page routes.
//   - [Guard.RequirePermission], [Guard.RequireResource] and [Guard.RequireRole]
//     run after RequireSession and answer 403 JSON when the session lacks the
//     capability, resource or role.
//
// Guards never parse tokens themselves. Denials are reported to the validator
// when it implements DenialRecorder.
package middleware
