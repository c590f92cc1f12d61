// Package permission defines the closed set of admin roles, the capability flags a
// role grants, and the immutable role table the session authority consults.
//
// # Sets
//
// A [Set] is a 64-bit mask with one bit per [Capability]. Only the low eight bits
// are meaningful; any other bit makes a decoded set invalid.
//
// # Architecture boundaries
//
// This package is a pure in-memory lookup with no I/O. The role table is built
// once at package initialization and never mutated afterwards.
//
// # What this package must NOT do
//
//   - Access the network, Redis or a database.
//   - Import adminkit, jwt or middleware.
//   - Expose a way to register roles or capabilities at runtime.
package permission
