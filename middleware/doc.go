// Package middleware exposes HTTP middleware adapters enforcing bearer
// authentication on top of digivahan.Engine.
//
// # Guards
//
//   - [Guard] — user token enforcement via Engine.Authenticate.
//   - [AdminGuard] — admin token enforcement via Engine.AdminAuthenticate.
//
// Each guard reads the Authorization header, calls the engine, and injects
// the resolved identity into the request context.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Access Redis or Mongo (Engine handles I/O).
//   - Make authorization decisions beyond pass/reject from the Engine.
package middleware
