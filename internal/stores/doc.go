// Package stores implements the Redis-backed ephemeral secret stores:
// one-time codes with delete-on-consume semantics, pending-registration
// payloads, and the bearer-token denylist.
//
// # Design
//
// Every record carries a TTL; nothing in this package survives its expiry.
// Code consumption is linearized by the store itself: the WATCH/MULTI
// transaction in [OTPStore.Consume] deletes the key atomically with the
// successful match, so a second concurrent consume observes redis.Nil and
// fails as expired. No application-level locks are held.
//
// # What this package must NOT do
//
//   - Persist anything without an expiry.
//   - Import the root package or any flow logic.
//   - Store raw bearer tokens (the denylist keys on SHA-256 digests).
package stores
