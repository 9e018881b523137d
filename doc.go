// Package digivahan implements the account lifecycle and secure-access core
// of the Digivahan backend: OTP-gated registration and login, password
// history enforcement, bearer token issuance with denylist revocation,
// suspension and scheduled-deletion state machines, and the per-vehicle
// security-code vault gate.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// digivahan is the public surface. It exposes [Engine], [Builder], [Config],
// the persistence interfaces ([AccountStore], [DeletionRecordStore],
// [QRAssignmentStore], [GarageStore], [AdminStore]), and the delivery
// interface [OTPChannel]. Ephemeral state handling — one-time codes, pending
// registration payloads, cooldown markers, daily counters, the token
// denylist — lives under internal/ and is never exported.
//
// Durable records are owned by whatever implements the persistence
// interfaces; store/mongo provides the document-database adapter. All
// ephemeral secrets live in Redis with mandatory expiry.
//
// # What this package must NOT do
//
//   - Expose Redis clients, internal stores, or key layouts in its public API.
//   - Talk to any delivery provider directly; OTP dispatch goes through the
//     injected [OTPChannel].
//   - Perform I/O outside of Engine methods (construction via Builder is
//     allocation-only until Build).
package digivahan
