// Package mongo implements the digivahan store interfaces on MongoDB.
//
// One DB wraps a single database handle and hands out the per-collection
// stores. Conditional state transitions (suspension windows, deletion
// scheduling, password commits) are expressed as filtered single-document
// updates, so each transition is atomic without transactions.
//
// # What this package must NOT do
//
//   - Enforce flow rules (OTP, rate limits, token checks); only state
//     preconditions encoded in update filters live here.
//   - Touch Redis.
package mongo
