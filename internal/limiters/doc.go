// Package limiters implements the Redis-backed send throttles for the OTP
// engine: the per-contact daily counter and the resend cooldown marker.
//
// The daily counter is a fixed window ending at local midnight: the key is
// atomically incremented, and its expiry is set to the seconds remaining
// until midnight only on the first increment of the day. The cooldown is a
// SET NX marker whose mere presence rejects the resend.
package limiters
