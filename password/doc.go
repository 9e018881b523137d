// Package password provides Argon2id hashing with PHC-encoded output and
// the rolling password-history guard.
package password
