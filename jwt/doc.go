// Package jwt wraps github.com/golang-jwt/jwt/v5 behind a small Manager
// with a fixed claim shape (account id plus contact claims) and per-issuer
// isolation. The user and admin authorities hold separate Managers with
// distinct keys and issuers; Parse rejects tokens whose issuer does not
// match, so the two token spaces never cross-validate.
package jwt
