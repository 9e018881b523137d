package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// NewNumericCode draws a uniformly random numeric code of the given length
// from crypto/rand. Leading zeros are allowed, so the code is always exactly
// digits characters long.
func NewNumericCode(digits int) (string, error) {
	if digits < 4 || digits > 10 {
		return "", errors.New("invalid code digits")
	}

	var b strings.Builder
	b.Grow(digits)

	max := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	code := b.String()
	if len(code) != digits {
		return "", fmt.Errorf("invalid code generation length")
	}
	return code, nil
}

// HashToken returns the SHA-256 digest of a bearer token. The denylist keys
// on the digest so raw tokens are never written to Redis.
func HashToken(token string) [32]byte {
	return sha256.Sum256([]byte(token))
}
