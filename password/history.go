package password

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrSameAsCurrent is returned when the candidate matches the account's
	// current hash.
	ErrSameAsCurrent = errors.New("candidate matches current password")
	// ErrFoundInHistory is returned when the candidate matches one of the
	// historical hashes.
	ErrFoundInHistory = errors.New("candidate found in password history")
)

// History enforces the new-password-not-in-last-N invariant. All comparison
// goes through Argon2.Verify; plaintext equality is never used.
type History struct {
	hasher *Argon2
	depth  int
}

// NewHistory creates a guard checking up to depth historical hashes.
func NewHistory(hasher *Argon2, depth int) *History {
	return &History{
		hasher: hasher,
		depth:  depth,
	}
}

// Validate rejects a candidate matching the current hash (ErrSameAsCurrent)
// or any of the stored historical hashes (ErrFoundInHistory). The current
// hash is checked first; the history checks then run concurrently, since
// each Argon2 verification costs a full key derivation. A hash that cannot
// be verified at all surfaces as an error rather than passing the guard.
func (h *History) Validate(ctx context.Context, candidate, currentHash string, history []string) error {
	ok, err := h.hasher.Verify(candidate, currentHash)
	if err != nil {
		return err
	}
	if ok {
		return ErrSameAsCurrent
	}

	if len(history) > h.depth {
		history = history[:h.depth]
	}
	if len(history) == 0 {
		return nil
	}

	matched := make([]bool, len(history))
	failed := make([]error, len(history))
	var wg sync.WaitGroup
	for i, hash := range history {
		if hash == "" {
			continue
		}
		wg.Add(1)
		go func(i int, hash string) {
			defer wg.Done()
			ok, err := h.hasher.Verify(candidate, hash)
			if err != nil {
				failed[i] = err
				return
			}
			if ok {
				matched[i] = true
			}
		}(i, hash)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	for _, m := range matched {
		if m {
			return ErrFoundInHistory
		}
	}
	for _, err := range failed {
		if err != nil {
			return err
		}
	}
	return nil
}

// Shift prepends the hash being replaced and truncates to depth, so slot 1
// is always the most recently retired hash.
func Shift(history []string, replacedHash string, depth int) []string {
	if depth <= 0 {
		return nil
	}

	shifted := make([]string, 0, depth)
	shifted = append(shifted, replacedHash)
	for _, h := range history {
		if len(shifted) == depth {
			break
		}
		if h == "" {
			continue
		}
		shifted = append(shifted, h)
	}
	return shifted
}
