package state

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Error taxonomy shared by every component. Callers classify with errors.Is;
// components wrap these with fmt.Errorf("%w: ...") to add detail.
var (
	ErrValidation           = errors.New("validation failed")
	ErrDuplicate            = errors.New("already exists")
	ErrInvariantViolation   = errors.New("invariant violation")
	ErrIndex                = errors.New("index out of range")
	ErrUnauthorized         = errors.New("not logged in")
	ErrInvalidCredentials   = errors.New("invalid username or password")
	ErrStorageCorrupt       = errors.New("stored data is corrupt")
	ErrStorageQuotaExceeded = errors.New("storage quota exceeded")
)

// ParseIndex converts a UI-supplied position into an int.
// Anything that is not a plain non-negative integer is an ErrIndex.
func ParseIndex(s string) (int, error) {
	s = strings.TrimSpace(s)
	idx, err := strconv.Atoi(s)
	if err != nil || idx < 0 {
		return 0, fmt.Errorf("%w: %q", ErrIndex, s)
	}
	return idx, nil
}

// CheckIndex reports ErrIndex when idx does not address one of n items
func CheckIndex(idx, n int) error {
	if idx < 0 || idx >= n {
		return fmt.Errorf("%w: %d (have %d)", ErrIndex, idx, n)
	}
	return nil
}
