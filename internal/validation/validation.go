// Package validation provides input validation for the administrative and
// redemption APIs. Product names are validated in their normalized form;
// the normalization itself lives in the domain package.
package validation

import "fmt"

// isLower returns true if the byte is a lowercase ASCII letter.
func isLower(b byte) bool {
	return b >= 'a' && b <= 'z'
}

// isNum returns true if the byte is an ASCII digit.
func isNum(b byte) bool {
	return b >= '0' && b <= '9'
}

// ValidateProductName validates an already-normalized product name.
// Normalized names are non-empty and contain only lowercase letters,
// digits, hyphens, or underscores.
func ValidateProductName(name string) error {
	if name == "" {
		return fmt.Errorf("product name must not be empty after normalization")
	}
	if len(name) > 64 {
		return fmt.Errorf("product name must be 64 characters or fewer")
	}
	for _, b := range []byte(name) {
		if !isLower(b) && !isNum(b) && b != '-' && b != '_' {
			return fmt.Errorf("product names can only contain lowercase letters, numbers, hyphens, or underscores")
		}
	}
	return nil
}

// ValidateActorID validates a redeemer or tenant identifier as supplied by
// the gateway. Identifiers are opaque platform ids; they must be non-empty,
// printable, and bounded.
func ValidateActorID(field, id string) error {
	if id == "" {
		return fmt.Errorf("%s must not be empty", field)
	}
	if len(id) > 128 {
		return fmt.Errorf("%s must be 128 characters or fewer", field)
	}
	for _, b := range []byte(id) {
		if b <= ' ' || b == 0x7f {
			return fmt.Errorf("%s must not contain whitespace or control characters", field)
		}
	}
	return nil
}

// ValidateKeyInput validates a plaintext key as submitted for redemption or
// lookup. The key is canonicalized elsewhere; this only rejects inputs that
// cannot possibly be a key.
func ValidateKeyInput(key string) error {
	if key == "" {
		return fmt.Errorf("key must not be empty")
	}
	if len(key) > 256 {
		return fmt.Errorf("key must be 256 characters or fewer")
	}
	return nil
}
