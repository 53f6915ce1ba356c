package keymaterial

import (
	"fmt"
	"strings"
)

// WeakFunc reports whether a secret matches a weak pattern. The policy is
// pluggable so deployments can extend or replace the default denylist without
// touching the derivation code.
type WeakFunc func(secret string) bool

// ValidateSecret checks that the secret is exactly SecretLength alphanumeric
// characters and, when weak is non-nil, that it does not match a weak pattern.
func ValidateSecret(secret string, weak WeakFunc) error {
	if len(secret) != SecretLength {
		return fmt.Errorf("%w (provided: %d)", ErrSecretLength, len(secret))
	}
	for _, r := range secret {
		if !isAlnum(r) {
			return ErrSecretCharset
		}
	}
	if weak != nil && weak(secret) {
		return ErrWeakSecret
	}
	return nil
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// DefaultWeak is the default weak-pattern predicate. It rejects secrets made
// of a single repeated character and simple repeating numeric or alphabetic
// runs, matching the denylist enforced at context creation.
func DefaultWeak(secret string) bool {
	if allSameCharacter(secret) {
		return true
	}
	lower := strings.ToLower(secret)
	for _, pattern := range weakRuns {
		if lower == pattern {
			return true
		}
	}
	return false
}

// weakRuns holds known weak repeating patterns, pre-lowered and trimmed to
// SecretLength.
var weakRuns = func() []string {
	seeds := []string{
		"0123456789",
		"1234567890",
		"9876543210",
		"abcdefghij",
		"abcdefghijklmnopqrstuvwxyz",
	}
	runs := make([]string, 0, len(seeds))
	for _, seed := range seeds {
		repeated := strings.Repeat(seed, SecretLength/len(seed)+1)
		runs = append(runs, repeated[:SecretLength])
	}
	return runs
}()

func allSameCharacter(s string) bool {
	if s == "" {
		return false
	}
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}
