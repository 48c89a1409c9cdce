//go:build !darwin

package secrets

// IsKeychainLockedError is always false outside macOS.
func IsKeychainLockedError(string) bool { return false }

// CheckKeychainLocked is always false outside macOS.
func CheckKeychainLocked() bool { return false }

// UnlockKeychain does nothing outside macOS.
func UnlockKeychain() error { return nil }

// EnsureKeychainAccess does nothing outside macOS.
func EnsureKeychainAccess() error { return nil }
