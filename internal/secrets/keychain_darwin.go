//go:build darwin

package secrets

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// IsKeychainLockedError reports whether a keychain error means the login
// keychain is locked.
func IsKeychainLockedError(errStr string) bool {
	return strings.Contains(errStr, "errSecInteractionNotAllowed") || strings.Contains(errStr, "-25308")
}

func loginKeychainPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "login.keychain-db"
	}
	return filepath.Join(home, "Library", "Keychains", "login.keychain-db")
}

// CheckKeychainLocked reports whether the login keychain is locked.
func CheckKeychainLocked() bool {
	cmd := exec.Command("security", "show-keychain-info", loginKeychainPath())
	return cmd.Run() != nil
}

// UnlockKeychain prompts for the login password through security(1).
func UnlockKeychain() error {
	cmd := exec.Command("security", "unlock-keychain", loginKeychainPath())
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("unlock keychain: %w", err)
	}
	return nil
}

// EnsureKeychainAccess unlocks the login keychain when it is locked and
// stdin is interactive.
func EnsureKeychainAccess() error {
	if os.Getenv(EnvKeyringBackend) == "file" || !CheckKeychainLocked() {
		return nil
	}
	if info, err := os.Stdin.Stat(); err != nil || info.Mode()&os.ModeCharDevice == 0 {
		return fmt.Errorf("keychain is locked; run: security unlock-keychain %s", loginKeychainPath())
	}
	fmt.Fprintln(os.Stderr, "Keychain is locked. Enter your login password to unlock it.")
	return UnlockKeychain()
}
