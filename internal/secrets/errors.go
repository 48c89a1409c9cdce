package secrets

import (
	"fmt"
	"strings"
)

// wrapKeychainError adds recovery steps to locked-keychain errors. Other
// errors are returned unchanged.
func wrapKeychainError(err error) error {
	if err == nil {
		return nil
	}
	if !IsKeychainLockedError(err.Error()) && !strings.Contains(err.Error(), "errSecInteractionNotAllowed") {
		return err
	}
	return fmt.Errorf("%w\n\nThe keychain is locked. Unlock it with:\n  security unlock-keychain ~/Library/Keychains/login.keychain-db\nor use the file backend: %s=file", err, EnvKeyringBackend)
}
