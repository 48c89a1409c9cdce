package secrets

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/99designs/keyring"

	"github.com/salmonumbrella/pms-cli/internal/config"
)

const (
	serviceName      = "pms-cli"
	tokenKeyPrefix   = "token:"
	defaultAccountID = "default_account"

	// EnvKeyringBackend selects the backend: auto, keychain or file.
	EnvKeyringBackend = "PMS_KEYRING_BACKEND"
	// EnvKeyringPassword unlocks the file backend without a prompt.
	EnvKeyringPassword = "PMS_KEYRING_PASSWORD"

	keyringOpenTimeout = 5 * time.Second
)

var (
	// ErrNotFound is returned when no token is stored under a profile.
	ErrNotFound = errors.New("token not found")

	errKeyringTimeout = errors.New("timed out opening keyring")

	keyringOpenFunc = keyring.Open
)

// Token is a stored credential pair for one profile.
type Token struct {
	Profile      string    `json:"profile"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	BaseURL      string    `json:"base_url,omitempty"`
	Username     string    `json:"username,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store persists tokens.
type Store interface {
	Keys() ([]string, error)
	SetToken(profile string, tok Token) error
	GetToken(profile string) (Token, error)
	DeleteToken(profile string) error
	ListTokens() ([]Token, error)
	GetDefaultAccount() (string, error)
	SetDefaultAccount(profile string) error
}

// KeyringStore is a Store backed by the OS keychain or an encrypted file.
type KeyringStore struct {
	ring keyring.Keyring
}

// KeyringBackendInfo records which backend was requested and where the
// value came from.
type KeyringBackendInfo struct {
	Value  string
	Source string
}

// ResolveKeyringBackendInfo reads the backend from the environment, then
// the config file, defaulting to auto.
func ResolveKeyringBackendInfo() (KeyringBackendInfo, error) {
	if v := strings.ToLower(strings.TrimSpace(os.Getenv(EnvKeyringBackend))); v != "" {
		return KeyringBackendInfo{Value: v, Source: "env"}, nil
	}
	cfg, err := config.ReadConfig()
	if err != nil {
		return KeyringBackendInfo{}, err
	}
	if v := strings.ToLower(strings.TrimSpace(cfg.KeyringBackend)); v != "" {
		return KeyringBackendInfo{Value: v, Source: "config"}, nil
	}
	return KeyringBackendInfo{Value: "auto", Source: "default"}, nil
}

func allowedBackends(info KeyringBackendInfo) ([]keyring.BackendType, error) {
	switch info.Value {
	case "", "auto":
		return nil, nil
	case "keychain":
		switch runtime.GOOS {
		case "darwin":
			return []keyring.BackendType{keyring.KeychainBackend}, nil
		case "windows":
			return []keyring.BackendType{keyring.WinCredBackend}, nil
		default:
			return []keyring.BackendType{keyring.SecretServiceBackend}, nil
		}
	case "file":
		return []keyring.BackendType{keyring.FileBackend}, nil
	default:
		return nil, fmt.Errorf("invalid keyring backend %q (expected auto|keychain|file)", info.Value)
	}
}

// shouldForceFileBackend is true on Linux with auto selection and no
// D-Bus session, where secret-service cannot work.
func shouldForceFileBackend(goos string, info KeyringBackendInfo, dbusAddr string) bool {
	return goos == "linux" && (info.Value == "" || info.Value == "auto") && strings.TrimSpace(dbusAddr) == ""
}

// shouldUseKeyringTimeout is true where secret-service may hang waiting
// for an unlock prompt.
func shouldUseKeyringTimeout(goos string, info KeyringBackendInfo, dbusAddr string) bool {
	return goos == "linux" && (info.Value == "" || info.Value == "auto") && strings.TrimSpace(dbusAddr) != ""
}

func fileKeyringPasswordFunc() keyring.PromptFunc {
	if password, ok := os.LookupEnv(EnvKeyringPassword); ok {
		return keyring.FixedStringPrompt(password)
	}
	return keyring.TerminalPrompt
}

func openKeyringWithTimeout(cfg keyring.Config, timeout time.Duration) (keyring.Keyring, error) {
	type result struct {
		ring keyring.Keyring
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		ring, err := keyringOpenFunc(cfg)
		ch <- result{ring: ring, err: err}
	}()

	select {
	case res := <-ch:
		return res.ring, res.err
	case <-time.After(timeout):
		return nil, fmt.Errorf("%w after %s; set %s=file and %s to use the encrypted file backend",
			errKeyringTimeout, timeout, EnvKeyringBackend, EnvKeyringPassword)
	}
}

func openKeyring() (keyring.Keyring, error) {
	info, err := ResolveKeyringBackendInfo()
	if err != nil {
		return nil, err
	}
	backends, err := allowedBackends(info)
	if err != nil {
		return nil, err
	}

	keyringDir, err := config.EnsureKeyringDir()
	if err != nil {
		return nil, err
	}

	dbusAddr := os.Getenv("DBUS_SESSION_BUS_ADDRESS")
	if shouldForceFileBackend(runtime.GOOS, info, dbusAddr) {
		backends = []keyring.BackendType{keyring.FileBackend}
	}

	cfg := keyring.Config{
		ServiceName:              serviceName,
		KeychainTrustApplication: true,
		AllowedBackends:          backends,
		FileDir:                  keyringDir,
		FilePasswordFunc:         fileKeyringPasswordFunc(),
	}

	if shouldUseKeyringTimeout(runtime.GOOS, info, dbusAddr) {
		return openKeyringWithTimeout(cfg, keyringOpenTimeout)
	}
	ring, err := keyringOpenFunc(cfg)
	if err != nil {
		return nil, wrapKeychainError(err)
	}
	return ring, nil
}

// OpenDefault opens the keyring selected by environment and config.
func OpenDefault() (Store, error) {
	if err := EnsureKeychainAccess(); err != nil {
		return nil, err
	}
	ring, err := openKeyring()
	if err != nil {
		return nil, err
	}
	return &KeyringStore{ring: ring}, nil
}

// NewKeyringStore wraps an open keyring.
func NewKeyringStore(ring keyring.Keyring) *KeyringStore {
	return &KeyringStore{ring: ring}
}

func (s *KeyringStore) Keys() ([]string, error) {
	keys, err := s.ring.Keys()
	if err != nil {
		return nil, wrapKeychainError(err)
	}
	return keys, nil
}

func (s *KeyringStore) SetToken(profile string, tok Token) error {
	profile = normalize(profile)
	if profile == "" {
		return errors.New("missing profile")
	}
	if strings.TrimSpace(tok.AccessToken) == "" {
		return errors.New("missing access token")
	}
	tok.Profile = profile
	if tok.CreatedAt.IsZero() {
		tok.CreatedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	return wrapKeychainError(s.ring.Set(keyring.Item{
		Key:   tokenKey(profile),
		Data:  payload,
		Label: serviceName + " " + profile,
	}))
}

func (s *KeyringStore) GetToken(profile string) (Token, error) {
	profile = normalize(profile)
	if profile == "" {
		return Token{}, errors.New("missing profile")
	}
	item, err := s.ring.Get(tokenKey(profile))
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return Token{}, ErrNotFound
		}
		return Token{}, wrapKeychainError(err)
	}
	var tok Token
	if err := json.Unmarshal(item.Data, &tok); err != nil {
		return Token{}, fmt.Errorf("corrupt token for %s: %w", profile, err)
	}
	if tok.Profile == "" {
		tok.Profile = profile
	}
	return tok, nil
}

func (s *KeyringStore) DeleteToken(profile string) error {
	profile = normalize(profile)
	if profile == "" {
		return errors.New("missing profile")
	}
	if err := s.ring.Remove(tokenKey(profile)); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return wrapKeychainError(err)
	}
	return nil
}

func (s *KeyringStore) ListTokens() ([]Token, error) {
	keys, err := s.Keys()
	if err != nil {
		return nil, err
	}
	var out []Token
	for _, k := range keys {
		if !strings.HasPrefix(k, tokenKeyPrefix) {
			continue
		}
		tok, err := s.GetToken(strings.TrimPrefix(k, tokenKeyPrefix))
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Profile < out[j].Profile })
	return out, nil
}

func (s *KeyringStore) GetDefaultAccount() (string, error) {
	item, err := s.ring.Get(defaultAccountID)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", nil
		}
		return "", wrapKeychainError(err)
	}
	return string(item.Data), nil
}

func (s *KeyringStore) SetDefaultAccount(profile string) error {
	profile = normalize(profile)
	if profile == "" {
		return errors.New("missing profile")
	}
	return wrapKeychainError(s.ring.Set(keyring.Item{Key: defaultAccountID, Data: []byte(profile)}))
}

func tokenKey(profile string) string {
	return tokenKeyPrefix + profile
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
