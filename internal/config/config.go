package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// AppName is the application name used for keyring and config
const AppName = "pms"

// EnvPrefix prefixes every environment override (PMS_BASE_URL, ...).
const EnvPrefix = "PMS"

// DefaultPageSize is the page size requested when listing resources.
const DefaultPageSize = 50

// Config holds CLI configuration
type Config struct {
	BaseURL        string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Token          string `yaml:"token,omitempty" mapstructure:"token"`
	KeyringBackend string `yaml:"keyring_backend,omitempty" mapstructure:"keyring_backend"` // auto, keychain, file
	OutputFormat   string `yaml:"output_format,omitempty" mapstructure:"output_format"`     // text, json, yaml, table
	PageSize       int    `yaml:"page_size,omitempty" mapstructure:"page_size"`
	LogLevel       string `yaml:"log_level,omitempty" mapstructure:"log_level"` // debug, info, warn, error
}

// Keys lists the supported configuration keys in file order.
func Keys() []string {
	return []string{
		"base_url",
		"token",
		"keyring_backend",
		"output_format",
		"page_size",
		"log_level",
	}
}

// EffectivePageSize returns the configured page size or the default.
func (c *Config) EffectivePageSize() int {
	if c == nil || c.PageSize <= 0 {
		return DefaultPageSize
	}
	return c.PageSize
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".config", AppName), nil
}

// DefaultConfigPath returns the default config file path
func DefaultConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// EnsureKeyringDir ensures the keyring directory exists and returns its path
func EnsureKeyringDir() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	keyringDir := filepath.Join(dir, "keyring")
	if err := os.MkdirAll(keyringDir, 0o700); err != nil {
		return "", fmt.Errorf("creating keyring directory: %w", err)
	}
	return keyringDir, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given .env files into the
// process environment. Variables already set win. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("stat %s: %w", path, err)
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}
	}
	return nil
}

// ReadConfig reads the config file from the default location
func ReadConfig() (*Config, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return Load(path)
}

// Load loads config from the given path. PMS_* environment variables
// override file values; a missing file yields an empty config.
func Load(path string) (*Config, error) {
	v := newViper()

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	return &cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range Keys() {
		// token is resolved by the command layer (PMS_API_TOKEN) so it can
		// participate in the flag > env > keyring > config precedence.
		if key == "token" {
			continue
		}
		_ = v.BindEnv(key)
	}
	return v
}

// Save saves config to the given path
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}
