package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/salmonumbrella/pms-cli/internal/api"
	"github.com/salmonumbrella/pms-cli/internal/auth"
	"github.com/salmonumbrella/pms-cli/internal/config"
	"github.com/salmonumbrella/pms-cli/internal/logging"
	"github.com/salmonumbrella/pms-cli/internal/secrets"
)

const (
	envAPIToken = "PMS_API_TOKEN"
	envBaseURL  = "PMS_BASE_URL"
)

// credentials is the resolved way to reach and authenticate with the API.
// A stored token pair refreshes itself; a plain token does not.
type credentials struct {
	BaseURL string
	Token   string
	Stored  *secrets.Token
	Profile string
	// Source names where the token came from: flag, env, keyring or config.
	Source string
}

func (c credentials) empty() bool {
	return strings.TrimSpace(c.Token) == "" && (c.Stored == nil || c.Stored.AccessToken == "")
}

// loadConfigFromFlag loads config from --config if provided, otherwise from default path.
func loadConfigFromFlag() (*config.Config, error) {
	if strings.TrimSpace(configFile) != "" {
		return config.Load(configFile)
	}
	return config.ReadConfig()
}

func flagChanged(cmd *cobra.Command, name string) bool {
	if cmd == nil {
		return false
	}
	if cmd.Flags().Changed(name) {
		return true
	}
	return cmd.InheritedFlags().Changed(name)
}

// resolveCredentials resolves token and base URL with precedence:
// flags > env > keyring > config.
func resolveCredentials(cmd *cobra.Command, cfg *config.Config) (credentials, error) {
	var creds credentials

	if flagChanged(cmd, "token") {
		creds.Token, creds.Source = strings.TrimSpace(apiToken), "flag"
	}
	if flagChanged(cmd, "base-url") {
		creds.BaseURL = strings.TrimSpace(baseURL)
	}

	if creds.Token == "" {
		if v := strings.TrimSpace(envGet(envAPIToken)); v != "" {
			creds.Token, creds.Source = v, "env"
		}
	}
	if creds.BaseURL == "" {
		creds.BaseURL = strings.TrimSpace(envGet(envBaseURL))
	}

	if creds.Token == "" {
		if store, err := openSecretsStore(); err == nil {
			profile := defaultProfile
			if def, err := store.GetDefaultAccount(); err == nil && strings.TrimSpace(def) != "" {
				profile = def
			}
			if tok, err := store.GetToken(profile); err == nil && tok.AccessToken != "" {
				creds.Stored, creds.Profile, creds.Source = &tok, profile, "keyring"
				if creds.BaseURL == "" {
					creds.BaseURL = strings.TrimSpace(tok.BaseURL)
				}
			}
		} else {
			logging.Logger().Debug("keyring unavailable", zap.Error(err))
		}
	}

	if cfg != nil {
		if creds.empty() && strings.TrimSpace(cfg.Token) != "" {
			creds.Token, creds.Source = strings.TrimSpace(cfg.Token), "config"
		}
		if creds.BaseURL == "" {
			creds.BaseURL = strings.TrimSpace(cfg.BaseURL)
		}
	}
	if creds.BaseURL == "" {
		creds.BaseURL = api.DefaultBaseURL
	}

	return creds, nil
}

// clientOptions builds API client options for resolved credentials.
func clientOptions(creds credentials) []api.ClientOption {
	opts := []api.ClientOption{api.WithLogger(logging.Logger())}
	if strings.TrimSpace(creds.BaseURL) != "" {
		opts = append(opts, api.WithBaseURL(creds.BaseURL))
	}
	if debug {
		opts = append(opts, api.WithDebug(true))
	}
	return opts
}

// tokenSource picks how the client authenticates. A keyring token pair
// refreshes itself and writes rotated tokens back to the keyring.
func tokenSource(creds credentials, opts ...api.ClientOption) api.TokenSource {
	if creds.Token != "" || creds.Stored == nil {
		return api.StaticToken(creds.Token)
	}
	profile := creds.Profile
	save := func(tok secrets.Token) error {
		store, err := openSecretsStore()
		if err != nil {
			return err
		}
		return store.SetToken(profile, tok)
	}
	return auth.NewSession(*creds.Stored, creds.BaseURL,
		auth.WithSave(save),
		auth.WithClientOptions(opts...))
}

// newClientFromCredentials is the default client factory.
func newClientFromCredentials(creds credentials, opts ...api.ClientOption) (api.PMSAPI, error) {
	if creds.empty() {
		return nil, fmt.Errorf("no access token")
	}
	all := append([]api.ClientOption{}, opts...)
	all = append(all, api.WithTokenSource(tokenSource(creds, opts...)))
	return api.NewClient(all...), nil
}

func formatConfigLoadError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("load config: %w", err)
}
