package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/salmonumbrella/pms-cli/internal/api"
	"github.com/salmonumbrella/pms-cli/internal/auth"
	"github.com/salmonumbrella/pms-cli/internal/logging"
	"github.com/salmonumbrella/pms-cli/internal/secrets"
)

const (
	// defaultProfile is the profile name used for credentials
	defaultProfile = "default"

	envUsername = "PMS_USERNAME"
	envPassword = "PMS_PASSWORD"

	// verifyResource is listed to check that stored credentials work.
	verifyResource = "hotels"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage authentication credentials",
	Long: `Manage authentication credentials for the PMS API.

Signing in exchanges your PMS username and password for an access and a
refresh token. The token pair is stored in your system keychain (macOS
Keychain, Windows Credential Manager, or an encrypted file on Linux) and
the access token is renewed automatically when it expires.

Examples:
  pms auth login --username recepcion
  pms auth login  # Interactive prompt for credentials
  pms auth status --verify
  pms auth logout`,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the token pair",
	Long: `Sign in to the PMS with a username and password.

The password is read from --password-stdin, PMS_PASSWORD, or an
interactive prompt without echo.

Examples:
  pms auth login
  pms auth login --username recepcion --base-url https://pms.example.com
  echo "$PASSWORD" | pms auth login --username recepcion --password-stdin
  pms auth login --profile night-shift`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear stored credentials",
	Long: `Remove the stored token pair of a profile from the system keychain.

Examples:
  pms auth logout
  pms auth logout --profile night-shift`,
	RunE: runLogout,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current authentication status",
	Long: `Display the current authentication status.

Shows the signed-in user, API base URL and access-token expiry. With
--verify a request is made to check that the credentials still work.

Examples:
  pms auth status
  pms auth status --verify`,
	RunE: runStatus,
}

var (
	loginUsername string
	passwordStdin bool
	authProfile   string
	verifyAuth    bool
)

func init() {
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(statusCmd)

	rootCmd.AddCommand(authCmd)

	authCmd.PersistentFlags().StringVar(&authProfile, "profile", defaultProfile, "Credential profile name")

	loginCmd.Flags().StringVar(&loginUsername, "username", "", "PMS username (env: PMS_USERNAME)")
	loginCmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")

	statusCmd.Flags().BoolVar(&verifyAuth, "verify", false, "Verify credentials with the API")
}

// loginBaseURL resolves the API root for auth commands: flag > env > config.
func loginBaseURL(cmd *cobra.Command) (string, error) {
	if flagChanged(cmd, "base-url") && strings.TrimSpace(baseURL) != "" {
		return strings.TrimSpace(baseURL), nil
	}
	if v := strings.TrimSpace(envGet(envBaseURL)); v != "" {
		return v, nil
	}
	cfg, err := loadConfigFromFlag()
	if err != nil {
		return "", formatConfigLoadError(err)
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		return strings.TrimSpace(cfg.BaseURL), nil
	}
	return api.DefaultBaseURL, nil
}

func profileName() string {
	if p := strings.ToLower(strings.TrimSpace(authProfile)); p != "" {
		return p
	}
	return defaultProfile
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := openSecretsStore()
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}

	structured := structuredOutputRequested()
	profile := profileName()

	base, err := loginBaseURL(cmd)
	if err != nil {
		return err
	}

	username := strings.TrimSpace(loginUsername)
	if username == "" {
		username = strings.TrimSpace(envGet(envUsername))
	}
	if username == "" {
		if username, err = promptString(ctx, "Username: "); err != nil {
			return fmt.Errorf("failed to read username: %w", err)
		}
	}
	if username == "" {
		return fmt.Errorf("username is required")
	}

	var password string
	switch {
	case passwordStdin:
		password, err = readPassword(stdinFromContext(ctx))
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
	case envGet(envPassword) != "":
		password = envGet(envPassword)
	default:
		if password, err = promptSecret(ctx, "Password: "); err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
	}
	if password == "" {
		return fmt.Errorf("password is required")
	}

	tok, err := loginFunc(ctx, base, username, password, api.WithLogger(logging.Logger()))
	if err != nil {
		var authErr api.AuthenticationError
		if errors.As(err, &authErr) {
			return api.AuthenticationError{Message: "authentication failed: " + authErr.Message}
		}
		return err
	}
	tok.Profile = profile

	if err := store.SetToken(profile, tok); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}
	if err := store.SetDefaultAccount(profile); err != nil {
		return fmt.Errorf("failed to set default account: %w", err)
	}

	if structured {
		return printStructured(map[string]interface{}{
			"status":   "authenticated",
			"profile":  profile,
			"username": username,
			"base_url": tok.BaseURL,
		})
	}

	out := stdoutFromContext(ctx)
	fmt.Fprintf(out, "\nAuthenticated successfully!\n")
	fmt.Fprintf(out, "User: %s\n", username)
	fmt.Fprintf(out, "API: %s\n", tok.BaseURL)
	fmt.Fprintln(out, "\nYou can now use pms commands without specifying --token.")
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	store, err := openSecretsStore()
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}

	profile := profileName()
	if err := store.DeleteToken(profile); err != nil && !errors.Is(err, secrets.ErrNotFound) {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}

	if structuredOutputRequested() {
		return printStructured(map[string]interface{}{
			"status":  "logged_out",
			"profile": profile,
		})
	}

	out := stdoutFromContext(cmd.Context())
	fmt.Fprintln(out, "Logged out successfully.")
	fmt.Fprintln(out, "Credentials have been removed from the system keychain.")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := openSecretsStore()
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}

	structured := structuredOutputRequested()
	out := stdoutFromContext(ctx)

	profile := profileName()
	if !flagChanged(cmd, "profile") {
		if def, err := store.GetDefaultAccount(); err == nil && strings.TrimSpace(def) != "" {
			profile = def
		}
	}

	tok, err := store.GetToken(profile)
	if err != nil {
		if structured {
			return printStructured(map[string]interface{}{
				"authenticated": false,
				"profile":       profile,
			})
		}
		fmt.Fprintln(out, "Status: Not authenticated")
		fmt.Fprintln(out, "\nRun 'pms auth login' to authenticate.")
		return nil
	}

	var verified *bool
	var verifyError string
	if verifyAuth {
		if !structured {
			fmt.Fprintln(out, "\nVerifying credentials with API...")
		}
		err := verifyToken(ctx, profile, tok)
		ok := err == nil
		verified = &ok
		if err != nil {
			verifyError = err.Error()
			var authErr api.AuthenticationError
			if errors.As(err, &authErr) {
				verifyError = "invalid or expired token"
			}
		}
		if !structured {
			if ok {
				fmt.Fprintln(out, "Verification: OK - Credentials are valid")
			} else {
				fmt.Fprintf(out, "Verification: FAILED - %s\n", verifyError)
				return nil
			}
		}
	}

	exp, hasExp := auth.ExpiresAt(tok.AccessToken)

	if structured {
		result := map[string]interface{}{
			"authenticated": true,
			"profile":       tok.Profile,
			"username":      tok.Username,
			"base_url":      tok.BaseURL,
			"can_refresh":   tok.RefreshToken != "",
		}
		if !tok.CreatedAt.IsZero() {
			result["authenticated_at"] = tok.CreatedAt.Format(time.RFC3339)
		}
		if hasExp {
			result["access_expires_at"] = exp.UTC().Format(time.RFC3339)
		}
		result["token_preview"] = maskToken(tok.AccessToken)
		if verifyAuth {
			result["verified"] = verified
			if verifyError != "" {
				result["verify_error"] = verifyError
			}
		}
		return printStructured(result)
	}

	fmt.Fprintln(out, "Status: Authenticated")
	fmt.Fprintf(out, "Profile: %s\n", tok.Profile)
	if tok.Username != "" {
		fmt.Fprintf(out, "User: %s\n", tok.Username)
	}
	if tok.BaseURL != "" {
		fmt.Fprintf(out, "API: %s\n", tok.BaseURL)
	}
	if !tok.CreatedAt.IsZero() {
		fmt.Fprintf(out, "Authenticated at: %s\n", tok.CreatedAt.Format(time.RFC3339))
	}
	if hasExp {
		fmt.Fprintf(out, "Access token expires: %s\n", exp.Local().Format(time.RFC3339))
	}
	fmt.Fprintf(out, "Token: %s\n", maskToken(tok.AccessToken))
	return nil
}

// verifyToken lists one row of a resource with the stored credentials,
// refreshing the access token when needed.
func verifyToken(ctx context.Context, profile string, tok secrets.Token) error {
	base := strings.TrimSpace(tok.BaseURL)
	if base == "" {
		base = api.DefaultBaseURL
	}
	creds := credentials{BaseURL: base, Stored: &tok, Profile: profile, Source: "keyring"}
	c, err := newClientFunc(creds, clientOptions(creds)...)
	if err != nil {
		return err
	}
	_, err = c.List(ctx, verifyResource, url.Values{"page_size": {"1"}})
	return err
}

// readPassword reads the first line of r.
func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// promptString prompts for a string input
func promptString(ctx context.Context, prompt string) (string, error) {
	fmt.Fprint(stderrFromContext(ctx), prompt)
	reader := bufio.NewReader(stdinFromContext(ctx))
	input, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && input != "") {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// promptSecret prompts for a secret input (no echo)
func promptSecret(ctx context.Context, prompt string) (string, error) {
	fmt.Fprint(stderrFromContext(ctx), prompt)

	in := stdinFromContext(ctx)
	if file, ok := in.(*os.File); ok {
		if term.IsTerminal(int(file.Fd())) {
			password, err := term.ReadPassword(int(file.Fd()))
			fmt.Fprintln(stderrFromContext(ctx))
			if err != nil {
				return "", err
			}
			return strings.TrimSpace(string(password)), nil
		}
	}

	// Fall back to regular input for non-terminal (e.g., piped input)
	return readPassword(in)
}

// maskToken masks a token for display, showing only first and last 4 characters
func maskToken(token string) string {
	if len(token) <= 12 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
