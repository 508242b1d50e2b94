package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/otherjamesbrown/minuteman/config"
	"github.com/otherjamesbrown/minuteman/credentials"
	"github.com/otherjamesbrown/minuteman/pkg/notetaker"
)

// Auth command flags.
var (
	authAPIKey         string
	authGrantID        string
	authNonInteractive bool
)

// authCmd represents the auth command group.
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage API credentials",
	Long: `Manage the Nylas API key and grant used by the service.

Credentials are stored encrypted in ~/.minuteman/credentials.yaml.
The encryption key lives in the system keyring; for CI set
MINUTEMAN_ENCRYPTION_KEY to a 64-character hex string.

Environment variables (MINUTEMAN_API_KEY, MINUTEMAN_GRANT_ID) take
precedence over stored credentials.`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store the Nylas API key",
	Long: `Store the Nylas API key in the encrypted credential store.

Examples:
  # Interactive login (prompts for API key)
  minuteman auth login

  # Login with flags
  minuteman auth login --api-key nyk_abc123... --grant-id <grant>

  # Login with API key from environment
  MINUTEMAN_API_KEY=nyk_abc123... minuteman auth login`,
	RunE: runAuthLogin,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove stored credentials",
	Long: `Remove the stored API key from the local credential store.

Environment variables (MINUTEMAN_API_KEY, MINUTEMAN_GRANT_ID) are not
affected.`,
	RunE: runAuthLogout,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show credential status",
	Long: `Display the stored credential state and verify the grant against
the Nylas API.

Shows the credential source (stored or environment), the masked API
key, and the grant's remote status when reachable.`,
	RunE: runAuthStatus,
}

func init() {
	authLoginCmd.Flags().StringVar(&authAPIKey, "api-key", "", "Nylas API key")
	authLoginCmd.Flags().StringVar(&authGrantID, "grant-id", "", "calendar grant id to associate with the key")
	authLoginCmd.Flags().BoolVar(&authNonInteractive, "non-interactive", false, "fail instead of prompting for input")

	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	store, err := credentials.NewStore()
	if err != nil {
		return fmt.Errorf("initializing credential store: %w", err)
	}

	apiKey := authAPIKey
	if apiKey == "" {
		if envKey := os.Getenv("MINUTEMAN_API_KEY"); envKey != "" {
			apiKey = envKey
			fmt.Println("Using API key from MINUTEMAN_API_KEY environment variable")
		}
	}

	if apiKey == "" {
		if authNonInteractive {
			return errors.New("no API key provided and --non-interactive flag set")
		}
		apiKey, err = promptForAPIKey()
		if err != nil {
			return fmt.Errorf("reading API key: %w", err)
		}
	}

	if err := validateAPIKey(apiKey); err != nil {
		return fmt.Errorf("invalid API key: %w", err)
	}

	grantID := authGrantID
	if grantID == "" {
		grantID = os.Getenv("MINUTEMAN_GRANT_ID")
	}

	creds := &credentials.Credentials{
		APIKey:  apiKey,
		GrantID: grantID,
	}

	// Verify against the API when a grant is known; a dead key should fail
	// loudly at login, not at the first schedule request.
	if grantID != "" {
		if grant, err := verifyGrant(cmd.Context(), apiKey, grantID); err != nil {
			fmt.Printf("Warning: could not verify grant: %v\n", err)
		} else {
			creds.Email = grant.Email
			creds.Provider = grant.Provider
			fmt.Printf("Verified grant for %s (%s)\n", grant.Email, grant.Provider)
		}
	}

	if err := store.Save(creds); err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}

	fmt.Println("Login successful!")
	fmt.Printf("  API Key: %s\n", credentials.MaskAPIKey(creds.APIKey))
	if creds.GrantID != "" {
		fmt.Printf("  Grant:   %s\n", creds.GrantID)
	}

	credPath, _ := credentials.CredentialsPath()
	fmt.Printf("\nCredentials stored in: %s\n", credPath)

	return nil
}

// promptForAPIKey reads the API key with hidden terminal input, falling back
// to plain stdin when not attached to a terminal.
func promptForAPIKey() (string, error) {
	fmt.Print("Nylas API Key: ")

	keyBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}

	return strings.TrimSpace(string(keyBytes)), nil
}

// validateAPIKey performs basic sanity checks on the key format.
func validateAPIKey(apiKey string) error {
	if apiKey == "" {
		return errors.New("API key is empty")
	}
	if len(apiKey) < 8 {
		return errors.New("API key is too short")
	}
	if strings.ContainsAny(apiKey, " \t\n") {
		return errors.New("API key contains whitespace")
	}
	return nil
}

// verifyGrant checks the key and grant against the Nylas API.
func verifyGrant(ctx context.Context, apiKey, grantID string) (*notetaker.Grant, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		cfg = config.DefaultConfig()
	}

	client, err := notetaker.NewClient(notetaker.Options{
		BaseURL: cfg.Notetaker.BaseURL,
		APIKey:  apiKey,
		GrantID: grantID,
	})
	if err != nil {
		return nil, err
	}

	verifyCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return client.GrantStatus(verifyCtx)
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	store, err := credentials.NewStore()
	if err != nil {
		return fmt.Errorf("initializing credential store: %w", err)
	}

	if !store.Exists() {
		fmt.Println("No stored credentials found.")
		return nil
	}

	if err := store.Delete(); err != nil {
		return fmt.Errorf("removing credentials: %w", err)
	}

	fmt.Println("Logged out successfully.")
	fmt.Println("Stored credentials have been removed.")

	if os.Getenv("MINUTEMAN_API_KEY") != "" {
		fmt.Println("\nNote: MINUTEMAN_API_KEY environment variable is still set.")
		fmt.Println("Unset it with: unset MINUTEMAN_API_KEY")
	}

	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	store, err := credentials.NewStore()
	if err != nil {
		return fmt.Errorf("initializing credential store: %w", err)
	}

	fmt.Println("Credential Status")
	fmt.Println("=================")
	fmt.Println()

	envAPIKey := os.Getenv("MINUTEMAN_API_KEY")
	if envAPIKey != "" {
		fmt.Println("Environment Variables:")
		fmt.Printf("  MINUTEMAN_API_KEY: %s (active)\n", credentials.MaskAPIKey(envAPIKey))
		if envGrant := os.Getenv("MINUTEMAN_GRANT_ID"); envGrant != "" {
			fmt.Printf("  MINUTEMAN_GRANT_ID: %s\n", envGrant)
		}
		fmt.Println()
	}

	creds, err := store.Load()
	if err != nil {
		if errors.Is(err, credentials.ErrNoCredentials) {
			fmt.Println("Stored Credentials: None")
			if envAPIKey == "" {
				fmt.Println("\nNot authenticated. Run 'minuteman auth login' to store an API key.")
			}
			return nil
		}
		return fmt.Errorf("loading credentials: %w", err)
	}

	fmt.Println("Stored Credentials:")
	fmt.Printf("  API Key: %s\n", credentials.MaskAPIKey(creds.APIKey))
	fmt.Printf("  Key ID:  %s\n", credentials.GenerateAPIKeyID(creds.APIKey))
	if creds.GrantID != "" {
		fmt.Printf("  Grant:   %s\n", creds.GrantID)
	}
	if creds.Email != "" {
		fmt.Printf("  Email:   %s\n", creds.Email)
	}
	if creds.Provider != "" {
		fmt.Printf("  Provider: %s\n", creds.Provider)
	}
	fmt.Printf("  Last Updated: %s\n", creds.LastUpdated.Format(time.RFC3339))

	fmt.Println()
	if envAPIKey != "" {
		fmt.Println("Active Credential Source: Environment variable")
		fmt.Println("  (MINUTEMAN_API_KEY takes precedence)")
	} else {
		fmt.Println("Active Credential Source: Stored credentials")
	}

	// Remote check, best effort.
	activeKey := envAPIKey
	activeGrant := os.Getenv("MINUTEMAN_GRANT_ID")
	if activeKey == "" {
		activeKey = creds.APIKey
		activeGrant = creds.GrantID
	}
	if activeGrant != "" {
		if grant, err := verifyGrant(cmd.Context(), activeKey, activeGrant); err != nil {
			fmt.Printf("\nGrant check: failed (%v)\n", err)
		} else {
			fmt.Printf("\nGrant check: %s (%s, %s)\n", grant.Status, grant.Email, grant.Provider)
		}
	}

	return nil
}
