package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// loginCmd checks the configured credentials
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Check backend credentials",
	Long:  `Log in to the backend with the configured or given credentials and show the account.`,
	Args:  cobra.NoArgs,
	RunE:  runLogin,
}

// registerCmd creates a backend account
var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a backend account",
	Long:  `Register a new account on the backend using --username and --password.`,
	Args:  cobra.NoArgs,
	RunE:  runRegister,
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	fmt.Printf("Logging in to %s...\n", client.BaseURL())

	user, err := requireLogin(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("✓ Logged in as %s\n", user.DisplayName())
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	user, pass := credentials()
	if user == "" || pass == "" {
		return errNoCredentials
	}

	u, err := client.Register(cmd.Context(), user, pass)
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}

	logger.Info().Str("user", u.DisplayName()).Msg("Account created")
	fmt.Printf("✓ Account created for %s\n", u.DisplayName())
	return nil
}
