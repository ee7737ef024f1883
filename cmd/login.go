package cmd

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"docforms/internal/auth"
	"docforms/internal/logger"
)

var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Log in and save the access token",
	Long: `Exchange a username and password for an access token at auth.token_url
and save it to auth.token_file. Later commands and "docforms serve" use it
until it expires or "docforms logout" removes it.

The password is read from the first line of standard input.`,
	Example: `  # Log in interactively
  docforms login alice

  # Log in from a script
  echo "$PASSWORD" | docforms login alice`,
	Args: cobra.ExactArgs(1),
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the saved access token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.WithComponent("logout")
		if err := auth.Logout(appConfig.Auth); err != nil {
			return err
		}
		log.Info().Str("token_file", appConfig.Auth.TokenFile).Msg("Logged out")
		fmt.Fprintln(cmd.OutOrStdout(), "ログアウトしました。")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("login")

	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	password, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && password == "" {
		return fmt.Errorf("failed to read password: %w", err)
	}
	password = strings.TrimRight(password, "\r\n")

	ctx, cancel := commandContext(30*time.Second, log)
	defer cancel()

	tok, err := auth.Login(ctx, appConfig.Auth, args[0], password)
	if err != nil {
		return err
	}

	log.Info().Time("expiry", tok.Expiry).Msg("Token saved")
	fmt.Fprintln(cmd.OutOrStdout(), "ログインしました。")
	return nil
}
