package main

import (
	"fmt"
	"time"

	"github.com/aeolun/roomsync/pkg/client"
	"github.com/spf13/cobra"
)

var (
	loginName  string
	loginEmail string
	loginToken string
	loginID    int64
)

// loginCmd stores the profile the client identifies as, and the socket token
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store your profile and socket token",
	Long: `Stores the current user profile and the socket token in the state
database. The display name is the identity used on the socket; without one
the email address is used instead.

The development hub uses the token as the session id, so the token defaults
to the display name.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if loginName == "" && loginEmail == "" {
			return fmt.Errorf("either --name or --email is required")
		}

		cfg, err := client.LoadConfig(configPath)
		if err != nil {
			return err
		}
		statePath, err := client.ExpandPath(cfg.Client.StatePath)
		if err != nil {
			return err
		}
		state, err := client.OpenState(statePath)
		if err != nil {
			return fmt.Errorf("failed to open state database: %w", err)
		}
		defer state.Close()

		user := &client.UserRecord{
			ID:        loginID,
			Type:      "user",
			Email:     loginEmail,
			CreatedAt: time.Now().Unix(),
		}
		if loginName != "" {
			user.Name = &loginName
		}
		if err := state.SetUserRecord(user); err != nil {
			return err
		}

		token := loginToken
		if token == "" {
			token = user.ToCurrentUser().SessionID()
		}
		if err := state.SetToken(token); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", user.ToCurrentUser().SessionID())
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginName, "name", "", "Display name")
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Email address (the account id)")
	loginCmd.Flags().StringVar(&loginToken, "token", "", "Socket token (default: the display name)")
	loginCmd.Flags().Int64Var(&loginID, "id", 0, "Numeric account record id")
}
