package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"jo3qma.com/ebay_tracking/internal/config"
	"jo3qma.com/ebay_tracking/internal/infrastructure/calendar"
)

func init() {
	rootCmd.AddCommand(authCmd)
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorizes access to Google Calendar and stores the token file.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Store.Backend != config.BackendCalendar {
			return errors.New("auth is only needed for the calendar store backend")
		}

		oauthCfg, err := calendar.LoadOAuthConfig(cfg.Calendar.CredentialsFile)
		if err != nil {
			return err
		}
		if _, err := calendar.Authorize(cmd.Context(), oauthCfg, authOptions(cfg)); err != nil {
			return err
		}
		fmt.Printf("token saved to %s\n", cfg.Calendar.TokenFile)
		return nil
	},
}
