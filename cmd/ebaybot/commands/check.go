package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"jo3qma.com/ebay_tracking/internal/handler"
	"jo3qma.com/ebay_tracking/internal/infrastructure/telegram"
	"jo3qma.com/ebay_tracking/internal/timezone"
	"jo3qma.com/ebay_tracking/internal/usecase"
)

func init() {
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Runs one listing check and exits. Notifications go to Telegram when configured, stdout otherwise.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, closeStore, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		var notifier usecase.Notifier = logNotifier{}
		if cfg.RequireTelegram() == nil {
			bot, err := telegram.NewBot(cfg.TelegramToken, debug)
			if err != nil {
				return err
			}
			notifier = handler.NewChatNotifier(bot, cfg.TelegramChatID, timezone.Now)
		}

		tracker := usecase.NewTracker(store, newFetcher(cfg), notifier, trackerConfig(cfg))
		res, err := tracker.Reconcile(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("checked %d, crawled %d, notified %d, failed %d\n", res.Checked, res.Crawled, res.Notified, res.Failed)
		return nil
	},
}
