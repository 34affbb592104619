package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"jo3qma.com/ebay_tracking/internal/domain/model"
	"jo3qma.com/ebay_tracking/internal/usecase"
)

func init() {
	rootCmd.AddCommand(trackCmd)
}

var trackCmd = &cobra.Command{
	Use:   "track URL...",
	Short: "Starts tracking the eBay listings given as positional arguments.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, closeStore, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		tracker := usecase.NewTracker(store, newFetcher(cfg), logNotifier{}, trackerConfig(cfg))

		var failed int
		for _, rawURL := range args {
			item, err := tracker.Track(ctx, rawURL)
			switch {
			case err == nil:
				fmt.Printf("tracked %s (%s)\n", item.Title, item.Hash())
			case errors.Is(err, model.ErrAlreadyTracked):
				fmt.Printf("already tracked: %s\n", rawURL)
			default:
				failed++
				fmt.Printf("failed to track %s: %v\n", rawURL, err)
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d listings could not be tracked", failed, len(args))
		}
		return nil
	},
}
