package commands

import (
	"os"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"jo3qma.com/ebay_tracking/internal/domain/model"
	"jo3qma.com/ebay_tracking/internal/timezone"
)

func init() {
	rootCmd.AddCommand(listCmd)
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists the tracked items.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, closeStore, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		items, err := store.List(ctx)
		if err != nil {
			return err
		}

		t := newTable()
		t.AppendHeader(table.Row{"#", "Title", "Price", "Shipping", "Bids", "Ends", "Hash"})
		now := timezone.Now()
		for i, item := range items {
			t.AppendRow(itemRow(i+1, item, now))
		}
		t.AppendFooter(table.Row{"", "", "", "", "", "Total", len(items)})
		t.Render()
		return nil
	},
}

func itemRow(n int, item *model.TrackedItem, now time.Time) table.Row {
	bids := "-"
	if item.NumBids != nil {
		bids = strconv.Itoa(*item.NumBids)
	}
	ends := "-"
	if item.EndDate != nil {
		ends = item.EndDate.In(timezone.Location).Format(model.DateLayout)
		if item.Expired(now) {
			ends += " (expired)"
		}
	}
	return table.Row{n, item.Title, item.CurrentPrice.StringFixed(2), item.ShippingCost.StringFixed(2), bids, ends, item.Hash()}
}
