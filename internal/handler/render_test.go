package handler

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"jo3qma.com/ebay_tracking/internal/domain/model"
)

func TestFormatItem(t *testing.T) {
	t.Parallel()

	end := time.Date(2025, 3, 1, 18, 30, 0, 0, time.UTC)
	bids := 4
	item := &model.TrackedItem{
		URL:          "https://www.ebay.it/itm/123_4",
		Title:        "Lego *raro*",
		CurrentPrice: decimal.RequireFromString("1234.5"),
		ShippingCost: decimal.RequireFromString("7"),
		NumBids:      &bids,
		EndDate:      &end,
		Notes:        "spedizione [veloce]",
	}

	got := FormatItem(item, "1) ", now)
	want := "1) Lego \\*raro\\*\n\n" +
		"Prezzo: *1234.50*, Sped.: 7.00, Scadenza: *01/03/2025 18:30:00*, Offerte: 4\n" +
		"Note: spedizione \\[veloce]\n" +
		"URL: https://www.ebay.it/itm/123\\_4"
	require.Equal(t, want, got)
}

func TestFormatItem_optionalFields(t *testing.T) {
	t.Parallel()

	item := &model.TrackedItem{
		URL:          "https://www.ebay.it/itm/1",
		Title:        "t",
		CurrentPrice: decimal.RequireFromString("10"),
		ShippingCost: decimal.Zero,
	}

	require.Equal(t, "t\n\nPrezzo: *10.00*, Sped.: 0.00\nURL: https://www.ebay.it/itm/1", FormatItem(item, "", now))
}

func TestRemoveButtons(t *testing.T) {
	t.Parallel()

	require.Empty(t, RemoveButtons(nil, 8))

	items := []*model.TrackedItem{newItem(1, now), newItem(2, now), newItem(3, now)}
	rows := RemoveButtons(items, 2)
	require.Equal(t, [][]model.Button{
		{{Text: "1", Data: items[0].Hash()}, {Text: "2", Data: items[1].Hash()}},
		{{Text: "3", Data: items[2].Hash()}},
	}, rows)
}
