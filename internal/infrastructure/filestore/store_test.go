package filestore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"jo3qma.com/ebay_tracking/internal/domain/model"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
	return &t
}

func newItem(url string, end *time.Time) *model.TrackedItem {
	return &model.TrackedItem{
		URL:          url,
		Title:        "item " + url,
		CurrentPrice: decimal.RequireFromString("19.99"),
		ShippingCost: decimal.Zero,
		EndDate:      end,
		LastCrawled:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.json")
	s, err := Open(path)
	require.NoError(t, err)
	return s, path
}

func urls(items []*model.TrackedItem) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.URL)
	}
	return out
}

func TestStore_saveSortsByEndDateAbsentLast(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, path := openTemp(t)

	require.NoError(t, s.Add(ctx, newItem("https://e/2025", date(2025, 3, 1))))
	require.NoError(t, s.Add(ctx, newItem("https://e/none", nil)))
	require.NoError(t, s.Add(ctx, newItem("https://e/2024", date(2024, 1, 1))))

	items, err := s.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"https://e/2024", "https://e/2025", "https://e/none"}, urls(items))

	reopened, err := Open(path)
	require.NoError(t, err)
	items, err = reopened.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"https://e/2024", "https://e/2025", "https://e/none"}, urls(items))
	require.True(t, items[0].CurrentPrice.Equal(decimal.RequireFromString("19.99")))
	require.True(t, items[0].EndDate.Equal(*date(2024, 1, 1)))
	require.Nil(t, items[2].EndDate)
}

func TestStore_Add_rejectsDuplicateURL(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _ := openTemp(t)

	require.NoError(t, s.Add(ctx, newItem("https://e/1", nil)))
	require.ErrorIs(t, s.Add(ctx, newItem("https://e/1", nil)), model.ErrAlreadyTracked)

	items, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
}

func TestStore_Remove(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, path := openTemp(t)

	require.NoError(t, s.Add(ctx, newItem("https://e/1", nil)))
	require.NoError(t, s.Add(ctx, newItem("https://e/2", nil)))

	require.ErrorIs(t, s.Remove(ctx, model.URLHash("https://e/unknown")), model.ErrNotFound)
	items, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)

	require.NoError(t, s.Remove(ctx, model.URLHash("https://e/1")))
	items, err = s.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"https://e/2"}, urls(items))

	reopened, err := Open(path)
	require.NoError(t, err)
	_, err = reopened.Find(ctx, model.URLHash("https://e/1"))
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestStore_UpdateReplacesMatchingItemOnly(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _ := openTemp(t)

	require.NoError(t, s.Add(ctx, newItem("https://e/1", date(2025, 1, 1))))

	updated := newItem("https://e/1", date(2025, 1, 1))
	updated.CurrentPrice = decimal.NewFromInt(42)
	require.NoError(t, s.Update(ctx, updated))

	got, err := s.Find(ctx, model.URLHash("https://e/1"))
	require.NoError(t, err)
	require.True(t, got.CurrentPrice.Equal(decimal.NewFromInt(42)))

	require.NoError(t, s.Update(ctx, newItem("https://e/missing", nil)))
	items, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
}

func TestStore_RemoveExpired(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _ := openTemp(t)

	require.NoError(t, s.Add(ctx, newItem("https://e/old", date(2024, 1, 1))))
	require.NoError(t, s.Add(ctx, newItem("https://e/new", date(2026, 1, 1))))
	require.NoError(t, s.Add(ctx, newItem("https://e/none", nil)))

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	n, err := s.RemoveExpired(ctx, now)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	n, err = s.RemoveExpired(ctx, now)
	require.NoError(t, err)
	require.Equal(t, 0, n)

	items, err := s.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"https://e/new", "https://e/none"}, urls(items))
}

func TestStore_ListReturnsCopies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _ := openTemp(t)

	require.NoError(t, s.Add(ctx, newItem("https://e/1", nil)))
	items, err := s.List(ctx)
	require.NoError(t, err)
	items[0].Title = "mutated"

	got, err := s.Find(ctx, model.URLHash("https://e/1"))
	require.NoError(t, err)
	require.Equal(t, "item https://e/1", got.Title)
}

func TestStore_loadsLegacyDocumentAndPreservesOtherKeys(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "ebay-tracking-bot_data.json")
	legacy := `{
    "telegram_token": "123:abc",
    "telegram_chat_id": 42,
    "ebay_items": [
        {
            "url": "https://www.ebay.it/itm/1",
            "title": "Nikon F3",
            "cur_price": 120.5,
            "shipping_cost": 0,
            "num_bids": 3,
            "end_date": {"_isoformat": "2024-10-15T18:30:00+02:00"},
            "notes": null,
            "last_crawled": {"_isoformat": "2024-10-15T10:00:00.123456+02:00"}
        }
    ]
}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	s, err := Open(path)
	require.NoError(t, err)

	items, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.True(t, items[0].CurrentPrice.Equal(decimal.RequireFromString("120.5")))
	require.Equal(t, 3, *items[0].NumBids)
	require.True(t, items[0].EndDate.Equal(time.Date(2024, 10, 15, 16, 30, 0, 0, time.UTC)))
	require.Empty(t, items[0].Notes)

	require.NoError(t, s.Add(ctx, newItem("https://www.ebay.it/itm/2", nil)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Equal(t, "123:abc", doc["telegram_token"])
	require.Equal(t, float64(42), doc["telegram_chat_id"])
	require.Len(t, doc[itemsKey], 2)
}

func TestOpen_missingFileStartsEmpty(t *testing.T) {
	t.Parallel()

	s, err := Open(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	items, err := s.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, items)
	require.True(t, s.SortedByEndDate())
}
