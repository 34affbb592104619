package handler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"jo3qma.com/ebay_tracking/internal/domain/model"
	"jo3qma.com/ebay_tracking/internal/usecase"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeTracker struct {
	items      []*model.TrackedItem
	listErr    error
	trackErrs  map[string]error
	removeErr  error
	expiredN   int
	expiredErr error
	panicOn    string

	tracked []string
	removed []string
}

func (f *fakeTracker) List(ctx context.Context) ([]*model.TrackedItem, error) {
	if f.panicOn == "list" {
		panic("boom")
	}
	return f.items, f.listErr
}

func (f *fakeTracker) Track(ctx context.Context, rawURL string) (*model.TrackedItem, error) {
	f.tracked = append(f.tracked, rawURL)
	if err := f.trackErrs[rawURL]; err != nil {
		return nil, err
	}
	return &model.TrackedItem{URL: rawURL}, nil
}

func (f *fakeTracker) Remove(ctx context.Context, hash string) error {
	f.removed = append(f.removed, hash)
	return f.removeErr
}

func (f *fakeTracker) RemoveExpired(ctx context.Context) (int, error) {
	return f.expiredN, f.expiredErr
}

func (f *fakeTracker) Now() time.Time { return now }

type fakeChecker struct {
	res usecase.ReconcileResult
	err error
}

func (f fakeChecker) Reconcile(ctx context.Context) (usecase.ReconcileResult, error) {
	return f.res, f.err
}

type sentButtons struct {
	text string
	rows [][]model.Button
}

type fakeMessenger struct {
	mu      sync.Mutex
	texts   []string
	buttons []sentButtons
	answers []string
	chatIDs []int64
}

func (f *fakeMessenger) SendText(ctx context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chatIDs = append(f.chatIDs, chatID)
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeMessenger) SendButtons(ctx context.Context, chatID int64, text string, rows [][]model.Button) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chatIDs = append(f.chatIDs, chatID)
	f.buttons = append(f.buttons, sentButtons{text: text, rows: rows})
	return nil
}

func (f *fakeMessenger) AnswerCallback(ctx context.Context, callbackID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, text)
	return nil
}

func newItem(i int, end time.Time) *model.TrackedItem {
	bids := i
	return &model.TrackedItem{
		URL:          fmt.Sprintf("https://www.ebay.it/itm/%d", 1000+i),
		Title:        fmt.Sprintf("item %d", i),
		CurrentPrice: decimal.RequireFromString("12.5"),
		ShippingCost: decimal.Zero,
		NumBids:      &bids,
		EndDate:      &end,
		LastCrawled:  now.Add(-time.Minute),
	}
}

var errBoom = errors.New("boom")
