package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"jo3qma.com/ebay_tracking/internal/domain/model"
	"jo3qma.com/ebay_tracking/internal/domain/repository"
	"jo3qma.com/ebay_tracking/internal/timezone"
)

// Config は巡回の閾値です
type Config struct {
	// AlertDelta より終了が近い商品は毎回再クロールして通知します
	AlertDelta time.Duration
	// RefreshInterval より前にクロールした商品は再クロールします
	RefreshInterval time.Duration
}

// DefaultConfig は標準の閾値を返します
func DefaultConfig() Config {
	return Config{
		AlertDelta:      10 * time.Minute,
		RefreshInterval: 60 * time.Minute,
	}
}

// Notifier は商品の状態をユーザーに通知します
type Notifier interface {
	NotifyItem(ctx context.Context, item *model.TrackedItem, prefix string) error
}

// Tracker は商品追跡のビジネスロジックを担当します
// 起動時に一度だけ作られ、チャットのコマンドと定期巡回の両方から使われます
// ストアの読み込み〜書き込みの一連の操作は mu で直列化します
type Tracker struct {
	store    repository.ItemStore
	fetcher  repository.ListingFetcher
	notifier Notifier
	cfg      Config
	now      func() time.Time

	mu sync.Mutex
}

// NewTracker は新しいTrackerインスタンスを作成します
func NewTracker(store repository.ItemStore, fetcher repository.ListingFetcher, notifier Notifier, cfg Config) *Tracker {
	return &Tracker{
		store:    store,
		fetcher:  fetcher,
		notifier: notifier,
		cfg:      cfg,
		now:      timezone.Now,
	}
}

// Now は追跡で使う現在時刻（CET）を返します
func (t *Tracker) Now() time.Time {
	return t.now()
}

// List は追跡中の商品一覧を返します
func (t *Tracker) List(ctx context.Context) ([]*model.TrackedItem, error) {
	return t.store.List(ctx)
}

// Track はURLを検証し、商品ページを取得して追跡対象に追加します
func (t *Tracker) Track(ctx context.Context, rawURL string) (*model.TrackedItem, error) {
	url, err := model.NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	_, err = t.store.Find(ctx, model.URLHash(url))
	if err == nil {
		return nil, model.ErrAlreadyTracked
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}

	slog.InfoContext(ctx, "tracking new item", "url", url)
	item, err := t.fetcher.FetchByURL(ctx, url)
	if err != nil {
		return nil, err
	}
	item.URL = url

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.store.Add(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Remove はURLハッシュが一致する商品を追跡対象から外します
func (t *Tracker) Remove(ctx context.Context, hash string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.Remove(ctx, hash)
}

// RemoveExpired は終了した商品をまとめて削除し、削除件数を返します
func (t *Tracker) RemoveExpired(ctx context.Context) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.RemoveExpired(ctx, t.now())
}

// ReconcileResult は1回の巡回の集計です
type ReconcileResult struct {
	Checked  int
	Crawled  int
	Notified int
	Failed   int
}

// Reconcile は1回分の巡回を行います
// 終了間近の商品は再クロールして必ず通知し、古くなった商品は再クロールして内容が変わった場合だけ通知します
// 1件の失敗で巡回全体を止めることはありません
func (t *Tracker) Reconcile(ctx context.Context) (ReconcileResult, error) {
	var res ReconcileResult

	items, err := t.store.List(ctx)
	if err != nil {
		return res, fmt.Errorf("list items: %w", err)
	}

	now := t.now()
	sorted := t.store.SortedByEndDate()
	// 終了日時順に並んでいれば、最初に期限が遠い商品が出た時点で以降も遠いと分かる
	alertScan := true

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Checked++

		if item.Expired(now) {
			continue
		}

		var (
			expiring bool
			left     time.Duration
		)
		if alertScan {
			var ok bool
			left, ok = item.TimeLeft(now)
			expiring = ok && left < t.cfg.AlertDelta
			if !expiring && sorted {
				alertScan = false
			}
		}
		stale := now.Sub(item.LastCrawled) > t.cfg.RefreshInterval
		if !expiring && !stale {
			continue
		}

		res.Crawled++
		notified, err := t.refresh(ctx, item, expiring, left)
		if err != nil {
			res.Failed++
			slog.ErrorContext(ctx, "failed to refresh item", "url", item.URL, "err", err)
			continue
		}
		if notified {
			res.Notified++
		}
	}

	slog.DebugContext(ctx, "reconciliation done",
		"checked", res.Checked, "crawled", res.Crawled, "notified", res.Notified, "failed", res.Failed)
	return res, nil
}

func (t *Tracker) refresh(ctx context.Context, item *model.TrackedItem, expiring bool, left time.Duration) (bool, error) {
	fresh, err := t.fetcher.FetchByURL(ctx, item.URL)
	if err != nil {
		return false, err
	}
	fresh.URL = item.URL
	changed := fresh.ChangedFrom(item)

	t.mu.Lock()
	err = t.store.Update(ctx, fresh)
	t.mu.Unlock()
	if err != nil {
		return false, fmt.Errorf("update item: %w", err)
	}

	var prefix string
	switch {
	case expiring:
		prefix = expiringPrefix(minutesLeft(left))
	case changed:
		prefix = "Oggetto aggiornato\n"
	default:
		return false, nil
	}

	if t.notifier == nil {
		return false, nil
	}
	if err := t.notifier.NotifyItem(ctx, fresh, prefix); err != nil {
		return false, fmt.Errorf("notify: %w", err)
	}
	return true, nil
}

func expiringPrefix(minutes int) string {
	return fmt.Sprintf("Oggetto in scadenza fra %d minuti!\n", minutes)
}

// minutesLeft は残り時間を分単位で切り上げます（最低1分）
func minutesLeft(left time.Duration) int {
	m := int((left + time.Minute - 1) / time.Minute)
	if m < 1 {
		return 1
	}
	return m
}
