package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"jo3qma.com/ebay_tracking/internal/domain/model"
	"jo3qma.com/ebay_tracking/internal/domain/repository"
	"jo3qma.com/ebay_tracking/internal/timezone"
	gcal "google.golang.org/api/calendar/v3"
)

// upcomingLimit は巡回対象として取得する予定の上限です
const upcomingLimit = 100

// Store は商品をカレンダーの予定として保存する ItemStore の実装です
// 商品の識別にはURLそのものではなく、非公開拡張プロパティに入れたURLハッシュを使います
// 終了した予定は取得範囲から自然に外れるため、期限切れの削除は行いません
type Store struct {
	events eventService
	now    func() time.Time
}

var _ repository.ItemStore = (*Store)(nil)

// NewStore は指定されたカレンダーを使うストアを作成します
func NewStore(srv *gcal.Service, calendarID string) *Store {
	return newStore(googleEvents{srv: srv, calendarID: calendarID})
}

func newStore(events eventService) *Store {
	return &Store{events: events, now: timezone.Now}
}

func (s *Store) List(ctx context.Context) ([]*model.TrackedItem, error) {
	events, err := s.events.Upcoming(ctx, s.now(), upcomingLimit)
	if err != nil {
		return nil, fmt.Errorf("list upcoming events: %w", err)
	}

	items := make([]*model.TrackedItem, 0, len(events))
	for _, ev := range events {
		item, err := fromEvent(ev)
		if err != nil {
			// このアプリが作成していない予定は無視します
			slog.DebugContext(ctx, "skipping calendar event", "event", ev.Id, "err", err)
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *Store) findEvent(ctx context.Context, hash string) (*gcal.Event, error) {
	events, err := s.events.FindByPrivate(ctx, propURLHash, hash)
	if err != nil {
		return nil, fmt.Errorf("find event: %w", err)
	}
	if len(events) == 0 {
		return nil, model.ErrNotFound
	}
	return events[0], nil
}

func (s *Store) Find(ctx context.Context, hash string) (*model.TrackedItem, error) {
	ev, err := s.findEvent(ctx, hash)
	if err != nil {
		return nil, err
	}
	return fromEvent(ev)
}

// Add は予定を作成し、URLハッシュで検索できることを確認します
func (s *Store) Add(ctx context.Context, item *model.TrackedItem) error {
	if item.EndDate == nil {
		return model.ErrNoEndDate
	}

	_, err := s.findEvent(ctx, item.Hash())
	if err == nil {
		return model.ErrAlreadyTracked
	}
	if !errors.Is(err, model.ErrNotFound) {
		return err
	}

	created, err := s.events.Insert(ctx, toEvent(item))
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	if _, err := s.findEvent(ctx, item.Hash()); err != nil {
		// 確認できなかった予定は残さない
		if delErr := s.events.Delete(ctx, created.Id); delErr != nil {
			slog.ErrorContext(ctx, "failed to delete unverified event", "id", created.Id, "err", delErr)
		}
		return fmt.Errorf("event %s not found after insert: %w", created.Id, err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, item *model.TrackedItem) error {
	if item.EndDate == nil {
		return model.ErrNoEndDate
	}

	ev, err := s.findEvent(ctx, item.Hash())
	if errors.Is(err, model.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if _, err := s.events.Update(ctx, ev.Id, toEvent(item)); err != nil {
		return fmt.Errorf("update event %s: %w", ev.Id, err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, hash string) error {
	ev, err := s.findEvent(ctx, hash)
	if err != nil {
		return err
	}
	if err := s.events.Delete(ctx, ev.Id); err != nil {
		return fmt.Errorf("delete event %s: %w", ev.Id, err)
	}
	return nil
}

func (s *Store) RemoveExpired(ctx context.Context, now time.Time) (int, error) {
	return 0, model.ErrUnsupported
}

// SortedByEndDate は予定を開始日時順に取得し、開始日時＝終了日時なので true です
func (s *Store) SortedByEndDate() bool {
	return true
}
