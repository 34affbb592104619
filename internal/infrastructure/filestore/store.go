package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/natefinch/atomic"
	"jo3qma.com/ebay_tracking/internal/domain/model"
	"jo3qma.com/ebay_tracking/internal/domain/repository"
)

const itemsKey = "ebay_items"

// Store は商品一覧を1つのJSONファイルに保存する ItemStore の実装です
// 変更のたびにファイル全体を書き直し、常に終了日時の昇順（終了日時なしは最後）で保存します
type Store struct {
	path string

	mu    sync.Mutex
	items []*model.TrackedItem
	// ebay_items 以外のトップレベルのキー（telegram_token など）はそのまま書き戻します
	extra map[string]json.RawMessage
}

var _ repository.ItemStore = (*Store)(nil)

// Open はデータファイルを読み込みます。ファイルがない場合は空の一覧から始めます
func Open(path string) (*Store, error) {
	s := &Store{path: path, extra: map[string]json.RawMessage{}}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	slog.Debug("reading item file", "path", s.path)

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", s.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	doc := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode %s: %w", s.path, err)
	}

	var records []record
	if raw, ok := doc[itemsKey]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, &records); err != nil {
			return fmt.Errorf("decode %s: %w", itemsKey, err)
		}
	}
	delete(doc, itemsKey)

	s.extra = doc
	s.items = make([]*model.TrackedItem, 0, len(records))
	for _, r := range records {
		s.items = append(s.items, r.toItem())
	}
	slices.SortStableFunc(s.items, model.CompareByEndDate)
	return nil
}

// save は並べ替えてからファイル全体をアトミックに書き直します
func (s *Store) save() error {
	slices.SortStableFunc(s.items, model.CompareByEndDate)

	records := make([]record, 0, len(s.items))
	for _, item := range s.items {
		records = append(records, toRecord(item))
	}

	doc := make(map[string]any, len(s.extra)+1)
	for k, v := range s.extra {
		doc[k] = v
	}
	doc[itemsKey] = records

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode items: %w", err)
	}

	if err := atomic.WriteFile(s.path, &buf); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	slog.Debug("wrote item file", "path", s.path, "items", len(records))
	return nil
}

func (s *Store) indexOf(hash string) int {
	return slices.IndexFunc(s.items, func(item *model.TrackedItem) bool {
		return item.Hash() == hash
	})
}

func (s *Store) List(ctx context.Context) ([]*model.TrackedItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*model.TrackedItem, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, item.Clone())
	}
	return out, nil
}

func (s *Store) Find(ctx context.Context, hash string) (*model.TrackedItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(hash)
	if i < 0 {
		return nil, model.ErrNotFound
	}
	return s.items[i].Clone(), nil
}

func (s *Store) Add(ctx context.Context, item *model.TrackedItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if slices.ContainsFunc(s.items, func(existing *model.TrackedItem) bool {
		return existing.URL == item.URL
	}) {
		return model.ErrAlreadyTracked
	}

	s.items = append(s.items, item.Clone())
	return s.save()
}

func (s *Store) Update(ctx context.Context, item *model.TrackedItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(item.Hash())
	if i < 0 {
		return nil
	}
	s.items[i] = item.Clone()
	return s.save()
}

func (s *Store) Remove(ctx context.Context, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(hash)
	if i < 0 {
		return model.ErrNotFound
	}
	s.items = slices.Delete(s.items, i, i+1)
	return s.save()
}

func (s *Store) RemoveExpired(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.items)
	s.items = slices.DeleteFunc(s.items, func(item *model.TrackedItem) bool {
		return item.EndDate != nil && !item.EndDate.After(now)
	})

	removed := before - len(s.items)
	if removed == 0 {
		return 0, nil
	}
	return removed, s.save()
}

// SortedByEndDate はファイルが常に終了日時順に保存されるため true です
func (s *Store) SortedByEndDate() bool {
	return true
}
