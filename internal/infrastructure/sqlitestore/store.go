package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"jo3qma.com/ebay_tracking/internal/domain/model"
	"jo3qma.com/ebay_tracking/internal/domain/repository"
	"jo3qma.com/ebay_tracking/internal/timezone"
	_ "modernc.org/sqlite"
)

const schema = `
create table if not exists items (
	url text primary key,
	url_hash text not null unique,
	title text not null,
	cur_price text not null,
	shipping_cost text not null,
	num_bids integer,
	end_date integer,
	notes text not null default '',
	last_crawled integer not null
);
create index if not exists items_end_date on items(end_date);
`

const selectColumns = `url, title, cur_price, shipping_cost, num_bids, end_date, notes, last_crawled`

// Store は商品をSQLiteのテーブルに保存する ItemStore の実装です
// 日時はミリ秒のUNIX時刻で保存し、終了日時の並べ替えをSQL側で行います
type Store struct {
	db *sql.DB
}

var _ repository.ItemStore = (*Store)(nil)

// Open はデータベースを開き、スキーマを作成します
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (*model.TrackedItem, error) {
	var (
		item        model.TrackedItem
		price       string
		shipping    string
		numBids     sql.NullInt64
		endDate     sql.NullInt64
		lastCrawled int64
	)
	err := row.Scan(&item.URL, &item.Title, &price, &shipping, &numBids, &endDate, &item.Notes, &lastCrawled)
	if err != nil {
		return nil, err
	}

	if item.CurrentPrice, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("cur_price of %s: %w", item.URL, err)
	}
	if item.ShippingCost, err = decimal.NewFromString(shipping); err != nil {
		return nil, fmt.Errorf("shipping_cost of %s: %w", item.URL, err)
	}
	if numBids.Valid {
		n := int(numBids.Int64)
		item.NumBids = &n
	}
	if endDate.Valid {
		end := time.UnixMilli(endDate.Int64).In(timezone.Location)
		item.EndDate = &end
	}
	item.LastCrawled = time.UnixMilli(lastCrawled).In(timezone.Location)
	return &item, nil
}

func itemArgs(item *model.TrackedItem) []any {
	var numBids, endDate any
	if item.NumBids != nil {
		numBids = *item.NumBids
	}
	if item.EndDate != nil {
		endDate = item.EndDate.UnixMilli()
	}
	return []any{
		item.Title,
		item.CurrentPrice.String(),
		item.ShippingCost.String(),
		numBids,
		endDate,
		item.Notes,
		item.LastCrawled.UnixMilli(),
	}
}

func (s *Store) List(ctx context.Context) ([]*model.TrackedItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+selectColumns+` from items order by end_date is null, end_date, url`)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var out []*model.TrackedItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (s *Store) Find(ctx context.Context, hash string) (*model.TrackedItem, error) {
	row := s.db.QueryRowContext(ctx, `select `+selectColumns+` from items where url_hash = ?`, hash)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find item: %w", err)
	}
	return item, nil
}

func (s *Store) Add(ctx context.Context, item *model.TrackedItem) error {
	args := append([]any{item.URL, item.Hash()}, itemArgs(item)...)
	res, err := s.db.ExecContext(ctx, `
		insert into items (url, url_hash, title, cur_price, shipping_cost, num_bids, end_date, notes, last_crawled)
		values (?, ?, ?, ?, ?, ?, ?, ?, ?)
		on conflict(url) do nothing`, args...)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrAlreadyTracked
	}
	return nil
}

func (s *Store) Update(ctx context.Context, item *model.TrackedItem) error {
	args := append(itemArgs(item), item.Hash())
	_, err := s.db.ExecContext(ctx, `
		update items set
			title = ?, cur_price = ?, shipping_cost = ?, num_bids = ?,
			end_date = ?, notes = ?, last_crawled = ?
		where url_hash = ?`, args...)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, hash string) error {
	res, err := s.db.ExecContext(ctx, `delete from items where url_hash = ?`, hash)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (s *Store) RemoveExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`delete from items where end_date is not null and end_date <= ?`, now.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("delete expired items: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *Store) SortedByEndDate() bool {
	return true
}
