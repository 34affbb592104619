package repository

import (
	"context"
	"time"

	"jo3qma.com/ebay_tracking/internal/domain/model"
)

// ItemStore は追跡中の商品の保存方法を抽象化します。
// 実装がファイルなのか、カレンダーなのか、SQLiteなのかはドメイン層は知りません。
type ItemStore interface {
	// List は巡回対象の商品一覧を返します
	List(ctx context.Context) ([]*model.TrackedItem, error)
	// Find はURLハッシュに一致する商品を返します。ない場合は model.ErrNotFound を返します
	Find(ctx context.Context, hash string) (*model.TrackedItem, error)
	// Add は商品を追加します。同じURLがある場合は model.ErrAlreadyTracked を返します
	Add(ctx context.Context, item *model.TrackedItem) error
	// Update はURLハッシュが一致する商品を置き換えます。ない場合は何もしません
	Update(ctx context.Context, item *model.TrackedItem) error
	// Remove はURLハッシュが一致する商品を削除します。ない場合は model.ErrNotFound を返します
	Remove(ctx context.Context, hash string) error
	// RemoveExpired は now より前に終了した商品を削除し、削除件数を返します
	RemoveExpired(ctx context.Context, now time.Time) (int, error)
	// SortedByEndDate は List の結果が終了日時順に並んでいることを保証するかを返します
	SortedByEndDate() bool
}

// ListingFetcher は商品ページの取得方法を抽象化します。
// これにより、腐敗防止層（Anti-Corruption Layer）のパターンを実現します。
type ListingFetcher interface {
	// FetchByURL は指定されたURLの商品ページを取得して商品情報を返します
	FetchByURL(ctx context.Context, url string) (*model.TrackedItem, error)
}

// Translator はテキストの翻訳を抽象化します
type Translator interface {
	Translate(ctx context.Context, text, targetLang string) (string, error)
}
