package model

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// TrackedItem は追跡中のオークション商品のドメインモデルです
// 外部サイト（eBay）のHTML構造やストレージの形式を知らない、純粋なデータ構造を定義します
type TrackedItem struct {
	URL          string          // クエリ文字列を除去した正規化済みURL（一意キー）
	Title        string          // 商品タイトル
	CurrentPrice decimal.Decimal // 現在価格（ユーロ）
	ShippingCost decimal.Decimal // 送料（ユーロ）。無料の場合は0
	NumBids      *int            // 入札数。取得できない場合はnil
	EndDate      *time.Time      // 終了日時。オークションでない場合はnil
	Notes        string          // 出品者のメモ（翻訳済みの場合あり）。ない場合は空
	LastCrawled  time.Time       // 最後にクロールした日時
}

// Hash はURLのハッシュを返します
func (i *TrackedItem) Hash() string {
	return URLHash(i.URL)
}

// TimeLeft は終了日時までの残り時間を返します。終了日時がない場合は false を返します
func (i *TrackedItem) TimeLeft(now time.Time) (time.Duration, bool) {
	if i.EndDate == nil {
		return 0, false
	}
	return i.EndDate.Sub(now), true
}

// Expired は終了日時を過ぎているかどうかを返します
func (i *TrackedItem) Expired(now time.Time) bool {
	left, ok := i.TimeLeft(now)
	return ok && left < 0
}

// MaxEndDate は終了日時のない商品を並べ替えで最後に置くための番兵です
var MaxEndDate = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

// SortKey は並べ替えに使う終了日時を返します
func (i *TrackedItem) SortKey() time.Time {
	if i.EndDate == nil {
		return MaxEndDate
	}
	return *i.EndDate
}

// CompareByEndDate は終了日時の昇順で比較します（終了日時なしは最後）
func CompareByEndDate(a, b *TrackedItem) int {
	return a.SortKey().Compare(b.SortKey())
}

// NormalizeURL はユーザー入力のURLを検証し、クエリ文字列とフラグメントを除去します
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", ErrInvalidURL
	}
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}
	return raw, nil
}

// URLHash はURLの128bitダイジェストを16進文字列で返します
// コールバックのペイロードやカレンダーの拡張プロパティで識別子として使います
func URLHash(u string) string {
	sum := md5.Sum([]byte(u))
	return hex.EncodeToString(sum[:])
}

// Clone は商品のディープコピーを返します
func (i *TrackedItem) Clone() *TrackedItem {
	c := *i
	if i.NumBids != nil {
		n := *i.NumBids
		c.NumBids = &n
	}
	if i.EndDate != nil {
		d := *i.EndDate
		c.EndDate = &d
	}
	return &c
}

// Description は商品の状態を人が読める形式で返します
// カレンダーの予定の説明に使い、再クロール時の変更検知にも使います（LastCrawled は含みません）
func (i *TrackedItem) Description() string {
	var b strings.Builder
	b.WriteString(i.Title)
	b.WriteString("\n\nPrezzo: ")
	b.WriteString(i.CurrentPrice.StringFixed(2))
	b.WriteString(", Sped.: ")
	b.WriteString(i.ShippingCost.StringFixed(2))
	if i.EndDate != nil {
		b.WriteString(", Scadenza: ")
		b.WriteString(i.EndDate.Format(DateLayout))
	}
	if i.NumBids != nil {
		b.WriteString(", Offerte: ")
		b.WriteString(strconv.Itoa(*i.NumBids))
	}
	if i.Notes != "" {
		b.WriteString("\nNote: ")
		b.WriteString(i.Notes)
	}
	b.WriteString("\nURL: ")
	b.WriteString(i.URL)
	return b.String()
}

// MaxStoredNotes は出品者メモを保存できる最大バイト数です
// カレンダーの拡張プロパティの上限に合わせています
const MaxStoredNotes = 1024

// TruncateNotes は出品者メモを MaxStoredNotes バイト以内に、UTF-8として正しい位置で切り詰めます
func TruncateNotes(s string) string {
	if len(s) <= MaxStoredNotes {
		return s
	}
	s = s[:MaxStoredNotes]
	for !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}

// ChangedFrom は前回保存した状態から内容が変わったかを返します
// 保存時に切り詰められる出品者メモは、切り詰めた後の値で比較します
func (i *TrackedItem) ChangedFrom(prev *TrackedItem) bool {
	cur, old := i.Clone(), prev.Clone()
	cur.Notes = TruncateNotes(cur.Notes)
	old.Notes = TruncateNotes(old.Notes)
	return cur.Description() != old.Description()
}

// DateLayout はメッセージに表示する日時の形式です
const DateLayout = "02/01/2006 15:04:05"
