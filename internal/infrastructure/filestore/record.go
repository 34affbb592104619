package filestore

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"jo3qma.com/ebay_tracking/internal/domain/model"
)

// record はデータファイル上の商品の表現です
type record struct {
	URL          string          `json:"url"`
	Title        string          `json:"title"`
	CurPrice     decimal.Decimal `json:"cur_price"`
	ShippingCost decimal.Decimal `json:"shipping_cost"`
	NumBids      *int            `json:"num_bids"`
	EndDate      *isoTime        `json:"end_date"`
	Notes        *string         `json:"notes"`
	LastCrawled  *isoTime        `json:"last_crawled"`
}

// isoTime はRFC3339文字列として保存される日時です
// 古いデータファイルの {"_isoformat": "..."} 形式も読み込めます
type isoTime struct {
	time.Time
}

func (t isoTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

func (t *isoTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	var raw string
	if len(data) > 0 && data[0] == '{' {
		var legacy struct {
			ISOFormat string `json:"_isoformat"`
		}
		if err := json.Unmarshal(data, &legacy); err != nil {
			return err
		}
		raw = legacy.ISOFormat
	} else if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func toRecord(item *model.TrackedItem) record {
	r := record{
		URL:          item.URL,
		Title:        item.Title,
		CurPrice:     item.CurrentPrice,
		ShippingCost: item.ShippingCost,
		NumBids:      item.NumBids,
	}
	if item.EndDate != nil {
		r.EndDate = &isoTime{*item.EndDate}
	}
	if item.Notes != "" {
		notes := item.Notes
		r.Notes = &notes
	}
	if !item.LastCrawled.IsZero() {
		r.LastCrawled = &isoTime{item.LastCrawled}
	}
	return r
}

func (r record) toItem() *model.TrackedItem {
	item := &model.TrackedItem{
		URL:          r.URL,
		Title:        r.Title,
		CurrentPrice: r.CurPrice,
		ShippingCost: r.ShippingCost,
		NumBids:      r.NumBids,
	}
	if r.EndDate != nil {
		end := r.EndDate.Time
		item.EndDate = &end
	}
	if r.Notes != nil {
		item.Notes = *r.Notes
	}
	if r.LastCrawled != nil {
		item.LastCrawled = r.LastCrawled.Time
	}
	return item
}
