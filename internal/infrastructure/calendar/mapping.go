package calendar

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"jo3qma.com/ebay_tracking/internal/domain/model"
	"jo3qma.com/ebay_tracking/internal/timezone"
	gcal "google.golang.org/api/calendar/v3"
)

// 予定の非公開拡張プロパティのキー
const (
	propURLHash      = "url_hash"
	propLastCrawled  = "last_crawled"
	propPrice        = "price"
	propShippingCost = "shipping_cost"
	propNumBids      = "num_bids"
	propNotes        = "notes"
)

const (
	sourceTitle     = "eBay"
	reminderMinutes = 10
)

// toEvent は商品をカレンダーの予定に変換します。開始と終了はどちらも終了日時です
func toEvent(item *model.TrackedItem) *gcal.Event {
	end := &gcal.EventDateTime{DateTime: item.EndDate.Format(time.RFC3339)}

	private := map[string]string{
		propURLHash:      item.Hash(),
		propLastCrawled:  item.LastCrawled.Format(time.RFC3339),
		propPrice:        item.CurrentPrice.String(),
		propShippingCost: item.ShippingCost.String(),
	}
	if item.NumBids != nil {
		private[propNumBids] = strconv.Itoa(*item.NumBids)
	}
	if item.Notes != "" {
		private[propNotes] = model.TruncateNotes(item.Notes)
	}

	return &gcal.Event{
		Summary:     item.Title,
		Description: item.Description(),
		Start:       end,
		End:         end,
		Source:      &gcal.EventSource{Title: sourceTitle, Url: item.URL},
		Reminders: &gcal.EventReminders{
			UseDefault:      false,
			Overrides:       []*gcal.EventReminder{{Method: "popup", Minutes: reminderMinutes}},
			ForceSendFields: []string{"UseDefault"},
		},
		ExtendedProperties: &gcal.EventExtendedProperties{Private: private},
	}
}

// fromEvent は予定を商品に変換します。このアプリが作成した予定でなければエラーを返します
func fromEvent(ev *gcal.Event) (*model.TrackedItem, error) {
	if ev.Source == nil || ev.Source.Url == "" {
		return nil, fmt.Errorf("event %s has no source url", ev.Id)
	}
	if ev.ExtendedProperties == nil || ev.ExtendedProperties.Private[propURLHash] == "" {
		return nil, fmt.Errorf("event %s has no url hash", ev.Id)
	}
	private := ev.ExtendedProperties.Private

	item := &model.TrackedItem{
		URL:   ev.Source.Url,
		Title: ev.Summary,
		Notes: private[propNotes],
	}

	if ev.End != nil && ev.End.DateTime != "" {
		end, err := time.Parse(time.RFC3339, ev.End.DateTime)
		if err != nil {
			return nil, fmt.Errorf("event %s end: %w", ev.Id, err)
		}
		end = end.In(timezone.Location)
		item.EndDate = &end
	}

	var err error
	if item.CurrentPrice, err = decimalProp(private, propPrice); err != nil {
		return nil, fmt.Errorf("event %s: %w", ev.Id, err)
	}
	if item.ShippingCost, err = decimalProp(private, propShippingCost); err != nil {
		return nil, fmt.Errorf("event %s: %w", ev.Id, err)
	}
	if v, ok := private[propNumBids]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("event %s num_bids: %w", ev.Id, err)
		}
		item.NumBids = &n
	}
	if v, ok := private[propLastCrawled]; ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			item.LastCrawled = t.In(timezone.Location)
		}
	}
	return item, nil
}

func decimalProp(private map[string]string, key string) (decimal.Decimal, error) {
	v, ok := private[key]
	if !ok {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
