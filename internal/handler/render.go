package handler

import (
	"fmt"
	"strings"
	"time"

	"jo3qma.com/ebay_tracking/internal/domain/model"
)

// Telegram の Markdown（旧形式）で意味を持つ文字
var markdownEscaper = strings.NewReplacer("_", `\_`, "*", `\*`, "`", "\\`", "[", `\[`)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// FormatItem は商品を1件分のチャットメッセージに整形します
func FormatItem(item *model.TrackedItem, prefix string, now time.Time) string {
	var b strings.Builder

	if item.Expired(now) {
		prefix += "*SCADUTA!!!*\n"
	}
	b.WriteString(prefix)
	b.WriteString(escapeMarkdown(item.Title))
	fmt.Fprintf(&b, "\n\nPrezzo: *%s*, Sped.: %s", item.CurrentPrice.StringFixed(2), item.ShippingCost.StringFixed(2))

	if item.EndDate != nil {
		fmt.Fprintf(&b, ", Scadenza: *%s*", item.EndDate.Format(model.DateLayout))
	}
	if item.NumBids != nil {
		fmt.Fprintf(&b, ", Offerte: %d", *item.NumBids)
	}
	if item.Notes != "" {
		b.WriteString("\nNote: ")
		b.WriteString(escapeMarkdown(item.Notes))
	}
	b.WriteString("\nURL: ")
	b.WriteString(escapeMarkdown(item.URL))
	return b.String()
}

// RemoveButtons は削除用のボタンを1行あたり perRow 個で並べます
// ボタンの表示は一覧と同じ番号、ペイロードはURLハッシュです
func RemoveButtons(items []*model.TrackedItem, perRow int) [][]model.Button {
	var rows [][]model.Button
	for i, item := range items {
		if i%perRow == 0 {
			rows = append(rows, make([]model.Button, 0, perRow))
		}
		last := len(rows) - 1
		rows[last] = append(rows[last], model.Button{
			Text: fmt.Sprintf("%d", i+1),
			Data: item.Hash(),
		})
	}
	return rows
}
