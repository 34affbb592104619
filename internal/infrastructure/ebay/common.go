package ebay

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/goodsign/monday"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// fetchHTML は指定されたURLからHTMLを取得してgoquery.Documentを返します
// 壊れたHTMLでもパーサーが補完するため、そのままドキュメントとして扱います
func fetchHTML(ctx context.Context, client *resty.Client, limiter *rate.Limiter, url string) (*goquery.Document, error) {
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	res, err := client.R().
		SetContext(ctx).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
		SetHeader("Accept-Language", "it-IT,it;q=0.9,en;q=0.8").
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}

	if res.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch page: status %d", res.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	return doc, nil
}

// イタリア式の数値表記: 千の位はドット、小数点はカンマ（例: "1.234,56"）
var itDecimalPattern = regexp.MustCompile(`[0-9][0-9.]*(?:,[0-9]+)?`)

var digitPattern = regexp.MustCompile(`[0-9]`)

// parseDecimal は "EUR 1.234,56" などの文字列から金額を抽出します
func parseDecimal(s string) (decimal.Decimal, bool) {
	m := itDecimalPattern.FindString(s)
	if m == "" {
		return decimal.Zero, false
	}
	m = strings.ReplaceAll(m, ".", "")
	m = strings.Replace(m, ",", ".", 1)
	d, err := decimal.NewFromString(m)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// parseShippingCost は送料を抽出します。数字を含まない場合（"Gratis" など）は0です
func parseShippingCost(s string) decimal.Decimal {
	if !digitPattern.MatchString(s) {
		return decimal.Zero
	}
	d, ok := parseDecimal(s)
	if !ok {
		return decimal.Zero
	}
	return d
}

// medium形式のイタリア語の日時（例: "15 ott 2024 18:30:00"）
const itMediumLayout = "2 Jan 2006 15:04:05"

var dateNoise = strings.NewReplacer("(", "", ")", "", ",", " ")

// parseEndDate は日付部分と時刻部分のテキストから終了日時を組み立てます
// 時刻部分のタイムゾーン表記（"CEST" など）は捨て、loc の日時として解釈します
func parseEndDate(dateText, timeText string, loc *time.Location) (time.Time, error) {
	timeFields := strings.Fields(dateNoise.Replace(timeText))
	if len(timeFields) == 0 {
		return time.Time{}, fmt.Errorf("missing time in %q", timeText)
	}

	raw := strings.Join(strings.Fields(dateNoise.Replace(dateText)), " ") + " " + timeFields[0]
	t, err := monday.ParseInLocation(itMediumLayout, strings.ToLower(raw), loc, monday.LocaleItIT)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse end date %q: %w", raw, err)
	}
	return t.In(loc), nil
}
