package ebay

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
	"jo3qma.com/ebay_tracking/internal/domain/model"
	"jo3qma.com/ebay_tracking/internal/domain/repository"
	"jo3qma.com/ebay_tracking/internal/timezone"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Options はスクレイパーの動作設定です
type Options struct {
	// RequireEndDate が true の場合、終了日時のないページは model.ErrNoEndDate になります
	RequireEndDate bool
	// TargetLang は出品者メモの翻訳先言語です。空の場合は翻訳しません
	TargetLang        string
	Timeout           time.Duration
	UserAgent         string
	RequestsPerSecond float64
}

// ebayScraper はeBayの商品ページをスクレイピングして商品情報を取得する実装です
// 腐敗防止層（Anti-Corruption Layer）として、外部サイトの不安定な構造を
// ドメインモデルに変換する責務を持ちます
type ebayScraper struct {
	client     *resty.Client
	limiter    *rate.Limiter
	translator repository.Translator
	opts       Options
	now        func() time.Time
}

// NewEbayScraper は新しいListingFetcherの実装を作成します
// translator が nil の場合、出品者メモは翻訳しません
func NewEbayScraper(translator repository.Translator, opts Options) repository.ListingFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	client := resty.New().
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", opts.UserAgent)
	return newEbayScraper(client, translator, opts)
}

// newEbayScraper はテスト容易性のための内部コンストラクタです。
func newEbayScraper(client *resty.Client, translator repository.Translator, opts Options) *ebayScraper {
	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return &ebayScraper{
		client:     client,
		limiter:    limiter,
		translator: translator,
		opts:       opts,
		now:        timezone.Now,
	}
}

// FetchByURL は指定されたURLの商品ページを取得して商品情報を返します
func (s *ebayScraper) FetchByURL(ctx context.Context, url string) (*model.TrackedItem, error) {
	slog.DebugContext(ctx, "crawling listing", "url", url)

	doc, err := fetchHTML(ctx, s.client, s.limiter, url)
	if err != nil {
		return nil, err
	}

	item, err := s.extractItemInfo(ctx, doc, url)
	if err != nil {
		return nil, fmt.Errorf("failed to extract item info: %w", err)
	}

	slog.DebugContext(ctx, "done crawling", "url", url, "title", item.Title)
	return item, nil
}

// extractItemInfo はHTMLドキュメントから商品情報を抽出します
// 必須項目はタイトルと価格のみで、それ以外は取得できなければ空のままにします
func (s *ebayScraper) extractItemInfo(ctx context.Context, doc *goquery.Document, url string) (*model.TrackedItem, error) {
	title, ok := extractTitle(doc)
	if !ok {
		return nil, model.ErrTitleNotFound
	}

	endDate := extractEndDate(ctx, doc)
	if endDate == nil && s.opts.RequireEndDate {
		return nil, model.ErrNoEndDate
	}

	price, ok := extractPrice(doc)
	if !ok {
		return nil, model.ErrPriceNotFound
	}

	return &model.TrackedItem{
		URL:          url,
		Title:        title,
		CurrentPrice: price,
		ShippingCost: extractShippingCost(doc),
		NumBids:      extractNumBids(doc),
		EndDate:      endDate,
		Notes:        s.translate(ctx, extractNotes(doc)),
		LastCrawled:  s.now(),
	}, nil
}

// translate は出品者メモを翻訳します。失敗した場合は原文をそのまま返します
func (s *ebayScraper) translate(ctx context.Context, notes string) string {
	if notes == "" || s.translator == nil || s.opts.TargetLang == "" {
		return notes
	}
	translated, err := s.translator.Translate(ctx, notes, s.opts.TargetLang)
	if err != nil || translated == "" {
		slog.DebugContext(ctx, "translation failed, keeping original notes", "err", err)
		return notes
	}
	return translated
}

// タイトル: h1#itemTitle の直下のテキスト（非表示の "Dettagli sull'oggetto" は除く）
// 新しいレイアウトでは h1.x-item-title__mainTitle
func extractTitle(doc *goquery.Document) (string, bool) {
	h1 := doc.Find("h1#itemTitle").First()
	if h1.Length() > 0 {
		text := h1.Contents().FilterFunction(func(_ int, n *goquery.Selection) bool {
			return goquery.NodeName(n) == "#text"
		}).Text()
		if title := strings.TrimSpace(text); title != "" {
			return title, true
		}
	}

	title := strings.TrimSpace(doc.Find("h1.x-item-title__mainTitle").First().Text())
	return title, title != ""
}

// 終了日時: span.vi-tm-left > span（1つ目が日付、2つ目が "時刻 タイムゾーン"）
func extractEndDate(ctx context.Context, doc *goquery.Document) *time.Time {
	spans := doc.Find("span.vi-tm-left > span")
	if spans.Length() < 2 {
		return nil
	}

	t, err := parseEndDate(spans.Eq(0).Text(), spans.Eq(1).Text(), timezone.Location)
	if err != nil {
		slog.WarnContext(ctx, "unreadable end date", "err", err)
		return nil
	}
	return &t
}

var integerPattern = regexp.MustCompile(`[0-9]+`)

// 入札数: span#qty-test
func extractNumBids(doc *goquery.Document) *int {
	m := integerPattern.FindString(doc.Find("span#qty-test").First().Text())
	if m == "" {
		return nil
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return nil
	}
	return &n
}

const sellerNotesLabel = "Note del venditore:"

// 出品者メモ: ラベルが "Note del venditore:" の div.ux-labels-values__labels の次の要素
func extractNotes(doc *goquery.Document) string {
	var notes string
	doc.Find("div.ux-labels-values__labels").EachWithBreak(func(_ int, label *goquery.Selection) bool {
		if strings.TrimSpace(label.Find("span").First().Text()) != sellerNotesLabel {
			return true
		}
		notes = strings.TrimSpace(label.NextAllFiltered("div").First().Find("span").First().Text())
		return false
	})
	return notes
}

// 現在の価格: span#prcIsum_bidPrice（オークション）、なければ span#prcIsum（即決）
func extractPrice(doc *goquery.Document) (decimal.Decimal, bool) {
	el := doc.Find("span#prcIsum_bidPrice").First()
	if el.Length() == 0 {
		el = doc.Find("span#prcIsum").First()
	}
	if el.Length() == 0 {
		return decimal.Zero, false
	}
	return parseDecimal(el.Text())
}

// 送料: span#fshippingCost > span。要素がない場合も0とします
func extractShippingCost(doc *goquery.Document) decimal.Decimal {
	el := doc.Find("span#fshippingCost > span").First()
	if el.Length() == 0 {
		return decimal.Zero
	}
	return parseShippingCost(el.Text())
}
