package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"jo3qma.com/ebay_tracking/internal/domain/repository"
)

const defaultBaseURL = "https://translate.googleapis.com"

// googleTranslator はGoogle翻訳の公開エンドポイントを使う Translator の実装です
// 同じメモを巡回のたびに翻訳し直さないよう、結果をキャッシュします
type googleTranslator struct {
	client  *resty.Client
	baseURL string
	cache   *expirable.LRU[string, string]
}

// NewGoogleTranslator は新しいTranslatorの実装を作成します
func NewGoogleTranslator(timeout time.Duration) repository.Translator {
	return newGoogleTranslator(resty.New().SetTimeout(timeout), defaultBaseURL)
}

func newGoogleTranslator(client *resty.Client, baseURL string) *googleTranslator {
	return &googleTranslator{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		cache:   expirable.NewLRU[string, string](256, nil, 24*time.Hour),
	}
}

func (g *googleTranslator) Translate(ctx context.Context, text, targetLang string) (string, error) {
	key := targetLang + "\x00" + text
	if cached, hit := g.cache.Get(key); hit {
		return cached, nil
	}

	res, err := g.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"client": "gtx",
			"sl":     "auto",
			"tl":     targetLang,
			"dt":     "t",
			"q":      text,
		}).
		Get(g.baseURL + "/translate_a/single")
	if err != nil {
		return "", fmt.Errorf("translate request: %w", err)
	}
	if res.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("translate request: status %d", res.StatusCode())
	}

	translated, err := parseTranslation(res.Body())
	if err != nil {
		return "", err
	}

	g.cache.Add(key, translated)
	return translated, nil
}

// parseTranslation はレスポンスの配列 [[["訳文","原文",...],...],...] から訳文を連結します
func parseTranslation(body []byte) (string, error) {
	var payload []json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("failed to unmarshal translation: %w", err)
	}
	if len(payload) == 0 {
		return "", fmt.Errorf("empty translation response")
	}

	var segments [][]any
	if err := json.Unmarshal(payload[0], &segments); err != nil {
		return "", fmt.Errorf("unexpected translation segments: %w", err)
	}

	var out strings.Builder
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		if s, ok := seg[0].(string); ok {
			out.WriteString(s)
		}
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("empty translation")
	}
	return out.String(), nil
}
