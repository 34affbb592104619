package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"jo3qma.com/ebay_tracking/internal/config"
	"jo3qma.com/ebay_tracking/internal/domain/model"
	"jo3qma.com/ebay_tracking/internal/domain/repository"
	"jo3qma.com/ebay_tracking/internal/infrastructure/calendar"
	"jo3qma.com/ebay_tracking/internal/infrastructure/ebay"
	"jo3qma.com/ebay_tracking/internal/infrastructure/filestore"
	"jo3qma.com/ebay_tracking/internal/infrastructure/sqlitestore"
	"jo3qma.com/ebay_tracking/internal/infrastructure/translate"
	"jo3qma.com/ebay_tracking/internal/usecase"
)

// openStore は設定されたバックエンドの商品ストアを開きます
// 返される関数で後片付けをします
func openStore(ctx context.Context, cfg config.Config) (repository.ItemStore, func(), error) {
	switch cfg.Store.Backend {
	case config.BackendFile:
		s, err := filestore.Open(cfg.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	case config.BackendSQLite:
		s, err := sqlitestore.Open(ctx, cfg.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			if err := s.Close(); err != nil {
				slog.Error("failed to close sqlite store", "err", err)
			}
		}, nil
	case config.BackendCalendar:
		srv, err := calendar.NewService(ctx, authOptions(cfg))
		if err != nil {
			return nil, nil, err
		}
		return calendar.NewStore(srv, cfg.Calendar.CalendarID), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func authOptions(cfg config.Config) calendar.AuthOptions {
	return calendar.AuthOptions{
		CredentialsFile: cfg.Calendar.CredentialsFile,
		TokenFile:       cfg.Calendar.TokenFile,
		In:              os.Stdin,
		Out:             os.Stderr,
	}
}

// newFetcher はeBayのページ取得と、有効なら出品者メモの翻訳を組み立てます
func newFetcher(cfg config.Config) repository.ListingFetcher {
	var translator repository.Translator
	targetLang := ""
	if cfg.TranslateEnabled() {
		translator = translate.NewGoogleTranslator(cfg.HTTPTimeout())
		targetLang = cfg.Translate.TargetLang
	}

	return ebay.NewEbayScraper(translator, ebay.Options{
		RequireEndDate:    cfg.RequireEndDate(),
		TargetLang:        targetLang,
		Timeout:           cfg.HTTPTimeout(),
		UserAgent:         cfg.HTTP.UserAgent,
		RequestsPerSecond: cfg.HTTP.RequestsPerSecond,
	})
}

func trackerConfig(cfg config.Config) usecase.Config {
	return usecase.Config{
		AlertDelta:      cfg.AlertDelta(),
		RefreshInterval: cfg.RefreshInterval(),
	}
}

// logNotifier はチャットを使わないコマンドで、通知を標準出力に書き出します
type logNotifier struct{}

func (logNotifier) NotifyItem(ctx context.Context, item *model.TrackedItem, prefix string) error {
	fmt.Printf("%s%s\n\n", prefix, item.Description())
	return nil
}
