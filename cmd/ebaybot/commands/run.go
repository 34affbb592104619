package commands

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"jo3qma.com/ebay_tracking/internal/handler"
	"jo3qma.com/ebay_tracking/internal/infrastructure/telegram"
	"jo3qma.com/ebay_tracking/internal/scheduler"
	"jo3qma.com/ebay_tracking/internal/timezone"
	"jo3qma.com/ebay_tracking/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Starts the Telegram bot and the periodic listing check.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.RequireTelegram(); err != nil {
			return err
		}

		// シグナル待機（Ctrl+Cなど）
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		// 依存関係の組み立て
		store, closeStore, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		bot, err := telegram.NewBot(cfg.TelegramToken, debug)
		if err != nil {
			return err
		}

		notifier := handler.NewChatNotifier(bot, cfg.TelegramChatID, timezone.Now)
		tracker := usecase.NewTracker(store, newFetcher(cfg), notifier, trackerConfig(cfg))
		chat := handler.NewChatHandler(tracker, bot, cfg.TelegramChatID)

		sched := scheduler.New(timezone.Location, slog.Default())
		err = sched.Add(ctx, cfg.Tracker.CheckSchedule, func(ctx context.Context) {
			runCheck(ctx, tracker)
		})
		if err != nil {
			return err
		}

		g, ctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			slog.Info("bot started", "schedule", cfg.Tracker.CheckSchedule, "store", cfg.Store.Backend)
			err := bot.Listen(ctx, chat)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})

		g.Go(func() error {
			sched.Start()
			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			sched.Stop(shutdownCtx)
			return nil
		})

		if cfg.Status.Addr != "" {
			srv := newStatusServer(cfg.Status.Addr, handler.NewStatusHandler(tracker, tracker))

			g.Go(func() error {
				slog.Info("status server starting", "addr", cfg.Status.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})

			g.Go(func() error {
				<-ctx.Done()

				// グレースフルシャットダウン
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
		}

		err = g.Wait()
		slog.Info("bot stopped")
		return err
	},
}

func runCheck(ctx context.Context, tracker *usecase.Tracker) {
	res, err := tracker.Reconcile(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "check failed", "err", err)
		return
	}
	slog.InfoContext(ctx, "check done",
		"checked", res.Checked,
		"crawled", res.Crawled,
		"notified", res.Notified,
		"failed", res.Failed,
	)
}

func newStatusServer(addr string, h *handler.StatusHandler) *http.Server {
	mux := http.NewServeMux()
	path, svc := handler.NewTrackerServiceHandler(h)
	mux.Handle(path, svc)

	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
}
