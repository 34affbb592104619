package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler はcron式に従ってジョブを実行します
// 前回の実行が終わっていないときは次の実行を飛ばします
type Scheduler struct {
	cron *cron.Cron
}

// New は指定されたタイムゾーンで動く Scheduler を作成します
func New(loc *time.Location, logger *slog.Logger) *Scheduler {
	l := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(l),
			cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
		),
	}
}

// Add はジョブを登録します。ジョブには Stop 時にキャンセルされる ctx が渡されます
func (s *Scheduler) Add(ctx context.Context, spec string, job func(ctx context.Context)) error {
	_, err := s.cron.AddFunc(spec, func() { job(ctx) })
	return err
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop は新しい実行を止め、実行中のジョブの終了を待ちます
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// cronLogger はcronのログをslogに流します
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "err", err)...)
}

var _ cron.Logger = cronLogger{}
