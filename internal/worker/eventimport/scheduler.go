// Package eventimport は文化イベントフィードのバックグラウンド取り込みを提供する。
// スケジューラ、フェッチャー、リトライ/バックオフ戦略、イベント保存を含む。
package eventimport

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/marga/internal/model"
	"github.com/hitoshi/marga/internal/repository"
)

const (
	defaultMaxConcurrency = 10
	userAgent             = "Marga/1.0 Heritage Event Importer"
)

// SourceFetcher は取り込み元1件のフェッチを行うインターフェース。
type SourceFetcher interface {
	Fetch(ctx context.Context, src *model.EventSource) error
}

// Scheduler はイベントフィード取り込みのスケジューリングと並列制御を行う。
type Scheduler struct {
	sources        repository.EventSourceRepository
	fetcher        SourceFetcher
	guard          URLValidator
	resolver       FeedResolver
	logger         *slog.Logger
	maxConcurrency int
}

// NewScheduler はSchedulerを生成する。
// maxConcurrencyが0以下の場合はデフォルト値10を使用する。
func NewScheduler(
	sources repository.EventSourceRepository,
	fetcher SourceFetcher,
	guard URLValidator,
	logger *slog.Logger,
	maxConcurrency int,
) *Scheduler {
	if maxConcurrency <= 0 {
		maxConcurrency = defaultMaxConcurrency
	}
	return &Scheduler{
		sources:        sources,
		fetcher:        fetcher,
		guard:          guard,
		logger:         logger,
		maxConcurrency: maxConcurrency,
	}
}

// WithResolver はSeed時にページURLをフィードURLへ解決するFeedResolverを設定する。
func (s *Scheduler) WithResolver(r FeedResolver) *Scheduler {
	s.resolver = r
	return s
}

// Seed は設定されたフィードURLを取り込み元として登録する。
// 検証や解決に失敗したURLは警告ログを出して読み飛ばす。
func (s *Scheduler) Seed(ctx context.Context, feedURLs []string) error {
	for _, u := range feedURLs {
		if err := s.guard.ValidateURL(u); err != nil {
			s.logger.Warn("取り込み元URLを読み飛ばします",
				slog.String("feed_url", u),
				slog.String("error", err.Error()),
			)
			continue
		}
		if s.resolver != nil {
			resolved, err := s.resolver.Resolve(ctx, u)
			if err != nil {
				s.logger.Warn("フィードを検出できないため取り込み元URLを読み飛ばします",
					slog.String("feed_url", u),
					slog.String("error", err.Error()),
				)
				continue
			}
			u = resolved
		}
		if _, err := s.sources.EnsureByURL(ctx, u); err != nil {
			return err
		}
	}
	return nil
}

// Start はinterval間隔でスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("イベント取り込みスケジューラを開始しました",
		slog.Duration("interval", interval),
		slog.Int("max_concurrency", s.maxConcurrency),
	)

	s.runCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("イベント取り込みスケジューラを停止しました")
			return
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context) {
	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("取り込みサイクルの実行に失敗しました", slog.String("error", err.Error()))
	}
}

// RunOnce は取得対象の取り込み元を並列にフェッチする。
// 個々のフェッチ失敗はログに残し、サイクル全体は失敗させない。
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := time.Now()

	srcs, err := s.sources.ListDueForFetch(ctx)
	if err != nil {
		return err
	}
	if len(srcs) == 0 {
		s.logger.Info("取り込み対象のフィードはありません")
		return nil
	}

	s.logger.Info("取り込みサイクルを開始します", slog.Int("source_count", len(srcs)))

	var g errgroup.Group
	g.SetLimit(s.maxConcurrency)
	for _, src := range srcs {
		g.Go(func() error {
			if err := s.fetcher.Fetch(ctx, src); err != nil {
				s.logger.Error("イベントフィードの取り込みに失敗しました",
					slog.String("source_id", src.ID),
					slog.String("feed_url", src.FeedURL),
					slog.String("error", err.Error()),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Info("取り込みサイクルが完了しました",
		slog.Int("source_count", len(srcs)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}
