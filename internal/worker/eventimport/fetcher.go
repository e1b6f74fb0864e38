package eventimport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/hitoshi/marga/internal/metrics"
	"github.com/hitoshi/marga/internal/model"
	"github.com/hitoshi/marga/internal/repository"
)

// EventUpserter はイベント候補の保存インターフェース。
type EventUpserter interface {
	UpsertEvents(ctx context.Context, sourceID string, parsed []model.ParsedEvent) (int, int, error)
}

// URLValidator はSSRF検証と安全なHTTPクライアント生成のインターフェース。
type URLValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration) *http.Client
}

// FetcherConfig はFetcherの設定。
type FetcherConfig struct {
	Timeout     time.Duration
	MaxBodySize int64
	Interval    time.Duration // 成功時の次回取得までの間隔
}

// Fetcher は取り込み元フィードを1件取得・パースし、イベントを保存する。
type Fetcher struct {
	sources  repository.EventSourceRepository
	upserter EventUpserter
	guard    URLValidator
	recorder metrics.ImportRecorder
	logger   *slog.Logger
	config   FetcherConfig
	now      func() time.Time
}

// NewFetcher はFetcherを生成する。recorderがnilの場合は記録しない。
func NewFetcher(
	sources repository.EventSourceRepository,
	upserter EventUpserter,
	guard URLValidator,
	recorder metrics.ImportRecorder,
	logger *slog.Logger,
	config FetcherConfig,
) *Fetcher {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Fetcher{
		sources:  sources,
		upserter: upserter,
		guard:    guard,
		recorder: recorder,
		logger:   logger,
		config:   config,
		now:      time.Now,
	}
}

// Fetch はフィードを取得し、結果に応じて取り込み元の状態を更新する。
// パース失敗は状態に記録して継続するためエラーとしない。
func (f *Fetcher) Fetch(ctx context.Context, src *model.EventSource) error {
	log := f.logger.With(slog.String("source_id", src.ID), slog.String("feed_url", src.FeedURL))

	if err := f.guard.ValidateURL(src.FeedURL); err != nil {
		log.Error("URL検証に失敗しました", slog.String("error", err.Error()))
		ApplyStop(src, fmt.Sprintf("URL検証失敗: %s", err.Error()))
		f.recorder.RecordImport(metrics.ImportStopped)
		f.saveState(ctx, log, src)
		return fmt.Errorf("URL検証に失敗: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.FeedURL, nil)
	if err != nil {
		return fmt.Errorf("リクエスト作成に失敗: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, */*")
	if src.ETag != "" {
		req.Header.Set("If-None-Match", src.ETag)
	}
	if src.LastModified != "" {
		req.Header.Set("If-Modified-Since", src.LastModified)
	}

	start := time.Now()
	resp, err := f.guard.NewSafeClient(f.config.Timeout).Do(req)
	if err != nil {
		log.Error("HTTPリクエストに失敗しました", slog.String("error", err.Error()))
		ApplyBackoff(src, fmt.Sprintf("HTTPリクエスト失敗: %s", err.Error()), f.now())
		f.recorder.RecordImport(metrics.ImportBackoff)
		f.saveState(ctx, log, src)
		return fmt.Errorf("HTTPリクエスト失敗: %w", err)
	}
	defer resp.Body.Close()

	f.recorder.RecordHTTPStatus(resp.StatusCode)
	f.recorder.RecordImportLatency(time.Since(start))

	switch ClassifyHTTPStatus(resp.StatusCode) {
	case FetchResultOK:
	case FetchResultNotModified:
		log.Info("フィードは未変更です（304）")
		ApplySuccess(src, f.config.Interval, f.now())
		f.recorder.RecordImport(metrics.ImportNotModified)
		return f.sources.UpdateFetchState(ctx, src)
	case FetchResultStop:
		reason := fmt.Sprintf("HTTPステータス %d により取り込みを停止しました", resp.StatusCode)
		log.Warn("取り込みを停止します", slog.Int("http_status", resp.StatusCode))
		ApplyStop(src, reason)
		f.recorder.RecordImport(metrics.ImportStopped)
		return f.sources.UpdateFetchState(ctx, src)
	default:
		log.Warn("バックオフを適用します",
			slog.Int("http_status", resp.StatusCode),
			slog.Int("consecutive_errors", src.ConsecutiveErrors+1),
		)
		ApplyBackoff(src, fmt.Sprintf("HTTPステータス %d", resp.StatusCode), f.now())
		f.recorder.RecordImport(metrics.ImportBackoff)
		return f.sources.UpdateFetchState(ctx, src)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBodySize+1))
	if err != nil {
		log.Error("レスポンスボディの読み取りに失敗しました", slog.String("error", err.Error()))
		ApplyBackoff(src, fmt.Sprintf("レスポンス読み取り失敗: %s", err.Error()), f.now())
		f.recorder.RecordImport(metrics.ImportBackoff)
		return f.sources.UpdateFetchState(ctx, src)
	}
	if int64(len(body)) > f.config.MaxBodySize {
		return f.parseFailed(ctx, log, src, fmt.Sprintf("レスポンスが上限 %d バイトを超えています", f.config.MaxBodySize))
	}

	if etag := resp.Header.Get("ETag"); etag != "" {
		src.ETag = etag
	}
	if lastMod := resp.Header.Get("Last-Modified"); lastMod != "" {
		src.LastModified = lastMod
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return f.parseFailed(ctx, log, src, err.Error())
	}
	if feed.Title != "" {
		src.Title = feed.Title
	}
	if feed.Link != "" {
		src.SiteURL = feed.Link
	}

	parsed := convertItems(feed.Items)
	inserted, updated, err := f.upserter.UpsertEvents(ctx, src.ID, parsed)
	if err != nil {
		return f.parseFailed(ctx, log, src, fmt.Sprintf("イベント保存失敗: %s", err.Error()))
	}
	f.recorder.RecordEventsUpserted(inserted, updated)

	ApplySuccess(src, f.config.Interval, f.now())
	if err := f.sources.UpdateFetchState(ctx, src); err != nil {
		log.Error("取り込み元の状態更新に失敗しました", slog.String("error", err.Error()))
		return err
	}
	f.recorder.RecordImport(metrics.ImportSuccess)

	log.Info("イベントフィードの取り込みが完了しました",
		slog.Int("http_status", resp.StatusCode),
		slog.Int("events_inserted", inserted),
		slog.Int("events_updated", updated),
		slog.Int("events_total", len(parsed)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

func (f *Fetcher) parseFailed(ctx context.Context, log *slog.Logger, src *model.EventSource, reason string) error {
	log.Error("フィードのパースに失敗しました", slog.String("error", reason))
	ApplyParseFailure(src, reason, f.now())
	f.recorder.RecordImport(metrics.ImportParseFailure)
	f.saveState(ctx, log, src)
	return nil
}

func (f *Fetcher) saveState(ctx context.Context, log *slog.Logger, src *model.EventSource) {
	if err := f.sources.UpdateFetchState(ctx, src); err != nil {
		log.Error("取り込み元の状態更新に失敗しました", slog.String("error", err.Error()))
	}
}
