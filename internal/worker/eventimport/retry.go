package eventimport

import (
	"fmt"
	"net/http"
	"time"

	"github.com/hitoshi/marga/internal/model"
)

// FetchResult はHTTPステータスコードに基づくフェッチ結果の分類。
type FetchResult int

const (
	// FetchResultOK はフェッチ成功（200）。
	FetchResultOK FetchResult = iota
	// FetchResultNotModified はコンテンツ未変更（304）。
	FetchResultNotModified
	// FetchResultStop は取り込み停止が必要なステータス（404/410/401/403）。
	FetchResultStop
	// FetchResultBackoff はバックオフが必要なステータス（429/5xx）。
	FetchResultBackoff
	// FetchResultUnknown は未知のステータスコード。
	FetchResultUnknown
)

const (
	initialBackoff        = 30 * time.Minute
	maxBackoff            = 12 * time.Hour
	parseFailureThreshold = 10
)

// ClassifyHTTPStatus はHTTPステータスコードをフェッチ結果に分類する。
func ClassifyHTTPStatus(statusCode int) FetchResult {
	switch {
	case statusCode == http.StatusOK:
		return FetchResultOK
	case statusCode == http.StatusNotModified:
		return FetchResultNotModified
	case statusCode == http.StatusNotFound, statusCode == http.StatusGone,
		statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden:
		return FetchResultStop
	case statusCode == http.StatusTooManyRequests, statusCode >= 500:
		return FetchResultBackoff
	default:
		return FetchResultUnknown
	}
}

// CalculateBackoff は連続エラー回数に基づく待機時間を返す。
// 初回30分、2倍ずつ増加、最大12時間。
func CalculateBackoff(consecutiveErrors int) time.Duration {
	delay := initialBackoff
	for range consecutiveErrors {
		delay *= 2
		if delay >= maxBackoff {
			return maxBackoff
		}
	}
	return delay
}

// ApplyStop は取り込みを停止状態にする。
func ApplyStop(src *model.EventSource, reason string) {
	src.FetchStatus = model.FetchStatusStopped
	src.ErrorMessage = reason
}

// ApplyBackoff は連続エラー回数を増やし、次回取得時刻を指数バックオフで設定する。
func ApplyBackoff(src *model.EventSource, reason string, now time.Time) {
	src.ConsecutiveErrors++
	src.ErrorMessage = reason
	src.NextFetchAt = now.Add(CalculateBackoff(src.ConsecutiveErrors - 1))
}

// ApplySuccess はエラー状態をリセットし、interval後を次回取得時刻にする。
func ApplySuccess(src *model.EventSource, interval time.Duration, now time.Time) {
	src.ConsecutiveErrors = 0
	src.ErrorMessage = ""
	src.NextFetchAt = now.Add(interval)
}

// ApplyParseFailure はパース失敗を数え、閾値に達した場合は取り込みを停止する。
// 閾値未満の場合はバックオフと同じ待機時間を設定する。
func ApplyParseFailure(src *model.EventSource, reason string, now time.Time) {
	ApplyBackoff(src, fmt.Sprintf("パース失敗 (%d回連続): %s", src.ConsecutiveErrors+1, reason), now)
	if src.ConsecutiveErrors >= parseFailureThreshold {
		src.FetchStatus = model.FetchStatusStopped
		src.ErrorMessage = fmt.Sprintf("パース失敗が%d回連続したため取り込みを停止しました: %s", src.ConsecutiveErrors, reason)
	}
}
