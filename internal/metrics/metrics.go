// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// インポート結果のラベル値
const (
	ImportSuccess      = "success"
	ImportNotModified  = "not_modified"
	ImportBackoff      = "backoff"
	ImportStopped      = "stopped"
	ImportParseFailure = "parse_failure"
)

// ImportRecorder はイベント取り込みワーカーが利用するメトリクスのインターフェース。
type ImportRecorder interface {
	RecordImport(result string)
	RecordHTTPStatus(statusCode int)
	RecordImportLatency(duration time.Duration)
	RecordEventsUpserted(inserted, updated int)
}

// AuthRecorder は認証ハンドラーが利用するメトリクスのインターフェース。
type AuthRecorder interface {
	RecordAuth(action string, ok bool)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	imports       *prometheus.CounterVec
	httpStatus    *prometheus.CounterVec
	importLatency prometheus.Histogram
	eventsUpsert  *prometheus.CounterVec
	auth          *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		imports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marga_event_import_total",
			Help: "イベントフィード取り込みの結果別件数",
		}, []string{"result"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marga_event_import_http_status_total",
			Help: "取り込み時のHTTPステータスコード別レスポンス数",
		}, []string{"status_code"}),
		importLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "marga_event_import_latency_seconds",
			Help:    "イベントフィード取得のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		eventsUpsert: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marga_events_upserted_total",
			Help: "取り込みで挿入・更新されたイベント数",
		}, []string{"op"}),
		auth: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marga_auth_attempts_total",
			Help: "サインイン・サインアップの試行数",
		}, []string{"action", "result"}),
	}

	reg.MustRegister(c.imports, c.httpStatus, c.importLatency, c.eventsUpsert, c.auth)
	return c
}

// RecordImport は取り込み結果を記録する。
func (c *Collector) RecordImport(result string) {
	c.imports.WithLabelValues(result).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordImportLatency は取得のレイテンシを記録する。
func (c *Collector) RecordImportLatency(duration time.Duration) {
	c.importLatency.Observe(duration.Seconds())
}

// RecordEventsUpserted は挿入数・更新数を記録する。
func (c *Collector) RecordEventsUpserted(inserted, updated int) {
	c.eventsUpsert.WithLabelValues("insert").Add(float64(inserted))
	c.eventsUpsert.WithLabelValues("update").Add(float64(updated))
}

// RecordAuth は認証の試行を記録する。
func (c *Collector) RecordAuth(action string, ok bool) {
	result := "failure"
	if ok {
		result = "success"
	}
	c.auth.WithLabelValues(action, result).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop は何も記録しない実装。メトリクスを無効にする場合やテストで使う。
type Nop struct{}

func (Nop) RecordImport(string)               {}
func (Nop) RecordHTTPStatus(int)              {}
func (Nop) RecordImportLatency(time.Duration) {}
func (Nop) RecordEventsUpserted(int, int)     {}
func (Nop) RecordAuth(string, bool)           {}

var (
	_ ImportRecorder = (*Collector)(nil)
	_ AuthRecorder   = (*Collector)(nil)
	_ ImportRecorder = Nop{}
	_ AuthRecorder   = Nop{}
)
