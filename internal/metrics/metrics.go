// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はPrometheusメトリクスを収集する。
type Collector struct {
	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram
	logins         prometheus.Counter
	signups        prometheus.Counter
	timersStarted  prometheus.Counter
	recordsWritten prometheus.Counter
	studyMinutes   prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studylog_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "studylog_request_latency_seconds",
			Help:    "HTTPリクエスト処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		logins: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "studylog_logins_total",
			Help: "ログイン成功の合計数",
		}),
		signups: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "studylog_signups_total",
			Help: "サインアップ成功の合計数",
		}),
		timersStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "studylog_timers_started_total",
			Help: "学習タイマー開始の合計数",
		}),
		recordsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "studylog_study_records_total",
			Help: "書き込まれた学習記録の合計数",
		}),
		studyMinutes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "studylog_study_minutes_total",
			Help: "記録された学習時間の合計（分）",
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.requestLatency,
		c.logins,
		c.signups,
		c.timersStarted,
		c.recordsWritten,
		c.studyMinutes,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエスト処理のレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordLogin はログイン成功を記録する。
func (c *Collector) RecordLogin() {
	c.logins.Inc()
}

// RecordSignup はサインアップ成功を記録する。
func (c *Collector) RecordSignup() {
	c.signups.Inc()
}

// RecordTimerStarted はタイマー開始を記録する。
func (c *Collector) RecordTimerStarted(subject string) {
	c.timersStarted.Inc()
}

// RecordStudyRecord は学習記録の書き込みと学習時間を記録する。
func (c *Collector) RecordStudyRecord(minutes float64) {
	c.recordsWritten.Inc()
	c.studyMinutes.Add(minutes)
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
