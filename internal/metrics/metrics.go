// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ワーカーやサービス層から利用する。
type MetricsCollector interface {
	RecordListingCreated()
	RecordListingSold()
	RecordListingsExpired(count int)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	listingsCreated prometheus.Counter
	listingsSold    prometheus.Counter
	listingsExpired prometheus.Counter
	httpStatus      *prometheus.CounterVec
	requestLatency  prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		listingsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "unicloset_listings_created_total",
			Help: "作成された出品の合計数",
		}),
		listingsSold: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "unicloset_listings_sold_total",
			Help: "売約済みになった出品の合計数",
		}),
		listingsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "unicloset_listings_expired_total",
			Help: "保持期間経過で自動削除された売約済み出品の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "unicloset_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "unicloset_request_latency_seconds",
			Help:    "APIリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.listingsCreated,
		c.listingsSold,
		c.listingsExpired,
		c.httpStatus,
		c.requestLatency,
	)

	return c
}

// RecordListingCreated は出品作成を記録する。
func (c *Collector) RecordListingCreated() {
	c.listingsCreated.Inc()
}

// RecordListingSold は出品の売約を記録する。
func (c *Collector) RecordListingSold() {
	c.listingsSold.Inc()
}

// RecordListingsExpired は自動削除された売約済み出品数を記録する。
func (c *Collector) RecordListingsExpired(count int) {
	c.listingsExpired.Add(float64(count))
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はAPIリクエストのレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
