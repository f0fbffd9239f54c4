package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the Prometheus instruments for one pair's controller:
// orders, matching throughput/depth, and trade volume/fees.
type Collector struct {
	OrdersTotal    *prometheus.CounterVec
	OrdersActive   prometheus.Gauge
	MatchingLatency prometheus.Histogram
	MatchedLevels  prometheus.Histogram
	OrderbookDepth *prometheus.GaugeVec
	TradesTotal    prometheus.Counter
	TradeVolume    *prometheus.CounterVec
	FeesCollected  *prometheus.CounterVec

	registerOnce sync.Once
}

// NewCollector builds an unregistered Collector. Call Register to attach
// it to a prometheus.Registerer (nil registers against the default
// registry).
func NewCollector() *Collector {
	return &Collector{
		OrdersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pairbook",
			Subsystem: "orders",
			Name:      "total",
			Help:      "Total number of orders submitted, by side and type.",
		}, []string{"side", "type"}),
		OrdersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pairbook",
			Subsystem: "orders",
			Name:      "active",
			Help:      "Currently open resting orders.",
		}),
		MatchingLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pairbook",
			Subsystem: "matching",
			Name:      "latency_ms",
			Help:      "Wall-clock latency of a single match() scan.",
			Buckets:   prometheus.DefBuckets,
		}),
		MatchedLevels: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pairbook",
			Subsystem: "matching",
			Name:      "levels_visited",
			Help:      "Number of price levels that produced a match entry per match() call (<= MaxMatchedPricePoints).",
			Buckets:   []float64{0, 1, 2, 3, 4, 5},
		}),
		OrderbookDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "pairbook",
			Subsystem: "book",
			Name:      "depth",
			Help:      "Resting liquidity at a price point, by side.",
		}, []string{"side"}),
		TradesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pairbook",
			Subsystem: "trades",
			Name:      "total",
			Help:      "Total number of match entries produced.",
		}),
		TradeVolume: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pairbook",
			Subsystem: "trades",
			Name:      "volume_base",
			Help:      "Cumulative consumed base amount, by side.",
		}, []string{"side"}),
		FeesCollected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pairbook",
			Subsystem: "fees",
			Name:      "collected",
			Help:      "Cumulative fees swept by collectFees, by asset.",
		}, []string{"asset"}),
	}
}

// Register attaches every instrument to reg, or to the default registry
// if reg is nil. Safe to call more than once.
func (c *Collector) Register(reg prometheus.Registerer) {
	c.registerOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		reg.MustRegister(
			c.OrdersTotal,
			c.OrdersActive,
			c.MatchingLatency,
			c.MatchedLevels,
			c.OrderbookDepth,
			c.TradesTotal,
			c.TradeVolume,
			c.FeesCollected,
		)
	})
}

// ObserveMatch records one match() call's outcome: how many price levels
// produced a match entry, also added to the trade count when non-zero.
func (c *Collector) ObserveMatch(levelsMatched int) {
	c.MatchedLevels.Observe(float64(levelsMatched))
	if levelsMatched > 0 {
		c.TradesTotal.Add(float64(levelsMatched))
	}
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures elapsed wall-clock time for a latency observation.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ElapsedMs returns the elapsed time in milliseconds.
func (t *Timer) ElapsedMs() float64 {
	return float64(time.Since(t.start).Microseconds()) / 1000.0
}
