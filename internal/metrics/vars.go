package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	CEXMid = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "arb_cex_mid_usd",
		Help: "CEX mid price (USD) for the configured pair",
	})

	DEXMid = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "arb_dex_mid_usd",
		Help: "DEX pool spot price (USD) for the configured pair",
	})

	GasUSD = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "arb_gas_usd",
		Help: "Estimated swap gas cost in USD",
	})

	OpportunitiesFound = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "arb_opportunities_total",
		Help: "Opportunities emitted above the PnL threshold",
	}, []string{"direction"})

	CrossedBookRejects = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arb_crossed_book_rejects_total",
		Help: "Depth updates rejected because bid >= ask",
	})

	FeedReconnects = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arb_feed_reconnects_total",
		Help: "CEX feed reconnect attempts",
	})

	PoolPollErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arb_pool_poll_errors_total",
		Help: "Failed pool state refreshes (last good snapshot retained)",
	})

	RPCLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "arb_rpc_latency_seconds",
		Help:    "Time to complete a chain read",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(
		CEXMid,
		DEXMid,
		GasUSD,
		OpportunitiesFound,
		CrossedBookRejects,
		FeedReconnects,
		PoolPollErrors,
		RPCLatency,
	)
}
