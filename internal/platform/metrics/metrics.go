package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type Collector struct {
	reg *prometheus.Registry

	Lookups        *prometheus.CounterVec // outcome label: ok|failed
	LookupDuration prometheus.Histogram

	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	Records *prometheus.GaugeVec // route, status labels

	FetchConcurrency prometheus.Gauge
}

func NewCollector(concurrency int) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		Lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "commute_lookups_total",
			Help: "Travel-time lookups by outcome.",
		}, []string{"outcome"}),
		LookupDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "commute_lookup_duration_seconds",
			Help:    "Latency of a single travel-time lookup, retries included.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "commute_prediction_cache_hits_total",
			Help: "Predictions served from the cache.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "commute_prediction_cache_misses_total",
			Help: "Predictions not found in the cache.",
		}),
		Records: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "commute_table_records",
			Help: "Records in the last commute table per route and status.",
		}, []string{"route", "status"}),
		FetchConcurrency: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "commute_fetch_concurrency",
			Help: "Configured maximum of in-flight lookups.",
		}),
	}

	reg.MustRegister(
		c.Lookups, c.LookupDuration,
		c.CacheHits, c.CacheMisses,
		c.Records, c.FetchConcurrency,
	)

	c.FetchConcurrency.Set(float64(concurrency))

	return c
}

func (c *Collector) ObserveLookup(ok bool, d time.Duration) {
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	c.Lookups.WithLabelValues(outcome).Inc()
	c.LookupDuration.Observe(d.Seconds())
}

func (c *Collector) CacheHit()  { c.CacheHits.Inc() }
func (c *Collector) CacheMiss() { c.CacheMisses.Inc() }

func (c *Collector) SetRecords(route string, ok, failed int) {
	c.Records.WithLabelValues(route, "ok").Set(float64(ok))
	c.Records.WithLabelValues(route, "failed").Set(float64(failed))
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server error")
		}
	}()
	log.Info().Str("addr", addr).Msg("metrics listening")
	return srv
}
