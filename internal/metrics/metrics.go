// Package metrics bundles the Prometheus collectors for the HTTP surface and
// the serviceability checks, and exposes helpers to wire them into handlers.
package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Check outcomes.
const (
	OutcomeServed   = "served"
	OutcomeInvalid  = "invalid"
	OutcomeFailed   = "failed"
	OutcomeNoStores = "no_stores"
)

// Collector holds every metric the service exports.
type Collector struct {
	gatherer prometheus.Gatherer

	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec

	Checks          *prometheus.CounterVec
	CandidateCounts prometheus.Histogram
	StoreDistances  prometheus.Histogram
	StoreMutations  *prometheus.CounterVec
}

// NewCollector registers the metrics against reg, defaulting to the global
// registry when nil. Re-registration returns the existing collectors.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	requests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storelocator_http_requests_total",
		Help: "Total HTTP requests, labeled by method, route and status code.",
	}, []string{"method", "route", "code"}), "storelocator_http_requests_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storelocator_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"method", "route"}), "storelocator_http_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	checks, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storelocator_serviceability_checks_total",
		Help: "Serviceability checks by outcome.",
	}, []string{"outcome"}), "storelocator_serviceability_checks_total")
	if err != nil {
		return nil, err
	}

	candidates, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "storelocator_serviceable_stores",
		Help:    "Stores returned by the radius query per check.",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
	}), "storelocator_serviceable_stores")
	if err != nil {
		return nil, err
	}

	distances, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "storelocator_store_distance_meters",
		Help:    "Distance from the delivery location to each serviceable store.",
		Buckets: []float64{250, 500, 1000, 2000, 4000, 8000, 12000, 16000},
	}), "storelocator_store_distance_meters")
	if err != nil {
		return nil, err
	}

	mutations, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storelocator_store_mutations_total",
		Help: "Admin store mutations by operation.",
	}, []string{"op"}), "storelocator_store_mutations_total")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:        gatherer,
		HTTPRequests:    requests,
		HTTPDurations:   durations,
		Checks:          checks,
		CandidateCounts: candidates,
		StoreDistances:  distances,
		StoreMutations:  mutations,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ObserveCheck records one serviceability check. distances is empty unless
// the outcome is OutcomeServed.
func (c *Collector) ObserveCheck(outcome string, candidates int, distances []int) {
	if c == nil {
		return
	}
	c.Checks.WithLabelValues(outcome).Inc()
	if outcome != OutcomeServed && outcome != OutcomeNoStores {
		return
	}
	c.CandidateCounts.Observe(float64(candidates))
	for _, d := range distances {
		c.StoreDistances.Observe(float64(d))
	}
}

// ObserveMutation records a successful store create or delete.
func (c *Collector) ObserveMutation(op string) {
	if c == nil {
		return
	}
	c.StoreMutations.WithLabelValues(op).Inc()
}

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// Instrument wraps next, recording count and latency under route. The route
// label is fixed by the caller to keep cardinality bounded.
func (c *Collector) Instrument(route string, next http.Handler) http.Handler {
	if c == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		c.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		c.HTTPDurations.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}
