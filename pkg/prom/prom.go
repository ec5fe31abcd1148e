package prom

import (
	"sync"
	"time"

	xhttp "github.com/nimasrn/ride-settlement/pkg/http"
	"github.com/nimasrn/ride-settlement/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

const (
	SystemBooking    = "booking"
	SystemSettlement = "settlement"
)
const (
	MetricBookingOutcomes       = "outcomes_total"
	MetricBookingDuration       = "duration_seconds"
	MetricBookingConflictRetry  = "conflict_retries_total"
	MetricSettlementOutcomes    = "outcomes_total"
	MetricSettlementGatewayTime = "gateway_duration_seconds"
	MetricSettlementQueueDepth  = "queue_messages"
)

var lockCreateMetricLock = &sync.Mutex{}
var namespace = "none"

var MetricSystemEnabled = false

var MetricCollectionCounters = make(map[string]prometheus.Counter)
var MetricCollectionCounterVec = make(map[string]*prometheus.CounterVec)
var MetricCollectionGaugeVec = make(map[string]*prometheus.GaugeVec)
var MetricCollectionHistogramVec = make(map[string]*prometheus.HistogramVec)

var defaultLabels prometheus.Labels

func Create(host string, env string, nameSpace string) error {
	defaultLabels = make(prometheus.Labels)
	defaultLabels["env"] = env
	defaultLabels["instance"] = host
	namespace = nameSpace
	MetricSystemEnabled = true

	var err error
	hasError := func(e error) {
		if err == nil && e != nil {
			err = e
		}
	}

	// Bookings
	hasError(createCounterVec(SystemBooking, MetricBookingOutcomes, []string{"operation", "outcome"}))
	hasError(createHistogramVec(SystemBooking, MetricBookingDuration, []string{"operation"}))
	hasError(createCounter(SystemBooking, MetricBookingConflictRetry))

	// Settlement
	hasError(createCounterVec(SystemSettlement, MetricSettlementOutcomes, []string{"mode", "status"}))
	hasError(createHistogramVec(SystemSettlement, MetricSettlementGatewayTime, []string{"provider"}))
	hasError(createGaugeVec(SystemSettlement, MetricSettlementQueueDepth, []string{"queue", "state"}))

	return err
}

func ListenAndServer(port string, url string) {
	hh := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	s := xhttp.CreateServer()
	s.GET(url, hh)
	logger.Info("[metrics-server] listening...", "url", url)
	if err := s.ListenAndServe(port); err != nil {
		logger.Panic("[metrics-server] http listen error", "error", err)
	}
}

func createCounter(subsystem, name string) error {
	lockCreateMetricLock.Lock()
	defer lockCreateMetricLock.Unlock()
	MetricCollectionCounters[subsystem+name] = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		Help:        "",
		ConstLabels: defaultLabels,
	})
	return prometheus.Register(MetricCollectionCounters[subsystem+name])
}

func createCounterVec(subsystem, name string, labels []string) error {
	lockCreateMetricLock.Lock()
	defer lockCreateMetricLock.Unlock()
	MetricCollectionCounterVec[subsystem+name] = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		Help:        "",
		ConstLabels: defaultLabels,
	}, labels)
	return prometheus.Register(MetricCollectionCounterVec[subsystem+name])
}

func createHistogramVec(subsystem, name string, labels []string) error {
	lockCreateMetricLock.Lock()
	defer lockCreateMetricLock.Unlock()
	MetricCollectionHistogramVec[subsystem+name] = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		Help:        "",
		ConstLabels: defaultLabels,
		Buckets:     []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, labels)
	return prometheus.Register(MetricCollectionHistogramVec[subsystem+name])
}

func createGaugeVec(subsystem, name string, labels []string) error {
	lockCreateMetricLock.Lock()
	defer lockCreateMetricLock.Unlock()

	MetricCollectionGaugeVec[subsystem+name] = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		Help:        "",
		ConstLabels: defaultLabels,
	}, labels)
	return prometheus.Register(MetricCollectionGaugeVec[subsystem+name])
}

func IncCounter(subsystem, name string) {
	AddCounter(subsystem, name, 1)
}

func AddCounter(subsystem, name string, number float64) {
	if MetricSystemEnabled == false {
		return
	}
	if v, ok := MetricCollectionCounters[subsystem+name]; ok {
		v.Add(number)
		return
	}
	logger.Warn("[metrics-server] counter not found", "subsystem", subsystem, "name", name)
}

func SetGaugeVec(subsystem, name string, num float64, labelValues ...string) {
	if MetricSystemEnabled == false {
		return
	}
	if v, ok := MetricCollectionGaugeVec[subsystem+name]; ok {
		v.WithLabelValues(labelValues...).Set(num)
		return
	}
	logger.Warn("[metrics-server] gauge not found", "subsystem", subsystem, "name", name)
}

func AddCounterVec(subsystem, name string, num float64, labelValues ...string) {
	if MetricSystemEnabled == false {
		return
	}
	if v, ok := MetricCollectionCounterVec[subsystem+name]; ok {
		v.WithLabelValues(labelValues...).Add(num)
		return
	}
	logger.Warn("[metrics-server] counter vec not found", "subsystem", subsystem, "name", name)
}

func IncCounterVec(subsystem, name string, labelValues ...string) {
	AddCounterVec(subsystem, name, 1, labelValues...)
}

func AddHistogramVec(subsystem, name string, number float64, labelValues ...string) {
	if MetricSystemEnabled == false {
		return
	}
	if v, ok := MetricCollectionHistogramVec[subsystem+name]; ok {
		v.WithLabelValues(labelValues...).Observe(number)
		return
	}
	logger.Warn("[metrics-server] histogram vec not found", "subsystem", subsystem, "name", name)
}

// ObserveBooking records the outcome and latency of a booking operation.
func ObserveBooking(operation, outcome string, d time.Duration) {
	IncCounterVec(SystemBooking, MetricBookingOutcomes, operation, outcome)
	AddHistogramVec(SystemBooking, MetricBookingDuration, d.Seconds(), operation)
}

func IncBookingConflictRetry() {
	IncCounter(SystemBooking, MetricBookingConflictRetry)
}

func IncSettlement(mode, status string) {
	IncCounterVec(SystemSettlement, MetricSettlementOutcomes, mode, status)
}

func ObserveGatewayDuration(provider string, d time.Duration) {
	AddHistogramVec(SystemSettlement, MetricSettlementGatewayTime, d.Seconds(), provider)
}

// SetQueueDepth publishes the size of a settlement stream by state
// (total, pending, dead_lettered).
func SetQueueDepth(queue, state string, n int64) {
	SetGaugeVec(SystemSettlement, MetricSettlementQueueDepth, float64(n), queue, state)
}
