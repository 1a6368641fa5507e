package prom

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	xhttp "github.com/nimasrn/crowdfund/pkg/http"
	"github.com/nimasrn/crowdfund/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

const (
	SystemCampaigns   = "campaign"
	SystemDonations   = "donation"
	SystemWithdrawals = "withdrawal"
	SystemEmails      = "email"
	SystemHTTP        = "http"
)

const (
	MetricCampaignsCreated     = "created_total"
	MetricDonationsCompleted   = "completed_total"
	MetricDonationAmount       = "amount_minor_total"
	MetricWithdrawalsRequested = "requested_total"
	MetricEmailsSent           = "sent_total"
	MetricRequestDuration      = "request_duration_seconds"
)

const (
	TypeCounter      = "counter"
	TypeCounterVec   = "counterVec"
	TypeHistogramVec = "histogramVec"
	TypeGaugeVec     = "gaugeVec"
)

var lockCreateMetricLock = &sync.Mutex{}
var namespace = "none"

var MetricSystemEnabled = false

var MetricCollectionCounters = make(map[string]prometheus.Counter)
var MetricCollectionCounterVec = make(map[string]*prometheus.CounterVec)
var MetricCollectionGaugeVec = make(map[string]*prometheus.GaugeVec)
var MetricCollectionHistogramVec = make(map[string]*prometheus.HistogramVec)

var defaultLabels prometheus.Labels

// Create registers the application metrics. Until it is called every
// recording helper is a no-op.
func Create(host string, env string, nameSpace string) error {
	defaultLabels = prometheus.Labels{"env": env, "instance": host}
	namespace = nameSpace

	var err error
	hasError := func(e error) {
		if err == nil && e != nil {
			err = e
		}
	}

	hasError(createCounter(SystemCampaigns, MetricCampaignsCreated))
	hasError(createCounterVec(SystemDonations, MetricDonationsCompleted, []string{"currency"}))
	hasError(createCounterVec(SystemDonations, MetricDonationAmount, []string{"currency"}))
	hasError(createCounter(SystemWithdrawals, MetricWithdrawalsRequested))
	hasError(createCounterVec(SystemEmails, MetricEmailsSent, []string{"status"}))
	hasError(createHistogramVec(SystemHTTP, MetricRequestDuration, []string{"method", "status"}))

	MetricSystemEnabled = err == nil
	return err
}

func CreateMetric(metricType, metricSubsystem, metricName string, labelsValues ...string) error {
	switch metricType {
	case TypeCounter:
		return createCounter(metricSubsystem, metricName)
	case TypeCounterVec:
		return createCounterVec(metricSubsystem, metricName, labelsValues)
	case TypeHistogramVec:
		return createHistogramVec(metricSubsystem, metricName, labelsValues)
	case TypeGaugeVec:
		return createGaugeVec(metricSubsystem, metricName, labelsValues)
	}
	return fmt.Errorf("metric type %s is not defined", metricType)
}

func ListenAndServer(addr string, uri string) {
	s := xhttp.CreateServer()
	s.GET(uri, fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler()))
	logger.Info("[metrics-server] listening...", "addr", addr, "uri", uri)
	if err := s.ListenAndServe(addr); err != nil {
		logger.Panic("[metrics-server] http listen error", "error", err)
	}
}

func register(c prometheus.Collector) error {
	if err := prometheus.Register(c); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return nil
		}
		return err
	}
	return nil
}

func createCounter(subsystem, name string) error {
	lockCreateMetricLock.Lock()
	defer lockCreateMetricLock.Unlock()
	if _, ok := MetricCollectionCounters[subsystem+name]; ok {
		return nil
	}
	c := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		ConstLabels: defaultLabels,
	})
	MetricCollectionCounters[subsystem+name] = c
	return register(c)
}

func createCounterVec(subsystem, name string, labels []string) error {
	lockCreateMetricLock.Lock()
	defer lockCreateMetricLock.Unlock()
	if _, ok := MetricCollectionCounterVec[subsystem+name]; ok {
		return nil
	}
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		ConstLabels: defaultLabels,
	}, labels)
	MetricCollectionCounterVec[subsystem+name] = c
	return register(c)
}

func createHistogramVec(subsystem, name string, labels []string) error {
	lockCreateMetricLock.Lock()
	defer lockCreateMetricLock.Unlock()
	if _, ok := MetricCollectionHistogramVec[subsystem+name]; ok {
		return nil
	}
	h := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		ConstLabels: defaultLabels,
		Buckets:     prometheus.DefBuckets,
	}, labels)
	MetricCollectionHistogramVec[subsystem+name] = h
	return register(h)
}

func createGaugeVec(subsystem, name string, labels []string) error {
	lockCreateMetricLock.Lock()
	defer lockCreateMetricLock.Unlock()
	if _, ok := MetricCollectionGaugeVec[subsystem+name]; ok {
		return nil
	}
	g := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		ConstLabels: defaultLabels,
	}, labels)
	MetricCollectionGaugeVec[subsystem+name] = g
	return register(g)
}

func IncCounter(subsystem, name string) {
	AddCounter(subsystem, name, 1)
}

func AddCounter(subsystem, name string, number float64) {
	if !MetricSystemEnabled {
		return
	}
	if v, ok := MetricCollectionCounters[subsystem+name]; ok {
		v.Add(number)
		return
	}
	logger.Warn("[metrics-server] counter not found", "subsystem", subsystem, "name", name)
}

func AddCounterVec(subsystem, name string, num float64, labelValues ...string) {
	if !MetricSystemEnabled {
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

func AddGaugeVec(subsystem, name string, num float64, labelValues ...string) {
	if !MetricSystemEnabled {
		return
	}
	if v, ok := MetricCollectionGaugeVec[subsystem+name]; ok {
		v.WithLabelValues(labelValues...).Add(num)
		return
	}
	logger.Warn("[metrics-server] gauge not found", "subsystem", subsystem, "name", name)
}

func AddHistogramVec(subsystem, name string, number float64, labelValues ...string) {
	if !MetricSystemEnabled {
		return
	}
	if v, ok := MetricCollectionHistogramVec[subsystem+name]; ok {
		v.WithLabelValues(labelValues...).Observe(number)
		return
	}
	logger.Warn("[metrics-server] histogram vec not found", "subsystem", subsystem, "name", name)
}

func CampaignCreated() {
	IncCounter(SystemCampaigns, MetricCampaignsCreated)
}

func DonationCompleted(currency string, amount int64) {
	IncCounterVec(SystemDonations, MetricDonationsCompleted, currency)
	AddCounterVec(SystemDonations, MetricDonationAmount, float64(amount), currency)
}

func WithdrawalRequested() {
	IncCounter(SystemWithdrawals, MetricWithdrawalsRequested)
}

func EmailSent(status string) {
	IncCounterVec(SystemEmails, MetricEmailsSent, status)
}

// ObserveRequest matches xhttp.LatencyObserver.
func ObserveRequest(method string, status int, latency time.Duration) {
	AddHistogramVec(SystemHTTP, MetricRequestDuration, latency.Seconds(), method, strconv.Itoa(status))
}
