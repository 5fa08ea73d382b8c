package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector captures telemetry events emitted by the editor.
//
// Implementations may forward metrics to Prometheus, loggers or other
// monitoring systems. They should be inexpensive to call because hooks run
// inline with commit processing.
type Collector interface {
	IncCommit(mode string)
	IncCommitFailure(mode, stage string)
	SetRegistryEntries(kind string, count int)
}

type noopCollector struct{}

// Noop returns a collector that discards all metrics.
func Noop() Collector {
	return noopCollector{}
}

func (noopCollector) IncCommit(string)                {}
func (noopCollector) IncCommitFailure(string, string) {}
func (noopCollector) SetRegistryEntries(string, int)  {}

// PrometheusCollector exposes editor counters via Prometheus.
type PrometheusCollector struct {
	commits         *prometheus.CounterVec
	commitFailures  *prometheus.CounterVec
	registryEntries *prometheus.GaugeVec
}

var (
	commitCounter        *prometheus.CounterVec
	commitCounterLock    sync.Mutex
	commitFailureCounter *prometheus.CounterVec
	commitFailureLock    sync.Mutex
	registryEntriesGauge *prometheus.GaugeVec
	registryEntriesLock  sync.Mutex
)

// NewPrometheusCollector registers the required metrics with the provided
// registerer.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	commitCounterLock.Lock()
	if commitCounter == nil {
		counter := prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reactorcad_commit_total",
			Help: "Number of successful commits per mode (create or update).",
		}, []string{"mode"})
		registered, err := registerCounterVec(reg, counter)
		if err != nil {
			commitCounterLock.Unlock()
			return nil, err
		}
		commitCounter = registered
	}
	commitCounterLock.Unlock()

	commitFailureLock.Lock()
	if commitFailureCounter == nil {
		counter := prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reactorcad_commit_failure_total",
			Help: "Number of failed commits per mode and failing stage.",
		}, []string{"mode", "stage"})
		registered, err := registerCounterVec(reg, counter)
		if err != nil {
			commitFailureLock.Unlock()
			return nil, err
		}
		commitFailureCounter = registered
	}
	commitFailureLock.Unlock()

	registryEntriesLock.Lock()
	if registryEntriesGauge == nil {
		gauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "reactorcad_registry_entries",
			Help: "Number of staged I/O descriptors per kind.",
		}, []string{"kind"})
		registered, err := registerGaugeVec(reg, gauge)
		if err != nil {
			registryEntriesLock.Unlock()
			return nil, err
		}
		registryEntriesGauge = registered
	}
	registryEntriesLock.Unlock()

	return &PrometheusCollector{
		commits:         commitCounter,
		commitFailures:  commitFailureCounter,
		registryEntries: registryEntriesGauge,
	}, nil
}

func registerCounterVec(reg prometheus.Registerer, counter *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(counter); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return counter, nil
}

func registerGaugeVec(reg prometheus.Registerer, gauge *prometheus.GaugeVec) (*prometheus.GaugeVec, error) {
	if err := reg.Register(gauge); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return gauge, nil
}

// IncCommit increments the success counter for the given mode.
func (p *PrometheusCollector) IncCommit(mode string) {
	if p == nil || p.commits == nil {
		return
	}
	p.commits.WithLabelValues(mode).Inc()
}

// IncCommitFailure increments the failure counter for the given mode and
// stage.
func (p *PrometheusCollector) IncCommitFailure(mode, stage string) {
	if p == nil || p.commitFailures == nil {
		return
	}
	p.commitFailures.WithLabelValues(mode, stage).Inc()
}

// SetRegistryEntries updates the staged descriptor gauge for one kind.
func (p *PrometheusCollector) SetRegistryEntries(kind string, count int) {
	if p == nil || p.registryEntries == nil {
		return
	}
	p.registryEntries.WithLabelValues(kind).Set(float64(count))
}
