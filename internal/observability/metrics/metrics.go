package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess = "success"
	OutcomeDenied  = "denied"
	OutcomeError   = "error"
)

const (
	DenialReasonNoProfile    = "no_profile"
	DenialReasonFrozen       = "frozen"
	DenialReasonInsufficient = "insufficient_balance"
	DenialReasonUtilization  = "utilization"
	DenialReasonObligations  = "obligations"
	DenialReasonUnknown      = "unknown"
)

// Config carries the constant labels stamped on every series.
type Config struct {
	ServiceName string
	Environment string
}

// LedgerMetrics instruments credit ledger operations and the settlement sweep.
type LedgerMetrics struct {
	operations    *prometheus.CounterVec
	gateDenials   *prometheus.CounterVec
	sweepRuns     *prometheus.CounterVec
	sweepSettled  prometheus.Counter
	sweepDuration prometheus.Histogram
	lockWait      prometheus.Histogram
}

var (
	ledgerMetricsOnce sync.Once
	ledgerMetrics     *LedgerMetrics
)

// Ledger returns the singleton ledger metrics registry.
func Ledger() *LedgerMetrics {
	return LedgerWithConfig(Config{})
}

// LedgerWithConfig returns the singleton ledger metrics registry using config labels.
func LedgerWithConfig(cfg Config) *LedgerMetrics {
	ledgerMetricsOnce.Do(func() {
		ledgerMetrics = newLedgerMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return ledgerMetrics
}

// ResetLedgerMetricsForTest resets the ledger metrics singleton for tests.
func ResetLedgerMetricsForTest() {
	ledgerMetricsOnce = sync.Once{}
	ledgerMetrics = nil
}

func newLedgerMetrics(registerer prometheus.Registerer, cfg Config) *LedgerMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "creditledger"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "creditledger_operations_total",
		Help:        "Ledger operations by kind and outcome.",
		ConstLabels: constLabels,
	}, []string{"op", "outcome"})
	gateDenials := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "creditledger_gate_denials_total",
		Help:        "Enforcement gate denials by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"op", "reason"})
	sweepRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "creditledger_settlement_sweep_runs_total",
		Help:        "Settlement sweep runs by outcome.",
		ConstLabels: constLabels,
	}, []string{"outcome"})
	sweepSettled := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "creditledger_settlement_sweep_profiles_total",
		Help:        "Profiles settled by the periodic sweep.",
		ConstLabels: constLabels,
	})
	sweepDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "creditledger_settlement_sweep_duration_seconds",
		Help:        "Settlement sweep latency.",
		Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		ConstLabels: constLabels,
	})
	lockWait := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "creditledger_farmer_lock_wait_seconds",
		Help:        "Wait time for the per-farmer mutation lock.",
		Buckets:     []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		ConstLabels: constLabels,
	})

	registerer.MustRegister(
		operations,
		gateDenials,
		sweepRuns,
		sweepSettled,
		sweepDuration,
		lockWait,
	)

	return &LedgerMetrics{
		operations:    operations,
		gateDenials:   gateDenials,
		sweepRuns:     sweepRuns,
		sweepSettled:  sweepSettled,
		sweepDuration: sweepDuration,
		lockWait:      lockWait,
	}
}

// ObserveOperation records one ledger operation outcome.
func (m *LedgerMetrics) ObserveOperation(op, outcome string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, outcome).Inc()
}

// ObserveGateDenial records one enforcement gate denial.
func (m *LedgerMetrics) ObserveGateDenial(op, reason string) {
	if m == nil {
		return
	}
	m.gateDenials.WithLabelValues(op, reason).Inc()
}

// ObserveSweep records one settlement sweep run.
func (m *LedgerMetrics) ObserveSweep(outcome string, settled int, duration time.Duration) {
	if m == nil {
		return
	}
	m.sweepRuns.WithLabelValues(outcome).Inc()
	m.sweepSettled.Add(float64(settled))
	m.sweepDuration.Observe(duration.Seconds())
}

// ObserveLockWait records how long a mutation waited for its farmer lock.
func (m *LedgerMetrics) ObserveLockWait(duration time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.Observe(duration.Seconds())
}
