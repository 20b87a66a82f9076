package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	DecisionAllowed        = "allowed"
	DecisionPersonalBypass = "personal_bypass"
	DecisionUnauthorized   = "unauthorized"
	DecisionNoMembership   = "no_membership"
	DecisionForbidden      = "forbidden"
)

const (
	ReasonDeadlineExceeded     = "deadline_exceeded"
	ReasonDBLockTimeout        = "db_lock_timeout"
	ReasonSerializationFailure = "serialization_failure"
	ReasonUniqueViolation      = "unique_violation"
	ReasonUnknown              = "unknown"
)

const (
	ClaimSyncApplied = "applied"
	ClaimSyncRetried = "retried"
	ClaimSyncFailed  = "failed"
)

const (
	JoinStatusPending  = "PENDING"
	JoinStatusApproved = "APPROVED"
	JoinStatusRejected = "REJECTED"
)

// DomainMetrics captures gate, recompute and membership health signals on /metrics.
type DomainMetrics struct {
	gateDecisions     *prometheus.CounterVec
	recomputeRuns     *prometheus.CounterVec
	recomputeDuration prometheus.Observer
	recomputeErrors   *prometheus.CounterVec
	claimSyncJobs     *prometheus.CounterVec
	joinTransitions   *prometheus.CounterVec
	workerLag         prometheus.Observer
	transitionCounts  map[string]map[string]prometheus.Counter
}

var (
	domainMetricsOnce sync.Once
	domainMetrics     *DomainMetrics
)

// Domain returns the singleton domain metrics registry.
func Domain() *DomainMetrics {
	return DomainWithConfig(Config{})
}

// DomainWithConfig returns the singleton registry labelled with the service and environment.
func DomainWithConfig(cfg Config) *DomainMetrics {
	domainMetricsOnce.Do(func() {
		domainMetrics = newDomainMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return domainMetrics
}

// ResetDomainMetricsForTest resets the singleton for tests.
func ResetDomainMetricsForTest() {
	domainMetricsOnce = sync.Once{}
	domainMetrics = nil
}

func newDomainMetrics(registerer prometheus.Registerer, cfg Config) *DomainMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	constLabels := prometheus.Labels{
		"service": defaultString(cfg.ServiceName, "tally"),
		"env":     defaultString(cfg.Environment, "unknown"),
	}

	gateDecisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "tally_permission_decisions_total",
		Help:        "Permission gate decisions by outcome.",
		ConstLabels: constLabels,
	}, []string{"outcome"})
	recomputeRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "tally_business_metrics_recompute_total",
		Help:        "Business metrics recomputations by trigger.",
		ConstLabels: constLabels,
	}, []string{"trigger"})
	recomputeDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "tally_business_metrics_recompute_duration_seconds",
		Help:        "Latency of a single business metrics recomputation.",
		Buckets:     []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		ConstLabels: constLabels,
	})
	recomputeErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "tally_business_metrics_recompute_errors_total",
		Help:        "Business metrics recompute failures by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"reason"})
	claimSyncJobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "tally_claim_sync_jobs_total",
		Help:        "Identity claim sync attempts by outcome.",
		ConstLabels: constLabels,
	}, []string{"outcome"})
	joinTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "tally_join_request_transitions_total",
		Help:        "Join request state transitions.",
		ConstLabels: constLabels,
	}, []string{"from", "to"})
	workerLag := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "tally_worker_runloop_lag_seconds",
		Help:        "Background worker lag beyond the configured interval.",
		Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		ConstLabels: constLabels,
	})

	registerer.MustRegister(
		gateDecisions,
		recomputeRuns,
		recomputeDuration,
		recomputeErrors,
		claimSyncJobs,
		joinTransitions,
		workerLag,
	)

	transitionCounts := map[string]map[string]prometheus.Counter{
		"": {
			JoinStatusPending: joinTransitions.WithLabelValues("", JoinStatusPending),
		},
		JoinStatusPending: {
			JoinStatusApproved: joinTransitions.WithLabelValues(JoinStatusPending, JoinStatusApproved),
			JoinStatusRejected: joinTransitions.WithLabelValues(JoinStatusPending, JoinStatusRejected),
		},
	}

	return &DomainMetrics{
		gateDecisions:     gateDecisions,
		recomputeRuns:     recomputeRuns,
		recomputeDuration: recomputeDuration,
		recomputeErrors:   recomputeErrors,
		claimSyncJobs:     claimSyncJobs,
		joinTransitions:   joinTransitions,
		workerLag:         workerLag,
		transitionCounts:  transitionCounts,
	}
}

func (m *DomainMetrics) IncGateDecision(outcome string) {
	if m == nil {
		return
	}
	m.gateDecisions.WithLabelValues(outcome).Inc()
}

func (m *DomainMetrics) ObserveRecompute(trigger string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.recomputeRuns.WithLabelValues(trigger).Inc()
	m.recomputeDuration.Observe(duration.Seconds())
	if err != nil {
		m.recomputeErrors.WithLabelValues(ClassifyReason(err)).Inc()
	}
}

func (m *DomainMetrics) AddClaimSync(outcome string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.claimSyncJobs.WithLabelValues(outcome).Add(float64(count))
}

// IncJoinTransition records a join request moving from one status to another.
// An empty from means the request was just created.
func (m *DomainMetrics) IncJoinTransition(from, to string) {
	if m == nil {
		return
	}
	if toCounters, ok := m.transitionCounts[from]; ok {
		if counter, ok := toCounters[to]; ok {
			counter.Inc()
			return
		}
	}
	m.joinTransitions.WithLabelValues(from, to).Inc()
}

func (m *DomainMetrics) ObserveWorkerLag(lag time.Duration) {
	if m == nil {
		return
	}
	if lag < 0 {
		lag = 0
	}
	m.workerLag.Observe(lag.Seconds())
}

// ClassifyReason maps storage and context errors to low-cardinality labels.
func ClassifyReason(err error) string {
	switch {
	case err == nil:
		return ReasonUnknown
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		return ReasonDeadlineExceeded
	case hasPGCode(err, "55P03"):
		return ReasonDBLockTimeout
	case hasPGCode(err, "40001"):
		return ReasonSerializationFailure
	case errors.Is(err, gorm.ErrDuplicatedKey) || hasPGCode(err, "23505"):
		return ReasonUniqueViolation
	default:
		return ReasonUnknown
	}
}

// IsRetryable reports whether a background job should try again later.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) || errors.Is(err, gorm.ErrInvalidTransaction)
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}

func defaultString(value, def string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return def
	}
	return value
}
