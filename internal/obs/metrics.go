package obs

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Transaction outcomes.
const (
	OutcomeCommit   = "commit"
	OutcomeRollback = "rollback"
)

var (
	registerOnce sync.Once

	transactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rig_db_transactions_total",
			Help: "Database transactions by outcome.",
		},
		[]string{"outcome"},
	)

	transactionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rig_db_transaction_duration_seconds",
			Help:    "Wall time from BEGIN to COMMIT or ROLLBACK.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	auditEventsWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rig_audit_events_written_total",
			Help: "Committed audit rows, by audit table.",
		},
		[]string{"kind"},
	)

	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rig_build_info",
			Help: "Build information.",
		},
		[]string{"version", "commit"},
	)
)

// Register adds all collectors to reg. Only the first call has an effect.
func Register(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		reg.MustRegister(transactionsTotal, transactionDuration, auditEventsWritten, buildInfo)
	})
}

// SetBuildInfo publishes rig_build_info{version,commit} 1.
func SetBuildInfo(version, commit string) {
	buildInfo.WithLabelValues(version, commit).Set(1)
}

// ObserveTransaction records one finished transaction.
func ObserveTransaction(outcome string, elapsed time.Duration) {
	transactionsTotal.WithLabelValues(outcome).Inc()
	transactionDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// Audit row kinds.
const (
	AuditAccess = "access"
	AuditUser   = "user"
)

type auditTallyKey struct{}

// AuditTally holds audit inserts made inside one transaction until it
// commits. A tally that is never committed counts nothing.
type AuditTally struct {
	mu     sync.Mutex
	counts map[string]int
}

// WithAuditTally returns ctx carrying a fresh tally.
func WithAuditTally(ctx context.Context) (context.Context, *AuditTally) {
	t := &AuditTally{counts: make(map[string]int)}
	return context.WithValue(ctx, auditTallyKey{}, t), t
}

// Commit publishes the held inserts and empties the tally.
func (t *AuditTally) Commit() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for kind, n := range t.counts {
		auditEventsWritten.WithLabelValues(kind).Add(float64(n))
	}
	clear(t.counts)
}

// AuditEventWritten records one audit insert of kind. When ctx carries a
// tally the insert is held until the tally commits; otherwise it is counted
// at once.
func AuditEventWritten(ctx context.Context, kind string) {
	if t, ok := ctx.Value(auditTallyKey{}).(*AuditTally); ok {
		t.mu.Lock()
		t.counts[kind]++
		t.mu.Unlock()
		return
	}
	auditEventsWritten.WithLabelValues(kind).Inc()
}

// TransactionCount returns the current counter value; used by tests.
func TransactionCount(outcome string) float64 {
	return counterValue(transactionsTotal.WithLabelValues(outcome))
}

// AuditEventCount returns the current counter value; used by tests.
func AuditEventCount(kind string) float64 {
	return counterValue(auditEventsWritten.WithLabelValues(kind))
}

func counterValue(c prometheus.Counter) float64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}
