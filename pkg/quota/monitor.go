package quota

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DedupWindow suppresses repeat alerts for the same (provider, severity)
// pair. Cleared only by process restart.
const DedupWindow = time.Hour

// DefaultPollInterval is how often the background check re-evaluates every
// provider independent of RecordUsage calls.
const DefaultPollInterval = 5 * time.Minute

// Message is the flat payload handed to the notification channel.
type Message struct {
	Provider   string   `json:"provider"`
	Severity   Severity `json:"severity"`
	Used       int64    `json:"used"`
	Limit      int64    `json:"limit"`
	Percentage float64  `json:"percentage"`
}

// Notifier delivers alerts. Retries and delivery guarantees are the
// channel's concern, not the monitor's.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// LogNotifier writes alerts to the log, the default channel when no external
// one is wired.
type LogNotifier struct {
	Logger *zap.Logger
}

// Send implements Notifier.
func (n *LogNotifier) Send(_ context.Context, msg Message) error {
	n.Logger.Warn("quota alert",
		zap.String("provider", msg.Provider),
		zap.String("severity", string(msg.Severity)),
		zap.Int64("used", msg.Used),
		zap.Int64("limit", msg.Limit),
		zap.Float64("percentage", msg.Percentage))
	return nil
}

// Monitor owns the quota map and the notification dedup state. Constructed at
// process start and injected wherever usage is recorded.
type Monitor struct {
	mu           sync.Mutex
	quotas       map[string]*Quota
	lastNotified map[string]time.Time

	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewMonitor builds a monitor from definitions. A nil notifier disables
// alerting (thresholds are still tracked and reported).
func NewMonitor(defs []Definition, notifier Notifier, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Monitor{
		quotas:       make(map[string]*Quota, len(defs)),
		lastNotified: make(map[string]time.Time),
		notifier:     notifier,
		logger:       logger.Named("quota"),
		now:          time.Now,
	}
	for _, d := range defs {
		period := time.Duration(d.ResetMinutes) * time.Minute
		if period <= 0 {
			period = 24 * time.Hour
		}
		m.quotas[d.Provider] = &Quota{
			Provider:          d.Provider,
			Limit:             d.Limit,
			ResetAt:           m.now().Add(period),
			WarningThreshold:  d.WarningThreshold,
			CriticalThreshold: d.CriticalThreshold,
			ResetPeriod:       period,
		}
	}
	return m
}

// RecordUsage adds amount to a provider's counter, resetting the window
// first if it has lapsed, then evaluates thresholds. Unknown providers are
// ignored.
func (m *Monitor) RecordUsage(ctx context.Context, provider string, amount int64) {
	m.mu.Lock()
	q, ok := m.quotas[provider]
	if !ok {
		m.mu.Unlock()
		return
	}
	m.maybeReset(q)
	q.Used += amount
	severity, pct := evaluate(q)
	m.mu.Unlock()

	if severity != SeverityHealthy {
		m.alert(ctx, provider, severity, pct)
	}
}

// maybeReset zeroes the counter when the window has lapsed. Reset is silent:
// only threshold crossings notify. Caller holds the lock.
func (m *Monitor) maybeReset(q *Quota) {
	if m.now().After(q.ResetAt) {
		q.Used = 0
		q.ResetAt = m.now().Add(q.ResetPeriod)
	}
}

func evaluate(q *Quota) (Severity, float64) {
	if q.Limit <= 0 {
		return SeverityHealthy, 0
	}
	pct := float64(q.Used) / float64(q.Limit) * 100
	switch {
	case pct >= q.CriticalThreshold:
		return SeverityCritical, pct
	case pct >= q.WarningThreshold:
		return SeverityWarning, pct
	default:
		return SeverityHealthy, pct
	}
}

// alert sends one notification unless the same (provider, severity) pair
// already fired inside the dedup window. Best-effort: a failed send is
// logged, not retried, and does not consume the dedup slot.
func (m *Monitor) alert(ctx context.Context, provider string, severity Severity, pct float64) {
	if m.notifier == nil {
		return
	}

	key := fmt.Sprintf("%s-%s", provider, severity)
	m.mu.Lock()
	last, fired := m.lastNotified[key]
	if fired && m.now().Sub(last) < DedupWindow {
		m.mu.Unlock()
		return
	}
	q := m.quotas[provider]
	msg := Message{
		Provider:   provider,
		Severity:   severity,
		Used:       q.Used,
		Limit:      q.Limit,
		Percentage: pct,
	}
	m.mu.Unlock()

	if err := m.notifier.Send(ctx, msg); err != nil {
		m.logger.Error("quota notification failed",
			zap.String("provider", provider),
			zap.String("severity", string(severity)),
			zap.Error(err))
		return
	}

	m.mu.Lock()
	m.lastNotified[key] = m.now()
	m.mu.Unlock()

	m.logger.Info("quota alert sent",
		zap.String("provider", provider),
		zap.String("severity", string(severity)),
		zap.Float64("percentage", pct))
}

// Status returns the current view for one provider.
func (m *Monitor) Status(provider string) (*Status, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotas[provider]
	if !ok {
		return nil, false
	}
	return m.statusLocked(q), true
}

func (m *Monitor) statusLocked(q *Quota) *Status {
	severity, pct := evaluate(q)
	resetIn := q.ResetAt.Sub(m.now())
	if resetIn < 0 {
		resetIn = 0
	}
	return &Status{
		Provider:   q.Provider,
		Usage:      q.Used,
		Limit:      q.Limit,
		Percentage: pct,
		Severity:   severity,
		ResetIn:    resetIn,
	}
}

// AllStatuses returns every provider's view, sorted by provider name.
func (m *Monitor) AllStatuses() []Status {
	m.mu.Lock()
	statuses := make([]Status, 0, len(m.quotas))
	for _, q := range m.quotas {
		statuses = append(statuses, *m.statusLocked(q))
	}
	m.mu.Unlock()

	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Provider < statuses[j].Provider })
	return statuses
}

// Metrics summarizes all providers for dashboards.
func (m *Monitor) Metrics() Summary {
	statuses := m.AllStatuses()
	summary := Summary{Providers: statuses}
	var pctSum float64
	for _, s := range statuses {
		pctSum += s.Percentage
		switch s.Severity {
		case SeverityWarning:
			summary.Warning++
		case SeverityCritical:
			summary.Critical++
		default:
			summary.Healthy++
		}
	}
	if len(statuses) > 0 {
		summary.AvgUsage = pctSum / float64(len(statuses))
	}
	return summary
}

// Run polls every interval, re-evaluating all providers so a threshold
// crossed between RecordUsage calls (or before a restart) still alerts.
// Blocks until ctx is canceled.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	m.checkAll(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.checkAll(ctx)
		}
	}
}

func (m *Monitor) checkAll(ctx context.Context) {
	m.mu.Lock()
	type pending struct {
		provider string
		severity Severity
		pct      float64
	}
	var alerts []pending
	for _, q := range m.quotas {
		m.maybeReset(q)
		severity, pct := evaluate(q)
		if severity != SeverityHealthy {
			alerts = append(alerts, pending{q.Provider, severity, pct})
		}
	}
	m.mu.Unlock()

	for _, a := range alerts {
		m.alert(ctx, a.provider, a.severity, a.pct)
	}
	m.logger.Debug("quota check complete", zap.Int("providers", len(m.quotas)), zap.Int("alerts", len(alerts)))
}
