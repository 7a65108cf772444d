package quota

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu       sync.Mutex
	err      error
	messages []Message
}

func (n *recordingNotifier) Send(_ context.Context, msg Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.messages = append(n.messages, msg)
	return nil
}

func (n *recordingNotifier) sent() []Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Message, len(n.messages))
	copy(out, n.messages)
	return out
}

func testDefinitions() []Definition {
	return []Definition{
		{Provider: "openai", Limit: 1000, ResetMinutes: 1440, WarningThreshold: 75, CriticalThreshold: 90},
	}
}

// testMonitor wires a monitor with a controllable clock starting at a fixed
// instant.
func testMonitor(notifier Notifier) (*Monitor, *time.Time) {
	return testMonitorWith(testDefinitions(), notifier)
}

func testMonitorWith(defs []Definition, notifier Notifier) (*Monitor, *time.Time) {
	m := NewMonitor(defs, notifier, nil)
	current := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return current }
	// Re-anchor the reset window to the fake clock.
	for _, q := range m.quotas {
		q.ResetAt = current.Add(q.ResetPeriod)
	}
	return m, &current
}

func TestSeverityTransitions(t *testing.T) {
	notifier := &recordingNotifier{}
	m, _ := testMonitor(notifier)
	ctx := context.Background()

	m.RecordUsage(ctx, "openai", 500)
	status, ok := m.Status("openai")
	require.True(t, ok)
	assert.Equal(t, SeverityHealthy, status.Severity)
	assert.Empty(t, notifier.sent())

	m.RecordUsage(ctx, "openai", 300)
	status, _ = m.Status("openai")
	assert.Equal(t, SeverityWarning, status.Severity)
	assert.Equal(t, 80.0, status.Percentage)

	m.RecordUsage(ctx, "openai", 150)
	status, _ = m.Status("openai")
	assert.Equal(t, SeverityCritical, status.Severity)

	msgs := notifier.sent()
	require.Len(t, msgs, 2)
	assert.Equal(t, SeverityWarning, msgs[0].Severity)
	assert.Equal(t, SeverityCritical, msgs[1].Severity)
	assert.Equal(t, int64(950), msgs[1].Used)
	assert.Equal(t, int64(1000), msgs[1].Limit)
}

func TestAlertDeduplication(t *testing.T) {
	notifier := &recordingNotifier{}
	m, clock := testMonitor(notifier)
	ctx := context.Background()

	// Three crossings of the same severity inside the window: one alert.
	m.RecordUsage(ctx, "openai", 800)
	m.RecordUsage(ctx, "openai", 10)
	m.RecordUsage(ctx, "openai", 10)
	require.Len(t, notifier.sent(), 1)

	// The same pair fires again once the window lapses.
	*clock = clock.Add(DedupWindow + time.Minute)
	m.RecordUsage(ctx, "openai", 10)
	assert.Len(t, notifier.sent(), 2)
}

func TestEscalationBypassesDedup(t *testing.T) {
	notifier := &recordingNotifier{}
	m, _ := testMonitor(notifier)
	ctx := context.Background()

	m.RecordUsage(ctx, "openai", 800)
	m.RecordUsage(ctx, "openai", 150)

	// warning and critical are distinct dedup keys.
	msgs := notifier.sent()
	require.Len(t, msgs, 2)
	assert.Equal(t, SeverityWarning, msgs[0].Severity)
	assert.Equal(t, SeverityCritical, msgs[1].Severity)
}

func TestFailedSendDoesNotConsumeDedupSlot(t *testing.T) {
	notifier := &recordingNotifier{err: assert.AnError}
	m, _ := testMonitor(notifier)
	ctx := context.Background()

	m.RecordUsage(ctx, "openai", 800)
	require.Empty(t, notifier.sent())

	// Delivery recovers; the alert goes out on the next crossing.
	notifier.mu.Lock()
	notifier.err = nil
	notifier.mu.Unlock()
	m.RecordUsage(ctx, "openai", 10)
	assert.Len(t, notifier.sent(), 1)
}

func TestWindowResetIsSilent(t *testing.T) {
	notifier := &recordingNotifier{}
	m, clock := testMonitorWith([]Definition{
		{Provider: "openai", Limit: 1000, ResetMinutes: 60, WarningThreshold: 75, CriticalThreshold: 90},
	}, notifier)
	ctx := context.Background()

	m.RecordUsage(ctx, "openai", 700)
	require.Empty(t, notifier.sent())

	// The window lapses; the next usage starts a fresh counter.
	*clock = clock.Add(2 * time.Hour)
	m.RecordUsage(ctx, "openai", 100)

	status, _ := m.Status("openai")
	assert.Equal(t, int64(100), status.Usage)
	assert.Equal(t, SeverityHealthy, status.Severity)
	assert.Empty(t, notifier.sent(), "a reset alone never notifies")
}

func TestUnknownProviderIgnored(t *testing.T) {
	notifier := &recordingNotifier{}
	m, _ := testMonitor(notifier)

	m.RecordUsage(context.Background(), "unconfigured", 999999)
	_, ok := m.Status("unconfigured")
	assert.False(t, ok)
	assert.Empty(t, notifier.sent())
}

func TestMetricsSummary(t *testing.T) {
	notifier := &recordingNotifier{}
	m := NewMonitor([]Definition{
		{Provider: "openai", Limit: 1000, ResetMinutes: 60, WarningThreshold: 75, CriticalThreshold: 90},
		{Provider: "anthropic", Limit: 1000, ResetMinutes: 60, WarningThreshold: 75, CriticalThreshold: 90},
	}, notifier, nil)
	ctx := context.Background()

	m.RecordUsage(ctx, "openai", 800)
	m.RecordUsage(ctx, "anthropic", 100)

	summary := m.Metrics()
	require.Len(t, summary.Providers, 2)
	// Sorted by provider name.
	assert.Equal(t, "anthropic", summary.Providers[0].Provider)
	assert.Equal(t, 1, summary.Healthy)
	assert.Equal(t, 1, summary.Warning)
	assert.Equal(t, 0, summary.Critical)
	assert.Equal(t, 45.0, summary.AvgUsage)
}

func TestCheckAllAlertsWithoutNewUsage(t *testing.T) {
	notifier := &recordingNotifier{err: assert.AnError}
	m, _ := testMonitor(notifier)
	ctx := context.Background()

	// The crossing happens while delivery is down.
	m.RecordUsage(ctx, "openai", 950)
	require.Empty(t, notifier.sent())

	notifier.mu.Lock()
	notifier.err = nil
	notifier.mu.Unlock()

	// The background check re-raises it with no further RecordUsage calls.
	m.checkAll(ctx)
	msgs := notifier.sent()
	require.Len(t, msgs, 1)
	assert.Equal(t, SeverityCritical, msgs[0].Severity)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	m := NewMonitor(testDefinitions(), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		m.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}

func TestLoadDefinitions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quotas.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
quotas:
  - provider: openai
    limit: 200000
    reset_minutes: 1440
    warning_threshold: 70
    critical_threshold: 85
  - provider: google
    limit: 120
    reset_minutes: 1
    warning_threshold: 80
    critical_threshold: 95
`), 0o644))

	defs, err := LoadDefinitions(path)
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "openai", defs[0].Provider)
	assert.Equal(t, int64(200000), defs[0].Limit)
	assert.Equal(t, 85.0, defs[0].CriticalThreshold)

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadDefinitions(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("empty file", func(t *testing.T) {
		empty := filepath.Join(t.TempDir(), "empty.yaml")
		require.NoError(t, os.WriteFile(empty, []byte("quotas: []\n"), 0o644))
		_, err := LoadDefinitions(empty)
		assert.Error(t, err)
	})
}

func TestDefaultDefinitionsCoverKnownProviders(t *testing.T) {
	defs := DefaultDefinitions()
	byProvider := make(map[string]Definition, len(defs))
	for _, d := range defs {
		byProvider[d.Provider] = d
	}

	require.Contains(t, byProvider, "google")
	assert.Equal(t, int64(60), byProvider["google"].Limit)
	assert.Equal(t, 1, byProvider["google"].ResetMinutes)

	require.Contains(t, byProvider, "openai")
	assert.Equal(t, int64(100000), byProvider["openai"].Limit)
	assert.Equal(t, 1440, byProvider["openai"].ResetMinutes)
}
