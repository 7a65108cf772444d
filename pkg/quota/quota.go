// Package quota tracks per-provider API usage against configured ceilings
// and raises deduplicated alerts when thresholds are crossed. Quota here is
// an approximate guardrail, not a billing-accurate ledger: counters are
// best-effort under concurrency and a breach is an observed state, never a
// blocking error for the caller.
package quota

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Severity is a provider's position in the healthy → warning → critical
// state machine.
type Severity string

const (
	SeverityHealthy  Severity = "healthy"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Quota is the tracked state for one provider. Mutated only by the monitor.
type Quota struct {
	Provider          string        `json:"provider"`
	Limit             int64         `json:"limit"`
	Used              int64         `json:"used"`
	ResetAt           time.Time     `json:"resetAt"`
	WarningThreshold  float64       `json:"warningThreshold"`
	CriticalThreshold float64       `json:"criticalThreshold"`
	ResetPeriod       time.Duration `json:"resetPeriod"`
}

// Status is the read-only view served to status endpoints.
type Status struct {
	Provider   string        `json:"provider"`
	Usage      int64         `json:"usage"`
	Limit      int64         `json:"limit"`
	Percentage float64       `json:"percentage"`
	Severity   Severity      `json:"status"`
	ResetIn    time.Duration `json:"resetIn"`
}

// Summary aggregates all providers for dashboards.
type Summary struct {
	Providers []Status `json:"providers"`
	Healthy   int      `json:"healthy"`
	Warning   int      `json:"warning"`
	Critical  int      `json:"critical"`
	AvgUsage  float64  `json:"avgUsage"`
}

// Definition configures one provider's quota. Loaded from YAML or supplied
// from defaults.
type Definition struct {
	Provider          string  `yaml:"provider"`
	Limit             int64   `yaml:"limit"`
	ResetMinutes      int     `yaml:"reset_minutes"`
	WarningThreshold  float64 `yaml:"warning_threshold"`
	CriticalThreshold float64 `yaml:"critical_threshold"`
}

type definitionsFile struct {
	Quotas []Definition `yaml:"quotas"`
}

// LoadDefinitions reads quota definitions from a YAML file.
func LoadDefinitions(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read quota definitions: %w", err)
	}
	var file definitionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse quota definitions: %w", err)
	}
	if len(file.Quotas) == 0 {
		return nil, fmt.Errorf("quota definitions file %s declares no quotas", path)
	}
	return file.Quotas, nil
}

// DefaultDefinitions mirrors the limits the service ships with when no file
// is configured. Google resets per minute; the rest reset daily.
func DefaultDefinitions() []Definition {
	return []Definition{
		{Provider: "openai", Limit: 100000, ResetMinutes: 1440, WarningThreshold: 75, CriticalThreshold: 90},
		{Provider: "anthropic", Limit: 50000, ResetMinutes: 1440, WarningThreshold: 75, CriticalThreshold: 90},
		{Provider: "google", Limit: 60, ResetMinutes: 1, WarningThreshold: 80, CriticalThreshold: 95},
		{Provider: "replicate", Limit: 10000, ResetMinutes: 1440, WarningThreshold: 75, CriticalThreshold: 90},
	}
}
