// Package types defines the domain model shared by every data source,
// the resolution chain, and the HTTP layer.
package types

import "time"

// SourceName identifies one backing store for model and status data.
type SourceName string

const (
	SourceDatabase SourceName = "database"
	SourceGitHub   SourceName = "github"
	SourceTempData SourceName = "temp-data"
)

// Valid reports whether s names a known data source.
func (s SourceName) Valid() bool {
	switch s {
	case SourceDatabase, SourceGitHub, SourceTempData:
		return true
	}
	return false
}

// Model status values as reported by status checks.
const (
	StatusOperational = "operational"
	StatusDegraded    = "degraded"
	StatusOutage      = "outage"
	StatusUnknown     = "unknown"
)

// Provider is the organization offering one or more models.
type Provider struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	WebsiteURL string `json:"websiteUrl,omitempty"`
}

// ModelStatus is the most recent health observation for a model.
type ModelStatus struct {
	Status         string    `json:"status"`
	Availability   float64   `json:"availability"`
	LatencyP50     int       `json:"latencyP50,omitempty"`
	LatencyP95     int       `json:"latencyP95,omitempty"`
	LatencyP99     int       `json:"latencyP99,omitempty"`
	ErrorRate      float64   `json:"errorRate,omitempty"`
	RequestsPerMin int       `json:"requestsPerMin,omitempty"`
	CheckedAt      time.Time `json:"checkedAt,omitempty"`
}

// Pricing holds per-token prices for a model, in USD per million tokens.
type Pricing struct {
	InputPerMillion  float64 `json:"inputPerMillion"`
	OutputPerMillion float64 `json:"outputPerMillion"`
	Currency         string  `json:"currency,omitempty"`
}

// BenchmarkScore is a single benchmark result for a model.
type BenchmarkScore struct {
	Suite      string  `json:"suite"`
	Score      float64 `json:"score"`
	MaxScore   float64 `json:"maxScore,omitempty"`
	IsOfficial bool    `json:"isOfficial,omitempty"`
}

// Model is the canonical, source-independent model shape. Adapters are
// responsible for normalizing backing-store quirks into this form before it
// crosses a package boundary.
type Model struct {
	ID            string           `json:"id"`
	Slug          string           `json:"slug"`
	Name          string           `json:"name"`
	Description   string           `json:"description,omitempty"`
	Provider      Provider         `json:"provider"`
	Modalities    []string         `json:"modalities"`
	Capabilities  []string         `json:"capabilities,omitempty"`
	ContextWindow int              `json:"contextWindow,omitempty"`
	IsActive      bool             `json:"isActive"`
	Status        *ModelStatus     `json:"status,omitempty"`
	Pricing       *Pricing         `json:"pricing,omitempty"`
	Benchmarks    []BenchmarkScore `json:"benchmarks,omitempty"`
}

// DefaultLimit is the page size applied when a caller does not specify one.
const DefaultLimit = 50

// ModelFilters narrows and paginates a model listing.
type ModelFilters struct {
	Provider     string   `json:"provider,omitempty"`
	IsActive     *bool    `json:"isActive,omitempty"`
	Modalities   []string `json:"modalities,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
	Limit        int      `json:"limit,omitempty"`
	Offset       int      `json:"offset,omitempty"`
}

// EffectiveLimit returns the requested page size or DefaultLimit.
func (f ModelFilters) EffectiveLimit() int {
	if f.Limit <= 0 {
		return DefaultLimit
	}
	return f.Limit
}
