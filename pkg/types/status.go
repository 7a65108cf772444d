package types

import "time"

// SystemStats is the aggregate view across every tracked model. Each adapter
// produces it fresh; the core never persists it.
type SystemStats struct {
	TotalModels       int       `json:"totalModels"`
	ActiveModels      int       `json:"activeModels"`
	Providers         int       `json:"providers"`
	AvgAvailability   float64   `json:"avgAvailability"`
	OperationalModels int       `json:"operationalModels"`
	DegradedModels    int       `json:"degradedModels"`
	OutageModels      int       `json:"outageModels"`
	TotalBenchmarks   int       `json:"totalBenchmarks"`
	LastUpdated       time.Time `json:"lastUpdated"`
}

// ProviderSummary is derived per provider at read time, never stored.
type ProviderSummary struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Slug              string `json:"slug"`
	TotalModels       int    `json:"totalModels"`
	OperationalModels int    `json:"operationalModels"`
	DegradedModels    int    `json:"degradedModels"`
	OutageModels      int    `json:"outageModels"`
	// Availability is round(operational/total*100), 0 when the provider has
	// no models.
	Availability int `json:"availability"`
}

// Incident is an outage or degradation event attributed to a provider or model.
type Incident struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Severity   string     `json:"severity"`
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"startedAt"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
	Provider   string     `json:"provider,omitempty"`
	Model      string     `json:"model,omitempty"`
}

// DetailedStatus bundles system stats with the per-provider breakdown and
// recent incident history.
type DetailedStatus struct {
	System          SystemStats       `json:"system"`
	Providers       []ProviderSummary `json:"providers"`
	RecentIncidents []Incident        `json:"recentIncidents"`
}
