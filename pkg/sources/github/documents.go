package github

import (
	"encoding/json"
	"time"

	"github.com/cecil-the-coder/modelwatch/pkg/sources"
	"github.com/cecil-the-coder/modelwatch/pkg/types"
)

// Snapshot document filenames, relative to the configured base URL or local
// data directory. The four documents are updated independently by the sync
// pipeline, so each is fetched and cached on its own schedule.
const (
	docModels     = "models.json"
	docStatus     = "model-status.json"
	docPricing    = "pricing-data.json"
	docBenchmarks = "benchmarks-data.json"
)

// snapshotDocument is the main dataset: providers, models, and the statistics
// block computed at sync time.
type snapshotDocument struct {
	Version     string             `json:"version"`
	LastUpdated time.Time          `json:"lastUpdated"`
	Providers   []types.Provider   `json:"providers"`
	Models      []rawModel         `json:"models"`
	Statistics  snapshotStatistics `json:"statistics"`
}

type snapshotStatistics struct {
	TotalModels       int     `json:"totalModels"`
	ActiveModels      int     `json:"activeModels"`
	TotalProviders    int     `json:"totalProviders"`
	OperationalModels int     `json:"operationalModels"`
	AvgAvailability   float64 `json:"avgAvailability"`
}

// rawModel tolerates the snapshot's schema quirks: modalities may be an
// array, a JSON-encoded string, or absent with a legacy "type" field; status
// may be a string, an object, or an array.
type rawModel struct {
	ID            string                 `json:"id"`
	Slug          string                 `json:"slug"`
	Name          string                 `json:"name"`
	Description   string                 `json:"description"`
	Provider      types.Provider         `json:"provider"`
	Modalities    json.RawMessage        `json:"modalities"`
	Type          string                 `json:"type"`
	Capabilities  []string               `json:"capabilities"`
	ContextWindow int                    `json:"contextWindow"`
	IsActive      bool                   `json:"isActive"`
	Status        json.RawMessage        `json:"status"`
	Benchmarks    []types.BenchmarkScore `json:"benchmarks"`
}

// statusDocument carries live status keyed by model slug. It changes faster
// than the main dataset and is cached with a shorter TTL.
type statusDocument struct {
	Version     string                       `json:"version"`
	LastUpdated time.Time                    `json:"lastUpdated"`
	Statuses    map[string]types.ModelStatus `json:"statuses"`
}

// pricingDocument carries pricing keyed by model slug.
type pricingDocument struct {
	Version     string                   `json:"version"`
	LastUpdated time.Time                `json:"lastUpdated"`
	Pricing     map[string]types.Pricing `json:"pricing"`
}

// benchmarksDocument carries benchmark scores keyed by model slug.
type benchmarksDocument struct {
	Version     string                            `json:"version"`
	LastUpdated time.Time                         `json:"lastUpdated"`
	Benchmarks  map[string][]types.BenchmarkScore `json:"benchmarks"`
}

// normalize converts a raw snapshot model into the canonical shape.
func (r rawModel) normalize() types.Model {
	return types.Model{
		ID:            r.ID,
		Slug:          r.Slug,
		Name:          r.Name,
		Description:   r.Description,
		Provider:      r.Provider,
		Modalities:    sources.ParseModalities(r.Modalities, r.Type),
		Capabilities:  r.Capabilities,
		ContextWindow: r.ContextWindow,
		IsActive:      r.IsActive,
		Status:        sources.ParseStatus(r.Status),
		Benchmarks:    r.Benchmarks,
	}
}
