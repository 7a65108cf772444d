// Package static is the terminal fallback source: a small curated dataset
// compiled into the binary. It has no external dependencies and never fails,
// which is exactly why it sits last in the resolution order.
package static

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cecil-the-coder/modelwatch/pkg/sources"
	"github.com/cecil-the-coder/modelwatch/pkg/types"

	_ "embed"
)

//go:embed data/models.json
var embeddedData []byte

type dataset struct {
	LastUpdated time.Time  `json:"lastUpdated"`
	Models      []rawModel `json:"models"`
}

// rawModel mirrors the snapshot quirks so the embedded file and any
// hand-maintained replacement parse identically.
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
	Pricing       *types.Pricing         `json:"pricing"`
	Benchmarks    []types.BenchmarkScore `json:"benchmarks"`
}

// Adapter implements sources.Source over the embedded dataset.
type Adapter struct {
	once        sync.Once
	models      []types.Model
	lastUpdated time.Time
	parseErr    error
}

// New returns the adapter. Parsing is deferred to first use.
func New() *Adapter {
	return &Adapter{}
}

// Name implements sources.Source.
func (a *Adapter) Name() types.SourceName { return types.SourceTempData }

func (a *Adapter) load() error {
	a.once.Do(func() {
		var ds dataset
		if err := json.Unmarshal(embeddedData, &ds); err != nil {
			a.parseErr = fmt.Errorf("parse embedded dataset: %w", err)
			return
		}
		a.models = make([]types.Model, 0, len(ds.Models))
		for _, raw := range ds.Models {
			a.models = append(a.models, types.Model{
				ID:            raw.ID,
				Slug:          raw.Slug,
				Name:          raw.Name,
				Description:   raw.Description,
				Provider:      raw.Provider,
				Modalities:    sources.ParseModalities(raw.Modalities, raw.Type),
				Capabilities:  raw.Capabilities,
				ContextWindow: raw.ContextWindow,
				IsActive:      raw.IsActive,
				Status:        sources.ParseStatus(raw.Status),
				Pricing:       raw.Pricing,
				Benchmarks:    raw.Benchmarks,
			})
		}
		a.lastUpdated = ds.LastUpdated
	})
	return a.parseErr
}

// GetSystemStats implements sources.Source.
func (a *Adapter) GetSystemStats(ctx context.Context) (*types.SystemStats, error) {
	if err := a.load(); err != nil {
		return nil, sources.Unavailable(types.SourceTempData, "getSystemStats", err)
	}
	stats := sources.ComputeSystemStats(a.models)
	stats.LastUpdated = a.lastUpdated
	return &stats, nil
}

// GetAllModels implements sources.Source.
func (a *Adapter) GetAllModels(ctx context.Context, filters types.ModelFilters) ([]types.Model, error) {
	if err := a.load(); err != nil {
		return nil, sources.Unavailable(types.SourceTempData, "getAllModels", err)
	}
	return sources.ApplyFilters(a.models, filters), nil
}

// GetDetailedStatus implements sources.Source.
func (a *Adapter) GetDetailedStatus(ctx context.Context) (*types.DetailedStatus, error) {
	stats, err := a.GetSystemStats(ctx)
	if err != nil {
		return nil, err
	}
	return &types.DetailedStatus{
		System:          *stats,
		Providers:       sources.BuildProviderSummaries(a.models),
		RecentIncidents: []types.Incident{},
	}, nil
}

// Models exposes the normalized dataset for reuse as the dashboard fallback.
func (a *Adapter) Models() []types.Model {
	if err := a.load(); err != nil {
		return nil
	}
	out := make([]types.Model, len(a.models))
	copy(out, a.models)
	return out
}
