package sources

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/cecil-the-coder/modelwatch/pkg/types"
)

// ParseModalities coerces the modality fields found in legacy records into
// the canonical string slice. Accepted inputs, in precedence order:
//
//   - modalities as a JSON array of strings
//   - modalities as a JSON-encoded string containing such an array
//   - the legacy "type" field carrying a JSON-encoded array
//
// Anything else defaults to ["text"].
func ParseModalities(modalities json.RawMessage, legacyType string) []string {
	if list := decodeStringList(modalities); len(list) > 0 {
		return list
	}
	if list := decodeStringList([]byte(legacyType)); len(list) > 0 {
		return list
	}
	return []string{"text"}
}

// decodeStringList tries to read raw as a string array, directly or through
// one level of JSON string encoding.
func decodeStringList(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		if err := json.Unmarshal([]byte(encoded), &list); err == nil {
			return list
		}
	}
	return nil
}

// ParseStringList decodes a JSON array of strings, tolerating one level of
// string encoding. Returns nil when nothing usable is present.
func ParseStringList(raw json.RawMessage) []string {
	return decodeStringList(raw)
}

// ParseStatus reads a status field that may arrive as a bare string, a status
// object, or an array of status objects (first entry wins). Returns nil when
// nothing usable is present.
func ParseStatus(raw json.RawMessage) *types.ModelStatus {
	if len(raw) == 0 {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return nil
		}
		return &types.ModelStatus{Status: s}
	}
	var obj types.ModelStatus
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Status != "" {
		return &obj
	}
	var list []types.ModelStatus
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 && list[0].Status != "" {
		return &list[0]
	}
	return nil
}

// StatusValue returns the model's current status string, or StatusUnknown.
func StatusValue(m types.Model) string {
	if m.Status == nil || m.Status.Status == "" {
		return types.StatusUnknown
	}
	return m.Status.Status
}

// ProviderAvailability derives the percentage of operational models, rounded
// to the nearest integer. Zero models means zero availability, not a panic.
func ProviderAvailability(operational, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(operational) / float64(total) * 100))
}

// ComputeSystemStats derives aggregate counters from an already-normalized
// model set. Degraded models still count as active; outage and unknown do not.
func ComputeSystemStats(models []types.Model) types.SystemStats {
	stats := types.SystemStats{TotalModels: len(models)}
	providers := make(map[string]struct{})
	var availabilitySum float64
	var availabilityCount int

	for _, m := range models {
		providers[m.Provider.Slug] = struct{}{}
		stats.TotalBenchmarks += len(m.Benchmarks)

		switch StatusValue(m) {
		case types.StatusOperational:
			stats.OperationalModels++
			stats.ActiveModels++
		case types.StatusDegraded:
			stats.DegradedModels++
			stats.ActiveModels++
		case types.StatusOutage:
			stats.OutageModels++
		}

		if m.Status != nil && m.Status.Availability > 0 {
			availabilitySum += m.Status.Availability
			availabilityCount++
		}
	}

	stats.Providers = len(providers)
	if availabilityCount > 0 {
		stats.AvgAvailability = math.Round(availabilitySum/float64(availabilityCount)*10) / 10
	}
	return stats
}

// BuildProviderSummaries groups models by provider and derives the per-provider
// status breakdown, sorted by provider name for stable output.
func BuildProviderSummaries(models []types.Model) []types.ProviderSummary {
	byProvider := make(map[string]*types.ProviderSummary)
	for _, m := range models {
		key := m.Provider.Slug
		summary, ok := byProvider[key]
		if !ok {
			summary = &types.ProviderSummary{
				ID:   m.Provider.ID,
				Name: m.Provider.Name,
				Slug: m.Provider.Slug,
			}
			byProvider[key] = summary
		}
		summary.TotalModels++
		switch StatusValue(m) {
		case types.StatusOperational:
			summary.OperationalModels++
		case types.StatusDegraded:
			summary.DegradedModels++
		case types.StatusOutage:
			summary.OutageModels++
		}
	}

	summaries := make([]types.ProviderSummary, 0, len(byProvider))
	for _, s := range byProvider {
		s.Availability = ProviderAvailability(s.OperationalModels, s.TotalModels)
		summaries = append(summaries, *s)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Name < summaries[j].Name })
	return summaries
}

// ApplyFilters narrows and paginates an in-memory model set. Used by the
// adapters whose backing store cannot filter server-side.
func ApplyFilters(models []types.Model, filters types.ModelFilters) []types.Model {
	filtered := make([]types.Model, 0, len(models))
	for _, m := range models {
		if filters.Provider != "" && m.Provider.Slug != filters.Provider {
			continue
		}
		if filters.IsActive != nil && m.IsActive != *filters.IsActive {
			continue
		}
		if len(filters.Modalities) > 0 && !intersects(m.Modalities, filters.Modalities) {
			continue
		}
		if len(filters.Capabilities) > 0 && !intersects(m.Capabilities, filters.Capabilities) {
			continue
		}
		filtered = append(filtered, m)
	}

	offset := filters.Offset
	if offset > len(filtered) {
		offset = len(filtered)
	}
	end := offset + filters.EffectiveLimit()
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[offset:end]
}

func intersects(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}
