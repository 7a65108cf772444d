package sources

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cecil-the-coder/modelwatch/pkg/types"
)

func TestParseModalities(t *testing.T) {
	tests := []struct {
		name       string
		modalities string
		legacyType string
		want       []string
	}{
		{
			name:       "plain array",
			modalities: `["text","image"]`,
			want:       []string{"text", "image"},
		},
		{
			name:       "string-encoded array",
			modalities: `"[\"text\",\"audio\"]"`,
			want:       []string{"text", "audio"},
		},
		{
			name:       "legacy type field carries the array",
			legacyType: `["text","image"]`,
			want:       []string{"text", "image"},
		},
		{
			name:       "modalities wins over legacy type",
			modalities: `["video"]`,
			legacyType: `["text"]`,
			want:       []string{"video"},
		},
		{
			name: "nothing usable defaults to text",
			want: []string{"text"},
		},
		{
			name:       "garbage defaults to text",
			modalities: `{"not":"a list"}`,
			legacyType: `not json at all`,
			want:       []string{"text"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseModalities(json.RawMessage(tt.modalities), tt.legacyType)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseStatus(t *testing.T) {
	t.Run("bare string", func(t *testing.T) {
		got := ParseStatus(json.RawMessage(`"operational"`))
		require.NotNil(t, got)
		assert.Equal(t, types.StatusOperational, got.Status)
	})

	t.Run("object", func(t *testing.T) {
		got := ParseStatus(json.RawMessage(`{"status":"degraded","availability":93.5}`))
		require.NotNil(t, got)
		assert.Equal(t, types.StatusDegraded, got.Status)
		assert.Equal(t, 93.5, got.Availability)
	})

	t.Run("array takes the first entry", func(t *testing.T) {
		got := ParseStatus(json.RawMessage(`[{"status":"outage"},{"status":"operational"}]`))
		require.NotNil(t, got)
		assert.Equal(t, types.StatusOutage, got.Status)
	})

	t.Run("empty and malformed yield nil", func(t *testing.T) {
		assert.Nil(t, ParseStatus(nil))
		assert.Nil(t, ParseStatus(json.RawMessage(`""`)))
		assert.Nil(t, ParseStatus(json.RawMessage(`42`)))
		assert.Nil(t, ParseStatus(json.RawMessage(`[]`)))
	})
}

func TestProviderAvailability(t *testing.T) {
	assert.Equal(t, 70, ProviderAvailability(7, 10))
	assert.Equal(t, 67, ProviderAvailability(2, 3))
	assert.Equal(t, 100, ProviderAvailability(5, 5))
	assert.Equal(t, 0, ProviderAvailability(0, 10))
	// No models means zero availability, not a division panic.
	assert.Equal(t, 0, ProviderAvailability(0, 0))
}

func statusModel(provider, status string, availability float64) types.Model {
	m := types.Model{
		Provider: types.Provider{Name: provider, Slug: provider},
		IsActive: true,
	}
	if status != "" {
		m.Status = &types.ModelStatus{Status: status, Availability: availability}
	}
	return m
}

func TestComputeSystemStats(t *testing.T) {
	models := []types.Model{
		statusModel("openai", types.StatusOperational, 99.9),
		statusModel("openai", types.StatusDegraded, 95.0),
		statusModel("anthropic", types.StatusOperational, 99.5),
		statusModel("meta", types.StatusOutage, 0),
		statusModel("mistral", "", 0),
	}

	stats := ComputeSystemStats(models)

	assert.Equal(t, 5, stats.TotalModels)
	// Degraded still counts as active; outage and unknown do not.
	assert.Equal(t, 3, stats.ActiveModels)
	assert.Equal(t, 2, stats.OperationalModels)
	assert.Equal(t, 1, stats.DegradedModels)
	assert.Equal(t, 1, stats.OutageModels)
	assert.Equal(t, 4, stats.Providers)
	// (99.9 + 95.0 + 99.5) / 3 = 98.13..., rounded to one decimal.
	assert.Equal(t, 98.1, stats.AvgAvailability)
}

func TestBuildProviderSummaries(t *testing.T) {
	models := []types.Model{
		statusModel("openai", types.StatusOperational, 0),
		statusModel("openai", types.StatusOutage, 0),
		statusModel("anthropic", types.StatusOperational, 0),
	}

	summaries := BuildProviderSummaries(models)
	require.Len(t, summaries, 2)

	// Sorted by name for stable output.
	assert.Equal(t, "anthropic", summaries[0].Name)
	assert.Equal(t, 100, summaries[0].Availability)

	assert.Equal(t, "openai", summaries[1].Name)
	assert.Equal(t, 2, summaries[1].TotalModels)
	assert.Equal(t, 1, summaries[1].OperationalModels)
	assert.Equal(t, 1, summaries[1].OutageModels)
	assert.Equal(t, 50, summaries[1].Availability)
}

func TestApplyFilters(t *testing.T) {
	active := true
	inactive := false

	models := []types.Model{
		{Slug: "a", Provider: types.Provider{Slug: "openai"}, IsActive: true, Modalities: []string{"text"}},
		{Slug: "b", Provider: types.Provider{Slug: "openai"}, IsActive: false, Modalities: []string{"text", "image"}},
		{Slug: "c", Provider: types.Provider{Slug: "anthropic"}, IsActive: true, Modalities: []string{"text"}, Capabilities: []string{"function_calling"}},
	}

	t.Run("provider", func(t *testing.T) {
		got := ApplyFilters(models, types.ModelFilters{Provider: "openai"})
		require.Len(t, got, 2)
		assert.Equal(t, "a", got[0].Slug)
	})

	t.Run("is active", func(t *testing.T) {
		got := ApplyFilters(models, types.ModelFilters{IsActive: &active})
		assert.Len(t, got, 2)
		got = ApplyFilters(models, types.ModelFilters{IsActive: &inactive})
		require.Len(t, got, 1)
		assert.Equal(t, "b", got[0].Slug)
	})

	t.Run("modalities any-match", func(t *testing.T) {
		got := ApplyFilters(models, types.ModelFilters{Modalities: []string{"image", "audio"}})
		require.Len(t, got, 1)
		assert.Equal(t, "b", got[0].Slug)
	})

	t.Run("capabilities", func(t *testing.T) {
		got := ApplyFilters(models, types.ModelFilters{Capabilities: []string{"function_calling"}})
		require.Len(t, got, 1)
		assert.Equal(t, "c", got[0].Slug)
	})

	t.Run("pagination", func(t *testing.T) {
		got := ApplyFilters(models, types.ModelFilters{Limit: 1, Offset: 1})
		require.Len(t, got, 1)
		assert.Equal(t, "b", got[0].Slug)

		// Offset past the end yields an empty page, not an error.
		got = ApplyFilters(models, types.ModelFilters{Offset: 10})
		assert.Empty(t, got)
	})
}
