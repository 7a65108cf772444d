package static

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cecil-the-coder/modelwatch/pkg/types"
)

func TestEmbeddedDatasetParses(t *testing.T) {
	a := New()
	models, err := a.GetAllModels(context.Background(), types.ModelFilters{})
	require.NoError(t, err)
	require.Len(t, models, 9)

	for _, m := range models {
		assert.NotEmpty(t, m.Slug)
		assert.NotEmpty(t, m.Provider.Slug)
		assert.NotEmpty(t, m.Modalities, "every model must normalize to at least one modality")
		require.NotNil(t, m.Status)
		require.NotNil(t, m.Pricing)
	}
}

func TestLegacyTypeFieldNormalizes(t *testing.T) {
	a := New()
	models, err := a.GetAllModels(context.Background(), types.ModelFilters{Provider: "openai"})
	require.NoError(t, err)

	var o3 *types.Model
	for i := range models {
		if models[i].Slug == "o3" {
			o3 = &models[i]
		}
	}
	require.NotNil(t, o3)
	assert.Equal(t, []string{"text"}, o3.Modalities)
}

func TestMissingModalitiesDefaultToText(t *testing.T) {
	a := New()
	models, err := a.GetAllModels(context.Background(), types.ModelFilters{Provider: "meta"})
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, []string{"text"}, models[0].Modalities)
}

func TestGetSystemStats(t *testing.T) {
	a := New()
	stats, err := a.GetSystemStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 9, stats.TotalModels)
	assert.Equal(t, 9, stats.ActiveModels, "the degraded model still counts as active")
	assert.Equal(t, 8, stats.OperationalModels)
	assert.Equal(t, 1, stats.DegradedModels)
	assert.Equal(t, 5, stats.Providers)
	assert.False(t, stats.LastUpdated.IsZero())
}

func TestGetDetailedStatus(t *testing.T) {
	a := New()
	detailed, err := a.GetDetailedStatus(context.Background())
	require.NoError(t, err)

	require.Len(t, detailed.Providers, 5)
	// Sorted by provider name.
	assert.Equal(t, "Anthropic", detailed.Providers[0].Name)
	assert.NotNil(t, detailed.RecentIncidents)
	assert.Empty(t, detailed.RecentIncidents)

	for _, p := range detailed.Providers {
		if p.Slug == "meta" {
			assert.Equal(t, 0, p.Availability, "one degraded model out of one means zero operational")
		}
	}
}

func TestFiltering(t *testing.T) {
	a := New()
	models, err := a.GetAllModels(context.Background(), types.ModelFilters{
		Modalities: []string{"video"},
	})
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "gemini-2-5-pro", models[0].Slug)
}

func TestModelsReturnsACopy(t *testing.T) {
	a := New()
	first := a.Models()
	require.NotEmpty(t, first)
	first[0].Name = "mutated"

	second := a.Models()
	assert.NotEqual(t, "mutated", second[0].Name)
}
