package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cecil-the-coder/modelwatch/pkg/types"
)

var fallbackModels = []types.Model{{Slug: "bundled-model"}}

func liveFetcher(models []types.Model, err error) Fetcher {
	return func(context.Context) ([]types.Model, error) { return models, err }
}

func fixedClock(c *Cache, at time.Time) {
	c.now = func() time.Time { return at }
}

func TestLiveDataWinsAndRefreshesStore(t *testing.T) {
	store := NewMemoryStore()
	live := []types.Model{{Slug: "live-model"}}
	c := New(store, liveFetcher(live, nil), fallbackModels, nil)

	d := c.DisplayData(context.Background())
	assert.Equal(t, BadgeLive, d.Badge)
	assert.Equal(t, live, d.Models)

	entry, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, entry, "a successful fetch must persist for the next session")
	assert.Equal(t, live, entry.Models)
	assert.Equal(t, entryVersion, entry.Version)
}

func TestFreshCacheBoundary(t *testing.T) {
	fetchErr := errors.New("chain exhausted")
	cached := []types.Model{{Slug: "cached-model"}}
	now := time.Now()

	tests := []struct {
		name      string
		age       time.Duration
		wantBadge Badge
	}{
		{"one minute inside the window", 59 * time.Minute, BadgeCached},
		{"exactly at the boundary is expired", 60 * time.Minute, BadgeFallback},
		{"one minute past the window", 61 * time.Minute, BadgeFallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore()
			require.NoError(t, store.Save(&Entry{
				Models:    cached,
				Timestamp: now.Add(-tt.age),
				Badge:     BadgeLive,
				Version:   entryVersion,
			}))

			c := New(store, liveFetcher(nil, fetchErr), fallbackModels, nil)
			fixedClock(c, now)

			d := c.DisplayData(context.Background())
			assert.Equal(t, tt.wantBadge, d.Badge)
			// Even expired, the stored payload beats the bundled dataset.
			assert.Equal(t, cached, d.Models)
			assert.Equal(t, tt.age, d.Age)
		})
	}
}

func TestStaticFallbackWhenNothingElse(t *testing.T) {
	c := New(NewMemoryStore(), liveFetcher(nil, errors.New("down")), fallbackModels, nil)
	d := c.DisplayData(context.Background())
	assert.Equal(t, BadgeFallback, d.Badge)
	assert.Equal(t, fallbackModels, d.Models)
}

func TestFeaturedBeatsEverything(t *testing.T) {
	pinned := []types.Model{{Slug: "editorial-pick"}}
	c := New(
		NewMemoryStore(),
		liveFetcher([]types.Model{{Slug: "live-model"}}, nil),
		fallbackModels,
		nil,
		WithFeatured(func(context.Context) ([]types.Model, error) { return pinned, nil }),
	)

	d := c.DisplayData(context.Background())
	assert.Equal(t, BadgeFeatured, d.Badge)
	assert.Equal(t, pinned, d.Models)
}

func TestFeaturedErrorFallsThrough(t *testing.T) {
	live := []types.Model{{Slug: "live-model"}}
	c := New(
		NewMemoryStore(),
		liveFetcher(live, nil),
		fallbackModels,
		nil,
		WithFeatured(func(context.Context) ([]types.Model, error) { return nil, errors.New("admin store down") }),
	)

	d := c.DisplayData(context.Background())
	assert.Equal(t, BadgeLive, d.Badge)
	assert.Equal(t, live, d.Models)
}

func TestVersionMismatchIgnoresEntry(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Save(&Entry{
		Models:    []types.Model{{Slug: "old-layout"}},
		Timestamp: time.Now(),
		Version:   "0",
	}))

	c := New(store, liveFetcher(nil, errors.New("down")), fallbackModels, nil)
	d := c.DisplayData(context.Background())
	assert.Equal(t, fallbackModels, d.Models, "an incompatible entry must not be served")
}

func TestCustomTTL(t *testing.T) {
	now := time.Now()
	store := NewMemoryStore()
	require.NoError(t, store.Save(&Entry{
		Models:    []types.Model{{Slug: "cached-model"}},
		Timestamp: now.Add(-2 * time.Minute),
		Version:   entryVersion,
	}))

	c := New(store, liveFetcher(nil, errors.New("down")), fallbackModels, nil, WithTTL(time.Minute))
	fixedClock(c, now)

	d := c.DisplayData(context.Background())
	assert.Equal(t, BadgeFallback, d.Badge)
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := t.TempDir() + "/nested/cache.json"
	store := NewFileStore(path)

	entry, err := store.Load()
	require.NoError(t, err, "a missing file is an empty cache, not an error")
	assert.Nil(t, entry)

	want := &Entry{
		Models:    []types.Model{{Slug: "persisted"}},
		Timestamp: time.Now().UTC().Truncate(time.Second),
		Badge:     BadgeLive,
		Version:   entryVersion,
	}
	require.NoError(t, store.Save(want))

	got, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.Models, got.Models)
	assert.True(t, want.Timestamp.Equal(got.Timestamp))

	require.NoError(t, store.Clear())
	got, err = store.Load()
	require.NoError(t, err)
	assert.Nil(t, got)
	// Clearing twice is fine.
	require.NoError(t, store.Clear())
}
