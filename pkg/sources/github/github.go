// Package github reads model data from a set of JSON snapshot documents
// hosted on GitHub raw content (or any static file host). In local mode the
// same documents are read from disk with identical parsing.
//
// Each document has its own in-process cache and TTL: the main dataset moves
// slowly, status moves fast and is cheap to refetch. A fetch failure never
// evicts a cached copy; stale-but-present data is preferred over an error.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/avast/retry-go/v5"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/cecil-the-coder/modelwatch/pkg/sources"
	"github.com/cecil-the-coder/modelwatch/pkg/types"
)

// Default cache windows. Status changes faster than the catalog and is
// cheaper to refetch, so it gets a much shorter TTL.
const (
	DefaultDataTTL   = 5 * time.Minute
	DefaultStatusTTL = 1 * time.Minute
	defaultTimeout   = 10 * time.Second
	defaultAttempts  = 3
)

// Config configures the snapshot adapter.
type Config struct {
	// BaseURL is the document host, e.g.
	// https://raw.githubusercontent.com/owner/repo/main/data
	BaseURL string

	// Token, when set, authenticates requests via a bearer token. Useful
	// for private repositories or higher rate limits.
	Token string

	// LocalDir switches the adapter to reading the documents from disk.
	// Takes precedence over BaseURL.
	LocalDir string

	// DataTTL covers models, pricing, and benchmarks. StatusTTL covers the
	// status document only.
	DataTTL   time.Duration
	StatusTTL time.Duration

	Timeout  time.Duration
	Attempts uint
}

type docEntry struct {
	value     any
	fetchedAt time.Time
}

// Adapter implements sources.Source over the snapshot documents.
type Adapter struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
	group  singleflight.Group

	mu   sync.RWMutex
	docs map[string]docEntry

	now func() time.Time
}

// New builds the adapter. A nil logger is replaced with a no-op one.
func New(cfg Config, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DataTTL <= 0 {
		cfg.DataTTL = DefaultDataTTL
	}
	if cfg.StatusTTL <= 0 {
		cfg.StatusTTL = DefaultStatusTTL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = defaultAttempts
	}

	client := &http.Client{Timeout: cfg.Timeout}
	if cfg.Token != "" {
		client = oauth2.NewClient(
			context.Background(),
			oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token}),
		)
		client.Timeout = cfg.Timeout
	}

	return &Adapter{
		cfg:    cfg,
		client: client,
		logger: logger.Named("github-source"),
		docs:   make(map[string]docEntry),
		now:    time.Now,
	}
}

// Name implements sources.Source.
func (a *Adapter) Name() types.SourceName { return types.SourceGitHub }

// GetSystemStats implements sources.Source. Totals come from the snapshot's
// statistics block; status distribution and availability are recomputed from
// the freshest merged status data.
func (a *Adapter) GetSystemStats(ctx context.Context) (*types.SystemStats, error) {
	snap, statusDoc, models, err := a.merged(ctx)
	if err != nil {
		return nil, sources.Unavailable(types.SourceGitHub, "getSystemStats", err)
	}

	stats := sources.ComputeSystemStats(models)
	if snap.Statistics.TotalModels > 0 {
		stats.TotalModels = snap.Statistics.TotalModels
	}
	if snap.Statistics.ActiveModels > 0 {
		stats.ActiveModels = snap.Statistics.ActiveModels
	}
	if snap.Statistics.TotalProviders > 0 {
		stats.Providers = snap.Statistics.TotalProviders
	}
	stats.LastUpdated = statusDoc.LastUpdated
	if stats.LastUpdated.IsZero() {
		stats.LastUpdated = snap.LastUpdated
	}
	return &stats, nil
}

// GetAllModels implements sources.Source.
func (a *Adapter) GetAllModels(ctx context.Context, filters types.ModelFilters) ([]types.Model, error) {
	_, _, models, err := a.merged(ctx)
	if err != nil {
		return nil, sources.Unavailable(types.SourceGitHub, "getAllModels", err)
	}
	return sources.ApplyFilters(models, filters), nil
}

// GetDetailedStatus implements sources.Source. The snapshot host carries no
// incident history, so RecentIncidents is always empty here.
func (a *Adapter) GetDetailedStatus(ctx context.Context) (*types.DetailedStatus, error) {
	stats, err := a.GetSystemStats(ctx)
	if err != nil {
		return nil, err
	}
	_, _, models, err := a.merged(ctx)
	if err != nil {
		return nil, sources.Unavailable(types.SourceGitHub, "getDetailedStatus", err)
	}
	return &types.DetailedStatus{
		System:          *stats,
		Providers:       sources.BuildProviderSummaries(models),
		RecentIncidents: []types.Incident{},
	}, nil
}

// ClearCache drops every cached document, forcing fresh fetches.
func (a *Adapter) ClearCache() {
	a.mu.Lock()
	a.docs = make(map[string]docEntry)
	a.mu.Unlock()
}

// merged joins the four documents at read time, keyed by model slug. The
// catalog and status documents are required; pricing and benchmarks degrade
// to absent data when unavailable.
func (a *Adapter) merged(ctx context.Context) (*snapshotDocument, *statusDocument, []types.Model, error) {
	snap, err := a.snapshot(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	statusDoc, err := a.statuses(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	pricing := a.pricing(ctx)
	benchmarks := a.benchmarks(ctx)

	models := make([]types.Model, 0, len(snap.Models))
	for _, raw := range snap.Models {
		m := raw.normalize()
		if st, ok := statusDoc.Statuses[m.Slug]; ok {
			st := st
			m.Status = &st
		}
		if p, ok := pricing[m.Slug]; ok {
			p := p
			m.Pricing = &p
		}
		if b, ok := benchmarks[m.Slug]; ok {
			m.Benchmarks = b
		}
		models = append(models, m)
	}
	return snap, statusDoc, models, nil
}

func (a *Adapter) snapshot(ctx context.Context) (*snapshotDocument, error) {
	v, err := a.document(ctx, docModels, a.cfg.DataTTL, decodeJSON[snapshotDocument])
	if err != nil {
		return nil, err
	}
	return v.(*snapshotDocument), nil
}

func (a *Adapter) statuses(ctx context.Context) (*statusDocument, error) {
	v, err := a.document(ctx, docStatus, a.cfg.StatusTTL, decodeJSON[statusDocument])
	if err != nil {
		return nil, err
	}
	return v.(*statusDocument), nil
}

// pricing degrades to nil on failure: missing prices are a display gap, not a
// reason to fail the whole read.
func (a *Adapter) pricing(ctx context.Context) map[string]types.Pricing {
	v, err := a.document(ctx, docPricing, a.cfg.DataTTL, decodeJSON[pricingDocument])
	if err != nil {
		a.logger.Warn("pricing document unavailable, serving models without pricing", zap.Error(err))
		return nil
	}
	return v.(*pricingDocument).Pricing
}

// benchmarks degrades to nil on failure, same as pricing.
func (a *Adapter) benchmarks(ctx context.Context) map[string][]types.BenchmarkScore {
	v, err := a.document(ctx, docBenchmarks, a.cfg.DataTTL, decodeJSON[benchmarksDocument])
	if err != nil {
		a.logger.Warn("benchmarks document unavailable, serving models without benchmarks", zap.Error(err))
		return nil
	}
	return v.(*benchmarksDocument).Benchmarks
}

// document returns the cached copy of name when fresh, otherwise fetches and
// decodes it. Concurrent misses for the same document are coalesced into a
// single upstream call. On fetch failure, any cached copy (fresh or stale) is
// served instead of the error.
func (a *Adapter) document(ctx context.Context, name string, ttl time.Duration, decode func([]byte) (any, error)) (any, error) {
	if v, ok := a.cached(name, ttl); ok {
		return v, nil
	}

	v, err, _ := a.group.Do(name, func() (any, error) {
		// A concurrent waiter may have refreshed the slot already.
		if v, ok := a.cached(name, ttl); ok {
			return v, nil
		}

		data, err := a.fetch(ctx, name)
		if err == nil {
			var decoded any
			if decoded, err = decode(data); err == nil {
				a.mu.Lock()
				a.docs[name] = docEntry{value: decoded, fetchedAt: a.now()}
				a.mu.Unlock()
				return decoded, nil
			}
		}

		a.mu.RLock()
		stale, hasStale := a.docs[name]
		a.mu.RUnlock()
		if hasStale {
			a.logger.Warn("fetch failed, serving stale cached document",
				zap.String("document", name), zap.Error(err))
			return stale.value, nil
		}
		return nil, err
	})
	return v, err
}

func (a *Adapter) cached(name string, ttl time.Duration) (any, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	entry, ok := a.docs[name]
	if !ok || a.now().Sub(entry.fetchedAt) >= ttl {
		return nil, false
	}
	return entry.value, true
}

// fetch reads one document, from disk in local mode or over HTTP with
// retries otherwise.
func (a *Adapter) fetch(ctx context.Context, name string) ([]byte, error) {
	if a.cfg.LocalDir != "" {
		return os.ReadFile(filepath.Join(a.cfg.LocalDir, name))
	}

	url := fmt.Sprintf("%s/%s", a.cfg.BaseURL, name)
	var body []byte

	r := retry.New(
		retry.Context(ctx),
		retry.Attempts(a.cfg.Attempts),
	)
	err := r.Do(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Cache-Control", "no-cache")

		resp, err := a.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("fetch %s: unexpected status %d", name, resp.StatusCode)
		}
		body, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func decodeJSON[T any](data []byte) (any, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}
