// Package database wraps the relational store behind the sources.Source
// contract. Reads go through a circuit breaker so a flapping database fails
// fast instead of stalling the resolution chain, and computed stats are kept
// in a short-lived Redis cache shared across instances.
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/cecil-the-coder/modelwatch/pkg/sources"
	"github.com/cecil-the-coder/modelwatch/pkg/types"
)

const (
	statsCacheKey    = "system:stats"
	detailedCacheKey = "system:detailed-status"
	statsCacheTTL    = 2 * time.Minute

	// statusWindow bounds which status checks count toward the current
	// distribution; availabilityWindow does the same for the average.
	statusWindow       = 30 * time.Minute
	availabilityWindow = time.Hour
)

// Adapter implements sources.Source over Postgres. The Redis client is
// optional; with a nil client every read recomputes.
type Adapter struct {
	pool    *pgxpool.Pool
	cache   *redis.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// New builds the adapter around an existing pool.
func New(pool *pgxpool.Pool, cache *redis.Client, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "database-source",
		MaxRequests: 3,
		Interval:    5 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})
	return &Adapter{
		pool:    pool,
		cache:   cache,
		breaker: cb,
		logger:  logger.Named("database-source"),
	}
}

// Name implements sources.Source.
func (a *Adapter) Name() types.SourceName { return types.SourceDatabase }

// Ping verifies connectivity, for startup checks.
func (a *Adapter) Ping(ctx context.Context) error {
	return a.pool.Ping(ctx)
}

// GetSystemStats implements sources.Source.
func (a *Adapter) GetSystemStats(ctx context.Context) (*types.SystemStats, error) {
	var cached types.SystemStats
	if a.cacheGet(ctx, statsCacheKey, &cached) {
		return &cached, nil
	}

	result, err := a.breaker.Execute(func() (interface{}, error) {
		return a.querySystemStats(ctx)
	})
	if err != nil {
		return nil, sources.Unavailable(types.SourceDatabase, "getSystemStats", err)
	}

	stats := result.(*types.SystemStats)
	a.cacheSet(ctx, statsCacheKey, stats)
	return stats, nil
}

func (a *Adapter) querySystemStats(ctx context.Context) (*types.SystemStats, error) {
	stats := &types.SystemStats{LastUpdated: time.Now().UTC()}

	err := a.pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE is_active)
		FROM models`).Scan(&stats.TotalModels, &stats.ActiveModels)
	if err != nil {
		return nil, fmt.Errorf("count models: %w", err)
	}

	if err := a.pool.QueryRow(ctx, `SELECT COUNT(*) FROM providers`).Scan(&stats.Providers); err != nil {
		return nil, fmt.Errorf("count providers: %w", err)
	}

	err = a.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'operational'),
			COUNT(*) FILTER (WHERE status = 'degraded'),
			COUNT(*) FILTER (WHERE status = 'outage')
		FROM model_status
		WHERE checked_at > NOW() - $1::interval`,
		statusWindow.String()).Scan(&stats.OperationalModels, &stats.DegradedModels, &stats.OutageModels)
	if err != nil {
		return nil, fmt.Errorf("status distribution: %w", err)
	}

	err = a.pool.QueryRow(ctx, `
		SELECT COALESCE(ROUND(AVG(availability)::numeric, 1), 99.9)
		FROM model_status
		WHERE checked_at > NOW() - $1::interval`,
		availabilityWindow.String()).Scan(&stats.AvgAvailability)
	if err != nil {
		return nil, fmt.Errorf("average availability: %w", err)
	}

	err = a.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM benchmark_scores WHERE is_official`).Scan(&stats.TotalBenchmarks)
	if err != nil {
		return nil, fmt.Errorf("count benchmarks: %w", err)
	}

	return stats, nil
}

// GetAllModels implements sources.Source. Provider and active filters are
// pushed into SQL; modality and capability filters match against the stored
// JSON text, mirroring how the legacy schema encodes those columns.
func (a *Adapter) GetAllModels(ctx context.Context, filters types.ModelFilters) ([]types.Model, error) {
	result, err := a.breaker.Execute(func() (interface{}, error) {
		return a.queryModels(ctx, filters)
	})
	if err != nil {
		return nil, sources.Unavailable(types.SourceDatabase, "getAllModels", err)
	}
	return result.([]types.Model), nil
}

func (a *Adapter) queryModels(ctx context.Context, filters types.ModelFilters) ([]types.Model, error) {
	where, args := buildModelFilters(filters)
	query := fmt.Sprintf(`
		SELECT
			m.id, m.slug, m.name, COALESCE(m.description, ''),
			p.id, p.name, p.slug, COALESCE(p.website_url, ''),
			COALESCE(m.modalities, ''), COALESCE(m.type, ''),
			COALESCE(m.capabilities, ''), COALESCE(m.context_window, 0), m.is_active,
			s.status, s.availability, s.latency_p95, s.checked_at,
			pr.input_per_million, pr.output_per_million
		FROM models m
		JOIN providers p ON p.id = m.provider_id
		LEFT JOIN LATERAL (
			SELECT status, availability, latency_p95, checked_at
			FROM model_status
			WHERE model_id = m.id
			ORDER BY checked_at DESC
			LIMIT 1
		) s ON TRUE
		LEFT JOIN model_pricing pr ON pr.model_id = m.id
		%s
		ORDER BY m.name
		LIMIT %d OFFSET %d`,
		where, filters.EffectiveLimit(), filters.Offset)

	rows, err := a.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query models: %w", err)
	}
	defer rows.Close()

	var models []types.Model
	for rows.Next() {
		var (
			m                       types.Model
			modalities, legacyType  string
			capabilities            string
			status                  *string
			availability            *float64
			latencyP95              *int
			checkedAt               *time.Time
			priceIn, priceOut       *float64
		)
		err := rows.Scan(
			&m.ID, &m.Slug, &m.Name, &m.Description,
			&m.Provider.ID, &m.Provider.Name, &m.Provider.Slug, &m.Provider.WebsiteURL,
			&modalities, &legacyType,
			&capabilities, &m.ContextWindow, &m.IsActive,
			&status, &availability, &latencyP95, &checkedAt,
			&priceIn, &priceOut,
		)
		if err != nil {
			return nil, fmt.Errorf("scan model: %w", err)
		}

		m.Modalities = sources.ParseModalities(json.RawMessage(modalities), legacyType)
		m.Capabilities = sources.ParseStringList(json.RawMessage(capabilities))
		if status != nil {
			m.Status = &types.ModelStatus{Status: *status}
			if availability != nil {
				m.Status.Availability = *availability
			}
			if latencyP95 != nil {
				m.Status.LatencyP95 = *latencyP95
			}
			if checkedAt != nil {
				m.Status.CheckedAt = *checkedAt
			}
		}
		if priceIn != nil && priceOut != nil {
			m.Pricing = &types.Pricing{
				InputPerMillion:  *priceIn,
				OutputPerMillion: *priceOut,
				Currency:         "USD",
			}
		}
		models = append(models, m)
	}
	return models, rows.Err()
}

// buildModelFilters translates filters into a WHERE clause with positional
// args. Modality and capability lists are any-match against the JSON text
// columns.
func buildModelFilters(filters types.ModelFilters) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	next := func() string { return fmt.Sprintf("$%d", len(args)) }

	if filters.Provider != "" {
		args = append(args, filters.Provider)
		clauses = append(clauses, "p.slug = "+next())
	}
	if filters.IsActive != nil {
		args = append(args, *filters.IsActive)
		clauses = append(clauses, "m.is_active = "+next())
	}
	if len(filters.Modalities) > 0 {
		clauses = append(clauses, anyMatch("m.modalities", filters.Modalities, &args))
	}
	if len(filters.Capabilities) > 0 {
		clauses = append(clauses, anyMatch("m.capabilities", filters.Capabilities, &args))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	where := "WHERE " + clauses[0]
	for _, c := range clauses[1:] {
		where += " AND " + c
	}
	return where, args
}

func anyMatch(column string, values []string, args *[]interface{}) string {
	group := "("
	for i, v := range values {
		*args = append(*args, "%\""+v+"\"%")
		if i > 0 {
			group += " OR "
		}
		group += fmt.Sprintf("%s LIKE $%d", column, len(*args))
	}
	return group + ")"
}

// GetDetailedStatus implements sources.Source. The provider breakdown is
// built by joining models to providers in memory rather than a wide GROUP BY,
// so it shares normalization with every other read path.
func (a *Adapter) GetDetailedStatus(ctx context.Context) (*types.DetailedStatus, error) {
	var cached types.DetailedStatus
	if a.cacheGet(ctx, detailedCacheKey, &cached) {
		return &cached, nil
	}

	stats, err := a.GetSystemStats(ctx)
	if err != nil {
		return nil, err
	}

	active := true
	models, err := a.GetAllModels(ctx, types.ModelFilters{IsActive: &active, Limit: 1000})
	if err != nil {
		return nil, err
	}

	result, err := a.breaker.Execute(func() (interface{}, error) {
		return a.queryRecentIncidents(ctx)
	})
	if err != nil {
		return nil, sources.Unavailable(types.SourceDatabase, "getDetailedStatus", err)
	}

	detailed := &types.DetailedStatus{
		System:          *stats,
		Providers:       sources.BuildProviderSummaries(models),
		RecentIncidents: result.([]types.Incident),
	}
	a.cacheSet(ctx, detailedCacheKey, detailed)
	return detailed, nil
}

func (a *Adapter) queryRecentIncidents(ctx context.Context) ([]types.Incident, error) {
	rows, err := a.pool.Query(ctx, `
		SELECT i.id, i.title, i.severity, i.status, i.started_at, i.resolved_at,
			COALESCE(p.name, ''), COALESCE(m.name, '')
		FROM incidents i
		LEFT JOIN providers p ON p.id = i.provider_id
		LEFT JOIN models m ON m.id = i.model_id
		WHERE i.started_at > NOW() - INTERVAL '7 days'
		ORDER BY i.started_at DESC
		LIMIT 10`)
	if err != nil {
		return nil, fmt.Errorf("query incidents: %w", err)
	}
	defer rows.Close()

	incidents := []types.Incident{}
	for rows.Next() {
		var inc types.Incident
		if err := rows.Scan(&inc.ID, &inc.Title, &inc.Severity, &inc.Status,
			&inc.StartedAt, &inc.ResolvedAt, &inc.Provider, &inc.Model); err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		incidents = append(incidents, inc)
	}
	return incidents, rows.Err()
}

// cacheGet loads key into target, reporting a hit. Cache failures are logged
// at debug and treated as misses.
func (a *Adapter) cacheGet(ctx context.Context, key string, target interface{}) bool {
	if a.cache == nil {
		return false
	}
	data, err := a.cache.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			a.logger.Debug("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(data, target); err != nil {
		a.logger.Debug("cache entry corrupt", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (a *Adapter) cacheSet(ctx context.Context, key string, value interface{}) {
	if a.cache == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := a.cache.Set(ctx, key, data, statsCacheTTL).Err(); err != nil {
		a.logger.Debug("cache write failed", zap.String("key", key), zap.Error(err))
	}
}
