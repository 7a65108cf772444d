// Package resolver implements the tiered fallback across data sources: try
// the preferred source first, then the rest of the fixed order, sequentially,
// until one succeeds or all are exhausted.
package resolver

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cecil-the-coder/modelwatch/pkg/sources"
	"github.com/cecil-the-coder/modelwatch/pkg/types"
)

// DefaultOrder is the fixed fallback order. Whichever source is preferred is
// always attempted first regardless of its position here.
var DefaultOrder = []types.SourceName{
	types.SourceDatabase,
	types.SourceGitHub,
	types.SourceTempData,
}

// AllSourcesUnavailable is the terminal failure: every configured source was
// attempted and failed. It carries the last underlying error for the caller's
// response body.
type AllSourcesUnavailable struct {
	Attempted []types.SourceName
	Last      error
}

func (e *AllSourcesUnavailable) Error() string {
	return fmt.Sprintf("all %d sources failed, last error: %v", len(e.Attempted), e.Last)
}

func (e *AllSourcesUnavailable) Unwrap() error {
	return e.Last
}

// BuildAttemptOrder places preferred first, followed by the fixed order minus
// preferred. Unrecognized preferred values contribute nothing, leaving the
// fixed order to stand on its own.
func BuildAttemptOrder(preferred types.SourceName, fixed []types.SourceName) []types.SourceName {
	order := make([]types.SourceName, 0, len(fixed)+1)
	if preferred.Valid() {
		order = append(order, preferred)
	}
	for _, s := range fixed {
		if s != preferred {
			order = append(order, s)
		}
	}
	return order
}

// Chain resolves reads across the registered sources.
type Chain struct {
	sources map[types.SourceName]sources.Source
	fixed   []types.SourceName
	logger  *zap.Logger
	metrics *Metrics
}

// New builds a chain over srcs. Sources absent from DefaultOrder are ignored;
// a nil metrics disables instrumentation.
func New(logger *zap.Logger, metrics *Metrics, srcs ...sources.Source) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	byName := make(map[types.SourceName]sources.Source, len(srcs))
	for _, s := range srcs {
		byName[s.Name()] = s
	}
	fixed := make([]types.SourceName, 0, len(DefaultOrder))
	for _, name := range DefaultOrder {
		if _, ok := byName[name]; ok {
			fixed = append(fixed, name)
		}
	}
	return &Chain{
		sources: byName,
		fixed:   fixed,
		logger:  logger.Named("resolver"),
		metrics: metrics,
	}
}

// ResolveStats resolves system stats through the chain.
func (c *Chain) ResolveStats(ctx context.Context, preferred types.SourceName) (*types.Resolved[*types.SystemStats], error) {
	data, source, err := tryInOrder(ctx, c, "getSystemStats", preferred,
		func(ctx context.Context, s sources.Source) (*types.SystemStats, error) {
			return s.GetSystemStats(ctx)
		})
	if err != nil {
		return nil, err
	}
	return types.NewResolved(data, source), nil
}

// ResolveDetailedStatus resolves the detailed status through the chain.
func (c *Chain) ResolveDetailedStatus(ctx context.Context, preferred types.SourceName) (*types.Resolved[*types.DetailedStatus], error) {
	data, source, err := tryInOrder(ctx, c, "getDetailedStatus", preferred,
		func(ctx context.Context, s sources.Source) (*types.DetailedStatus, error) {
			return s.GetDetailedStatus(ctx)
		})
	if err != nil {
		return nil, err
	}
	return types.NewResolved(data, source), nil
}

// ResolveModels resolves a filtered model listing through the chain.
func (c *Chain) ResolveModels(ctx context.Context, preferred types.SourceName, filters types.ModelFilters) (*types.Resolved[[]types.Model], error) {
	data, source, err := tryInOrder(ctx, c, "getAllModels", preferred,
		func(ctx context.Context, s sources.Source) ([]types.Model, error) {
			return s.GetAllModels(ctx, filters)
		})
	if err != nil {
		return nil, err
	}
	return types.NewResolved(data, source), nil
}

// tryInOrder attempts each source in order, sequentially and without racing:
// deterministic precedence is worth more here than shaving latency with
// speculative parallel fetches. Per-source failures are logged and swallowed;
// only full exhaustion is returned.
func tryInOrder[T any](
	ctx context.Context,
	c *Chain,
	op string,
	preferred types.SourceName,
	fn func(context.Context, sources.Source) (T, error),
) (T, types.SourceName, error) {
	var zero T

	if preferred != "" && !preferred.Valid() {
		c.logger.Warn("unrecognized preferred source, using fixed order",
			zap.String("preferred", string(preferred)))
	}

	order := BuildAttemptOrder(preferred, c.fixed)
	var lastErr error
	for _, name := range order {
		source, ok := c.sources[name]
		if !ok {
			continue
		}

		data, err := fn(ctx, source)
		if err == nil {
			c.metrics.observe(name, op, true)
			return data, name, nil
		}

		c.metrics.observe(name, op, false)
		c.logger.Warn("source failed, trying next",
			zap.String("source", string(name)),
			zap.String("operation", op),
			zap.Error(err))
		lastErr = err
	}

	return zero, "", &AllSourcesUnavailable{Attempted: order, Last: lastErr}
}
