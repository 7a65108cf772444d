package backend

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/cecil-the-coder/modelwatch/pkg/dashboard"
	"github.com/cecil-the-coder/modelwatch/pkg/quota"
	"github.com/cecil-the-coder/modelwatch/pkg/resolver"
	"github.com/cecil-the-coder/modelwatch/pkg/types"
)

// StatusHandler serves GET /api/v1/status.
type StatusHandler struct {
	chain     *resolver.Chain
	preferred PreferredSource
	logger    *zap.Logger
}

func NewStatusHandler(chain *resolver.Chain, preferred PreferredSource, logger *zap.Logger) *StatusHandler {
	return &StatusHandler{chain: chain, preferred: preferred, logger: logger}
}

// GetStatus resolves system stats (or the detailed breakdown with
// ?detailed=true) through the chain. A 500 here means every configured
// source failed, not just the preferred one.
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	detailed := r.URL.Query().Get("detailed") == "true"
	preferred := h.preferred()

	if detailed {
		result, err := h.chain.ResolveDetailedStatus(r.Context(), preferred)
		if err != nil {
			h.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	result, err := h.chain.ResolveStats(r.Context(), preferred)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *StatusHandler) fail(w http.ResponseWriter, err error) {
	var exhausted *resolver.AllSourcesUnavailable
	if errors.As(err, &exhausted) {
		h.logger.Error("status request failed on every source", zap.Error(exhausted.Last))
		writeError(w, http.StatusInternalServerError, "Failed to fetch system status", exhausted.Last)
		return
	}
	h.logger.Error("status request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "Failed to fetch system status", err)
}

// ModelsHandler serves GET /api/v1/models.
type ModelsHandler struct {
	chain     *resolver.Chain
	preferred PreferredSource
	logger    *zap.Logger
}

func NewModelsHandler(chain *resolver.Chain, preferred PreferredSource, logger *zap.Logger) *ModelsHandler {
	return &ModelsHandler{chain: chain, preferred: preferred, logger: logger}
}

// ListModels resolves a filtered model listing through the chain.
func (h *ModelsHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	result, err := h.chain.ResolveModels(r.Context(), h.preferred(), parseFilters(r))
	if err != nil {
		h.logger.Error("models request failed on every source", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch models", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func parseFilters(r *http.Request) types.ModelFilters {
	q := r.URL.Query()
	filters := types.ModelFilters{
		Provider: q.Get("provider"),
	}
	if v := q.Get("isActive"); v != "" {
		active := v == "true"
		filters.IsActive = &active
	}
	if v := q.Get("modalities"); v != "" {
		filters.Modalities = strings.Split(v, ",")
	}
	if v := q.Get("capabilities"); v != "" {
		filters.Capabilities = strings.Split(v, ",")
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		filters.Limit = n
	}
	if n, err := strconv.Atoi(q.Get("offset")); err == nil && n > 0 {
		filters.Offset = n
	}
	return filters
}

// DashboardHandler serves GET /api/v1/dashboard: the badge-labeled model
// view backed by the display cache.
type DashboardHandler struct {
	cache *dashboard.Cache
}

func NewDashboardHandler(cache *dashboard.Cache) *DashboardHandler {
	return &DashboardHandler{cache: cache}
}

// GetDashboard always succeeds; the strategy list bottoms out on the bundled
// fallback dataset.
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cache.DisplayData(r.Context()))
}

// QuotaHandler serves GET /api/v1/quotas.
type QuotaHandler struct {
	monitor *quota.Monitor
}

func NewQuotaHandler(monitor *quota.Monitor) *QuotaHandler {
	return &QuotaHandler{monitor: monitor}
}

// ListQuotas reports every provider's quota standing.
func (h *QuotaHandler) ListQuotas(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.monitor.Metrics())
}
