package api

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pagequality/gannet/internal/assess"
	"github.com/pagequality/gannet/internal/domain"
	"github.com/pagequality/gannet/internal/linguistic"
	"github.com/pagequality/gannet/internal/pattern"
	"github.com/pagequality/gannet/internal/repository"
	"github.com/pagequality/gannet/internal/usage"
)

// maxContentBytes bounds the request body of POST /assess.
const maxContentBytes = 1 << 20 // 1 MiB

// resultCacheTTL is how long an identical (content, filters, options)
// submission is served from cache instead of re-running the pipeline.
const resultCacheTTL = 5 * time.Minute

// Handler holds dependencies for API handlers.
type Handler struct {
	repo         domain.Repository
	cache        domain.Cache
	bus          domain.EventBus
	orchestrator *assess.Orchestrator
	ruleSource   *assess.CachedRuleSource
	usage        *usage.Service
	engineCfg    domain.EngineConfig
	registry     pattern.Registry
	version      string
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, orchestrator *assess.Orchestrator, ruleSource *assess.CachedRuleSource, usageSvc *usage.Service, engineCfg domain.EngineConfig, version string) *Handler {
	return &Handler{
		repo:         repo,
		cache:        cache,
		bus:          bus,
		orchestrator: orchestrator,
		ruleSource:   ruleSource,
		usage:        usageSvc,
		engineCfg:    engineCfg,
		registry:     pattern.DefaultRegistry(),
		version:      version,
	}
}

// AssessRequest is the request body for POST /assess.
type AssessRequest struct {
	Content  string                `json:"content"`
	PageType string                `json:"page_type"`
	Industry string                `json:"industry"`
	Options  *AssessOptionsRequest `json:"options,omitempty"`
}

// AssessOptionsRequest carries per-request overrides. Pointer fields
// distinguish "not set" from an explicit false/zero.
type AssessOptionsRequest struct {
	RunTier3      *bool `json:"run_tier3,omitempty"`
	ShortCircuit  *bool `json:"short_circuit,omitempty"`
	MaxTier3Rules *int  `json:"max_tier3_rules,omitempty"`
}

// resolveOptions starts from the configured engine defaults and applies the
// request's explicit overrides.
func (h *Handler) resolveOptions(req *AssessRequest) domain.AssessOptions {
	opts := domain.AssessOptions{
		RunTier3:      h.engineCfg.RunTier3,
		ShortCircuit:  h.engineCfg.ShortCircuit,
		MaxTier3Rules: h.engineCfg.MaxTier3Rules,
	}
	if opts.MaxTier3Rules <= 0 {
		opts.MaxTier3Rules = domain.DefaultOptions().MaxTier3Rules
	}
	if req.Options == nil {
		return opts
	}
	if req.Options.RunTier3 != nil {
		opts.RunTier3 = *req.Options.RunTier3
	}
	if req.Options.ShortCircuit != nil {
		opts.ShortCircuit = *req.Options.ShortCircuit
	}
	if req.Options.MaxTier3Rules != nil && *req.Options.MaxTier3Rules > 0 {
		opts.MaxTier3Rules = *req.Options.MaxTier3Rules
	}
	return opts
}

// Assess handles POST /assess requests.
func (h *Handler) Assess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	traceID := GetTraceID(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, maxContentBytes)

	var req AssessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "content is required",
		})
		return
	}

	opts := h.resolveOptions(&req)

	// Identical submissions within the TTL return the stored verdict; tier-3
	// calls are the expensive part and content rarely changes between retries.
	cacheKey := resultCacheKey(&req, opts)
	if h.cache != nil {
		if cached, err := h.cache.GetAssessment(ctx, tenantID, cacheKey); err != nil {
			slog.Warn("result cache read failed", "tenant_id", tenantID, "error", err)
		} else if cached != nil {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	result, err := h.orchestrator.Assess(ctx, &domain.AssessmentRequest{
		TenantID: tenantID,
		TraceID:  traceID,
		Content:  req.Content,
		PageType: req.PageType,
		Industry: req.Industry,
		Options:  opts,
	})
	if err != nil {
		slog.Error("assessment failed", "tenant_id", tenantID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "assessment failed",
		})
		return
	}

	if h.repo != nil {
		if err := h.repo.SaveAssessment(ctx, tenantID, result); err != nil {
			slog.Error("failed to save assessment", "id", result.ID, "error", err)
		}
	}

	if h.usage != nil {
		if _, err := h.usage.Record(ctx, tenantID); err != nil {
			slog.Warn("failed to record usage", "tenant_id", tenantID, "error", err)
		}
	}

	if h.cache != nil {
		if err := h.cache.SetAssessment(ctx, tenantID, cacheKey, result, resultCacheTTL); err != nil {
			slog.Warn("result cache write failed", "tenant_id", tenantID, "error", err)
		}
	}

	if h.bus != nil {
		if err := h.bus.Publish(ctx, tenantID, domain.AssessmentCompleted{
			TenantID: tenantID,
			Result:   result,
		}); err != nil {
			slog.Warn("failed to publish assessment event", "id", result.ID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, result)
}

// resultCacheKey hashes everything that can change the verdict.
func resultCacheKey(req *AssessRequest, opts domain.AssessOptions) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%v|%v|%d",
		req.Content, req.PageType, req.Industry,
		opts.RunTier3, opts.ShortCircuit, opts.MaxTier3Rules,
	)
	return "assess:" + hex.EncodeToString(h.Sum(nil))
}

// GetAssessment retrieves a stored assessment by ID.
func (h *Handler) GetAssessment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	id := chi.URLParam(r, "id")

	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "assessment id is required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	result, err := h.repo.GetAssessment(ctx, tenantID, id)
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "assessment not found",
		})
		return
	}
	if err != nil {
		slog.Error("failed to get assessment", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load assessment",
		})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ListRules returns the tenant's active rule catalog.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	rules, err := h.repo.ListRules(ctx, tenantID)
	if err != nil {
		slog.Error("failed to list rules", "tenant_id", tenantID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load rules",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rules": rules,
		"count": len(rules),
	})
}

// GetRule retrieves a rule by ID.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	ruleID := chi.URLParam(r, "id")

	if ruleID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "rule id is required",
		})
		return
	}

	rule, err := h.repo.GetRule(ctx, tenantID, ruleID)
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "rule not found",
		})
		return
	}
	if err != nil {
		slog.Error("failed to get rule", "id", ruleID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load rule",
		})
		return
	}

	writeJSON(w, http.StatusOK, rule)
}

// CreateRule validates and stores a rule. Changes become visible to
// assessments once the cached rule sets expire or are invalidated.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var rule domain.Rule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if rule.ID == "" || rule.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "id and name are required",
		})
		return
	}
	if rule.Tier < 1 || rule.Tier > 3 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "tier must be 1, 2, or 3",
		})
		return
	}
	if rule.Enforcement == "" {
		rule.Enforcement = domain.EnforcementRecommended
	}
	if rule.Enforcement != domain.EnforcementRequired && rule.Enforcement != domain.EnforcementRecommended {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "enforcement must be 'required' or 'recommended'",
		})
		return
	}

	switch rule.Tier {
	case 1:
		d, err := pattern.ParseDirective(rule.Directive)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "invalid directive: " + err.Error(),
			})
			return
		}
		if _, ok := h.registry[d.Name]; !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "unknown predicate: " + d.Name,
			})
			return
		}
	case 2:
		if rule.CheckType == "" {
			rule.CheckType = linguistic.DeriveCheckType(rule.Description)
		}
		if rule.CheckType == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "tier-2 rules need a check_type or a description naming one",
			})
			return
		}
	case 3:
		if rule.Description == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "tier-3 rules need a description for the model to judge",
			})
			return
		}
	}

	rule.TenantID = tenantID

	if err := h.repo.SaveRule(ctx, tenantID, &rule); err != nil {
		slog.Error("failed to save rule", "id", rule.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save rule",
		})
		return
	}

	slog.Info("rule created", "id", rule.ID, "tenant_id", tenantID, "tier", rule.Tier)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"rule":    rule,
		"message": "Rule created. Cached rule sets refresh within the configured TTL; call POST /rules/reload to apply immediately.",
	})
}

// DeleteRule soft-deletes a rule.
func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	ruleID := chi.URLParam(r, "id")

	if ruleID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "rule id is required",
		})
		return
	}

	if err := h.repo.DeleteRule(ctx, tenantID, ruleID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "rule not found",
			})
			return
		}
		slog.Error("failed to delete rule", "id", ruleID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to delete rule",
		})
		return
	}

	slog.Info("rule deleted", "id", ruleID, "tenant_id", tenantID)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Rule deleted. Cached rule sets refresh within the configured TTL; call POST /rules/reload to apply immediately.",
	})
}

// ReloadRules drops the cached rule sets for a page-type/industry filter so
// catalog edits take effect immediately. With no query parameters it
// invalidates the unfiltered rule sets.
func (h *Handler) ReloadRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	pageType := r.URL.Query().Get("page_type")
	industry := r.URL.Query().Get("industry")

	if h.ruleSource == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "rule cache not available",
		})
		return
	}

	for tier := 1; tier <= 3; tier++ {
		if err := h.ruleSource.Invalidate(ctx, tenantID, tier, pageType, industry); err != nil {
			slog.Error("failed to invalidate rule cache", "tier", tier, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to invalidate rule cache",
			})
			return
		}
	}

	slog.Info("rule cache invalidated",
		"tenant_id", tenantID,
		"page_type", pageType,
		"industry", industry,
	)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "rule cache invalidated",
	})
}

// GetUsage reports the tenant's assessment volume. Window defaults to 24
// hours; override with ?hours=N.
func (h *Handler) GetUsage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	if h.usage == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "usage tracking not available",
		})
		return
	}

	window := 24 * time.Hour
	if hours := r.URL.Query().Get("hours"); hours != "" {
		n, err := strconv.Atoi(hours)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "hours must be a positive integer",
			})
			return
		}
		window = time.Duration(n) * time.Hour
	}

	report, err := h.usage.ReportFor(ctx, tenantID, window)
	if err != nil {
		slog.Error("failed to build usage report", "tenant_id", tenantID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to build usage report",
		})
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	// Check repository health
	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	// Check cache health
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
