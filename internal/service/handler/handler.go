// Package handler serves the mining HTTP API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/mining"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/report"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/service"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/service/cache"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/service/validator"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/resilience"
)

const maxListedRuns = 100

var descriptions = map[mining.Strategy]string{
	mining.UApriori:   "level-wise candidate generation with subset and bound pruning",
	mining.UFPGrowth:  "conditional-database search, dense role",
	mining.UHMine:     "conditional-database search, sparse role",
	mining.Hybrid:     "picks the conditional role from database density",
	mining.Exhaustive: "depth-first enumeration of every itemset, for validation",
}

// RunLister lists persisted benchmark runs.
type RunLister interface {
	ListRuns(ctx context.Context, limit int) ([]report.Run, error)
}

type Handler struct {
	cfg          config.MiningConfig
	cache        *cache.ResultCache
	runs         RunLister
	slots        *resilience.Bulkhead
	metrics      *metrics.Metrics
	maxBodyBytes int64
	logger       *slog.Logger
}

// Option customises a Handler.
type Option func(*Handler)

func WithCache(c *cache.ResultCache) Option {
	return func(h *Handler) { h.cache = c }
}

func WithRuns(r RunLister) Option {
	return func(h *Handler) { h.runs = r }
}

// WithBulkhead bounds the searches in flight across all requests.
func WithBulkhead(b *resilience.Bulkhead) Option {
	return func(h *Handler) { h.slots = b }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

func WithMaxBodyBytes(n int64) Option {
	return func(h *Handler) { h.maxBodyBytes = n }
}

func New(cfg config.MiningConfig, opts ...Option) *Handler {
	h := &Handler{
		cfg:    cfg,
		logger: logger.WithComponent("mine-handler"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes registers the API on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/mine", h.Mine)
	mux.HandleFunc("GET /api/v1/strategies", h.Strategies)
	mux.HandleFunc("GET /api/v1/runs", h.Runs)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	if h.maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}
	var req service.MineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("body exceeds %d bytes", tooLarge.Limit))
			return
		}
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	h.applyDefaults(&req)

	if err := validator.ValidateMineRequest(&req, validator.Limits{
		MaxK:            h.cfg.MaxK,
		MaxTransactions: h.cfg.MaxTransactions,
	}); err != nil {
		var validationErr *validator.ValidationError
		if errors.As(err, &validationErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": validationErr.Fields,
			})
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	strategy, _ := mining.ParseStrategy(req.Strategy)
	db := req.Database()
	opts := mining.Options{K: req.K, DensityThreshold: req.DensityThreshold}

	compute := func() (*mining.Result, error) {
		var res *mining.Result
		err := h.slots.Run(ctx, h.cfg.RunTimeout, "mining "+string(strategy), func(context.Context) error {
			out, err := mining.Run(strategy, db, opts)
			res = out
			return err
		})
		if err != nil {
			h.metrics.ObserveRun(observation(strategy, nil, err))
			return nil, err
		}
		h.metrics.ObserveRun(observation(strategy, res, nil))
		return res, nil
	}

	var (
		result   *mining.Result
		cacheHit bool
		err      error
	)
	if h.cache != nil {
		key := cache.Key(strategy, req.K, req.DensityThreshold, db)
		result, cacheHit, err = h.cache.GetOrCompute(ctx, key, compute)
	} else {
		result, err = compute()
	}
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		log.Error("mining failed",
			"strategy", string(strategy),
			"k", req.K,
			"error", err,
			"status_code", status,
		)
		message := "mining failed"
		if status < http.StatusInternalServerError || errors.Is(err, apperrors.ErrTimeout) {
			message = err.Error()
		}
		if errors.Is(err, apperrors.ErrOverloaded) {
			message = "too many mining runs in flight, retry later"
			w.Header().Set("Retry-After", "1")
		}
		h.writeError(w, status, message)
		return
	}

	log.Info("mining request served",
		"strategy", string(strategy),
		"k", req.K,
		"transactions", result.Transactions,
		"returned", len(result.Itemsets),
		"threshold", result.Threshold,
		"cache_hit", cacheHit,
	)
	resp := service.NewMineResponse(result, cacheHit)
	resp.RequestID = middleware.GetRequestID(ctx)
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) applyDefaults(req *service.MineRequest) {
	if req.K == 0 {
		req.K = h.cfg.DefaultK
	}
	if strings.TrimSpace(req.Strategy) == "" {
		req.Strategy = h.cfg.DefaultStrategy
	}
	if req.DensityThreshold == 0 {
		req.DensityThreshold = h.cfg.DensityThreshold
	}
}

func observation(strategy mining.Strategy, res *mining.Result, err error) metrics.RunObservation {
	o := metrics.RunObservation{Strategy: string(strategy)}
	switch {
	case errors.Is(err, apperrors.ErrNoData):
		o.Status = "no_data"
	case errors.Is(err, apperrors.ErrTimeout):
		o.Status = "timeout"
	case errors.Is(err, apperrors.ErrOverloaded):
		o.Status = "rejected"
	case err != nil:
		o.Status = "error"
	default:
		o.Status = "ok"
		o.Duration = res.Elapsed
		o.Itemsets = len(res.Itemsets)
		o.Threshold = res.Threshold
		o.Evaluated = res.Stats.Evaluated
		o.BoundPruned = res.Stats.BoundPruned
		o.SubsetPruned = res.Stats.SubsetPruned
		o.ESPruned = res.Stats.ESPruned
	}
	return o
}

func (h *Handler) Strategies(w http.ResponseWriter, r *http.Request) {
	def, _ := mining.ParseStrategy(h.cfg.DefaultStrategy)
	out := make([]service.StrategyInfo, 0, len(descriptions))
	for _, s := range mining.Strategies() {
		out = append(out, service.StrategyInfo{
			Name:        string(s),
			Description: descriptions[s],
			Default:     s == def,
		})
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"strategies": out})
}

func (h *Handler) Runs(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		h.writeError(w, http.StatusServiceUnavailable, "run history is disabled")
		return
	}
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		parsed, err := strconv.Atoi(s)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(parsed, maxListedRuns)
	}
	runs, err := h.runs.ListRuns(r.Context(), limit)
	if err != nil {
		logger.FromContext(r.Context()).Error("listing runs failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "listing runs failed")
		return
	}
	if runs == nil {
		runs = []report.Run{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
		"breaker":  h.cache.BreakerState().String(),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	if err := h.cache.Invalidate(ctx); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
