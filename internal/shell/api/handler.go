// Package api provides HTTP handlers for the Stowage API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/artpar/stowage/internal/core/domain"
	"github.com/artpar/stowage/internal/core/planfile"
	"github.com/artpar/stowage/internal/shell/api/openapi"
	"github.com/artpar/stowage/internal/shell/session"
	"github.com/artpar/stowage/internal/shell/store"
)

// maxDocumentBytes bounds uploaded plan documents and move requests.
const maxDocumentBytes = 8 << 20

// =============================================================================
// Handler
// =============================================================================

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler provides HTTP handlers for the API.
type Handler struct {
	registry *session.Registry
	pinger   Pinger
	gatherer prometheus.Gatherer
	docs     *openapi.Generator
	logger   *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithPinger adds a readiness check, typically the store.
func WithPinger(p Pinger) Option {
	return func(h *Handler) {
		h.pinger = p
	}
}

// WithGatherer exposes the given registry on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(h *Handler) {
		h.gatherer = g
	}
}

// WithGenerator replaces the OpenAPI generator, e.g. to set server URLs.
func WithGenerator(g *openapi.Generator) Option {
	return func(h *Handler) {
		h.docs = g
	}
}

// NewHandler creates a new API handler.
func NewHandler(reg *session.Registry, l *slog.Logger, opts ...Option) *Handler {
	if l == nil {
		l = slog.Default()
	}
	h := &Handler{
		registry: reg,
		logger:   l,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.docs == nil {
		h.docs = openapi.NewGenerator()
	}
	describeRoutes(h.docs)
	return h
}

// Routes returns the router with all routes configured.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.jsonContentType)
	r.Use(h.requestIDHeader)

	// Health endpoints
	r.Get("/health", h.handleHealth)
	r.Get("/ready", h.handleReady)
	if h.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/openapi.json", h.docs.Handler())

		r.Route("/plans", func(r chi.Router) {
			r.Post("/", h.handleCreatePlan)
			r.Get("/", h.handleListPlans)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.handleGetPlan)
				r.Delete("/", h.handleDeletePlan)
				r.Get("/bays", h.handleGetBays)
				r.Get("/metrics", h.handleGetMetrics)
				r.Get("/export", h.handleExportPlan)
				r.Post("/validate", h.handleValidateMove)
				r.Post("/moves", h.handleMove)
				r.Get("/moves", h.handleListMoves)
			})
		})
	})

	return r
}

// =============================================================================
// Middleware
// =============================================================================

// jsonContentType sets Content-Type header to application/json.
func (h *Handler) jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// requestIDHeader copies the request ID to the response header.
func (h *Handler) requestIDHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			w.Header().Set("X-Request-ID", reqID)
		}
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// Health Handlers
// =============================================================================

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"plans": strconv.Itoa(h.registry.Len())}

	if h.pinger != nil {
		if err := h.pinger.Ping(r.Context()); err != nil {
			h.logger.Warn("readiness check failed", "check", "database", "error", err)
			checks["database"] = "failed"
			h.writeJSON(w, http.StatusServiceUnavailable, ReadyResponse{
				Status: "not_ready",
				Checks: checks,
			})
			return
		}
		checks["database"] = "ok"
	}

	h.writeJSON(w, http.StatusOK, ReadyResponse{
		Status: "ready",
		Checks: checks,
	})
}

// =============================================================================
// Plan Handlers
// =============================================================================

func (h *Handler) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	format, err := requestFormat(r)
	if err != nil {
		h.writeError(w, http.StatusUnsupportedMediaType, err.Error(), "unsupported_format")
		return
	}

	doc, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocumentBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "plan document too large", "document_too_large")
			return
		}
		h.writeError(w, http.StatusBadRequest, "failed to read request body", "invalid_document")
		return
	}

	s, err := h.registry.Load(r.Context(), doc, format)
	if err != nil {
		var integrity *domain.PlanIntegrityError
		switch {
		case errors.Is(err, planfile.ErrMalformedDocument):
			h.writeError(w, http.StatusBadRequest, err.Error(), "invalid_document")
		case errors.Is(err, planfile.ErrInvalidRecord):
			h.writeError(w, http.StatusUnprocessableEntity, err.Error(), "invalid_plan")
		case errors.As(err, &integrity):
			h.writeError(w, http.StatusUnprocessableEntity, integrity.Error(), "plan_integrity_error")
		default:
			h.logger.Error("failed to load plan", "error", err)
			h.writeError(w, http.StatusInternalServerError, "failed to load plan", "internal_error")
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, planResponse(s.Summary()))
}

func (h *Handler) handleListPlans(w http.ResponseWriter, r *http.Request) {
	summaries := h.registry.List()

	resp := PlanListResponse{
		Plans: make([]PlanResponse, 0, len(summaries)),
		Total: len(summaries),
	}
	for _, s := range summaries {
		resp.Plans = append(resp.Plans, planResponse(s))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, planResponse(s.Summary()))
}

func (h *Handler) handleDeletePlan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.registry.Remove(r.Context(), id); err != nil {
		if isNotFound(err) {
			h.writeError(w, http.StatusNotFound, "plan not found", "plan_not_found")
			return
		}
		h.logger.Error("failed to delete plan", "plan_id", id, "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to delete plan", "internal_error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetBays(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}

	bays := s.Projection()
	if bay := r.URL.Query().Get("bay"); bay != "" {
		filtered := bays[:0]
		for _, b := range bays {
			if b.Bay == bay {
				filtered = append(filtered, b)
			}
		}
		if len(filtered) == 0 {
			h.writeError(w, http.StatusNotFound, "bay "+bay+" not found", "bay_not_found")
			return
		}
		bays = filtered
	}

	h.writeJSON(w, http.StatusOK, BaysResponse{PlanID: s.ID(), Bays: bays})
}

func (h *Handler) handleGetMetrics(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, MetricsResponse{PlanID: s.ID(), Metrics: s.Metrics()})
}

func (h *Handler) handleExportPlan(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}

	format, err := planfile.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error(), "unsupported_format")
		return
	}

	if format == planfile.FormatYAML {
		w.Header().Set("Content-Type", "application/yaml")
	}
	w.WriteHeader(http.StatusOK)
	if err := planfile.Encode(w, s.Export(), format); err != nil {
		h.logger.Error("failed to encode plan", "plan_id", s.ID(), "error", err)
	}
}

// =============================================================================
// Move Handlers
// =============================================================================

func (h *Handler) handleValidateMove(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	req, ok := h.decodeMove(w, r)
	if !ok {
		return
	}

	d := s.Validate(req.ContainerID, req.Target())
	h.writeJSON(w, http.StatusOK, decisionResponse(d.Accepted, d.Rejection))
}

func (h *Handler) handleMove(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	req, ok := h.decodeMove(w, r)
	if !ok {
		return
	}

	res, err := s.Move(r.Context(), req.ContainerID, req.Target())
	if err != nil {
		if errors.Is(err, session.ErrJournalWrite) {
			h.writeError(w, http.StatusInternalServerError, "move could not be recorded and was not applied", "journal_error")
			return
		}
		h.logger.Error("failed to apply move", "plan_id", s.ID(), "container_id", req.ContainerID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to apply move", "internal_error")
		return
	}

	// Rejections are ordinary outcomes, not request errors.
	h.writeJSON(w, http.StatusOK, MoveResponse{
		DecisionResponse: decisionResponse(res.Decision.Accepted, res.Decision.Rejection),
		Effect:           res.Effect,
		Metrics:          res.Metrics,
	})
}

func (h *Handler) handleListMoves(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}

	opts := store.DefaultListOptions()
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			opts.Offset = n
		}
	}
	opts = opts.Normalize()

	moves, err := s.Journal(r.Context(), opts)
	if err != nil {
		h.logger.Error("failed to list moves", "plan_id", s.ID(), "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to list moves", "internal_error")
		return
	}
	total, err := s.JournalLen(r.Context())
	if err != nil {
		h.logger.Error("failed to count moves", "plan_id", s.ID(), "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to list moves", "internal_error")
		return
	}

	resp := JournalResponse{
		PlanID: s.ID(),
		Moves:  make([]JournalEntryResponse, 0, len(moves)),
		Total:  total,
		Limit:  opts.Limit,
		Offset: opts.Offset,
	}
	for _, m := range moves {
		resp.Moves = append(resp.Moves, JournalEntryResponse{
			Seq:         m.Seq,
			ContainerID: m.ContainerID,
			From:        m.FromCode,
			To:          m.ToCode,
			ToBay:       m.ToBay,
			ToRow:       m.ToRow,
			ToTier:      m.ToTier,
			Accepted:    m.Accepted,
			Reason:      m.Reason,
			Message:     m.Message,
			ReStows:     m.ReStows,
			CreatedAt:   m.CreatedAt,
		})
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// Helpers
// =============================================================================

// lookup resolves the {id} URL parameter, writing a 404 when it is unknown.
func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusNotFound, "plan not found", "plan_not_found")
		return nil, false
	}
	return s, true
}

func (h *Handler) decodeMove(w http.ResponseWriter, r *http.Request) (MoveRequest, bool) {
	var req MoveRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxDocumentBytes)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON", "validation_error")
		return req, false
	}
	if msg := req.check(); msg != "" {
		h.writeError(w, http.StatusBadRequest, msg, "validation_error")
		return req, false
	}
	return req, true
}

// requestFormat picks the plan format from the format query parameter or,
// failing that, the Content-Type header. JSON is the default.
func requestFormat(r *http.Request) (planfile.Format, error) {
	if q := r.URL.Query().Get("format"); q != "" {
		return planfile.ParseFormat(q)
	}
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return planfile.FormatJSON, nil
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return "", err
	}
	switch mediaType {
	case "application/yaml", "application/x-yaml", "text/yaml", "text/x-yaml":
		return planfile.FormatYAML, nil
	default:
		return planfile.FormatJSON, nil
	}
}

func planResponse(s session.Summary) PlanResponse {
	return PlanResponse{
		ID:         s.ID,
		VesselID:   s.VesselID,
		Capacity:   s.Capacity,
		Bays:       s.Bays,
		Containers: s.Containers,
		Metrics:    s.Metrics,
		CreatedAt:  s.CreatedAt,
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode JSON", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message, code string) {
	h.writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

func isNotFound(err error) bool {
	return errors.Is(err, session.ErrPlanNotFound) || errors.Is(err, store.ErrNotFound)
}
