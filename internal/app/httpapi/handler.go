package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	domain "github.com/candyops/mint_layer/internal/app/domain/mint"
	"github.com/candyops/mint_layer/internal/app/metrics"
	mintsvc "github.com/candyops/mint_layer/internal/app/services/mint"
	"github.com/candyops/mint_layer/pkg/logger"
)

// handler bundles the HTTP endpoints for the mint session.
type handler struct {
	mint *mintsvc.Service
	log  *logger.Logger
}

// NewHandler returns the router exposing the mint session API. The wallet
// frontend runs in a browser, so responses carry CORS headers for the given
// origins.
func NewHandler(mint *mintsvc.Service, allowedOrigins []string, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	h := &handler{mint: mint, log: log}

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(corsMiddleware(allowedOrigins))
	r.Use(metrics.InstrumentHandler)

	r.Get("/healthz", h.health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Get("/distribution", h.distribution)
	r.Post("/mint", h.triggerMint)
	r.Get("/mint/attempt", h.currentAttempt)
	r.Post("/mint/reset", h.resetAttempt)
	r.Get("/attempts", h.listAttempts)
	r.Get("/ws", h.stream)

	return r
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) distribution(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.mint.Snapshot())
}

func (h *handler) triggerMint(w http.ResponseWriter, r *http.Request) {
	att, err := h.mint.Mint(r.Context())
	switch {
	case errors.Is(err, mintsvc.ErrAttemptInFlight):
		// Retriggering while an attempt runs is a no-op: hand back the
		// running attempt instead of an error.
		writeJSON(w, http.StatusOK, att)
	case errors.Is(err, mintsvc.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, err)
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
	default:
		writeJSON(w, http.StatusAccepted, att)
	}
}

func (h *handler) currentAttempt(w http.ResponseWriter, _ *http.Request) {
	att := h.mint.Attempt()
	if att == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("no mint attempt"))
		return
	}
	writeJSON(w, http.StatusOK, att)
}

func (h *handler) resetAttempt(w http.ResponseWriter, r *http.Request) {
	if err := h.mint.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) listAttempts(w http.ResponseWriter, r *http.Request) {
	wallet := strings.TrimSpace(r.URL.Query().Get("wallet"))

	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 500 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("limit must be between 1 and 500"))
			return
		}
		limit = parsed
	}

	attempts, err := h.mint.Attempts(r.Context(), wallet, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if attempts == nil {
		attempts = []domain.Attempt{}
	}
	writeJSON(w, http.StatusOK, attempts)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
