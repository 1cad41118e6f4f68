package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/plantwatch/plantwatch/internal/engine"
	"github.com/plantwatch/plantwatch/internal/health"
	"github.com/plantwatch/plantwatch/internal/telemetry"
	"github.com/plantwatch/plantwatch/pkg/types"
)

// Plant is the engine surface the API drives. *engine.Engine satisfies it.
type Plant interface {
	CurrentAlerts() types.View
	ActiveAlerts() []types.Alert
	Dismiss(id string) error
	TriggerAction(ctx context.Context, id string) (types.Ack, error)
	Water(ctx context.Context) (types.Ack, error)
	SetLight(ctx context.Context, on bool) (types.Ack, error)
	LightState() (on, known bool)
	LatestSnapshot() types.Snapshot
	HasSnapshot() bool
	Recent() []types.Snapshot
}

// StatusReporter reports telemetry source health. *telemetry.Source
// satisfies it.
type StatusReporter interface {
	Status() telemetry.Status
}

// Handler is the HTTP handler for all /api/v1/* endpoints.
type Handler struct {
	plant  Plant
	source StatusReporter
	router chi.Router
}

// New creates a Handler and registers all routes. mws wrap every route, after
// the request id and panic recovery middleware.
func New(p Plant, src StatusReporter, mws ...func(http.Handler) http.Handler) http.Handler {
	h := &Handler{plant: p, source: src, router: chi.NewRouter()}

	r := h.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(mws...)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		jsonErr(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/alerts", h.alerts)
		r.Post("/alerts/{id}/dismiss", h.dismiss)
		r.Post("/alerts/{id}/action", h.action)
		r.Get("/snapshot", h.snapshot)
		r.Get("/snapshots/recent", h.recent)
		r.Get("/health", h.health)
		r.Get("/source", h.sourceStatus)
		r.Post("/actuate/water", h.water)
		r.Post("/actuate/light", h.light)
	})

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// alerts returns GET /api/v1/alerts.
func (h *Handler) alerts(w http.ResponseWriter, _ *http.Request) {
	jsonResp(w, http.StatusOK, toAlertsResponse(h.plant.CurrentAlerts()))
}

// dismiss handles POST /api/v1/alerts/{id}/dismiss and returns the new view.
func (h *Handler) dismiss(w http.ResponseWriter, r *http.Request) {
	if err := h.plant.Dismiss(chi.URLParam(r, "id")); err != nil {
		writeErr(w, err)
		return
	}
	jsonResp(w, http.StatusOK, toAlertsResponse(h.plant.CurrentAlerts()))
}

// action handles POST /api/v1/alerts/{id}/action.
func (h *Handler) action(w http.ResponseWriter, r *http.Request) {
	ack, err := h.plant.TriggerAction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	jsonResp(w, http.StatusOK, AckResponse{Ack: ack})
}

// snapshot returns GET /api/v1/snapshot.
func (h *Handler) snapshot(w http.ResponseWriter, _ *http.Request) {
	if !h.plant.HasSnapshot() {
		jsonErr(w, http.StatusServiceUnavailable, "no snapshot yet")
		return
	}
	resp := SnapshotResponse{Snapshot: h.plant.LatestSnapshot()}
	if on, known := h.plant.LightState(); known {
		resp.LightOn = &on
	}
	jsonResp(w, http.StatusOK, resp)
}

// recent returns GET /api/v1/snapshots/recent, oldest first.
func (h *Handler) recent(w http.ResponseWriter, _ *http.Request) {
	snaps := h.plant.Recent()
	if snaps == nil {
		snaps = []types.Snapshot{}
	}
	jsonResp(w, http.StatusOK, RecentResponse{Snapshots: snaps})
}

// health returns GET /api/v1/health: the plant's health score and active
// alert counts.
func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	active := h.plant.ActiveAlerts()
	resp := HealthResponse{
		State:      "unknown",
		Alerts:     make(map[string]int),
		AlertCount: len(active),
	}
	for _, a := range active {
		resp.Alerts[string(a.Severity)]++
	}

	if h.plant.HasSnapshot() {
		s := h.plant.LatestSnapshot()
		out := health.Compute(health.Input{
			SoilMoisture:   s.SoilMoisture,
			Temperature:    s.Temperature,
			Humidity:       s.Humidity,
			LightIntensity: s.LightIntensity,
		})
		resp.Score = s.HealthScore
		resp.State = health.StateOf(s.HealthScore)
		resp.DerivedScore = out.Score
		resp.Factors = HealthFactors{
			Soil:        out.SoilFactor,
			Temperature: out.TemperatureFactor,
			Humidity:    out.HumidityFactor,
			Light:       out.LightFactor,
		}
		resp.CapturedAt = formatTime(s.CapturedAt)
	}
	jsonResp(w, http.StatusOK, resp)
}

// sourceStatus returns GET /api/v1/source.
func (h *Handler) sourceStatus(w http.ResponseWriter, _ *http.Request) {
	if h.source == nil {
		jsonErr(w, http.StatusNotFound, "no telemetry source")
		return
	}
	jsonResp(w, http.StatusOK, h.source.Status())
}

// water handles POST /api/v1/actuate/water.
func (h *Handler) water(w http.ResponseWriter, r *http.Request) {
	ack, err := h.plant.Water(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	jsonResp(w, http.StatusOK, AckResponse{Ack: ack})
}

// light handles POST /api/v1/actuate/light.
func (h *Handler) light(w http.ResponseWriter, r *http.Request) {
	var req LightRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<10)).Decode(&req); err != nil || req.State == nil {
		jsonErr(w, http.StatusBadRequest, `body must be {"state": true|false}`)
		return
	}
	ack, err := h.plant.SetLight(r.Context(), *req.State)
	if err != nil {
		writeErr(w, err)
		return
	}
	jsonResp(w, http.StatusOK, AckResponse{Ack: ack})
}

// --- helpers ----------------------------------------------------------------

func toAlertsResponse(v types.View) AlertsResponse {
	alerts := v.Alerts
	if alerts == nil {
		alerts = []types.Alert{}
	}
	return AlertsResponse{Alerts: alerts, Overflow: v.Overflow}
}

// statusOf maps engine and actuation errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, engine.ErrUnknownAlert):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrNotActionable):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrAlreadyInFlight):
		return http.StatusConflict
	case errors.Is(err, types.ErrTransport), errors.Is(err, types.ErrActuation):
		return http.StatusBadGateway
	case errors.Is(err, engine.ErrStopped):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeErr(w http.ResponseWriter, err error) {
	code := statusOf(err)
	if code >= http.StatusInternalServerError {
		slog.Warn("api: request failed", "status", code, "err", err)
	}
	jsonErr(w, code, err.Error())
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
