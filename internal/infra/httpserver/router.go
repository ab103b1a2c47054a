package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	appsession "github.com/bryanwahyu/trustlayer/internal/application/session"
	"github.com/bryanwahyu/trustlayer/internal/application/contextcheck"
	"github.com/bryanwahyu/trustlayer/internal/application/emergency"
	"github.com/bryanwahyu/trustlayer/internal/application/reports"
	"github.com/bryanwahyu/trustlayer/internal/application/workflow"
	"github.com/bryanwahyu/trustlayer/internal/domain/analysis"
	"github.com/bryanwahyu/trustlayer/internal/domain/chamber"
	domsession "github.com/bryanwahyu/trustlayer/internal/domain/session"
	"github.com/bryanwahyu/trustlayer/internal/middleware"
)

const DefaultMaxUploadBytes = 10 << 20

type Deps struct {
	Registry   *chamber.Registry
	Workspaces *workflow.Store
	Sessions   *appsession.Service
	Tokens     *appsession.Tokens
	Checker    *contextcheck.Checker
	Emergency  *emergency.Service
	Reports    *reports.Service
	Limiter    *middleware.RateLimiter
	Health     map[string]middleware.HealthChecker
	Logger     *zap.Logger

	CORSOrigins    []string
	MaxUploadBytes int64
}

type Router struct {
	Deps
}

func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.MaxUploadBytes <= 0 {
		d.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if d.Registry == nil {
		d.Registry = chamber.NewRegistry()
	}
	r := &Router{Deps: d}

	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	mux.Use(chimw.Recoverer)
	mux.Use(middleware.RequestLogger(d.Logger))
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	mux.Get("/health", middleware.LivenessHandler)
	mux.Get("/healthz", middleware.HealthHandler(d.Health))
	mux.Get("/readyz", middleware.ReadinessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/v1", func(rt chi.Router) {
		var public chi.Router = rt
		if d.Limiter != nil {
			public = rt.With(middleware.RateLimitMiddleware(d.Limiter))
		}
		public.Get("/chambers", r.wrap(r.handleChambers))
		public.Post("/session/login", r.wrap(r.handleLogin))
		public.Post("/emergency", r.wrap(r.handleEmergency))

		rt.Group(func(auth chi.Router) {
			auth.Use(middleware.DeviceAuth(d.Tokens, d.Sessions))
			if d.Limiter != nil {
				auth.Use(middleware.RateLimitMiddleware(d.Limiter))
			}
			auth.Get("/session", r.wrap(r.handleSession))
			auth.Post("/session/logout", r.wrap(r.handleLogout))

			auth.Get("/workspace", r.wrap(r.handleWorkspace))
			auth.Post("/workspace/chamber", r.wrap(r.handleSelectChamber))
			auth.Post("/workspace/analyze", r.wrap(r.handleAnalyze))
			auth.Post("/workspace/reset", r.wrap(r.handleReset))
			auth.Post("/workspace/dashboard", r.wrap(r.handleDashboard))
			auth.Get("/workspace/safety", r.wrap(r.handleSafety))

			auth.Post("/context-check", r.wrap(r.handleContextCheck))
		})
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// badRequest marks malformed input that is not a domain validation failure.
type badRequest struct{ msg string }

func (e badRequest) Error() string { return e.msg }

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		var (
			verr   *analysis.ValidationError
			bad    badRequest
			tooBig *http.MaxBytesError
		)
		switch {
		case errors.As(err, &verr):
			writeError(w, http.StatusUnprocessableEntity, verr.Message)
		case errors.As(err, &tooBig):
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
		case errors.As(err, &bad):
			writeError(w, http.StatusBadRequest, bad.msg)
		case errors.Is(err, analysis.ErrBusy):
			writeError(w, http.StatusConflict, "an analysis is already running")
		case errors.Is(err, analysis.ErrNoChamber):
			writeError(w, http.StatusConflict, "select a chamber first")
		case errors.Is(err, analysis.ErrUnknownChamber):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domsession.ErrUnauthenticated):
			writeError(w, http.StatusUnauthorized, "unauthenticated")
		default:
			r.Logger.Error("request failed",
				zap.String("path", req.URL.Path),
				zap.String("request_id", chimw.GetReqID(req.Context())),
				zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	_ = writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(req *http.Request, dst any) error {
	if req.Body == nil || req.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, req.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return badRequest{msg: "invalid JSON body"}
	}
	return nil
}

// GET /v1/chambers
func (r *Router) handleChambers(w http.ResponseWriter, req *http.Request) error {
	return writeJSON(w, http.StatusOK, map[string]any{"chambers": r.Registry.List()})
}

type loginResponse struct {
	Token      string    `json:"token"`
	DeviceID   string    `json:"device_id"`
	Remembered bool      `json:"remembered"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// POST /v1/session/login
// Body: {"remember": bool, "human_verified": bool}
// A still-valid bearer token keeps its device id.
func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Remember      bool `json:"remember"`
		HumanVerified bool `json:"human_verified"`
	}
	if err := decodeJSON(req, &body); err != nil {
		return err
	}

	var device string
	if tok := middleware.BearerToken(req); tok != "" {
		if id, err := r.Tokens.Verify(tok); err == nil && middleware.ValidateDeviceID(id) == nil {
			device = id
		}
	}

	grant, err := r.Sessions.Login(req.Context(), appsession.LoginCommand{
		DeviceID:      device,
		Remember:      body.Remember,
		HumanVerified: body.HumanVerified,
	})
	if err != nil {
		return err
	}
	token, err := r.Tokens.Issue(grant.DeviceID, grant.ExpiresAt)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, loginResponse{
		Token:      token,
		DeviceID:   grant.DeviceID,
		Remembered: grant.Remembered,
		ExpiresAt:  grant.ExpiresAt,
	})
}

// GET /v1/session
func (r *Router) handleSession(w http.ResponseWriter, req *http.Request) error {
	grant, err := r.Sessions.Resume(req.Context(), middleware.GetDeviceFromContext(req.Context()))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"authenticated": true, "session": grant})
}

// POST /v1/session/logout
func (r *Router) handleLogout(w http.ResponseWriter, req *http.Request) error {
	if err := r.Sessions.Logout(req.Context(), middleware.GetDeviceFromContext(req.Context())); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
}

// POST /v1/emergency
// Body: {"lat": 0, "lng": 0}; omit both when location is unavailable.
func (r *Router) handleEmergency(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Lat *float64 `json:"lat"`
		Lng *float64 `json:"lng"`
	}
	if err := decodeJSON(req, &body); err != nil {
		return err
	}
	var loc *emergency.Location
	if body.Lat != nil && body.Lng != nil {
		loc = &emergency.Location{Lat: *body.Lat, Lng: *body.Lng}
	}
	middleware.IncrementEmergency()
	return writeJSON(w, http.StatusOK, r.Emergency.Activate(req.Context(), emergency.Fixed(loc)))
}

// POST /v1/context-check
// Body: {"claim": "..."}
func (r *Router) handleContextCheck(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Claim string `json:"claim"`
	}
	if err := decodeJSON(req, &body); err != nil {
		return err
	}
	claim := middleware.SanitizeString(body.Claim)
	if err := middleware.ValidateClaim(claim); err != nil {
		return analysis.NewValidationError("%s", err.Error())
	}

	progress := make(chan contextcheck.Progress, len(contextcheck.Steps))
	report, err := r.Checker.Check(req.Context(), claim, progress)
	if err != nil {
		return err
	}
	steps := make([]contextcheck.Progress, 0, len(contextcheck.Steps))
	for p := range progress {
		steps = append(steps, p)
	}
	middleware.IncrementClaimChecks()
	return writeJSON(w, http.StatusOK, map[string]any{"report": report, "progress": steps})
}
