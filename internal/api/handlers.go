// File: internal/api/handlers.go
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sreeshanth-soma/erpScraper/internal/config"
	"github.com/sreeshanth-soma/erpScraper/internal/scraper"
	"github.com/sreeshanth-soma/erpScraper/internal/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxBodyBytes caps request bodies; every request here is a tiny JSON object.
const maxBodyBytes = 1 << 16

// Handlers serves the reporting API for a single owner.
type Handlers struct {
	log      *zap.Logger
	store    Store
	scraper  Scraper
	owner    string
	location *time.Location
	limiter  *rate.Limiter
}

// NewHandlers creates a new Handlers instance. Login requests are limited to
// one scrape per interval with the given burst.
func NewHandlers(logger *zap.Logger, st Store, sc Scraper, profile config.ProfileConfig, interval time.Duration, burst int) (*Handlers, error) {
	loc, err := profile.Location()
	if err != nil {
		return nil, err
	}
	return &Handlers{
		log:      logger.Named("api"),
		store:    st,
		scraper:  sc,
		owner:    profile.Owner,
		location: loc,
		limiter:  rate.NewLimiter(rate.Every(interval), burst),
	}, nil
}

// RegisterRoutes sets up the routing for the reporting API.
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.HandleHealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Get("/latest_attendance", h.HandleLatestAttendance)
		r.Get("/profile", h.HandleGetProfile)
		r.Put("/profile", h.HandleUpdateProfile)
		r.Post("/login", h.HandleLogin)
	})
}

// HandleHealthCheck is a simple handler to confirm the server is responsive.
func (h *Handlers) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// HandleLatestAttendance returns the most recent record, or {} when none exists.
func (h *Handlers) HandleLatestAttendance(w http.ResponseWriter, r *http.Request) {
	rec, err := h.store.Latest(r.Context(), h.owner)
	if errors.Is(err, store.ErrNotFound) {
		h.respondWithJSON(w, http.StatusOK, struct{}{})
		return
	}
	if err != nil {
		h.log.Error("Failed to load latest attendance.", zap.Error(err))
		h.respondWithError(w, http.StatusInternalServerError, "failed to load attendance", "")
		return
	}

	profile, err := h.store.Profile(r.Context(), h.owner)
	if err != nil {
		h.log.Error("Failed to load profile.", zap.Error(err))
		h.respondWithError(w, http.StatusInternalServerError, "failed to load profile", "")
		return
	}
	h.respondWithJSON(w, http.StatusOK, newAttendanceResponse(rec, profile.Goal, h.location))
}

func (h *Handlers) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.store.Profile(r.Context(), h.owner)
	if err != nil {
		h.log.Error("Failed to load profile.", zap.Error(err))
		h.respondWithError(w, http.StatusInternalServerError, "failed to load profile", "")
		return
	}
	h.respondWithJSON(w, http.StatusOK, profile)
}

func (h *Handlers) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req GoalRequest
	if err := h.decode(w, r, &req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err), "")
		return
	}
	if req.Goal == nil {
		h.respondWithError(w, http.StatusBadRequest, "attendance_goal is required", "")
		return
	}
	if err := config.ValidateGoal(*req.Goal); err != nil {
		h.respondWithError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	profile, err := h.store.SetGoal(r.Context(), h.owner, *req.Goal)
	if err != nil {
		h.log.Error("Failed to update goal.", zap.Error(err))
		h.respondWithError(w, http.StatusInternalServerError, "failed to update goal", "")
		return
	}
	h.log.Info("Attendance goal updated.", zap.Float64("goal", profile.Goal))
	h.respondWithJSON(w, http.StatusOK, profile)
}

// HandleLogin runs a scrape with the posted credentials and returns the stored record.
func (h *Handlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := h.decode(w, r, &req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err), "")
		return
	}
	creds := config.Credentials{Username: req.Username, Password: req.Password}
	if err := creds.Validate(); err != nil {
		h.respondWithError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	now := time.Now()
	res := h.limiter.ReserveN(now, 1)
	if wait := res.DelayFrom(now); !res.OK() || wait > 0 {
		res.CancelAt(now)
		w.Header().Set("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
		h.respondWithError(w, http.StatusTooManyRequests, "scrape rate limit exceeded", "")
		return
	}

	h.log.Info("Scrape requested.", zap.String("username", creds.Username))
	rec, err := h.scraper.Run(r.Context(), creds)
	if err != nil {
		status, kind := statusFor(err)
		if errors.Is(err, scraper.ErrRunInProgress) {
			// Nothing was scraped, so the token goes back.
			res.CancelAt(now)
		}
		if status >= http.StatusInternalServerError {
			h.log.Error("Scrape failed.", zap.String("kind", kind), zap.Error(err))
			h.respondWithError(w, status, "scrape failed", kind)
			return
		}
		h.respondWithError(w, status, err.Error(), kind)
		return
	}

	profile, err := h.store.Profile(r.Context(), h.owner)
	if err != nil {
		h.log.Error("Failed to load profile.", zap.Error(err))
		h.respondWithError(w, http.StatusInternalServerError, "failed to load profile", "")
		return
	}
	h.respondWithJSON(w, http.StatusOK, newAttendanceResponse(rec, profile.Goal, h.location))
}

// statusFor maps a run failure to an HTTP status and a short kind label.
func statusFor(err error) (int, string) {
	if errors.Is(err, scraper.ErrRunInProgress) {
		return http.StatusConflict, "in_progress"
	}
	kind := scraper.KindOf(err)
	switch kind {
	case scraper.KindAuthentication:
		return http.StatusUnauthorized, kind.String()
	case scraper.KindAuthenticationTimeout, scraper.KindNavigationTimeout:
		return http.StatusGatewayTimeout, kind.String()
	case scraper.KindNavigation, scraper.KindExtraction, scraper.KindBrowser:
		return http.StatusBadGateway, kind.String()
	case scraper.KindConfiguration, scraper.KindPersistence:
		return http.StatusInternalServerError, kind.String()
	default:
		return http.StatusInternalServerError, ""
	}
}

func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

// respondWithError sends a standardized JSON error response.
func (h *Handlers) respondWithError(w http.ResponseWriter, statusCode int, message, kind string) {
	h.respondWithJSON(w, statusCode, ErrorResponse{Error: message, Kind: kind})
}

func (h *Handlers) respondWithJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error("Failed to encode response", zap.Error(err))
	}
}
