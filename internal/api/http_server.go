package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"salonbook/internal/config"
	"salonbook/internal/domain"
	"salonbook/internal/export"
	"salonbook/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const dateLayout = "2006-01-02"

// Services are the application services the HTTP API is served from.
type Services struct {
	Bookings domain.BookingService
	Drafts   domain.DraftService
	Catalog  domain.CatalogService
	Exporter *export.Exporter
}

// HTTPServer exposes the booking API over JSON.
type HTTPServer struct {
	cfg      config.APIConfig
	bookings domain.BookingService
	drafts   domain.DraftService
	catalog  domain.CatalogService
	exporter *export.Exporter
	server   *http.Server
	auth     *HTTPAuth
	log      zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, svc Services, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{
		cfg:      cfg,
		bookings: svc.Bookings,
		drafts:   svc.Drafts,
		catalog:  svc.Catalog,
		exporter: svc.Exporter,
		auth:     NewHTTPAuth(cfg),
		log:      zerolog.Nop(),
	}
	if logger != nil {
		srv.log = logger.With().Str("component", "http").Logger()
	}

	mux := http.NewServeMux()
	srv.routes(mux)

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.observe(srv.auth.Wrap(mux)),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return srv
}

func (s *HTTPServer) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("GET /api/v1/slots", s.handleSlots)
	mux.HandleFunc("GET /api/v1/staff", s.handleStaff)
	mux.HandleFunc("GET /api/v1/staff/working", s.handleWorkingStaff)
	mux.HandleFunc("POST /api/v1/staff/{id}/shifts", s.handleAddShift)
	mux.HandleFunc("DELETE /api/v1/staff/{id}/shifts/{shift}", s.handleRemoveShift)
	mux.HandleFunc("POST /api/v1/staff/{id}/absences", s.handleAddAbsence)
	mux.HandleFunc("DELETE /api/v1/staff/{id}/absences/{absence}", s.handleRemoveAbsence)
	mux.HandleFunc("POST /api/v1/availability", s.handleAvailability)
	mux.HandleFunc("GET /api/v1/availability/check", s.handleCheckSlot)

	mux.HandleFunc("GET /api/v1/bookings", s.handleListBookings)
	mux.HandleFunc("POST /api/v1/bookings", s.handleCreateBooking)
	mux.HandleFunc("GET /api/v1/bookings/{id}", s.handleGetBooking)
	mux.HandleFunc("PATCH /api/v1/bookings/{id}/move", s.handleMoveBooking)
	mux.HandleFunc("PATCH /api/v1/bookings/{id}/status", s.handleBookingStatus)

	mux.HandleFunc("GET /api/v1/drafts/{session}", s.handleGetDraft)
	mux.HandleFunc("POST /api/v1/drafts/{session}", s.handleSetDraftDate)
	mux.HandleFunc("DELETE /api/v1/drafts/{session}", s.handleDeleteDraft)
	mux.HandleFunc("POST /api/v1/drafts/{session}/instances", s.handleAddDraftInstance)
	mux.HandleFunc("DELETE /api/v1/drafts/{session}/instances/{instance}", s.handleRemoveDraftInstance)
	mux.HandleFunc("POST /api/v1/drafts/{session}/assign", s.handleAssignDraftStaff)
	mux.HandleFunc("GET /api/v1/drafts/{session}/availability", s.handleDraftAvailability)
	mux.HandleFunc("POST /api/v1/drafts/{session}/checkout", s.handleDraftCheckout)

	mux.HandleFunc("GET /api/v1/services", s.handleServices)
	mux.HandleFunc("POST /api/v1/quote", s.handleQuote)
	mux.HandleFunc("GET /api/v1/export", s.handleExport)
}

func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// HTTPAuth provides API-key auth and per-key rate limiting for HTTP endpoints.
type HTTPAuth struct {
	cfg     config.APIConfig
	keys    *keyring
	limiter *rateLimiter
}

func NewHTTPAuth(cfg config.APIConfig) *HTTPAuth {
	return &HTTPAuth{
		cfg:     cfg,
		keys:    newKeyring(cfg.Auth),
		limiter: newRateLimiter(cfg.RateLimit),
	}
}

func (a *HTTPAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.cfg.Enabled || !a.cfg.HTTP.Enabled || r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}

		if a.cfg.Auth.Enabled {
			apiKey := strings.TrimSpace(r.Header.Get(a.keys.apiKeyHeader))
			extra := strings.TrimSpace(r.Header.Get(a.keys.extraHeader))
			if _, err := a.keys.authenticate(apiKey, extra, requiredPermissionHTTP(r)); err != nil {
				statusCode := http.StatusUnauthorized
				if errors.Is(err, errPermissionDenied) {
					statusCode = http.StatusForbidden
				}
				writeError(w, statusCode, err.Error())
				return
			}
		}

		if ok, wait := a.limiter.allow(a.clientKey(r)); !ok {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(wait)))
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func requiredPermissionHTTP(r *http.Request) string {
	path := r.URL.Path
	switch {
	case strings.HasPrefix(path, "/api/v1/export"):
		return permExport
	case strings.HasPrefix(path, "/api/v1/drafts"):
		return permWriteDrafts
	case strings.HasPrefix(path, "/api/v1/bookings"):
		if r.Method == http.MethodGet {
			return permReadBookings
		}
		return permWriteBookings
	case strings.HasPrefix(path, "/api/v1/staff") && r.Method != http.MethodGet:
		return permWriteRoster
	case path == "/api/v1/services", path == "/api/v1/quote":
		return permReadCatalog
	case strings.HasPrefix(path, "/api/v1/availability"),
		strings.HasPrefix(path, "/api/v1/staff"),
		path == "/api/v1/slots":
		return permReadAvailability
	default:
		return ""
	}
}

func (a *HTTPAuth) clientKey(r *http.Request) string {
	if apiKey := strings.TrimSpace(r.Header.Get(a.keys.apiKeyHeader)); apiKey != "" {
		return apiKey
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return clientKeyUnknown
}

// observe tags the request with an id, logs it and records its metrics under
// the matched route pattern.
func (s *HTTPServer) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		dur := time.Since(start)

		endpoint := r.Pattern
		if endpoint == "" {
			endpoint = "unmatched"
		}
		metrics.IncHTTP(endpoint, strconv.Itoa(recorder.status))
		metrics.ObserveHTTP(endpoint, dur.Seconds())

		s.log.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", dur).
			Msg("http request")
	})
}

// writeServiceError answers with the status matching err. Unexpected errors
// are logged and hidden from the client.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code, _ := statusOf(err)
	if code == http.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, code, "internal error")
		return
	}
	writeError(w, code, err.Error())
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
