package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"instrutores-na-direcao/internal/domain"
	"instrutores-na-direcao/internal/domain/model"
	"instrutores-na-direcao/internal/domain/ports/adapter"
	"instrutores-na-direcao/internal/domain/ports/repository"
	"instrutores-na-direcao/internal/infra/logging"
	"instrutores-na-direcao/internal/infra/metrics"
	redisinfra "instrutores-na-direcao/internal/infra/redis"
	"instrutores-na-direcao/internal/usecase"
)

const defaultOrigin = "http://localhost:3000"

// Server wires the billing HTTP surface: the three function endpoints the
// frontend calls, the admin API, health, and metrics.
type Server struct {
	entUC      usecase.EntitlementUseCase
	checkoutUC usecase.CheckoutUseCase
	webhookUC  usecase.WebhookUseCase
	adminUC    usecase.AdminUseCase

	verifier adapter.TokenVerifier
	limiter  *redisinfra.RateLimiter
	audit    repository.AuditLogRepository

	adminAPIKey    string
	checkoutPerMin int
	log            *zerolog.Logger
}

func NewServer(
	entUC usecase.EntitlementUseCase,
	checkoutUC usecase.CheckoutUseCase,
	webhookUC usecase.WebhookUseCase,
	adminUC usecase.AdminUseCase,
	verifier adapter.TokenVerifier,
	limiter *redisinfra.RateLimiter,
	audit repository.AuditLogRepository,
	adminAPIKey string,
	checkoutPerMin int,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		entUC:          entUC,
		checkoutUC:     checkoutUC,
		webhookUC:      webhookUC,
		adminUC:        adminUC,
		verifier:       verifier,
		limiter:        limiter,
		audit:          audit,
		adminAPIKey:    adminAPIKey,
		checkoutPerMin: checkoutPerMin,
		log:            logger,
	}
}

// Routes builds the router with the shared middleware chain applied.
func (s *Server) Routes(requestTimeout time.Duration) *chi.Mux {
	r := chi.NewRouter()
	r.Use(TraceID())
	r.Use(RequestLog(s.log))
	r.Use(Recover(s.log))
	r.Use(Timeout(requestTimeout))

	r.Post("/functions/check-instructor-subscription", s.handleCheckSubscription)
	r.Post("/functions/create-instructor-checkout", s.handleCreateCheckout)
	r.Post("/functions/stripe-webhook", s.handleWebhook)

	r.Route("/api/v1/admin", func(ar chi.Router) {
		ar.Use(s.adminGuard)
		ar.Post("/cancel-subscription", s.handleAdminCancel)
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func (s *Server) handleCheckSubscription(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.bearerIdentity(w, r)
	if !ok {
		return
	}
	ent, err := s.entUC.Resolve(r.Context(), identity)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ent)
}

type checkoutRequest struct {
	PlanType string `json:"planType"`
	Origin   string `json:"origin"`
}

type checkoutResponse struct {
	URL string `json:"url"`
}

func (s *Server) handleCreateCheckout(w http.ResponseWriter, r *http.Request) {
	// Rate limit by caller IP before touching auth, so brute-force token
	// guessing also burns the window.
	ip := clientIP(r)
	allowed, err := s.limiter.Allow(r.Context(), redisinfra.CheckoutKey("ip:"+ip), s.checkoutPerMin, time.Minute)
	if err != nil {
		l := logging.With(r.Context(), s.log)
		l.Error().Err(err).Msg("rate limiter unavailable")
	} else if !allowed {
		metrics.IncRateLimitBlocks()
		s.auditRateLimit(r, ip)
		w.Header().Set("Retry-After", "60")
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "too many checkout attempts, try again shortly"})
		return
	}

	identity, ok := s.bearerIdentity(w, r)
	if !ok {
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	origin := req.Origin
	if origin == "" {
		origin = r.Header.Get("Origin")
	}
	if origin == "" {
		origin = defaultOrigin
	}

	url, err := s.checkoutUC.CreateSession(r.Context(), identity, req.PlanType, origin)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, checkoutResponse{URL: url})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing signature"})
		return
	}
	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable payload"})
		return
	}
	if err := s.webhookUC.Handle(r.Context(), payload, signature); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

type adminCancelRequest struct {
	InstructorID string `json:"instructorId"`
	Reason       string `json:"reason"`
}

func (s *Server) handleAdminCancel(w http.ResponseWriter, r *http.Request) {
	var req adminCancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := s.adminUC.CancelSubscription(r.Context(), req.InstructorID, req.Reason, "admin-api"); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// adminGuard compares the bearer token against the static admin API key.
func (s *Server) adminGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok || s.adminAPIKey == "" || token != s.adminAPIKey {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) bearerIdentity(w http.ResponseWriter, r *http.Request) (adapter.Identity, bool) {
	token, ok := bearerToken(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing authorization header"})
		return adapter.Identity{}, false
	}
	identity, err := s.verifier.Verify(r.Context(), token)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
		return adapter.Identity{}, false
	}
	return *identity, true
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", false
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func (s *Server) auditRateLimit(r *http.Request, ip string) {
	ev := &model.AuditEvent{
		ID:        ulid.Make().String(),
		Action:    "rate_limit_exceeded",
		IPAddress: ip,
		Notes:     "checkout session creation throttled",
		CreatedAt: time.Now(),
	}
	if err := s.audit.Save(r.Context(), repository.NoTX, ev); err != nil {
		l := logging.With(r.Context(), s.log)
		l.Warn().Err(err).Msg("audit write failed")
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	l := logging.With(r.Context(), s.log)
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	case errors.Is(err, domain.ErrUnknownPlan), errors.Is(err, domain.ErrInvalidArgument):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrWebhookSignature):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "signature verification failed"})
	case errors.Is(err, domain.ErrNoActiveSubscription), errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrRateLimited):
		w.Header().Set("Retry-After", "60")
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": err.Error()})
	default:
		l.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
