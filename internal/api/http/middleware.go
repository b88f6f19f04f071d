package http

import (
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"smy-nav-backend/internal/domain"
	"smy-nav-backend/internal/logger"
	"smy-nav-backend/internal/security"
)

const requestIDHeader = "X-Request-ID"

// RequestID tags the request context with the caller's X-Request-ID or a new one.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// AccessLog logs method, path, status and duration of every request.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.HTTPRequest(r.Context(), r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

// Recover turns a panic into a 500 response.
func (rs Responder) Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				logger.ErrorContext(r.Context(), "Panic serving request", "panic", p, "stack", string(debug.Stack()))
				writeJSON(w, http.StatusInternalServerError, envelope{Error: &errorBody{Message: "Internal server error"}})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Authenticator validates bearer tokens and checks role permissions.
type Authenticator struct {
	tokens security.TokenManager
	policy security.Policy
	resp   Responder
}

func NewAuthenticator(tokens security.TokenManager, policy security.Policy, resp Responder) *Authenticator {
	return &Authenticator{tokens: tokens, policy: policy, resp: resp}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// Authenticate rejects requests without a valid access token.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, envelope{Error: &errorBody{Message: "Access token required"}})
			return
		}
		claims, err := a.tokens.ValidateToken(token)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, envelope{Error: &errorBody{Message: "Invalid or expired token"}})
			return
		}
		actor := domain.Actor{UserID: claims.UserID, Role: claims.Role, AgencyID: claims.AgencyID}
		next.ServeHTTP(w, r.WithContext(withActor(r.Context(), actor)))
	})
}

// Require wraps fn so only roles allowed to perform action reach it.
func (a *Authenticator) Require(action security.Action, fn http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok {
			a.resp.Fail(w, r, domain.ErrUnauthorized)
			return
		}
		if !a.policy.Allows(actor.Role, action) {
			logger.WarnContext(r.Context(), "Permission denied", "userID", actor.UserID, "role", actor.Role, "action", action)
			a.resp.Fail(w, r, domain.ErrForbidden)
			return
		}
		fn(w, r)
	})
}
