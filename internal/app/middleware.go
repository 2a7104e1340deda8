package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/financeflow/financeflow/internal/rest"
	"github.com/financeflow/financeflow/pkg/auth"
	"github.com/financeflow/financeflow/pkg/user"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const requestIdHeader = "X-Request-Id"

// SetupMiddleware wires the middlewares shared by every route.
func SetupMiddleware(r *mux.Router) {
	r.Use(requestLogging)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// requestLogging tags each request with an id and logs its outcome.
func requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		requestId := req.Header.Get(requestIdHeader)
		if requestId == "" {
			requestId = uuid.NewString()
		}
		w.Header().Set(requestIdHeader, requestId)

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(recorder, req)

		log.WithFields(log.Fields{
			"request_id": requestId,
			"method":     req.Method,
			"path":       req.URL.Path,
			"status":     recorder.status,
			"duration":   time.Since(start).String(),
		}).Info("handled request")
	})
}

// RequireUser authenticates the bearer token and puts its user into the request context.
func RequireUser(authService auth.Service) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			token := auth.BearerToken(req)
			if token == "" {
				rest.WriteError(w, http.StatusUnauthorized, "Missing authorization token")
				return
			}

			u, err := authService.Authenticate(req.Context(), token)
			if err != nil {
				if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrExpiredToken) {
					log.Debugf("rejected token: %v", err)
					rest.WriteError(w, http.StatusUnauthorized, "Invalid or expired token")
					return
				}
				log.Errorf("failed to authenticate request: %v", err)
				rest.WriteError(w, http.StatusInternalServerError, "Internal server error")
				return
			}
			log.Debugf("user authenticated: %s", u.Uid)
			next.ServeHTTP(w, req.WithContext(user.WithUser(req.Context(), u)))
		})
	}
}
