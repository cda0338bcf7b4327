package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/simaogato/fundledger/internal/logger"
)

// Pinger reports whether the store is reachable
type Pinger interface {
	PingContext(ctx context.Context) error
}

// SetupRouter wires the health and report endpoints.
// Every /api/v1 route requires "Authorization: Bearer <token>" unless token is empty.
func SetupRouter(db Pinger, handler *ReportHandler, token string, log zerolog.Logger) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/healthz", healthCheckHandler(db)).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(loggingMiddleware(log))
	if token != "" {
		api.Use(bearerAuthMiddleware(token))
	}

	api.HandleFunc("/export.csv", handler.ExportCSV).Methods(http.MethodGet)
	api.HandleFunc("/export.xlsx", handler.ExportXLSX).Methods(http.MethodGet)
	api.HandleFunc("/balance", handler.Balance).Methods(http.MethodGet)

	return router
}

func loggingMiddleware(base zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLogger := base.With().Str("method", r.Method).Str("path", r.URL.Path).Logger()

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(logger.WithContext(r.Context(), reqLogger)))

			reqLogger.Info().Int("status", rec.status).Dur("duration", time.Since(start)).Msg("http request")
		})
	}
}

func bearerAuthMiddleware(token string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") || strings.TrimPrefix(header, "Bearer ") != token {
				respondWithError(w, http.StatusUnauthorized, "invalid or missing bearer token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func healthCheckHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			respondWithJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}

		respondWithJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
